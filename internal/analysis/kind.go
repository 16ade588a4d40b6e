package analysis

import (
	"fmt"
	"strings"
)

// Kind identifies an analysis procedure by its stable key.
type Kind string

// Built-in analysis kinds.
const (
	PhylogeneticSignal Kind = "signal"
	AncestralState     Kind = "ancestral-state"
	PGLS               Kind = "pgls"
	PIC                Kind = "pic"
)

// Output formats.
const (
	FormatCSV   = "csv"
	FormatImage = "image"
)

// ParamSpec declares one required parameter.
type ParamSpec struct {
	Name    string   `json:"name"`
	Input   string   `json:"input,omitempty"` // task input name; defaults to Name
	Label   string   `json:"label,omitempty"`
	Choices []string `json:"choices,omitempty"`
}

// InputName returns the task input the parameter is sent as.
func (p ParamSpec) InputName() string {
	if p.Input != "" {
		return p.Input
	}
	return p.Name
}

// DisplayLabel returns Label, falling back to Name.
func (p ParamSpec) DisplayLabel() string {
	if p.Label != "" {
		return p.Label
	}
	return p.Name
}

// OutputSpec declares one artifact written by the remote task.
type OutputSpec struct {
	Name     string `json:"name"`
	FileName string `json:"fileName"`
	Format   string `json:"format"`
}

// Spec declares everything the orchestrator needs to run a Kind. DisplayName
// doubles as the task search string and the results folder suffix.
type Spec struct {
	Kind        Kind              `json:"kind"`
	DisplayName string            `json:"displayName"`
	Params      []ParamSpec       `json:"params"`
	Fixed       map[string]string `json:"fixed,omitempty"`
	Outputs     []OutputSpec      `json:"outputs"`
}

// Param returns the declared parameter called name.
func (s Spec) Param(name string) (ParamSpec, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// Ready reports whether every required parameter has a non-blank value.
func (s Spec) Ready(params Params) bool {
	for _, p := range s.Params {
		if strings.TrimSpace(params[p.Name]) == "" {
			return false
		}
	}
	return true
}

// Validate checks that a declaration is usable.
func (s Spec) Validate() error {
	if strings.TrimSpace(string(s.Kind)) == "" {
		return fmt.Errorf("kind is empty")
	}
	if strings.TrimSpace(s.DisplayName) == "" {
		return fmt.Errorf("kind %q: displayName is empty", s.Kind)
	}
	if len(s.Params) == 0 {
		return fmt.Errorf("kind %q: no parameters declared", s.Kind)
	}
	if len(s.Outputs) == 0 {
		return fmt.Errorf("kind %q: no outputs declared", s.Kind)
	}
	inputs := map[string]bool{"tree": true, "table": true}
	for _, p := range s.Params {
		if p.Name == "" {
			return fmt.Errorf("kind %q: parameter without name", s.Kind)
		}
		if inputs[p.InputName()] {
			return fmt.Errorf("kind %q: duplicate input %q", s.Kind, p.InputName())
		}
		inputs[p.InputName()] = true
	}
	for name := range s.Fixed {
		if inputs[name] {
			return fmt.Errorf("kind %q: fixed input %q shadows a parameter", s.Kind, name)
		}
	}
	outputs := map[string]bool{}
	for _, o := range s.Outputs {
		if o.Name == "" || o.FileName == "" {
			return fmt.Errorf("kind %q: output needs name and fileName", s.Kind)
		}
		if o.Format != FormatCSV && o.Format != FormatImage {
			return fmt.Errorf("kind %q: output %q has unknown format %q", s.Kind, o.Name, o.Format)
		}
		if outputs[o.Name] {
			return fmt.Errorf("kind %q: duplicate output %q", s.Kind, o.Name)
		}
		outputs[o.Name] = true
	}
	return nil
}

// Params holds parameter values keyed by ParamSpec.Name.
type Params map[string]string

// Clone returns an independent copy.
func (p Params) Clone() Params {
	dup := make(Params, len(p))
	for k, v := range p {
		dup[k] = v
	}
	return dup
}

// Models accepted by the PGLS correlation structure.
var PGLSModels = []string{"BM", "OU"}

// Builtins returns the declarations of the built-in kinds in display order.
func Builtins() []Spec {
	return []Spec{
		{
			Kind:        PhylogeneticSignal,
			DisplayName: "Phylogenetic signal",
			Params:      []ParamSpec{{Name: "column", Label: "Trait"}},
			Outputs:     []OutputSpec{{Name: "output", FileName: "signal.csv", Format: FormatCSV}},
		},
		{
			Kind:        AncestralState,
			DisplayName: "Ancestral state reconstruction",
			Params:      []ParamSpec{{Name: "column", Label: "Trait"}},
			Outputs: []OutputSpec{
				{Name: "table", FileName: "output.csv", Format: FormatCSV},
				{Name: "plot", FileName: "plot.png", Format: FormatImage},
			},
		},
		{
			Kind:        PGLS,
			DisplayName: "PGLS",
			Params: []ParamSpec{
				{Name: "x", Input: "independent", Label: "X"},
				{Name: "y", Input: "dependent", Label: "Y"},
				{Name: "model", Input: "correlation", Label: "Model", Choices: PGLSModels},
			},
			Outputs: []OutputSpec{
				{Name: "coefficients", FileName: "output.csv", Format: FormatCSV},
				{Name: "summary", FileName: "summary.csv", Format: FormatCSV},
			},
		},
		{
			Kind:        PIC,
			DisplayName: "Phylogenetic independent contrasts",
			Params: []ParamSpec{
				{Name: "x", Input: "independent", Label: "X"},
				{Name: "y", Input: "dependent", Label: "Y"},
			},
			Outputs: []OutputSpec{
				{Name: "output", FileName: "pic.csv", Format: FormatCSV},
				{Name: "plot", FileName: "plot.png", Format: FormatImage},
			},
		},
	}
}
