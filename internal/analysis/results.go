package analysis

import "github.com/arborworkflows/arbor-apps/internal/tabular"

// Artifact is one fetched analysis output. CSV outputs carry a parsed Table;
// image outputs carry a download URL and are not fetched.
type Artifact struct {
	Name     string
	Format   string
	FileName string
	Table    *tabular.Table
	URL      string
}

// Results maps output names to fetched artifacts.
type Results map[string]Artifact

// Clone returns a copy of the map. Tables are immutable and shared.
func (r Results) Clone() Results {
	if r == nil {
		return nil
	}
	dup := make(Results, len(r))
	for k, v := range r {
		dup[k] = v
	}
	return dup
}
