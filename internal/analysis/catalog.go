package analysis

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/jsonc"
)

// Catalog is the ordered set of analysis kinds available to a session.
type Catalog struct {
	specs []Spec
	index map[Kind]int
}

// NewCatalog returns the built-in kinds followed by extra. An extra spec with
// a built-in key replaces the built-in in place.
func NewCatalog(extra ...Spec) (*Catalog, error) {
	c := &Catalog{index: make(map[Kind]int)}
	for _, s := range Builtins() {
		c.add(s)
	}
	seen := make(map[Kind]bool, len(extra))
	for _, s := range extra {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if seen[s.Kind] {
			return nil, fmt.Errorf("kind %q declared twice", s.Kind)
		}
		seen[s.Kind] = true
		c.add(s)
	}
	return c, nil
}

func (c *Catalog) add(s Spec) {
	if i, ok := c.index[s.Kind]; ok {
		c.specs[i] = s
		return
	}
	c.index[s.Kind] = len(c.specs)
	c.specs = append(c.specs, s)
}

// ParseCatalog reads a JSONC document of the form {"kinds": [Spec...]}.
// Comments and trailing commas are allowed.
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Kinds []Spec `json:"kinds"`
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return NewCatalog(doc.Kinds...)
}

// LoadCatalog reads a catalog file. An empty path yields the built-ins.
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return NewCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Kinds returns the keys in display order.
func (c *Catalog) Kinds() []Kind {
	out := make([]Kind, len(c.specs))
	for i, s := range c.specs {
		out[i] = s.Kind
	}
	return out
}

// Specs returns the declarations in display order.
func (c *Catalog) Specs() []Spec {
	return append([]Spec(nil), c.specs...)
}

// Spec returns the declaration for k.
func (c *Catalog) Spec(k Kind) (Spec, bool) {
	i, ok := c.index[k]
	if !ok {
		return Spec{}, false
	}
	return c.specs[i], true
}
