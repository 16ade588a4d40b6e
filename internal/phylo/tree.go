// Package phylo wraps Newick phylogenies for display.
package phylo

import (
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
	"unicode"

	"github.com/js-arias/timetree"
)

// ErrParse reports malformed tree content.
var ErrParse = errors.New("malformed tree")

// Tree is an immutable parsed phylogeny. Terminal labels are kept exactly
// as written so they match the taxon column of a trait table.
type Tree struct {
	t      *timetree.Tree
	name   string
	labels map[string]string // timetree taxon -> label as written
}

// Parse reads the first Newick tree from r. Ages are derived from branch
// lengths with the root placed at the longest root-to-tip distance.
func Parse(r io.Reader, name string) (*Tree, error) {
	if strings.TrimSpace(name) == "" {
		name = "tree"
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read tree: %w", err)
	}
	src, labels, err := relabel(string(raw))
	if err != nil {
		return nil, err
	}
	c, err := timetree.Newick(strings.NewReader(src), name, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	names := c.Names()
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no tree found", ErrParse)
	}
	return &Tree{t: c.Tree(names[0]), name: name, labels: labels}, nil
}

// timetree canonicalises taxon names (case, underscores, inner spaces) and
// rejects repeats, so terminals are swapped for numbered placeholders before
// parsing and mapped back afterwards. Placeholders come back capitalised.
const placeholderPrefix = "t"

// relabel replaces every terminal label in src with a placeholder and returns
// the rewritten text with the labels keyed by their canonical placeholder.
// Unquoted labels are trimmed; quoted labels lose their quotes and '' becomes '.
// Bracketed comments are dropped.
func relabel(src string) (string, map[string]string, error) {
	rs := []rune(src)
	labels := make(map[string]string)
	var b strings.Builder
	leaf := false
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		switch {
		case r == '[':
			end := i
			for end < len(rs) && rs[end] != ']' {
				end++
			}
			if end == len(rs) {
				return "", nil, fmt.Errorf("%w: unterminated comment", ErrParse)
			}
			i = end
			continue
		case r == '(' || r == ',':
			b.WriteRune(r)
			leaf = true
			continue
		case unicode.IsSpace(r):
			b.WriteRune(r)
			continue
		case !leaf || r == ')' || r == ':' || r == ';':
			b.WriteRune(r)
			leaf = false
			continue
		}

		leaf = false
		var label string
		if r == '\'' {
			var ok bool
			label, i, ok = quotedLabel(rs, i)
			if !ok {
				return "", nil, fmt.Errorf("%w: unterminated quoted label", ErrParse)
			}
		} else {
			end := i
			for end < len(rs) && !strings.ContainsRune("(),:;[", rs[end]) {
				end++
			}
			label = strings.TrimSpace(string(rs[i:end]))
			i = end - 1
		}
		if label == "" {
			return "", nil, fmt.Errorf("%w: unnamed terminal", ErrParse)
		}
		key := fmt.Sprintf("%s%d", placeholderPrefix, len(labels))
		labels[strings.ToUpper(key)] = label
		b.WriteString(key)
	}
	return b.String(), labels, nil
}

// quotedLabel reads a quoted label starting at rs[start] and returns it with
// the index of the closing quote.
func quotedLabel(rs []rune, start int) (string, int, bool) {
	var b strings.Builder
	for i := start + 1; i < len(rs); i++ {
		if rs[i] != '\'' {
			b.WriteRune(rs[i])
			continue
		}
		if i+1 < len(rs) && rs[i+1] == '\'' {
			b.WriteRune('\'')
			i++
			continue
		}
		return b.String(), i, true
	}
	return "", len(rs), false
}

func (t *Tree) label(taxon string) string {
	if l, ok := t.labels[taxon]; ok {
		return l
	}
	return taxon
}

// ParseString is a convenience wrapper around Parse.
func ParseString(s, name string) (*Tree, error) {
	return Parse(strings.NewReader(s), name)
}

// Name returns the tree name.
func (t *Tree) Name() string {
	if t == nil {
		return ""
	}
	return t.name
}

// Terms returns the sorted terminal labels.
func (t *Tree) Terms() []string {
	if t == nil {
		return nil
	}
	terms := t.t.Terms()
	for i, taxon := range terms {
		terms[i] = t.label(taxon)
	}
	slices.Sort(terms)
	return terms
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.t.Nodes())
}

// Line is one node of a depth-first outline of the tree.
type Line struct {
	Depth  int
	Label  string  // taxon for terminals, empty for internal nodes
	Branch float64 // branch length as a fraction of the root age
}

// Outline flattens the tree depth first, parents before children.
func (t *Tree) Outline() []Line {
	if t == nil {
		return nil
	}
	root := t.t.Root()
	rootAge := float64(t.t.Age(root))
	var lines []Line
	var walk func(id, depth int)
	walk = func(id, depth int) {
		line := Line{Depth: depth}
		if taxon := t.t.Taxon(id); taxon != "" {
			line.Label = t.label(taxon)
		}
		if id != root && rootAge > 0 {
			line.Branch = float64(t.t.Age(t.t.Parent(id))-t.t.Age(id)) / rootAge
		}
		lines = append(lines, line)
		for _, c := range t.t.Children(id) {
			walk(c, depth+1)
		}
	}
	walk(root, 0)
	return lines
}

// BarWidth converts a branch fraction to a character count for a display of
// width columns magnified by scale. Non-zero branches get at least one cell.
func BarWidth(branch, scale float64, width int) int {
	if branch <= 0 || scale <= 0 || width <= 0 {
		return 0
	}
	n := int(math.Round(branch * scale * float64(width)))
	return max(n, 1)
}
