package phylo

import (
	"errors"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse_Terms(t *testing.T) {
	tree, err := ParseString("((c:1,a:1):1,b:2);\n", "primates")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, tree.Terms()); diff != "" {
		t.Fatalf("Terms mismatch (-want +got):\n%s", diff)
	}
	if tree.Len() != 5 {
		t.Fatalf("Len = %d, want 5", tree.Len())
	}
}

func TestParse_KeepsLabelsAsWritten(t *testing.T) {
	cases := []struct {
		name   string
		newick string
		want   []string
	}{
		{"case and underscores", "((Anolis_carolinensis:1,anolis_SAGREI:1):1,Homo sapiens:2);", []string{"Anolis_carolinensis", "Homo sapiens", "anolis_SAGREI"}},
		{"quoted", "(('It''s here':1,'b, c':1):1,[note]d:2);", []string{"It's here", "b, c", "d"}},
		{"repeated", "((a:1,a:1):1,c:2);", []string{"a", "a", "c"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tree, err := ParseString(tc.newick, "anolis.phy")
			if err != nil {
				t.Fatalf("Parse returned error: %v", err)
			}
			if diff := cmp.Diff(tc.want, tree.Terms()); diff != "" {
				t.Fatalf("Terms mismatch (-want +got):\n%s", diff)
			}
			var outlined []string
			for _, l := range tree.Outline() {
				if l.Label != "" {
					outlined = append(outlined, l.Label)
				}
			}
			if len(outlined) != len(tc.want) {
				t.Fatalf("Outline labels = %v, want %d terminals", outlined, len(tc.want))
			}
			for _, l := range outlined {
				if !slices.Contains(tc.want, l) {
					t.Fatalf("Outline label %q not in %v", l, tc.want)
				}
			}
			if tree.Name() != "anolis.phy" {
				t.Fatalf("Name = %q, want anolis.phy", tree.Name())
			}
		})
	}
}

func TestParse_RejectsBadLabels(t *testing.T) {
	for _, src := range []string{"(('a:1,b:1):1,c:2);", "((a:1,'':1):1,c:2);", "((a:1,b:1)[x:1,c:2);"} {
		if _, err := ParseString(src, ""); !errors.Is(err, ErrParse) {
			t.Fatalf("Parse(%q) error = %v, want ErrParse", src, err)
		}
	}
}

func TestOutline_RootFirstAndBranchFractions(t *testing.T) {
	tree, err := ParseString("((c:1,a:1):1,b:2);", "")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	lines := tree.Outline()
	if len(lines) != 5 {
		t.Fatalf("Outline len = %d, want 5", len(lines))
	}
	if lines[0].Depth != 0 || lines[0].Label != "" || lines[0].Branch != 0 {
		t.Fatalf("root line = %+v, want depth 0 unlabeled", lines[0])
	}
	labels := map[string]Line{}
	for _, l := range lines[1:] {
		if l.Label != "" {
			labels[l.Label] = l
		}
	}
	if labels["b"].Depth != 1 || labels["b"].Branch != 1 {
		t.Fatalf("b = %+v, want depth 1 spanning the whole tree", labels["b"])
	}
	if labels["a"].Depth != 2 || labels["a"].Branch != 0.5 {
		t.Fatalf("a = %+v, want depth 2 half the tree", labels["a"])
	}
}

func TestParse_Malformed(t *testing.T) {
	if _, err := ParseString("((a:1,b:1", ""); !errors.Is(err, ErrParse) {
		t.Fatalf("Parse error = %v, want ErrParse", err)
	}
}

func TestBarWidth(t *testing.T) {
	cases := []struct {
		branch, scale float64
		width, want   int
	}{
		{0, 1, 40, 0},
		{0.5, 1, 40, 20},
		{0.5, 2, 40, 40},
		{0.001, 1, 40, 1},
		{0.5, 0, 40, 0},
	}
	for _, tc := range cases {
		if got := BarWidth(tc.branch, tc.scale, tc.width); got != tc.want {
			t.Fatalf("BarWidth(%v, %v, %d) = %d, want %d", tc.branch, tc.scale, tc.width, got, tc.want)
		}
	}
}

func TestNilTree(t *testing.T) {
	var tree *Tree
	if tree.Len() != 0 || tree.Terms() != nil || tree.Outline() != nil || tree.Name() != "" {
		t.Fatalf("nil tree should behave as empty")
	}
}
