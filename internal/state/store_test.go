package state

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arborworkflows/arbor-apps/internal/analysis"
	"github.com/arborworkflows/arbor-apps/internal/phylo"
	"github.com/arborworkflows/arbor-apps/internal/tabular"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	c, err := analysis.NewCatalog()
	if err != nil {
		t.Fatalf("NewCatalog returned error: %v", err)
	}
	return NewStore(c)
}

func mustTable(t *testing.T, content string) *tabular.Table {
	t.Helper()
	tbl, err := tabular.ParseString(content)
	if err != nil {
		t.Fatalf("ParseString returned error: %v", err)
	}
	return tbl
}

func TestNewStore_Defaults(t *testing.T) {
	snap := newTestStore(t).Snapshot()
	if snap.TreeScale != 1 || snap.ActiveTab != TabTree {
		t.Fatalf("defaults = scale %v tab %q", snap.TreeScale, snap.ActiveTab)
	}
	if len(snap.Slots) != 4 {
		t.Fatalf("slots = %d, want 4", len(snap.Slots))
	}
	for k, slot := range snap.Slots {
		if slot.Processing || slot.HasStatus || len(slot.Params) != 0 || slot.Results != nil {
			t.Fatalf("slot %q not empty: %#v", k, slot)
		}
	}
}

func TestSelect_ResetsEverySlot(t *testing.T) {
	selects := map[string]func(*Store){
		"tree":  func(s *Store) { s.SelectTree(ResourceRef{ID: "t2", Name: "b.phy"}) },
		"table": func(s *Store) { s.SelectTable(ResourceRef{ID: "c2", Name: "b.csv"}) },
	}
	for name, sel := range selects {
		t.Run(name, func(t *testing.T) {
			s := newTestStore(t)
			s.SelectTree(ResourceRef{ID: "t1", Name: "a.phy"})
			s.SelectTable(ResourceRef{ID: "c1", Name: "a.csv"})

			req, ok, err := s.SetParam(analysis.PhylogeneticSignal, "column", "SVL")
			if err != nil || !ok {
				t.Fatalf("SetParam = %v %v, want run", ok, err)
			}
			s.RunStatus(analysis.PhylogeneticSignal, req.Generation, analysis.StatusRunning)
			if _, _, err := s.SetParam(analysis.PGLS, "model", "BM"); err != nil {
				t.Fatalf("SetParam returned error: %v", err)
			}

			before := s.Snapshot()
			sel(s)
			after := s.Snapshot()

			for _, k := range after.Kinds {
				slot := after.Slots[k]
				want := Slot{Params: analysis.Params{}, Generation: before.Slots[k].Generation + 1}
				if diff := cmp.Diff(want, slot); diff != "" {
					t.Fatalf("slot %q not reset (-want +got):\n%s", k, diff)
				}
			}
			if s.RunSucceeded(analysis.PhylogeneticSignal, req.Generation, analysis.Results{}) {
				t.Fatalf("stale run completion was accepted")
			}
		})
	}
}

func TestSelect_SetsTabAndLoading(t *testing.T) {
	s := newTestStore(t)
	s.SetActiveTab(TabResult)
	gen := s.SelectTable(ResourceRef{ID: "c1"})
	snap := s.Snapshot()
	if snap.ActiveTab != TabTable || !snap.Table.Loading {
		t.Fatalf("after SelectTable tab=%q loading=%v", snap.ActiveTab, snap.Table.Loading)
	}
	tbl := mustTable(t, "species,SVL\na,1\n")
	if !s.TableLoaded(gen, tbl) {
		t.Fatalf("TableLoaded rejected current generation")
	}
	snap = s.Snapshot()
	if snap.Table.Loading || snap.TableData != tbl {
		t.Fatalf("table not stored: %#v", snap.Table)
	}
	if diff := cmp.Diff([]string{"species", "SVL"}, snap.Columns()); diff != "" {
		t.Fatalf("Columns mismatch (-want +got):\n%s", diff)
	}

	s.SelectTree(ResourceRef{ID: "t1"})
	if got := s.Snapshot().ActiveTab; got != TabTree {
		t.Fatalf("after SelectTree tab=%q, want tree", got)
	}
}

func TestLoads_SupersededGenerationIgnored(t *testing.T) {
	s := newTestStore(t)
	first := s.SelectTable(ResourceRef{ID: "c1"})
	second := s.SelectTable(ResourceRef{ID: "c2"})

	if s.TableLoaded(first, mustTable(t, "old\n1\n")) {
		t.Fatalf("superseded load accepted")
	}
	if s.TableFailed(first, Failure{Kind: ParseFailure}) {
		t.Fatalf("superseded failure accepted")
	}
	if !s.Snapshot().Table.Loading {
		t.Fatalf("loading cleared by superseded load")
	}

	if !s.TableFailed(second, Failure{Kind: ResourceLookupFailure, Message: "404"}) {
		t.Fatalf("current failure rejected")
	}
	snap := s.Snapshot()
	if snap.Table.Loading || snap.Table.Failure.Kind != ResourceLookupFailure {
		t.Fatalf("table = %#v, want failure recorded", snap.Table)
	}
}

func TestTreeFailed_KeepsPreviousData(t *testing.T) {
	s := newTestStore(t)
	gen := s.SelectTree(ResourceRef{ID: "t1"})
	tree, err := phylo.ParseString("((a:1,b:1):1,c:2);", "t1")
	if err != nil {
		t.Fatalf("ParseString returned error: %v", err)
	}
	s.TreeLoaded(gen, tree)
	gen = s.SelectTree(ResourceRef{ID: "t2"})
	s.TreeFailed(gen, Failure{Kind: ParseFailure, Message: "bad newick"})
	snap := s.Snapshot()
	if snap.Tree.Failure.String() != "parse failed: bad newick" {
		t.Fatalf("failure = %q", snap.Tree.Failure.String())
	}
	if snap.TreeData != tree {
		t.Fatalf("previous tree data dropped on failure")
	}
	if snap.Tree.Ref.ID != "t2" {
		t.Fatalf("ref = %#v, want t2", snap.Tree.Ref)
	}
}

func TestTableLoaded_ClearsUnknownColumns(t *testing.T) {
	s := newTestStore(t)
	s.SelectTree(ResourceRef{ID: "t1"})
	gen := s.SelectTable(ResourceRef{ID: "c1"})
	if _, _, err := s.SetParam(analysis.PGLS, "x", "SVL"); err != nil {
		t.Fatalf("SetParam returned error: %v", err)
	}
	if _, _, err := s.SetParam(analysis.PGLS, "y", "tail"); err != nil {
		t.Fatalf("SetParam returned error: %v", err)
	}
	if _, _, err := s.SetParam(analysis.PGLS, "model", "OU"); err != nil {
		t.Fatalf("SetParam returned error: %v", err)
	}
	s.TableLoaded(gen, mustTable(t, "species,SVL\na,1\n"))

	got := s.Snapshot().Slot(analysis.PGLS).Params
	want := analysis.Params{"x": "SVL", "model": "OU"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("params mismatch (-want +got):\n%s", diff)
	}
}

// Readiness must hold exactly when both inputs are selected and every
// declared parameter is set, regardless of the order the steps happen in.
func TestSetParam_TriggersOnlyWhenReady(t *testing.T) {
	c, _ := analysis.NewCatalog()
	for _, spec := range c.Specs() {
		steps := []string{"tree", "table"}
		for _, p := range spec.Params {
			steps = append(steps, "param:"+p.Name)
		}
		for _, order := range permutations(steps) {
			t.Run(fmt.Sprintf("%s/%v", spec.Kind, order), func(t *testing.T) {
				s := NewStore(c)
				runs := 0
				for i, step := range order {
					var ok bool
					switch step {
					case "tree":
						s.SelectTree(ResourceRef{ID: "t"})
					case "table":
						s.SelectTable(ResourceRef{ID: "c"})
					default:
						name := step[len("param:"):]
						value := "v"
						if p, _ := spec.Param(name); len(p.Choices) > 0 {
							value = p.Choices[0]
						}
						var err error
						_, ok, err = s.SetParam(spec.Kind, name, value)
						if err != nil {
							t.Fatalf("SetParam returned error: %v", err)
						}
					}
					if ok {
						runs++
					}
					last := i == len(order)-1
					if ok != (last && s.Ready(spec.Kind)) {
						t.Fatalf("step %d (%s): ok=%v ready=%v", i, step, ok, s.Ready(spec.Kind))
					}
				}
				// Selecting an input resets params, so only orders that select
				// both inputs first can ever become ready.
				wantRuns := 0
				if isInputsFirst(order) {
					wantRuns = 1
				}
				if runs != wantRuns {
					t.Fatalf("runs = %d, want %d", runs, wantRuns)
				}
			})
		}
	}
}

func isInputsFirst(order []string) bool {
	return (order[0] == "tree" || order[0] == "table") && (order[1] == "tree" || order[1] == "table")
}

func permutations(items []string) [][]string {
	if len(items) <= 1 {
		return [][]string{append([]string(nil), items...)}
	}
	var out [][]string
	for i := range items {
		rest := make([]string, 0, len(items)-1)
		rest = append(rest, items[:i]...)
		rest = append(rest, items[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]string{items[i]}, p...))
		}
	}
	return out
}

func TestSetParam_BeginsRunWithSnapshot(t *testing.T) {
	s := newTestStore(t)
	s.SelectTree(ResourceRef{ID: "t1", Name: "a.phy"})
	s.SelectTable(ResourceRef{ID: "c1", Name: "a.csv"})
	s.SetParam(analysis.PGLS, "x", "SVL")
	s.SetParam(analysis.PGLS, "y", "PCI")
	req, ok, err := s.SetParam(analysis.PGLS, "model", "BM")
	if err != nil || !ok {
		t.Fatalf("SetParam = %v %v, want run", ok, err)
	}
	want := RunRequest{
		Kind:       analysis.PGLS,
		Generation: req.Generation,
		Tree:       ResourceRef{ID: "t1", Name: "a.phy"},
		Table:      ResourceRef{ID: "c1", Name: "a.csv"},
		Params:     analysis.Params{"x": "SVL", "y": "PCI", "model": "BM"},
	}
	if diff := cmp.Diff(want, req); diff != "" {
		t.Fatalf("request mismatch (-want +got):\n%s", diff)
	}
	snap := s.Snapshot()
	if !snap.Slot(analysis.PGLS).Processing || snap.ActiveTab != TabResult {
		t.Fatalf("slot processing=%v tab=%q", snap.Slot(analysis.PGLS).Processing, snap.ActiveTab)
	}

	// The request owns its params.
	req.Params["x"] = "changed"
	if got := s.Snapshot().Slot(analysis.PGLS).Params["x"]; got != "SVL" {
		t.Fatalf("store params mutated through request: %q", got)
	}
}

func TestSetParam_SameValueStartsNewRun(t *testing.T) {
	s := newTestStore(t)
	s.SelectTree(ResourceRef{ID: "t1"})
	s.SelectTable(ResourceRef{ID: "c1"})
	first, ok, _ := s.SetParam(analysis.PhylogeneticSignal, "column", "SVL")
	if !ok {
		t.Fatalf("first SetParam did not run")
	}
	second, ok, _ := s.SetParam(analysis.PhylogeneticSignal, "column", "SVL")
	if !ok || second.Generation != first.Generation+1 {
		t.Fatalf("second SetParam ok=%v gen=%d, want new run", ok, second.Generation)
	}
	if s.RunSucceeded(analysis.PhylogeneticSignal, first.Generation, nil) {
		t.Fatalf("superseded run accepted")
	}
}

func TestSetParam_Rejects(t *testing.T) {
	s := newTestStore(t)
	if _, _, err := s.SetParam("nope", "column", "a"); err == nil {
		t.Fatalf("unknown kind accepted")
	}
	if _, _, err := s.SetParam(analysis.PhylogeneticSignal, "x", "a"); err == nil {
		t.Fatalf("unknown param accepted")
	}
	if _, _, err := s.SetParam(analysis.PGLS, "model", "EB"); err == nil {
		t.Fatalf("invalid model accepted")
	}
}

func TestRunLifecycle(t *testing.T) {
	s := newTestStore(t)
	s.SelectTree(ResourceRef{ID: "t1"})
	s.SelectTable(ResourceRef{ID: "c1"})
	req, _, _ := s.SetParam(analysis.PhylogeneticSignal, "column", "SVL")
	k := analysis.PhylogeneticSignal

	if !s.RunStatus(k, req.Generation, analysis.StatusQueued) {
		t.Fatalf("RunStatus rejected live run")
	}
	slot := s.Snapshot().Slot(k)
	if !slot.HasStatus || slot.Status != analysis.StatusQueued || !slot.Processing {
		t.Fatalf("slot = %#v", slot)
	}

	results := analysis.Results{"output": {Name: "output", Table: mustTable(t, "lambda\n1\n")}}
	if !s.RunSucceeded(k, req.Generation, results) {
		t.Fatalf("RunSucceeded rejected live run")
	}
	slot = s.Snapshot().Slot(k)
	if slot.Processing || slot.Results["output"].Table.Value(0, "lambda") != "1" {
		t.Fatalf("slot = %#v", slot)
	}

	again, ok := s.Rerun(k)
	if !ok {
		t.Fatalf("Rerun did not start")
	}
	if s.Snapshot().Slot(k).Results != nil {
		t.Fatalf("results kept across runs")
	}
	s.RunFailed(k, again.Generation, Failure{Kind: JobFailure, Message: "Error"})
	slot = s.Snapshot().Slot(k)
	if slot.Processing || slot.Failure.Kind != JobFailure {
		t.Fatalf("slot = %#v", slot)
	}
}

func TestRerun_NotReady(t *testing.T) {
	s := newTestStore(t)
	if _, ok := s.Rerun(analysis.PIC); ok {
		t.Fatalf("Rerun started without inputs")
	}
	if _, ok := s.Rerun("nope"); ok {
		t.Fatalf("Rerun started for unknown kind")
	}
}

func TestSetTreeScale_Clamps(t *testing.T) {
	s := newTestStore(t)
	for _, tc := range []struct{ in, want float64 }{{2, 2}, {0, MinTreeScale}, {100, MaxTreeScale}} {
		s.SetTreeScale(tc.in)
		if got := s.Snapshot().TreeScale; got != tc.want {
			t.Fatalf("SetTreeScale(%v) -> %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSnapshot_IsIndependent(t *testing.T) {
	s := newTestStore(t)
	s.SetParam(analysis.PhylogeneticSignal, "column", "SVL")
	snap := s.Snapshot()
	snap.Slots[analysis.PhylogeneticSignal].Params["column"] = "changed"
	snap.Kinds[0] = "changed"
	again := s.Snapshot()
	if again.Slot(analysis.PhylogeneticSignal).Params["column"] != "SVL" || again.Kinds[0] != analysis.PhylogeneticSignal {
		t.Fatalf("snapshot shares storage with store")
	}
}
