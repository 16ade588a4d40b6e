package state

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/arborworkflows/arbor-apps/internal/analysis"
	"github.com/arborworkflows/arbor-apps/internal/phylo"
	"github.com/arborworkflows/arbor-apps/internal/tabular"
)

// Tab names the view the UI shows in the main pane.
type Tab string

// Tabs driven by application events.
const (
	TabTree   Tab = "tree"
	TabTable  Tab = "table"
	TabResult Tab = "result"
)

// Tree display scale bounds.
const (
	MinTreeScale = 0.25
	MaxTreeScale = 8
)

// ResourceRef identifies an uploaded item. Name is the file name handed to
// remote tasks.
type ResourceRef struct {
	ID   string
	Name string
}

// Selected reports whether the reference points at an item.
func (r ResourceRef) Selected() bool {
	return strings.TrimSpace(r.ID) != ""
}

// FailureKind classifies why a load or run ended without data.
type FailureKind string

// Failure kinds shown to the user.
const (
	ResourceLookupFailure FailureKind = "resource lookup failed"
	TaskNotFound          FailureKind = "task not found"
	JobFailure            FailureKind = "job failed"
	ParseFailure          FailureKind = "parse failed"
	RequestFailure        FailureKind = "request failed"
)

// Failure records the last failure of a load or run. The zero value means none.
type Failure struct {
	Kind    FailureKind
	Message string
}

// Failed reports whether a failure is recorded.
func (f Failure) Failed() bool {
	return f.Kind != ""
}

func (f Failure) String() string {
	if !f.Failed() {
		return ""
	}
	if f.Message == "" {
		return string(f.Kind)
	}
	return string(f.Kind) + ": " + f.Message
}

// Input tracks one selected input and its background load.
type Input struct {
	Ref        ResourceRef
	Loading    bool
	Failure    Failure
	Generation uint64
}

// Slot is the per-kind analysis state.
type Slot struct {
	Params     analysis.Params
	Processing bool
	Status     analysis.JobStatus
	HasStatus  bool
	Failure    Failure
	Results    analysis.Results
	Generation uint64
}

// RunRequest is handed to the session when a slot becomes ready. Generation
// tags every completion so superseded runs can be dropped.
type RunRequest struct {
	Kind       analysis.Kind
	Generation uint64
	Tree       ResourceRef
	Table      ResourceRef
	Params     analysis.Params
}

// Snapshot represents the application state at one instant.
type Snapshot struct {
	Tree      Input
	Table     Input
	TreeData  *phylo.Tree
	TableData *tabular.Table
	TreeScale float64
	ActiveTab Tab
	Kinds     []analysis.Kind
	Slots     map[analysis.Kind]Slot
}

// Columns returns the loaded table's column names.
func (s Snapshot) Columns() []string {
	if s.TableData == nil {
		return nil
	}
	return s.TableData.Columns()
}

// Slot returns the slot for k.
func (s Snapshot) Slot(k analysis.Kind) Slot {
	return s.Slots[k]
}

// Store owns the application state. Mutations are short critical sections
// and never perform I/O.
type Store struct {
	mu      sync.RWMutex
	catalog *analysis.Catalog
	state   Snapshot
}

// NewStore returns a store with one empty slot per catalog kind.
func NewStore(catalog *analysis.Catalog) *Store {
	s := &Store{
		catalog: catalog,
		state: Snapshot{
			TreeScale: 1,
			ActiveTab: TabTree,
			Kinds:     catalog.Kinds(),
			Slots:     make(map[analysis.Kind]Slot),
		},
	}
	for _, k := range s.state.Kinds {
		s.state.Slots[k] = Slot{Params: analysis.Params{}}
	}
	return s
}

// Catalog returns the kinds the store was built with.
func (s *Store) Catalog() *analysis.Catalog {
	return s.catalog
}

// SelectTree records a new tree selection, resets every slot and marks the
// tree as loading. The returned generation tags the load.
func (s *Store) SelectTree(ref ResourceRef) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	gen := s.selectInput(&s.state.Tree, ref)
	s.state.ActiveTab = TabTree
	return gen
}

// TreeLoaded stores parsed tree data unless the load was superseded.
func (s *Store) TreeLoaded(gen uint64, tree *phylo.Tree) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Tree.Generation != gen {
		return false
	}
	s.state.Tree.Loading = false
	s.state.TreeData = tree
	return true
}

// TreeFailed records a failed tree load. Previous tree data is kept.
func (s *Store) TreeFailed(gen uint64, failure Failure) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Tree.Generation != gen {
		return false
	}
	s.state.Tree.Loading = false
	s.state.Tree.Failure = failure
	return true
}

// SelectTable records a new table selection, resets every slot and marks the
// table as loading. The returned generation tags the load.
func (s *Store) SelectTable(ref ResourceRef) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	gen := s.selectInput(&s.state.Table, ref)
	s.state.ActiveTab = TabTable
	return gen
}

// TableLoaded stores parsed table data unless the load was superseded.
// Column parameters naming a column the table lacks are cleared.
func (s *Store) TableLoaded(gen uint64, table *tabular.Table) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Table.Generation != gen {
		return false
	}
	s.state.Table.Loading = false
	s.state.TableData = table
	for _, k := range s.state.Kinds {
		spec, _ := s.catalog.Spec(k)
		slot := s.state.Slots[k]
		for _, p := range spec.Params {
			v, ok := slot.Params[p.Name]
			if ok && len(p.Choices) == 0 && !table.HasColumn(v) {
				delete(slot.Params, p.Name)
			}
		}
	}
	return true
}

// TableFailed records a failed table load. Previous table data is kept.
func (s *Store) TableFailed(gen uint64, failure Failure) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Table.Generation != gen {
		return false
	}
	s.state.Table.Loading = false
	s.state.Table.Failure = failure
	return true
}

func (s *Store) selectInput(in *Input, ref ResourceRef) uint64 {
	in.Ref = ref
	in.Loading = true
	in.Failure = Failure{}
	in.Generation++
	for _, k := range s.state.Kinds {
		s.state.Slots[k] = Slot{
			Params:     analysis.Params{},
			Generation: s.state.Slots[k].Generation + 1,
		}
	}
	return in.Generation
}

// SetParam stores a parameter value. When the slot becomes ready a run is
// begun and its request returned with ok set.
func (s *Store) SetParam(k analysis.Kind, name, value string) (req RunRequest, ok bool, err error) {
	spec, found := s.catalog.Spec(k)
	if !found {
		return RunRequest{}, false, fmt.Errorf("unknown analysis kind %q", k)
	}
	p, found := spec.Param(name)
	if !found {
		return RunRequest{}, false, fmt.Errorf("%s has no parameter %q", spec.DisplayName, name)
	}
	if len(p.Choices) > 0 && !slices.Contains(p.Choices, value) {
		return RunRequest{}, false, fmt.Errorf("%s %s must be one of %s", spec.DisplayName, p.DisplayLabel(), strings.Join(p.Choices, ", "))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	slot := s.state.Slots[k]
	slot.Params[name] = value
	s.state.Slots[k] = slot
	req, ok = s.beginRun(spec)
	return req, ok, nil
}

// Rerun begins a new run with the current parameters when the slot is ready.
func (s *Store) Rerun(k analysis.Kind) (RunRequest, bool) {
	spec, found := s.catalog.Spec(k)
	if !found {
		return RunRequest{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beginRun(spec)
}

// Ready reports whether both inputs are selected and every parameter of k is
// set.
func (s *Store) Ready(k analysis.Kind) bool {
	spec, found := s.catalog.Spec(k)
	if !found {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready(spec)
}

func (s *Store) ready(spec analysis.Spec) bool {
	return s.state.Tree.Ref.Selected() && s.state.Table.Ref.Selected() && spec.Ready(s.state.Slots[spec.Kind].Params)
}

func (s *Store) beginRun(spec analysis.Spec) (RunRequest, bool) {
	if !s.ready(spec) {
		return RunRequest{}, false
	}
	slot := s.state.Slots[spec.Kind]
	slot.Generation++
	slot.Processing = true
	slot.HasStatus = false
	slot.Status = 0
	slot.Failure = Failure{}
	slot.Results = nil
	s.state.Slots[spec.Kind] = slot
	s.state.ActiveTab = TabResult
	return RunRequest{
		Kind:       spec.Kind,
		Generation: slot.Generation,
		Tree:       s.state.Tree.Ref,
		Table:      s.state.Table.Ref,
		Params:     slot.Params.Clone(),
	}, true
}

// RunStatus records a polled job status for the run tagged gen.
func (s *Store) RunStatus(k analysis.Kind, gen uint64, status analysis.JobStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.live(k, gen)
	if !ok {
		return false
	}
	slot.Status = status
	slot.HasStatus = true
	s.state.Slots[k] = slot
	return true
}

// RunSucceeded stores the results of the run tagged gen.
func (s *Store) RunSucceeded(k analysis.Kind, gen uint64, results analysis.Results) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.live(k, gen)
	if !ok {
		return false
	}
	slot.Processing = false
	slot.Results = results.Clone()
	s.state.Slots[k] = slot
	return true
}

// RunFailed records the failure of the run tagged gen.
func (s *Store) RunFailed(k analysis.Kind, gen uint64, failure Failure) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.live(k, gen)
	if !ok {
		return false
	}
	slot.Processing = false
	slot.Failure = failure
	s.state.Slots[k] = slot
	return true
}

func (s *Store) live(k analysis.Kind, gen uint64) (Slot, bool) {
	slot, ok := s.state.Slots[k]
	if !ok || slot.Generation != gen {
		return Slot{}, false
	}
	return slot, true
}

// SetTreeScale sets the tree display scale, clamped to the supported range.
func (s *Store) SetTreeScale(scale float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.TreeScale = min(max(scale, MinTreeScale), MaxTreeScale)
}

// SetActiveTab switches the main view.
func (s *Store) SetActiveTab(tab Tab) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ActiveTab = tab
}

// Snapshot returns a deep copy of the current state. Parsed trees and tables
// are immutable and shared.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.state
	snap.Kinds = slices.Clone(s.state.Kinds)
	snap.Slots = make(map[analysis.Kind]Slot, len(s.state.Slots))
	for k, slot := range s.state.Slots {
		slot.Params = slot.Params.Clone()
		slot.Results = slot.Results.Clone()
		snap.Slots[k] = slot
	}
	return snap
}
