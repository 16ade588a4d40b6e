// Package state holds the application state shared by the session and the UI.
//
// # Overview
//
// The Store keeps the selected tree and table, their parsed data, the tree
// display scale, the active tab and one analysis Slot per catalog kind. All
// changes go through named mutations (SelectTree, SetParam, RunSucceeded, ...)
// that run under a sync.RWMutex and never perform network I/O. Readers take
// Snapshot copies.
//
// # Generations
//
// Background work is tagged with a generation number when it starts:
//
//	SelectTree / SelectTable  → Input.Generation (tags the load)
//	SetParam / Rerun          → Slot.Generation  (tags the run)
//
// Completion mutations carry the generation back and are ignored when it no
// longer matches. Selecting a new tree or table resets every slot and advances
// its generation, so results of runs started against the old inputs are
// dropped even if they arrive later.
//
// # Readiness
//
// A slot is ready when both inputs are selected and every parameter its kind
// declares has a non-blank value. SetParam and Rerun begin a run whenever the
// slot is ready; there is no comparison with the previous value.
package state
