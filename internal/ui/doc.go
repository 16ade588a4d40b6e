// Package ui implements arbor's terminal interface with Bubble Tea.
//
// # Overview
//
// The UI is a thin layer over the session: it never talks to Girder directly.
// A tick re-reads state.Store snapshots, and key presses call the Controller
// (normally *app.Session), which mutates the store and starts background work.
//
// # Views
//
//   - Tree: indented outline of the selected tree, branch bars scaled by +/-
//   - Table: column picker with numeric summaries, analysis picker, row preview
//   - Results: status, failure and artifacts of the selected analysis
//   - Log: tail of the session log filtered by the configured level
//
// Tree, Table and Results mirror the store's active tab, so selecting an input
// or starting a run switches views the same way for every front end. Log is
// local to the UI.
//
// # Components
//
//   - app.go: Model, Update loop, messages and commands
//   - keys.go, help.go: key bindings and the help overlay
//   - prompt.go: item id / path prompt for t and b
//   - render.go, tree.go, table.go, results.go, logs.go: views
//   - theme.go: color palettes and lipgloss styles
package ui
