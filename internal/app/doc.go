// Package app is the composition root of arbor and owns the asynchronous
// session that drives analyses.
//
// # Overview
//
// Run loads configuration, the analysis catalog and UI preferences, opens the
// log file, builds the Girder client and the job orchestrator, and hands a
// Session to the terminal UI. It blocks until the user quits or the context is
// cancelled.
//
// # Components
//
//   - app.go: Run, startup wiring and initial --tree/--table selection
//   - session.go: Session, the asynchronous action layer over state.Store
//
// # Session
//
// The store only mutates synchronously. Session adds the slow parts:
//
//	SelectTree / SelectTable
//	    store reset ──► cancel runs ──► goroutine: list files, download, parse
//	                                        └──► store.TreeLoaded / TableLoaded
//	SetParam / Rerun
//	    store run request ──► goroutine: orchestrator.Run
//	                              ├──► store.RunStatus on every poll
//	                              └──► store.RunSucceeded / RunFailed
//
// Every completion carries the generation it was started with, so a load or
// run overtaken by a newer one leaves the store untouched. Superseded work is
// also cancelled through its context to stop polling early.
//
// Failures are classified for display: a missing task, a non-success job
// status, an unparsable output and any other request error each map to their
// own state.FailureKind.
//
// # Thread Safety
//
// Session methods may be called from any goroutine. Wait blocks until all
// background work has finished; Close cancels it first.
package app
