// Package analysis declares the analysis kinds arbor can run remotely.
//
// Each kind is a data declaration (Spec): the parameters a user must pick, the
// constant inputs sent with every run, and the artifacts the remote task
// writes. Adding a kind means adding a Spec, either to Builtins or to a JSONC
// catalog file loaded with LoadCatalog; no control flow changes.
//
// The package also owns the job status vocabulary (JobStatus) and the
// results folder naming scheme shared by the orchestrator and the UI.
package analysis
