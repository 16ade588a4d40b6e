// Package orchestrate runs one analysis job end to end against Girder:
// results folder, task discovery, submission, status polling and output
// retrieval. It holds no application state; callers own retries, superseding
// and where the results end up.
package orchestrate
