// Package girder provides an HTTP client for the Girder REST API.
//
// # Overview
//
// Arbor stores trees, tables and analysis results on a Girder server and runs
// analyses as Girder item tasks. This package covers the small slice of the API
// the analysis core needs: users, path lookup, folders, item search, item task
// execution, jobs, files and downloads.
//
// The package is split into two files:
//
//   - client.go: HTTP client implementation and request/response handling
//   - types.go: Data structures mirroring Girder documents
//
// # Client Usage
//
//	client, err := girder.NewClient("http://localhost:8080/api/v1", token)
//	if err != nil {
//		return err
//	}
//	user, err := client.CurrentUser(ctx)
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation and timeout control
//   - Set Accept: application/json and User-Agent: arbor/0.1
//   - Send the session token in the Girder-Token header when one is configured
//   - Return wrapped errors with context about what failed
//
// Item task executions are submitted as application/x-www-form-urlencoded
// bodies whose inputs and outputs fields hold JSON-encoded Binding maps.
//
// # Error Handling
//
// Non-2xx responses become *APIError values carrying the path, status code and
// Girder's message. A 404 unwraps to ErrNotFound, and LookupResource maps
// Girder's 400 "path not found" answer onto ErrNotFound as well, so callers can
// use errors.Is(err, girder.ErrNotFound) uniformly.
//
// # Testing Considerations
//
// The girdertest subpackage runs an httptest.Server that implements the
// endpoints used here with scripted job status sequences.
package girder
