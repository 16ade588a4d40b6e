package analysis

import "fmt"

// JobStatus is a remote job status code. Codes outside the named set are kept
// verbatim and treated as still running.
type JobStatus int

// Job status codes reported by the job service.
const (
	StatusInactive      JobStatus = 0
	StatusQueued        JobStatus = 1
	StatusRunning       JobStatus = 2
	StatusSuccess       JobStatus = 3
	StatusError         JobStatus = 4
	StatusCancelled     JobStatus = 5
	StatusPushingOutput JobStatus = 823
)

var statusNames = map[JobStatus]string{
	StatusInactive:      "Inactive",
	StatusQueued:        "Queued",
	StatusRunning:       "Running",
	StatusSuccess:       "Success",
	StatusError:         "Error",
	StatusCancelled:     "Cancelled",
	StatusPushingOutput: "Pushing output",
}

// String returns the status name, or "Status code N" for unknown codes.
func (s JobStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status code %d", int(s))
}

// Known reports whether the code is one of the named statuses.
func (s JobStatus) Known() bool {
	_, ok := statusNames[s]
	return ok
}

// Terminal reports whether polling should stop. Inactive is terminal because
// the job service marks it done; it is not a success.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusInactive, StatusSuccess, StatusError, StatusCancelled:
		return true
	default:
		return false
	}
}

// Succeeded reports whether the job finished with usable outputs.
func (s JobStatus) Succeeded() bool {
	return s == StatusSuccess
}
