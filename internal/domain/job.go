package domain

import "time"

// JobState represents the lifecycle of an analysis job.
// Values include JobStatePending, JobStateRunning, JobStateSucceeded, and JobStateFailed.
type JobState string

const (
	JobStatePending   JobState = "pending"
	JobStateRunning   JobState = "running"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
)

// IsTerminal reports whether no further transitions can happen.
func (s JobState) IsTerminal() bool {
	return s == JobStateSucceeded || s == JobStateFailed
}

// Job is the unit of work handed to the queue. It is serialized as the task payload.
type Job struct {
	ID        string    `json:"id"`
	FilePath  string    `json:"file_path"`
	Query     string    `json:"query"`
	Filename  string    `json:"filename,omitempty"`
	ObjectKey string    `json:"object_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// JobStatus is the polling view of a job.
// Raw carries the backend's own label for states that have no JobState equivalent
// (scheduled, retry, aggregating); State is then empty.
type JobStatus struct {
	ID     string   `json:"id"`
	State  JobState `json:"state,omitempty"`
	Raw    string   `json:"raw,omitempty"`
	Result string   `json:"result,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// Label returns the wire status string.
func (s JobStatus) Label() string {
	switch s.State {
	case JobStateSucceeded:
		return "completed"
	case "":
		if s.Raw != "" {
			return s.Raw
		}
		return string(JobStatePending)
	default:
		return string(s.State)
	}
}
