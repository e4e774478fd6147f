// Package models defines the records kept by the conversion service.
package models

import "time"

// JobStatus is the server-side state of a conversion job.
type JobStatus string

const (
	JobStatusPending     JobStatus = "pending"
	JobStatusDownloading JobStatus = "downloading"
	JobStatusProcessing  JobStatus = "processing"
	JobStatusCompleted   JobStatus = "completed"
	JobStatusError       JobStatus = "error"
)

// Active reports whether the job still has work ahead of it.
func (s JobStatus) Active() bool {
	return s == JobStatusPending || s == JobStatusDownloading || s == JobStatusProcessing
}

// Job is one playlist conversion request.
type Job struct {
	ID         string    `json:"task_id"`
	URL        string    `json:"url"`
	Format     string    `json:"format"`
	Status     JobStatus `json:"status"`
	Progress   int       `json:"progress"`
	Message    string    `json:"message"`
	Error      string    `json:"error,omitempty"`
	Code       string    `json:"code,omitempty"`
	OutputFile string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Event is an audit record of a state-changing action.
type Event struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	JobID      string    `json:"job_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
