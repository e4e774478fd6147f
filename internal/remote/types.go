package remote

import "fmt"

// Status values reported by the conversion service. Anything that is not terminal
// means the job is still running.
const (
	StatusCompleted = "completed"
	StatusError     = "error"
)

// SubmitRequest is the body of POST /download.
type SubmitRequest struct {
	URL    string `json:"url"`
	Format string `json:"format"`
}

// SubmitResponse is the success body of POST /download.
type SubmitResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// StatusResponse is the success body of GET /status/{task_id}.
type StatusResponse struct {
	TaskID    string `json:"task_id,omitempty"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	Message   string `json:"message"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Terminal reports whether no further polling is needed.
func (s StatusResponse) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusError
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	ActiveTasks int    `json:"active_tasks"`
}

// Artifact is a fetched result archive.
type Artifact struct {
	Filename    string
	ContentType string
	Body        []byte
}

// APIError is a non-2xx reply. Error() returns the server text verbatim so callers can
// show it to the user as-is.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("API error (%d)", e.StatusCode)
}
