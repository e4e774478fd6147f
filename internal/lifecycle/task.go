package lifecycle

import "fmt"

// Status is the client-side state of a task.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusSubmitted Status = "submitted"
	StatusPolling   Status = "polling"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Terminal reports whether no more polling happens in this state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Active reports whether a submission or its polling is under way.
func (s Status) Active() bool {
	return s == StatusSubmitted || s == StatusPolling
}

// Task is the record of one remote conversion job.
type Task struct {
	ID          string
	Status      Status
	Progress    int
	Message     string
	ErrorDetail string
	Warning     string
	URL         string
	Format      string
}

// ArchiveName is the file name a completed task is saved under.
func (t Task) ArchiveName() string {
	return fmt.Sprintf("playlist_%s.zip", t.Format)
}

// Section is the result area currently on display.
type Section string

const (
	SectionNone     Section = ""
	SectionProgress Section = "progress"
	SectionSuccess  Section = "success"
	SectionError    Section = "error"
)

// View is everything a surface needs to draw the current state.
type View struct {
	InputEnabled bool
	InputInvalid bool
	FocusInput   bool
	Busy         bool

	Section  Section
	Progress int
	Message  string

	// ErrorText is the failure detail with remediation hints appended.
	ErrorText string
	// Validation is the local message for a rejected URL or format.
	Validation string
}

func idleView() View {
	return View{InputEnabled: true, FocusInput: true}
}

// ValidationError is returned by Submit for input that never reaches the service.
type ValidationError struct {
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}
