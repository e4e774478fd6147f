// Package lifecycle is the client-side state machine for one conversion task:
// validation, submission, polling and terminal resolution.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fentz26/playlistdl/internal/hints"
	"github.com/fentz26/playlistdl/internal/notify"
	"github.com/fentz26/playlistdl/internal/poll"
	"github.com/fentz26/playlistdl/internal/remote"
	"github.com/fentz26/playlistdl/internal/validate"
	"go.uber.org/zap"
)

// ErrNotCompleted is returned by Retrieve outside the completed state.
var ErrNotCompleted = errors.New("task is not completed")

// User-facing texts.
const (
	MsgEmptyURL       = "Please enter a playlist or track URL"
	MsgInvalidURL     = "Please enter a valid Spotify or YouTube URL"
	MsgInitializing   = "Initializing download..."
	MsgSubmitFailed   = "Failed to start download"
	MsgPollFailed     = "Failed to check download progress"
	MsgPollCancelled  = "Stopped checking download progress"
	MsgDownloadFailed = "Download failed"
)

// Submitter starts a remote job. *remote.Client implements it.
type Submitter interface {
	Submit(ctx context.Context, url, format string) (*remote.SubmitResponse, error)
}

// Poller drives status queries. *poll.Poller implements it.
type Poller interface {
	Start(ctx context.Context, taskID string, onTick poll.TickFunc, onFatal poll.FatalFunc) uint64
	Stop()
}

// Retriever saves the artifact of a task. *retrieve.Retriever implements it.
type Retriever interface {
	Retrieve(ctx context.Context, taskID, suggestedFilename string) (string, error)
}

// Observer receives a copy of the state after every change. Observers run
// synchronously and must not call back into the Controller.
type Observer func(Task, View)

// Controller owns the single active task and the state derived from it. All
// transitions happen under its lock; the poller and retriever only report back.
type Controller struct {
	submitter Submitter
	poller    Poller
	retriever Retriever
	notifier  notify.Notifier
	logger    *zap.Logger

	mu   sync.Mutex
	task Task
	view View
	// seq changes on every Submit and Reset. A submission reply carrying an old seq
	// is dropped.
	seq uint64
	// pollGen is the generation of the poll run that belongs to the current task.
	pollGen uint64

	publishMu sync.Mutex
	observers []Observer
}

// Config carries the collaborators of a Controller.
type Config struct {
	Submitter Submitter
	Poller    Poller
	Retriever Retriever
	Notifier  notify.Notifier
	Logger    *zap.Logger
}

// New creates a controller in the idle state.
func New(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		submitter: cfg.Submitter,
		poller:    cfg.Poller,
		retriever: cfg.Retriever,
		notifier:  cfg.Notifier,
		logger:    logger,
		task:      Task{Status: StatusIdle, Format: validate.DefaultFormat},
		view:      idleView(),
	}
}

// Subscribe registers fn for every future state change.
func (c *Controller) Subscribe(fn Observer) {
	c.publishMu.Lock()
	c.observers = append(c.observers, fn)
	c.publishMu.Unlock()
}

// Snapshot returns a copy of the current task and view.
func (c *Controller) Snapshot() (Task, View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.task, c.view
}

// SetInput gives live feedback while the URL is being edited. Empty input is not
// flagged.
func (c *Controller) SetInput(input string) {
	c.mu.Lock()
	invalid := !validate.Feedback(input)
	if c.view.InputInvalid == invalid && c.view.Validation == "" {
		c.mu.Unlock()
		return
	}
	c.view.InputInvalid = invalid
	c.view.Validation = ""
	c.view.FocusInput = false
	c.mu.Unlock()
	c.publish()
}

// Submit validates url and format and starts a remote job for them. Input that fails
// validation leaves the task untouched and yields a *ValidationError. A rejected or
// failed submission moves the task to error and returns the failure. ctx bounds both
// the submission request and the polling that follows it.
func (c *Controller) Submit(ctx context.Context, url, format string) error {
	url = strings.TrimSpace(url)
	format = validate.NormalizeFormat(format)

	if verr := check(url, format); verr != nil {
		c.mu.Lock()
		c.view.Validation = verr.Reason
		c.view.InputInvalid = true
		c.view.FocusInput = true
		c.mu.Unlock()
		c.logger.Debug("input rejected", zap.String("url", url), zap.String("reason", verr.Reason))
		c.publish()
		return verr
	}

	c.mu.Lock()
	c.poller.Stop()
	c.seq++
	seq := c.seq
	c.pollGen = 0
	c.task = Task{
		Status:   StatusSubmitted,
		Message:  MsgInitializing,
		URL:      url,
		Format:   format,
		Progress: 0,
	}
	c.view = View{
		Busy:     true,
		Section:  SectionProgress,
		Progress: 0,
		Message:  MsgInitializing,
	}
	c.mu.Unlock()
	c.publish()

	c.logger.Info("submitting", zap.String("url", url), zap.String("format", format))
	resp, err := c.submitter.Submit(ctx, url, format)

	c.mu.Lock()
	if c.seq != seq {
		c.mu.Unlock()
		c.logger.Debug("dropping stale submission reply", zap.Uint64("seq", seq))
		return nil
	}

	if err != nil {
		code, detail := describe(err, MsgSubmitFailed)
		c.failLocked(code, detail)
		c.mu.Unlock()
		c.logger.Warn("submission failed", zap.String("url", url), zap.Error(err))
		c.publish()
		return err
	}

	c.task.ID = resp.TaskID
	c.task.Status = StatusPolling
	c.task.Warning = resp.Warning
	taskID := resp.TaskID
	c.pollGen = c.poller.Start(ctx, taskID,
		func(gen uint64, st remote.StatusResponse) { c.handlePollResult(gen, taskID, st) },
		func(gen uint64, err error) { c.handlePollFailure(gen, taskID, err) },
	)
	c.mu.Unlock()

	c.logger.Info("task accepted", zap.String("task_id", taskID))
	if resp.Warning != "" && c.notifier != nil {
		c.notifier.Notify(resp.Warning, notify.SeverityWarning)
	}
	c.publish()
	return nil
}

// Reset returns to idle from any state. It stops polling and forgets the task; a
// reply still in flight is ignored when it arrives.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.poller.Stop()
	c.seq++
	c.pollGen = 0
	format := c.task.Format
	c.task = Task{Status: StatusIdle, Format: format}
	c.view = idleView()
	c.mu.Unlock()

	c.logger.Debug("reset")
	c.publish()
}

// Retrieve saves the artifact of the completed task and returns its path. Outside the
// completed state the retriever is called without a task id, so it reports the
// problem without reaching the service.
func (c *Controller) Retrieve(ctx context.Context) (string, error) {
	c.mu.Lock()
	task := c.task
	c.mu.Unlock()

	if task.Status != StatusCompleted {
		_, err := c.retriever.Retrieve(ctx, "", task.ArchiveName())
		return "", fmt.Errorf("%w: %w", ErrNotCompleted, err)
	}
	return c.retriever.Retrieve(ctx, task.ID, task.ArchiveName())
}

// handlePollResult applies one status reply. Replies for a stopped run or another
// task are dropped.
func (c *Controller) handlePollResult(gen uint64, taskID string, st remote.StatusResponse) {
	c.mu.Lock()
	if !c.currentLocked(gen, taskID) {
		c.mu.Unlock()
		c.logger.Debug("dropping stale status", zap.String("task_id", taskID), zap.Uint64("gen", gen))
		return
	}

	c.task.Progress = st.Progress
	c.task.Message = st.Message
	c.view.Progress = st.Progress
	c.view.Message = st.Message

	switch st.Status {
	case remote.StatusCompleted:
		c.task.Status = StatusCompleted
		c.view.Section = SectionSuccess
		c.view.Busy = false
		c.view.InputEnabled = true
		c.view.FocusInput = true
		c.logger.Info("task completed", zap.String("task_id", taskID))
	case remote.StatusError:
		detail := st.Error
		if detail == "" {
			detail = MsgDownloadFailed
		}
		c.failLocked(st.Code, detail)
		c.logger.Warn("task failed", zap.String("task_id", taskID), zap.String("error", detail))
	}
	c.mu.Unlock()
	c.publish()
}

// handlePollFailure ends the task after a status query could not be completed.
func (c *Controller) handlePollFailure(gen uint64, taskID string, err error) {
	c.mu.Lock()
	if !c.currentLocked(gen, taskID) {
		c.mu.Unlock()
		return
	}
	code, detail := describe(err, "")
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		detail = MsgPollCancelled
	case detail == "":
		detail = MsgPollFailed
	default:
		detail = MsgPollFailed + ": " + detail
	}
	c.failLocked(code, detail)
	c.mu.Unlock()

	c.logger.Warn("status query failed", zap.String("task_id", taskID), zap.Error(err))
	c.publish()
}

func (c *Controller) currentLocked(gen uint64, taskID string) bool {
	return c.task.Status == StatusPolling && c.pollGen == gen && c.task.ID == taskID
}

func (c *Controller) failLocked(code, detail string) {
	c.task.Status = StatusError
	c.task.ErrorDetail = detail
	c.view.Section = SectionError
	c.view.ErrorText = hints.Enhance(code, detail)
	c.view.Busy = false
	c.view.InputEnabled = true
	c.view.FocusInput = true
}

// publish hands the current state to every observer. Deliveries are serialized so
// observers see changes in order.
func (c *Controller) publish() {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	c.mu.Lock()
	task, view := c.task, c.view
	c.mu.Unlock()

	for _, fn := range c.observers {
		fn(task, view)
	}
}

func check(url, format string) *ValidationError {
	switch {
	case url == "":
		return &ValidationError{Input: url, Reason: MsgEmptyURL}
	case !validate.IsValidURL(url):
		return &ValidationError{Input: url, Reason: MsgInvalidURL}
	case !validate.IsValidFormat(format):
		return &ValidationError{Input: format, Reason: fmt.Sprintf("Unsupported format: %s", format)}
	}
	return nil
}

// describe extracts the structured code and the user-facing text of err.
func describe(err error, fallback string) (code, detail string) {
	var apiErr *remote.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message == "" {
			if fallback == "" {
				return apiErr.Code, apiErr.Error()
			}
			return apiErr.Code, fallback
		}
		return apiErr.Code, apiErr.Message
	}
	if err == nil {
		return "", fallback
	}
	return "", err.Error()
}
