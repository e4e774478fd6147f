// Package retrieve fetches the archive of a completed task and saves it locally.
package retrieve

import (
	"context"
	"errors"
	"fmt"

	"github.com/fentz26/playlistdl/internal/notify"
	"github.com/fentz26/playlistdl/internal/remote"
	"go.uber.org/zap"
)

// ErrNoTask is returned when there is no task id to retrieve.
var ErrNoTask = errors.New("No download available")

// SuccessText is shown once the archive has been written.
const SuccessText = "File downloaded successfully!"

const fallbackFilename = "playlist.zip"

// Fetcher downloads an artifact. *remote.Client implements it.
type Fetcher interface {
	Artifact(ctx context.Context, taskID string) (*remote.Artifact, error)
}

// Saver stores a payload under a suggested name and returns where it ended up.
type Saver interface {
	Save(name string, body []byte) (string, error)
}

// Retriever is a one-shot fetch-and-save. Every call goes to the network again.
type Retriever struct {
	fetcher  Fetcher
	saver    Saver
	notifier notify.Notifier
	logger   *zap.Logger
}

// New creates a retriever. notifier and logger may be nil.
func New(f Fetcher, s Saver, n notify.Notifier, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{fetcher: f, saver: s, notifier: n, logger: logger}
}

// Retrieve downloads the artifact of taskID and saves it as suggestedFilename, or
// under the name the service offers when suggestedFilename is empty. Failures are reported through the notifier as well as returned.
func (r *Retriever) Retrieve(ctx context.Context, taskID, suggestedFilename string) (string, error) {
	if taskID == "" {
		r.fail(ErrNoTask)
		return "", ErrNoTask
	}

	art, err := r.fetcher.Artifact(ctx, taskID)
	if err != nil {
		r.logger.Warn("artifact fetch failed", zap.String("task_id", taskID), zap.Error(err))
		r.fail(err)
		return "", err
	}

	name := suggestedFilename
	if name == "" {
		name = art.Filename
	}
	if name == "" {
		name = fallbackFilename
	}

	path, err := r.saver.Save(name, art.Body)
	if err != nil {
		err = fmt.Errorf("save artifact: %w", err)
		r.logger.Error("artifact save failed", zap.String("task_id", taskID), zap.Error(err))
		r.fail(err)
		return "", err
	}

	r.logger.Info("artifact saved", zap.String("task_id", taskID), zap.String("path", path), zap.Int("bytes", len(art.Body)))
	if r.notifier != nil {
		r.notifier.Notify(SuccessText, notify.SeveritySuccess)
	}
	return path, nil
}

func (r *Retriever) fail(err error) {
	if r.notifier != nil {
		r.notifier.Notify(err.Error(), notify.SeverityError)
	}
}
