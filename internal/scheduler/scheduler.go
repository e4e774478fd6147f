package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fentz26/playlistdl/internal/audit"
	"github.com/fentz26/playlistdl/internal/connectors"
	"github.com/fentz26/playlistdl/internal/models"
	"github.com/fentz26/playlistdl/internal/store"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"
)

// Messages stored on jobs the scheduler ends without the converter.
const (
	msgInterrupted = "Download interrupted by service shutdown"
	msgRestarted   = "Download interrupted by service restart"
)

// JobStore is the job persistence the scheduler drives. *store.Store implements it.
type JobStore interface {
	ClaimNextPending(message string) (*models.Job, error)
	UpdateProgress(id string, status models.JobStatus, progress int, message string) error
	CompleteJob(id, outputFile, message string) error
	FailJob(id, errText, code string) error
	FailInterrupted(reason string) (int, error)
	FinishedBefore(cutoff time.Time) ([]models.Job, error)
	DeleteJob(id string) error
}

// Scheduler dispatches pending jobs to workers.
type Scheduler struct {
	store     JobStore
	recorder  *audit.Recorder
	converter connectors.Converter
	config    *Config
	limiter   ratelimit.Limiter
	logger    *zap.Logger

	mu     sync.Mutex
	active int

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	now func() time.Time
}

// Stats is a snapshot of the worker pool.
type Stats struct {
	ActiveWorkers int `json:"active_workers"`
	MaxWorkers    int `json:"max_workers"`
}

// New creates a new scheduler.
func New(s JobStore, rec *audit.Recorder, conv connectors.Converter, cfg *Config, logger *zap.Logger) *Scheduler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.DispatchInterval <= 0 {
		cfg.DispatchInterval = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limiter := ratelimit.NewUnlimited()
	if cfg.StartsPerSecond > 0 {
		limiter = ratelimit.New(cfg.StartsPerSecond)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:     s,
		recorder:  rec,
		converter: conv,
		config:    cfg,
		limiter:   limiter,
		logger:    logger,
		wake:      make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
		now:       time.Now,
	}
}

// Start fails jobs a previous process left mid-pipeline, then begins dispatching.
func (sch *Scheduler) Start() error {
	n, err := sch.store.FailInterrupted(msgRestarted)
	if err != nil {
		return fmt.Errorf("fail interrupted jobs: %w", err)
	}
	if n > 0 {
		sch.logger.Warn("failed jobs interrupted by restart", zap.Int("count", n))
	}

	sch.wg.Add(1)
	go sch.dispatchLoop()

	if sch.config.CleanupInterval > 0 {
		sch.wg.Add(1)
		go sch.cleanupLoop()
	}

	sch.logger.Info("scheduler started",
		zap.Int("workers", sch.config.Workers),
		zap.String("converter", sch.converter.Name()),
	)
	return nil
}

// Stop cancels running conversions and waits for every worker to return.
func (sch *Scheduler) Stop() {
	sch.cancel()
	sch.wg.Wait()
	sch.logger.Info("scheduler stopped")
}

// Wake asks for an immediate dispatch, typically after a job was created.
func (sch *Scheduler) Wake() {
	select {
	case sch.wake <- struct{}{}:
	default:
	}
}

// Stats returns current worker pool statistics.
func (sch *Scheduler) Stats() Stats {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	return Stats{ActiveWorkers: sch.active, MaxWorkers: sch.config.Workers}
}

func (sch *Scheduler) dispatchLoop() {
	defer sch.wg.Done()

	ticker := time.NewTicker(sch.config.DispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sch.ctx.Done():
			return
		case <-ticker.C:
		case <-sch.wake:
		}
		sch.dispatch()
	}
}

// dispatch claims pending jobs until the pool is full or the queue is empty. Only
// the dispatch loop calls it.
func (sch *Scheduler) dispatch() {
	for {
		sch.mu.Lock()
		full := sch.active >= sch.config.Workers
		sch.mu.Unlock()
		if full || sch.ctx.Err() != nil {
			return
		}

		job, err := sch.store.ClaimNextPending(store.InitialMessage)
		if errors.Is(err, store.ErrNoPendingJob) {
			return
		}
		if err != nil {
			sch.logger.Error("claim pending job", zap.Error(err))
			return
		}

		sch.recorder.Record("job.dispatch", map[string]string{
			"job_id":    job.ID,
			"converter": sch.converter.Name(),
		}, "success", job.ID, "")
		sch.logger.Info("dispatched job", zap.String("job_id", job.ID), zap.String("url", job.URL))

		sch.mu.Lock()
		sch.active++
		sch.mu.Unlock()

		sch.wg.Add(1)
		go sch.runWorker(job)
	}
}

func (sch *Scheduler) runWorker(job *models.Job) {
	defer sch.wg.Done()
	defer func() {
		sch.mu.Lock()
		sch.active--
		sch.mu.Unlock()
		sch.Wake()
	}()

	sch.limiter.Take()

	report := func(step connectors.Step) {
		if err := sch.store.UpdateProgress(job.ID, step.Status, step.Progress, step.Message); err != nil {
			sch.logger.Error("update progress", zap.String("job_id", job.ID), zap.Error(err))
		}
	}

	res, err := sch.converter.Convert(sch.ctx, connectors.Request{
		JobID:  job.ID,
		URL:    job.URL,
		Format: job.Format,
	}, report)

	if err != nil {
		sch.fail(job, err)
		return
	}

	msg := fmt.Sprintf("Download completed! %d tracks downloaded.", res.Tracks)
	if err := sch.store.CompleteJob(job.ID, res.ArchivePath, msg); err != nil {
		sch.logger.Error("complete job", zap.String("job_id", job.ID), zap.Error(err))
		if rerr := os.Remove(res.ArchivePath); rerr != nil && !os.IsNotExist(rerr) {
			sch.logger.Warn("remove archive", zap.String("path", res.ArchivePath), zap.Error(rerr))
		}
		sch.fail(job, fmt.Errorf("record completion: %w", err))
		return
	}
	sch.recorder.Record("job.complete", map[string]interface{}{"job_id": job.ID, "tracks": res.Tracks}, "success", job.ID, res.ArchivePath)
	sch.logger.Info("job completed", zap.String("job_id", job.ID), zap.Int("tracks", res.Tracks))
}

func (sch *Scheduler) fail(job *models.Job, err error) {
	text, code := err.Error(), ""
	var failure *connectors.Failure
	switch {
	case errors.As(err, &failure):
		code = failure.Code
	case sch.ctx.Err() != nil:
		text = msgInterrupted
	}

	if serr := sch.store.FailJob(job.ID, text, code); serr != nil {
		sch.logger.Error("fail job", zap.String("job_id", job.ID), zap.Error(serr))
	}
	sch.recorder.Record("job.fail", map[string]string{"job_id": job.ID, "code": code}, "error", job.ID, text)
	sch.logger.Warn("job failed", zap.String("job_id", job.ID), zap.String("error", text), zap.String("code", code))
}

func (sch *Scheduler) cleanupLoop() {
	defer sch.wg.Done()

	sch.Cleanup()
	ticker := time.NewTicker(sch.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sch.ctx.Done():
			return
		case <-ticker.C:
			sch.Cleanup()
		}
	}
}

// Cleanup removes finished jobs older than CleanupAge along with their archives and
// returns how many were removed.
func (sch *Scheduler) Cleanup() int {
	cutoff := sch.now().Add(-sch.config.CleanupAge)
	jobs, err := sch.store.FinishedBefore(cutoff)
	if err != nil {
		sch.logger.Error("list finished jobs", zap.Error(err))
		return 0
	}

	removed := 0
	for _, job := range jobs {
		if job.OutputFile != "" {
			if err := os.Remove(job.OutputFile); err != nil && !os.IsNotExist(err) {
				sch.logger.Warn("remove archive", zap.String("path", job.OutputFile), zap.Error(err))
				continue
			}
		}
		if err := sch.store.DeleteJob(job.ID); err != nil {
			sch.logger.Error("delete job", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		removed++
		sch.logger.Info("cleaned up old job", zap.String("job_id", job.ID))
	}

	if removed > 0 {
		sch.recorder.Record("job.cleanup", map[string]interface{}{"cutoff": cutoff, "removed": removed}, "success", "", fmt.Sprintf("removed %d jobs", removed))
	}
	return removed
}
