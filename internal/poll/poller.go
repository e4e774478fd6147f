// Package poll drives periodic status queries for one active task.
package poll

import (
	"context"
	"sync"
	"time"

	"github.com/fentz26/playlistdl/internal/remote"
	"go.uber.org/zap"
)

// DefaultInterval is the delay between status queries.
const DefaultInterval = 2 * time.Second

// Querier fetches the status of a task. *remote.Client implements it.
type Querier interface {
	Status(ctx context.Context, taskID string) (*remote.StatusResponse, error)
}

// TickFunc receives each decoded status. gen identifies the run that produced it.
type TickFunc func(gen uint64, status remote.StatusResponse)

// FatalFunc receives the error that stopped a run.
type FatalFunc func(gen uint64, err error)

// Poller queries one task at a fixed interval.
//
// Ticks never overlap: the next timer is armed only after the current query has
// returned. Every Start begins a new generation, and results belonging to a stopped
// generation are dropped instead of being delivered.
type Poller struct {
	querier  Querier
	interval time.Duration
	logger   *zap.Logger

	mu   sync.Mutex
	gen  uint64
	stop chan struct{}
}

// New creates a poller. A non-positive interval means DefaultInterval.
func New(q Querier, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		querier:  q,
		interval: interval,
		logger:   logger,
	}
}

// Start begins polling taskID and returns the generation of the new run. Any
// previous run is stopped first. Cancelling ctx ends the run, aborts its in-flight
// query and reports ctx.Err to onFatal.
func (p *Poller) Start(ctx context.Context, taskID string, onTick TickFunc, onFatal FatalFunc) uint64 {
	p.mu.Lock()
	p.stopLocked()
	p.gen++
	gen := p.gen
	stop := make(chan struct{})
	p.stop = stop
	p.mu.Unlock()

	p.logger.Debug("polling started", zap.String("task_id", taskID), zap.Uint64("gen", gen))
	go p.run(ctx, gen, stop, taskID, onTick, onFatal)
	return gen
}

// Stop cancels the next scheduled tick. A query already in flight is not aborted but
// its result is discarded. Safe to call repeatedly or before Start.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.stopLocked()
	p.mu.Unlock()
}

// Running reports whether a run is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil
}

// Current reports whether gen is the live run.
func (p *Poller) Current(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil && p.gen == gen
}

func (p *Poller) stopLocked() {
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
}

// finish ends run gen if it is still the live one. It reports false when the run
// had already been stopped from outside.
func (p *Poller) finish(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen != gen || p.stop == nil {
		return false
	}
	p.stopLocked()
	return true
}

// cancelled ends run gen after its context is done and reports the context error
// unless the run was already stopped.
func (p *Poller) cancelled(ctx context.Context, gen uint64, taskID string, onFatal FatalFunc) {
	if p.finish(gen) {
		p.logger.Debug("polling cancelled", zap.String("task_id", taskID), zap.Error(ctx.Err()))
		onFatal(gen, ctx.Err())
	}
}

func (p *Poller) run(ctx context.Context, gen uint64, stop <-chan struct{}, taskID string, onTick TickFunc, onFatal FatalFunc) {
	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.cancelled(ctx, gen, taskID, onFatal)
			return
		case <-stop:
			return
		case <-timer.C:
		}

		status, err := p.querier.Status(ctx, taskID)

		// Stopped while the query was in flight.
		if !p.Current(gen) {
			p.logger.Debug("dropping stale poll result", zap.String("task_id", taskID), zap.Uint64("gen", gen))
			return
		}

		if err != nil {
			if ctx.Err() != nil {
				p.cancelled(ctx, gen, taskID, onFatal)
				return
			}
			if p.finish(gen) {
				p.logger.Warn("status query failed", zap.String("task_id", taskID), zap.Error(err))
				onFatal(gen, err)
			}
			return
		}

		if status.Terminal() {
			if p.finish(gen) {
				onTick(gen, *status)
			}
			return
		}

		onTick(gen, *status)
		timer.Reset(p.interval)
	}
}
