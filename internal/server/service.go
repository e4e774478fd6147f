// Package server provides the HTTP API and service layer of the conversion service.
package server

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fentz26/playlistdl/internal/audit"
	"github.com/fentz26/playlistdl/internal/models"
	"github.com/fentz26/playlistdl/internal/remote"
	"github.com/fentz26/playlistdl/internal/scheduler"
	"github.com/fentz26/playlistdl/internal/store"
	"github.com/fentz26/playlistdl/internal/validate"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// SpotifyWarning is returned with Spotify submissions when no credentials are set.
const SpotifyWarning = "Spotify rate limiting may occur without proper authentication"

// Dispatcher runs queued jobs. *scheduler.Scheduler implements it.
type Dispatcher interface {
	Wake()
	Stats() scheduler.Stats
}

// Service provides the conversion service business logic.
type Service struct {
	store        *store.Store
	recorder     *audit.Recorder
	dispatcher   Dispatcher
	artifactsDir string
	spotifyAuth  bool
	started      time.Time
}

// Options configures a Service.
type Options struct {
	ArtifactsDir string
	SpotifyAuth  bool
}

// NewService creates a new service.
func NewService(s *store.Store, rec *audit.Recorder, d Dispatcher, opts Options) *Service {
	return &Service{
		store:        s,
		recorder:     rec,
		dispatcher:   d,
		artifactsDir: opts.ArtifactsDir,
		spotifyAuth:  opts.SpotifyAuth,
		started:      time.Now(),
	}
}

// --- Job Operations ---

// Submit validates a request and queues a job for it.
func (s *Service) Submit(url, format string) (*remote.SubmitResponse, error) {
	url = strings.TrimSpace(url)
	if format == "" {
		format = validate.DefaultFormat
	}
	format = strings.ToLower(format)

	if !validate.IsValidURL(url) {
		s.recorder.Record("job.submit", map[string]string{"url": url, "format": format}, "rejected", "", ErrInvalidURL.Error())
		return nil, ErrInvalidURL
	}
	if !validate.IsValidFormat(format) {
		s.recorder.Record("job.submit", map[string]string{"url": url, "format": format}, "rejected", "", ErrInvalidFormat.Error())
		return nil, ErrInvalidFormat
	}

	job, err := s.store.CreateJob(url, format)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.recorder.Record("job.submit", map[string]string{"url": url, "format": format}, "success", job.ID, "")
	s.dispatcher.Wake()

	resp := &remote.SubmitResponse{
		TaskID:  job.ID,
		Status:  "started",
		Message: "Download started successfully",
	}
	if validate.IsSpotify(url) && !s.spotifyAuth {
		resp.Warning = SpotifyWarning
	}
	return resp, nil
}

// Status returns the state of a job.
func (s *Service) Status(id string) (*remote.StatusResponse, error) {
	job, err := s.store.GetJob(id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	return &remote.StatusResponse{
		TaskID:    job.ID,
		Status:    string(job.Status),
		Progress:  job.Progress,
		Message:   job.Message,
		Error:     job.Error,
		Code:      job.Code,
		CreatedAt: job.CreatedAt.UTC().Format(time.RFC3339),
	}, nil
}

// Artifact returns a completed job and the path of its archive.
func (s *Service) Artifact(id string) (*models.Job, string, error) {
	job, err := s.store.GetJob(id)
	if err != nil {
		return nil, "", err
	}
	if job == nil {
		return nil, "", ErrJobNotFound
	}
	if job.Status != models.JobStatusCompleted {
		return nil, "", ErrNotCompleted
	}
	if job.OutputFile == "" {
		return nil, "", ErrArtifactMissing
	}
	if _, err := os.Stat(job.OutputFile); err != nil {
		return nil, "", ErrArtifactMissing
	}
	s.recorder.Record("job.fetch", map[string]string{"job_id": id}, "success", id, "")
	return job, job.OutputFile, nil
}

// --- Health & Metrics ---

// Health reports service liveness and the number of unfinished jobs.
func (s *Service) Health(ctx context.Context) (*remote.HealthResponse, error) {
	if err := s.store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("database unavailable: %w", err)
	}
	counts, err := s.store.CountByStatus()
	if err != nil {
		return nil, err
	}
	active := 0
	for status, n := range counts {
		if status.Active() {
			active += n
		}
	}
	return &remote.HealthResponse{
		Status:      "healthy",
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		ActiveTasks: active,
	}, nil
}

// Metrics is the body of GET /metrics.
type Metrics struct {
	ActiveDownloads    int                `json:"active_downloads"`
	PendingDownloads   int                `json:"pending_downloads"`
	CompletedDownloads int                `json:"completed_downloads"`
	FailedDownloads    int                `json:"failed_downloads"`
	TotalTasks         int                `json:"total_tasks"`
	Workers            scheduler.Stats    `json:"workers"`
	UptimeSeconds      int64              `json:"uptime_seconds"`
	MemoryUsageMB      float64            `json:"memory_usage_mb"`
	CPUPercent         float64            `json:"cpu_percent"`
	SystemMemoryPct    float64            `json:"system_memory_percent"`
	DiskUsageMB        map[string]float64 `json:"disk_usage"`
	Note               string             `json:"note,omitempty"`
}

// Metrics collects job counts and process statistics.
func (s *Service) Metrics(ctx context.Context) (*Metrics, error) {
	counts, err := s.store.CountByStatus()
	if err != nil {
		return nil, err
	}

	m := &Metrics{
		ActiveDownloads:    counts[models.JobStatusDownloading] + counts[models.JobStatusProcessing],
		PendingDownloads:   counts[models.JobStatusPending],
		CompletedDownloads: counts[models.JobStatusCompleted],
		FailedDownloads:    counts[models.JobStatusError],
		Workers:            s.dispatcher.Stats(),
		UptimeSeconds:      int64(time.Since(s.started).Seconds()),
		DiskUsageMB:        map[string]float64{"artifacts": dirSizeMB(s.artifactsDir)},
	}
	for _, n := range counts {
		m.TotalTasks += n
	}

	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		m.Note = "process statistics unavailable"
		return m, nil
	}
	if info, err := proc.MemoryInfoWithContext(ctx); err == nil {
		m.MemoryUsageMB = round2(float64(info.RSS) / 1024 / 1024)
	}
	if pct, err := proc.CPUPercentWithContext(ctx); err == nil {
		m.CPUPercent = round2(pct)
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		m.SystemMemoryPct = round2(vm.UsedPercent)
	}
	return m, nil
}

func dirSizeMB(dir string) float64 {
	if dir == "" {
		return 0
	}
	var total int64
	filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return round2(float64(total) / 1024 / 1024)
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
