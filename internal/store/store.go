// Package store provides SQLite-backed persistence for the conversion service.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fentz26/playlistdl/internal/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNoPendingJob is returned by ClaimNextPending when the queue is empty.
var ErrNoPendingJob = errors.New("no pending job")

// InitialMessage is the message of a freshly created job.
const InitialMessage = "Initializing download..."

// Store provides access to the job database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// WAL keeps status reads from blocking on worker writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		format TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		progress INTEGER NOT NULL DEFAULT 0,
		message TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		code TEXT NOT NULL DEFAULT '',
		output_file TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		outcome TEXT NOT NULL,
		job_id TEXT,
		details TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
	CREATE INDEX IF NOT EXISTS idx_events_job_id ON events(job_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

const jobColumns = `id, url, format, status, progress, message, error, code, output_file, created_at, updated_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row scanner) (*models.Job, error) {
	var job models.Job
	err := row.Scan(&job.ID, &job.URL, &job.Format, &job.Status, &job.Progress, &job.Message,
		&job.Error, &job.Code, &job.OutputFile, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// --- Job Operations ---

// CreateJob inserts a new pending job.
func (s *Store) CreateJob(url, format string) (*models.Job, error) {
	now := time.Now().UTC()
	job := &models.Job{
		ID:        uuid.New().String(),
		URL:       url,
		Format:    format,
		Status:    models.JobStatusPending,
		Message:   InitialMessage,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.Exec(
		`INSERT INTO jobs (id, url, format, status, progress, message, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.URL, job.Format, job.Status, job.Progress, job.Message, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// GetJob retrieves a job by ID. It returns nil, nil when there is no such job.
func (s *Store) GetJob(id string) (*models.Job, error) {
	job, err := scanJob(s.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query job: %w", err)
	}
	return job, nil
}

// ListJobs returns all jobs, newest first, optionally filtered by status.
func (s *Store) ListJobs(status models.JobStatus) ([]models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var args []interface{}

	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// ClaimNextPending moves the oldest pending job to downloading and returns it.
// The select and the update run in one transaction so two workers never get the
// same job.
func (s *Store) ClaimNextPending(message string) (*models.Job, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	job, err := scanJob(tx.QueryRow(
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY created_at ASC LIMIT 1`,
		models.JobStatusPending,
	))
	if err == sql.ErrNoRows {
		return nil, ErrNoPendingJob
	}
	if err != nil {
		return nil, fmt.Errorf("query pending job: %w", err)
	}

	now := time.Now().UTC()
	result, err := tx.Exec(
		`UPDATE jobs SET status = ?, message = ?, updated_at = ? WHERE id = ? AND status = ?`,
		models.JobStatusDownloading, message, now, job.ID, models.JobStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("update job status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrNoPendingJob
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	job.Status = models.JobStatusDownloading
	job.Message = message
	job.UpdatedAt = now
	return job, nil
}

// UpdateProgress records a non-terminal pipeline step.
func (s *Store) UpdateProgress(id string, status models.JobStatus, progress int, message string) error {
	_, err := s.db.Exec(
		`UPDATE jobs SET status = ?, progress = ?, message = ?, updated_at = ? WHERE id = ?`,
		status, progress, message, time.Now().UTC(), id,
	)
	return err
}

// CompleteJob marks a job completed with its archive path.
func (s *Store) CompleteJob(id, outputFile, message string) error {
	_, err := s.db.Exec(
		`UPDATE jobs SET status = ?, progress = 100, message = ?, output_file = ?, updated_at = ? WHERE id = ?`,
		models.JobStatusCompleted, message, outputFile, time.Now().UTC(), id,
	)
	return err
}

// FailJob marks a job failed. code is the structured error kind, possibly empty.
func (s *Store) FailJob(id, errText, code string) error {
	_, err := s.db.Exec(
		`UPDATE jobs SET status = ?, error = ?, code = ?, message = ?, updated_at = ? WHERE id = ?`,
		models.JobStatusError, errText, code, "Download failed: "+errText, time.Now().UTC(), id,
	)
	return err
}

// FailInterrupted fails every job left mid-pipeline by a previous process and returns
// how many there were.
func (s *Store) FailInterrupted(reason string) (int, error) {
	result, err := s.db.Exec(
		`UPDATE jobs SET status = ?, error = ?, message = ?, updated_at = ? WHERE status IN (?, ?)`,
		models.JobStatusError, reason, "Download failed: "+reason, time.Now().UTC(),
		models.JobStatusDownloading, models.JobStatusProcessing,
	)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// CountByStatus returns the number of jobs per status.
func (s *Store) CountByStatus() (map[models.JobStatus]int, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.JobStatus]int)
	for rows.Next() {
		var status models.JobStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// FinishedBefore returns the terminal jobs last updated before cutoff.
func (s *Store) FinishedBefore(cutoff time.Time) ([]models.Job, error) {
	rows, err := s.db.Query(
		`SELECT `+jobColumns+` FROM jobs WHERE status IN (?, ?) AND updated_at < ? ORDER BY updated_at ASC`,
		models.JobStatusCompleted, models.JobStatusError, cutoff.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query finished jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// DeleteJob removes a job and its events.
func (s *Store) DeleteJob(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM events WHERE job_id = ?`, id); err != nil {
		return fmt.Errorf("delete events: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return tx.Commit()
}

// --- Event Operations ---

// WriteEvent inserts an audit event.
func (s *Store) WriteEvent(action, inputsHash, outcome, jobID, details string) (*models.Event, error) {
	ev := &models.Event{
		ID:         uuid.New().String(),
		Action:     action,
		InputsHash: inputsHash,
		Outcome:    outcome,
		JobID:      jobID,
		Details:    details,
		Timestamp:  time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO events (id, action, inputs_hash, outcome, job_id, details, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Action, ev.InputsHash, ev.Outcome, ev.JobID, ev.Details, ev.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return ev, nil
}

// EventsForJob returns the audit trail of a job, oldest first.
func (s *Store) EventsForJob(jobID string) ([]models.Event, error) {
	rows, err := s.db.Query(
		`SELECT id, action, inputs_hash, outcome, job_id, details, timestamp FROM events WHERE job_id = ? ORDER BY timestamp ASC`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var ev models.Event
		var job, details sql.NullString
		if err := rows.Scan(&ev.ID, &ev.Action, &ev.InputsHash, &ev.Outcome, &job, &details, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.JobID = job.String
		ev.Details = details.String
		events = append(events, ev)
	}
	return events, rows.Err()
}
