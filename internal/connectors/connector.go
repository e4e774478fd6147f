// Package connectors defines the conversion backend used by the service workers.
package connectors

import (
	"context"

	"github.com/fentz26/playlistdl/internal/models"
)

// Request is one conversion to perform.
type Request struct {
	JobID  string
	URL    string
	Format string
}

// Step is a progress report from a running conversion.
type Step struct {
	Status   models.JobStatus
	Progress int
	Message  string
}

// ProgressFunc receives steps as the conversion advances.
type ProgressFunc func(Step)

// Result describes a finished conversion.
type Result struct {
	ArchivePath string
	Tracks      int
}

// Failure is a conversion error with a structured kind the client can act on.
type Failure struct {
	Message string
	Code    string
}

func (f *Failure) Error() string {
	return f.Message
}

// Converter turns a playlist URL into an archive.
type Converter interface {
	// Name returns the converter identifier.
	Name() string

	// Convert runs the pipeline for req, reporting steps through report.
	Convert(ctx context.Context, req Request, report ProgressFunc) (*Result, error)
}
