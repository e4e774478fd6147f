package server

import "errors"

// Sentinel errors for service operations. Their text is sent to clients verbatim.
var (
	ErrInvalidURL      = errors.New("Invalid or unsupported URL. Please provide a Spotify or YouTube URL.")
	ErrInvalidFormat   = errors.New("Invalid format. Supported formats: wav, flac, mp3")
	ErrJobNotFound     = errors.New("Task not found")
	ErrNotCompleted    = errors.New("Download not completed yet")
	ErrArtifactMissing = errors.New("Output file not found")
)
