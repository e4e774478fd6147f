// Package simulate is a converter that walks the pipeline steps without fetching
// any media. The archive it produces holds a manifest of the request.
package simulate

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fentz26/playlistdl/internal/connectors"
	"github.com/fentz26/playlistdl/internal/models"
	"github.com/fentz26/playlistdl/internal/validate"
	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Progress milestones reported by the pipeline.
const (
	ProgressDownloading = 25
	ProgressProcessing  = 75
)

// Failure triggers. A URL containing one of these markers fails the way a real
// backend would, which lets clients exercise their error paths.
var failureMarkers = []struct {
	marker string
	err    connectors.Failure
}{
	{"fail-ratelimit", connectors.Failure{Message: "429 too many requests", Code: "rate_limit"}},
	{"fail-notfound", connectors.Failure{Message: "Content not found or URL invalid: 404 not found", Code: "not_found"}},
	{"fail-network", connectors.Failure{Message: "network unreachable: connection reset", Code: "network"}},
	{"fail-empty", connectors.Failure{Message: "No audio files were downloaded. The playlist might be empty or inaccessible."}},
}

// Manifest is written to manifest.json inside every archive.
type Manifest struct {
	JobID     string    `json:"job_id"`
	URL       string    `json:"url"`
	Format    string    `json:"format"`
	Source    string    `json:"source"`
	Tracks    []string  `json:"tracks"`
	CreatedAt time.Time `json:"created_at"`
}

// Converter simulates a download-and-archive pipeline.
type Converter struct {
	outDir      string
	stepDelay   time.Duration
	spotifyAuth bool
	logger      *zap.Logger
}

// New creates a converter writing archives into outDir. stepDelay is the pause
// between pipeline steps.
func New(outDir string, stepDelay time.Duration, spotifyAuth bool, logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{
		outDir:      outDir,
		stepDelay:   stepDelay,
		spotifyAuth: spotifyAuth,
		logger:      logger,
	}
}

// Name implements connectors.Converter.
func (c *Converter) Name() string {
	return "simulate"
}

// Convert implements connectors.Converter.
func (c *Converter) Convert(ctx context.Context, req connectors.Request, report connectors.ProgressFunc) (*connectors.Result, error) {
	report(connectors.Step{
		Status:   models.JobStatusDownloading,
		Progress: ProgressDownloading,
		Message:  "Downloading tracks...",
	})

	delay := c.stepDelay
	if validate.IsSpotify(req.URL) && !c.spotifyAuth {
		// Unauthenticated Spotify lookups are slower.
		delay *= 2
	}
	if err := c.wait(ctx, delay); err != nil {
		return nil, err
	}

	lower := strings.ToLower(req.URL)
	for _, f := range failureMarkers {
		if strings.Contains(lower, f.marker) {
			failure := f.err
			return nil, &failure
		}
	}

	tracks := trackNames(req)
	report(connectors.Step{
		Status:   models.JobStatusProcessing,
		Progress: ProgressProcessing,
		Message:  fmt.Sprintf("Creating archive (%d files)...", len(tracks)),
	})
	if err := c.wait(ctx, c.stepDelay); err != nil {
		return nil, err
	}

	path, err := c.writeArchive(req, tracks)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("archive written", zap.String("job_id", req.JobID), zap.String("path", path))
	return &connectors.Result{ArchivePath: path, Tracks: len(tracks)}, nil
}

func (c *Converter) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// trackNames returns one entry for a single-track URL and a short list otherwise.
func trackNames(req connectors.Request) []string {
	n := 5
	l := strings.ToLower(req.URL)
	if strings.Contains(l, "/track/") || strings.Contains(l, "watch?v=") || strings.Contains(l, "youtu.be/") {
		n = 1
	}
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%02d - track.%s", i+1, req.Format)
	}
	return names
}

func source(u string) string {
	switch {
	case validate.IsSpotify(u):
		return "spotify"
	case validate.IsYouTube(u):
		return "youtube"
	}
	return "unknown"
}

func (c *Converter) writeArchive(req connectors.Request, tracks []string) (string, error) {
	if err := os.MkdirAll(c.outDir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(c.outDir, fmt.Sprintf("playlist_%s_%s.zip", req.JobID, req.Format))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}

	zw := zip.NewWriter(f)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, 6)
	})

	manifest, err := json.MarshalIndent(Manifest{
		JobID:     req.JobID,
		URL:       req.URL,
		Format:    req.Format,
		Source:    source(req.URL),
		Tracks:    tracks,
		CreatedAt: time.Now().UTC(),
	}, "", "  ")
	if err == nil {
		err = addFile(zw, "manifest.json", manifest)
	}
	for _, name := range tracks {
		if err != nil {
			break
		}
		err = addFile(zw, name, []byte("placeholder audio for "+req.URL+"\n"))
	}

	if cerr := zw.Close(); err == nil {
		err = cerr
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write archive: %w", err)
	}
	return path, nil
}

func addFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
