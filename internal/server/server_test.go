package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fentz26/playlistdl/internal/audit"
	"github.com/fentz26/playlistdl/internal/connectors/simulate"
	"github.com/fentz26/playlistdl/internal/models"
	"github.com/fentz26/playlistdl/internal/remote"
	"github.com/fentz26/playlistdl/internal/scheduler"
	"github.com/fentz26/playlistdl/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	mu    sync.Mutex
	wakes int
}

func (d *fakeDispatcher) Wake() {
	d.mu.Lock()
	d.wakes++
	d.mu.Unlock()
}

func (d *fakeDispatcher) Stats() scheduler.Stats {
	return scheduler.Stats{MaxWorkers: 3}
}

type testEnv struct {
	store      *store.Store
	dispatcher *fakeDispatcher
	server     *Server
	dir        string
}

func newTestEnv(t *testing.T, spotifyAuth bool) *testEnv {
	t.Helper()
	dir := t.TempDir()
	s, err := store.New(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	d := &fakeDispatcher{}
	svc := NewService(s, audit.NewRecorder(s, nil), d, Options{ArtifactsDir: dir, SpotifyAuth: spotifyAuth})
	return &testEnv{store: s, dispatcher: d, server: NewServer(svc, "127.0.0.1:0", nil), dir: dir}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func TestSubmit_Accepted(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(http.MethodPost, "/download", `{"url":"https://open.spotify.com/playlist/abc","format":"FLAC"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp remote.SubmitResponse
	decodeBody(t, w, &resp)
	require.NotEmpty(t, resp.TaskID)
	assert.Equal(t, SpotifyWarning, resp.Warning)
	assert.Equal(t, 1, env.dispatcher.wakes)

	job, err := env.store.GetJob(resp.TaskID)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "flac", job.Format)
	assert.Equal(t, models.JobStatusPending, job.Status)
}

func TestSubmit_NoWarningWithCredentials(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(http.MethodPost, "/download", `{"url":"https://open.spotify.com/playlist/abc"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp remote.SubmitResponse
	decodeBody(t, w, &resp)
	assert.Empty(t, resp.Warning)

	job, _ := env.store.GetJob(resp.TaskID)
	assert.Equal(t, "mp3", job.Format)
}

func TestSubmit_Rejected(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad url", `{"url":"https://example.com/x","format":"mp3"}`, ErrInvalidURL.Error()},
		{"bad format", `{"url":"https://youtu.be/x","format":"ogg"}`, ErrInvalidFormat.Error()},
		{"bad json", `not json`, "No data provided"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, false)
			w := env.do(http.MethodPost, "/download", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp remote.ErrorResponse
			decodeBody(t, w, &resp)
			assert.Equal(t, tt.want, resp.Error)
			assert.Zero(t, env.dispatcher.wakes)
		})
	}
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t, false)
	job, err := env.store.CreateJob("https://youtu.be/x", "mp3")
	require.NoError(t, err)
	require.NoError(t, env.store.FailJob(job.ID, "429 too many requests", "rate_limit"))

	w := env.do(http.MethodGet, "/status/"+job.ID, "")
	require.Equal(t, http.StatusOK, w.Code)

	var st remote.StatusResponse
	decodeBody(t, w, &st)
	assert.Equal(t, remote.StatusError, st.Status)
	assert.Equal(t, "429 too many requests", st.Error)
	assert.Equal(t, "rate_limit", st.Code)
	assert.NotEmpty(t, st.CreatedAt)
}

func TestStatus_NotFound(t *testing.T) {
	env := newTestEnv(t, false)
	w := env.do(http.MethodGet, "/status/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp remote.ErrorResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, "Task not found", resp.Error)
}

func TestArtifact(t *testing.T) {
	env := newTestEnv(t, false)
	job, _ := env.store.CreateJob("https://youtu.be/x", "wav")

	w := env.do(http.MethodGet, "/download/"+job.ID, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), ErrNotCompleted.Error())

	archive := filepath.Join(env.dir, "a.zip")
	require.NoError(t, os.WriteFile(archive, []byte("PK-data"), 0644))
	require.NoError(t, env.store.CompleteJob(job.ID, archive, "done"))

	w = env.do(http.MethodGet, "/download/"+job.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="playlist_wav.zip"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "PK-data", w.Body.String())

	require.NoError(t, os.Remove(archive))
	w = env.do(http.MethodGet, "/download/"+job.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), ErrArtifactMissing.Error())
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, false)
	env.store.CreateJob("https://youtu.be/a", "mp3")
	done, _ := env.store.CreateJob("https://youtu.be/b", "mp3")
	env.store.CompleteJob(done.ID, "", "done")

	w := env.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	var h remote.HealthResponse
	decodeBody(t, w, &h)
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, 1, h.ActiveTasks)

	w = env.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	var m Metrics
	decodeBody(t, w, &m)
	assert.Equal(t, 2, m.TotalTasks)
	assert.Equal(t, 1, m.PendingDownloads)
	assert.Equal(t, 1, m.CompletedDownloads)
	assert.Equal(t, 3, m.Workers.MaxWorkers)
	assert.Contains(t, m.DiskUsageMB, "artifacts")
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, false)
	w := env.do(http.MethodDelete, "/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

// TestClientRoundTrip drives the real client against the service with the
// simulated converter and a running scheduler.
func TestClientRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := store.New(filepath.Join(dir, "jobs.db"))
	require.NoError(t, err)
	defer s.Close()

	rec := audit.NewRecorder(s, nil)
	conv := simulate.New(filepath.Join(dir, "artifacts"), 0, false, nil)
	sch := scheduler.New(s, rec, conv, &scheduler.Config{Workers: 1, DispatchInterval: 10 * time.Millisecond}, nil)
	require.NoError(t, sch.Start())
	defer sch.Stop()

	svc := NewService(s, rec, sch, Options{ArtifactsDir: filepath.Join(dir, "artifacts")})
	ts := httptest.NewServer(NewServer(svc, "", nil).Handler())
	defer ts.Close()

	client := remote.NewClient(ts.URL)
	ctx := context.Background()

	sub, err := client.Submit(ctx, "https://youtube.com/playlist?list=abc", "mp3")
	require.NoError(t, err)

	deadline := time.Now().Add(5 * time.Second)
	var st *remote.StatusResponse
	for time.Now().Before(deadline) {
		st, err = client.Status(ctx, sub.TaskID)
		require.NoError(t, err)
		if st.Terminal() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NotNil(t, st)
	require.Equal(t, remote.StatusCompleted, st.Status)
	assert.Equal(t, 100, st.Progress)
	assert.Equal(t, "Download completed! 5 tracks downloaded.", st.Message)

	art, err := client.Artifact(ctx, sub.TaskID)
	require.NoError(t, err)
	assert.Equal(t, "playlist_mp3.zip", art.Filename)
	assert.True(t, bytes.HasPrefix(art.Body, []byte("PK")))

	_, err = client.Status(ctx, "missing")
	var apiErr *remote.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Task not found", apiErr.Message)
}
