package retrieve

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/fentz26/playlistdl/internal/notify"
	"github.com/fentz26/playlistdl/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	calls int
	art   *remote.Artifact
	err   error
}

func (f *fakeFetcher) Artifact(ctx context.Context, taskID string) (*remote.Artifact, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.art, nil
}

type sent struct {
	text     string
	severity notify.Severity
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sent
}

func (n *fakeNotifier) Notify(text string, severity notify.Severity) notify.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sent{text, severity})
	return notify.Notification{Text: text, Severity: severity}
}

func TestRetrieve_NoTaskIssuesNoRequest(t *testing.T) {
	f := &fakeFetcher{}
	n := &fakeNotifier{}
	r := New(f, NewDirSaver(t.TempDir()), n, nil)

	_, err := r.Retrieve(context.Background(), "", "playlist_mp3.zip")
	assert.ErrorIs(t, err, ErrNoTask)
	assert.Equal(t, 0, f.calls)
	require.Len(t, n.sent, 1)
	assert.Equal(t, sent{"No download available", notify.SeverityError}, n.sent[0])
}

func TestRetrieve_SavesAndNotifies(t *testing.T) {
	dir := t.TempDir()
	f := &fakeFetcher{art: &remote.Artifact{Body: []byte("zipdata")}}
	n := &fakeNotifier{}
	r := New(f, NewDirSaver(dir), n, nil)

	path, err := r.Retrieve(context.Background(), "t-1", "playlist_flac.zip")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "playlist_flac.zip"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "zipdata", string(data))
	assert.Equal(t, []sent{{SuccessText, notify.SeveritySuccess}}, n.sent)
}

func TestRetrieve_EmptyNameUsesServiceName(t *testing.T) {
	dir := t.TempDir()
	f := &fakeFetcher{art: &remote.Artifact{Filename: "playlist_wav.zip", Body: []byte("x")}}
	r := New(f, NewDirSaver(dir), nil, nil)

	path, err := r.Retrieve(context.Background(), "t-1", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "playlist_wav.zip"), path)

	f.art.Filename = ""
	path, err = r.Retrieve(context.Background(), "t-1", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, fallbackFilename), path)
}

func TestRetrieve_RefetchesEveryCall(t *testing.T) {
	dir := t.TempDir()
	f := &fakeFetcher{art: &remote.Artifact{Body: []byte("x")}}
	r := New(f, NewDirSaver(dir), nil, nil)

	first, err := r.Retrieve(context.Background(), "t-1", "playlist_mp3.zip")
	require.NoError(t, err)
	second, err := r.Retrieve(context.Background(), "t-1", "playlist_mp3.zip")
	require.NoError(t, err)

	assert.Equal(t, 2, f.calls)
	assert.Equal(t, filepath.Join(dir, "playlist_mp3.zip"), first)
	assert.Equal(t, filepath.Join(dir, "playlist_mp3 (1).zip"), second)
}

func TestRetrieve_RemoteErrorSurfaced(t *testing.T) {
	f := &fakeFetcher{err: &remote.APIError{StatusCode: 400, Message: "Download not completed yet"}}
	n := &fakeNotifier{}
	r := New(f, NewDirSaver(t.TempDir()), n, nil)

	_, err := r.Retrieve(context.Background(), "t-1", "playlist_mp3.zip")
	require.Error(t, err)

	var apiErr *remote.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, []sent{{"Download not completed yet", notify.SeverityError}}, n.sent)
}

func TestDirSaver_NeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.zip"), []byte("old"), 0644))

	s := NewDirSaver(dir)
	path, err := s.Save("a.zip", []byte("new"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a (1).zip"), path)

	old, err := os.ReadFile(filepath.Join(dir, "a.zip"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(old))
}

func TestDirSaver_WithoutHardLinks(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.zip"), []byte("old"), 0644))

	s := NewDirSaver(dir)
	links := 0
	s.link = func(string, string) error {
		links++
		return &os.LinkError{Op: "link", Err: errors.New("operation not supported")}
	}

	path, err := s.Save("a.zip", []byte("new"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a (1).zip"), path)
	assert.Equal(t, 1, links)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(body))

	old, err := os.ReadFile(filepath.Join(dir, "a.zip"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(old))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestDirSaver_StripsDirectories(t *testing.T) {
	dir := t.TempDir()
	path, err := NewDirSaver(dir).Save("../../etc/evil.zip", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "evil.zip"), path)
}

func TestDirSaver_CreatesDirAndLeavesNoTemp(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "downloads")
	_, err := NewDirSaver(dir).Save("out.zip", []byte("x"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.zip", entries[0].Name())
}

func TestDirSaver_RejectsEmptyName(t *testing.T) {
	_, err := NewDirSaver(t.TempDir()).Save("  ", []byte("x"))
	assert.Error(t, err)
}
