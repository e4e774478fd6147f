package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoad_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:5000", cfg.API)
	assert.Equal(t, "mp3", cfg.Format)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, filepath.Join(home, "Downloads"), cfg.DownloadDir)
	assert.Equal(t, filepath.Join(home, ".playlistdl", "playlistdl.log"), cfg.Log.File)
	assert.Equal(t, 3, cfg.Server.Workers)
	assert.Equal(t, time.Hour, cfg.Server.CleanupAge)
	assert.False(t, cfg.Server.SpotifyConfigured())
}

func TestLoad_FileAndEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api: http://conv.local:8080
format: FLAC
poll_interval: 500ms
server:
  workers: 5
  spotify_client_id: id
`), 0644))

	t.Setenv("PLAYLISTDL_SERVER_SPOTIFY_CLIENT_SECRET", "secret")
	t.Setenv("PLAYLISTDL_API", "http://env.local")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://env.local", cfg.API, "env beats file")
	assert.Equal(t, "flac", cfg.Format)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 5, cfg.Server.Workers)
	assert.True(t, cfg.Server.SpotifyConfigured())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"format":   "format: ogg\n",
		"interval": "poll_interval: 0s\n",
		"workers":  "server:\n  workers: 0\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			path := filepath.Join(t.TempDir(), "cfg.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))

			_, err := Load(path)
			assert.ErrorContains(t, err, "invalid config")
		})
	}
}

func TestWriteDefault(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, WriteDefault(path, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &raw))
	assert.Equal(t, "2s", raw["poll_interval"])
	assert.Contains(t, raw, "server")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)

	err = WriteDefault(path, false)
	assert.True(t, errors.Is(err, ErrExists))
	assert.NoError(t, WriteDefault(path, true))
}
