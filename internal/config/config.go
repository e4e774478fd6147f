// Package config loads playlistdl settings from defaults, an optional YAML file and
// PLAYLISTDL_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fentz26/playlistdl/internal/validate"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. PLAYLISTDL_SERVER_WORKERS.
const EnvPrefix = "PLAYLISTDL"

// ErrExists is returned by WriteDefault when the target file is already there.
var ErrExists = errors.New("config file already exists")

type Config struct {
	API            string        `mapstructure:"api"`
	Format         string        `mapstructure:"format"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	DownloadDir    string        `mapstructure:"download_dir"`
	Log            LogConfig     `mapstructure:"log"`
	Server         ServerConfig  `mapstructure:"server"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// ServerConfig configures the stub conversion service.
type ServerConfig struct {
	Listen              string        `mapstructure:"listen"`
	DB                  string        `mapstructure:"db"`
	ArtifactsDir        string        `mapstructure:"artifacts_dir"`
	Workers             int           `mapstructure:"workers"`
	StepDelay           time.Duration `mapstructure:"step_delay"`
	SpotifyClientID     string        `mapstructure:"spotify_client_id"`
	SpotifyClientSecret string        `mapstructure:"spotify_client_secret"`
	CleanupAge          time.Duration `mapstructure:"cleanup_age"`
	CleanupInterval     time.Duration `mapstructure:"cleanup_interval"`
}

// SpotifyConfigured reports whether both Spotify credentials are set.
func (s ServerConfig) SpotifyConfigured() bool {
	return s.SpotifyClientID != "" && s.SpotifyClientSecret != ""
}

// Dir returns ~/.playlistdl, or .playlistdl when the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".playlistdl"
	}
	return filepath.Join(home, ".playlistdl")
}

// DefaultPath is the config file read when --config is not given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

func defaultDownloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Downloads")
}

// Durations are kept as strings so AllSettings renders them readably.
func setDefaults(v *viper.Viper) {
	dir := Dir()
	v.SetDefault("api", "http://127.0.0.1:5000")
	v.SetDefault("format", validate.DefaultFormat)
	v.SetDefault("poll_interval", "2s")
	v.SetDefault("request_timeout", "30s")
	v.SetDefault("download_dir", defaultDownloadDir())

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", filepath.Join(dir, "playlistdl.log"))

	v.SetDefault("server.listen", "127.0.0.1:5000")
	v.SetDefault("server.db", filepath.Join(dir, "jobs.db"))
	v.SetDefault("server.artifacts_dir", filepath.Join(dir, "artifacts"))
	v.SetDefault("server.workers", 3)
	v.SetDefault("server.step_delay", "1s")
	v.SetDefault("server.spotify_client_id", "")
	v.SetDefault("server.spotify_client_secret", "")
	v.SetDefault("server.cleanup_age", "1h")
	v.SetDefault("server.cleanup_interval", "1h")
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration. An explicit path must exist; with an empty path the
// default file is used if present.
func Load(path string) (*Config, error) {
	v := newViper()

	switch {
	case path != "":
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	default:
		if _, err := os.Stat(DefaultPath()); err == nil {
			v.SetConfigFile(DefaultPath())
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Format = validate.NormalizeFormat(cfg.Format)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the values Load cannot coerce.
func (c *Config) Validate() error {
	if c.API == "" {
		return fmt.Errorf("api must not be empty")
	}
	if !validate.IsValidFormat(c.Format) {
		return fmt.Errorf("unsupported format %q (want one of %s)", c.Format, strings.Join(validate.Formats, ", "))
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative")
	}
	if c.Server.Workers < 1 {
		return fmt.Errorf("server.workers must be at least 1")
	}
	if c.Server.StepDelay < 0 {
		return fmt.Errorf("server.step_delay must not be negative")
	}
	return nil
}

// WriteDefault writes the default settings as YAML to path, creating parent
// directories. An existing file is left alone unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s: %w", path, ErrExists)
		}
	}

	v := viper.New()
	setDefaults(v)
	data, err := yaml.Marshal(v.AllSettings())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
