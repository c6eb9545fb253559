// Package config loads the samarth TOML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/ayusman/samarth/internal/detector"
	"github.com/ayusman/samarth/internal/eye"
	"github.com/ayusman/samarth/internal/face"
	"github.com/ayusman/samarth/internal/neck"
	"github.com/ayusman/samarth/internal/speech"
	"github.com/ayusman/samarth/internal/tremor"
)

// DefaultPath is where Load looks when no path is given.
const DefaultPath = "~/.config/samarth/config.toml"

// Session backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Server configures the HTTP API.
type Server struct {
	Bind        string `toml:"bind"`
	DBPath      string `toml:"db_path"`
	MaxUploadMB int    `toml:"max_upload_mb"`
	// RequestTimeoutSeconds bounds a single analysis request.
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`
	// RateLimitPerMinute caps API requests per client; 0 disables it.
	RateLimitPerMinute int `toml:"rate_limit_per_minute"`
	RateLimitBurst     int `toml:"rate_limit_burst"`
}

// Logging configures the process logger.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	// File enables a rotating JSON log in addition to the console.
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Capture bounds video decoding.
type Capture struct {
	MaxFrames  int     `toml:"max_frames"`
	DefaultFPS float64 `toml:"default_fps"`
	// StallThreshold is the changed-pixel percentage at or below which a
	// clip frame counts as a repeat of the previous one.
	StallThreshold float64 `toml:"stall_threshold"`
}

// Sessions configures where per-subject session state lives.
type Sessions struct {
	Backend       string `toml:"backend"`
	TTLSeconds    int    `toml:"ttl_seconds"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	KeyPrefix     string `toml:"key_prefix"`
}

// Config is the full service configuration.
type Config struct {
	Server   Server          `toml:"server"`
	Logging  Logging         `toml:"logging"`
	Capture  Capture         `toml:"capture"`
	Detector detector.Config `toml:"detector"`
	Sessions Sessions        `toml:"sessions"`
	Eye      eye.Config      `toml:"eye"`
	Tremor   tremor.Config   `toml:"tremor"`
	Face     face.Config     `toml:"face"`
	Neck     neck.Config     `toml:"neck"`
	Speech   speech.Config   `toml:"speech"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			Bind:                  "127.0.0.1:8000",
			DBPath:                "~/.local/share/samarth/samarth.db",
			MaxUploadMB:           64,
			RequestTimeoutSeconds: 120,
			RateLimitPerMinute:    120,
			RateLimitBurst:        20,
		},
		Logging: Logging{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
		Capture: Capture{
			MaxFrames:      300,
			DefaultFPS:     30,
			StallThreshold: 0,
		},
		Detector: detector.DefaultConfig(),
		Sessions: Sessions{
			Backend:    BackendMemory,
			TTLSeconds: 1800,
			RedisAddr:  "127.0.0.1:6379",
			KeyPrefix:  "samarth:session:",
		},
		Eye:    eye.DefaultConfig(),
		Tremor: tremor.DefaultConfig(),
		Face:   face.DefaultConfig(),
		Neck:   neck.DefaultConfig(),
		Speech: speech.DefaultConfig(),
	}
}

// Load reads path over the defaults, then applies SAMARTH_* environment
// overrides. An empty path selects DefaultPath. A missing file is not an
// error; the returned bool reports whether it existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath
	}
	resolved, err := ExpandPath(path)
	if err != nil {
		return nil, "", false, err
	}

	exists := true
	data, err := os.ReadFile(resolved)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		exists = false
	case err != nil:
		return nil, "", false, fmt.Errorf("read config: %w", err)
	default:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

// Marshal encodes the configuration as TOML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteDefault writes the default configuration to path. It refuses to
// overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) (string, error) {
	resolved, err := ExpandPath(path)
	if err != nil {
		return "", err
	}
	if !force {
		if _, err := os.Stat(resolved); err == nil {
			return "", fmt.Errorf("config already exists at %s", resolved)
		}
	}

	cfg := Default()
	data, err := cfg.Marshal()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return resolved, nil
}

// ExpandPath resolves a leading ~ and makes the path absolute.
func ExpandPath(p string) (string, error) {
	if p == "" {
		return p, nil
	}
	if strings.HasPrefix(p, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		switch {
		case p == "~":
			p = home
		case len(p) > 1 && (p[1] == '/' || p[1] == '\\'):
			p = filepath.Join(home, p[2:])
		}
	}
	abs, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", p, err)
	}
	return abs, nil
}
