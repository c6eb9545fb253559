package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if c.Server.DBPath, err = ExpandPath(strings.TrimSpace(c.Server.DBPath)); err != nil {
		return fmt.Errorf("server.db_path: %w", err)
	}
	if c.Logging.File, err = ExpandPath(strings.TrimSpace(c.Logging.File)); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	if c.Detector.ScriptPath, err = ExpandPath(strings.TrimSpace(c.Detector.ScriptPath)); err != nil {
		return fmt.Errorf("detector.script: %w", err)
	}
	c.normalizeLogging()
	c.normalizeSessions()

	// Analyzers sample at the capture rate unless told otherwise.
	if c.Eye.FrameRate <= 0 {
		c.Eye.FrameRate = c.Capture.DefaultFPS
	}
	if c.Tremor.FrameRate <= 0 {
		c.Tremor.FrameRate = c.Capture.DefaultFPS
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}

func (c *Config) normalizeSessions() {
	c.Sessions.Backend = strings.ToLower(strings.TrimSpace(c.Sessions.Backend))
	if c.Sessions.Backend == "" {
		c.Sessions.Backend = BackendMemory
	}
	if c.Sessions.KeyPrefix == "" {
		c.Sessions.KeyPrefix = "samarth:session:"
	}
}
