package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	for _, check := range []func() error{
		c.validateServer,
		c.validateLogging,
		c.validateCapture,
		c.validateDetector,
		c.validateSessions,
		c.validateAnalyzers,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
		return fmt.Errorf("server.bind %q: %w", c.Server.Bind, err)
	}
	if c.Server.DBPath == "" {
		return errors.New("server.db_path must be set")
	}
	if c.Server.MaxUploadMB <= 0 {
		return errors.New("server.max_upload_mb must be positive")
	}
	if c.Server.RequestTimeoutSeconds < 0 {
		return errors.New("server.request_timeout_seconds must not be negative")
	}
	if c.Server.RateLimitPerMinute < 0 {
		return errors.New("server.rate_limit_per_minute must not be negative")
	}
	if c.Server.RateLimitPerMinute > 0 && c.Server.RateLimitBurst < 1 {
		return errors.New("server.rate_limit_burst must be at least 1 when rate limiting is enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	if c.Logging.File != "" && c.Logging.MaxSizeMB <= 0 {
		return errors.New("logging.max_size_mb must be positive when logging.file is set")
	}
	return nil
}

func (c *Config) validateCapture() error {
	if c.Capture.MaxFrames <= 0 {
		return errors.New("capture.max_frames must be positive")
	}
	if c.Capture.DefaultFPS <= 0 {
		return errors.New("capture.default_fps must be positive")
	}
	if c.Capture.StallThreshold < 0 || c.Capture.StallThreshold > 100 {
		return errors.New("capture.stall_threshold must be between 0 and 100")
	}
	return nil
}

func (c *Config) validateDetector() error {
	d := c.Detector
	if d.MaxHands < 1 {
		return errors.New("detector.max_hands must be at least 1")
	}
	if d.MinConfidence < 0 || d.MinConfidence > 1 {
		return errors.New("detector.min_confidence must be between 0 and 1")
	}
	if d.MinTrackingConf < 0 || d.MinTrackingConf > 1 {
		return errors.New("detector.min_tracking_confidence must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateSessions() error {
	s := c.Sessions
	switch s.Backend {
	case BackendMemory:
	case BackendRedis:
		if strings.TrimSpace(s.RedisAddr) == "" {
			return errors.New("sessions.redis_addr must be set when sessions.backend is redis")
		}
	default:
		return fmt.Errorf("sessions.backend %q must be memory or redis", s.Backend)
	}
	if s.TTLSeconds <= 0 {
		return errors.New("sessions.ttl_seconds must be positive")
	}
	return nil
}

func (c *Config) validateAnalyzers() error {
	if c.Tremor.MinFrames < 2 {
		return errors.New("tremor.min_frames must be at least 2")
	}
	if c.Tremor.BandLowHz <= 0 || c.Tremor.BandHighHz <= c.Tremor.BandLowHz {
		return errors.New("tremor band must satisfy 0 < band_low_hz < band_high_hz")
	}
	if c.Eye.SmoothingWindow > 0 && c.Eye.SmoothingWindow%2 == 0 {
		return errors.New("eye.smoothing_window must be odd")
	}
	if c.Neck.MaxAngle <= 0 {
		return errors.New("neck.max_angle must be positive")
	}
	if c.Speech.HopLength <= 0 || c.Speech.FrameLength < c.Speech.HopLength {
		return errors.New("speech.frame_length must be at least speech.hop_length > 0")
	}
	if c.Speech.PitchMinHz <= 0 || c.Speech.PitchMaxHz <= c.Speech.PitchMinHz {
		return errors.New("speech pitch range must satisfy 0 < pitch_min_hz < pitch_max_hz")
	}
	if c.Speech.TargetRate <= 0 {
		return errors.New("speech.target_rate must be positive")
	}
	return nil
}
