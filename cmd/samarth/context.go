package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/ayusman/samarth/internal/app"
	"github.com/ayusman/samarth/internal/config"
	"github.com/ayusman/samarth/internal/detector"
	"github.com/ayusman/samarth/internal/logging"
	"github.com/ayusman/samarth/internal/session"
	"github.com/ayusman/samarth/internal/store"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	jsonFlag     *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	closers []io.Closer
}

func newCommandContext(configFlag, logLevelFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		jsonFlag:     jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			level := strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
			if _, err := logging.ParseLevel(level); err != nil {
				c.configErr = fmt.Errorf("--log-level: %w", err)
				return
			}
			cfg.Logging.Level = level
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) track(closer io.Closer) {
	c.closers = append(c.closers, closer)
}

// close releases everything opened by the command, newest first.
func (c *commandContext) close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *commandContext) logger(cmd *cobra.Command) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, closer, err := logging.New(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Output:     cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}
	c.track(closer)
	return logger, nil
}

// openStore opens the assessment database.
func (c *commandContext) openStore() (*store.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	st, err := store.New(cfg.Server.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	c.track(st)
	return st, nil
}

// openApp builds an App with the database, the session backend and the
// MediaPipe provider. Without MediaPipe the visual analyses fail but speech
// still works.
func (c *commandContext) openApp(ctx context.Context, cmd *cobra.Command) (*app.App, *slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.logger(cmd)
	if err != nil {
		return nil, nil, err
	}
	st, err := c.openStore()
	if err != nil {
		return nil, nil, err
	}
	sessions, err := session.Open(ctx, cfg.Sessions, logger)
	if err != nil {
		return nil, nil, err
	}
	c.track(sessions)

	var provider detector.Provider
	mp, err := detector.NewMediaPipeProvider(cfg.Detector)
	if err != nil {
		logger.Warn("landmark detection disabled", "error", err)
		provider = detector.Unavailable{Reason: err}
	} else {
		c.track(mp)
		provider = mp
	}

	a := app.New(app.Options{
		Config:   *cfg,
		Provider: provider,
		Store:    st,
		Sessions: sessions,
		Logger:   logger,
	})
	return a, logger, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
