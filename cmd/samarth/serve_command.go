package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/ayusman/samarth/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP assessment API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			unlock, err := lockDatabase(cfg.Server.DBPath)
			if err != nil {
				return err
			}
			defer unlock()

			a, logger, err := ctx.openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			addr := strings.TrimSpace(bind)
			if addr == "" {
				addr = cfg.Server.Bind
			}

			logger.Info("starting samarth",
				"config", ctx.configPath,
				"database", cfg.Server.DBPath,
				"sessions", cfg.Sessions.Backend,
			)
			srv := server.New(server.Config{
				App:            a,
				Logger:         logger,
				MaxUploadMB:    cfg.Server.MaxUploadMB,
				RequestTimeout: time.Duration(cfg.Server.RequestTimeoutSeconds) * time.Second,

				RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
				RateLimitBurst:     cfg.Server.RateLimitBurst,
			})
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address, overriding server.bind")
	return cmd
}

// lockDatabase takes an exclusive lock beside the database so only one
// server writes to it. CLI commands do not take the lock.
func lockDatabase(dbPath string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure database directory: %w", err)
	}
	lock := flock.New(dbPath + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another samarth server is already using " + dbPath)
	}
	return func() { _ = lock.Unlock() }, nil
}
