package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ayusman/samarth/internal/config"
)

// Open builds the store selected by the [sessions] section.
func Open(ctx context.Context, cfg config.Sessions, logger *slog.Logger) (Store, error) {
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	switch cfg.Backend {
	case config.BackendMemory, "":
		return NewMemoryStore(ttl), nil
	case config.BackendRedis:
		return NewRedisStore(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.KeyPrefix,
			TTL:      ttl,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}
