package store

import (
	"context"
	"fmt"
	"log/slog"

	"seopilot/internal/config"
)

// Open returns the Store selected by cfg.Driver
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Driver {
	case config.StoreDriverMemory, "":
		logger.Warn("using in-memory option store, state is lost on restart")
		return NewMemoryStore(), nil
	case config.StoreDriverRedis:
		s, err := NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisPrefix)
		if err != nil {
			return nil, err
		}
		logger.Info("option store connected", slog.String("driver", "redis"), slog.String("addr", cfg.RedisAddr))
		return s, nil
	case config.StoreDriverPostgres:
		s, err := NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		logger.Info("option store connected", slog.String("driver", "postgres"))
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
