package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/EasterCompany/dex-leveling-service/cache"
	"github.com/EasterCompany/dex-leveling-service/config"
	"github.com/EasterCompany/dex-leveling-service/database"
)

// Open connects the backend named by cfg.Backend.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client), nil
	case config.BackendSQLite, config.BackendPostgres:
		db, err := database.Open(cfg, logger, Models()...)
		if err != nil {
			return nil, err
		}
		return NewGormStore(db), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
