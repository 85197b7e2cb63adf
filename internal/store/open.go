package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"plc-copilot/internal/config"
	"plc-copilot/internal/db"
)

// Open builds the store selected by cfg.StoreBackend. The postgres backend
// runs pending migrations before it is returned.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (Store, error) {
	switch cfg.StoreBackend {
	case "", config.StoreMemory:
		return NewMemoryStore(cfg.MaxTranscript), nil
	case config.StoreFile:
		return NewFileStore(cfg.StoreDir, cfg.MaxTranscript)
	case config.StorePostgres:
		database, err := db.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(ctx, cfg.MigrationsDir); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return NewDatabaseStore(database, cfg.MaxTranscript), nil
	case config.StoreRedis:
		return NewRedisStore(ctx, cfg.RedisURL, cfg.MaxTranscript)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
