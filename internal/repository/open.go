package repository

import (
	"context"
	"fmt"

	"github.com/tullo/modchat/config"
	"github.com/tullo/modchat/internal/cache"
	"github.com/tullo/modchat/internal/database"
)

// Open connects the store selected by STORE_BACKEND. Postgres schemas are
// migrated before the store is returned.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return NewMemoryStore(), nil

	case config.BackendFile:
		return NewFileStore(cfg.Store.Dir)

	case config.BackendSQLite:
		return NewSQLiteStore(ctx, cfg.Store.SQLitePath)

	case config.BackendPostgres:
		db, err := database.NewPostgresDB(cfg.GetDSN())
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(db.DB); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return NewPostgresStore(db), nil

	case config.BackendRedis:
		return cache.NewRedisClient(ctx, cfg.GetRedisAddr(), cfg.Redis.Password, cfg.Redis.DB)

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
