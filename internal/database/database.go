package database

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/home-panel-go/internal/config"
	"github.com/frostdev-ops/home-panel-go/internal/database/bolt"
	"github.com/frostdev-ops/home-panel-go/internal/database/memory"
	"github.com/frostdev-ops/home-panel-go/internal/database/repositories"
	"github.com/frostdev-ops/home-panel-go/internal/database/sqlite"
)

// Initialize opens the store selected by cfg.Backend. The SQLite backend is
// migrated on open when AutoMigrate is set.
func Initialize(cfg config.DatabaseConfig, logger *logrus.Logger) (repositories.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		logger.Warn("Using in-memory store, state will not survive a restart")
		return memory.New(), nil

	case config.BackendSQLite:
		store, err := sqlite.Open(sqlite.Options{
			Path:           cfg.Path,
			MaxConnections: cfg.MaxConnections,
		}, logger)
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := store.Migrate(); err != nil {
				store.Close()
				return nil, err
			}
		}
		return store, nil

	case config.BackendBolt:
		return bolt.Open(cfg.Path, logger)

	default:
		return nil, fmt.Errorf("unknown database backend %q", cfg.Backend)
	}
}

// Ping checks that the store can serve reads
func Ping(ctx context.Context, store repositories.Store) error {
	if s, ok := store.(*sqlite.Store); ok {
		return s.DB().PingContext(ctx)
	}
	return store.View(ctx, func(tx repositories.Tx) error {
		_, err := tx.Rooms().GetAll()
		return err
	})
}
