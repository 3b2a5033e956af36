package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/claude/ironlog/internal/config"
)

// Open connects the slot backend named by cfg.Driver. For postgres, pending
// migrations are applied before the pool is opened.
func Open(ctx context.Context, cfg config.StorageConfig, log *slog.Logger) (Slot, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		s, err := OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		log.Info("sqlite slot opened", "path", cfg.SQLite.Path)
		return s, nil

	case config.DriverPostgres:
		dsn := cfg.Postgres.DSN()
		if err := RunMigrations(dsn, cfg.Postgres.Migrations); err != nil {
			return nil, err
		}
		log.Info("migrations applied")

		p, err := NewPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		log.Info("database connected", "host", cfg.Postgres.Host)
		return p, nil

	case config.DriverMemory:
		log.Warn("memory slot: workouts will not survive a restart")
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
