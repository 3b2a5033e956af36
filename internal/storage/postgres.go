package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSlot keeps slot values in the kv_slots table.
type PostgresSlot struct {
	Pool *pgxpool.Pool
}

var _ Slot = (*PostgresSlot)(nil)

// NewPostgres creates a PostgresSlot with a connection pool.
func NewPostgres(ctx context.Context, dsn string) (*PostgresSlot, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &PostgresSlot{Pool: pool}, nil
}

// Get returns the value stored under key. ok is false if the key was never written.
func (p *PostgresSlot) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := p.Pool.QueryRow(ctx,
		`SELECT value FROM kv_slots WHERE key = $1`, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading slot %s: %w", key, err)
	}
	return value, true, nil
}

// Put overwrites the value stored under key.
func (p *PostgresSlot) Put(ctx context.Context, key string, value []byte) error {
	_, err := p.Pool.Exec(ctx,
		`INSERT INTO kv_slots (key, value, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, value)
	if err != nil {
		return fmt.Errorf("writing slot %s: %w", key, err)
	}
	return nil
}

// Close closes the connection pool.
func (p *PostgresSlot) Close() error {
	p.Pool.Close()
	return nil
}

// RunMigrations applies all pending migrations from the given directory.
func RunMigrations(dsn, migrationsPath string) error {
	m, err := migrate.New("file://"+migrationsPath, dsn)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
