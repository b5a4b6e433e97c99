// Package sqlite implements the RSVP store on SQLite through the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/vtseva/career-compass/internal/persistence"
	"github.com/vtseva/career-compass/internal/persistence/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store bundles the connection pool with the RSVP repository.
type Store struct {
	*RSVPRepository

	pool   *ConnectionPool
	logger *slog.Logger
}

var _ persistence.Store = (*Store)(nil)

// Open connects to the database described by cfg. It does not migrate.
func Open(ctx context.Context, cfg Config, now func() time.Time, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pool, err := NewConnectionPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{
		RSVPRepository: NewRSVPRepository(pool, now),
		pool:           pool,
		logger:         logger.With(slog.String("engine", "sqlite")),
	}, nil
}

// Migrate applies the embedded schema migrations. Repeated calls are no-ops.
func (s *Store) Migrate(ctx context.Context) error {
	manager := migration.NewManager(migrationFiles, "migrations", migration.NewSQLExecutor(s.pool.DB()), s.logger)
	if _, err := manager.Run(ctx); err != nil {
		return fmt.Errorf("sqlite migrate: %w", err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Pool exposes the underlying connection pool.
func (s *Store) Pool() *ConnectionPool {
	return s.pool
}
