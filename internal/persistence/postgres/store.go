// Package postgres implements the RSVP store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vtseva/career-compass/internal/persistence"
	"github.com/vtseva/career-compass/internal/persistence/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationLockID int64 = 502317

// Options configures Open.
type Options struct {
	// InsecureTLS accepts the server certificate without verification, as hosted
	// Postgres providers with self-signed chains require.
	InsecureTLS bool
	MaxConns    int32
	Now         func() time.Time
	Logger      *slog.Logger
}

// Store is the PostgreSQL-backed persistence.Store.
type Store struct {
	*RSVPRepository

	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ persistence.Store = (*Store)(nil)

// Open parses dsn, connects a pool and verifies it with a ping. It does not migrate.
func Open(ctx context.Context, dsn string, opts Options) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if opts.InsecureTLS {
		if cfg.ConnConfig.TLSConfig != nil {
			cfg.ConnConfig.TLSConfig.InsecureSkipVerify = true
		}
		for _, fallback := range cfg.ConnConfig.Fallbacks {
			if fallback.TLSConfig != nil {
				fallback.TLSConfig.InsecureSkipVerify = true
			}
		}
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping postgres: %v", persistence.ErrUnavailable, err)
	}

	return New(pool, opts.Now, opts.Logger), nil
}

// New wraps an existing pool. The caller keeps ownership of the pool only if it
// never calls Close.
func New(pool *pgxpool.Pool, now func() time.Time, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		RSVPRepository: NewRSVPRepository(pool, now),
		pool:           pool,
		logger:         logger.With(slog.String("engine", "postgres")),
	}
}

// Migrate applies the embedded migrations while holding a session advisory
// lock, so concurrent deploys apply each file once.
func (s *Store) Migrate(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, migrationLockID); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, migrationLockID)
	}()

	manager := migration.NewManager(migrationFiles, "migrations", &connExecutor{conn: conn.Conn()}, s.logger)
	if _, err := manager.Run(ctx); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", persistence.ErrUnavailable, err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Pool exposes the underlying pool.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// connExecutor runs migrations on the single connection that holds the lock.
type connExecutor struct {
	conn *pgx.Conn
}

func (e *connExecutor) InitializeVersionTable(ctx context.Context) error {
	_, err := e.conn.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	checksum TEXT NOT NULL DEFAULT ''
)`)
	if err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	return nil
}

func (e *connExecutor) AppliedVersions(ctx context.Context) ([]string, error) {
	rows, err := e.conn.Query(ctx, `SELECT version FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("list applied versions: %w", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan applied versions: %w", err)
	}
	return versions, nil
}

func (e *connExecutor) ExecuteMigration(ctx context.Context, m migration.Migration) error {
	tx, err := e.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", m.Version, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return fmt.Errorf("exec migration %s: %w", m.Version, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, checksum) VALUES ($1, $2)`, m.Version, m.Checksum); err != nil {
		return fmt.Errorf("record migration %s: %w", m.Version, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration %s: %w", m.Version, err)
	}
	return nil
}

// mapError translates pgx errors into persistence sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return persistence.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23502", "23514", "22001":
			return fmt.Errorf("%w: %s", persistence.ErrConstraintViolation, pgErr.Message)
		case "42P01":
			return fmt.Errorf("%w: %s", persistence.ErrUnavailable, pgErr.Message)
		}
		return err
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %v", persistence.ErrUnavailable, err)
	}
	return err
}
