package migration

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"time"
)

// Manager applies pending migrations from an embedded directory through an Executor.
type Manager struct {
	fsys     fs.FS
	dir      string
	executor Executor
	logger   *slog.Logger
}

// NewManager creates a Manager. A nil logger discards output.
func NewManager(fsys fs.FS, dir string, executor Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		fsys:     fsys,
		dir:      dir,
		executor: executor,
		logger:   logger.With(slog.String("component", "migration")),
	}
}

// Pending returns the migrations whose versions are not yet recorded.
func (m *Manager) Pending(ctx context.Context) ([]Migration, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("initialize version table: %w", err)
	}

	available, err := Scan(m.fsys, m.dir)
	if err != nil {
		return nil, fmt.Errorf("scan migrations: %w", err)
	}

	applied, err := m.executor.AppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("get applied versions: %w", err)
	}
	appliedSet := make(map[string]struct{}, len(applied))
	for _, v := range applied {
		appliedSet[normalizeVersion(v)] = struct{}{}
	}

	var pending []Migration
	for _, mig := range available {
		if _, ok := appliedSet[normalizeVersion(mig.Version)]; ok {
			continue
		}
		pending = append(pending, mig)
	}
	return pending, nil
}

// Run applies every pending migration in version order and returns the versions it applied.
// Running it against an up-to-date database is a no-op.
func (m *Manager) Run(ctx context.Context) ([]string, error) {
	started := time.Now()

	pending, err := m.Pending(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "migration scan failed", slog.Any("error", err))
		return nil, err
	}
	if len(pending) == 0 {
		m.logger.DebugContext(ctx, "schema up to date")
		return nil, nil
	}

	applied := make([]string, 0, len(pending))
	for i, mig := range pending {
		logger := m.logger.With(
			slog.String("version", mig.Version),
			slog.String("file", mig.FilePath),
		)
		logger.InfoContext(ctx, "applying migration",
			slog.String("description", mig.Description),
			slog.Int("position", i+1),
			slog.Int("total", len(pending)),
		)

		if err := m.executor.ExecuteMigration(ctx, mig); err != nil {
			logger.ErrorContext(ctx, "migration failed", slog.Any("error", err))
			return applied, NewMigrationError(mig.Version, mig.FilePath, "execute migration",
				fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}
		applied = append(applied, mig.Version)
	}

	m.logger.InfoContext(ctx, "migrations complete",
		slog.Int("applied", len(applied)),
		slog.Duration("elapsed", time.Since(started)),
	)
	return applied, nil
}
