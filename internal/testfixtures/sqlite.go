package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/vtseva/career-compass/internal/application"
	"github.com/vtseva/career-compass/internal/persistence"
	"github.com/vtseva/career-compass/internal/persistence/sqlite"
)

// SQLiteHarness provides RSVP storage backed by a temporary, migrated SQLite
// file for integration-style tests.
type SQLiteHarness struct {
	Store *sqlite.Store
	RSVPs persistence.RSVPRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// ApplicationRSVPs exposes the store through the service layer's repository interface.
func (h *SQLiteHarness) ApplicationRSVPs() application.RSVPRepository {
	return application.NewStoreRepository(h.RSVPs)
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// will also register a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "compass.db")
	ctx := context.Background()

	store, err := sqlite.Open(ctx, sqlite.TempFileTestConfig(path), nil, nil)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Store: store,
		RSVPs: store,
		cleanup: func() {
			_ = store.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
