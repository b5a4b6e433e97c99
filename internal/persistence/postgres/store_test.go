package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vtseva/career-compass/internal/persistence"
)

const testDBLockID int64 = 502318

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("skipping Postgres integration tests: TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := Open(ctx, dsn, Options{MaxConns: 4})
	if err != nil {
		t.Skipf("skipping Postgres integration tests: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	lockTestDB(t, store)

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}
	if _, err := store.Pool().Exec(ctx, `TRUNCATE rsvps RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return store
}

func lockTestDB(t *testing.T, store *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := store.Pool().Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire lock conn: %v", err)
	}
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, testDBLockID); err != nil {
		conn.Release()
		t.Fatalf("acquire test lock: %v", err)
	}
	t.Cleanup(func() {
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, testDBLockID)
		conn.Release()
	})
}

func sampleRSVP() persistence.RSVP {
	questions := "How did you choose your residency?"
	return persistence.RSVP{
		Name:        "Ravi Kumar",
		Email:       "ravi@example.com",
		Branch:      "Medicine",
		Questions:   &questions,
		SpeakerName: "Dr. Meera Rao",
		SessionDate: "2025-03-30 19:00",
	}
}

func TestRSVPRepository_Postgres(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.CreateRSVP(ctx, sampleRSVP())
	if err != nil {
		t.Fatalf("CreateRSVP failed: %v", err)
	}
	second, err := store.CreateRSVP(ctx, sampleRSVP())
	if err != nil {
		t.Fatalf("CreateRSVP failed: %v", err)
	}
	if second.ID <= first.ID {
		t.Fatalf("expected increasing ids, got %d then %d", first.ID, second.ID)
	}

	fetched, err := store.GetRSVP(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetRSVP failed: %v", err)
	}
	if fetched.Phone != nil {
		t.Fatalf("expected NULL phone, got %q", *fetched.Phone)
	}
	if fetched.Questions == nil || *fetched.Questions != *sampleRSVP().Questions {
		t.Fatalf("expected questions to round-trip, got %v", fetched.Questions)
	}
	if fetched.OptIn {
		t.Fatal("expected opt_in to default to false")
	}

	empty := sampleRSVP()
	empty.Name = " "
	if _, err := store.CreateRSVP(ctx, empty); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	count, err := store.CountRSVPs(ctx)
	if err != nil {
		t.Fatalf("CountRSVPs failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows, got %d", count)
	}

	if _, err := store.GetRSVP(ctx, 9999); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, persistence.ErrNotFound},
		{"check violation", &pgconn.PgError{Code: "23514", Message: "check"}, persistence.ErrConstraintViolation},
		{"not null", &pgconn.PgError{Code: "23502", Message: "null"}, persistence.ErrConstraintViolation},
		{"too long", &pgconn.PgError{Code: "22001", Message: "value too long"}, persistence.ErrConstraintViolation},
		{"missing table", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "42P01"}), persistence.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapError(tt.err); !errors.Is(got, tt.want) {
				t.Fatalf("mapError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}

	plain := errors.New("boom")
	if got := mapError(plain); got != plain {
		t.Fatalf("expected unknown errors to pass through, got %v", got)
	}
	if mapError(nil) != nil {
		t.Fatal("expected nil for nil")
	}
}
