package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vtseva/career-compass/internal/persistence"
)

// RSVPRepository implements persistence.RSVPRepository on PostgreSQL.
type RSVPRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewRSVPRepository creates a repository. A nil now uses time.Now.
func NewRSVPRepository(pool *pgxpool.Pool, now func() time.Time) *RSVPRepository {
	if now == nil {
		now = time.Now
	}
	return &RSVPRepository{pool: pool, now: now}
}

// CreateRSVP inserts rsvp and returns it with the generated id.
func (r *RSVPRepository) CreateRSVP(ctx context.Context, rsvp persistence.RSVP) (persistence.RSVP, error) {
	const query = `
INSERT INTO rsvps (name, email, phone, branch, questions, opt_in, speaker_name, session_date, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, created_at`

	createdAt := r.now().UTC()
	err := r.pool.QueryRow(ctx, query,
		rsvp.Name,
		rsvp.Email,
		rsvp.Phone,
		rsvp.Branch,
		rsvp.Questions,
		rsvp.OptIn,
		rsvp.SpeakerName,
		rsvp.SessionDate,
		createdAt,
	).Scan(&rsvp.ID, &rsvp.CreatedAt)
	if err != nil {
		return persistence.RSVP{}, fmt.Errorf("insert rsvp: %w", mapError(err))
	}
	rsvp.CreatedAt = rsvp.CreatedAt.UTC()
	return rsvp, nil
}

// GetRSVP retrieves one RSVP by id.
func (r *RSVPRepository) GetRSVP(ctx context.Context, id int64) (persistence.RSVP, error) {
	const query = `
SELECT id, name, email, phone, branch, questions, opt_in, speaker_name, session_date, created_at
FROM rsvps
WHERE id = $1`

	var rsvp persistence.RSVP
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rsvp.ID,
		&rsvp.Name,
		&rsvp.Email,
		&rsvp.Phone,
		&rsvp.Branch,
		&rsvp.Questions,
		&rsvp.OptIn,
		&rsvp.SpeakerName,
		&rsvp.SessionDate,
		&rsvp.CreatedAt,
	)
	if err != nil {
		return persistence.RSVP{}, mapError(err)
	}
	rsvp.CreatedAt = rsvp.CreatedAt.UTC()
	return rsvp, nil
}

// CountRSVPs returns the number of stored submissions.
func (r *RSVPRepository) CountRSVPs(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rsvps`).Scan(&count); err != nil {
		return 0, mapError(err)
	}
	return count, nil
}
