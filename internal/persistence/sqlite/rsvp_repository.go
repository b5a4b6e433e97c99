package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vtseva/career-compass/internal/persistence"
)

// RSVPRepository implements persistence.RSVPRepository using SQLite.
type RSVPRepository struct {
	db     *sql.DB
	mapper *ErrorMapper
	now    func() time.Time
}

// NewRSVPRepository creates a repository over the pool. A nil now uses time.Now.
func NewRSVPRepository(pool *ConnectionPool, now func() time.Time) *RSVPRepository {
	if now == nil {
		now = time.Now
	}
	return &RSVPRepository{
		db:     pool.DB(),
		mapper: NewErrorMapper(),
		now:    now,
	}
}

// CreateRSVP inserts rsvp and returns it with the generated id and timestamp.
func (r *RSVPRepository) CreateRSVP(ctx context.Context, rsvp persistence.RSVP) (persistence.RSVP, error) {
	createdAt := r.now().UTC()

	const query = `
		INSERT INTO rsvps (name, email, phone, branch, questions, opt_in, speaker_name, session_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		rsvp.Name,
		rsvp.Email,
		nullString(rsvp.Phone),
		rsvp.Branch,
		nullString(rsvp.Questions),
		rsvp.OptIn,
		rsvp.SpeakerName,
		rsvp.SessionDate,
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return persistence.RSVP{}, fmt.Errorf("insert rsvp: %w", r.mapper.MapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return persistence.RSVP{}, fmt.Errorf("read rsvp id: %w", err)
	}

	rsvp.ID = id
	rsvp.CreatedAt = createdAt
	return rsvp, nil
}

// GetRSVP retrieves one RSVP by id.
func (r *RSVPRepository) GetRSVP(ctx context.Context, id int64) (persistence.RSVP, error) {
	const query = `
		SELECT id, name, email, phone, branch, questions, opt_in, speaker_name, session_date, created_at
		FROM rsvps
		WHERE id = ?
	`

	var (
		rsvp      persistence.RSVP
		phone     sql.NullString
		questions sql.NullString
		createdAt string
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rsvp.ID,
		&rsvp.Name,
		&rsvp.Email,
		&phone,
		&rsvp.Branch,
		&questions,
		&rsvp.OptIn,
		&rsvp.SpeakerName,
		&rsvp.SessionDate,
		&createdAt,
	)
	if err != nil {
		return persistence.RSVP{}, r.mapper.MapError(err)
	}

	rsvp.Phone = stringPtr(phone)
	rsvp.Questions = stringPtr(questions)
	if rsvp.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return persistence.RSVP{}, fmt.Errorf("parse created_at: %w", err)
	}
	return rsvp, nil
}

// CountRSVPs returns the number of stored submissions.
func (r *RSVPRepository) CountRSVPs(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rsvps`).Scan(&count); err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}
