package persistence

import "context"

// RSVPRepository stores RSVP submissions.
type RSVPRepository interface {
	// CreateRSVP inserts the record and returns it with the assigned ID and creation time.
	CreateRSVP(ctx context.Context, rsvp RSVP) (RSVP, error)
	GetRSVP(ctx context.Context, id int64) (RSVP, error)
	CountRSVPs(ctx context.Context) (int, error)
}

// Store is a migrated RSVP repository with an explicit lifecycle.
type Store interface {
	RSVPRepository
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
