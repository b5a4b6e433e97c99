package persistence

import "time"

// RSVP represents a single registration row in the rsvps table.
//
// Rows are append-only: the repositories expose no update or delete path.
type RSVP struct {
	ID          int64
	Name        string
	Email       string
	Phone       *string
	Branch      string
	Questions   *string
	OptIn       bool
	SpeakerName string
	SessionDate string
	CreatedAt   time.Time
}
