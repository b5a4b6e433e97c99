// Package scheduler derives session state from the speaker directory and the
// current time: the join window, the countdown and the next-up selection.
package scheduler

import (
	"time"

	"github.com/vtseva/career-compass/internal/speakers"
)

// State is the lifecycle position of one session relative to now.
type State string

const (
	StateUpcoming State = "upcoming"
	StateJoinable State = "joinable"
	StatePast     State = "past"
)

// Default join window settings.
const (
	DefaultLeadWindow time.Duration = 15 * time.Minute
	DefaultPastGrace  time.Duration = 0
)

// Policy decides when a session opens for joining and when it becomes past.
type Policy struct {
	// LeadWindow is how long before the start the join link is offered.
	LeadWindow time.Duration
	// PastGrace is how long after the start the session still counts as joinable.
	PastGrace time.Duration
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{LeadWindow: DefaultLeadWindow, PastGrace: DefaultPastGrace}
}

// Classify places instant relative to now. The boundaries are inclusive on the
// joinable side.
func (p Policy) Classify(instant, now time.Time) State {
	switch {
	case now.After(instant.Add(p.PastGrace)):
		return StatePast
	case !now.Before(instant.Add(-p.LeadWindow)):
		return StateJoinable
	default:
		return StateUpcoming
	}
}

// ClassifySpeaker classifies the speaker's session. A malformed date or time is
// reported as upcoming.
func (p Policy) ClassifySpeaker(sp speakers.Speaker, loc *time.Location, now time.Time) State {
	instant, ok := sp.Instant(loc)
	if !ok {
		return StateUpcoming
	}
	return p.Classify(instant, now)
}
