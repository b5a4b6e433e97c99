package scheduler

import (
	"sort"
	"time"

	"github.com/vtseva/career-compass/internal/speakers"
)

// NextUp returns the speaker with the earliest session strictly after now.
// Equal instants keep directory order. Speakers with malformed sessions are
// skipped. ok is false when no session is in the future.
func NextUp(list []speakers.Speaker, loc *time.Location, now time.Time) (speakers.Speaker, bool) {
	type candidate struct {
		speaker speakers.Speaker
		instant time.Time
	}

	future := make([]candidate, 0, len(list))
	for _, sp := range list {
		instant, ok := sp.Instant(loc)
		if !ok || !instant.After(now) {
			continue
		}
		future = append(future, candidate{speaker: sp, instant: instant})
	}
	if len(future) == 0 {
		return speakers.Speaker{}, false
	}

	sort.SliceStable(future, func(i, j int) bool {
		return future[i].instant.Before(future[j].instant)
	})
	return future[0].speaker, true
}
