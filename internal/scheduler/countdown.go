package scheduler

import (
	"context"
	"time"
)

// Breakdown is the remaining time until a session split into display units.
type Breakdown struct {
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
	Seconds int64 `json:"seconds"`

	// Total is the exact remaining duration. It is zero once expired.
	Total time.Duration `json:"-"`
}

// Expired reports whether the target has been reached.
func (b Breakdown) Expired() bool {
	return b.Total <= 0
}

// Remaining computes the floor-divided breakdown of target - now. The zero
// Breakdown is returned once target is not in the future.
func Remaining(target, now time.Time) Breakdown {
	diff := target.Sub(now)
	if diff <= 0 {
		return Breakdown{}
	}
	secs := int64(diff / time.Second)
	return Breakdown{
		Days:    secs / 86400,
		Hours:   (secs / 3600) % 24,
		Minutes: (secs / 60) % 60,
		Seconds: secs % 60,
		Total:   diff,
	}
}

// DefaultCountdownInterval is the refresh rate of Countdown.
const DefaultCountdownInterval = time.Second

// Countdown emits Remaining(target, now()) immediately and then on every tick.
// The channel is closed when ctx is done or after the expired breakdown has
// been delivered. The ticker is released in both cases.
func Countdown(ctx context.Context, target time.Time, now func() time.Time, interval time.Duration) <-chan Breakdown {
	if now == nil {
		now = time.Now
	}
	if interval <= 0 {
		interval = DefaultCountdownInterval
	}

	out := make(chan Breakdown, 1)
	go func() {
		defer close(out)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			b := Remaining(target, now())
			select {
			case out <- b:
			case <-ctx.Done():
				return
			}
			if b.Expired() {
				return
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
