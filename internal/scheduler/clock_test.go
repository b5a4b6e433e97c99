package scheduler

import (
	"testing"
	"time"

	"github.com/vtseva/career-compass/internal/speakers"
)

func TestPolicyClassify(t *testing.T) {
	instant := time.Date(2025, 3, 23, 23, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		policy Policy
		now    time.Time
		want   State
	}{
		{"well before", DefaultPolicy(), instant.Add(-24 * time.Hour), StateUpcoming},
		{"just outside lead window", DefaultPolicy(), instant.Add(-15*time.Minute - time.Second), StateUpcoming},
		{"lead window boundary", DefaultPolicy(), instant.Add(-15 * time.Minute), StateJoinable},
		{"at start", DefaultPolicy(), instant, StateJoinable},
		{"one second after start without grace", DefaultPolicy(), instant.Add(time.Second), StatePast},
		{"inside grace", Policy{LeadWindow: 15 * time.Minute, PastGrace: time.Hour}, instant.Add(59 * time.Minute), StateJoinable},
		{"grace boundary", Policy{LeadWindow: 15 * time.Minute, PastGrace: time.Hour}, instant.Add(time.Hour), StateJoinable},
		{"after grace", Policy{LeadWindow: 15 * time.Minute, PastGrace: time.Hour}, instant.Add(time.Hour + time.Second), StatePast},
		{"zero policy before", Policy{}, instant.Add(-time.Second), StateUpcoming},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.Classify(instant, tt.now); got != tt.want {
				t.Fatalf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPolicyClassifyIsMonotonic(t *testing.T) {
	policy := Policy{LeadWindow: 15 * time.Minute, PastGrace: 30 * time.Minute}
	instant := time.Date(2025, 4, 2, 23, 0, 0, 0, time.UTC)
	rank := map[State]int{StateUpcoming: 0, StateJoinable: 1, StatePast: 2}

	prev := StateUpcoming
	for now := instant.Add(-time.Hour); now.Before(instant.Add(time.Hour)); now = now.Add(time.Minute) {
		state := policy.Classify(instant, now)
		if rank[state] < rank[prev] {
			t.Fatalf("state went backwards at %v: %s -> %s", now, prev, state)
		}
		prev = state
	}
	if prev != StatePast {
		t.Fatalf("expected to end in past, got %s", prev)
	}
}

func TestPolicyClassifySpeakerMalformed(t *testing.T) {
	sp := speakers.Speaker{Name: "Broken", Session: speakers.Session{Date: "2025-03-23", Time: "evening"}}
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	if got := DefaultPolicy().ClassifySpeaker(sp, time.UTC, now); got != StateUpcoming {
		t.Fatalf("expected malformed session to be upcoming, got %s", got)
	}
}
