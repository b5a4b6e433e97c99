package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vtseva/career-compass/internal/persistence"
)

type stubPersistenceRepo struct {
	received persistence.RSVP
	err      error
}

func (s *stubPersistenceRepo) CreateRSVP(_ context.Context, rsvp persistence.RSVP) (persistence.RSVP, error) {
	s.received = rsvp
	if s.err != nil {
		return persistence.RSVP{}, s.err
	}
	rsvp.ID = 42
	return rsvp, nil
}

func (s *stubPersistenceRepo) GetRSVP(context.Context, int64) (persistence.RSVP, error) {
	return persistence.RSVP{}, persistence.ErrNotFound
}

func (s *stubPersistenceRepo) CountRSVPs(context.Context) (int, error) {
	return 0, nil
}

func TestStoreRepositoryCopiesFields(t *testing.T) {
	phone := "555-0100"
	created := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	repo := &stubPersistenceRepo{}

	got, err := NewStoreRepository(repo).CreateRSVP(context.Background(), RSVP{
		Name:        "Asha",
		Email:       "asha@example.com",
		Phone:       &phone,
		Branch:      "Software",
		OptIn:       true,
		SpeakerName: "Anjali Mehta",
		SessionDate: "2025-03-23",
		CreatedAt:   created,
	})
	if err != nil {
		t.Fatalf("CreateRSVP returned error: %v", err)
	}
	if got.ID != 42 {
		t.Fatalf("expected id 42, got %d", got.ID)
	}
	if repo.received.Phone == nil || *repo.received.Phone != phone {
		t.Fatalf("phone not forwarded: %+v", repo.received.Phone)
	}
	if repo.received.Questions != nil {
		t.Fatalf("expected nil questions, got %q", *repo.received.Questions)
	}
	if !got.OptIn || got.Branch != "Software" || !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected round trip: %+v", got)
	}
}

func TestStoreRepositoryPassesErrorsThrough(t *testing.T) {
	repo := &stubPersistenceRepo{err: persistence.ErrUnavailable}

	_, err := NewStoreRepository(repo).CreateRSVP(context.Background(), RSVP{Name: "x"})
	if !errors.Is(err, persistence.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
