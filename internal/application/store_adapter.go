package application

import (
	"context"

	"github.com/vtseva/career-compass/internal/persistence"
)

// storeRepository adapts a persistence.RSVPRepository to RSVPRepository.
type storeRepository struct {
	repo persistence.RSVPRepository
}

// NewStoreRepository exposes a persistence repository to the service layer.
func NewStoreRepository(repo persistence.RSVPRepository) RSVPRepository {
	return storeRepository{repo: repo}
}

func (a storeRepository) CreateRSVP(ctx context.Context, rsvp RSVP) (RSVP, error) {
	stored, err := a.repo.CreateRSVP(ctx, toPersistenceRSVP(rsvp))
	if err != nil {
		return RSVP{}, err
	}
	return fromPersistenceRSVP(stored), nil
}

func toPersistenceRSVP(rsvp RSVP) persistence.RSVP {
	return persistence.RSVP{
		ID:          rsvp.ID,
		Name:        rsvp.Name,
		Email:       rsvp.Email,
		Phone:       rsvp.Phone,
		Branch:      rsvp.Branch,
		Questions:   rsvp.Questions,
		OptIn:       rsvp.OptIn,
		SpeakerName: rsvp.SpeakerName,
		SessionDate: rsvp.SessionDate,
		CreatedAt:   rsvp.CreatedAt,
	}
}

func fromPersistenceRSVP(rsvp persistence.RSVP) RSVP {
	return RSVP{
		ID:          rsvp.ID,
		Name:        rsvp.Name,
		Email:       rsvp.Email,
		Phone:       rsvp.Phone,
		Branch:      rsvp.Branch,
		Questions:   rsvp.Questions,
		OptIn:       rsvp.OptIn,
		SpeakerName: rsvp.SpeakerName,
		SessionDate: rsvp.SessionDate,
		CreatedAt:   rsvp.CreatedAt,
	}
}
