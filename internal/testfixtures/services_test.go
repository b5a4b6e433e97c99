package testfixtures

import (
	"context"
	"testing"

	"github.com/vtseva/career-compass/internal/application"
)

type capturingRSVPRepo struct {
	created application.RSVP
}

func (c *capturingRSVPRepo) CreateRSVP(_ context.Context, rsvp application.RSVP) (application.RSVP, error) {
	rsvp.ID = 7
	c.created = rsvp
	return rsvp, nil
}

func TestServiceFactoryNewRSVPService(t *testing.T) {
	factory := NewServiceFactory()
	repo := &capturingRSVPRepo{}

	svc := factory.NewRSVPService(RSVPServiceDeps{RSVPs: repo})
	rsvp, err := svc.Submit(context.Background(), NewRSVPFixture().Params())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	if rsvp.ID != 7 {
		t.Fatalf("expected id 7, got %d", rsvp.ID)
	}
	if !repo.created.CreatedAt.Equal(factory.Clock.Now()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Now(), repo.created.CreatedAt)
	}
}

func TestServiceFactoryWithSQLiteHarness(t *testing.T) {
	harness := NewSQLiteHarness(t)
	svc := NewServiceFactory().NewRSVPService(RSVPServiceDeps{RSVPs: harness.ApplicationRSVPs()})

	fixture := NewRSVPFixture(WithRSVPCustomBranch("Civil Engineering"), WithRSVPPhone("555-0100"))
	rsvp, err := svc.Submit(context.Background(), fixture.Params())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if rsvp.ID <= 0 {
		t.Fatalf("expected generated id, got %d", rsvp.ID)
	}

	stored, err := harness.RSVPs.GetRSVP(context.Background(), rsvp.ID)
	if err != nil {
		t.Fatalf("GetRSVP returned error: %v", err)
	}
	if stored.Branch != "Civil Engineering" {
		t.Fatalf("expected custom branch to be stored, got %q", stored.Branch)
	}
	if stored.Phone == nil || *stored.Phone != "555-0100" {
		t.Fatalf("unexpected phone %v", stored.Phone)
	}
}
