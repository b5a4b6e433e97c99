package testfixtures

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vtseva/career-compass/internal/application"
	"github.com/vtseva/career-compass/internal/persistence"
	"github.com/vtseva/career-compass/internal/speakers"
)

var (
	rsvpCounter    uint64
	speakerCounter uint64
)

// referenceTime sits a few days before the first session of the series.
var referenceTime = time.Date(2025, time.March, 20, 16, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- RSVP fixtures -----------------------------

// RSVPFixture represents a deterministic registration that can be materialised
// for application, persistence or transport tests.
type RSVPFixture struct {
	Name         string
	Email        string
	Phone        *string
	Branch       string
	CustomBranch string
	Questions    *string
	OptIn        bool
	SpeakerName  string
	SessionDate  string
	CreatedAt    time.Time
}

// RSVPOption configures the generated RSVP fixture.
type RSVPOption func(*RSVPFixture)

// NewRSVPFixture returns a valid RSVP fixture with optional overrides.
func NewRSVPFixture(opts ...RSVPOption) RSVPFixture {
	idx := atomic.AddUint64(&rsvpCounter, 1)
	fixture := RSVPFixture{
		Name:        fmt.Sprintf("Attendee %03d", idx),
		Email:       fmt.Sprintf("attendee-%03d@example.com", idx),
		Branch:      "Software",
		SpeakerName: "Anjali Mehta",
		SessionDate: "2025-03-23 19:00",
		CreatedAt:   referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRSVPName overrides the attendee name.
func WithRSVPName(name string) RSVPOption {
	return func(f *RSVPFixture) {
		f.Name = name
	}
}

// WithRSVPEmail overrides the attendee email.
func WithRSVPEmail(email string) RSVPOption {
	return func(f *RSVPFixture) {
		f.Email = email
	}
}

// WithRSVPPhone sets the optional phone number.
func WithRSVPPhone(phone string) RSVPOption {
	return func(f *RSVPFixture) {
		f.Phone = &phone
	}
}

// WithRSVPBranch overrides the branch selection.
func WithRSVPBranch(branch string) RSVPOption {
	return func(f *RSVPFixture) {
		f.Branch = branch
		f.CustomBranch = ""
	}
}

// WithRSVPCustomBranch selects the "custom" branch token with free text.
func WithRSVPCustomBranch(text string) RSVPOption {
	return func(f *RSVPFixture) {
		f.Branch = "custom"
		f.CustomBranch = text
	}
}

// WithRSVPQuestions sets the optional questions text.
func WithRSVPQuestions(questions string) RSVPOption {
	return func(f *RSVPFixture) {
		f.Questions = &questions
	}
}

// WithRSVPOptIn sets the communication opt-in flag.
func WithRSVPOptIn(optIn bool) RSVPOption {
	return func(f *RSVPFixture) {
		f.OptIn = optIn
	}
}

// WithRSVPSession overrides the speaker and session the RSVP is for.
func WithRSVPSession(speakerName, sessionDate string) RSVPOption {
	return func(f *RSVPFixture) {
		f.SpeakerName = speakerName
		f.SessionDate = sessionDate
	}
}

// Params converts the fixture into submission parameters.
func (f RSVPFixture) Params() application.SubmitRSVPParams {
	return application.SubmitRSVPParams{
		Name:         f.Name,
		Email:        f.Email,
		Phone:        deref(f.Phone),
		Branch:       f.Branch,
		CustomBranch: f.CustomBranch,
		Questions:    deref(f.Questions),
		OptIn:        f.OptIn,
		SpeakerName:  f.SpeakerName,
		SessionDate:  f.SessionDate,
	}
}

// Application converts the fixture into the stored application model. A
// custom branch is resolved to its free text.
func (f RSVPFixture) Application() application.RSVP {
	branch := f.Branch
	if f.CustomBranch != "" {
		branch = f.CustomBranch
	}
	return application.RSVP{
		Name:        f.Name,
		Email:       f.Email,
		Phone:       f.Phone,
		Branch:      branch,
		Questions:   f.Questions,
		OptIn:       f.OptIn,
		SpeakerName: f.SpeakerName,
		SessionDate: f.SessionDate,
		CreatedAt:   f.CreatedAt,
	}
}

// Persistence converts the fixture into a persistence row.
func (f RSVPFixture) Persistence() persistence.RSVP {
	app := f.Application()
	return persistence.RSVP{
		Name:        app.Name,
		Email:       app.Email,
		Phone:       app.Phone,
		Branch:      app.Branch,
		Questions:   app.Questions,
		OptIn:       app.OptIn,
		SpeakerName: app.SpeakerName,
		SessionDate: app.SessionDate,
		CreatedAt:   app.CreatedAt,
	}
}

// Body returns the fixture as a POST /api/rsvp request document.
func (f RSVPFixture) Body() map[string]any {
	body := map[string]any{
		"name":        f.Name,
		"email":       f.Email,
		"branch":      f.Branch,
		"optIn":       f.OptIn,
		"speakerName": f.SpeakerName,
		"sessionDate": f.SessionDate,
	}
	if f.Phone != nil {
		body["phone"] = *f.Phone
	}
	if f.CustomBranch != "" {
		body["customBranch"] = f.CustomBranch
	}
	if f.Questions != nil {
		body["questions"] = *f.Questions
	}
	return body
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// --------------------------- Speaker fixtures ----------------------------

// SpeakerOption configures a generated speaker.
type SpeakerOption func(*speakers.Speaker)

// NewSpeaker returns a speaker in the Software category whose session starts
// one day after ReferenceTime, in UTC wall-clock terms.
func NewSpeaker(opts ...SpeakerOption) speakers.Speaker {
	idx := atomic.AddUint64(&speakerCounter, 1)
	start := referenceTime.Add(24 * time.Hour)
	sp := speakers.Speaker{
		Name:         fmt.Sprintf("Speaker %03d", idx),
		Role:         "Engineer",
		Organization: "Example Org",
		Category:     speakers.CategorySoftware,
		Blurb:        "Talks about careers.",
		Image:        fmt.Sprintf("/images/speakers/speaker-%03d.png", idx),
		Session: speakers.Session{
			Date: start.Format("2006-01-02"),
			Time: start.Format("15:04"),
			Link: fmt.Sprintf("https://meet.example.com/speaker-%03d", idx),
		},
	}
	for _, opt := range opts {
		opt(&sp)
	}
	return sp
}

// WithSpeakerName overrides the speaker name.
func WithSpeakerName(name string) SpeakerOption {
	return func(sp *speakers.Speaker) {
		sp.Name = name
	}
}

// WithSpeakerCategory overrides the category.
func WithSpeakerCategory(c speakers.Category) SpeakerOption {
	return func(sp *speakers.Speaker) {
		sp.Category = c
	}
}

// WithSpeakerSession sets the raw session date and time strings.
func WithSpeakerSession(date, clock string) SpeakerOption {
	return func(sp *speakers.Speaker) {
		sp.Session.Date = date
		sp.Session.Time = clock
	}
}

// WithSpeakerStart sets the session date and time from t's wall clock.
func WithSpeakerStart(t time.Time) SpeakerOption {
	return func(sp *speakers.Speaker) {
		sp.Session.Date = t.Format("2006-01-02")
		sp.Session.Time = t.Format("15:04")
	}
}

// NewDirectory round-trips list through YAML and the directory loader so tests
// exercise the same validation as the embedded document.
func NewDirectory(tb testing.TB, list ...speakers.Speaker) *speakers.Directory {
	tb.Helper()

	data, err := yaml.Marshal(list)
	if err != nil {
		tb.Fatalf("failed to marshal speakers: %v", err)
	}
	dir, err := speakers.Load(data)
	if err != nil {
		tb.Fatalf("failed to load speakers: %v", err)
	}
	return dir
}
