// Package calendar renders Google Calendar template links and iCalendar
// (RFC 5545) documents for the webinar sessions.
package calendar

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/vtseva/career-compass/internal/speakers"
)

const (
	// SeriesTitle prefixes every event summary.
	SeriesTitle = "VT Seva Career Compass"
	// ProductID identifies the generator inside .ics documents.
	ProductID = "-//VT Seva Career Compass//EN"
	// SeriesFileName is the file name of the whole-series document.
	SeriesFileName = "career_compass_series.ics"

	googleTemplateURL = "https://calendar.google.com/calendar/render"
	utcStampLayout    = "20060102T150405Z"
	uidDomain         = "careercompass.vtseva.org"
)

// DefaultSessionLength is used when a Builder has no explicit duration.
const DefaultSessionLength = time.Hour

// ErrMalformedSession is returned for speakers whose date or time cannot be parsed.
var ErrMalformedSession = errors.New("calendar: malformed session date or time")

// Event is a single calendar entry derived from a speaker.
type Event struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
}

// Builder converts speakers into calendar artefacts.
type Builder struct {
	loc      *time.Location
	duration time.Duration
	now      func() time.Time
}

// NewBuilder creates a Builder interpreting session times in loc. A zero
// duration uses DefaultSessionLength and a nil now uses time.Now.
func NewBuilder(loc *time.Location, duration time.Duration, now func() time.Time) *Builder {
	if loc == nil {
		loc = time.UTC
	}
	if duration <= 0 {
		duration = DefaultSessionLength
	}
	if now == nil {
		now = time.Now
	}
	return &Builder{loc: loc, duration: duration, now: now}
}

// Event builds the calendar event for sp.
func (b *Builder) Event(sp speakers.Speaker) (Event, error) {
	start, ok := sp.Instant(b.loc)
	if !ok {
		return Event{}, fmt.Errorf("%w: %s", ErrMalformedSession, sp.Name)
	}
	start = start.UTC()
	return Event{
		UID:         fmt.Sprintf("%s-%s@%s", sp.Slug(), start.Format("20060102"), uidDomain),
		Summary:     fmt.Sprintf("%s: %s", SeriesTitle, sp.Name),
		Description: describe(sp),
		Location:    sp.Session.Link,
		Start:       start,
		End:         start.Add(b.duration),
	}, nil
}

func describe(sp speakers.Speaker) string {
	desc := fmt.Sprintf("%s is a %s at %s.", sp.Name, sp.Role, sp.Organization)
	if blurb := strings.TrimSpace(sp.Blurb); blurb != "" {
		desc += " " + blurb
	}
	return desc
}

// GoogleLink returns the "add to Google Calendar" template URL for sp.
func (b *Builder) GoogleLink(sp speakers.Speaker) (string, error) {
	ev, err := b.Event(sp)
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", ev.Summary)
	q.Set("dates", ev.Start.Format(utcStampLayout)+"/"+ev.End.Format(utcStampLayout))
	q.Set("details", ev.Description)
	q.Set("location", ev.Location)
	return googleTemplateURL + "?" + q.Encode(), nil
}

// WithCalendarLinks returns a copy of list where every empty AddToCalendar is
// filled with the Google link. Speakers with malformed sessions are left as is.
func (b *Builder) WithCalendarLinks(list []speakers.Speaker) []speakers.Speaker {
	out := make([]speakers.Speaker, len(list))
	for i, sp := range list {
		if sp.Session.AddToCalendar == "" {
			if link, err := b.GoogleLink(sp); err == nil {
				sp.Session.AddToCalendar = link
			}
		}
		out[i] = sp
	}
	return out
}

// SpeakerICS renders a calendar document containing sp's session.
func (b *Builder) SpeakerICS(sp speakers.Speaker) ([]byte, error) {
	ev, err := b.Event(sp)
	if err != nil {
		return nil, err
	}
	return b.render([]Event{ev}), nil
}

// SeriesICS renders one calendar document containing every valid session in
// list. Malformed sessions are skipped.
func (b *Builder) SeriesICS(list []speakers.Speaker) []byte {
	events := make([]Event, 0, len(list))
	for _, sp := range list {
		ev, err := b.Event(sp)
		if err != nil {
			continue
		}
		events = append(events, ev)
	}
	return b.render(events)
}

// WriteFiles writes one .ics per speaker plus the series document into dir and
// returns the paths written.
func (b *Builder) WriteFiles(dir string, list []speakers.Speaker) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("calendar: create %s: %w", dir, err)
	}

	var written []string
	for _, sp := range list {
		doc, err := b.SpeakerICS(sp)
		if err != nil {
			return written, err
		}
		path := filepath.Join(dir, sp.Slug()+".ics")
		if err := os.WriteFile(path, doc, 0o644); err != nil {
			return written, fmt.Errorf("calendar: write %s: %w", path, err)
		}
		written = append(written, path)
	}

	path := filepath.Join(dir, SeriesFileName)
	if err := os.WriteFile(path, b.SeriesICS(list), 0o644); err != nil {
		return written, fmt.Errorf("calendar: write %s: %w", path, err)
	}
	return append(written, path), nil
}

func (b *Builder) render(events []Event) []byte {
	cal := ics.NewCalendarFor(SeriesTitle)
	cal.SetProductId(ProductID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ics.MethodPublish)

	stamp := b.now().UTC()
	for _, ev := range events {
		vevent := cal.AddEvent(ev.UID)
		vevent.SetDtStampTime(stamp)
		vevent.SetStartAt(ev.Start)
		vevent.SetEndAt(ev.End)
		vevent.SetSummary(clean(ev.Summary))
		vevent.SetDescription(clean(ev.Description))
		if ev.Location != "" {
			vevent.SetLocation(clean(ev.Location))
			vevent.SetURL(clean(ev.Location))
		}
	}
	return []byte(cal.Serialize())
}

// clean drops invalid UTF-8; content lines must be UTF-8 text.
func clean(s string) string {
	return strings.ToValidUTF8(s, "")
}
