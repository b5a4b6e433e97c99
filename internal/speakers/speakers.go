// Package speakers holds the read-only speaker directory for the webinar series.
package speakers

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed speakers.yaml
var defaultDirectory []byte

// Category groups speakers by career field.
type Category string

const (
	CategoryAll      Category = "All"
	CategorySoftware Category = "Software"
	CategoryMedicine Category = "Medicine"
	CategoryOther    Category = "Other"
)

// ErrUnknownCategory is returned when a category name is not recognised.
var ErrUnknownCategory = errors.New("speakers: unknown category")

// ParseCategory normalises raw to a Category. An empty string means All.
func ParseCategory(raw string) (Category, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return CategoryAll, nil
	}
	// Casers carry state, so each call builds its own.
	switch c := Category(cases.Title(language.English).String(strings.ToLower(trimmed))); c {
	case CategoryAll, CategorySoftware, CategoryMedicine, CategoryOther:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, raw)
}

// Session describes when and where a speaker presents.
type Session struct {
	Date          string `yaml:"date" json:"date"`
	Time          string `yaml:"time" json:"time"`
	Link          string `yaml:"link" json:"link"`
	AddToCalendar string `yaml:"addToCalendar,omitempty" json:"addToCalendar,omitempty"`
}

// Speaker is one entry of the directory.
type Speaker struct {
	Name         string   `yaml:"name" json:"name"`
	Role         string   `yaml:"role" json:"role"`
	Organization string   `yaml:"organization" json:"organization"`
	Category     Category `yaml:"category" json:"category"`
	Blurb        string   `yaml:"blurb" json:"blurb"`
	Image        string   `yaml:"image" json:"image"`
	Session      Session  `yaml:"session" json:"session"`
}

const sessionLayout = "2006-01-02 15:04"

// Instant combines the session date and time in loc. ok is false when either
// part is malformed.
func (s Speaker) Instant(loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(sessionLayout, s.Session.Date+" "+s.Session.Time, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Slug returns a file and URL friendly identifier derived from the name.
func (s Speaker) Slug() string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s.Name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == ' ' || r == '_':
			b.WriteRune('_')
		}
	}
	return b.String()
}

// Directory is an ordered, immutable collection of speakers.
type Directory struct {
	speakers []Speaker
	byName   map[string]int
	bySlug   map[string]int
}

// Load parses a YAML speaker list. Names must be unique and categories valid.
func Load(data []byte) (*Directory, error) {
	var raw []Speaker
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("speakers: decode directory: %w", err)
	}

	dir := &Directory{
		speakers: make([]Speaker, 0, len(raw)),
		byName:   make(map[string]int, len(raw)),
		bySlug:   make(map[string]int, len(raw)),
	}
	for i, sp := range raw {
		sp.Name = strings.TrimSpace(sp.Name)
		if sp.Name == "" {
			return nil, fmt.Errorf("speakers: entry %d has no name", i)
		}
		category, err := ParseCategory(string(sp.Category))
		if err != nil || category == CategoryAll {
			return nil, fmt.Errorf("speakers: %s: invalid category %q", sp.Name, sp.Category)
		}
		sp.Category = category

		key := strings.ToLower(sp.Name)
		if _, dup := dir.byName[key]; dup {
			return nil, fmt.Errorf("speakers: duplicate speaker %q", sp.Name)
		}
		slug := sp.Slug()
		if _, dup := dir.bySlug[slug]; dup || slug == "" {
			return nil, fmt.Errorf("speakers: %q has an empty or conflicting slug %q", sp.Name, slug)
		}
		dir.byName[key] = len(dir.speakers)
		dir.bySlug[slug] = len(dir.speakers)
		dir.speakers = append(dir.speakers, sp)
	}
	return dir, nil
}

// Default returns the embedded series directory.
var Default = sync.OnceValues(func() (*Directory, error) {
	return Load(defaultDirectory)
})

// Len returns the number of speakers.
func (d *Directory) Len() int { return len(d.speakers) }

// All returns a copy of every speaker in directory order.
func (d *Directory) All() []Speaker {
	out := make([]Speaker, len(d.speakers))
	copy(out, d.speakers)
	return out
}

// Filter returns the speakers in category c, preserving order. CategoryAll
// returns everyone.
func (d *Directory) Filter(c Category) []Speaker {
	if c == CategoryAll || c == "" {
		return d.All()
	}
	out := make([]Speaker, 0, len(d.speakers))
	for _, sp := range d.speakers {
		if sp.Category == c {
			out = append(out, sp)
		}
	}
	return out
}

// Lookup finds a speaker by name, ignoring case.
func (d *Directory) Lookup(name string) (Speaker, bool) {
	i, ok := d.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Speaker{}, false
	}
	return d.speakers[i], true
}

// LookupSlug finds a speaker by Slug.
func (d *Directory) LookupSlug(slug string) (Speaker, bool) {
	i, ok := d.bySlug[slug]
	if !ok {
		return Speaker{}, false
	}
	return d.speakers[i], true
}
