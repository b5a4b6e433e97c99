package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/vtseva/career-compass/internal/calendar"
	"github.com/vtseva/career-compass/internal/scheduler"
	"github.com/vtseva/career-compass/internal/speakers"
)

type speakerDirectory interface {
	All() []speakers.Speaker
	Filter(c speakers.Category) []speakers.Speaker
	LookupSlug(slug string) (speakers.Speaker, bool)
}

// SessionClock places sessions in time for the read endpoints.
type SessionClock struct {
	Policy   scheduler.Policy
	Location *time.Location
	Now      func() time.Time
}

func (c SessionClock) withDefaults() SessionClock {
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

type SpeakerHandler struct {
	directory speakerDirectory
	clock     SessionClock
	links     *calendar.Builder
	responder responder
	logger    *slog.Logger
}

// NewSpeakerHandler builds the handler for the directory endpoints. A nil links
// builder leaves addToCalendar as loaded.
func NewSpeakerHandler(directory speakerDirectory, clock SessionClock, links *calendar.Builder, logger *slog.Logger) *SpeakerHandler {
	base := defaultLogger(logger)
	return &SpeakerHandler{
		directory: directory,
		clock:     clock.withDefaults(),
		links:     links,
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *SpeakerHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SpeakerHandler", operation, attrs...)
}

// List handles GET /api/speakers.
func (h *SpeakerHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.directory == nil {
		newResponder(nil).writeError(r.Context(), w, http.StatusInternalServerError, nil)
		return
	}

	raw := r.URL.Query().Get("category")
	category, err := speakers.ParseCategory(raw)
	if err != nil {
		h.log(r.Context(), "List", "category", raw, "error_kind", "bad_request").WarnContext(r.Context(), "unknown speaker category")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errUnknownCategory)
		return
	}

	now := h.clock.Now()
	list := h.withLinks(h.directory.Filter(category))
	out := make([]speakerDTO, 0, len(list))
	for _, sp := range list {
		out = append(out, h.toDTO(sp, now))
	}

	h.log(r.Context(), "List", "category", string(category)).With("result_count", len(out)).DebugContext(r.Context(), "speakers listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSpeakersResponse{Category: category, Speakers: out})
}

// Next handles GET /api/next.
func (h *SpeakerHandler) Next(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.directory == nil {
		newResponder(nil).writeError(r.Context(), w, http.StatusInternalServerError, nil)
		return
	}

	now := h.clock.Now()
	sp, ok := scheduler.NextUp(h.directory.All(), h.clock.Location, now)
	if !ok {
		h.log(r.Context(), "Next").DebugContext(r.Context(), "no upcoming session")
		h.responder.writeJSON(r.Context(), w, http.StatusOK, nextResponse{})
		return
	}

	sp = h.withLinks([]speakers.Speaker{sp})[0]
	dto := h.toDTO(sp, now)
	instant, _ := sp.Instant(h.clock.Location)
	countdown := scheduler.Remaining(instant, now)

	h.log(r.Context(), "Next", "speaker_name", sp.Name).DebugContext(r.Context(), "next session resolved")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, nextResponse{Next: &dto, Countdown: &countdown})
}

func (h *SpeakerHandler) withLinks(list []speakers.Speaker) []speakers.Speaker {
	if h.links == nil {
		return list
	}
	return h.links.WithCalendarLinks(list)
}

func (h *SpeakerHandler) toDTO(sp speakers.Speaker, now time.Time) speakerDTO {
	dto := speakerDTO{
		Speaker: sp,
		Slug:    sp.Slug(),
		State:   h.clock.Policy.ClassifySpeaker(sp, h.clock.Location, now),
	}
	if instant, ok := sp.Instant(h.clock.Location); ok {
		dto.Instant = &instant
	}
	return dto
}

type speakerDTO struct {
	speakers.Speaker
	Slug    string          `json:"slug"`
	State   scheduler.State `json:"state"`
	Instant *time.Time      `json:"instant,omitempty"`
}

type listSpeakersResponse struct {
	Category speakers.Category `json:"category"`
	Speakers []speakerDTO      `json:"speakers"`
}

type nextResponse struct {
	Next      *speakerDTO          `json:"next"`
	Countdown *scheduler.Breakdown `json:"countdown"`
}
