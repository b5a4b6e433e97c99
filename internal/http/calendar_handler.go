package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vtseva/career-compass/internal/calendar"
)

const (
	calendarContentType = "text/calendar; charset=utf-8"
	seriesCalendarName  = "series"
)

type CalendarHandler struct {
	directory speakerDirectory
	builder   *calendar.Builder
	responder responder
	logger    *slog.Logger
}

func NewCalendarHandler(directory speakerDirectory, builder *calendar.Builder, logger *slog.Logger) *CalendarHandler {
	base := defaultLogger(logger)
	return &CalendarHandler{directory: directory, builder: builder, responder: newResponder(base), logger: base}
}

func (h *CalendarHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CalendarHandler", operation, attrs...)
}

// Get handles GET /api/calendar/{name}.ics where name is "series" or a speaker slug.
func (h *CalendarHandler) Get(w http.ResponseWriter, r *http.Request, name string) {
	if h == nil || h.directory == nil || h.builder == nil {
		newResponder(nil).writeError(r.Context(), w, http.StatusInternalServerError, nil)
		return
	}

	logger := h.log(r.Context(), "Get", "calendar", name)

	if name == seriesCalendarName {
		h.writeCalendar(w, calendar.SeriesFileName, h.builder.SeriesICS(h.directory.All()))
		logger.DebugContext(r.Context(), "series calendar served")
		return
	}

	sp, ok := h.directory.LookupSlug(name)
	if !ok {
		logger.With("error_kind", "not_found").WarnContext(r.Context(), "unknown calendar requested")
		h.responder.writeError(r.Context(), w, http.StatusNotFound, errCalendarNotFound)
		return
	}

	doc, err := h.builder.SpeakerICS(sp)
	if err != nil {
		logger.With("error_kind", "not_found").WarnContext(r.Context(), "speaker session is malformed", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusNotFound, errCalendarNotFound)
		return
	}

	h.writeCalendar(w, name+".ics", doc)
	logger.DebugContext(r.Context(), "speaker calendar served")
}

func (h *CalendarHandler) writeCalendar(w http.ResponseWriter, filename string, doc []byte) {
	w.Header().Set("Content-Type", calendarContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// calendarName extracts the calendar name from /api/calendar/{name}.ics.
func calendarName(path string) (string, bool) {
	rest := strings.TrimPrefix(path, calendarPathPrefix)
	if rest == path || strings.Contains(rest, "/") {
		return "", false
	}
	name, ok := strings.CutSuffix(rest, ".ics")
	if !ok || name == "" {
		return "", false
	}
	return name, true
}
