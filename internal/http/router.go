package http

import (
	"net/http"
	"strings"
)

const (
	rsvpPath           = "/api/rsvp"
	healthPath         = "/api/test"
	speakersPath       = "/api/speakers"
	nextPath           = "/api/next"
	calendarPathPrefix = "/api/calendar/"

	healthMessage = "Server is running correctly!"
)

type RouterConfig struct {
	RSVPs      *RSVPHandler
	Speakers   *SpeakerHandler
	Calendar   *CalendarHandler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(healthPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		newResponder(nil).writeJSON(r.Context(), w, http.StatusOK, healthResponse{Message: healthMessage})
	})

	if cfg.RSVPs != nil {
		mux.HandleFunc(rsvpPath, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, r, http.MethodPost)
				return
			}
			cfg.RSVPs.Create(w, r)
		})
	}

	if cfg.Speakers != nil {
		mux.HandleFunc(speakersPath, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, r, http.MethodGet)
				return
			}
			cfg.Speakers.List(w, r)
		})
		mux.HandleFunc(nextPath, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, r, http.MethodGet)
				return
			}
			cfg.Speakers.Next(w, r)
		})
	}

	if cfg.Calendar != nil {
		mux.HandleFunc(calendarPathPrefix, func(w http.ResponseWriter, r *http.Request) {
			name, ok := calendarName(r.URL.Path)
			if !ok {
				newResponder(nil).writeError(r.Context(), w, http.StatusNotFound, errCalendarNotFound)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, r, http.MethodGet)
				return
			}
			cfg.Calendar.Get(w, r, name)
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	newResponder(nil).writeJSON(r.Context(), w, http.StatusMethodNotAllowed, errorResponse{Error: errMethodNotAllowed.Error()})
}

type healthResponse struct {
	Message string `json:"message"`
}
