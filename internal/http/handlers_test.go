package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vtseva/career-compass/internal/application"
	"github.com/vtseva/career-compass/internal/calendar"
	"github.com/vtseva/career-compass/internal/scheduler"
	"github.com/vtseva/career-compass/internal/speakers"
	"github.com/vtseva/career-compass/internal/testfixtures"
)

type stubRSVPService struct {
	mu       sync.Mutex
	received []application.SubmitRSVPParams
	nextID   int64
	err      error
}

func (s *stubRSVPService) Submit(_ context.Context, params application.SubmitRSVPParams) (application.RSVP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, params)
	if s.err != nil {
		return application.RSVP{}, s.err
	}
	s.nextID++
	return application.RSVP{ID: s.nextID, Name: params.Name}, nil
}

type testServer struct {
	handler http.Handler
	clock   *testfixtures.Clock
	rsvps   *stubRSVPService
}

func newTestServer(t *testing.T, rsvps rsvpService, list ...speakers.Speaker) *testServer {
	t.Helper()

	if len(list) == 0 {
		list = []speakers.Speaker{
			testfixtures.NewSpeaker(testfixtures.WithSpeakerName("Ada Lovelace"), testfixtures.WithSpeakerSession("2025-03-22", "18:00")),
			testfixtures.NewSpeaker(testfixtures.WithSpeakerName("Grace Hopper"), testfixtures.WithSpeakerCategory(speakers.CategoryMedicine), testfixtures.WithSpeakerSession("2025-03-21", "18:00")),
			testfixtures.NewSpeaker(testfixtures.WithSpeakerName("Alan Turing"), testfixtures.WithSpeakerSession("2025-03-19", "18:00")),
		}
	}
	dir := testfixtures.NewDirectory(t, list...)
	clock := testfixtures.NewClock(time.Time{})
	builder := calendar.NewBuilder(time.UTC, 0, clock.NowFunc())
	sessionClock := SessionClock{Policy: scheduler.DefaultPolicy(), Location: time.UTC, Now: clock.NowFunc()}

	srv := &testServer{clock: clock}
	if stub, ok := rsvps.(*stubRSVPService); ok {
		srv.rsvps = stub
	}
	srv.handler = NewRouter(RouterConfig{
		RSVPs:      NewRSVPHandler(rsvps, nil),
		Speakers:   NewSpeakerHandler(dir, sessionClock, builder, nil),
		Calendar:   NewCalendarHandler(dir, builder, nil),
		Middleware: []func(http.Handler) http.Handler{RequestLogger(nil), CORS()},
	})
	return srv
}

func (s *testServer) do(method, path string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(data)
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestRSVPHandlerCreate(t *testing.T) {
	t.Parallel()

	t.Run("stores a valid submission and returns 201 with the id", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t, &stubRSVPService{})

		fixture := testfixtures.NewRSVPFixture(testfixtures.WithRSVPPhone("555-0100"), testfixtures.WithRSVPOptIn(true))
		rec := srv.do(http.MethodPost, rsvpPath, jsonBody(t, fixture.Body()))

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
			t.Fatalf("unexpected content type %q", ct)
		}
		body := decodeMap(t, rec)
		if body["success"] != true || body["id"] != float64(1) {
			t.Fatalf("unexpected body %v", body)
		}

		got := srv.rsvps.received[0]
		if got.Phone != "555-0100" || !got.OptIn || got.Email != fixture.Email {
			t.Fatalf("service received %+v", got)
		}
	})

	t.Run("malformed JSON returns 400 envelope", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t, &stubRSVPService{})

		rec := srv.do(http.MethodPost, rsvpPath, strings.NewReader(`{"name":`))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		body := decodeMap(t, rec)
		if body["success"] != false || body["error"] != errBadRequestBody.Error() {
			t.Fatalf("unexpected body %v", body)
		}
		if len(srv.rsvps.received) != 0 {
			t.Fatal("service must not be called for malformed JSON")
		}
	})

	t.Run("schema violations are reported per field", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t, &stubRSVPService{})

		body := testfixtures.NewRSVPFixture().Body()
		body["name"] = 42
		body["phone"] = strings.Repeat("9", 51)
		rec := srv.do(http.MethodPost, rsvpPath, jsonBody(t, body))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		errs, _ := decodeMap(t, rec)["errors"].(map[string]any)
		if errs["name"] == nil || errs["phone"] == nil {
			t.Fatalf("expected name and phone errors, got %v", errs)
		}
		if len(srv.rsvps.received) != 0 {
			t.Fatal("service must not be called for schema failures")
		}
	})

	t.Run("a non-object body is reported under body", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t, &stubRSVPService{})

		rec := srv.do(http.MethodPost, rsvpPath, strings.NewReader(`["not","an","object"]`))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		errs, _ := decodeMap(t, rec)["errors"].(map[string]any)
		if errs["body"] == nil {
			t.Fatalf("expected body error, got %v", errs)
		}
	})

	t.Run("service validation errors map to 400 with field messages", func(t *testing.T) {
		t.Parallel()
		stub := &stubRSVPService{err: &application.ValidationError{FieldErrors: map[string]string{"email": "email is required"}}}
		srv := newTestServer(t, stub)

		rec := srv.do(http.MethodPost, rsvpPath, jsonBody(t, testfixtures.NewRSVPFixture().Body()))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		body := decodeMap(t, rec)
		errs, _ := body["errors"].(map[string]any)
		if body["success"] != false || errs["email"] != "email is required" {
			t.Fatalf("unexpected body %v", body)
		}
	})

	t.Run("storage failures map to 500", func(t *testing.T) {
		t.Parallel()
		for _, err := range []error{
			fmt.Errorf("%w: database is locked", application.ErrUnavailable),
			fmt.Errorf("%w: check failed", application.ErrConstraint),
			errors.New("boom"),
		} {
			srv := newTestServer(t, &stubRSVPService{err: err})
			rec := srv.do(http.MethodPost, rsvpPath, jsonBody(t, testfixtures.NewRSVPFixture().Body()))
			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("%v: expected 500, got %d", err, rec.Code)
			}
			body := decodeMap(t, rec)
			if body["success"] != false || body["error"] == "" {
				t.Fatalf("%v: unexpected body %v", err, body)
			}
			if _, ok := body["errors"]; ok {
				t.Fatalf("%v: storage failures carry no field errors: %v", err, body)
			}
		}
	})

	t.Run("other methods return 405 with Allow header", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t, &stubRSVPService{})

		for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodPatch} {
			rec := srv.do(method, rsvpPath, nil)
			if rec.Code != http.StatusMethodNotAllowed {
				t.Fatalf("%s: expected 405, got %d", method, rec.Code)
			}
			if allow := rec.Header().Get("Allow"); allow != http.MethodPost {
				t.Fatalf("%s: unexpected Allow %q", method, allow)
			}
			body := decodeMap(t, rec)
			if body["success"] != false || body["error"] != "Method not allowed" {
				t.Fatalf("%s: unexpected body %v", method, body)
			}
		}
	})
}

func TestRSVPHandlerWithSQLite(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	svc := testfixtures.NewServiceFactory().NewRSVPService(testfixtures.RSVPServiceDeps{RSVPs: harness.ApplicationRSVPs()})
	srv := newTestServer(t, svc)

	body := testfixtures.NewRSVPFixture().Body()
	var last float64
	for i := 0; i < 3; i++ {
		rec := srv.do(http.MethodPost, rsvpPath, jsonBody(t, body))
		if rec.Code != http.StatusCreated {
			t.Fatalf("submission %d: expected 201, got %d: %s", i, rec.Code, rec.Body.String())
		}
		id, _ := decodeMap(t, rec)["id"].(float64)
		if id <= last {
			t.Fatalf("submission %d: id %v not greater than %v", i, id, last)
		}
		last = id
	}

	count, err := harness.RSVPs.CountRSVPs(context.Background())
	if err != nil {
		t.Fatalf("CountRSVPs returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("duplicate submissions must be stored independently, got %d rows", count)
	}

	body["email"] = "   "
	rec := srv.do(http.MethodPost, rsvpPath, jsonBody(t, body))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank email, got %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &stubRSVPService{})

	for _, path := range []string{rsvpPath, "/api/speakers", "/anything/else"} {
		rec := srv.do(http.MethodOptions, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
		if rec.Body.Len() != 0 {
			t.Fatalf("%s: expected empty body, got %q", path, rec.Body.String())
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Fatalf("%s: unexpected origin header %q", path, got)
		}
		if got := rec.Header().Get("Access-Control-Allow-Methods"); got != corsAllowMethods {
			t.Fatalf("%s: unexpected methods header %q", path, got)
		}
	}

	rec := srv.do(http.MethodGet, rsvpPath, nil)
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("CORS headers must be present on error responses")
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &stubRSVPService{})

	rec := srv.do(http.MethodGet, healthPath, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decodeMap(t, rec)["message"]; got != healthMessage {
		t.Fatalf("unexpected message %v", got)
	}
}

func TestSpeakerHandlerList(t *testing.T) {
	t.Parallel()

	t.Run("returns every speaker with a state", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t, &stubRSVPService{})

		rec := srv.do(http.MethodGet, speakersPath, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var resp struct {
			Category string `json:"category"`
			Speakers []struct {
				Name    string `json:"name"`
				Slug    string `json:"slug"`
				State   string `json:"state"`
				Session struct {
					AddToCalendar string `json:"addToCalendar"`
				} `json:"session"`
			} `json:"speakers"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Category != "All" || len(resp.Speakers) != 3 {
			t.Fatalf("unexpected response %+v", resp)
		}
		want := map[string]string{"Ada Lovelace": "upcoming", "Grace Hopper": "upcoming", "Alan Turing": "past"}
		for _, sp := range resp.Speakers {
			if sp.State != want[sp.Name] {
				t.Fatalf("%s: expected state %q, got %q", sp.Name, want[sp.Name], sp.State)
			}
			if !strings.HasPrefix(sp.Session.AddToCalendar, "https://calendar.google.com/") {
				t.Fatalf("%s: expected derived calendar link, got %q", sp.Name, sp.Session.AddToCalendar)
			}
		}
		if resp.Speakers[0].Slug != "ada_lovelace" {
			t.Fatalf("unexpected slug %q", resp.Speakers[0].Slug)
		}
	})

	t.Run("filters by category case-insensitively", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t, &stubRSVPService{})

		rec := srv.do(http.MethodGet, speakersPath+"?category=medicine", nil)
		body := decodeMap(t, rec)
		list, _ := body["speakers"].([]any)
		if rec.Code != http.StatusOK || len(list) != 1 {
			t.Fatalf("expected one medicine speaker, got %d: %v", rec.Code, body)
		}
	})

	t.Run("unknown category returns 400", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t, &stubRSVPService{})

		rec := srv.do(http.MethodGet, speakersPath+"?category=Law", nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("joinable within the lead window", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t, &stubRSVPService{})
		srv.clock.Set(time.Date(2025, time.March, 21, 17, 50, 0, 0, time.UTC))

		rec := srv.do(http.MethodGet, speakersPath+"?category=Medicine", nil)
		if !strings.Contains(rec.Body.String(), `"state":"joinable"`) {
			t.Fatalf("expected joinable session, got %s", rec.Body.String())
		}
	})
}

func TestSpeakerHandlerNext(t *testing.T) {
	t.Parallel()

	t.Run("returns the earliest future session with a countdown", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t, &stubRSVPService{})

		rec := srv.do(http.MethodGet, nextPath, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var resp struct {
			Next *struct {
				Name string `json:"name"`
			} `json:"next"`
			Countdown *scheduler.Breakdown `json:"countdown"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Next == nil || resp.Next.Name != "Grace Hopper" {
			t.Fatalf("expected Grace Hopper next, got %+v", resp.Next)
		}
		// Reference time is 2025-03-20 16:00 UTC; the session starts 2025-03-21 18:00.
		want := scheduler.Breakdown{Days: 1, Hours: 2}
		if resp.Countdown == nil || *resp.Countdown != want {
			t.Fatalf("expected countdown %+v, got %+v", want, resp.Countdown)
		}
	})

	t.Run("returns nulls once every session has started", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t, &stubRSVPService{})
		srv.clock.Set(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))

		rec := srv.do(http.MethodGet, nextPath, nil)
		body := decodeMap(t, rec)
		if rec.Code != http.StatusOK || body["next"] != nil || body["countdown"] != nil {
			t.Fatalf("expected null fallback, got %d: %v", rec.Code, body)
		}
		if _, ok := body["next"]; !ok {
			t.Fatalf("next key must be present: %v", body)
		}
	})
}

func TestCalendarHandler(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &stubRSVPService{})

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantEvents int
	}{
		{name: "series", path: "/api/calendar/series.ics", wantStatus: http.StatusOK, wantEvents: 3},
		{name: "speaker", path: "/api/calendar/ada_lovelace.ics", wantStatus: http.StatusOK, wantEvents: 1},
		{name: "unknown slug", path: "/api/calendar/nobody.ics", wantStatus: http.StatusNotFound},
		{name: "missing extension", path: "/api/calendar/series", wantStatus: http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := srv.do(http.MethodGet, tc.path, nil)
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rec.Code)
			}
			if tc.wantStatus != http.StatusOK {
				return
			}
			if ct := rec.Header().Get("Content-Type"); ct != calendarContentType {
				t.Fatalf("unexpected content type %q", ct)
			}
			if got := strings.Count(rec.Body.String(), "BEGIN:VEVENT"); got != tc.wantEvents {
				t.Fatalf("expected %d events, got %d", tc.wantEvents, got)
			}
		})
	}

	rec := srv.do(http.MethodPost, "/api/calendar/series.ics", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestRSVPHandlerCreateLogLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		wantLevel string
	}{
		{
			name:      "validation failures are warnings",
			err:       &application.ValidationError{FieldErrors: map[string]string{"name": "name is required"}},
			wantLevel: "WARN",
		},
		{
			name:      "storage failures are errors",
			err:       fmt.Errorf("%w: connection refused", application.ErrUnavailable),
			wantLevel: "ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var logs bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
			handler := NewRSVPHandler(&stubRSVPService{err: tt.err}, logger)

			req := httptest.NewRequest(http.MethodPost, rsvpPath, jsonBody(t, testfixtures.NewRSVPFixture().Body()))
			rec := httptest.NewRecorder()
			handler.Create(rec, req)

			out := logs.String()
			if !strings.Contains(out, `"level":"`+tt.wantLevel+`"`) {
				t.Fatalf("expected a %s entry, got %s", tt.wantLevel, out)
			}
			if tt.wantLevel == "WARN" && strings.Contains(out, `"level":"ERROR"`) {
				t.Fatalf("validation failure logged at ERROR: %s", out)
			}
		})
	}
}
