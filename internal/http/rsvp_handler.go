package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/vtseva/career-compass/internal/application"
)

// maxRSVPBodyBytes bounds the request body read by RSVPHandler.Create.
const maxRSVPBodyBytes = 64 << 10

//go:embed schema/rsvp.schema.json
var rsvpSchemaSource string

var rsvpSchema = jsonschema.MustCompileString("rsvp.schema.json", rsvpSchemaSource)

type rsvpService interface {
	Submit(ctx context.Context, params application.SubmitRSVPParams) (application.RSVP, error)
}

type RSVPHandler struct {
	service   rsvpService
	responder responder
	logger    *slog.Logger
}

func NewRSVPHandler(service rsvpService, logger *slog.Logger) *RSVPHandler {
	base := defaultLogger(logger)
	return &RSVPHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RSVPHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RSVPHandler", operation, attrs...)
}

// Create handles POST /api/rsvp. Client errors answer 400 and storage errors
// answer 500, both with the failure envelope.
func (h *RSVPHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		newResponder(nil).writeError(r.Context(), w, http.StatusInternalServerError, nil)
		return
	}

	req, fieldErrs, err := decodeRSVPRequest(io.LimitReader(r.Body, maxRSVPBodyBytes+1))
	if err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode rsvp request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if len(fieldErrs) > 0 {
		h.log(r.Context(), "Create", "error_kind", "validation").WarnContext(r.Context(), "rsvp request rejected by schema", "fields", len(fieldErrs))
		h.responder.writeValidationError(r.Context(), w, fieldErrs)
		return
	}

	logger := h.log(r.Context(), "Create", "speaker_name", req.SpeakerName)

	rsvp, err := h.service.Submit(r.Context(), req.toParams())
	if err != nil {
		kind := application.ErrorKind(err)
		if kind == "validation" {
			logger.WarnContext(r.Context(), "rsvp submission rejected", "error", err, "error_kind", kind)
		} else {
			logger.ErrorContext(r.Context(), "rsvp submission failed", "error", err, "error_kind", kind)
		}
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("rsvp_id", rsvp.ID).InfoContext(r.Context(), "rsvp created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, createRSVPResponse{Success: true, ID: rsvp.ID})
}

// decodeRSVPRequest parses body, validates it against the embedded schema and
// decodes it into an rsvpRequest. Schema failures are returned per field;
// malformed JSON is returned as err.
func decodeRSVPRequest(body io.Reader) (rsvpRequest, map[string]string, error) {
	var req rsvpRequest

	raw, err := io.ReadAll(body)
	if err != nil {
		return req, nil, err
	}
	if len(raw) > maxRSVPBodyBytes {
		return req, nil, errors.New("request body too large")
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return req, nil, err
	}
	if err := rsvpSchema.Validate(doc); err != nil {
		var vErr *jsonschema.ValidationError
		if errors.As(err, &vErr) {
			return req, schemaFieldErrors(vErr), nil
		}
		return req, nil, err
	}

	if err := json.Unmarshal(raw, &req); err != nil {
		return req, nil, err
	}
	return req, nil, nil
}

// schemaFieldErrors flattens the leaf causes of a schema failure into
// field -> message pairs keyed by the top level property name.
func schemaFieldErrors(root *jsonschema.ValidationError) map[string]string {
	out := make(map[string]string)
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			field := fieldFromInstanceLocation(e.InstanceLocation)
			if _, exists := out[field]; !exists {
				out[field] = e.Message
			}
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(root)
	return out
}

func fieldFromInstanceLocation(loc string) string {
	loc = strings.TrimPrefix(loc, "/")
	if loc == "" {
		return "body"
	}
	if i := strings.IndexByte(loc, '/'); i >= 0 {
		loc = loc[:i]
	}
	return loc
}

type rsvpRequest struct {
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Phone        *string `json:"phone"`
	Branch       string  `json:"branch"`
	CustomBranch *string `json:"customBranch"`
	Questions    *string `json:"questions"`
	OptIn        *bool   `json:"optIn"`
	SpeakerName  string  `json:"speakerName"`
	SessionDate  string  `json:"sessionDate"`
}

func (r rsvpRequest) toParams() application.SubmitRSVPParams {
	return application.SubmitRSVPParams{
		Name:         r.Name,
		Email:        r.Email,
		Phone:        derefString(r.Phone),
		Branch:       r.Branch,
		CustomBranch: derefString(r.CustomBranch),
		Questions:    derefString(r.Questions),
		OptIn:        r.OptIn != nil && *r.OptIn,
		SpeakerName:  r.SpeakerName,
		SessionDate:  r.SessionDate,
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type createRSVPResponse struct {
	Success bool  `json:"success"`
	ID      int64 `json:"id"`
}
