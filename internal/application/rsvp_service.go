package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/vtseva/career-compass/internal/logging"
	"github.com/vtseva/career-compass/internal/persistence"
)

var tracer = otel.Tracer("github.com/vtseva/career-compass/internal/application")

// RSVPRepository captures the persistence operations needed by the service.
type RSVPRepository interface {
	CreateRSVP(ctx context.Context, rsvp RSVP) (RSVP, error)
}

// Notifier is told about each stored RSVP. Failures never affect the submission.
type Notifier interface {
	NotifyRSVP(ctx context.Context, rsvp RSVP) error
}

// Field length limits, matching the rsvps table.
const (
	maxNameLength        = 255
	maxEmailLength       = 255
	maxPhoneLength       = 50
	maxBranchLength      = 100
	maxSpeakerNameLength = 255
	maxSessionDateLength = 50
)

// RSVPService validates and stores webinar registrations.
type RSVPService struct {
	rsvps    RSVPRepository
	notifier Notifier
	now      func() time.Time
	logger   *slog.Logger
}

// NewRSVPService constructs an RSVP service with the provided dependencies.
func NewRSVPService(rsvps RSVPRepository, notifier Notifier, now func() time.Time) *RSVPService {
	return NewRSVPServiceWithLogger(rsvps, notifier, now, nil)
}

// NewRSVPServiceWithLogger constructs an RSVP service with a specified logger.
func NewRSVPServiceWithLogger(rsvps RSVPRepository, notifier Notifier, now func() time.Time, logger *slog.Logger) *RSVPService {
	if now == nil {
		now = time.Now
	}
	return &RSVPService{rsvps: rsvps, notifier: notifier, now: now, logger: defaultLogger(logger)}
}

func (s *RSVPService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RSVPService", operation, attrs...)
}

// Submit normalises and validates params, stores the RSVP and returns it with
// its generated id.
func (s *RSVPService) Submit(ctx context.Context, params SubmitRSVPParams) (rsvp RSVP, err error) {
	if s == nil {
		err = fmt.Errorf("RSVPService is nil")
		return
	}
	if s.rsvps == nil {
		err = fmt.Errorf("rsvp repository not configured")
		return
	}

	ctx, span := tracer.Start(ctx, "RSVPService.Submit")
	defer span.End()

	logger := s.loggerWith(ctx, "Submit",
		"speaker_name", strings.TrimSpace(params.SpeakerName),
		"email_fingerprint", logging.Fingerprint(params.Email),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			kind := ErrorKind(err)
			span.SetStatus(codes.Error, kind)
			if kind == "validation" {
				logger.WarnContext(ctx, "rsvp rejected", "error", err, "error_kind", kind)
				return
			}
			logger.ErrorContext(ctx, "failed to submit rsvp", "error", err, "error_kind", kind)
			return
		}
		span.SetAttributes(attribute.Int64("rsvp.id", rsvp.ID))
		logger.With("rsvp_id", rsvp.ID).InfoContext(ctx, "rsvp stored")
	}()

	candidate, vErr := normalizeRSVP(params)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	candidate.CreatedAt = s.now().UTC()

	var persisted RSVP
	persisted, err = s.rsvps.CreateRSVP(ctx, candidate)
	if err != nil {
		err = mapRSVPRepoError(err)
		return
	}
	rsvp = persisted

	s.notify(ctx, logger, rsvp)
	return
}

func (s *RSVPService) notify(ctx context.Context, logger *slog.Logger, rsvp RSVP) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyRSVP(ctx, rsvp); err != nil {
		logger.WarnContext(ctx, "rsvp notification failed", "error", err, "rsvp_id", rsvp.ID)
	}
}

// normalizeRSVP trims every field, resolves the custom branch and validates
// the result.
func normalizeRSVP(params SubmitRSVPParams) (RSVP, *ValidationError) {
	vErr := &ValidationError{}

	rsvp := RSVP{
		Name:        strings.TrimSpace(params.Name),
		Email:       strings.TrimSpace(params.Email),
		Phone:       normalizeOptionalString(params.Phone),
		Branch:      resolveBranch(params.Branch, params.CustomBranch, vErr),
		Questions:   normalizeOptionalString(params.Questions),
		OptIn:       params.OptIn,
		SpeakerName: strings.TrimSpace(params.SpeakerName),
		SessionDate: strings.TrimSpace(params.SessionDate),
	}

	requireField(vErr, "name", rsvp.Name, maxNameLength)
	requireField(vErr, "email", rsvp.Email, maxEmailLength)
	if rsvp.Email != "" && !looksLikeEmail(rsvp.Email) {
		vErr.add("email", "email must be a valid address")
	}
	if rsvp.Phone != nil && utf8.RuneCountInString(*rsvp.Phone) > maxPhoneLength {
		vErr.add("phone", fmt.Sprintf("phone must be at most %d characters", maxPhoneLength))
	}
	requireField(vErr, "branch", rsvp.Branch, maxBranchLength)
	requireField(vErr, "speakerName", rsvp.SpeakerName, maxSpeakerNameLength)
	requireField(vErr, "sessionDate", rsvp.SessionDate, maxSessionDateLength)

	return rsvp, vErr
}

// resolveBranch returns the free-text branch when the selection is a
// custom/other token. A token without free text is a validation failure.
func resolveBranch(branch, custom string, vErr *ValidationError) string {
	branch = strings.TrimSpace(branch)
	custom = strings.TrimSpace(custom)
	if !isCustomBranchToken(branch) {
		return branch
	}
	if custom == "" {
		vErr.add("customBranch", "please specify your branch")
		return ""
	}
	return custom
}

func isCustomBranchToken(branch string) bool {
	return strings.EqualFold(branch, "custom") || strings.EqualFold(branch, "other")
}

func requireField(vErr *ValidationError, field, value string, maxLen int) {
	if value == "" {
		vErr.add(field, field+" is required")
		return
	}
	if utf8.RuneCountInString(value) > maxLen {
		vErr.add(field, fmt.Sprintf("%s must be at most %d characters", field, maxLen))
	}
}

func looksLikeEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\r\n")
}

func normalizeOptionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func mapRSVPRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrConstraintViolation):
		return fmt.Errorf("%w: %v", ErrConstraint, err)
	case errors.Is(err, persistence.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
