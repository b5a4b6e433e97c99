// Package notify tells an organizer about new RSVPs over WhatsApp.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vtseva/career-compass/internal/application"
	"github.com/vtseva/career-compass/internal/logging"
)

// DefaultSendTimeout bounds a single notification.
const DefaultSendTimeout = 10 * time.Second

// ErrInvalidPhone is returned for numbers that cannot be turned into an
// international form.
var ErrInvalidPhone = errors.New("notify: invalid phone number")

// Sender delivers a text message to an international phone number.
type Sender interface {
	Send(ctx context.Context, phone, text string) error
}

// Notifier implements application.Notifier by messaging one organizer.
type Notifier struct {
	sender    Sender
	organizer string
	timeout   time.Duration
	logger    *slog.Logger
}

var _ application.Notifier = (*Notifier)(nil)

// NewNotifier validates the organizer number and returns a notifier sending
// through sender.
func NewNotifier(sender Sender, organizer string, logger *slog.Logger) (*Notifier, error) {
	if sender == nil {
		return nil, errors.New("notify: sender is required")
	}
	phone, err := NormalizePhone(organizer)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{sender: sender, organizer: phone, timeout: DefaultSendTimeout, logger: logger}, nil
}

// NotifyRSVP sends a summary of rsvp to the organizer.
func (n *Notifier) NotifyRSVP(ctx context.Context, rsvp application.RSVP) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = n.logger
	}
	logger = logger.With("component", "notify", "rsvp_id", rsvp.ID)

	if err := n.sender.Send(ctx, n.organizer, FormatRSVP(rsvp)); err != nil {
		return fmt.Errorf("notify organizer: %w", err)
	}
	logger.DebugContext(ctx, "organizer notified")
	return nil
}

// FormatRSVP renders the organizer message for rsvp. The attendee's email and
// phone are left out.
func FormatRSVP(rsvp application.RSVP) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*New Career Compass RSVP* #%d\n\n", rsvp.ID)
	fmt.Fprintf(&b, "Name: %s\n", rsvp.Name)
	fmt.Fprintf(&b, "Branch: %s\n", rsvp.Branch)
	fmt.Fprintf(&b, "Session: %s (%s)\n", rsvp.SpeakerName, rsvp.SessionDate)
	if rsvp.OptIn {
		b.WriteString("Opted in to updates: yes\n")
	} else {
		b.WriteString("Opted in to updates: no\n")
	}
	if rsvp.Questions != nil && strings.TrimSpace(*rsvp.Questions) != "" {
		fmt.Fprintf(&b, "\nQuestions:\n%s\n", strings.TrimSpace(*rsvp.Questions))
	}
	return strings.TrimRight(b.String(), "\n")
}

// NormalizePhone strips formatting from raw and returns the digits of an
// international number. Ten digit numbers are treated as North American and
// get the country code 1.
func NormalizePhone(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", fmt.Errorf("%w: %q", ErrInvalidPhone, raw)
		}
	}

	phone := digits.String()
	phone = strings.TrimPrefix(phone, "00")
	if len(phone) == 10 && !strings.HasPrefix(phone, "0") {
		phone = "1" + phone
	}
	if len(phone) < 8 || len(phone) > 15 || strings.HasPrefix(phone, "0") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, raw)
	}
	return phone, nil
}
