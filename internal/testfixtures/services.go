package testfixtures

import (
	"log/slog"
	"time"

	"github.com/vtseva/career-compass/internal/application"
)

// ServiceFactory assists tests with constructing application services using a
// deterministic clock.
type ServiceFactory struct {
	Clock *Clock
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{Clock: NewClock(time.Time{})}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// RSVPServiceDeps captures dependencies for constructing an RSVP service.
type RSVPServiceDeps struct {
	RSVPs    application.RSVPRepository
	Notifier application.Notifier
	Now      func() time.Time
	Logger   *slog.Logger
}

// NewRSVPService builds an RSVP service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewRSVPService(deps RSVPServiceDeps) *application.RSVPService {
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewRSVPServiceWithLogger(deps.RSVPs, deps.Notifier, now, deps.Logger)
}
