package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/resource-booking/internal/application"
	"github.com/example/resource-booking/internal/persistence"
	"github.com/example/resource-booking/internal/scheduler"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// BookingServiceDeps captures dependencies for constructing a booking service.
type BookingServiceDeps struct {
	Bookings      persistence.BookingRepository
	Notifications persistence.ScheduledNotificationRepository
	Capacity      scheduler.DailyCapacity
	Location      *time.Location
	Logger        *slog.Logger
}

// NewBookingService builds a booking service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewBookingService(deps BookingServiceDeps) (*application.BookingService, error) {
	return application.NewBookingService(application.BookingServiceConfig{
		Bookings:      deps.Bookings,
		Notifications: deps.Notifications,
		Capacity:      deps.Capacity,
		Location:      deps.Location,
		IDGenerator:   f.IDGenerator.NextFunc(),
		Now:           f.Clock.NowFunc(),
		Logger:        deps.Logger,
	})
}

// NewPreferenceService builds a preference service using the factory clock.
func (f *ServiceFactory) NewPreferenceService(preferences persistence.PreferenceRepository, logger *slog.Logger) *application.PreferenceService {
	return application.NewPreferenceService(preferences, f.Clock.NowFunc(), logger)
}

// NewNotificationService builds a notification log service.
func (f *ServiceFactory) NewNotificationService(logs persistence.NotificationLogRepository, logger *slog.Logger) *application.NotificationService {
	return application.NewNotificationService(logs, logger)
}
