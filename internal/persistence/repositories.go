package persistence

import (
	"context"
	"time"

	"github.com/example/resource-booking/internal/notification"
)

// BookingFilter narrows booking queries. StartsAfter/EndsBefore select
// bookings whose occupied interval overlaps the given range.
type BookingFilter struct {
	ParticipantIDs []string
	StartsAfter    *time.Time
	EndsBefore     *time.Time
}

// BookingRepository stores bookings with their participants and resources.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) error
	UpdateBooking(ctx context.Context, booking Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
	DeleteBooking(ctx context.Context, id string) error
}

// ScheduledNotificationRepository stores planned reminders and drives their
// status machine. ClaimDue must be atomic per row: a pending row handed to
// one caller is never handed to a concurrent caller.
type ScheduledNotificationRepository interface {
	// ReplacePlan cancels the booking's pending rows and inserts the new plan
	// in one transaction.
	ReplacePlan(ctx context.Context, bookingID string, items []notification.ScheduledNotification) error
	// CancelForBooking cancels the booking's pending and claimed rows.
	CancelForBooking(ctx context.Context, bookingID string) error
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]notification.ScheduledNotification, error)
	MarkSent(ctx context.Context, id string, logID string) error
	MarkFailed(ctx context.Context, id string, logID string) error
	ListForBooking(ctx context.Context, bookingID string) ([]notification.ScheduledNotification, error)
}

// NotificationLogRepository stores the append-only delivery audit trail.
type NotificationLogRepository interface {
	AppendLog(ctx context.Context, entry notification.Log) error
	ListLogsForUser(ctx context.Context, userID string, limit int) ([]notification.Log, error)
	MarkLogRead(ctx context.Context, id string) error
}

// PreferenceRepository stores per-user notification preferences. GetPreference
// returns ErrNotFound for users who never saved one; callers fall back to
// notification.DefaultPreference.
type PreferenceRepository interface {
	GetPreference(ctx context.Context, userID string) (notification.Preference, error)
	SavePreference(ctx context.Context, pref notification.Preference) error
}
