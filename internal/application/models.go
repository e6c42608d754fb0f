package application

import (
	"time"

	"github.com/example/resource-booking/internal/scheduler"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// ReminderInput captures one caller provided reminder.
type ReminderInput struct {
	OffsetMinutes int
	Channels      []string
}

// RecurrenceInput captures a caller provided recurrence rule.
type RecurrenceInput struct {
	Frequency string
	Interval  int
	Weekdays  []string
	Count     int
	Until     *time.Time
}

// BookingInput captures caller provided booking fields.
type BookingInput struct {
	Title        string
	Category     string
	Notes        *string
	Start        time.Time
	End          time.Time
	IsAllDay     bool
	Participants []string
	Resources    []scheduler.ResourceRef
	Reminders    []ReminderInput
	Recurrence   *RecurrenceInput
}

// ConflictWarning describes a booking conflict that should be surfaced to
// callers. For recurring bookings Start identifies the occurrence the
// conflict was detected on.
type ConflictWarning struct {
	BookingID     string
	Type          string
	ParticipantID string
	Resource      *scheduler.ResourceRef
	Start         time.Time
}

// CreateBookingParams wraps the data required to create a booking. Force
// acknowledges previously reported conflicts and creates anyway.
type CreateBookingParams struct {
	Principal Principal
	Input     BookingInput
	Force     bool
}

// UpdateBookingParams wraps the data required to update an existing booking.
type UpdateBookingParams struct {
	Principal Principal
	BookingID string
	Input     BookingInput
	Force     bool
}

// ListPeriod identifies the range preset requested for booking listings.
type ListPeriod string

const (
	// ListPeriodNone indicates no preset; caller supplied explicit bounds.
	ListPeriodNone ListPeriod = ""
	// ListPeriodDay constrains results to a single day.
	ListPeriodDay ListPeriod = "day"
	// ListPeriodWeek constrains results to the Monday-start week containing the reference time.
	ListPeriodWeek ListPeriod = "week"
	// ListPeriodMonth constrains results to the month containing the reference time.
	ListPeriodMonth ListPeriod = "month"
)

// ListBookingsParams wraps the data required to list bookings.
type ListBookingsParams struct {
	Principal       Principal
	ParticipantIDs  []string
	StartsAfter     *time.Time
	EndsBefore      *time.Time
	Period          ListPeriod
	PeriodReference time.Time
}
