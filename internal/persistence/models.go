package persistence

import (
	"time"

	"github.com/example/resource-booking/internal/notification"
	"github.com/example/resource-booking/internal/scheduler"
)

// Booking represents a calendar entry stored in persistence. Recurring
// bookings are expanded before they reach this layer; instances created from
// one recurrence rule share a SeriesID.
type Booking struct {
	ID           string
	Title        string
	Category     string
	Notes        *string
	Start        time.Time
	End          time.Time
	IsAllDay     bool
	CreatorID    string
	SeriesID     *string
	Participants []string
	Resources    []scheduler.ResourceRef
	Reminders    []notification.ReminderSpec
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Window returns the booking's occupied interval.
func (b Booking) Window() scheduler.TimeWindow {
	return scheduler.TimeWindow{Start: b.Start, End: b.End}
}
