package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/resource-booking/internal/notification"
	"github.com/example/resource-booking/internal/persistence"
	"github.com/example/resource-booking/internal/scheduler"
)

var (
	bookingCounter      uint64
	notificationCounter uint64
)

var referenceTime = time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// BookingFixture represents a deterministic booking record that can be
// materialised for application or persistence tests. Each generated fixture
// occupies its own hour so fixtures never conflict unless a test asks for it.
type BookingFixture struct {
	Booking persistence.Booking
}

// BookingOption configures the generated booking fixture.
type BookingOption func(*persistence.Booking)

// NewBookingFixture returns a deterministic booking fixture with optional
// overrides.
func NewBookingFixture(opts ...BookingOption) BookingFixture {
	idx := atomic.AddUint64(&bookingCounter, 1)
	start := referenceTime.Add(time.Duration(idx) * time.Hour)
	booking := persistence.Booking{
		ID:           fmt.Sprintf("booking-%03d", idx),
		Title:        fmt.Sprintf("Booking %03d", idx),
		Category:     "meeting",
		Start:        start,
		End:          start.Add(30 * time.Minute),
		CreatorID:    "user-001",
		Participants: []string{"user-001"},
		CreatedAt:    referenceTime,
		UpdatedAt:    referenceTime,
	}
	for _, opt := range opts {
		opt(&booking)
	}
	return BookingFixture{Booking: booking}
}

// WithBookingID overrides the generated booking ID.
func WithBookingID(id string) BookingOption {
	return func(b *persistence.Booking) {
		b.ID = id
	}
}

// WithBookingTitle overrides the generated title.
func WithBookingTitle(title string) BookingOption {
	return func(b *persistence.Booking) {
		b.Title = title
	}
}

// WithBookingCategory overrides the category.
func WithBookingCategory(category string) BookingOption {
	return func(b *persistence.Booking) {
		b.Category = category
	}
}

// WithBookingWindow sets the start and end of the booking.
func WithBookingWindow(start, end time.Time) BookingOption {
	return func(b *persistence.Booking) {
		b.Start = start
		b.End = end
	}
}

// WithBookingCreator sets the creator, who is also added as a participant.
func WithBookingCreator(userID string) BookingOption {
	return func(b *persistence.Booking) {
		b.CreatorID = userID
		b.Participants = append([]string{userID}, b.Participants...)
	}
}

// WithBookingParticipants replaces the participant list.
func WithBookingParticipants(userIDs ...string) BookingOption {
	return func(b *persistence.Booking) {
		b.Participants = userIDs
	}
}

// WithBookingResources replaces the reserved resources.
func WithBookingResources(refs ...scheduler.ResourceRef) BookingOption {
	return func(b *persistence.Booking) {
		b.Resources = refs
	}
}

// WithBookingReminders replaces the reminder specs.
func WithBookingReminders(specs ...notification.ReminderSpec) BookingOption {
	return func(b *persistence.Booking) {
		b.Reminders = specs
	}
}

// WithBookingSeries marks the booking as one occurrence of a recurring series.
func WithBookingSeries(seriesID string) BookingOption {
	return func(b *persistence.Booking) {
		b.SeriesID = &seriesID
	}
}

// NewScheduledNotificationFixture returns a deterministic pending notification
// for the supplied booking and participant, due 15 minutes before start.
func NewScheduledNotificationFixture(booking persistence.Booking, userID string) notification.ScheduledNotification {
	idx := atomic.AddUint64(&notificationCounter, 1)
	return notification.ScheduledNotification{
		ID:            fmt.Sprintf("sched-%03d", idx),
		BookingID:     booking.ID,
		UserID:        userID,
		OffsetMinutes: 15,
		Channels:      []notification.Channel{notification.ChannelEmail},
		DueAt:         booking.Start.Add(-15 * time.Minute),
		Status:        notification.StatusPending,
		Category:      notification.CategoryReminder,
		Title:         booking.Title,
		StartsAt:      booking.Start,
		CreatedAt:     referenceTime,
		UpdatedAt:     referenceTime,
	}
}

// NewPreferenceFixture returns a saved preference with quiet hours from 22:00
// to 07:00 and a 30 minute default offset. Overrides go through the returned
// value directly; the preference struct is small enough not to need options.
func NewPreferenceFixture(userID string) notification.Preference {
	pref := notification.DefaultPreference(userID)
	pref.DefaultReminderOffset = 30
	pref.QuietHours = &notification.QuietHours{
		Start: notification.TimeOfDay{Hour: 22},
		End:   notification.TimeOfDay{Hour: 7},
	}
	pref.UpdatedAt = referenceTime
	return pref
}
