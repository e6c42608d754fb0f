package notification

import "time"

// Channel identifies a delivery channel for notifications.
type Channel string

const (
	// ChannelEmail delivers via the email transport.
	ChannelEmail Channel = "email"
	// ChannelPush delivers via the push transport.
	ChannelPush Channel = "push"
)

// Category classifies the event a notification reports.
type Category string

const (
	// CategoryCreated reports a newly created booking.
	CategoryCreated Category = "created"
	// CategoryUpdated reports a rescheduled or edited booking.
	CategoryUpdated Category = "updated"
	// CategoryDeleted reports a removed booking.
	CategoryDeleted Category = "deleted"
	// CategoryReminder reports an upcoming booking start.
	CategoryReminder Category = "reminder"
	// CategoryLeave reports leave-related bookings.
	CategoryLeave Category = "leave"
)

// Status tracks the lifecycle of a scheduled notification.
type Status string

const (
	// StatusPending marks a notification waiting for its due time.
	StatusPending Status = "pending"
	// StatusClaimed marks a notification a dispatcher worker owns exclusively.
	StatusClaimed Status = "claimed"
	// StatusSent marks a delivered (or deliberately suppressed) notification.
	StatusSent Status = "sent"
	// StatusFailed marks a notification whose send attempt failed. Failed
	// rows are terminal; retries are an administrative action.
	StatusFailed Status = "failed"
	// StatusCancelled marks a notification invalidated by a booking change.
	StatusCancelled Status = "cancelled"
)

// ReminderSpec describes one reminder attached to a booking.
type ReminderSpec struct {
	OffsetMinutes int
	Channels      []Channel
}

// ScheduledNotification is one due reminder for one participant. Booking
// title, category and start are snapshotted at planning time so the
// dispatcher can build a payload without re-reading a booking that may have
// been deleted since the claim.
type ScheduledNotification struct {
	ID            string
	BookingID     string
	UserID        string
	OffsetMinutes int
	Channels      []Channel
	DueAt         time.Time
	Status        Status
	Category      Category
	Title         string
	StartsAt      time.Time
	LogID         *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Log is an append-only audit record of one attempted (or suppressed) send.
// It is owned by the dispatcher and never mutated except to mark it read.
type Log struct {
	ID         string
	BookingID  string
	UserID     string
	Channel    Channel
	Category   Category
	Summary    string
	Status     Status
	Suppressed bool
	Error      string
	Read       bool
	CreatedAt  time.Time
}

// Payload carries the minimum data the external sender needs to render and
// deliver a notification. Template rendering stays outside this core.
type Payload struct {
	BookingID     string
	Title         string
	StartsAt      time.Time
	OffsetMinutes int
}
