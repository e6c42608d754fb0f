package notification

import "time"

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) minutes() int {
	return t.Hour*60 + t.Minute
}

// QuietHours is a per-user time-of-day window during which delivery is
// suppressed. When Start is later than End the window wraps midnight,
// e.g. 22:00-07:00.
type QuietHours struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Contains reports whether the wall-clock time of now falls inside the quiet
// window. The boundary semantics are half-open: the start minute is quiet,
// the end minute is not.
func (q QuietHours) Contains(now time.Time) bool {
	current := now.Hour()*60 + now.Minute()
	start := q.Start.minutes()
	end := q.End.minutes()

	if start == end {
		return false
	}
	if start < end {
		return current >= start && current < end
	}
	// Wrap-around window spanning midnight.
	return current >= start || current < end
}

// Preference captures a user's notification settings.
type Preference struct {
	UserID                string
	EmailEnabled          bool
	PushEnabled           bool
	Categories            map[Category]bool
	DefaultReminderOffset int
	QuietHours            *QuietHours
	UpdatedAt             time.Time
}

// DefaultPreference returns the settings applied to users who never saved
// preferences: all channels and categories on, 15 minute default reminder,
// no quiet hours.
func DefaultPreference(userID string) Preference {
	return Preference{
		UserID:       userID,
		EmailEnabled: true,
		PushEnabled:  true,
		Categories: map[Category]bool{
			CategoryCreated:  true,
			CategoryUpdated:  true,
			CategoryDeleted:  true,
			CategoryReminder: true,
			CategoryLeave:    true,
		},
		DefaultReminderOffset: 15,
	}
}

// ChannelEnabled reports whether the master toggle for the channel is on.
func (p Preference) ChannelEnabled(channel Channel) bool {
	switch channel {
	case ChannelEmail:
		return p.EmailEnabled
	case ChannelPush:
		return p.PushEnabled
	default:
		return false
	}
}

// CategoryEnabled reports whether the category toggle is on. Categories the
// user never configured default to enabled.
func (p Preference) CategoryEnabled(category Category) bool {
	if p.Categories == nil {
		return true
	}
	enabled, ok := p.Categories[category]
	if !ok {
		return true
	}
	return enabled
}

// ShouldSuppress decides whether a delivery must be suppressed: the channel
// master toggle is off, the category toggle is off, or now falls inside the
// quiet hours window. Suppressed deliveries are still logged and counted as
// sent; there is no deferral or resend.
func ShouldSuppress(pref Preference, channel Channel, category Category, now time.Time) bool {
	if !pref.ChannelEnabled(channel) {
		return true
	}
	if !pref.CategoryEnabled(category) {
		return true
	}
	if pref.QuietHours != nil && pref.QuietHours.Contains(now) {
		return true
	}
	return false
}
