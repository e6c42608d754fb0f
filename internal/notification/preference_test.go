package notification

import (
	"testing"
	"time"
)

func at(t *testing.T, hour, minute int) time.Time {
	t.Helper()
	return time.Date(2024, time.June, 10, hour, minute, 0, 0, time.UTC)
}

func TestQuietHours_WrapAround(t *testing.T) {
	t.Parallel()

	quiet := QuietHours{Start: TimeOfDay{Hour: 22}, End: TimeOfDay{Hour: 7}}

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{name: "suppresses at 23:30", now: at(t, 23, 30), want: true},
		{name: "suppresses at 06:00", now: at(t, 6, 0), want: true},
		{name: "allows at 08:00", now: at(t, 8, 0), want: false},
		{name: "allows at 21:59", now: at(t, 21, 59), want: false},
		{name: "start boundary is quiet", now: at(t, 22, 0), want: true},
		{name: "end boundary is not quiet", now: at(t, 7, 0), want: false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := quiet.Contains(tc.now); got != tc.want {
				t.Fatalf("Contains(%v) = %v, want %v", tc.now, got, tc.want)
			}
		})
	}
}

func TestQuietHours_SameDayWindow(t *testing.T) {
	t.Parallel()

	quiet := QuietHours{Start: TimeOfDay{Hour: 12}, End: TimeOfDay{Hour: 13}}
	if !quiet.Contains(at(t, 12, 30)) {
		t.Fatalf("expected 12:30 to be quiet")
	}
	if quiet.Contains(at(t, 13, 30)) {
		t.Fatalf("expected 13:30 not to be quiet")
	}
}

func TestQuietHours_EmptyWindowNeverSuppresses(t *testing.T) {
	t.Parallel()

	quiet := QuietHours{Start: TimeOfDay{Hour: 9}, End: TimeOfDay{Hour: 9}}
	if quiet.Contains(at(t, 9, 0)) {
		t.Fatalf("zero-length quiet window must never suppress")
	}
}

func TestShouldSuppress(t *testing.T) {
	t.Parallel()

	base := DefaultPreference("u-1")

	if ShouldSuppress(base, ChannelEmail, CategoryReminder, at(t, 10, 0)) {
		t.Fatalf("default preference must not suppress")
	}

	emailOff := base
	emailOff.EmailEnabled = false
	if !ShouldSuppress(emailOff, ChannelEmail, CategoryReminder, at(t, 10, 0)) {
		t.Fatalf("disabled channel must suppress")
	}
	if ShouldSuppress(emailOff, ChannelPush, CategoryReminder, at(t, 10, 0)) {
		t.Fatalf("other channels stay unaffected by the email toggle")
	}

	categoryOff := DefaultPreference("u-1")
	categoryOff.Categories[CategoryReminder] = false
	if !ShouldSuppress(categoryOff, ChannelEmail, CategoryReminder, at(t, 10, 0)) {
		t.Fatalf("disabled category must suppress")
	}
	if ShouldSuppress(categoryOff, ChannelEmail, CategoryCreated, at(t, 10, 0)) {
		t.Fatalf("other categories stay enabled")
	}

	quiet := DefaultPreference("u-1")
	quiet.QuietHours = &QuietHours{Start: TimeOfDay{Hour: 22}, End: TimeOfDay{Hour: 7}}
	if !ShouldSuppress(quiet, ChannelPush, CategoryReminder, at(t, 23, 30)) {
		t.Fatalf("quiet hours must suppress")
	}
	if ShouldSuppress(quiet, ChannelPush, CategoryReminder, at(t, 8, 0)) {
		t.Fatalf("outside quiet hours must not suppress")
	}
}

func TestPreference_UnknownCategoryDefaultsEnabled(t *testing.T) {
	t.Parallel()

	pref := Preference{UserID: "u-1", EmailEnabled: true, Categories: map[Category]bool{CategoryCreated: false}}
	if !pref.CategoryEnabled(CategoryReminder) {
		t.Fatalf("unconfigured categories default to enabled")
	}
	if pref.CategoryEnabled(CategoryCreated) {
		t.Fatalf("explicitly disabled category must stay disabled")
	}
}
