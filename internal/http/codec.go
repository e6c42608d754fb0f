package http

import (
	"fmt"
	"time"

	"github.com/example/resource-booking/internal/notification"
)

// parseTime accepts RFC 3339 timestamps, with or without fractional seconds.
func parseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339, value)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func errInvalidTimestamp(field string) error {
	return fmt.Errorf("%s の日時形式が正しくありません。RFC 3339 形式で指定してください。", field)
}

// parseTimeOfDay accepts wall-clock times in "HH:MM" form.
func parseTimeOfDay(value string) (notification.TimeOfDay, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(value, "%d:%d", &hour, &minute); err != nil {
		return notification.TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", value, err)
	}
	return notification.TimeOfDay{Hour: hour, Minute: minute}, nil
}

func formatTimeOfDay(tod notification.TimeOfDay) string {
	return fmt.Sprintf("%02d:%02d", tod.Hour, tod.Minute)
}
