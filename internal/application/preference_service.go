package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/resource-booking/internal/notification"
	"github.com/example/resource-booking/internal/persistence"
)

// PreferenceService manages per-user notification preferences.
type PreferenceService struct {
	preferences persistence.PreferenceRepository
	now         func() time.Time
	logger      *slog.Logger
}

// NewPreferenceService wires dependencies for preference operations.
func NewPreferenceService(preferences persistence.PreferenceRepository, now func() time.Time, logger *slog.Logger) *PreferenceService {
	if now == nil {
		now = time.Now
	}
	return &PreferenceService{preferences: preferences, now: now, logger: logger}
}

// GetPreference returns the user's saved preference, or the defaults when
// none was ever saved. Users may read their own preference; admins may read
// anyone's.
func (s *PreferenceService) GetPreference(ctx context.Context, principal Principal, userID string) (notification.Preference, error) {
	if principal.UserID != userID && !principal.IsAdmin {
		return notification.Preference{}, ErrUnauthorized
	}

	pref, err := s.preferences.GetPreference(ctx, userID)
	if errors.Is(err, persistence.ErrNotFound) {
		return notification.DefaultPreference(userID), nil
	}
	if err != nil {
		return notification.Preference{}, err
	}
	return pref, nil
}

// SavePreference validates and stores the user's preference.
func (s *PreferenceService) SavePreference(ctx context.Context, principal Principal, pref notification.Preference) error {
	logger := serviceLogger(ctx, s.logger, "preference", "save", "user_id", pref.UserID)

	if principal.UserID != pref.UserID && !principal.IsAdmin {
		return ErrUnauthorized
	}

	vErr := &ValidationError{}
	if pref.UserID == "" {
		vErr.add("user_id", "user id is required")
	}
	if pref.DefaultReminderOffset < 0 {
		vErr.add("default_reminder_offset", "offset must not be negative")
	}
	for _, category := range categoriesOf(pref) {
		switch category {
		case notification.CategoryCreated, notification.CategoryUpdated, notification.CategoryDeleted,
			notification.CategoryReminder, notification.CategoryLeave:
		default:
			vErr.add("categories", fmt.Sprintf("unknown category %q", category))
		}
	}
	if pref.QuietHours != nil {
		validateTimeOfDay(pref.QuietHours.Start, "quiet_hours.start", vErr)
		validateTimeOfDay(pref.QuietHours.End, "quiet_hours.end", vErr)
	}
	if vErr.HasErrors() {
		return vErr
	}

	pref.UpdatedAt = s.now().UTC()
	if err := s.preferences.SavePreference(ctx, pref); err != nil {
		return err
	}

	logger.InfoContext(ctx, "preference saved")
	return nil
}

func categoriesOf(pref notification.Preference) []notification.Category {
	categories := make([]notification.Category, 0, len(pref.Categories))
	for category := range pref.Categories {
		categories = append(categories, category)
	}
	return categories
}

func validateTimeOfDay(tod notification.TimeOfDay, field string, vErr *ValidationError) {
	if tod.Hour < 0 || tod.Hour > 23 {
		vErr.add(field, "hour must be between 0 and 23")
	}
	if tod.Minute < 0 || tod.Minute > 59 {
		vErr.add(field, "minute must be between 0 and 59")
	}
}
