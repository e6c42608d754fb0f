package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/resource-booking/internal/notification"
	"github.com/example/resource-booking/internal/persistence"
)

// PreferenceRepository implements persistence.PreferenceRepository using SQLite.
type PreferenceRepository struct {
	db  *DB
	now func() time.Time
}

// NewPreferenceRepository creates a new SQLite preference repository.
func NewPreferenceRepository(db *DB) *PreferenceRepository {
	return &PreferenceRepository{db: db, now: time.Now}
}

// GetPreference loads a user's saved preference. Returns ErrNotFound for
// users who never saved one.
func (r *PreferenceRepository) GetPreference(ctx context.Context, userID string) (notification.Preference, error) {
	if userID == "" {
		return notification.Preference{}, persistence.ErrNotFound
	}

	row := r.db.db.QueryRowContext(ctx, `
		SELECT user_id, email_enabled, push_enabled, categories, default_reminder_offset, quiet_start, quiet_end, updated_at
		FROM preferences
		WHERE user_id = ?
	`, userID)

	var pref notification.Preference
	var emailEnabled, pushEnabled int
	var categoriesJSON, updatedStr string
	var quietStart, quietEnd sql.NullString

	err := row.Scan(
		&pref.UserID,
		&emailEnabled,
		&pushEnabled,
		&categoriesJSON,
		&pref.DefaultReminderOffset,
		&quietStart,
		&quietEnd,
		&updatedStr,
	)
	if err != nil {
		return notification.Preference{}, mapError(err)
	}

	pref.EmailEnabled = emailEnabled != 0
	pref.PushEnabled = pushEnabled != 0
	if err := json.Unmarshal([]byte(categoriesJSON), &pref.Categories); err != nil {
		return notification.Preference{}, fmt.Errorf("sqlite: parse categories: %w", err)
	}
	if pref.UpdatedAt, err = time.Parse(time.RFC3339, updatedStr); err != nil {
		return notification.Preference{}, fmt.Errorf("sqlite: parse updated_at: %w", err)
	}

	if quietStart.Valid && quietEnd.Valid {
		start, err := parseTimeOfDay(quietStart.String)
		if err != nil {
			return notification.Preference{}, err
		}
		end, err := parseTimeOfDay(quietEnd.String)
		if err != nil {
			return notification.Preference{}, err
		}
		pref.QuietHours = &notification.QuietHours{Start: start, End: end}
	}
	return pref, nil
}

// SavePreference upserts a user's preference.
func (r *PreferenceRepository) SavePreference(ctx context.Context, pref notification.Preference) error {
	if pref.UserID == "" {
		return persistence.ErrConstraintViolation
	}

	categories, err := json.Marshal(pref.Categories)
	if err != nil {
		return fmt.Errorf("sqlite: marshal categories: %w", err)
	}

	var quietStart, quietEnd sql.NullString
	if pref.QuietHours != nil {
		quietStart = sql.NullString{String: formatTimeOfDay(pref.QuietHours.Start), Valid: true}
		quietEnd = sql.NullString{String: formatTimeOfDay(pref.QuietHours.End), Valid: true}
	}

	_, err = r.db.db.ExecContext(ctx, `
		INSERT INTO preferences (user_id, email_enabled, push_enabled, categories, default_reminder_offset, quiet_start, quiet_end, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			email_enabled = excluded.email_enabled,
			push_enabled = excluded.push_enabled,
			categories = excluded.categories,
			default_reminder_offset = excluded.default_reminder_offset,
			quiet_start = excluded.quiet_start,
			quiet_end = excluded.quiet_end,
			updated_at = excluded.updated_at
	`,
		pref.UserID,
		boolToInt(pref.EmailEnabled),
		boolToInt(pref.PushEnabled),
		string(categories),
		pref.DefaultReminderOffset,
		quietStart,
		quietEnd,
		r.now().UTC().Format(time.RFC3339),
	)
	return mapError(err)
}

func formatTimeOfDay(tod notification.TimeOfDay) string {
	return fmt.Sprintf("%02d:%02d", tod.Hour, tod.Minute)
}

func parseTimeOfDay(value string) (notification.TimeOfDay, error) {
	var tod notification.TimeOfDay
	if _, err := fmt.Sscanf(value, "%d:%d", &tod.Hour, &tod.Minute); err != nil {
		return notification.TimeOfDay{}, fmt.Errorf("sqlite: parse time of day %q: %w", value, err)
	}
	return tod, nil
}
