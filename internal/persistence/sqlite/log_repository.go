package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/example/resource-booking/internal/notification"
	"github.com/example/resource-booking/internal/persistence"
)

// NotificationLogRepository implements persistence.NotificationLogRepository
// using SQLite.
type NotificationLogRepository struct {
	db  *DB
	now func() time.Time
}

// NewNotificationLogRepository creates a new SQLite notification log repository.
func NewNotificationLogRepository(db *DB) *NotificationLogRepository {
	return &NotificationLogRepository{db: db, now: time.Now}
}

// AppendLog inserts one audit record.
func (r *NotificationLogRepository) AppendLog(ctx context.Context, entry notification.Log) error {
	if entry.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC()
	}

	_, err := r.db.db.ExecContext(ctx, `
		INSERT INTO notification_logs (id, booking_id, user_id, channel, category, summary, status, suppressed, error, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		entry.BookingID,
		entry.UserID,
		string(entry.Channel),
		string(entry.Category),
		entry.Summary,
		string(entry.Status),
		boolToInt(entry.Suppressed),
		entry.Error,
		boolToInt(entry.Read),
		entry.CreatedAt.UTC().Format(time.RFC3339),
	)
	return mapError(err)
}

// ListLogsForUser returns a user's log entries, newest first.
func (r *NotificationLogRepository) ListLogsForUser(ctx context.Context, userID string, limit int) ([]notification.Log, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.db.QueryContext(ctx, `
		SELECT id, booking_id, user_id, channel, category, summary, status, suppressed, error, read, created_at
		FROM notification_logs
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var entries []notification.Log
	for rows.Next() {
		var entry notification.Log
		var channel, category, status, createdStr string
		var suppressed, read int

		err := rows.Scan(
			&entry.ID,
			&entry.BookingID,
			&entry.UserID,
			&channel,
			&category,
			&entry.Summary,
			&status,
			&suppressed,
			&entry.Error,
			&read,
			&createdStr,
		)
		if err != nil {
			return nil, mapError(err)
		}

		entry.Channel = notification.Channel(channel)
		entry.Category = notification.Category(category)
		entry.Status = notification.Status(status)
		entry.Suppressed = suppressed != 0
		entry.Read = read != 0
		if entry.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
			return nil, fmt.Errorf("sqlite: parse created_at: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, mapError(rows.Err())
}

// MarkLogRead flags one log entry as read.
func (r *NotificationLogRepository) MarkLogRead(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.db.db.ExecContext(ctx, "UPDATE notification_logs SET read = 1 WHERE id = ?", id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
