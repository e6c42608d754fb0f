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

// ScheduledNotificationRepository implements
// persistence.ScheduledNotificationRepository using SQLite.
type ScheduledNotificationRepository struct {
	db  *DB
	now func() time.Time
}

// NewScheduledNotificationRepository creates a new SQLite scheduled
// notification repository.
func NewScheduledNotificationRepository(db *DB) *ScheduledNotificationRepository {
	return &ScheduledNotificationRepository{db: db, now: time.Now}
}

const scheduledColumns = "id, booking_id, user_id, offset_minutes, channels, due_at, status, category, title, starts_at, log_id, created_at, updated_at"

// ReplacePlan cancels the booking's pending rows and inserts the new plan in
// one transaction, so an edit never leaves reminders for the old start time.
func (r *ScheduledNotificationRepository) ReplacePlan(ctx context.Context, bookingID string, items []notification.ScheduledNotification) error {
	if bookingID == "" {
		return persistence.ErrConstraintViolation
	}

	now := r.now().UTC().Format(time.RFC3339)
	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE scheduled_notifications
			SET status = ?, updated_at = ?
			WHERE booking_id = ? AND status = ?
		`, notification.StatusCancelled, now, bookingID, notification.StatusPending)
		if err != nil {
			return mapError(err)
		}

		for _, item := range items {
			channels, err := json.Marshal(item.Channels)
			if err != nil {
				return fmt.Errorf("sqlite: marshal channels: %w", err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO scheduled_notifications (`+scheduledColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				item.ID,
				item.BookingID,
				item.UserID,
				item.OffsetMinutes,
				string(channels),
				item.DueAt.UTC().Format(time.RFC3339),
				string(item.Status),
				string(item.Category),
				item.Title,
				item.StartsAt.UTC().Format(time.RFC3339),
				nullString(item.LogID),
				now,
				now,
			)
			if err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// CancelForBooking cancels the booking's pending rows and, defensively, any
// claimed rows a dispatcher has not yet resolved.
func (r *ScheduledNotificationRepository) CancelForBooking(ctx context.Context, bookingID string) error {
	if bookingID == "" {
		return persistence.ErrConstraintViolation
	}

	now := r.now().UTC().Format(time.RFC3339)
	_, err := r.db.db.ExecContext(ctx, `
		UPDATE scheduled_notifications
		SET status = ?, updated_at = ?
		WHERE booking_id = ? AND status IN (?, ?)
	`, notification.StatusCancelled, now, bookingID, notification.StatusPending, notification.StatusClaimed)
	return mapError(err)
}

// ClaimDue transitions due pending rows to claimed and returns them. Each row
// is claimed with a compare-and-set on its status, so concurrent dispatchers
// never receive the same row twice.
func (r *ScheduledNotificationRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]notification.ScheduledNotification, error) {
	if limit <= 0 {
		return nil, nil
	}

	nowStr := now.UTC().Format(time.RFC3339)
	rows, err := r.db.db.QueryContext(ctx, `
		SELECT id FROM scheduled_notifications
		WHERE status = ? AND due_at <= ?
		ORDER BY due_at ASC, id ASC
		LIMIT ?
	`, notification.StatusPending, nowStr, limit)
	if err != nil {
		return nil, mapError(err)
	}

	var candidates []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, mapError(err)
		}
		candidates = append(candidates, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, mapError(err)
	}
	rows.Close()

	var claimed []notification.ScheduledNotification
	for _, id := range candidates {
		result, err := r.db.db.ExecContext(ctx, `
			UPDATE scheduled_notifications
			SET status = ?, updated_at = ?
			WHERE id = ? AND status = ?
		`, notification.StatusClaimed, nowStr, id, notification.StatusPending)
		if err != nil {
			return claimed, mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return claimed, fmt.Errorf("sqlite: rows affected: %w", err)
		}
		if affected == 0 {
			// Another worker won the row between the select and the update.
			continue
		}

		item, err := r.get(ctx, id)
		if err != nil {
			return claimed, err
		}
		claimed = append(claimed, item)
	}
	return claimed, nil
}

// MarkSent transitions a claimed row to sent and links its audit log entry.
func (r *ScheduledNotificationRepository) MarkSent(ctx context.Context, id string, logID string) error {
	return r.markTerminal(ctx, id, notification.StatusSent, logID)
}

// MarkFailed transitions a claimed row to failed and links its audit log entry.
func (r *ScheduledNotificationRepository) MarkFailed(ctx context.Context, id string, logID string) error {
	return r.markTerminal(ctx, id, notification.StatusFailed, logID)
}

func (r *ScheduledNotificationRepository) markTerminal(ctx context.Context, id string, status notification.Status, logID string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	var logRef sql.NullString
	if logID != "" {
		logRef = sql.NullString{String: logID, Valid: true}
	}

	result, err := r.db.db.ExecContext(ctx, `
		UPDATE scheduled_notifications
		SET status = ?, log_id = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, string(status), logRef, r.now().UTC().Format(time.RFC3339), id, notification.StatusClaimed)
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

// ListForBooking returns all reminder rows for a booking ordered by due time.
func (r *ScheduledNotificationRepository) ListForBooking(ctx context.Context, bookingID string) ([]notification.ScheduledNotification, error) {
	rows, err := r.db.db.QueryContext(ctx, `
		SELECT `+scheduledColumns+`
		FROM scheduled_notifications
		WHERE booking_id = ?
		ORDER BY due_at ASC, id ASC
	`, bookingID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var items []notification.ScheduledNotification
	for rows.Next() {
		item, err := scanScheduled(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, mapError(rows.Err())
}

func (r *ScheduledNotificationRepository) get(ctx context.Context, id string) (notification.ScheduledNotification, error) {
	row := r.db.db.QueryRowContext(ctx, `
		SELECT `+scheduledColumns+`
		FROM scheduled_notifications
		WHERE id = ?
	`, id)
	return scanScheduled(row)
}

func scanScheduled(row rowScanner) (notification.ScheduledNotification, error) {
	var item notification.ScheduledNotification
	var channelsJSON, dueStr, status, category, startsStr, createdStr, updatedStr string
	var logID sql.NullString

	err := row.Scan(
		&item.ID,
		&item.BookingID,
		&item.UserID,
		&item.OffsetMinutes,
		&channelsJSON,
		&dueStr,
		&status,
		&category,
		&item.Title,
		&startsStr,
		&logID,
		&createdStr,
		&updatedStr,
	)
	if err != nil {
		return notification.ScheduledNotification{}, mapError(err)
	}

	item.Status = notification.Status(status)
	item.Category = notification.Category(category)
	if logID.Valid {
		item.LogID = &logID.String
	}
	if err := json.Unmarshal([]byte(channelsJSON), &item.Channels); err != nil {
		return notification.ScheduledNotification{}, fmt.Errorf("sqlite: parse channels: %w", err)
	}
	if item.DueAt, err = time.Parse(time.RFC3339, dueStr); err != nil {
		return notification.ScheduledNotification{}, fmt.Errorf("sqlite: parse due_at: %w", err)
	}
	if item.StartsAt, err = time.Parse(time.RFC3339, startsStr); err != nil {
		return notification.ScheduledNotification{}, fmt.Errorf("sqlite: parse starts_at: %w", err)
	}
	if item.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
		return notification.ScheduledNotification{}, fmt.Errorf("sqlite: parse created_at: %w", err)
	}
	if item.UpdatedAt, err = time.Parse(time.RFC3339, updatedStr); err != nil {
		return notification.ScheduledNotification{}, fmt.Errorf("sqlite: parse updated_at: %w", err)
	}
	return item, nil
}
