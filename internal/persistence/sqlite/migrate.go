package sqlite

import (
	"context"
	"fmt"
)

// schema is applied idempotently at startup. The service owns its database
// file, so versioned migrations are overkill until the schema actually
// diverges between deployments.
const schema = `
CREATE TABLE IF NOT EXISTS bookings (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	category    TEXT NOT NULL,
	notes       TEXT,
	start_time  TEXT NOT NULL,
	end_time    TEXT NOT NULL,
	is_all_day  INTEGER NOT NULL DEFAULT 0,
	creator_id  TEXT NOT NULL,
	series_id   TEXT,
	reminders   TEXT NOT NULL DEFAULT '[]',
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	CHECK (start_time < end_time)
);

CREATE INDEX IF NOT EXISTS idx_bookings_time ON bookings (start_time, end_time);

CREATE TABLE IF NOT EXISTS booking_participants (
	booking_id TEXT NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
	user_id    TEXT NOT NULL,
	PRIMARY KEY (booking_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_booking_participants_user ON booking_participants (user_id);

CREATE TABLE IF NOT EXISTS booking_resources (
	booking_id  TEXT NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
	kind        TEXT NOT NULL,
	resource_id TEXT NOT NULL,
	PRIMARY KEY (booking_id, kind, resource_id)
);

CREATE INDEX IF NOT EXISTS idx_booking_resources_ref ON booking_resources (kind, resource_id);

CREATE TABLE IF NOT EXISTS scheduled_notifications (
	id             TEXT PRIMARY KEY,
	booking_id     TEXT NOT NULL,
	user_id        TEXT NOT NULL,
	offset_minutes INTEGER NOT NULL,
	channels       TEXT NOT NULL DEFAULT '[]',
	due_at         TEXT NOT NULL,
	status         TEXT NOT NULL,
	category       TEXT NOT NULL,
	title          TEXT NOT NULL,
	starts_at      TEXT NOT NULL,
	log_id         TEXT,
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL,
	CHECK (status IN ('pending', 'claimed', 'sent', 'failed', 'cancelled'))
);

CREATE INDEX IF NOT EXISTS idx_scheduled_notifications_due ON scheduled_notifications (status, due_at);
CREATE INDEX IF NOT EXISTS idx_scheduled_notifications_booking ON scheduled_notifications (booking_id);

CREATE TABLE IF NOT EXISTS notification_logs (
	id         TEXT PRIMARY KEY,
	booking_id TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	channel    TEXT NOT NULL,
	category   TEXT NOT NULL,
	summary    TEXT NOT NULL,
	status     TEXT NOT NULL,
	suppressed INTEGER NOT NULL DEFAULT 0,
	error      TEXT NOT NULL DEFAULT '',
	read       INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notification_logs_user ON notification_logs (user_id, created_at);

CREATE TABLE IF NOT EXISTS preferences (
	user_id                 TEXT PRIMARY KEY,
	email_enabled           INTEGER NOT NULL DEFAULT 1,
	push_enabled            INTEGER NOT NULL DEFAULT 1,
	categories              TEXT NOT NULL DEFAULT '{}',
	default_reminder_offset INTEGER NOT NULL DEFAULT 15,
	quiet_start             TEXT,
	quiet_end               TEXT,
	updated_at              TEXT NOT NULL
);
`

// Migrate creates the schema if it does not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return nil
}
