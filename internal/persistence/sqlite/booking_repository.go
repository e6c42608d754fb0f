package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/example/resource-booking/internal/persistence"
	"github.com/example/resource-booking/internal/scheduler"
)

// BookingRepository implements persistence.BookingRepository using SQLite.
type BookingRepository struct {
	db  *DB
	now func() time.Time
}

// NewBookingRepository creates a new SQLite booking repository.
func NewBookingRepository(db *DB) *BookingRepository {
	return &BookingRepository{db: db, now: time.Now}
}

// CreateBooking inserts a booking with its participants and resources.
func (r *BookingRepository) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if !booking.Start.Before(booking.End) {
		return persistence.ErrConstraintViolation
	}

	now := r.now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	reminders, err := json.Marshal(booking.Reminders)
	if err != nil {
		return fmt.Errorf("sqlite: marshal reminders: %w", err)
	}

	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO bookings (id, title, category, notes, start_time, end_time, is_all_day, creator_id, series_id, reminders, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			booking.ID,
			booking.Title,
			booking.Category,
			nullString(booking.Notes),
			booking.Start.UTC().Format(time.RFC3339),
			booking.End.UTC().Format(time.RFC3339),
			boolToInt(booking.IsAllDay),
			booking.CreatorID,
			nullString(booking.SeriesID),
			string(reminders),
			booking.CreatedAt.Format(time.RFC3339),
			booking.UpdatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return mapError(err)
		}
		if err := insertParticipants(ctx, tx, booking.ID, booking.Participants); err != nil {
			return err
		}
		return insertResources(ctx, tx, booking.ID, booking.Resources)
	})
}

// UpdateBooking rewrites a booking and replaces its participants and
// resources. The creator is immutable.
func (r *BookingRepository) UpdateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" {
		return persistence.ErrNotFound
	}
	if !booking.Start.Before(booking.End) {
		return persistence.ErrConstraintViolation
	}

	booking.UpdatedAt = r.now().UTC()

	reminders, err := json.Marshal(booking.Reminders)
	if err != nil {
		return fmt.Errorf("sqlite: marshal reminders: %w", err)
	}

	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE bookings
			SET title = ?, category = ?, notes = ?, start_time = ?, end_time = ?, is_all_day = ?, series_id = ?, reminders = ?, updated_at = ?
			WHERE id = ?
		`,
			booking.Title,
			booking.Category,
			nullString(booking.Notes),
			booking.Start.UTC().Format(time.RFC3339),
			booking.End.UTC().Format(time.RFC3339),
			boolToInt(booking.IsAllDay),
			nullString(booking.SeriesID),
			string(reminders),
			booking.UpdatedAt.Format(time.RFC3339),
			booking.ID,
		)
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

		if _, err := tx.ExecContext(ctx, "DELETE FROM booking_participants WHERE booking_id = ?", booking.ID); err != nil {
			return mapError(err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM booking_resources WHERE booking_id = ?", booking.ID); err != nil {
			return mapError(err)
		}
		if err := insertParticipants(ctx, tx, booking.ID, booking.Participants); err != nil {
			return err
		}
		return insertResources(ctx, tx, booking.ID, booking.Resources)
	})
}

// GetBooking retrieves a booking by ID.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	if id == "" {
		return persistence.Booking{}, persistence.ErrNotFound
	}

	row := r.db.db.QueryRowContext(ctx, `
		SELECT id, title, category, notes, start_time, end_time, is_all_day, creator_id, series_id, reminders, created_at, updated_at
		FROM bookings
		WHERE id = ?
	`, id)

	booking, err := scanBooking(row)
	if err != nil {
		return persistence.Booking{}, err
	}
	if err := r.loadChildren(ctx, &booking); err != nil {
		return persistence.Booking{}, err
	}
	return booking, nil
}

// ListBookings lists bookings matching the filter ordered by start time.
func (r *BookingRepository) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	query, args := buildBookingListQuery(filter)

	rows, err := r.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var bookings []persistence.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	for i := range bookings {
		if err := r.loadChildren(ctx, &bookings[i]); err != nil {
			return nil, err
		}
	}
	return bookings, nil
}

// DeleteBooking removes a booking; child rows cascade.
func (r *BookingRepository) DeleteBooking(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.db.db.ExecContext(ctx, "DELETE FROM bookings WHERE id = ?", id)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (persistence.Booking, error) {
	var booking persistence.Booking
	var notes, seriesID sql.NullString
	var startStr, endStr, createdStr, updatedStr, remindersJSON string
	var isAllDay int

	err := row.Scan(
		&booking.ID,
		&booking.Title,
		&booking.Category,
		&notes,
		&startStr,
		&endStr,
		&isAllDay,
		&booking.CreatorID,
		&seriesID,
		&remindersJSON,
		&createdStr,
		&updatedStr,
	)
	if err != nil {
		return persistence.Booking{}, mapError(err)
	}

	if notes.Valid {
		booking.Notes = &notes.String
	}
	if seriesID.Valid {
		booking.SeriesID = &seriesID.String
	}
	booking.IsAllDay = isAllDay != 0

	if booking.Start, err = time.Parse(time.RFC3339, startStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("sqlite: parse start_time: %w", err)
	}
	if booking.End, err = time.Parse(time.RFC3339, endStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("sqlite: parse end_time: %w", err)
	}
	if booking.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("sqlite: parse created_at: %w", err)
	}
	if booking.UpdatedAt, err = time.Parse(time.RFC3339, updatedStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("sqlite: parse updated_at: %w", err)
	}
	if err := json.Unmarshal([]byte(remindersJSON), &booking.Reminders); err != nil {
		return persistence.Booking{}, fmt.Errorf("sqlite: parse reminders: %w", err)
	}
	return booking, nil
}

func (r *BookingRepository) loadChildren(ctx context.Context, booking *persistence.Booking) error {
	rows, err := r.db.db.QueryContext(ctx,
		"SELECT user_id FROM booking_participants WHERE booking_id = ? ORDER BY user_id ASC", booking.ID)
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return mapError(err)
		}
		booking.Participants = append(booking.Participants, userID)
	}
	if err := rows.Err(); err != nil {
		return mapError(err)
	}

	resourceRows, err := r.db.db.QueryContext(ctx,
		"SELECT kind, resource_id FROM booking_resources WHERE booking_id = ? ORDER BY kind, resource_id ASC", booking.ID)
	if err != nil {
		return mapError(err)
	}
	defer resourceRows.Close()
	for resourceRows.Next() {
		var kind, resourceID string
		if err := resourceRows.Scan(&kind, &resourceID); err != nil {
			return mapError(err)
		}
		booking.Resources = append(booking.Resources, scheduler.ResourceRef{
			Kind: scheduler.ResourceKind(kind),
			ID:   resourceID,
		})
	}
	return mapError(resourceRows.Err())
}

func insertParticipants(ctx context.Context, tx *sql.Tx, bookingID string, participants []string) error {
	seen := make(map[string]struct{}, len(participants))
	for _, participant := range participants {
		participant = strings.TrimSpace(participant)
		if participant == "" {
			continue
		}
		if _, dup := seen[participant]; dup {
			continue
		}
		seen[participant] = struct{}{}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO booking_participants (booking_id, user_id) VALUES (?, ?)",
			bookingID, participant); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func insertResources(ctx context.Context, tx *sql.Tx, bookingID string, resources []scheduler.ResourceRef) error {
	seen := make(map[scheduler.ResourceRef]struct{}, len(resources))
	for _, resource := range resources {
		if resource.ID == "" {
			continue
		}
		if _, dup := seen[resource]; dup {
			continue
		}
		seen[resource] = struct{}{}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO booking_resources (booking_id, kind, resource_id) VALUES (?, ?, ?)",
			bookingID, string(resource.Kind), resource.ID); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func buildBookingListQuery(filter persistence.BookingFilter) (string, []any) {
	query := `
		SELECT DISTINCT b.id, b.title, b.category, b.notes, b.start_time, b.end_time, b.is_all_day, b.creator_id, b.series_id, b.reminders, b.created_at, b.updated_at
		FROM bookings b
	`

	var conditions []string
	var args []any

	if len(filter.ParticipantIDs) > 0 {
		query += " LEFT JOIN booking_participants bp ON b.id = bp.booking_id"
		placeholders := make([]string, len(filter.ParticipantIDs))
		for i, participantID := range filter.ParticipantIDs {
			placeholders[i] = "?"
			args = append(args, participantID)
		}
		conditions = append(conditions, fmt.Sprintf("(bp.user_id IN (%s) OR b.creator_id IN (%s))",
			strings.Join(placeholders, ","), strings.Join(placeholders, ",")))
		for _, participantID := range filter.ParticipantIDs {
			args = append(args, participantID)
		}
	}

	if filter.StartsAfter != nil {
		conditions = append(conditions, "b.end_time > ?")
		args = append(args, filter.StartsAfter.UTC().Format(time.RFC3339))
	}
	if filter.EndsBefore != nil {
		conditions = append(conditions, "b.start_time < ?")
		args = append(args, filter.EndsBefore.UTC().Format(time.RFC3339))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY b.start_time ASC, b.id ASC"
	return query, args
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
