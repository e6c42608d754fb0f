package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/resource-booking/internal/notification"
	"github.com/example/resource-booking/internal/persistence"
	"github.com/example/resource-booking/internal/scheduler"
)

func testBooking(id string, start time.Time) persistence.Booking {
	notes := "bring the projector"
	return persistence.Booking{
		ID:        id,
		Title:     "Sprint planning",
		Category:  "meeting",
		Notes:     &notes,
		Start:     start,
		End:       start.Add(time.Hour),
		CreatorID: "u-1",
		Participants: []string{"u-1", "u-2"},
		Resources: []scheduler.ResourceRef{
			{Kind: scheduler.ResourceKindRoom, ID: "room-301"},
		},
		Reminders: []notification.ReminderSpec{
			{OffsetMinutes: 15, Channels: []notification.Channel{notification.ChannelEmail}},
		},
	}
}

func TestBookingRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewBookingRepository(db)

	start := time.Date(2024, time.June, 10, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateBooking(ctx, testBooking("b-1", start)))

	fetched, err := repo.GetBooking(ctx, "b-1")
	require.NoError(t, err)

	assert.Equal(t, "Sprint planning", fetched.Title)
	assert.Equal(t, "meeting", fetched.Category)
	require.NotNil(t, fetched.Notes)
	assert.Equal(t, "bring the projector", *fetched.Notes)
	assert.True(t, fetched.Start.Equal(start))
	assert.True(t, fetched.End.Equal(start.Add(time.Hour)))
	assert.Equal(t, []string{"u-1", "u-2"}, fetched.Participants)
	require.Len(t, fetched.Resources, 1)
	assert.Equal(t, scheduler.ResourceKindRoom, fetched.Resources[0].Kind)
	assert.Equal(t, "room-301", fetched.Resources[0].ID)
	require.Len(t, fetched.Reminders, 1)
	assert.Equal(t, 15, fetched.Reminders[0].OffsetMinutes)
}

func TestBookingRepository_CreateRejectsInvertedWindow(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewBookingRepository(db)

	start := time.Date(2024, time.June, 10, 10, 0, 0, 0, time.UTC)
	booking := testBooking("b-1", start)
	booking.End = booking.Start

	err := repo.CreateBooking(ctx, booking)
	assert.ErrorIs(t, err, persistence.ErrConstraintViolation)
}

func TestBookingRepository_DuplicateID(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewBookingRepository(db)

	start := time.Date(2024, time.June, 10, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateBooking(ctx, testBooking("b-1", start)))

	err := repo.CreateBooking(ctx, testBooking("b-1", start.Add(2*time.Hour)))
	assert.ErrorIs(t, err, persistence.ErrDuplicate)
}

func TestBookingRepository_UpdateReplacesChildren(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewBookingRepository(db)

	start := time.Date(2024, time.June, 10, 10, 0, 0, 0, time.UTC)
	booking := testBooking("b-1", start)
	require.NoError(t, repo.CreateBooking(ctx, booking))

	booking.Title = "Sprint planning (moved)"
	booking.Start = start.Add(time.Hour)
	booking.End = start.Add(2 * time.Hour)
	booking.Participants = []string{"u-3"}
	booking.Resources = []scheduler.ResourceRef{
		{Kind: scheduler.ResourceKindVehicle, ID: "car-7"},
	}
	require.NoError(t, repo.UpdateBooking(ctx, booking))

	fetched, err := repo.GetBooking(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, "Sprint planning (moved)", fetched.Title)
	assert.Equal(t, []string{"u-3"}, fetched.Participants)
	require.Len(t, fetched.Resources, 1)
	assert.Equal(t, scheduler.ResourceKindVehicle, fetched.Resources[0].Kind)
}

func TestBookingRepository_UpdateMissing(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewBookingRepository(db)

	start := time.Date(2024, time.June, 10, 10, 0, 0, 0, time.UTC)
	err := repo.UpdateBooking(ctx, testBooking("b-missing", start))
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestBookingRepository_ListFiltersByParticipantAndRange(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewBookingRepository(db)

	day := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)

	first := testBooking("b-1", day.Add(9*time.Hour))
	second := testBooking("b-2", day.Add(14*time.Hour))
	second.Participants = []string{"u-9"}
	second.CreatorID = "u-9"
	third := testBooking("b-3", day.AddDate(0, 0, 7).Add(9*time.Hour))

	require.NoError(t, repo.CreateBooking(ctx, first))
	require.NoError(t, repo.CreateBooking(ctx, second))
	require.NoError(t, repo.CreateBooking(ctx, third))

	from := day
	until := day.AddDate(0, 0, 1)
	got, err := repo.ListBookings(ctx, persistence.BookingFilter{
		ParticipantIDs: []string{"u-2"},
		StartsAfter:    &from,
		EndsBefore:     &until,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b-1", got[0].ID)
}

func TestBookingRepository_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewBookingRepository(db)

	start := time.Date(2024, time.June, 10, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateBooking(ctx, testBooking("b-1", start)))
	require.NoError(t, repo.DeleteBooking(ctx, "b-1"))

	_, err := repo.GetBooking(ctx, "b-1")
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	var count int
	require.NoError(t, db.DB().QueryRow(
		"SELECT COUNT(*) FROM booking_participants WHERE booking_id = 'b-1'").Scan(&count))
	assert.Zero(t, count)

	assert.ErrorIs(t, repo.DeleteBooking(ctx, "b-1"), persistence.ErrNotFound)
}
