package testfixtures

import (
	"testing"
	"time"
)

func TestClock(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected reference time, got %v", clock.Now())
	}

	updated := clock.Advance(90 * time.Minute)
	if !updated.Equal(ReferenceTime().Add(90 * time.Minute)) {
		t.Fatalf("unexpected time after advance: %v", updated)
	}

	target := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	clock.Set(target)
	if !clock.Now().Equal(target) {
		t.Fatalf("expected %v, got %v", target, clock.Now())
	}
}

func TestIDGenerator(t *testing.T) {
	gen := NewIDGenerator("booking")
	if got := gen.Next(); got != "booking-1" {
		t.Fatalf("expected booking-1, got %q", got)
	}
	if got := gen.Next(); got != "booking-2" {
		t.Fatalf("expected booking-2, got %q", got)
	}
}

func TestBookingFixturesDoNotOverlap(t *testing.T) {
	first := NewBookingFixture().Booking
	second := NewBookingFixture().Booking

	if first.ID == second.ID {
		t.Fatal("expected distinct booking ids")
	}
	if first.Start.Before(second.End) && second.Start.Before(first.End) {
		t.Fatalf("fixtures overlap: %v-%v vs %v-%v", first.Start, first.End, second.Start, second.End)
	}
}

func TestBookingFixtureOptions(t *testing.T) {
	start := ReferenceTime().Add(48 * time.Hour)
	fixture := NewBookingFixture(
		WithBookingID("bk-custom"),
		WithBookingWindow(start, start.Add(time.Hour)),
		WithBookingParticipants("user-007"),
	).Booking

	if fixture.ID != "bk-custom" {
		t.Fatalf("unexpected id %q", fixture.ID)
	}
	if !fixture.Start.Equal(start) {
		t.Fatalf("unexpected start %v", fixture.Start)
	}
	if len(fixture.Participants) != 1 || fixture.Participants[0] != "user-007" {
		t.Fatalf("unexpected participants %v", fixture.Participants)
	}
}
