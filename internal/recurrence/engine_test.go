package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/example/resource-booking/internal/scheduler"
)

func seedWindow(t *testing.T, start time.Time, d time.Duration) scheduler.TimeWindow {
	t.Helper()
	return scheduler.NewTimeWindow(start, start.Add(d))
}

func TestEngine_Expand_WeeklyCount(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC)
	// Monday 10:00.
	start := time.Date(2024, time.June, 10, 10, 0, 0, 0, time.UTC)
	seed := seedWindow(t, start, time.Hour)

	occurrences, err := engine.Expand(Weekly(1).WithCount(4), seed)
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if len(occurrences) != 4 {
		t.Fatalf("expected 4 occurrences, got %d", len(occurrences))
	}
	for i, occurrence := range occurrences {
		wantStart := start.AddDate(0, 0, 7*i)
		if !occurrence.Start.Equal(wantStart) {
			t.Fatalf("occurrence %d start = %v, want %v", i, occurrence.Start, wantStart)
		}
		if occurrence.Duration() != time.Hour {
			t.Fatalf("occurrence %d duration = %v, want 1h", i, occurrence.Duration())
		}
	}
}

func TestEngine_Expand_DailyUntil(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC)
	start := time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)
	seed := seedWindow(t, start, 30*time.Minute)

	until := start.AddDate(0, 0, 4)
	occurrences, err := engine.Expand(Daily(2).WithUntil(until), seed)
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	// Days 0, 2, 4.
	if len(occurrences) != 3 {
		t.Fatalf("expected 3 occurrences, got %d: %v", len(occurrences), occurrences)
	}
	if last := occurrences[2].Start; !last.Equal(until) {
		t.Fatalf("last occurrence = %v, want %v", last, until)
	}
}

func TestEngine_Expand_WeekdaysOnlySkipsWeekend(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC)
	// Friday 09:00.
	start := time.Date(2024, time.June, 14, 9, 0, 0, 0, time.UTC)
	seed := seedWindow(t, start, time.Hour)

	occurrences, err := engine.Expand(WeekdaysOnly(1).WithCount(3), seed)
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if len(occurrences) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(occurrences))
	}
	// Friday, Monday, Tuesday.
	wantDays := []time.Weekday{time.Friday, time.Monday, time.Tuesday}
	for i, occurrence := range occurrences {
		if occurrence.Start.Weekday() != wantDays[i] {
			t.Fatalf("occurrence %d on %v, want %v", i, occurrence.Start.Weekday(), wantDays[i])
		}
	}
}

func TestEngine_Expand_CustomWeekdays(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC)
	// Monday 09:00.
	start := time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)
	seed := seedWindow(t, start, time.Hour)

	rule := CustomWeekdays(1, time.Monday, time.Wednesday).WithCount(4)
	occurrences, err := engine.Expand(rule, seed)
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	wantDays := []time.Weekday{time.Monday, time.Wednesday, time.Monday, time.Wednesday}
	if len(occurrences) != len(wantDays) {
		t.Fatalf("expected %d occurrences, got %d", len(wantDays), len(occurrences))
	}
	for i, occurrence := range occurrences {
		if occurrence.Start.Weekday() != wantDays[i] {
			t.Fatalf("occurrence %d on %v, want %v", i, occurrence.Start.Weekday(), wantDays[i])
		}
	}
}

func TestEngine_Expand_MonthlyPreservesTimeOfDay(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC)
	start := time.Date(2024, time.January, 15, 14, 30, 0, 0, time.UTC)
	seed := seedWindow(t, start, 2*time.Hour)

	occurrences, err := engine.Expand(Monthly(1).WithCount(3), seed)
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if len(occurrences) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(occurrences))
	}
	for i, occurrence := range occurrences {
		if occurrence.Start.Hour() != 14 || occurrence.Start.Minute() != 30 {
			t.Fatalf("occurrence %d lost time of day: %v", i, occurrence.Start)
		}
		if occurrence.Start.Month() != time.Month(int(time.January)+i) {
			t.Fatalf("occurrence %d month = %v", i, occurrence.Start.Month())
		}
	}
}

func TestEngine_Expand_OpenEndedCappedAtHorizon(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC)
	start := time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)
	seed := seedWindow(t, start, time.Hour)

	occurrences, err := engine.Expand(Yearly(1), seed)
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	// Seed year plus the horizon years.
	if len(occurrences) != DefaultHorizonYears+1 {
		t.Fatalf("expected %d occurrences, got %d", DefaultHorizonYears+1, len(occurrences))
	}

	weekly, err := engine.Expand(Weekly(1), seed)
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if len(weekly) == 0 || len(weekly) > 2*53 {
		t.Fatalf("open-ended weekly expansion not capped sensibly: %d occurrences", len(weekly))
	}
}

func TestEngine_Expand_BoundedRulesExceedHorizon(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC)
	start := time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)
	seed := seedWindow(t, start, time.Hour)

	// Five yearly occurrences span well past the open-ended horizon; the
	// count bound wins.
	occurrences, err := engine.Expand(Yearly(1).WithCount(5), seed)
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if len(occurrences) != 5 {
		t.Fatalf("expected 5 occurrences, got %d", len(occurrences))
	}
	for i, occurrence := range occurrences {
		if want := start.AddDate(i, 0, 0); !occurrence.Start.Equal(want) {
			t.Fatalf("occurrence %d start = %v, want %v", i, occurrence.Start, want)
		}
	}

	until := start.AddDate(4, 0, 0)
	dated, err := engine.Expand(Yearly(1).WithUntil(until), seed)
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if len(dated) != 5 {
		t.Fatalf("expected 5 occurrences up to %v, got %d", until, len(dated))
	}
	if last := dated[4].Start; !last.Equal(until) {
		t.Fatalf("last occurrence = %v, want %v", last, until)
	}
}

func TestEngine_Expand_RejectsInvalidRules(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC)
	start := time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)
	seed := seedWindow(t, start, time.Hour)

	if _, err := engine.Expand(Rule{}, seed); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}
	if _, err := engine.Expand(Rule{Frequency: FrequencyCustomWeekdays, Interval: 1}, seed); !errors.Is(err, ErrMissingWeekdays) {
		t.Fatalf("expected ErrMissingWeekdays, got %v", err)
	}
	if _, err := engine.Expand(Daily(1).WithCount(0), seed); !errors.Is(err, ErrInvalidCount) {
		t.Fatalf("expected ErrInvalidCount, got %v", err)
	}
	invalid := scheduler.NewTimeWindow(start, start)
	if _, err := engine.Expand(Daily(1).WithCount(2), invalid); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
}
