package recurrence

import (
	"errors"
	"time"

	"github.com/example/resource-booking/internal/scheduler"
)

// Frequency represents supported recurrence patterns.
type Frequency int

const (
	// FrequencyUnspecified indicates the rule frequency is not set.
	FrequencyUnspecified Frequency = iota
	// FrequencyDaily generates an occurrence every Interval days.
	FrequencyDaily
	// FrequencyWeekly generates an occurrence every Interval weeks.
	FrequencyWeekly
	// FrequencyMonthly generates an occurrence every Interval months.
	FrequencyMonthly
	// FrequencyYearly generates an occurrence every Interval years.
	FrequencyYearly
	// FrequencyWeekdays generates occurrences on Monday through Friday,
	// keeping every Interval-th matching day.
	FrequencyWeekdays
	// FrequencyCustomWeekdays generates occurrences on the selected weekdays,
	// keeping every Interval-th matching day.
	FrequencyCustomWeekdays
)

// EndType discriminates how a rule terminates.
type EndType int

const (
	// EndNone leaves the rule open ended; expansion is capped at the engine
	// horizon to guarantee termination.
	EndNone EndType = iota
	// EndCount terminates after a fixed number of occurrences, seed included.
	EndCount
	// EndDate terminates at the last occurrence starting on or before Until.
	EndDate
)

// Rule describes a recurrence configuration. Use the constructors; they are
// the only way to obtain a rule that passes Validate, which keeps invalid
// combinations (custom weekdays without a weekday set, zero counts)
// unrepresentable in practice.
type Rule struct {
	Frequency Frequency
	Interval  int
	Weekdays  []time.Weekday
	EndType   EndType
	Count     int
	Until     time.Time
}

// Daily returns a rule producing an occurrence every interval days.
func Daily(interval int) Rule {
	return Rule{Frequency: FrequencyDaily, Interval: normalizeInterval(interval)}
}

// Weekly returns a rule producing an occurrence every interval weeks.
func Weekly(interval int) Rule {
	return Rule{Frequency: FrequencyWeekly, Interval: normalizeInterval(interval)}
}

// Monthly returns a rule producing an occurrence every interval months.
func Monthly(interval int) Rule {
	return Rule{Frequency: FrequencyMonthly, Interval: normalizeInterval(interval)}
}

// Yearly returns a rule producing an occurrence every interval years.
func Yearly(interval int) Rule {
	return Rule{Frequency: FrequencyYearly, Interval: normalizeInterval(interval)}
}

// WeekdaysOnly returns a rule producing occurrences Monday through Friday.
func WeekdaysOnly(interval int) Rule {
	return Rule{Frequency: FrequencyWeekdays, Interval: normalizeInterval(interval)}
}

// CustomWeekdays returns a rule producing occurrences on the given weekdays.
func CustomWeekdays(interval int, days ...time.Weekday) Rule {
	return Rule{Frequency: FrequencyCustomWeekdays, Interval: normalizeInterval(interval), Weekdays: uniqueWeekdays(days)}
}

// WithCount caps the rule at n occurrences including the seed.
func (r Rule) WithCount(n int) Rule {
	r.EndType = EndCount
	r.Count = n
	return r
}

// WithUntil caps the rule at the last occurrence starting on or before ts.
func (r Rule) WithUntil(ts time.Time) Rule {
	r.EndType = EndDate
	r.Until = ts.UTC()
	return r
}

var (
	// ErrInvalidFrequency indicates the recurrence frequency is not supported.
	ErrInvalidFrequency = errors.New("recurrence: invalid frequency")
	// ErrMissingWeekdays indicates a custom weekday rule without weekdays.
	ErrMissingWeekdays = errors.New("recurrence: custom weekday rule requires weekdays")
	// ErrInvalidCount indicates a count-terminated rule with a non-positive count.
	ErrInvalidCount = errors.New("recurrence: occurrence count must be positive")
	// ErrInvalidDuration indicates the seed window duration is invalid.
	ErrInvalidDuration = errors.New("recurrence: seed window duration must be positive")
)

// Validate reports whether the rule is internally consistent.
func (r Rule) Validate() error {
	switch r.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly, FrequencyWeekdays:
	case FrequencyCustomWeekdays:
		if len(r.Weekdays) == 0 {
			return ErrMissingWeekdays
		}
	default:
		return ErrInvalidFrequency
	}
	if r.EndType == EndCount && r.Count <= 0 {
		return ErrInvalidCount
	}
	return nil
}

// DefaultHorizonYears bounds open-ended rules so expansion always terminates.
const DefaultHorizonYears = 2

// Engine expands recurrence rules into occurrence windows.
type Engine struct {
	location     *time.Location
	horizonYears int
}

// NewEngine constructs an Engine that evaluates calendar steps in the provided
// location. If loc is nil, UTC is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc, horizonYears: DefaultHorizonYears}
}

// Expand produces the occurrence windows for the rule, seeded by the first
// occurrence. The seed window is always the first result. Every produced
// window preserves the seed duration; callers are expected to conflict-check
// each occurrence independently.
//
// Termination is guaranteed: count- and date-terminated rules stop at their
// bound, open-ended rules stop at the engine horizon after the seed start.
func (e *Engine) Expand(rule Rule, seed scheduler.TimeWindow) ([]scheduler.TimeWindow, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if !seed.IsValid() {
		return nil, ErrInvalidDuration
	}

	loc := e.location
	if loc == nil {
		loc = time.UTC
	}
	duration := seed.Duration()
	start := seed.Start.In(loc)

	// Count- and date-terminated rules are already finite, so only open-ended
	// rules need the safety horizon. A zero upper leaves the walk bounded by
	// the count alone.
	var upper time.Time
	maxCount := -1
	switch rule.EndType {
	case EndCount:
		maxCount = rule.Count
	case EndDate:
		upper = rule.Until.In(loc)
	default:
		upper = start.AddDate(e.horizonYearsOrDefault(), 0, 0)
	}

	var starts []time.Time
	switch rule.Frequency {
	case FrequencyDaily:
		starts = stepCalendar(start, upper, maxCount, func(t time.Time) time.Time {
			return t.AddDate(0, 0, rule.Interval)
		})
	case FrequencyWeekly:
		starts = stepCalendar(start, upper, maxCount, func(t time.Time) time.Time {
			return t.AddDate(0, 0, 7*rule.Interval)
		})
	case FrequencyMonthly:
		starts = stepCalendar(start, upper, maxCount, func(t time.Time) time.Time {
			return t.AddDate(0, rule.Interval, 0)
		})
	case FrequencyYearly:
		starts = stepCalendar(start, upper, maxCount, func(t time.Time) time.Time {
			return t.AddDate(rule.Interval, 0, 0)
		})
	case FrequencyWeekdays:
		starts = stepWeekdaySet(start, upper, maxCount, rule.Interval, workweek())
	case FrequencyCustomWeekdays:
		starts = stepWeekdaySet(start, upper, maxCount, rule.Interval, weekdaySet(rule.Weekdays))
	}

	occurrences := make([]scheduler.TimeWindow, 0, len(starts))
	for _, occurrenceStart := range starts {
		occurrences = append(occurrences, scheduler.NewTimeWindow(occurrenceStart, occurrenceStart.Add(duration)))
	}
	return occurrences, nil
}

func (e *Engine) horizonYearsOrDefault() int {
	if e.horizonYears > 0 {
		return e.horizonYears
	}
	return DefaultHorizonYears
}

func stepCalendar(start, upper time.Time, maxCount int, next func(time.Time) time.Time) []time.Time {
	var starts []time.Time
	for current := start; upper.IsZero() || !current.After(upper); current = next(current) {
		starts = append(starts, current)
		if maxCount >= 0 && len(starts) >= maxCount {
			break
		}
	}
	return starts
}

// stepWeekdaySet walks day by day, keeping every interval-th day that falls in
// the weekday set. The seed start is always kept when it matches; a seed on an
// unselected weekday contributes only occurrences on selected days after it.
func stepWeekdaySet(start, upper time.Time, maxCount, interval int, set map[time.Weekday]struct{}) []time.Time {
	var starts []time.Time
	matches := 0
	for current := start; upper.IsZero() || !current.After(upper); current = current.AddDate(0, 0, 1) {
		if _, ok := set[current.Weekday()]; !ok {
			continue
		}
		if matches%interval == 0 {
			starts = append(starts, current)
			if maxCount >= 0 && len(starts) >= maxCount {
				break
			}
		}
		matches++
	}
	return starts
}

func workweek() map[time.Weekday]struct{} {
	return map[time.Weekday]struct{}{
		time.Monday:    {},
		time.Tuesday:   {},
		time.Wednesday: {},
		time.Thursday:  {},
		time.Friday:    {},
	}
}

func weekdaySet(days []time.Weekday) map[time.Weekday]struct{} {
	set := make(map[time.Weekday]struct{}, len(days))
	for _, day := range days {
		set[day] = struct{}{}
	}
	return set
}

func uniqueWeekdays(days []time.Weekday) []time.Weekday {
	seen := make(map[time.Weekday]struct{}, len(days))
	result := make([]time.Weekday, 0, len(days))
	for _, day := range days {
		if day < time.Sunday || day > time.Saturday {
			continue
		}
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		result = append(result, day)
	}
	return result
}

func normalizeInterval(interval int) int {
	if interval <= 0 {
		return 1
	}
	return interval
}
