package scheduler

import "time"

// TimeWindow represents a half-open interval [Start, End).
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// NewTimeWindow normalizes both bounds to UTC. Callers remain responsible for
// ensuring End is after Start; IsValid reports the invariant.
func NewTimeWindow(start, end time.Time) TimeWindow {
	return TimeWindow{Start: start.UTC(), End: end.UTC()}
}

// IsValid reports whether the window has positive duration.
func (w TimeWindow) IsValid() bool {
	return w.End.After(w.Start)
}

// Duration returns the length of the window.
func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Overlaps reports whether two windows share any instant. The intersection is
// open: windows that merely touch (a.End == b.Start) do not overlap.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// Shift returns a copy of the window translated by d, preserving duration.
func (w TimeWindow) Shift(d time.Duration) TimeWindow {
	return TimeWindow{Start: w.Start.Add(d), End: w.End.Add(d)}
}
