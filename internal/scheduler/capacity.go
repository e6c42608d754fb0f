package scheduler

import "time"

// DefaultDailyCap bounds how many bookings may start on one business day when
// no explicit limit is configured.
const DefaultDailyCap = 10

// DailyCapacity enforces a maximum number of bookings whose start time falls
// on a given business calendar day. The day boundary is evaluated in Location,
// not UTC midnight.
//
// The cap counts bookings system-wide by default, which mirrors the behavior
// this service replaced. That scope is questionable as business policy, so
// per-resource-kind overrides are supported; whether the global count should
// survive at all is pending product confirmation.
type DailyCapacity struct {
	Cap      int
	KindCaps map[ResourceKind]int
	Location *time.Location
}

// NewDailyCapacity builds a limiter with the supplied global cap. Non-positive
// caps fall back to DefaultDailyCap. A nil location means UTC.
func NewDailyCapacity(cap int, loc *time.Location) DailyCapacity {
	if cap <= 0 {
		cap = DefaultDailyCap
	}
	if loc == nil {
		loc = time.UTC
	}
	return DailyCapacity{Cap: cap, Location: loc}
}

// WouldExceed reports whether adding a booking starting at candidateStart
// would exceed the global daily cap, i.e. the same-day count already reached
// the cap.
func (c DailyCapacity) WouldExceed(candidateStart time.Time, existing []Booking) bool {
	return c.countSameDay(candidateStart, existing, nil) >= c.effectiveCap(nil)
}

// WouldExceedForKind applies the per-kind cap override when one is configured,
// counting only bookings that reference a resource of the given kind.
func (c DailyCapacity) WouldExceedForKind(candidateStart time.Time, existing []Booking, kind ResourceKind) bool {
	return c.countSameDay(candidateStart, existing, &kind) >= c.effectiveCap(&kind)
}

func (c DailyCapacity) effectiveCap(kind *ResourceKind) int {
	if kind != nil {
		if cap, ok := c.KindCaps[*kind]; ok && cap > 0 {
			return cap
		}
	}
	if c.Cap > 0 {
		return c.Cap
	}
	return DefaultDailyCap
}

func (c DailyCapacity) countSameDay(candidateStart time.Time, existing []Booking, kind *ResourceKind) int {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := candidateStart.In(loc).Date()

	count := 0
	for _, booking := range existing {
		by, bm, bd := booking.Window.Start.In(loc).Date()
		if by != y || bm != m || bd != d {
			continue
		}
		if kind != nil && !referencesKind(booking, *kind) {
			continue
		}
		count++
	}
	return count
}

func referencesKind(booking Booking, kind ResourceKind) bool {
	for _, ref := range booking.Resources {
		if ref.Kind == kind {
			return true
		}
	}
	return false
}
