package notification

import "time"

// PlanInput is the slice of a booking the planner needs.
type PlanInput struct {
	BookingID    string
	Category     Category
	Title        string
	Start        time.Time
	Participants []string
	Reminders    []ReminderSpec
}

// Planner computes the scheduled notifications a booking requires.
type Planner struct {
	idGenerator func() string
	now         func() time.Time
}

// NewPlanner wires the planner's identity and time sources.
func NewPlanner(idGenerator func() string, now func() time.Time) *Planner {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &Planner{idGenerator: idGenerator, now: now}
}

// Plan returns one pending ScheduledNotification per (participant, reminder)
// pair with dueAt = start - offset. Pairs whose due time already passed are
// skipped silently: a reschedule into the near future must not fire
// retroactive reminders. Reminders without channels are skipped as well.
func (p *Planner) Plan(input PlanInput) []ScheduledNotification {
	now := p.now()
	category := input.Category
	if category == "" {
		category = CategoryReminder
	}

	var planned []ScheduledNotification
	for _, participant := range input.Participants {
		for _, spec := range input.Reminders {
			if len(spec.Channels) == 0 {
				continue
			}
			dueAt := input.Start.Add(-time.Duration(spec.OffsetMinutes) * time.Minute).UTC()
			if dueAt.Before(now) {
				continue
			}
			planned = append(planned, ScheduledNotification{
				ID:            p.idGenerator(),
				BookingID:     input.BookingID,
				UserID:        participant,
				OffsetMinutes: spec.OffsetMinutes,
				Channels:      append([]Channel(nil), spec.Channels...),
				DueAt:         dueAt,
				Status:        StatusPending,
				Category:      category,
				Title:         input.Title,
				StartsAt:      input.Start.UTC(),
				CreatedAt:     now.UTC(),
				UpdatedAt:     now.UTC(),
			})
		}
	}
	return planned
}
