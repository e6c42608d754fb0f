package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/resource-booking/internal/notification"
	"github.com/example/resource-booking/internal/persistence"
	"github.com/example/resource-booking/internal/recurrence"
	"github.com/example/resource-booking/internal/scheduler"
)

// DefaultBookingCategory is applied when the caller omits a category.
const DefaultBookingCategory = "meeting"

// BookingServiceConfig wires the booking service's collaborators.
type BookingServiceConfig struct {
	Bookings      persistence.BookingRepository
	Notifications persistence.ScheduledNotificationRepository
	Capacity      scheduler.DailyCapacity
	Recurrence    *recurrence.Engine
	Planner       *notification.Planner
	// Location is the business calendar zone used for period presets.
	Location    *time.Location
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// BookingService orchestrates validation, conflict detection, capacity
// enforcement and reminder planning for booking operations.
type BookingService struct {
	bookings      persistence.BookingRepository
	notifications persistence.ScheduledNotificationRepository
	capacity      scheduler.DailyCapacity
	engine        *recurrence.Engine
	planner       *notification.Planner
	locks         *keyedLock
	location      *time.Location
	idGenerator   func() string
	now           func() time.Time
	logger        *slog.Logger
}

// NewBookingService wires dependencies for booking operations.
func NewBookingService(cfg BookingServiceConfig) (*BookingService, error) {
	if cfg.Bookings == nil {
		return nil, fmt.Errorf("booking service: booking repository is required")
	}
	if cfg.Notifications == nil {
		return nil, fmt.Errorf("booking service: notification repository is required")
	}
	if cfg.IDGenerator == nil {
		return nil, fmt.Errorf("booking service: id generator is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Recurrence == nil {
		cfg.Recurrence = recurrence.NewEngine(cfg.Location)
	}
	if cfg.Planner == nil {
		cfg.Planner = notification.NewPlanner(cfg.IDGenerator, cfg.Now)
	}
	if cfg.Capacity.Cap <= 0 {
		cfg.Capacity = scheduler.NewDailyCapacity(0, cfg.Location)
	}
	return &BookingService{
		bookings:      cfg.Bookings,
		notifications: cfg.Notifications,
		capacity:      cfg.Capacity,
		engine:        cfg.Recurrence,
		planner:       cfg.Planner,
		locks:         newKeyedLock(),
		location:      cfg.Location,
		idGenerator:   cfg.IDGenerator,
		now:           cfg.Now,
		logger:        cfg.Logger,
	}, nil
}

// CreateBooking validates the request, expands any recurrence rule, checks
// every occurrence for conflicts and capacity, and persists the accepted
// occurrences with their reminder plans. Conflicts reject the whole request
// unless params.Force is set; the daily cap rejects it unconditionally.
func (s *BookingService) CreateBooking(ctx context.Context, params CreateBookingParams) ([]persistence.Booking, []ConflictWarning, error) {
	logger := serviceLogger(ctx, s.logger, "booking", "create", "user_id", params.Principal.UserID)

	input := params.Input
	vErr := &ValidationError{}
	validateBookingCore(input, vErr)
	specs := toReminderSpecs(input.Reminders, vErr)

	windows := []scheduler.TimeWindow{scheduler.NewTimeWindow(input.Start, input.End)}
	if input.Recurrence != nil {
		rule, ok := buildRecurrenceRule(*input.Recurrence, vErr)
		if ok {
			expanded, err := s.engine.Expand(rule, windows[0])
			if err != nil {
				vErr.add("recurrence", err.Error())
			} else {
				windows = expanded
			}
		}
	}
	if vErr.HasErrors() {
		return nil, nil, vErr
	}

	participants := sortStrings(uniqueStrings(input.Participants))
	unlock := s.locks.lock(lockKeys(participants, input.Resources))
	defer unlock()

	existing, err := s.loadOverlapRange(ctx, windows)
	if err != nil {
		return nil, nil, err
	}

	pool := toSchedulerBookings(existing)
	for _, window := range windows {
		if err := s.checkCapacity(window.Start, pool, input.Resources); err != nil {
			return nil, nil, err
		}
	}

	var warnings []ConflictWarning
	for _, window := range windows {
		candidate := scheduler.Booking{
			Participants: participants,
			Resources:    input.Resources,
			Window:       window,
		}
		conflicts := scheduler.DetectConflicts(pool, candidate, "")
		warnings = append(warnings, toConflictWarnings(conflicts, window.Start)...)
	}
	if len(warnings) > 0 && !params.Force {
		logger.InfoContext(ctx, "booking rejected due to conflicts", "conflicts", len(warnings))
		return nil, warnings, ErrConflictsDetected
	}

	var seriesID *string
	if len(windows) > 1 {
		sid := s.idGenerator()
		seriesID = &sid
	}

	created := make([]persistence.Booking, 0, len(windows))
	for _, window := range windows {
		booking := persistence.Booking{
			ID:           s.idGenerator(),
			Title:        strings.TrimSpace(input.Title),
			Category:     normalizeCategory(input.Category),
			Notes:        input.Notes,
			Start:        window.Start,
			End:          window.End,
			IsAllDay:     input.IsAllDay,
			CreatorID:    params.Principal.UserID,
			SeriesID:     seriesID,
			Participants: participants,
			Resources:    input.Resources,
			Reminders:    specs,
		}
		if err := s.bookings.CreateBooking(ctx, booking); err != nil {
			return nil, nil, mapBookingRepoError(err)
		}
		if err := s.planReminders(ctx, booking); err != nil {
			return nil, nil, err
		}
		created = append(created, booking)
		pool = append(pool, toSchedulerBooking(booking))
	}

	logger.InfoContext(ctx, "booking created",
		"booking_id", created[0].ID,
		"occurrences", len(created),
		"forced", params.Force && len(warnings) > 0,
	)
	return created, warnings, nil
}

// UpdateBooking applies validation, authorization, conflict and capacity
// checks before rewriting one booking and replanning its reminders.
func (s *BookingService) UpdateBooking(ctx context.Context, params UpdateBookingParams) (persistence.Booking, []ConflictWarning, error) {
	logger := serviceLogger(ctx, s.logger, "booking", "update",
		"user_id", params.Principal.UserID, "booking_id", params.BookingID)

	existing, err := s.bookings.GetBooking(ctx, params.BookingID)
	if err != nil {
		return persistence.Booking{}, nil, mapBookingRepoError(err)
	}
	if existing.CreatorID != params.Principal.UserID && !params.Principal.IsAdmin {
		return persistence.Booking{}, nil, ErrUnauthorized
	}

	input := params.Input
	vErr := &ValidationError{}
	validateBookingCore(input, vErr)
	specs := toReminderSpecs(input.Reminders, vErr)
	if input.Recurrence != nil {
		vErr.add("recurrence", "recurrence cannot be changed on an existing booking")
	}
	if vErr.HasErrors() {
		return persistence.Booking{}, nil, vErr
	}

	participants := sortStrings(uniqueStrings(input.Participants))
	keys := lockKeys(participants, input.Resources)
	keys = append(keys, lockKeys(existing.Participants, existing.Resources)...)
	unlock := s.locks.lock(keys)
	defer unlock()

	window := scheduler.NewTimeWindow(input.Start, input.End)
	others, err := s.loadOverlapRange(ctx, []scheduler.TimeWindow{window})
	if err != nil {
		return persistence.Booking{}, nil, err
	}

	pool := make([]scheduler.Booking, 0, len(others))
	for _, other := range others {
		if other.ID == existing.ID {
			continue
		}
		pool = append(pool, toSchedulerBooking(other))
	}

	if err := s.checkCapacity(window.Start, pool, input.Resources); err != nil {
		return persistence.Booking{}, nil, err
	}

	candidate := scheduler.Booking{
		ID:           existing.ID,
		Participants: participants,
		Resources:    input.Resources,
		Window:       window,
	}
	warnings := toConflictWarnings(scheduler.DetectConflicts(pool, candidate, existing.ID), window.Start)
	if len(warnings) > 0 && !params.Force {
		logger.InfoContext(ctx, "booking update rejected due to conflicts", "conflicts", len(warnings))
		return persistence.Booking{}, warnings, ErrConflictsDetected
	}

	updated := existing
	updated.Title = strings.TrimSpace(input.Title)
	updated.Category = normalizeCategory(input.Category)
	updated.Notes = input.Notes
	updated.Start = window.Start
	updated.End = window.End
	updated.IsAllDay = input.IsAllDay
	updated.Participants = participants
	updated.Resources = input.Resources
	updated.Reminders = specs

	if err := s.bookings.UpdateBooking(ctx, updated); err != nil {
		return persistence.Booking{}, nil, mapBookingRepoError(err)
	}
	if err := s.planReminders(ctx, updated); err != nil {
		return persistence.Booking{}, nil, err
	}

	logger.InfoContext(ctx, "booking updated", "forced", params.Force && len(warnings) > 0)
	return updated, warnings, nil
}

// DeleteBooking ensures authorization, removes the booking and cancels its
// outstanding reminders.
func (s *BookingService) DeleteBooking(ctx context.Context, principal Principal, bookingID string) error {
	logger := serviceLogger(ctx, s.logger, "booking", "delete",
		"user_id", principal.UserID, "booking_id", bookingID)

	existing, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return mapBookingRepoError(err)
	}
	if existing.CreatorID != principal.UserID && !principal.IsAdmin {
		return ErrUnauthorized
	}

	if err := s.bookings.DeleteBooking(ctx, bookingID); err != nil {
		return mapBookingRepoError(err)
	}
	if err := s.notifications.CancelForBooking(ctx, bookingID); err != nil {
		return err
	}

	logger.InfoContext(ctx, "booking deleted")
	return nil
}

// GetBooking retrieves one booking. The team calendar is shared, so any
// authenticated principal may read any booking.
func (s *BookingService) GetBooking(ctx context.Context, principal Principal, bookingID string) (persistence.Booking, error) {
	if principal.UserID == "" {
		return persistence.Booking{}, ErrUnauthorized
	}
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return persistence.Booking{}, mapBookingRepoError(err)
	}
	return booking, nil
}

// ListBookings enumerates bookings in the requested range ordered by start
// time, annotated with the conflicts present among them.
func (s *BookingService) ListBookings(ctx context.Context, params ListBookingsParams) ([]persistence.Booking, []ConflictWarning, error) {
	filter := s.buildListFilter(params)

	bookings, err := s.bookings.ListBookings(ctx, filter)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	ordered := make([]persistence.Booking, len(bookings))
	copy(ordered, bookings)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Start.Equal(ordered[j].Start) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Start.Before(ordered[j].Start)
	})

	return ordered, detectListConflicts(ordered), nil
}

func (s *BookingService) planReminders(ctx context.Context, booking persistence.Booking) error {
	plan := s.planner.Plan(notification.PlanInput{
		BookingID:    booking.ID,
		Category:     reminderCategory(booking.Category),
		Title:        booking.Title,
		Start:        booking.Start,
		Participants: booking.Participants,
		Reminders:    booking.Reminders,
	})
	return s.notifications.ReplacePlan(ctx, booking.ID, plan)
}

// loadOverlapRange fetches bookings that could interact with the candidate
// windows, padded a day on each side so same-business-day capacity counting
// sees every relevant booking.
func (s *BookingService) loadOverlapRange(ctx context.Context, windows []scheduler.TimeWindow) ([]persistence.Booking, error) {
	from := windows[0].Start
	until := windows[0].End
	for _, window := range windows[1:] {
		if window.Start.Before(from) {
			from = window.Start
		}
		if window.End.After(until) {
			until = window.End
		}
	}
	from = from.AddDate(0, 0, -1)
	until = until.AddDate(0, 0, 1)

	bookings, err := s.bookings.ListBookings(ctx, persistence.BookingFilter{
		StartsAfter: &from,
		EndsBefore:  &until,
	})
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return nil, err
	}
	return bookings, nil
}

func (s *BookingService) checkCapacity(start time.Time, pool []scheduler.Booking, resources []scheduler.ResourceRef) error {
	day := start.In(s.location).Format("2006-01-02")

	if s.capacity.WouldExceed(start, pool) {
		return &CapacityError{Day: day, Limit: s.capacity.Cap}
	}
	seen := make(map[scheduler.ResourceKind]struct{}, len(resources))
	for _, ref := range resources {
		if _, done := seen[ref.Kind]; done {
			continue
		}
		seen[ref.Kind] = struct{}{}
		if _, configured := s.capacity.KindCaps[ref.Kind]; !configured {
			continue
		}
		if s.capacity.WouldExceedForKind(start, pool, ref.Kind) {
			return &CapacityError{Day: day, Kind: string(ref.Kind), Limit: s.capacity.KindCaps[ref.Kind]}
		}
	}
	return nil
}

func (s *BookingService) buildListFilter(params ListBookingsParams) persistence.BookingFilter {
	participants := sortStrings(uniqueStrings(params.ParticipantIDs))
	if len(participants) == 0 {
		participants = nil
	}

	startsAfter := params.StartsAfter
	endsBefore := params.EndsBefore
	if params.Period != ListPeriodNone {
		start, end := s.computePeriodRange(params.Period, params.PeriodReference)
		if startsAfter == nil {
			startsAfter = &start
		}
		if endsBefore == nil {
			endsBefore = &end
		}
	}

	return persistence.BookingFilter{
		ParticipantIDs: participants,
		StartsAfter:    startsAfter,
		EndsBefore:     endsBefore,
	}
}

func (s *BookingService) computePeriodRange(period ListPeriod, reference time.Time) (time.Time, time.Time) {
	switch period {
	case ListPeriodDay:
		start := s.startOfDay(reference)
		return start, start.AddDate(0, 0, 1)
	case ListPeriodWeek:
		start := s.startOfWeek(reference)
		return start, start.AddDate(0, 0, 7)
	case ListPeriodMonth:
		start := s.startOfMonth(reference)
		return start, start.AddDate(0, 1, 0)
	default:
		return time.Time{}, time.Time{}
	}
}

func (s *BookingService) startOfDay(t time.Time) time.Time {
	local := t.In(s.location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
}

func (s *BookingService) startOfWeek(t time.Time) time.Time {
	start := s.startOfDay(t)
	// Monday starts the week. In Go, Monday == 1, Sunday == 0.
	offset := (int(start.Weekday()) + 6) % 7
	return start.AddDate(0, 0, -offset)
}

func (s *BookingService) startOfMonth(t time.Time) time.Time {
	start := s.startOfDay(t)
	return time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, s.location)
}

func validateBookingCore(input BookingInput, vErr *ValidationError) {
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if !input.Start.IsZero() && !input.End.IsZero() && !input.Start.Before(input.End) {
		vErr.add("time", "start must be before end")
	}
	if len(uniqueStrings(input.Participants)) == 0 {
		vErr.add("participants", "at least one participant is required")
	}
	for _, ref := range input.Resources {
		switch ref.Kind {
		case scheduler.ResourceKindRoom, scheduler.ResourceKindVehicle, scheduler.ResourceKindSampleEquipment:
		default:
			vErr.add("resources", fmt.Sprintf("unknown resource kind %q", ref.Kind))
		}
		if ref.ID == "" {
			vErr.add("resources", "resource id is required")
		}
	}
}

func toReminderSpecs(reminders []ReminderInput, vErr *ValidationError) []notification.ReminderSpec {
	specs := make([]notification.ReminderSpec, 0, len(reminders))
	for _, reminder := range reminders {
		if reminder.OffsetMinutes < 0 {
			vErr.add("reminders", "reminder offset must not be negative")
			continue
		}
		spec := notification.ReminderSpec{OffsetMinutes: reminder.OffsetMinutes}
		for _, channel := range reminder.Channels {
			switch notification.Channel(channel) {
			case notification.ChannelEmail, notification.ChannelPush:
				spec.Channels = append(spec.Channels, notification.Channel(channel))
			default:
				vErr.add("reminders", fmt.Sprintf("unknown channel %q", channel))
			}
		}
		specs = append(specs, spec)
	}
	return specs
}

func buildRecurrenceRule(input RecurrenceInput, vErr *ValidationError) (recurrence.Rule, bool) {
	var rule recurrence.Rule
	switch input.Frequency {
	case "daily":
		rule = recurrence.Daily(input.Interval)
	case "weekly":
		rule = recurrence.Weekly(input.Interval)
	case "monthly":
		rule = recurrence.Monthly(input.Interval)
	case "yearly":
		rule = recurrence.Yearly(input.Interval)
	case "weekdaysOnly":
		rule = recurrence.WeekdaysOnly(input.Interval)
	case "customWeekdays":
		days, ok := parseWeekdays(input.Weekdays)
		if !ok {
			vErr.add("recurrence", "unknown weekday in custom weekday rule")
			return recurrence.Rule{}, false
		}
		rule = recurrence.CustomWeekdays(input.Interval, days...)
	default:
		vErr.add("recurrence", fmt.Sprintf("unknown frequency %q", input.Frequency))
		return recurrence.Rule{}, false
	}

	if input.Count > 0 {
		rule = rule.WithCount(input.Count)
	}
	if input.Until != nil {
		rule = rule.WithUntil(*input.Until)
	}
	if err := rule.Validate(); err != nil {
		vErr.add("recurrence", err.Error())
		return recurrence.Rule{}, false
	}
	return rule, true
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekdays(names []string) ([]time.Weekday, bool) {
	days := make([]time.Weekday, 0, len(names))
	for _, name := range names {
		day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, false
		}
		days = append(days, day)
	}
	return days, true
}

func normalizeCategory(category string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return DefaultBookingCategory
	}
	return category
}

func reminderCategory(bookingCategory string) notification.Category {
	if bookingCategory == "leave" {
		return notification.CategoryLeave
	}
	return notification.CategoryReminder
}

func lockKeys(participants []string, resources []scheduler.ResourceRef) []string {
	keys := make([]string, 0, len(participants)+len(resources))
	for _, id := range participants {
		keys = append(keys, "participant/"+id)
	}
	for _, ref := range resources {
		keys = append(keys, "resource/"+string(ref.Kind)+"/"+ref.ID)
	}
	return keys
}

func toSchedulerBooking(booking persistence.Booking) scheduler.Booking {
	participants := make([]string, len(booking.Participants))
	copy(participants, booking.Participants)
	resources := make([]scheduler.ResourceRef, len(booking.Resources))
	copy(resources, booking.Resources)

	return scheduler.Booking{
		ID:           booking.ID,
		Participants: participants,
		Resources:    resources,
		Window:       booking.Window(),
	}
}

func toSchedulerBookings(bookings []persistence.Booking) []scheduler.Booking {
	out := make([]scheduler.Booking, 0, len(bookings))
	for _, booking := range bookings {
		out = append(out, toSchedulerBooking(booking))
	}
	return out
}

func toConflictWarnings(conflicts []scheduler.Conflict, start time.Time) []ConflictWarning {
	if len(conflicts) == 0 {
		return nil
	}
	warnings := make([]ConflictWarning, 0, len(conflicts))
	for _, conflict := range conflicts {
		warning := ConflictWarning{
			BookingID:     conflict.WithBookingID,
			Type:          string(conflict.Type),
			ParticipantID: conflict.Participant,
			Start:         start,
		}
		if conflict.Resource != nil {
			ref := *conflict.Resource
			warning.Resource = &ref
		}
		warnings = append(warnings, warning)
	}
	return warnings
}

func detectListConflicts(bookings []persistence.Booking) []ConflictWarning {
	if len(bookings) <= 1 {
		return nil
	}

	converted := toSchedulerBookings(bookings)
	var warnings []ConflictWarning
	for i, candidate := range converted {
		if i+1 >= len(converted) {
			break
		}
		conflicts := scheduler.DetectConflicts(converted[i+1:], candidate, "")
		warnings = append(warnings, toConflictWarnings(conflicts, candidate.Window.Start)...)
	}
	if len(warnings) == 0 {
		return nil
	}
	return warnings
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}

func sortStrings(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}

func mapBookingRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("time", "start must be before end")
		return vErr
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("participants", "related records are missing")
		return vErr
	}
	return err
}
