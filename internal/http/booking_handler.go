package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/resource-booking/internal/application"
	"github.com/example/resource-booking/internal/persistence"
	"github.com/example/resource-booking/internal/scheduler"
)

type bookingService interface {
	CreateBooking(ctx context.Context, params application.CreateBookingParams) ([]persistence.Booking, []application.ConflictWarning, error)
	UpdateBooking(ctx context.Context, params application.UpdateBookingParams) (persistence.Booking, []application.ConflictWarning, error)
	DeleteBooking(ctx context.Context, principal application.Principal, bookingID string) error
	GetBooking(ctx context.Context, principal application.Principal, bookingID string) (persistence.Booking, error)
	ListBookings(ctx context.Context, params application.ListBookingsParams) ([]persistence.Booking, []application.ConflictWarning, error)
}

// BookingHandler serves the /bookings endpoints.
type BookingHandler struct {
	service   bookingService
	location  *time.Location
	responder responder
	logger    *slog.Logger
}

// NewBookingHandler builds a handler for booking endpoints. The location is
// the business calendar zone used to interpret day/week/month presets.
func NewBookingHandler(service bookingService, location *time.Location, logger *slog.Logger) *BookingHandler {
	if location == nil {
		location = time.UTC
	}
	return &BookingHandler{
		service:   service,
		location:  location,
		responder: newResponder(logger),
		logger:    logger,
	}
}

type resourceRefDTO struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

type reminderDTO struct {
	OffsetMinutes int      `json:"offset_minutes"`
	Channels      []string `json:"channels"`
}

type recurrenceDTO struct {
	Frequency string   `json:"frequency"`
	Interval  int      `json:"interval"`
	Weekdays  []string `json:"weekdays,omitempty"`
	Count     int      `json:"count,omitempty"`
	Until     string   `json:"until,omitempty"`
}

type bookingRequest struct {
	Title        string           `json:"title"`
	Category     string           `json:"category"`
	Notes        *string          `json:"notes"`
	Start        string           `json:"start"`
	End          string           `json:"end"`
	IsAllDay     bool             `json:"is_all_day"`
	Participants []string         `json:"participants"`
	Resources    []resourceRefDTO `json:"resources"`
	Reminders    []reminderDTO    `json:"reminders"`
	Recurrence   *recurrenceDTO   `json:"recurrence"`
	Force        bool             `json:"force"`
}

type bookingDTO struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Category     string           `json:"category"`
	Notes        *string          `json:"notes,omitempty"`
	Start        string           `json:"start"`
	End          string           `json:"end"`
	IsAllDay     bool             `json:"is_all_day"`
	CreatorID    string           `json:"creator_id"`
	SeriesID     *string          `json:"series_id,omitempty"`
	Participants []string         `json:"participants"`
	Resources    []resourceRefDTO `json:"resources,omitempty"`
	Reminders    []reminderDTO    `json:"reminders,omitempty"`
	CreatedAt    string           `json:"created_at"`
	UpdatedAt    string           `json:"updated_at"`
}

type conflictWarningDTO struct {
	BookingID     string          `json:"booking_id"`
	Type          string          `json:"type"`
	ParticipantID string          `json:"participant_id,omitempty"`
	Resource      *resourceRefDTO `json:"resource,omitempty"`
	Start         string          `json:"start"`
}

type bookingListResponse struct {
	Bookings []bookingDTO         `json:"bookings"`
	Warnings []conflictWarningDTO `json:"warnings,omitempty"`
}

type bookingResponse struct {
	Booking  bookingDTO           `json:"booking"`
	Warnings []conflictWarningDTO `json:"warnings,omitempty"`
}

// HandleCollection serves GET and POST on /bookings.
func (h *BookingHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// HandleItem serves GET, PUT and DELETE on /bookings/{id}.
func (h *BookingHandler) HandleItem(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.update(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (h *BookingHandler) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := handlerLogger(ctx, h.logger, "booking", "create")

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingPrincipal)
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := h.toBookingInput(req)
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	created, warnings, err := h.service.CreateBooking(ctx, application.CreateBookingParams{
		Principal: principal,
		Input:     input,
		Force:     req.Force,
	})
	if err != nil {
		h.writeBookingError(ctx, w, err, warnings)
		return
	}

	logger.InfoContext(ctx, "booking created", "occurrences", len(created))
	h.responder.writeJSON(ctx, w, http.StatusCreated, bookingListResponse{
		Bookings: toBookingDTOs(created),
		Warnings: toConflictWarningDTOs(warnings),
	})
}

func (h *BookingHandler) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := handlerLogger(ctx, h.logger, "booking", "update")

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingPrincipal)
		return
	}
	bookingID, ok := BookingIDFromContext(ctx)
	if !ok || bookingID == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := h.toBookingInput(req)
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	updated, warnings, err := h.service.UpdateBooking(ctx, application.UpdateBookingParams{
		Principal: principal,
		BookingID: bookingID,
		Input:     input,
		Force:     req.Force,
	})
	if err != nil {
		h.writeBookingError(ctx, w, err, warnings)
		return
	}

	logger.InfoContext(ctx, "booking updated", "booking_id", bookingID)
	h.responder.writeJSON(ctx, w, http.StatusOK, bookingResponse{
		Booking:  toBookingDTO(updated),
		Warnings: toConflictWarningDTOs(warnings),
	})
}

func (h *BookingHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingPrincipal)
		return
	}
	bookingID, ok := BookingIDFromContext(ctx)
	if !ok || bookingID == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	booking, err := h.service.GetBooking(ctx, principal, bookingID)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, toBookingDTO(booking))
}

func (h *BookingHandler) delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := handlerLogger(ctx, h.logger, "booking", "delete")

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingPrincipal)
		return
	}
	bookingID, ok := BookingIDFromContext(ctx)
	if !ok || bookingID == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	if err := h.service.DeleteBooking(ctx, principal, bookingID); err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "booking deleted", "booking_id", bookingID)
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}

func (h *BookingHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingPrincipal)
		return
	}

	params, err := h.buildListParams(r, principal)
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	bookings, warnings, err := h.service.ListBookings(ctx, params)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, bookingListResponse{
		Bookings: toBookingDTOs(bookings),
		Warnings: toConflictWarningDTOs(warnings),
	})
}

// writeBookingError renders conflict rejections with their warnings attached;
// everything else goes through the shared error mapping.
func (h *BookingHandler) writeBookingError(ctx context.Context, w http.ResponseWriter, err error, warnings []application.ConflictWarning) {
	if errors.Is(err, application.ErrConflictsDetected) {
		h.responder.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "CONFLICT_DETECTED",
			Message:   "指定された時間帯は既存の予約と重複しています。force を指定すると予約できます。",
			Warnings:  toConflictWarningDTOs(warnings),
		})
		return
	}
	h.responder.handleServiceError(ctx, w, err)
}

func (h *BookingHandler) toBookingInput(req bookingRequest) (application.BookingInput, error) {
	start, err := parseTime(req.Start)
	if err != nil {
		return application.BookingInput{}, errInvalidTimestamp("start")
	}
	end, err := parseTime(req.End)
	if err != nil {
		return application.BookingInput{}, errInvalidTimestamp("end")
	}

	resources := make([]scheduler.ResourceRef, 0, len(req.Resources))
	for _, ref := range req.Resources {
		resources = append(resources, scheduler.ResourceRef{
			Kind: scheduler.ResourceKind(ref.Kind),
			ID:   ref.ID,
		})
	}

	reminders := make([]application.ReminderInput, 0, len(req.Reminders))
	for _, reminder := range req.Reminders {
		reminders = append(reminders, application.ReminderInput{
			OffsetMinutes: reminder.OffsetMinutes,
			Channels:      reminder.Channels,
		})
	}

	input := application.BookingInput{
		Title:        req.Title,
		Category:     req.Category,
		Notes:        req.Notes,
		Start:        start,
		End:          end,
		IsAllDay:     req.IsAllDay,
		Participants: req.Participants,
		Resources:    resources,
		Reminders:    reminders,
	}

	if req.Recurrence != nil {
		recur := application.RecurrenceInput{
			Frequency: req.Recurrence.Frequency,
			Interval:  req.Recurrence.Interval,
			Weekdays:  req.Recurrence.Weekdays,
			Count:     req.Recurrence.Count,
		}
		if req.Recurrence.Until != "" {
			until, err := parseTime(req.Recurrence.Until)
			if err != nil {
				return application.BookingInput{}, errInvalidTimestamp("recurrence.until")
			}
			recur.Until = &until
		}
		input.Recurrence = &recur
	}

	return input, nil
}

func (h *BookingHandler) buildListParams(r *http.Request, principal application.Principal) (application.ListBookingsParams, error) {
	query := r.URL.Query()
	params := application.ListBookingsParams{Principal: principal}

	if raw := strings.TrimSpace(query.Get("participants")); raw != "" {
		params.ParticipantIDs = strings.Split(raw, ",")
	}
	if raw := query.Get("starts_after"); raw != "" {
		ts, err := parseTime(raw)
		if err != nil {
			return application.ListBookingsParams{}, errInvalidTimestamp("starts_after")
		}
		params.StartsAfter = &ts
	}
	if raw := query.Get("ends_before"); raw != "" {
		ts, err := parseTime(raw)
		if err != nil {
			return application.ListBookingsParams{}, errInvalidTimestamp("ends_before")
		}
		params.EndsBefore = &ts
	}

	if raw := query.Get("day"); raw != "" {
		reference, err := time.ParseInLocation("2006-01-02", raw, h.location)
		if err != nil {
			return application.ListBookingsParams{}, errInvalidTimestamp("day")
		}
		params.Period = application.ListPeriodDay
		params.PeriodReference = reference
	}
	if raw := query.Get("week"); raw != "" {
		reference, err := time.ParseInLocation("2006-01-02", raw, h.location)
		if err != nil {
			return application.ListBookingsParams{}, errInvalidTimestamp("week")
		}
		params.Period = application.ListPeriodWeek
		params.PeriodReference = reference
	}
	if raw := query.Get("month"); raw != "" {
		reference, err := time.ParseInLocation("2006-01", raw, h.location)
		if err != nil {
			return application.ListBookingsParams{}, errInvalidTimestamp("month")
		}
		params.Period = application.ListPeriodMonth
		params.PeriodReference = reference
	}

	return params, nil
}

func toBookingDTO(booking persistence.Booking) bookingDTO {
	resources := make([]resourceRefDTO, 0, len(booking.Resources))
	for _, ref := range booking.Resources {
		resources = append(resources, resourceRefDTO{Kind: string(ref.Kind), ID: ref.ID})
	}

	reminders := make([]reminderDTO, 0, len(booking.Reminders))
	for _, spec := range booking.Reminders {
		channels := make([]string, 0, len(spec.Channels))
		for _, channel := range spec.Channels {
			channels = append(channels, string(channel))
		}
		reminders = append(reminders, reminderDTO{
			OffsetMinutes: spec.OffsetMinutes,
			Channels:      channels,
		})
	}

	return bookingDTO{
		ID:           booking.ID,
		Title:        booking.Title,
		Category:     booking.Category,
		Notes:        booking.Notes,
		Start:        formatTime(booking.Start),
		End:          formatTime(booking.End),
		IsAllDay:     booking.IsAllDay,
		CreatorID:    booking.CreatorID,
		SeriesID:     booking.SeriesID,
		Participants: booking.Participants,
		Resources:    resources,
		Reminders:    reminders,
		CreatedAt:    formatTime(booking.CreatedAt),
		UpdatedAt:    formatTime(booking.UpdatedAt),
	}
}

func toBookingDTOs(bookings []persistence.Booking) []bookingDTO {
	dtos := make([]bookingDTO, 0, len(bookings))
	for _, booking := range bookings {
		dtos = append(dtos, toBookingDTO(booking))
	}
	return dtos
}

func toConflictWarningDTOs(warnings []application.ConflictWarning) []conflictWarningDTO {
	if len(warnings) == 0 {
		return nil
	}
	dtos := make([]conflictWarningDTO, 0, len(warnings))
	for _, warning := range warnings {
		dto := conflictWarningDTO{
			BookingID:     warning.BookingID,
			Type:          warning.Type,
			ParticipantID: warning.ParticipantID,
			Start:         formatTime(warning.Start),
		}
		if warning.Resource != nil {
			dto.Resource = &resourceRefDTO{
				Kind: string(warning.Resource.Kind),
				ID:   warning.Resource.ID,
			}
		}
		dtos = append(dtos, dto)
	}
	return dtos
}
