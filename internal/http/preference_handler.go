package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/example/resource-booking/internal/application"
	"github.com/example/resource-booking/internal/notification"
)

type preferenceService interface {
	GetPreference(ctx context.Context, principal application.Principal, userID string) (notification.Preference, error)
	SavePreference(ctx context.Context, principal application.Principal, pref notification.Preference) error
}

// PreferenceHandler serves the /preferences/{userId} endpoints.
type PreferenceHandler struct {
	service   preferenceService
	responder responder
	logger    *slog.Logger
}

// NewPreferenceHandler builds a handler for preference endpoints.
func NewPreferenceHandler(service preferenceService, logger *slog.Logger) *PreferenceHandler {
	return &PreferenceHandler{
		service:   service,
		responder: newResponder(logger),
		logger:    logger,
	}
}

type quietHoursDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type preferenceDTO struct {
	UserID                string          `json:"user_id"`
	EmailEnabled          bool            `json:"email_enabled"`
	PushEnabled           bool            `json:"push_enabled"`
	Categories            map[string]bool `json:"categories,omitempty"`
	DefaultReminderOffset int             `json:"default_reminder_offset"`
	QuietHours            *quietHoursDTO  `json:"quiet_hours,omitempty"`
	UpdatedAt             string          `json:"updated_at,omitempty"`
}

// Handle serves GET and PUT on /preferences/{userId}.
func (h *PreferenceHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.save(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut)
	}
}

func (h *PreferenceHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingPrincipal)
		return
	}
	userID, ok := PreferenceUserIDFromContext(ctx)
	if !ok || userID == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidUserID)
		return
	}

	pref, err := h.service.GetPreference(ctx, principal, userID)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, toPreferenceDTO(pref))
}

func (h *PreferenceHandler) save(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := handlerLogger(ctx, h.logger, "preference", "save")

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingPrincipal)
		return
	}
	userID, ok := PreferenceUserIDFromContext(ctx)
	if !ok || userID == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidUserID)
		return
	}

	var req preferenceDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	pref, err := toPreference(userID, req)
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	if err := h.service.SavePreference(ctx, principal, pref); err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "preference saved", "user_id", userID)
	h.responder.writeJSON(ctx, w, http.StatusOK, toPreferenceDTO(pref))
}

// toPreference converts the request body. The user id always comes from the
// path so a mismatched body cannot write another user's settings.
func toPreference(userID string, req preferenceDTO) (notification.Preference, error) {
	pref := notification.Preference{
		UserID:                userID,
		EmailEnabled:          req.EmailEnabled,
		PushEnabled:           req.PushEnabled,
		DefaultReminderOffset: req.DefaultReminderOffset,
	}

	if len(req.Categories) > 0 {
		pref.Categories = make(map[notification.Category]bool, len(req.Categories))
		for category, enabled := range req.Categories {
			pref.Categories[notification.Category(category)] = enabled
		}
	}

	if req.QuietHours != nil {
		start, err := parseTimeOfDay(req.QuietHours.Start)
		if err != nil {
			return notification.Preference{}, errInvalidTimestamp("quiet_hours.start")
		}
		end, err := parseTimeOfDay(req.QuietHours.End)
		if err != nil {
			return notification.Preference{}, errInvalidTimestamp("quiet_hours.end")
		}
		pref.QuietHours = &notification.QuietHours{Start: start, End: end}
	}

	return pref, nil
}

func toPreferenceDTO(pref notification.Preference) preferenceDTO {
	dto := preferenceDTO{
		UserID:                pref.UserID,
		EmailEnabled:          pref.EmailEnabled,
		PushEnabled:           pref.PushEnabled,
		DefaultReminderOffset: pref.DefaultReminderOffset,
	}
	if len(pref.Categories) > 0 {
		dto.Categories = make(map[string]bool, len(pref.Categories))
		for category, enabled := range pref.Categories {
			dto.Categories[string(category)] = enabled
		}
	}
	if pref.QuietHours != nil {
		dto.QuietHours = &quietHoursDTO{
			Start: formatTimeOfDay(pref.QuietHours.Start),
			End:   formatTimeOfDay(pref.QuietHours.End),
		}
	}
	if !pref.UpdatedAt.IsZero() {
		dto.UpdatedAt = formatTime(pref.UpdatedAt)
	}
	return dto
}
