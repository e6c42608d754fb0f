package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/example/resource-booking/internal/application"
	"github.com/example/resource-booking/internal/notification"
)

type notificationService interface {
	ListLogs(ctx context.Context, principal application.Principal, userID string, limit int) ([]notification.Log, error)
	MarkLogRead(ctx context.Context, principal application.Principal, logID string) error
}

// NotificationHandler serves the /notifications endpoints.
type NotificationHandler struct {
	service   notificationService
	responder responder
	logger    *slog.Logger
}

// NewNotificationHandler builds a handler for notification log endpoints.
func NewNotificationHandler(service notificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service:   service,
		responder: newResponder(logger),
		logger:    logger,
	}
}

type notificationLogDTO struct {
	ID         string `json:"id"`
	BookingID  string `json:"booking_id"`
	Channel    string `json:"channel"`
	Category   string `json:"category"`
	Summary    string `json:"summary"`
	Status     string `json:"status"`
	Suppressed bool   `json:"suppressed,omitempty"`
	Error      string `json:"error,omitempty"`
	Read       bool   `json:"read"`
	CreatedAt  string `json:"created_at"`
}

type notificationListResponse struct {
	Notifications []notificationLogDTO `json:"notifications"`
}

// HandleList serves GET /notifications, the caller's delivery history.
func (h *NotificationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	ctx := r.Context()
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingPrincipal)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
			return
		}
		limit = parsed
	}

	logs, err := h.service.ListLogs(ctx, principal, principal.UserID, limit)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	dtos := make([]notificationLogDTO, 0, len(logs))
	for _, log := range logs {
		dtos = append(dtos, toNotificationLogDTO(log))
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, notificationListResponse{Notifications: dtos})
}

// HandleMarkRead serves POST /notifications/{id}/read.
func (h *NotificationHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	ctx := r.Context()
	logger := handlerLogger(ctx, h.logger, "notification", "mark_read")

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingPrincipal)
		return
	}
	logID, ok := LogIDFromContext(ctx)
	if !ok || logID == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidLogID)
		return
	}

	if err := h.service.MarkLogRead(ctx, principal, logID); err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "notification marked read", "log_id", logID)
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}

func toNotificationLogDTO(log notification.Log) notificationLogDTO {
	return notificationLogDTO{
		ID:         log.ID,
		BookingID:  log.BookingID,
		Channel:    string(log.Channel),
		Category:   string(log.Category),
		Summary:    log.Summary,
		Status:     string(log.Status),
		Suppressed: log.Suppressed,
		Error:      log.Error,
		Read:       log.Read,
		CreatedAt:  formatTime(log.CreatedAt),
	}
}
