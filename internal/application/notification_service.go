package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/resource-booking/internal/notification"
	"github.com/example/resource-booking/internal/persistence"
)

// NotificationService exposes the delivery audit trail to users.
type NotificationService struct {
	logs   persistence.NotificationLogRepository
	logger *slog.Logger
}

// NewNotificationService wires dependencies for notification log operations.
func NewNotificationService(logs persistence.NotificationLogRepository, logger *slog.Logger) *NotificationService {
	return &NotificationService{logs: logs, logger: logger}
}

// ListLogs returns a user's delivery history, newest first. Users may read
// their own history; admins may read anyone's.
func (s *NotificationService) ListLogs(ctx context.Context, principal Principal, userID string, limit int) ([]notification.Log, error) {
	if principal.UserID != userID && !principal.IsAdmin {
		return nil, ErrUnauthorized
	}
	return s.logs.ListLogsForUser(ctx, userID, limit)
}

// MarkLogRead flags one log entry as read.
func (s *NotificationService) MarkLogRead(ctx context.Context, principal Principal, logID string) error {
	if principal.UserID == "" {
		return ErrUnauthorized
	}
	if err := s.logs.MarkLogRead(ctx, logID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	serviceLogger(ctx, s.logger, "notification", "mark_read", "log_id", logID).
		DebugContext(ctx, "notification log marked read")
	return nil
}
