package notification

import (
	"context"
	"log/slog"
)

// Sender delivers one notification through an external transport. The core
// treats it as an opaque collaborator; template rendering and transport
// credentials live behind the implementation.
type Sender interface {
	Send(ctx context.Context, userID string, channel Channel, category Category, payload Payload) error
}

// LogSender is a Sender that only records the delivery attempt. It is the
// default wiring when no transport is configured and the drop-in used by
// tests.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender returns a sender that logs instead of delivering.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send implements Sender.
func (s *LogSender) Send(ctx context.Context, userID string, channel Channel, category Category, payload Payload) error {
	s.logger.InfoContext(ctx, "notification delivered to log sink",
		"user_id", userID,
		"channel", channel,
		"category", category,
		"booking_id", payload.BookingID,
		"starts_at", payload.StartsAt,
	)
	return nil
}
