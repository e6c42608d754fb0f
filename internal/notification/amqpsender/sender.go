// Package amqpsender publishes reminder deliveries to a RabbitMQ queue. The
// actual email/push transport runs as a separate consumer outside this
// service; this sender only hands the payload over the wire.
package amqpsender

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/resource-booking/internal/notification"
)

// DefaultQueue is the delivery queue consumed by the transport worker.
const DefaultQueue = "booking.notifications"

// Sender implements notification.Sender on top of an AMQP channel.
type Sender struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	queue       string
	idGenerator func() string
	now         func() time.Time
}

// message is the wire schema the transport worker consumes.
type message struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Channel       string    `json:"channel"`
	Category      string    `json:"category"`
	BookingID     string    `json:"booking_id"`
	Title         string    `json:"title"`
	StartsAt      time.Time `json:"starts_at"`
	OffsetMinutes int       `json:"offset_minutes"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
}

// Dial connects to the broker and declares the durable delivery queue.
func Dial(url, queue string, idGenerator func() string) (*Sender, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	if idGenerator == nil {
		return nil, fmt.Errorf("amqpsender: id generator is required")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqpsender: dial: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqpsender: open channel: %w", err)
	}
	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("amqpsender: declare queue %s: %w", queue, err)
	}

	return &Sender{
		conn:        conn,
		channel:     channel,
		queue:       queue,
		idGenerator: idGenerator,
		now:         time.Now,
	}, nil
}

// Send implements notification.Sender by publishing a persistent JSON message.
func (s *Sender) Send(ctx context.Context, userID string, channel notification.Channel, category notification.Category, payload notification.Payload) error {
	msg := message{
		ID:            s.idGenerator(),
		UserID:        userID,
		Channel:       string(channel),
		Category:      string(category),
		BookingID:     payload.BookingID,
		Title:         payload.Title,
		StartsAt:      payload.StartsAt.UTC(),
		OffsetMinutes: payload.OffsetMinutes,
		EnqueuedAt:    s.now().UTC(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("amqpsender: marshal message: %w", err)
	}

	err = s.channel.PublishWithContext(ctx, "", s.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Type:         string(category),
		Timestamp:    msg.EnqueuedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("amqpsender: publish: %w", err)
	}
	return nil
}

// Close releases the channel and connection.
func (s *Sender) Close() error {
	var firstErr error
	if s.channel != nil {
		if err := s.channel.Close(); err != nil {
			firstErr = err
		}
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
