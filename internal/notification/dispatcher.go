package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Repository exposes the scheduled-notification state transitions the
// dispatcher owns. ClaimDue must be atomic: a row returned by one call is
// never returned by a concurrent call.
type Repository interface {
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]ScheduledNotification, error)
	MarkSent(ctx context.Context, id string, logID string) error
	MarkFailed(ctx context.Context, id string, logID string) error
}

// LogRepository appends audit records for attempted sends.
type LogRepository interface {
	AppendLog(ctx context.Context, entry Log) error
}

// PreferenceStore resolves a user's notification preferences.
type PreferenceStore interface {
	GetPreference(ctx context.Context, userID string) (Preference, error)
}

// DispatcherConfig wires the dispatcher's collaborators and tuning knobs.
type DispatcherConfig struct {
	Repository  Repository
	Logs        LogRepository
	Preferences PreferenceStore
	Sender      Sender
	IDGenerator func() string
	Now         func() time.Time
	// Location is the zone quiet hours are evaluated in.
	Location *time.Location
	Interval time.Duration
	// BatchSize bounds how many rows one tick claims.
	BatchSize int
	Logger    *slog.Logger
}

// Dispatcher polls due reminders on a fixed tick, claims them exclusively,
// applies the preference filter and hands deliveries to the Sender. It is
// safe to run several dispatcher instances against the same store: the claim
// in the repository is the only synchronization point.
type Dispatcher struct {
	repo        Repository
	logs        LogRepository
	prefs       PreferenceStore
	sender      Sender
	idGenerator func() string
	now         func() time.Time
	location    *time.Location
	interval    time.Duration
	batchSize   int
	logger      *slog.Logger
}

// NewDispatcher validates the configuration and applies defaults: 30s tick,
// 100 row batches, UTC quiet-hour evaluation.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if cfg.Repository == nil {
		return nil, fmt.Errorf("dispatcher: repository is required")
	}
	if cfg.Logs == nil {
		return nil, fmt.Errorf("dispatcher: log repository is required")
	}
	if cfg.Sender == nil {
		return nil, fmt.Errorf("dispatcher: sender is required")
	}
	if cfg.IDGenerator == nil {
		return nil, fmt.Errorf("dispatcher: id generator is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Dispatcher{
		repo:        cfg.Repository,
		logs:        cfg.Logs,
		prefs:       cfg.Preferences,
		sender:      cfg.Sender,
		idGenerator: cfg.IDGenerator,
		now:         cfg.Now,
		location:    cfg.Location,
		interval:    cfg.Interval,
		batchSize:   cfg.BatchSize,
		logger:      cfg.Logger,
	}, nil
}

// Run ticks until the context is cancelled. One tick runs immediately so a
// freshly started worker drains any backlog without waiting a full interval.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick claims one batch of due notifications and processes each in isolation:
// a failure on one row never stops the remainder of the batch.
func (d *Dispatcher) Tick(ctx context.Context) {
	now := d.now().UTC()
	claimed, err := d.repo.ClaimDue(ctx, now, d.batchSize)
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to claim due notifications", "error", err)
		return
	}
	if len(claimed) == 0 {
		return
	}

	d.logger.InfoContext(ctx, "claimed due notifications", "count", len(claimed))
	for _, item := range claimed {
		if err := d.process(ctx, item, now); err != nil {
			d.logger.ErrorContext(ctx, "notification dispatch failed",
				"notification_id", item.ID,
				"booking_id", item.BookingID,
				"user_id", item.UserID,
				"error", err,
			)
		}
	}
}

// process delivers one claimed notification. Suppressed channels are logged
// with the suppressed flag and still count as sent so the row reaches a
// terminal state exactly once.
func (d *Dispatcher) process(ctx context.Context, item ScheduledNotification, now time.Time) error {
	pref := DefaultPreference(item.UserID)
	if d.prefs != nil {
		loaded, err := d.prefs.GetPreference(ctx, item.UserID)
		if err == nil {
			pref = loaded
		} else {
			d.logger.WarnContext(ctx, "preference lookup failed, using defaults",
				"user_id", item.UserID, "error", err)
		}
	}

	payload := Payload{
		BookingID:     item.BookingID,
		Title:         item.Title,
		StartsAt:      item.StartsAt,
		OffsetMinutes: item.OffsetMinutes,
	}
	localNow := now.In(d.location)

	var lastLogID string
	var sendErrs []string
	for _, channel := range item.Channels {
		entry := Log{
			ID:        d.idGenerator(),
			BookingID: item.BookingID,
			UserID:    item.UserID,
			Channel:   channel,
			Category:  item.Category,
			Summary:   summarize(item),
			Status:    StatusSent,
			CreatedAt: now,
		}

		if ShouldSuppress(pref, channel, item.Category, localNow) {
			entry.Suppressed = true
		} else if err := d.sender.Send(ctx, item.UserID, channel, item.Category, payload); err != nil {
			entry.Status = StatusFailed
			entry.Error = err.Error()
			sendErrs = append(sendErrs, fmt.Sprintf("%s: %v", channel, err))
		}

		if err := d.logs.AppendLog(ctx, entry); err != nil {
			d.logger.ErrorContext(ctx, "failed to append notification log",
				"notification_id", item.ID, "error", err)
		} else {
			lastLogID = entry.ID
		}
	}

	if len(sendErrs) > 0 {
		if err := d.repo.MarkFailed(ctx, item.ID, lastLogID); err != nil {
			return fmt.Errorf("mark failed: %w", err)
		}
		return fmt.Errorf("send failed: %s", strings.Join(sendErrs, "; "))
	}
	if err := d.repo.MarkSent(ctx, item.ID, lastLogID); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

func summarize(item ScheduledNotification) string {
	return fmt.Sprintf("%s starts at %s (%d min reminder)",
		item.Title, item.StartsAt.UTC().Format(time.RFC3339), item.OffsetMinutes)
}
