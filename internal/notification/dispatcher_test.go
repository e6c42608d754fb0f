package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repoStub struct {
	mu       sync.Mutex
	due      []ScheduledNotification
	claimErr error
	sent     map[string]string
	failed   map[string]string
}

func newRepoStub(due ...ScheduledNotification) *repoStub {
	return &repoStub{due: due, sent: make(map[string]string), failed: make(map[string]string)}
}

func (r *repoStub) ClaimDue(ctx context.Context, now time.Time, limit int) ([]ScheduledNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claimErr != nil {
		return nil, r.claimErr
	}
	claimed := r.due
	r.due = nil
	return claimed, nil
}

func (r *repoStub) MarkSent(ctx context.Context, id, logID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent[id] = logID
	return nil
}

func (r *repoStub) MarkFailed(ctx context.Context, id, logID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[id] = logID
	return nil
}

type logStub struct {
	mu      sync.Mutex
	entries []Log
}

func (l *logStub) AppendLog(ctx context.Context, entry Log) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

type prefStub struct {
	prefs map[string]Preference
	err   error
}

func (p *prefStub) GetPreference(ctx context.Context, userID string) (Preference, error) {
	if p.err != nil {
		return Preference{}, p.err
	}
	if pref, ok := p.prefs[userID]; ok {
		return pref, nil
	}
	return DefaultPreference(userID), nil
}

type senderStub struct {
	mu    sync.Mutex
	sends []string
	errs  map[string]error
}

func (s *senderStub) Send(ctx context.Context, userID string, channel Channel, category Category, payload Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends = append(s.sends, userID+"/"+string(channel))
	if s.errs != nil {
		if err, ok := s.errs[string(channel)]; ok {
			return err
		}
	}
	return nil
}

func dueNotification(id, userID string, channels ...Channel) ScheduledNotification {
	start := time.Date(2024, time.June, 10, 10, 0, 0, 0, time.UTC)
	return ScheduledNotification{
		ID:            id,
		BookingID:     "b-1",
		UserID:        userID,
		OffsetMinutes: 15,
		Channels:      channels,
		DueAt:         start.Add(-15 * time.Minute),
		Status:        StatusClaimed,
		Category:      CategoryReminder,
		Title:         "Kickoff",
		StartsAt:      start,
	}
}

func newTestDispatcher(t *testing.T, repo Repository, logs LogRepository, prefs PreferenceStore, sender Sender) *Dispatcher {
	t.Helper()
	dispatcher, err := NewDispatcher(DispatcherConfig{
		Repository:  repo,
		Logs:        logs,
		Preferences: prefs,
		Sender:      sender,
		IDGenerator: sequentialIDs("log"),
		Now:         func() time.Time { return time.Date(2024, time.June, 10, 9, 50, 0, 0, time.UTC) },
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return dispatcher
}

func TestDispatcher_Tick_DeliversAndMarksSent(t *testing.T) {
	t.Parallel()

	repo := newRepoStub(dueNotification("sn-1", "u-1", ChannelEmail, ChannelPush))
	logs := &logStub{}
	sender := &senderStub{}

	dispatcher := newTestDispatcher(t, repo, logs, &prefStub{}, sender)
	dispatcher.Tick(context.Background())

	require.Len(t, sender.sends, 2)
	require.Len(t, logs.entries, 2)
	for _, entry := range logs.entries {
		assert.Equal(t, StatusSent, entry.Status)
		assert.False(t, entry.Suppressed)
		assert.Empty(t, entry.Error)
	}
	assert.Contains(t, repo.sent, "sn-1")
	assert.Empty(t, repo.failed)
}

func TestDispatcher_Tick_SenderFailureMarksFailed(t *testing.T) {
	t.Parallel()

	repo := newRepoStub(dueNotification("sn-1", "u-1", ChannelEmail))
	logs := &logStub{}
	sender := &senderStub{errs: map[string]error{"email": errors.New("smtp unreachable")}}

	dispatcher := newTestDispatcher(t, repo, logs, &prefStub{}, sender)
	dispatcher.Tick(context.Background())

	require.Len(t, logs.entries, 1)
	assert.Equal(t, StatusFailed, logs.entries[0].Status)
	assert.Contains(t, logs.entries[0].Error, "smtp unreachable")
	assert.Contains(t, repo.failed, "sn-1")
	assert.Empty(t, repo.sent)
}

func TestDispatcher_Tick_FailureDoesNotStopBatch(t *testing.T) {
	t.Parallel()

	repo := newRepoStub(
		dueNotification("sn-1", "u-1", ChannelEmail),
		dueNotification("sn-2", "u-2", ChannelPush),
	)
	logs := &logStub{}
	sender := &senderStub{errs: map[string]error{"email": errors.New("smtp unreachable")}}

	dispatcher := newTestDispatcher(t, repo, logs, &prefStub{}, sender)
	dispatcher.Tick(context.Background())

	assert.Contains(t, repo.failed, "sn-1")
	assert.Contains(t, repo.sent, "sn-2")
}

func TestDispatcher_Tick_SuppressedIsLoggedAndMarkedSent(t *testing.T) {
	t.Parallel()

	pref := DefaultPreference("u-1")
	pref.EmailEnabled = false

	repo := newRepoStub(dueNotification("sn-1", "u-1", ChannelEmail))
	logs := &logStub{}
	sender := &senderStub{}

	dispatcher := newTestDispatcher(t, repo, logs, &prefStub{prefs: map[string]Preference{"u-1": pref}}, sender)
	dispatcher.Tick(context.Background())

	// The transport was never invoked, yet the audit trail records the
	// suppressed attempt and the row reaches its terminal state.
	assert.Empty(t, sender.sends)
	require.Len(t, logs.entries, 1)
	assert.True(t, logs.entries[0].Suppressed)
	assert.Equal(t, StatusSent, logs.entries[0].Status)
	assert.Contains(t, repo.sent, "sn-1")
}

func TestDispatcher_Tick_PreferenceLookupFailureFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	repo := newRepoStub(dueNotification("sn-1", "u-1", ChannelEmail))
	logs := &logStub{}
	sender := &senderStub{}

	dispatcher := newTestDispatcher(t, repo, logs, &prefStub{err: errors.New("store down")}, sender)
	dispatcher.Tick(context.Background())

	require.Len(t, sender.sends, 1)
	assert.Contains(t, repo.sent, "sn-1")
}

func TestDispatcher_Tick_ClaimErrorIsContained(t *testing.T) {
	t.Parallel()

	repo := newRepoStub()
	repo.claimErr = errors.New("db down")
	logs := &logStub{}
	sender := &senderStub{}

	dispatcher := newTestDispatcher(t, repo, logs, &prefStub{}, sender)
	dispatcher.Tick(context.Background())

	assert.Empty(t, sender.sends)
	assert.Empty(t, logs.entries)
}

func TestNewDispatcher_RequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := NewDispatcher(DispatcherConfig{})
	require.Error(t, err)
}
