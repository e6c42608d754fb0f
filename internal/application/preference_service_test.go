package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/resource-booking/internal/notification"
	"github.com/example/resource-booking/internal/persistence"
)

type memPreferences struct {
	mu    sync.Mutex
	items map[string]notification.Preference
}

func newMemPreferences() *memPreferences {
	return &memPreferences{items: make(map[string]notification.Preference)}
}

func (m *memPreferences) GetPreference(ctx context.Context, userID string) (notification.Preference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pref, ok := m.items[userID]
	if !ok {
		return notification.Preference{}, persistence.ErrNotFound
	}
	return pref, nil
}

func (m *memPreferences) SavePreference(ctx context.Context, pref notification.Preference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[pref.UserID] = pref
	return nil
}

func TestPreferenceService_GetFallsBackToDefaults(t *testing.T) {
	service := NewPreferenceService(newMemPreferences(), nil, nil)

	pref, err := service.GetPreference(context.Background(), Principal{UserID: "u-1"}, "u-1")
	if err != nil {
		t.Fatalf("GetPreference failed: %v", err)
	}
	if !pref.EmailEnabled || !pref.PushEnabled {
		t.Fatalf("defaults must enable all channels: %+v", pref)
	}
	if pref.DefaultReminderOffset != 15 {
		t.Fatalf("default offset = %d, want 15", pref.DefaultReminderOffset)
	}
}

func TestPreferenceService_Authorization(t *testing.T) {
	service := NewPreferenceService(newMemPreferences(), nil, nil)
	ctx := context.Background()

	if _, err := service.GetPreference(ctx, Principal{UserID: "u-2"}, "u-1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for foreign read, got %v", err)
	}
	if _, err := service.GetPreference(ctx, Principal{UserID: "admin", IsAdmin: true}, "u-1"); err != nil {
		t.Fatalf("admin read failed: %v", err)
	}

	pref := notification.DefaultPreference("u-1")
	if err := service.SavePreference(ctx, Principal{UserID: "u-2"}, pref); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for foreign write, got %v", err)
	}
}

func TestPreferenceService_SaveValidatesQuietHours(t *testing.T) {
	service := NewPreferenceService(newMemPreferences(), nil, nil)
	ctx := context.Background()

	pref := notification.DefaultPreference("u-1")
	pref.QuietHours = &notification.QuietHours{
		Start: notification.TimeOfDay{Hour: 25},
		End:   notification.TimeOfDay{Hour: 7, Minute: 70},
	}

	err := service.SavePreference(ctx, Principal{UserID: "u-1"}, pref)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := vErr.FieldErrors["quiet_hours.start"]; !ok {
		t.Fatalf("expected quiet_hours.start error, got %v", vErr.FieldErrors)
	}
	if _, ok := vErr.FieldErrors["quiet_hours.end"]; !ok {
		t.Fatalf("expected quiet_hours.end error, got %v", vErr.FieldErrors)
	}
}

func TestPreferenceService_SaveAndReload(t *testing.T) {
	store := newMemPreferences()
	now := time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)
	service := NewPreferenceService(store, func() time.Time { return now }, nil)
	ctx := context.Background()

	pref := notification.DefaultPreference("u-1")
	pref.PushEnabled = false
	pref.Categories[notification.CategoryCreated] = false

	if err := service.SavePreference(ctx, Principal{UserID: "u-1"}, pref); err != nil {
		t.Fatalf("SavePreference failed: %v", err)
	}

	loaded, err := service.GetPreference(ctx, Principal{UserID: "u-1"}, "u-1")
	if err != nil {
		t.Fatalf("GetPreference failed: %v", err)
	}
	if loaded.PushEnabled {
		t.Fatalf("saved push toggle lost")
	}
	if loaded.Categories[notification.CategoryCreated] {
		t.Fatalf("saved category toggle lost")
	}
	if !loaded.UpdatedAt.Equal(now) {
		t.Fatalf("UpdatedAt = %v, want %v", loaded.UpdatedAt, now)
	}
}
