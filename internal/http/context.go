package http

import (
	"context"

	"github.com/example/resource-booking/internal/application"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"
	bookingIDContextKey contextKey = "booking_id"
	prefUserContextKey  contextKey = "preference_user_id"
	logIDContextKey     contextKey = "notification_log_id"
)

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// ContextWithBookingID injects the booking identifier resolved from the request path.
func ContextWithBookingID(ctx context.Context, bookingID string) context.Context {
	return context.WithValue(ctx, bookingIDContextKey, bookingID)
}

// BookingIDFromContext extracts a booking identifier previously associated with the context.
func BookingIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(bookingIDContextKey).(string)
	return id, ok
}

// ContextWithPreferenceUserID injects the preference owner resolved from the request path.
func ContextWithPreferenceUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, prefUserContextKey, userID)
}

// PreferenceUserIDFromContext extracts the preference owner from the context.
func PreferenceUserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(prefUserContextKey).(string)
	return id, ok
}

// ContextWithLogID injects the notification log identifier resolved from the request path.
func ContextWithLogID(ctx context.Context, logID string) context.Context {
	return context.WithValue(ctx, logIDContextKey, logID)
}

// LogIDFromContext extracts the notification log identifier from the context.
func LogIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(logIDContextKey).(string)
	return id, ok
}
