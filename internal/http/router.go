package http

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Middleware wraps a handler with cross-cutting behavior.
type Middleware func(http.Handler) http.Handler

// RouterConfig wires handlers and middleware into the HTTP router.
type RouterConfig struct {
	Bookings      *BookingHandler
	Preferences   *PreferenceHandler
	Notifications *NotificationHandler
	// Middleware is applied outermost first.
	Middleware []Middleware
}

// NewRouter builds the API router.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Bookings != nil {
		mux.HandleFunc("/bookings", cfg.Bookings.HandleCollection)
		mux.HandleFunc("/bookings/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/bookings/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			cfg.Bookings.HandleItem(w, r.WithContext(ContextWithBookingID(r.Context(), id)))
		})
	}

	if cfg.Preferences != nil {
		mux.HandleFunc("/preferences/", func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimPrefix(r.URL.Path, "/preferences/")
			if userID == "" || strings.Contains(userID, "/") {
				http.NotFound(w, r)
				return
			}
			cfg.Preferences.Handle(w, r.WithContext(ContextWithPreferenceUserID(r.Context(), userID)))
		})
	}

	if cfg.Notifications != nil {
		mux.HandleFunc("/notifications", cfg.Notifications.HandleList)
		mux.HandleFunc("/notifications/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/notifications/")
			id, action, found := strings.Cut(rest, "/")
			if !found || id == "" || action != "read" {
				http.NotFound(w, r)
				return
			}
			cfg.Notifications.HandleMarkRead(w, r.WithContext(ContextWithLogID(r.Context(), id)))
		})
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		handler = cfg.Middleware[i](handler)
	}
	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusMethodNotAllowed)
	_ = json.NewEncoder(w).Encode(errorResponse{Message: "許可されていないメソッドです。"})
}
