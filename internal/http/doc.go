// Package http provides HTTP handlers and middleware for the booking API.
//
// The router exposes the following endpoints:
//   - GET /bookings, POST /bookings, GET /bookings/{id}, PUT /bookings/{id},
//     DELETE /bookings/{id}: booking management endpoints exchanging the
//     `bookingDTO` payload defined in booking_handler.go. Booking responses
//     include conflict warnings; POST accepts a recurrence rule and returns
//     every created occurrence. The `force` flag acknowledges reported
//     conflicts and books anyway.
//   - GET /preferences/{userId}, PUT /preferences/{userId}: per-user
//     notification preference endpoints exchanging the `preferenceDTO`
//     payload defined in preference_handler.go.
//   - GET /notifications: the caller's delivery history, newest first.
//   - POST /notifications/{id}/read: marks one history entry as read.
//
// Callers identify themselves with the `X-User-ID` header (and `X-Admin:
// true` for administrative access); session management runs in the identity
// proxy in front of this service.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
