package application

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a create collides with an existing record.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrConflictsDetected is returned when a booking overlaps existing
	// bookings and the caller did not set the force flag. The accompanying
	// warnings describe each conflict.
	ErrConflictsDetected = errors.New("application: conflicts detected")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// CapacityError reports that a booking would push a business day over its
// daily cap. Unlike conflicts, the cap is a hard limit: force does not
// override it.
type CapacityError struct {
	Day   string
	Kind  string
	Limit int
}

// Error implements the error interface.
func (c *CapacityError) Error() string {
	if c.Kind != "" {
		return fmt.Sprintf("daily booking limit reached for %s on %s (limit %d)", c.Kind, c.Day, c.Limit)
	}
	return fmt.Sprintf("daily booking limit reached on %s (limit %d)", c.Day, c.Limit)
}
