package application

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrUnauthorized is returned when no acting user accompanies a write.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrSlotUnavailable is returned when a booking would overlap a confirmed
	// booking on the same room.
	ErrSlotUnavailable = errors.New("application: slot unavailable")
	// ErrAlreadyCancelled is returned when cancelling a booking that is
	// already cancelled.
	ErrAlreadyCancelled = errors.New("application: booking already cancelled")
	// ErrBookingReleased is returned when mutating a booking released for
	// no-show.
	ErrBookingReleased = errors.New("application: booking released")
	// ErrStatusTransition is returned for any other disallowed status change.
	ErrStatusTransition = errors.New("application: invalid status transition")
	// ErrRoomUnavailable is returned when booking a room that is inactive or
	// administratively unavailable.
	ErrRoomUnavailable = errors.New("application: room unavailable")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
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

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// IntegrityError signals that the store reported a state the service layer
// considers impossible, such as a constraint firing after validation passed.
type IntegrityError struct {
	Operation string
	Err       error
}

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity failure in %s: %v", e.Operation, e.Err)
}

// Unwrap exposes the underlying storage error.
func (e *IntegrityError) Unwrap() error {
	return e.Err
}
