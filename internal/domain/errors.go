package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Code identifies a domain error category. Codes are stable and machine
// readable; handlers map them to transport status codes.
type Code string

const (
	CodeInvalidRange       Code = "invalid_range"
	CodePastDate           Code = "past_date"
	CodeSelfBooking        Code = "self_booking"
	CodeInvalidPrice       Code = "invalid_price"
	CodeSlotUnavailable    Code = "slot_unavailable"
	CodeInvalidTransition  Code = "invalid_transition"
	CodeNotFound           Code = "not_found"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeConflict           Code = "conflict"
	CodeValidation         Code = "validation"
	CodeForbidden          Code = "forbidden"
)

// Error is the domain error type shared by all aggregates.
type Error struct {
	Code    Code
	Message string

	// ConflictIDs carries the identifiers of the bookings occupying a
	// requested slot. Only set for slot_unavailable errors.
	ConflictIDs []uuid.UUID
}

// Error returns the error message.
func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is a domain error with the same code.
func (e *Error) Is(target error) bool {
	var de *Error
	if !errors.As(target, &de) {
		return false
	}
	return e.Code == de.Code
}

// IsCode reports whether err is a domain error carrying the given code.
func IsCode(err error, code Code) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == code
}

// ConflictIDs extracts the conflicting booking ids from a slot_unavailable
// error, or nil for any other error.
func ConflictIDs(err error) []uuid.UUID {
	var de *Error
	if errors.As(err, &de) && de.Code == CodeSlotUnavailable {
		return de.ConflictIDs
	}
	return nil
}

// NewValidationError creates a generic malformed-input error.
func NewValidationError(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}

// NewInvalidRangeError creates an error for a date range with start >= end.
func NewInvalidRangeError(message string) *Error {
	return &Error{Code: CodeInvalidRange, Message: message}
}

// NewPastDateError creates an error for a booking starting before today.
func NewPastDateError(message string) *Error {
	return &Error{Code: CodePastDate, Message: message}
}

// NewSelfBookingError creates an error for a host booking their own property.
func NewSelfBookingError(message string) *Error {
	return &Error{Code: CodeSelfBooking, Message: message}
}

// NewInvalidPriceError creates an error for a non-positive price.
func NewInvalidPriceError(message string) *Error {
	return &Error{Code: CodeInvalidPrice, Message: message}
}

// NewSlotUnavailableError creates an error for a requested range that
// intersects existing active bookings. The conflicting booking ids are
// retained for client display.
func NewSlotUnavailableError(conflictIDs []uuid.UUID) *Error {
	return &Error{
		Code:        CodeSlotUnavailable,
		Message:     fmt.Sprintf("requested range conflicts with %d existing booking(s)", len(conflictIDs)),
		ConflictIDs: conflictIDs,
	}
}

// NewInvalidStateError creates an error for a disallowed status transition.
func NewInvalidStateError(from, to string) *Error {
	return &Error{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

// NewNotFoundError creates an error for a missing entity.
func NewNotFoundError(resource, id string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewInvariantViolationError signals that the no-overlap guarantee was
// breached. This should never happen under correct locking and is surfaced
// rather than recovered.
func NewInvariantViolationError(message string) *Error {
	return &Error{Code: CodeInvariantViolation, Message: message}
}

// NewTimeoutError creates an error for a lock not acquired in time. Safe to
// retry.
func NewTimeoutError(message string) *Error {
	return &Error{Code: CodeTimeout, Message: message}
}

// NewConflictError creates an error for an optimistic-lock conflict.
func NewConflictError(message string) *Error {
	return &Error{Code: CodeConflict, Message: message}
}

// NewForbiddenError creates an error for an action the actor may not perform.
func NewForbiddenError(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message}
}
