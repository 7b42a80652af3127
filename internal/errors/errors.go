package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a tracker error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrTimerActive    ErrorCode = "TIMER_ACTIVE"    // 409
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// TrackerError represents a structured error with code, status, and details.
type TrackerError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *TrackerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *TrackerError {
	return &TrackerError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing record.
// kind names the record type ("task", "record").
func NewNotFound(kind, identifier string) *TrackerError {
	return &TrackerError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewTimerActive creates a 409 error for selection changes attempted while the
// timer still holds tracked time.
func NewTimerActive(status string) *TrackerError {
	return &TrackerError{
		Code:    ErrTimerActive,
		Status:  409,
		Message: fmt.Sprintf("cannot change task selection while timer is %s; save or reset first", status),
		Details: map[string]any{"timer_status": status},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The cause is kept in Details for logging and never surfaced in Message.
func NewInternal(err error) *TrackerError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &TrackerError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error is a TrackerError with the given code.
func Is(err error, code ErrorCode) bool {
	var tErr *TrackerError
	if stderrors.As(err, &tErr) {
		return tErr.Code == code
	}
	return false
}
