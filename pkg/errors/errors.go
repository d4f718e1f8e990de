package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss    = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Enrollment errors. These are the user-visible outcomes of the pay flow and
// keep a one-to-one mapping with the HTTP contract of POST /courses/:id/pay.
var (
	ErrCourseNotFound        = New("COURSE_NOT_FOUND", http.StatusNotFound, "course not found")
	ErrAlreadySubscribed     = New("ALREADY_SUBSCRIBED", http.StatusBadRequest, "you are already subscribed to this course")
	ErrCourseCapacity        = New("COURSE_CAPACITY_EXCEEDED", http.StatusBadRequest, "all groups of this course are full")
	ErrInsufficientFunds     = New("INSUFFICIENT_FUNDS", http.StatusBadRequest, "not enough bonus points to subscribe to this course")
	ErrDuplicateSubscription = New("DUPLICATE_SUBSCRIPTION", http.StatusBadRequest, "subscription already recorded for this course")

	// ErrCourseFull marks the unreachable state where the assignment engine
	// finds every group at capacity after the orchestrator's own capacity
	// check passed. It is an invariant violation, not a user error.
	ErrCourseFull = New("COURSE_FULL", http.StatusInternalServerError, "course groups unexpectedly full")

	// ErrStoreUnavailable covers transient storage failures; callers may retry.
	ErrStoreUnavailable = New("STORE_UNAVAILABLE", http.StatusServiceUnavailable, "storage temporarily unavailable")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Is reports whether err resolves to the given predefined error value.
func Is(err error, target *Error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == target.Code
}
