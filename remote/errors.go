package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Class partitions remote failures by how the caller must react.
type Class string

const (
	// ClassValidation rejects a request before or at the server boundary;
	// no optimistic mutation should have been applied.
	ClassValidation Class = "validation"
	// ClassNetwork covers transport failures and timeouts. Retryable.
	ClassNetwork Class = "network"
	// ClassServer covers 5xx responses. Retryable.
	ClassServer Class = "server"
	// ClassUnauthorized means the session credential was rejected.
	ClassUnauthorized Class = "unauthorized"
	// ClassForbidden means the caller lacks permission. Never retried.
	ClassForbidden Class = "forbidden"
	// ClassNotFound means the entity vanished remotely.
	ClassNotFound Class = "not_found"
)

// Error is a typed remote failure.
type Error struct {
	Class   Class
	Op      string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Op, e.Message, e.Class)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Class)
}

// Retryable reports whether the failure is transient.
func (e *Error) Retryable() bool {
	return e.Class == ClassNetwork || e.Class == ClassServer
}

// NewError builds a typed remote error.
func NewError(class Class, op, message string) *Error {
	return &Error{Class: class, Op: op, Message: message}
}

// ClassOf extracts the failure class from err, defaulting to ClassNetwork
// for untyped errors (transport-level failures surface untyped).
func ClassOf(err error) Class {
	var re *Error
	if errors.As(err, &re) {
		return re.Class
	}
	return ClassNetwork
}

// Retryable reports whether err is a transient remote failure.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var re *Error
	if errors.As(err, &re) {
		return re.Retryable()
	}
	// Cancellation is the caller's own doing, not a transient fault.
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

// classFromStatus maps an HTTP status code to a failure class.
func classFromStatus(status int) Class {
	switch {
	case status == http.StatusUnauthorized:
		return ClassUnauthorized
	case status == http.StatusForbidden:
		return ClassForbidden
	case status == http.StatusNotFound:
		return ClassNotFound
	case status >= 500:
		return ClassServer
	default:
		return ClassValidation
	}
}
