// internal/app/system/apperr/apperr.go

// Package apperr defines the failures returned by the service layer.
//
// Every failure carries a stable Kind and a message that is safe to show to
// the caller. Storage and transaction errors are wrapped as ServerFault so
// driver details never reach the client; the wrapped cause is kept for logs.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the stable category of a failure.
type Kind string

const (
	NotFound     Kind = "not_found"
	Forbidden    Kind = "forbidden"
	Conflict     Kind = "conflict"
	Validation   Kind = "validation"
	ServerFault  Kind = "server_fault"
	Unauthorized Kind = "unauthorized"
	RateLimited  Kind = "rate_limited"
)

// Error is a typed failure.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns a failure of kind k.
func New(k Kind, msg string) *Error {
	return &Error{Kind: k, Message: msg}
}

// Newf is New with formatting.
func Newf(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error   { return Newf(NotFound, format, args...) }
func Forbiddenf(format string, args ...any) *Error  { return Newf(Forbidden, format, args...) }
func Conflictf(format string, args ...any) *Error   { return Newf(Conflict, format, args...) }
func Validationf(format string, args ...any) *Error { return Newf(Validation, format, args...) }

// Fault wraps a storage or infrastructure error.
func Fault(cause error) *Error {
	return &Error{Kind: ServerFault, Message: "internal error, please retry", Cause: cause}
}

// KindOf returns the kind of err. Errors that are not *Error are server faults.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ServerFault
}

// Is reports whether err is a failure of kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Message returns the caller-safe message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error, please retry"
}

// Status maps a kind to an HTTP status code.
func Status(k Kind) int {
	switch k {
	case NotFound:
		return http.StatusNotFound
	case Forbidden:
		return http.StatusForbidden
	case Conflict:
		return http.StatusConflict
	case Validation:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Wrap passes *Error values through and wraps anything else as a fault.
// It returns nil for nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return Fault(err)
}
