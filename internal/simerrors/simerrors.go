// Package simerrors implements the request-adapter-facing error
// taxonomy of spec §7: every synchronous operation the API layer
// exposes (marketplace escrow, starter-planet choice, recall) classifies
// its failure into one of a small set of kinds, each with a fixed HTTP
// status the adapter maps without inspecting message text.
package simerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind enumerates the error categories spec §7 lists.
type Kind int

const (
	// Validation covers malformed input, unmet prerequisites, exceeded
	// caps: the command silently no-ops at tick time, but a synchronous
	// caller gets 400.
	Validation Kind = iota
	// Unauthorized means the caller presented no valid credential (401).
	Unauthorized
	// Forbidden means the caller is authenticated but does not own the
	// target resource (403).
	Forbidden
	// NotFound is used instead of Forbidden when returning 403 would
	// leak that a resource exists for another user (404).
	NotFound
	// Conflict covers contention/idempotence failures: recall on an
	// already-arrived fleet, duplicate offer accept (409, or 400 per
	// §7's recall wording).
	Conflict
)

// Error is a classified, user-facing failure. The zero value's Kind is
// Validation, so constructing one without New still maps to 400 rather
// than panicking on an unrecognized status.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// StatusCode maps Kind to the HTTP status spec §7 assigns it.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// New builds a classified error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a classified error around an underlying cause, used when
// a lower layer (the command handler's rejection string, a persistence
// timeout) needs to surface through the adapter with a fixed status.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// As reports whether err (or something it wraps) is a *Error, mirroring
// the standard errors.As call site pattern so adapter code reads
// naturally: `var simErr *simerrors.Error; if simerrors.As(err, &simErr)`.
func As(err error, target **Error) bool {
	return errors.As(err, target)
}

// StatusOf returns the HTTP status for err, defaulting to 500 when err
// is not a classified *Error — the adapter should never let an
// unclassified internal error escape as a 4xx.
func StatusOf(err error) int {
	var classified *Error
	if As(err, &classified) {
		return classified.StatusCode()
	}
	return http.StatusInternalServerError
}
