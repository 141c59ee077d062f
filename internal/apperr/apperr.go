// Package apperr defines the closed error taxonomy shared by all services.
// Services return *Error values tagged with a Kind; the HTTP boundary is the
// single place that translates kinds into status codes. Nothing in here
// knows about HTTP.
package apperr

import (
	"errors"
	"fmt"
)

// Kind discriminates the closed set of operational error categories.
type Kind uint8

const (
	// KindInternal is an unexpected programmer fault. Its detail must never
	// reach a caller outside development mode.
	KindInternal Kind = iota

	// KindUnauthorized covers missing, invalid or expired credentials.
	KindUnauthorized

	// KindForbidden covers authenticated callers with insufficient role or
	// ownership.
	KindForbidden

	// KindValidation covers malformed input, including rejected callback
	// URLs.
	KindValidation

	// KindNotFound covers references to absent entities.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is the tagged error value carried between services and the boundary.
type Error struct {
	Kind    Kind
	Message string
	Err     error // optional wrapped cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two taxonomy errors by kind and message, so
// sentinel *Error values work as comparison targets.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && (t.Message == "" || t.Message == e.Message)
}

// New builds a tagged error with a static message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds a tagged error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a tagged error.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Unauthorized, Forbidden, Validation and NotFound are shorthand
// constructors for the common kinds.
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }
func Forbidden(message string) *Error    { return New(KindForbidden, message) }
func Validation(message string) *Error   { return New(KindValidation, message) }
func NotFound(message string) *Error     { return New(KindNotFound, message) }

// Internal wraps an unexpected fault. The message is a safe, generic label;
// the cause stays attached for logging.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf extracts the Kind from any error. Untagged errors are internal
// faults by definition (fail closed on categorization).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-safe message for an error. Internal faults
// collapse to a generic message so implementation detail cannot leak.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "internal error"
}
