// Package apperr defines the error kinds the API exposes to clients and the
// echo error handler that renders them.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a stable, machine-readable error category.
type Kind string

const (
	KindValidation            Kind = "ValidationError"
	KindNotFound              Kind = "NotFound"
	KindInvalidDoctor         Kind = "InvalidDoctor"
	KindOutsideScheduledHours Kind = "OutsideScheduledHours"
	KindSlotAlreadyBooked     Kind = "SlotAlreadyBooked"
	KindScheduleOverlap       Kind = "ScheduleOverlap"
	KindInvalidStatus         Kind = "InvalidStatus"
	KindInvalidTransition     Kind = "InvalidTransition"
	KindUnauthorized          Kind = "Unauthorized"
	KindForbidden             Kind = "Forbidden"
	KindRateLimited           Kind = "RateLimited"
	KindTimeout               Kind = "Timeout"
	KindUpstream              Kind = "UpstreamError"
	KindInternal              Kind = "InternalError"
)

var statusByKind = map[Kind]int{
	KindValidation:            http.StatusBadRequest,
	KindNotFound:              http.StatusNotFound,
	KindInvalidDoctor:         http.StatusBadRequest,
	KindOutsideScheduledHours: http.StatusBadRequest,
	KindSlotAlreadyBooked:     http.StatusBadRequest,
	KindScheduleOverlap:       http.StatusBadRequest,
	KindInvalidStatus:         http.StatusBadRequest,
	KindInvalidTransition:     http.StatusBadRequest,
	KindUnauthorized:          http.StatusUnauthorized,
	KindForbidden:             http.StatusForbidden,
	KindRateLimited:           http.StatusTooManyRequests,
	KindTimeout:               http.StatusGatewayTimeout,
	KindUpstream:              http.StatusBadGateway,
	KindInternal:              http.StatusInternalServerError,
}

// Status returns the HTTP status code for a kind.
func (k Kind) Status() int {
	if s, ok := statusByKind[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error carries a kind, a client-safe message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, apperr.NotFound(""))
// style checks work against any message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause. The cause is logged but never shown to clients.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func Validation(format string, args ...interface{}) *Error {
	return New(KindValidation, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, format, args...)
}

func Internal(err error, format string, args ...interface{}) *Error {
	return Wrap(KindInternal, err, format, args...)
}

// KindOf reports the kind of err, or KindInternal for errors that carry none.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// kindForStatus maps framework-level HTTP errors (binding, auth, rate limit)
// onto the client-facing taxonomy.
func kindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusUnsupportedMediaType:
		return KindValidation
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return KindNotFound
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusGatewayTimeout, http.StatusServiceUnavailable:
		return KindTimeout
	default:
		return KindInternal
	}
}
