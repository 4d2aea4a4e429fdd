package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for API surfacing and logging
type Kind string

const (
	KindNotFound        Kind = "NOT_FOUND"
	KindForbidden       Kind = "FORBIDDEN"
	KindInvalid         Kind = "INVALID"
	KindShardsExhausted Kind = "SHARDS_EXHAUSTED"
	KindProvisioning    Kind = "PROVISIONING_FAILED"
	KindAgentMisconfig  Kind = "AGENT_MISCONFIGURED"
	KindInternal        Kind = "INTERNAL"
)

// Error carries a kind, a human-readable message, and an optional cause
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind: kind,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// Wrap classifies an underlying error
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{
		Kind: kind,
		Msg:  msg,
		Err:  err,
	}
}

// KindOf extracts the kind from an error chain.
// Unclassified errors report as INTERNAL.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// Message returns the human-readable message for API responses.
// Unclassified errors surface a generic message so internals never
// leak to clients.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "unexpected internal error"
}

// HTTPStatus maps an error kind to its HTTP status code
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalid:
		return http.StatusBadRequest
	case KindShardsExhausted:
		return http.StatusConflict
	case KindProvisioning, KindAgentMisconfig, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
