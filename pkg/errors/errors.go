package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
)

// Error is a gradebook failure carrying the code and HTTP status reported to API clients.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any *Error with the same code, so clones of a sentinel satisfy errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches a code and client-facing message to an underlying error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Sentinels. Handlers render Code and Status unchanged.
var (
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrTimeout            = New("TIMEOUT", http.StatusGatewayTimeout, "request timed out")

	// Gradebook rules.
	ErrFinalized         = New("FINALIZED", http.StatusConflict, "resource finalized")
	ErrInvalidWeights    = New("INVALID_WEIGHTS", http.StatusBadRequest, "invalid component weights")
	ErrInvalidScale      = New("INVALID_SCALE", http.StatusBadRequest, "grade scale thresholds must be strictly descending")
	ErrUnsupportedFormat = New("UNSUPPORTED_FORMAT", http.StatusBadRequest, "unsupported export format")
	ErrExpired           = New("EXPIRED", http.StatusGone, "link expired")
	ErrPayloadTooLarge   = New("PAYLOAD_TOO_LARGE", http.StatusRequestEntityTooLarge, "payload too large")

	ErrCacheMiss = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// FromError normalises any error into an *Error. Missing rows become NOT_FOUND and
// expired deadlines become TIMEOUT; anything else untyped is INTERNAL_ERROR.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	switch {
	case errors.As(err, &e):
		return e
	case errors.Is(err, sql.ErrNoRows):
		return Wrap(err, ErrNotFound.Code, ErrNotFound.Status, ErrNotFound.Message)
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrTimeout.Code, ErrTimeout.Status, ErrTimeout.Message)
	default:
		return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
	}
}

// Clone copies a sentinel, optionally replacing its message.
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
