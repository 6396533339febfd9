// Package domain provides the core types shared by the copilot client.
package domain

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of a client error.
type ErrorKind string

const (
	// ErrorKindValidation indicates input rejected before any network call.
	ErrorKindValidation ErrorKind = "validation"

	// ErrorKindTransport indicates the service could not be reached.
	ErrorKindTransport ErrorKind = "transport"

	// ErrorKindService indicates the service answered with a non-2xx status
	// or a body that could not be decoded.
	ErrorKindService ErrorKind = "service"

	// ErrorKindTimeout indicates the request exceeded its deadline.
	ErrorKindTimeout ErrorKind = "timeout"
)

// Error is the canonical error returned by the copilot components.
type Error struct {
	// Kind is the category of error
	Kind ErrorKind `json:"kind"`

	// Detail is the user-facing message, usually the service's "detail" field.
	// Empty when the service supplied nothing usable.
	Detail string `json:"detail,omitempty"`

	// StatusCode is the HTTP status returned by the service, if any
	StatusCode int `json:"status_code,omitempty"`

	// Err is the underlying cause
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new error of the given kind.
func NewError(kind ErrorKind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// WithStatusCode sets the HTTP status code.
func (e *Error) WithStatusCode(code int) *Error {
	e.StatusCode = code
	return e
}

// WithCause sets the underlying cause.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// Validation errors. These never reach the network.
var (
	ErrEmptyQuery       = NewError(ErrorKindValidation, "query must not be empty")
	ErrUnsupportedType  = NewError(ErrorKindValidation, "Please upload a PDF file")
	ErrUploadInProgress = NewError(ErrorKindValidation, "an upload is already in progress")
	ErrAnalysisInFlight = NewError(ErrorKindValidation, "an analysis is already in progress")
)

// Fallback messages shown when the service supplies no detail.
const (
	FallbackAnalysisMessage = "Analysis failed"
	FallbackUploadMessage   = "Upload failed"
	FallbackSearchMessage   = "Search failed"
	TimeoutMessage          = "Analysis timed out"
	UploadTimeoutMessage    = "Upload timed out"
	SearchTimeoutMessage    = "Search timed out"
)

// KindOf returns the kind of err, or "" when err is not a domain error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsValidation reports whether err was raised before any network call.
func IsValidation(err error) bool {
	return KindOf(err) == ErrorKindValidation
}

// UserMessage returns the best-available message for err: the service or
// validation detail when present, otherwise fallback.
func UserMessage(err error, fallback string) string {
	var e *Error
	if !errors.As(err, &e) {
		return fallback
	}
	if e.Detail != "" {
		return e.Detail
	}
	return fallback
}

// UserMessageWithTimeout is UserMessage with timeout shown for timeouts.
func UserMessageWithTimeout(err error, timeout, fallback string) string {
	if KindOf(err) == ErrorKindTimeout {
		return timeout
	}
	return UserMessage(err, fallback)
}
