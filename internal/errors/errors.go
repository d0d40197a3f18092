// Package errors provides coded domain errors for the novel-audio service.
//
// Pipeline failures (chapter text, speech synthesis, transport) share one
// taxonomy so callers can branch on the kind without string matching:
//
//	payload, err := client.Synthesize(ctx, segment, voice)
//	if errors.Is(err, errors.ErrEmptySynthesis) {
//	    // nothing to play, keep transport controls disabled
//	}
//
// Handlers map codes to HTTP statuses with Code.HTTPStatus.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound          Code = "NOT_FOUND"
	CodeValidation        Code = "VALIDATION"
	CodeConflict          Code = "CONFLICT"
	CodeInternal          Code = "INTERNAL"
	CodeNotReady          Code = "NOT_READY"
	CodeFetchFailure      Code = "FETCH_FAILURE"
	CodeEmptySynthesis    Code = "EMPTY_SYNTHESIS"
	CodeAutoplayRejected  Code = "AUTOPLAY_REJECTED"
	CodeMalformedResponse Code = "MALFORMED_RESPONSE"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeNotReady:
		return http.StatusConflict
	case CodeValidation:
		return http.StatusBadRequest
	case CodeFetchFailure, CodeMalformedResponse:
		return http.StatusBadGateway
	case CodeEmptySynthesis, CodeAutoplayRejected:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation        = &Error{Code: CodeValidation, Message: "validation error"}
	ErrConflict          = &Error{Code: CodeConflict, Message: "conflict"}
	ErrInternal          = &Error{Code: CodeInternal, Message: "internal error"}
	ErrNotReady          = &Error{Code: CodeNotReady, Message: "player is loading"}
	ErrFetchFailure      = &Error{Code: CodeFetchFailure, Message: "fetch failed"}
	ErrEmptySynthesis    = &Error{Code: CodeEmptySynthesis, Message: "no audio returned"}
	ErrAutoplayRejected  = &Error{Code: CodeAutoplayRejected, Message: "autoplay rejected"}
	ErrMalformedResponse = &Error{Code: CodeMalformedResponse, Message: "malformed response"}
)

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// FetchFailure wraps a transport or server error from a backend endpoint.
func FetchFailure(err error, format string, args ...any) *Error {
	return &Error{Code: CodeFetchFailure, Message: fmt.Sprintf(format, args...), cause: err}
}

// MalformedResponse wraps a decode error for an unexpected response shape.
func MalformedResponse(err error, format string, args ...any) *Error {
	return &Error{Code: CodeMalformedResponse, Message: fmt.Sprintf(format, args...), cause: err}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// IsFetchKind reports whether err is one of the recoverable pipeline failures
// that leave a player idle: fetch, malformed response, or empty synthesis.
func IsFetchKind(err error) bool {
	return errors.Is(err, ErrFetchFailure) ||
		errors.Is(err, ErrMalformedResponse) ||
		errors.Is(err, ErrEmptySynthesis)
}
