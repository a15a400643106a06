// Package domainerrors provides coded errors for the adjudication engine.
//
// Services return these so transports can map them onto status codes without
// string matching. Infrastructure layers return pkg/platform/sentinel errors
// instead; services translate sentinels into coded errors at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for callers. The taxonomy mirrors the engine's
// rejection semantics: structural illegality, payload validation, semantic
// guards, concurrency conflicts, and persistence failures are distinct
// because callers react to them differently.
type Code string

const (
	// CodeIllegalTransition - the requested action is not defined for the
	// case's current state (including any action from a terminal state).
	CodeIllegalTransition Code = "illegal_transition"
	// CodeInvalidPayload - required fields are missing or fail type/range
	// validation. Carries field-level detail.
	CodeInvalidPayload Code = "invalid_payload"
	// CodeGuardFailed - the action is structurally valid for the state but a
	// semantic guard rejected it (open appeal exists, case not HQ-eligible...).
	CodeGuardFailed Code = "guard_failed"
	// CodeConcurrentModification - the case changed between the caller's read
	// and write. Re-fetch and retry against the refreshed state.
	CodeConcurrentModification Code = "concurrent_modification"
	// CodePersistenceFailure - the atomic status+audit commit did not
	// complete. No partial state was applied.
	CodePersistenceFailure Code = "persistence_failure"

	CodeInvalidInput Code = "invalid_input"
	CodeBadRequest   Code = "bad_request"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeTimeout      Code = "timeout"
	CodeInternal     Code = "internal"
)

// Error is a coded error with optional field-level detail.
type Error struct {
	Code    Code
	Message string
	// Fields names the offending payload fields for CodeInvalidPayload.
	Fields []string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New returns a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf returns a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message, preserving the cause chain.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// WithFields attaches field names to the error (payload validation detail).
func (e *Error) WithFields(fields ...string) *Error {
	e.Fields = append(e.Fields, fields...)
	return e
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			return false
		}
	}
	return false
}

// Is is an alias for HasCode kept for call-site readability.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf returns the outermost code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// FieldsOf returns field-level detail if err carries any.
func FieldsOf(err error) []string {
	var de *Error
	if errors.As(err, &de) {
		return de.Fields
	}
	return nil
}

// HTTPStatus maps a code onto an HTTP status for transport handlers.
func HTTPStatus(code Code) int {
	switch code {
	case CodeIllegalTransition, CodeGuardFailed, CodeConflict:
		return http.StatusConflict
	case CodeInvalidPayload, CodeInvalidInput, CodeBadRequest:
		return http.StatusBadRequest
	case CodeConcurrentModification:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
