// Package domainerrors carries the error taxonomy used by every service in
// the system. Stores return infrastructure sentinels; services translate them
// into one of these coded errors; the transport layer maps codes to HTTP
// statuses. Business failures are values, never panics.
package domainerrors

import (
	"errors"
	"fmt"
	"strings"
)

// Code classifies an error for callers that need to branch or map to a
// transport status without string matching.
type Code string

const (
	// CodeValidation marks malformed or missing input, field level.
	CodeValidation Code = "validation"
	// CodeBadRequest marks a structurally bad request (unreadable body,
	// unknown identifier kind).
	CodeBadRequest Code = "bad_request"
	// CodeConflict marks a uniqueness or duplicate-request violation.
	CodeConflict Code = "conflict"
	// CodeNotFound marks an absent entity.
	CodeNotFound Code = "not_found"
	// CodeUnauthorized marks bad credentials, an inactive account, or a
	// missing/invalid token.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks a valid token with the wrong role.
	CodeForbidden Code = "forbidden"
	// CodeInvalidState marks an illegal workflow transition.
	CodeInvalidState Code = "invalid_state"
	// CodeInternal marks unexpected failure; logged, never detailed to callers.
	CodeInternal Code = "internal"
)

// FieldViolation names one invalid input field. Validation errors carry a
// list of these so the transport layer can enumerate per-field messages.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a coded domain error with an optional wrapped cause.
type Error struct {
	Code       Code
	Message    string
	Violations []FieldViolation
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error with no cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause. A nil cause
// returns nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err or anything it wraps carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a readability alias for HasCode at call sites that read like
// dErrors.Is(err, dErrors.CodeNotFound).
func Is(err error, code Code) bool { return HasCode(err, code) }

// NewValidation builds a CodeValidation error from field violations.
func NewValidation(violations ...FieldViolation) error {
	msgs := make([]string, 0, len(violations))
	for _, v := range violations {
		msgs = append(msgs, v.Field+": "+v.Message)
	}
	return &Error{
		Code:       CodeValidation,
		Message:    "validation failed: " + strings.Join(msgs, "; "),
		Violations: violations,
	}
}

// ViolationsOf returns the field violations attached to err, if any.
func ViolationsOf(err error) []FieldViolation {
	var de *Error
	if errors.As(err, &de) {
		return de.Violations
	}
	return nil
}

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// that never passed through a service translation.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
