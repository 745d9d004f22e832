package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned to clients. Stable and machine-readable.
const (
	CodeValidation  = "validation_error"
	CodeNotFound    = "not_found"
	CodeForbidden   = "forbidden"
	CodeConflict    = "conflict"
	CodePersistence = "persistence_error"
)

// Error is a user-visible failure with a stable code and HTTP status.
// Wrapped internal errors are kept for logging but never serialized.
type Error struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports malformed or missing input. Maps to 400.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg, Status: http.StatusBadRequest}
}

// NotFound reports an unknown identifier. Maps to 404.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg, Status: http.StatusNotFound}
}

// Forbidden reports a role or ownership violation. Maps to 403.
func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg, Status: http.StatusForbidden}
}

// Conflict reports a status precondition failure (e.g. submitting a non-draft).
// Maps to 400, matching the surface contract.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg, Status: http.StatusBadRequest}
}

// Persistence wraps a storage failure. Maps to 500; the cause is never
// exposed to the caller.
func Persistence(msg string, err error) *Error {
	return &Error{Code: CodePersistence, Message: msg, Status: http.StatusInternalServerError, Err: err}
}

// From extracts an *Error from err's chain. Unclassified errors are treated
// as persistence failures so no internal detail leaks.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Persistence("internal error", err)
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code string) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}
