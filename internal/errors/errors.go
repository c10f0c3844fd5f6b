// Package errors defines the engine's error taxonomy. Expected conditions
// (missing snapshot, ambiguous identifier, unknown deployment) are values of
// this taxonomy, never panics.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the category of error.
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "NotFound"
	ErrorTypeConflict     ErrorType = "Conflict"
	ErrorTypeValidation   ErrorType = "Validation"
	ErrorTypeStorage      ErrorType = "Storage"
	ErrorTypeCorrupt      ErrorType = "Corrupt"
	ErrorTypeProvisioning ErrorType = "Provisioning"
)

// Error is a typed engine error. Resource names the entity involved
// (snapshot, automation, deployment); Candidates is populated on Conflict
// errors so callers can disambiguate.
type Error struct {
	Type       ErrorType
	Resource   string
	Message    string
	Candidates []string
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Resource != "" {
		msg = fmt.Sprintf("%s: %s: %s", e.Type, e.Resource, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by type so errors.Is works across wrapping.
func (e *Error) Is(target error) bool {
	var te *Error
	if !stderrors.As(target, &te) {
		return false
	}
	return e.Type == te.Type
}

// NotFound reports that an entity does not exist.
func NotFound(resource, format string, args ...interface{}) *Error {
	return &Error{Type: ErrorTypeNotFound, Resource: resource, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports that an identifier resolved to multiple candidates.
func Conflict(resource, message string, candidates []string) *Error {
	return &Error{Type: ErrorTypeConflict, Resource: resource, Message: message, Candidates: candidates}
}

// Validation reports malformed parameters or an unknown deployment.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Type: ErrorTypeValidation, Message: fmt.Sprintf(format, args...)}
}

// Storage reports an I/O failure reading or writing engine files.
func Storage(message string, cause error) *Error {
	return &Error{Type: ErrorTypeStorage, Message: message, Cause: cause}
}

// Corrupt reports state that exists but cannot be parsed.
func Corrupt(message string, cause error) *Error {
	return &Error{Type: ErrorTypeCorrupt, Message: message, Cause: cause}
}

// Provisioning reports a failed apply/convergence step.
func Provisioning(message string, cause error) *Error {
	return &Error{Type: ErrorTypeProvisioning, Message: message, Cause: cause}
}

func is(err error, t ErrorType) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Type == t
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool { return is(err, ErrorTypeNotFound) }

// IsConflict reports whether err is a Conflict error.
func IsConflict(err error) bool { return is(err, ErrorTypeConflict) }

// IsValidation reports whether err is a Validation error.
func IsValidation(err error) bool { return is(err, ErrorTypeValidation) }

// IsStorage reports whether err is a Storage error.
func IsStorage(err error) bool { return is(err, ErrorTypeStorage) }

// IsCorrupt reports whether err is a Corrupt storage error.
func IsCorrupt(err error) bool { return is(err, ErrorTypeCorrupt) }

// IsProvisioning reports whether err is a Provisioning error.
func IsProvisioning(err error) bool { return is(err, ErrorTypeProvisioning) }
