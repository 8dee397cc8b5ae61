// Package apperror defines the typed error codes shared by the quotation engine and the
// correction workflow. Every user-visible failure is a Code plus a human-readable reason.
package apperror

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeInputValidation     Code = "input_validation_error"
	CodeCatalogLookup       Code = "catalog_lookup_error"
	CodeFieldNotWhitelisted Code = "field_not_whitelisted"
	CodeGovernanceConflict  Code = "governance_conflict"
	CodeValueMismatch       Code = "value_mismatch"
	CodeValidationExpired   Code = "validation_expired"
	CodeAuthorization       Code = "authorization_error"
	CodePersistence         Code = "persistence_error"
	CodeNotFound            Code = "not_found"
	CodeInvalidTransition   Code = "invalid_transition"
)

// Error carries a stable code and a reason safe to show to callers.
type Error struct {
	Code      Code
	Reason    string
	Retryable bool

	cause error
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Reason
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error with the same code, so callers can compare against the sentinels.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrInputValidation     = &Error{Code: CodeInputValidation}
	ErrCatalogLookup       = &Error{Code: CodeCatalogLookup}
	ErrFieldNotWhitelisted = &Error{Code: CodeFieldNotWhitelisted}
	ErrGovernanceConflict  = &Error{Code: CodeGovernanceConflict}
	ErrValueMismatch       = &Error{Code: CodeValueMismatch}
	ErrValidationExpired   = &Error{Code: CodeValidationExpired}
	ErrAuthorization       = &Error{Code: CodeAuthorization}
	ErrPersistence         = &Error{Code: CodePersistence, Retryable: true}
	ErrNotFound            = &Error{Code: CodeNotFound}
	ErrInvalidTransition   = &Error{Code: CodeInvalidTransition}
)

func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Reason: fmt.Sprintf(format, args...)}
}

func InputValidation(format string, args ...any) *Error {
	return New(CodeInputValidation, format, args...)
}

func CatalogLookup(format string, args ...any) *Error {
	return New(CodeCatalogLookup, format, args...)
}

// Persistence wraps a storage failure. The cause is kept for logs only; Reason stays generic.
func Persistence(cause error, format string, args ...any) *Error {
	e := New(CodePersistence, format, args...)
	e.Retryable = true
	e.cause = cause
	return e
}

// CodeOf returns the code of the first *Error in the chain, or "" when err is untyped.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// ReasonOf returns the caller-safe reason for err.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Reason != "" {
			return e.Reason
		}
		return string(e.Code)
	}
	return "internal error"
}

func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}
