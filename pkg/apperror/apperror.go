// Package apperror classifies domain failures so callers can tell a bad
// request apart from a missing record, a conflicting write or a store outage.
package apperror

import (
	"errors"
	"fmt"
)

// Kind is the failure category surfaced to callers.
type Kind string

const (
	KindValidation  Kind = "validation_error"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindPersistence Kind = "persistence_error"
	KindDomain      Kind = "domain_error"
)

// Error is a categorized error. Sentinels are declared once per domain package
// and compared with errors.Is.
type Error struct {
	Kind Kind
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(code string) *Error { return &Error{Kind: KindValidation, Code: code} }
func NotFound(code string) *Error   { return &Error{Kind: KindNotFound, Code: code} }
func Conflict(code string) *Error   { return &Error{Kind: KindConflict, Code: code} }
func Domain(code string) *Error     { return &Error{Kind: KindDomain, Code: code} }

// Persistence tags a store failure. Errors that already carry a kind are
// returned untouched so domain errors raised inside a transaction survive.
func Persistence(err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != "" {
		return err
	}
	return &Error{Kind: KindPersistence, Code: "persistence_error", Err: err}
}

// Detail attaches context to a sentinel while keeping errors.Is working.
func Detail(sentinel *Error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// KindOf returns the category of err, or "" when err is unclassified.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// CodeOf returns the machine code of err, or "" when err is unclassified.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func IsValidation(err error) bool  { return KindOf(err) == KindValidation }
func IsNotFound(err error) bool    { return KindOf(err) == KindNotFound }
func IsConflict(err error) bool    { return KindOf(err) == KindConflict }
func IsPersistence(err error) bool { return KindOf(err) == KindPersistence }
func IsDomain(err error) bool      { return KindOf(err) == KindDomain }
