// Package apperr defines the error taxonomy shared by services. Errors carry
// a Kind, which the HTTP boundary maps to a status code, and a stable Code
// for clients.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindInvalidState      Kind = "invalid_state"
	KindValidation        Kind = "validation"
	KindUserRequired      Kind = "user_required"
)

// Sentinels for errors.Is matching by kind.
var (
	ErrNotFound          = &Error{Kind: KindNotFound, Code: "NOT_FOUND"}
	ErrConflict          = &Error{Kind: KindConflict, Code: "CONFLICT"}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds, Code: "INSUFFICIENT_FUNDS"}
	ErrInvalidState      = &Error{Kind: KindInvalidState, Code: "INVALID_STATE"}
	ErrValidation        = &Error{Kind: KindValidation, Code: "VALIDATION"}
	ErrUserRequired      = &Error{Kind: KindUserRequired, Code: "USER_REQUIRED"}
)

type Error struct {
	Kind  Kind
	Code  string
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind) + ": " + e.Code
	}
	return e.Msg
}

// Is reports kind equality so errors.Is(err, apperr.ErrNotFound) matches any NotFound.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func (e *Error) Unwrap() error { return e.Cause }

// Wrap attaches cause so errors.Is still reaches the underlying failure.
func (e *Error) Wrap(cause error) *Error {
	e.Cause = cause
	return e
}

func newf(kind Kind, code, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: code, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(code, format string, args ...interface{}) *Error {
	return newf(KindNotFound, code, format, args...)
}

func Conflict(code, format string, args ...interface{}) *Error {
	return newf(KindConflict, code, format, args...)
}

func InsufficientFunds(format string, args ...interface{}) *Error {
	return newf(KindInsufficientFunds, "INSUFFICIENT_FUNDS", format, args...)
}

func InvalidState(code, format string, args ...interface{}) *Error {
	return newf(KindInvalidState, code, format, args...)
}

func Validation(code, format string, args ...interface{}) *Error {
	return newf(KindValidation, code, format, args...)
}

func UserRequired(format string, args ...interface{}) *Error {
	return newf(KindUserRequired, "USER_REQUIRED", format, args...)
}

// KindOf returns the kind of the first *Error in the chain, or "" when none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the code of the first *Error in the chain, or "" when none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
