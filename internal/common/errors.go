// Package common defines shared constants and the error categories used
// across the server. Callers should use errors.Is to match categories and
// KindOf to resolve the category of an arbitrary error.
package common

import (
	"errors"
	"fmt"
)

var (
	// Client-correctable errors.
	ErrValidation   = errors.New("validation error")
	ErrMissingAsset = errors.New("missing asset")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")

	// Auth errors. ErrInvalidToken covers bad, expired, stale and replayed
	// tokens alike.
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")

	// Server-side errors.
	ErrUpstream = errors.New("upstream error")
	ErrInternal = errors.New("internal error")
)

// kinds is the lookup order used by KindOf for errors that are not *Error.
var kinds = []error{
	ErrValidation,
	ErrMissingAsset,
	ErrConflict,
	ErrNotFound,
	ErrUnauthorized,
	ErrInvalidToken,
	ErrUpstream,
	ErrInternal,
}

// Error is a categorized error with a human-readable message. Cause is kept
// for logging and errors.Is/As; it is never shown to clients.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// NewError returns an *Error of the given kind.
func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Errorf is NewError with fmt formatting.
func Errorf(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap categorizes cause under kind with the given message.
func Wrap(kind error, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the category of err. The outermost *Error wins; plain
// errors are matched against the known sentinels; anything else is
// ErrInternal.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrInternal
}

// MessageOf returns the client-safe message of err. Uncategorized errors
// collapse to the message of their kind so driver details do not leak.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return KindOf(err).Error()
}
