// Package apperr carries the typed error kinds the Coordinator API surfaces
// to callers (spec §7): {kind, message, retriable, details?}. Call sites
// still wrap with fmt.Errorf("...: %w", err) as elsewhere in this module;
// this package only adds the extra fields the wire contract needs on top
// of plain sentinel errors.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindInvalidTransition Kind = "invalid_transition"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindExternalFailure   Kind = "external_failure"
	KindRateLimited       Kind = "rate_limited"
	KindInternal          Kind = "internal"
)

// Error is the typed error surfaced by the Coordinator API.
type Error struct {
	Kind      Kind
	Message   string
	Retriable bool
	Details   map[string]any
	cause     error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func (e *Error) WithRetriable(retriable bool) *Error {
	e.Retriable = retriable
	return e
}

func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// NotFound, Conflict etc. are convenience constructors mirroring the
// sentinel-error style the rest of this module uses.
func NotFound(entity, id string) *Error {
	return New(KindNotFound, fmt.Sprintf("%s %s not found", entity, id))
}

func InvalidTransition(message string) *Error {
	return New(KindInvalidTransition, message)
}

func Conflict(message string) *Error {
	return New(KindConflict, message)
}

func ExternalFailure(message string, cause error) *Error {
	return Wrap(KindExternalFailure, message, cause).WithRetriable(true)
}

func Internal(message string, cause error) *Error {
	return Wrap(KindInternal, message, cause)
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error, defaulting to KindInternal otherwise.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

var (
	ErrNoAgentAvailable = errors.New("no agent available")
	ErrUnknownAgent     = errors.New("unknown agent")
	ErrNoActiveProject  = errors.New("no active project")
)
