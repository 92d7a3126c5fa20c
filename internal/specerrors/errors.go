// Package specerrors defines the error taxonomy shared across the engine:
// every user-visible failure carries a stable Kind, a short human message,
// and a suggested next action, wrapping errors so errors.Is/errors.As
// composition works across the taxonomy.
package specerrors

import (
	"errors"
	"fmt"
)

// Kind is the stable taxonomy tag surfaced to callers and CLI exit codes.
type Kind string

const (
	KindParseError         Kind = "ParseError"
	KindIntegrityError     Kind = "IntegrityError"
	KindAlreadyAssigned    Kind = "AlreadyAssigned"
	KindNotInProgress      Kind = "NotInProgress"
	KindLockTimeout        Kind = "LockTimeout"
	KindValidationViolation Kind = "ValidationViolation"
	KindExternalToolFailure Kind = "ExternalToolFailure"
	KindConflictDetected   Kind = "ConflictDetected"
	KindIOError            Kind = "IOError"
)

// Error is the taxonomy-carrying error type used across the engine.
type Error struct {
	Kind       Kind
	Message    string
	NextAction string
	Err        error
}

func (e *Error) Error() string {
	if e.NextAction != "" {
		return fmt.Sprintf("%s: %s (next: %s)", e.Kind, e.Message, e.NextAction)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(err, SomeKindSentinel) work without exposing Kind-typed
// sentinels for every kind: comparing against another *Error compares Kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// New builds a taxonomy error.
func New(kind Kind, message, nextAction string) *Error {
	return &Error{Kind: kind, Message: message, NextAction: nextAction}
}

// Wrap builds a taxonomy error around an underlying cause.
func Wrap(kind Kind, message, nextAction string, err error) *Error {
	return &Error{Kind: kind, Message: message, NextAction: nextAction, Err: err}
}

// KindOf extracts the Kind of err if it (or something it wraps) is a *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Sentinel kind-checked helpers, one per taxonomy member.

func IsParseError(err error) bool          { return hasKind(err, KindParseError) }
func IsIntegrityError(err error) bool       { return hasKind(err, KindIntegrityError) }
func IsAlreadyAssigned(err error) bool      { return hasKind(err, KindAlreadyAssigned) }
func IsNotInProgress(err error) bool        { return hasKind(err, KindNotInProgress) }
func IsLockTimeout(err error) bool          { return hasKind(err, KindLockTimeout) }
func IsValidationViolation(err error) bool  { return hasKind(err, KindValidationViolation) }
func IsExternalToolFailure(err error) bool  { return hasKind(err, KindExternalToolFailure) }
func IsConflictDetected(err error) bool     { return hasKind(err, KindConflictDetected) }
func IsIOError(err error) bool              { return hasKind(err, KindIOError) }

func hasKind(err error, k Kind) bool {
	kind, ok := KindOf(err)
	return ok && kind == k
}
