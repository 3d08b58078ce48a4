// Package apperr defines the tagged error kinds shared across the engine
// boundary. Every non-nil error the engine returns to a caller
// is, or wraps, an *Error so transports can map it to a status/exit code
// without inspecting message text.
package apperr

import "fmt"

// Kind classifies an engine-level failure.
type Kind string

const (
	InvalidInput        Kind = "invalid_input"
	NumericalDegeneracy Kind = "numerical_degeneracy"
	NoCyclesFound       Kind = "no_cycles_found"
	Cancelled           Kind = "cancelled"
	Internal            Kind = "internal"
)

// Error is the engine's boundary error type. It never carries a stack
// trace across the interface — Cause is available to a caller that
// wants to log it, but Kind and Message are the contract.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind of err if it is (or wraps) an *Error,
// otherwise it returns Internal — an unclassified error is treated as
// an engine bug, not user input.
func KindOf(err error) Kind {
	var e *Error
	if ok := As(err, &e); ok {
		return e.Kind
	}
	return Internal
}

// As is a narrow local copy of errors.As specialized to *Error, kept
// here so this package does not need to import errors just for one
// call site used by KindOf; callers outside this package should prefer
// the stdlib errors.As directly.
func As(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
