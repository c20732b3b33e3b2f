package core

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable classification of an error. Every error that
// crosses a package boundary in this module carries one.
type Kind string

const (
	// KindValidation: malformed path, workspace, or field. Never retried.
	KindValidation Kind = "VALIDATION"
	// KindAccessDenied: workspace mismatch against the session. Never retried.
	KindAccessDenied Kind = "ACCESS_DENIED"
	// KindNotFound: absent document. Reads translate this to a nil value
	// rather than surfacing it, so callers rarely see it.
	KindNotFound Kind = "NOT_FOUND"
	// KindTooManyItems: batch or tree scope exceeds a hard ceiling. The
	// caller must narrow the request; never retried.
	KindTooManyItems Kind = "TOO_MANY_ITEMS"
	// KindTransactionFailed: an atomic write set was rejected. The store is
	// left exactly as before.
	KindTransactionFailed Kind = "TRANSACTION_FAILED"
	// KindUnavailable: transient transport failure from the store. Retried
	// with backoff; surfaced as KindTimeout once attempts are exhausted.
	KindUnavailable Kind = "UNAVAILABLE"
	// KindTimeout: transient failure that outlived the retry budget.
	KindTimeout Kind = "TIMEOUT"
	// KindCanceled: the caller's context was canceled mid-flight.
	KindCanceled Kind = "CANCELED"
)

// Error is the structured error type of the module. It pairs a Kind with a
// human-readable message and, where known, the workspace and path involved.
type Error struct {
	Kind      Kind
	Message   string
	Workspace string
	Path      string
	Err       error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s (path %q)", msg, e.Path)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match on bare kinds: errors.Is(err, &Error{Kind: k}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Errorf builds an *Error with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a kind and message. A nil err yields nil.
func Wrap(kind Kind, err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// At attaches workspace/path context and returns the error for chaining.
func (e *Error) At(workspace, path string) *Error {
	e.Workspace = workspace
	e.Path = path
	return e
}

// KindOf extracts the Kind from an error chain. Unclassified errors report
// an empty Kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsTransient reports whether the error is worth retrying. Only transport
// unavailability and timeouts qualify; validation and access errors never do.
func IsTransient(err error) bool {
	switch KindOf(err) {
	case KindUnavailable, KindTimeout:
		return true
	}
	return false
}
