// Package errors defines the error taxonomy shared across the mover
// pipeline. Every error that crosses a package boundary in internal/mover
// is wrapped in a *Error carrying a Kind, so callers can decide whether to
// retry, skip, or abort without string-matching messages.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation failed.
type Kind string

const (
	// KindTransport covers network failures, timeouts, and 502/503/504
	// responses from the XC API. Retryable.
	KindTransport Kind = "transport"

	// KindCapability covers 404s that mean a resource type or field does
	// not exist on this tenant (disabled load balancer types, absent
	// managed-DNS fields). Not retryable; the caller should fall back or
	// skip.
	KindCapability Kind = "capability"

	// KindAuthorization covers 401/403 responses. Not retryable.
	KindAuthorization Kind = "authorization"

	// KindConflict covers 409 responses, such as name collisions on create.
	// A 409 from a probe-delete is not returned as an error: its referrers
	// are parsed and returned to the caller instead.
	KindConflict Kind = "conflict"

	// KindValidation covers malformed config, CSV rows, or XC identifiers.
	KindValidation Kind = "validation"

	// KindPreflightBlocker covers a batch rejected during preflight
	// (external references, non-portable certs with no match, DNS zones
	// absent from the destination tenant).
	KindPreflightBlocker Kind = "preflight_blocker"

	// KindExecution covers failures during the delete/create phases of a
	// batch move that are not transport or conflict errors.
	KindExecution Kind = "execution"

	// KindRollback covers failures while reverting a partially executed
	// batch. These are reported, never retried automatically.
	KindRollback Kind = "rollback"
)

// Error is the error type returned by every internal/mover package.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error of the given kind.
func New(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds an *Error of the given kind from a format string.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Is reports whether err (or anything it wraps) is a *Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, and false
// otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Retryable reports whether an error's kind warrants a retry at the
// transport layer. Only transport errors are retryable; everything else
// represents a decision the caller (or the operator) has to make.
func Retryable(err error) bool {
	k, ok := KindOf(err)
	if !ok {
		return false
	}
	return k == KindTransport
}
