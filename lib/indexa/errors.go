package indexa

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Kind classifies where in the lifecycle an operation failed.
type Kind uint8

const (
	// KindOpen marks failures of the one-time database open. The failure is
	// permanent: every later operation on the same Database returns it.
	KindOpen Kind = iota + 1
	// KindTransaction marks failures to create or commit a transaction,
	// including requests against stores the database does not contain.
	KindTransaction
	// KindRequest marks failures of an individual request inside an
	// otherwise healthy transaction (duplicate key, bad record, ...).
	KindRequest
	// KindBlocked marks a database deletion refused because another live
	// connection still holds the database open.
	KindBlocked
)

func (k Kind) String() string {
	switch k {
	case KindOpen:
		return "OpenError"
	case KindTransaction:
		return "TransactionError"
	case KindRequest:
		return "RequestError"
	case KindBlocked:
		return "BlockedError"
	default:
		return "Unknown"
	}
}

// Error wraps an engine or codec failure with its lifecycle classification
// and the operation that raised it.
type Error struct {
	Kind Kind   // where in the lifecycle the failure belongs
	Op   string // the operation that failed, e.g. "add"
	Err  error  // the underlying cause
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("indexa: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("indexa: %s (op %s): %v", e.Kind, e.Op, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given kind, operation and cause.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
