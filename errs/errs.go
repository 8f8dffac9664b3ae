// Package errs defines the discriminated error kinds shared by every
// layer of the engine (shape, tensor, device, graph, optim).
//
// Every kernel and operator factory that can fail returns one of these
// kinds, built with New; Wrap adds context via github.com/pkg/errors
// without hiding the kind, so call sites can both read a useful
// message and recover the kind with errors.As (or Is).
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind discriminates why an operation failed.
type Kind int

const (
	// InvalidArgument covers malformed shapes, incompatible operand
	// shapes, wrong-rank initializers, device mismatches, and
	// scalar-required losses with non-scalar per-sample shape.
	InvalidArgument Kind = iota
	// ResourceExhausted covers allocation failure in a Device.
	ResourceExhausted
	// InvalidState covers use of a default-constructed or moved-from
	// Tensor, freeing an unknown handle, or operating on a discarded
	// Graph.
	InvalidState
	// NotImplemented covers optional operations a given Device does
	// not support.
	NotImplemented
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case ResourceExhausted:
		return "ResourceExhausted"
	case InvalidState:
		return "InvalidState"
	case NotImplemented:
		return "NotImplemented"
	default:
		return "Unknown"
	}
}

// Error is the concrete discriminated error value. Use As to recover
// it from a wrapped error chain.
type Error struct {
	Kind Kind
	msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

// New creates a Kind-tagged error with a formatted message.
func New(k Kind, format string, args ...any) error {
	return &Error{Kind: k, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches additional context to an existing error without
// losing its Kind, mirroring errors.Wrap from github.com/pkg/errors.
func Wrap(err error, format string, args ...any) error {
	return errors.Wrap(err, fmt.Sprintf(format, args...))
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}
