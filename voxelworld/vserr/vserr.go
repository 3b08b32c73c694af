// Package vserr defines the error kinds the voxel storage core distinguishes.
package vserr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure the core can produce. See spec.md §7.
type Kind int

const (
	// IO covers file open/read/write/seek/truncate/mkdir failures.
	IO Kind = iota
	// CorruptedArchive covers header/size mismatches and invalid on-disk tags.
	CorruptedArchive
	// InvalidArgument covers caller misuse: popping an empty ring, looking
	// up a tree the caller asserted exists, out-of-range dimensions.
	InvalidArgument
	// OutOfMemory covers allocation failure of a brick buffer, child node,
	// decompression scratch, or working buffer.
	OutOfMemory
)

func (k Kind) String() string {
	switch k {
	case IO:
		return "io"
	case CorruptedArchive:
		return "corrupted archive"
	case InvalidArgument:
		return "invalid argument"
	case OutOfMemory:
		return "out of memory"
	default:
		return "unknown"
	}
}

// Error pairs a Kind with the operation that raised it and the underlying
// cause, so callers can both errors.As against Kind and read a sensible
// message, and so errors.Unwrap reaches the original cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap constructs an *Error. If err is nil, Wrap returns nil so it can be
// used directly as `return vserr.Wrap(...)` in the common error-propagation
// path without an extra nil check.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// New constructs an *Error from a plain message, for failures that don't
// wrap an underlying error (e.g. a bad argument detected directly).
func New(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// Is reports whether err is a *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
