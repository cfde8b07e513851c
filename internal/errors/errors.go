// Package errors maps internal/heap's error kinds onto stable numeric
// codes, the way the host boundary of a WASM-hosted allocator would need
// to report failures across an ABI that can't carry a Go error value.
package errors

import "github.com/edgeruntime/sbrkheap/internal/heap"

// Errno is a stable numeric error code, independent of internal/heap's
// Go-specific *heap.Error representation.
type Errno uint16

const (
	ErrNone Errno = iota
	ErrOutOfRegion
	ErrInvariantViolation
	ErrProgrammerError
	ErrZeroSize
	ErrUnknown
)

func (e Errno) Error() string {
	switch e {
	case ErrNone:
		return "no error"
	case ErrOutOfRegion:
		return "region exhausted"
	case ErrInvariantViolation:
		return "heap invariant violation"
	case ErrProgrammerError:
		return "invalid pointer passed to allocator"
	case ErrZeroSize:
		return "zero-size request"
	default:
		return "unknown allocator error"
	}
}

// FromHeapError converts a *heap.Error into its Errno code. A nil err
// maps to ErrNone; any non-heap error maps to ErrUnknown.
func FromHeapError(err error) Errno {
	if err == nil {
		return ErrNone
	}

	he, ok := err.(*heap.Error)
	if !ok {
		return ErrUnknown
	}

	switch he.Kind {
	case heap.KindOutOfRegion:
		return ErrOutOfRegion
	case heap.KindInvariantViolation:
		return ErrInvariantViolation
	case heap.KindProgrammerError:
		return ErrProgrammerError
	case heap.KindZeroSize:
		return ErrZeroSize
	default:
		return ErrUnknown
	}
}
