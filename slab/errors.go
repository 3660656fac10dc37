package slab

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// Sentinel error kinds. Callers compare against these with errors.Is;
// AllocError.Unwrap exposes them through any wrapping this package
// adds along the way.
var (
	// ErrOutOfMemory is returned when a size class has no partial page
	// to allocate from and no empty page to promote, and intra-zone
	// exchange could not find a donor either.
	ErrOutOfMemory = errors.New("slab: out of memory")

	// ErrInvalidLayout is returned when the requested size exceeds
	// MaxAllocSize, the alignment exceeds PageSize, or the alignment
	// is not a power of two.
	ErrInvalidLayout = errors.New("slab: invalid layout")

	// ErrInvalidPointer is returned when a deallocation target is not
	// a valid slot boundary within its page.
	ErrInvalidPointer = errors.New("slab: invalid pointer")

	// ErrNoEmptyPage is returned by an intra-zone exchange that found
	// no size class willing to give up an empty page.
	ErrNoEmptyPage = errors.New("slab: no empty page available")
)

// AllocError names the failing operation alongside one of the sentinel
// kinds above.
type AllocError struct {
	Op   string
	Kind error
}

func (e *AllocError) Error() string { return e.Op + ": " + e.Kind.Error() }

// Unwrap lets errors.Is(err, slab.ErrOutOfMemory) see through AllocError.
func (e *AllocError) Unwrap() error { return e.Kind }

func newAllocError(op string, kind error) *AllocError {
	return &AllocError{Op: op, Kind: kind}
}

// wrapf attaches call-site context to err without losing the sentinel
// kind errors.Is callers look for.
func wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrapf(err, format, args...)
}
