// Package raw is the platform layer underneath the block allocator: aligned
// allocate, reallocate and free of byte regions, either from the Go heap or
// from anonymous memory mappings, with optional allocation counting.
package raw

import (
	"math"
	"unsafe"

	"github.com/pkg/errors"
)

// DefaultAlignment is the alignment used when callers pass 0.
const DefaultAlignment = 16

// MaxSize is the largest region any Allocator hands out. Larger requests
// fail with ErrTooLarge instead of reaching make or mmap.
const MaxSize = min(1<<47, math.MaxInt>>1)

var (
	// ErrInvalidSize is returned for negative or zero sized requests.
	ErrInvalidSize = errors.New("raw: size must be positive")
	// ErrTooLarge is returned for requests above MaxSize.
	ErrTooLarge = errors.New("raw: size exceeds MaxSize")
	// ErrInvalidAlignment is returned when align is not a power of two or
	// exceeds what the allocator can honour.
	ErrInvalidAlignment = errors.New("raw: invalid alignment")
	// ErrUnsupported is returned by allocators not available on this platform.
	ErrUnsupported = errors.New("raw: not supported on this platform")
)

// Allocator hands out aligned byte regions.
type Allocator interface {
	// Allocate returns len(b) == size bytes whose first byte is aligned to align.
	Allocate(size, align int) ([]byte, error)
	// Reallocate resizes b, preserving min(len(b), size) leading bytes.
	// b must not be used afterwards.
	Reallocate(b []byte, size, align int) ([]byte, error)
	// Free returns b to the platform. b must come from this allocator.
	Free(b []byte) error
}

// IsPow2 reports whether n is a positive power of two.
func IsPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// AlignUp rounds n up to a multiple of align (a power of two).
func AlignUp(n, align uintptr) uintptr {
	mask := align - 1
	return (n + mask) &^ mask
}

// Addr returns the address of the first byte of b, or 0 for an empty slice.
func Addr(b []byte) uintptr {
	if cap(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

func normalize(size, align int) (int, error) {
	if size <= 0 {
		return 0, ErrInvalidSize
	}
	if align == 0 {
		align = DefaultAlignment
	}
	if !IsPow2(align) {
		return 0, errors.Wrapf(ErrInvalidAlignment, "%d is not a power of two", align)
	}
	if size > MaxSize || align > MaxSize-size {
		return 0, errors.Wrapf(ErrTooLarge, "size %d align %d", size, align)
	}
	return align, nil
}

func reallocate(a Allocator, b []byte, size, align int) ([]byte, error) {
	if len(b) == 0 {
		return a.Allocate(size, align)
	}
	nb, err := a.Allocate(size, align)
	if err != nil {
		return nil, err
	}
	copy(nb, b)
	if err := a.Free(b); err != nil {
		return nil, err
	}
	return nb, nil
}
