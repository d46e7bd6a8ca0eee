package arena

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrAllocationFailure is matched by every allocation error from a MemoryArena.
	ErrAllocationFailure = errors.New("arena: allocation failure")
	// ErrLeaked is returned by Close when allocations are still outstanding.
	ErrLeaked = errors.New("arena: allocations outstanding at close")
	// ErrReleased is the panic value for use of a LinearAllocator after Release.
	ErrReleased = errors.New("arena: use after Release()")
)

// AllocationError reports an allocator that returned no memory.
type AllocationError struct {
	Size, Align, Offset uintptr
	Err                 error // what the allocator returned, may be nil
}

func (e *AllocationError) Error() string {
	msg := fmt.Sprintf("arena: allocation failure (size %d, align %d, offset %d)", e.Size, e.Align, e.Offset)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AllocationError) Unwrap() error { return e.Err }

func (e *AllocationError) Is(target error) bool { return target == ErrAllocationFailure }
