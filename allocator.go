package arena

import (
	"unsafe"

	"github.com/pavanmanishd/blockarena/block"
)

// DefaultAlignment is the alignment buffers are handed out with when the
// caller passes 0.
const DefaultAlignment = 16

// Allocator is the strategy a MemoryArena delegates to. Allocate returns
// size bytes such that p+offset is aligned to align; Free hands p back.
// *block.Allocator and *LinearAllocator implement it.
type Allocator interface {
	Allocate(size, align, offset uintptr) (unsafe.Pointer, error)
	Free(p unsafe.Pointer)
	AllocatedSize() int
}

type releaser interface {
	Release()
}

var (
	_ Allocator = (*block.Allocator)(nil)
	_ Allocator = (*LinearAllocator)(nil)
)
