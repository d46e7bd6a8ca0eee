package block

import "unsafe"

// Stats is a snapshot of allocator state and lifetime counters.
type Stats struct {
	Blocks          int // blocks currently reserved
	BlockSize       int
	AllocatedSize   int // Blocks * BlockSize
	BytesCarved     int // bytes below the block cursors, headers and padding included
	FreeListEntries int
	FreeListBytes   int // data bytes sitting on the free list

	Allocs          int // successful Allocate calls
	Frees           int
	ReuseHits       int // allocations served from the free list
	BlocksReserved  int
	BlocksReleased  int // by FreeExcessBlocks
	TooLarge        int
	FreeListDropped int // free entries discarded with their block
}

// Stats returns a snapshot. It walks the block chain and the free list.
func (a *Allocator) Stats() Stats {
	s := Stats{
		Blocks:          a.numBlocks,
		BlockSize:       a.blockSize,
		AllocatedSize:   a.AllocatedSize(),
		FreeListEntries: a.freeCount,
		Allocs:          a.stats.allocs,
		Frees:           a.stats.frees,
		ReuseHits:       a.stats.reuseHits,
		BlocksReserved:  a.stats.blocksGrown,
		BlocksReleased:  a.stats.blocksFreed,
		TooLarge:        a.stats.tooLarge,
		FreeListDropped: a.stats.freeListDrop,
	}
	for b := a.head; b != nil; b = b.next {
		s.BytesCarved += b.cursor
	}
	for h := a.freeHead; h != nil; h = h.next {
		s.FreeListBytes += int(h.size)
	}
	return s
}

// Utilization is the share of reserved memory below the block cursors.
func (s Stats) Utilization() float64 {
	if s.AllocatedSize == 0 {
		return 0
	}
	return float64(s.BytesCarved) / float64(s.AllocatedSize)
}

// blockIndexOf returns the position in the chain of the block holding p, or
// -1 if no block does.
func (a *Allocator) blockIndexOf(p unsafe.Pointer) int {
	i := 0
	for b := a.head; b != nil; b = b.next {
		if b.contains(uintptr(p)) {
			return i
		}
		i++
	}
	return -1
}

// Owns reports whether p points into one of the allocator's blocks.
func (a *Allocator) Owns(p unsafe.Pointer) bool {
	return a.blockIndexOf(p) >= 0
}
