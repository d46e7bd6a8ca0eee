package arena

import "github.com/pavanmanishd/blockarena/block"

// LinearStats is a snapshot of a LinearAllocator. All fields are zero
// after Release except ChunkSize.
type LinearStats struct {
	Chunks        int
	ChunkSize     int // configured size; oversized requests get bigger chunks
	AllocatedSize int // bytes reserved across chunks
	BytesCarved   int // bytes below the chunk cursors, padding included
	TooLarge      int // rejected requests
}

// Utilization is the share of reserved memory below the chunk cursors.
func (s LinearStats) Utilization() float64 {
	if s.AllocatedSize == 0 {
		return 0
	}
	return float64(s.BytesCarved) / float64(s.AllocatedSize)
}

// Stats returns a snapshot of a's chunks.
func (a *LinearAllocator) Stats() LinearStats {
	s := LinearStats{Chunks: len(a.chunks), ChunkSize: a.chunkSize, TooLarge: a.tooLarge}
	for _, c := range a.chunks {
		s.AllocatedSize += len(c.buf)
		s.BytesCarved += int(c.offset)
	}
	return s
}

// AllocatedSize is the memory reserved across all chunks.
func (a *LinearAllocator) AllocatedSize() int { return a.Stats().AllocatedSize }

// Metrics is a snapshot of a MemoryArena's allocator and tracker.
// Fields the allocator cannot report stay zero.
type Metrics struct {
	AllocatedSize   int     // reserved bytes
	BytesInUse      int     // bytes carved out of reserved memory
	Blocks          int     // blocks or chunks
	FreeListEntries int     // block allocator only
	FreeListBytes   int     // block allocator only
	Outstanding     int     // live allocations seen by the tracker
	Utilization     float64 // BytesInUse / AllocatedSize
}

// Metrics returns a snapshot of arena statistics.
func (m *MemoryArena[A, R]) Metrics() Metrics {
	mt := Metrics{
		AllocatedSize: m.alloc.AllocatedSize(),
		Outstanding:   m.tracker.Outstanding(),
	}
	switch a := any(m.alloc).(type) {
	case *block.Allocator:
		s := a.Stats()
		mt.BytesInUse = s.BytesCarved
		mt.Blocks = s.Blocks
		mt.FreeListEntries = s.FreeListEntries
		mt.FreeListBytes = s.FreeListBytes
		mt.Utilization = s.Utilization()
	case *LinearAllocator:
		s := a.Stats()
		mt.BytesInUse = s.BytesCarved
		mt.Blocks = s.Chunks
		mt.Utilization = s.Utilization()
	}
	return mt
}
