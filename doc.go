// Package arena binds an allocator strategy and a tracking policy into a
// memory arena, and provides typed allocation on top of it.
//
// # Overview
//
// Every asset, component and game object is carved out of an arena instead
// of being allocated one by one. An arena combines:
//
//   - an Allocator: *block.Allocator (fixed size blocks with a free list,
//     the usual choice) or *LinearAllocator (bump allocation, per-frame
//     scratch memory)
//   - a Tracker: NoTracking, *SimpleTracking (live allocation counter) or
//     *SiteTracking (live allocations with call sites, for leak reports)
//
// Both are type parameters of MemoryArena, so the choice costs nothing at
// call sites.
//
// # Basic Usage
//
//	b, err := block.New() // 16 KiB blocks
//	if err != nil {
//		return err
//	}
//	a := arena.NewMemoryArena(b, arena.NewSimpleTracking())
//	defer a.Close()
//
//	// Raw memory
//	p, err := a.Allocate(64, 16, 0)
//	a.Free(p)
//
//	// Typed values
//	v, err := arena.New[Vec3](a)
//	arena.Delete(a, v)
//
//	// Arrays, with the element count stored in front
//	s, err := arena.NewArray[Vec3](a, 100)
//	arena.DeleteArray(a, s)
//
// # Destruction
//
// Types whose pointer implements Destroyer get Destroy called by Delete,
// and by DeleteArray for every element in reverse order. Other types are
// freed without any extra work.
//
// # Build Profiles
//
// The default build is the debug profile: precondition checks panic with
// the failing expression and its location, and DefaultTracker counts
// allocations so Close can report leaks. Building with -tags arena_release
// compiles the checks out and makes DefaultTracker NoTracking. Violating a
// precondition in a release build is undefined behaviour.
//
// # Important Notes
//
//   - Arenas, allocators and trackers are not safe for concurrent use
//   - Arena memory is not scanned by the garbage collector; values stored
//     in it must not hold the only reference to Go heap memory
//   - Memory handed out is only valid until it is freed, the allocator
//     drops the block holding it, or the arena is closed
//
// # Metrics and Monitoring
//
// Metrics returns a snapshot of reserved memory, bytes in use, free list
// length and outstanding allocations; package arenametrics exports the
// same numbers to Prometheus.
package arena
