package container

import (
	"unsafe"

	arena "github.com/pavanmanishd/blockarena"
)

// ArenaStorage keeps a container's elements in memory allocated from a
// MemoryArena. Growth follows the heap strategy.
//
// Arena memory is not scanned by the garbage collector: T must not hold the
// only reference to anything on the Go heap.
type ArenaStorage[T any, A arena.Allocator, R arena.Tracker] struct {
	m    *arena.MemoryArena[A, R]
	data []T
}

// NewArenaStorage returns an empty strategy drawing from m.
func NewArenaStorage[T any, A arena.Allocator, R arena.Tracker](m *arena.MemoryArena[A, R]) *ArenaStorage[T, A, R] {
	return &ArenaStorage[T, A, R]{m: m}
}

func (s *ArenaStorage[T, A, R]) Resize(count int) (int, error) {
	if count <= len(s.data) {
		return len(s.data), nil
	}
	if err := s.realloc(growth(len(s.data), count)); err != nil {
		return len(s.data), err
	}
	return len(s.data), nil
}

func (s *ArenaStorage[T, A, R]) Trim(count int) error {
	if count == len(s.data) {
		return nil
	}
	if count == 0 {
		s.Release()
		return nil
	}
	return s.realloc(count)
}

func (s *ArenaStorage[T, A, R]) realloc(n int) error {
	var zero T
	p, err := s.m.AllocateArray(n, unsafe.Sizeof(zero), unsafe.Alignof(zero))
	if err != nil {
		return err
	}
	data := unsafe.Slice((*T)(p), n)
	clear(data)
	copy(data, s.data)
	s.Release()
	s.data = data
	return nil
}

// Release hands the storage back to the arena.
func (s *ArenaStorage[T, A, R]) Release() {
	if s.data == nil {
		return
	}
	s.m.Free(unsafe.Pointer(unsafe.SliceData(s.data)))
	s.data = nil
}

func (s *ArenaStorage[T, A, R]) Data() []T          { return s.data }
func (s *ArenaStorage[T, A, R]) Capacity() int      { return len(s.data) }
func (s *ArenaStorage[T, A, R]) HasAllocated() bool { return s.data != nil }
