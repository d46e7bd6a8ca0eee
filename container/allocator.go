// Package container provides the engine's containers: a growable Array, a
// LinkedList whose nodes are pooled and reused, and a Map kept as a linear
// array of pairs. Every container owns one Allocator strategy that manages
// its backing storage.
//
// Containers are not safe for concurrent use. Growing a container may move
// its elements, so references obtained through Ref or Data are only valid
// until the next call that adds elements or resizes.
package container

import (
	"math"

	"github.com/pkg/errors"

	"github.com/pavanmanishd/blockarena/internal/check"
)

// ErrCapacityExceeded is returned when a fixed capacity strategy is asked
// to grow past its bound.
var ErrCapacityExceeded = errors.New("container: fixed capacity exceeded")

// Allocator manages the backing storage of one container.
type Allocator[T any] interface {
	// Resize makes room for at least count elements, keeping the existing
	// contents, and returns the capacity now available. It never shrinks.
	Resize(count int) (int, error)
	// Trim reallocates to hold exactly count elements where the strategy
	// supports it.
	Trim(count int) error
	// Data returns the backing storage; its length is the capacity.
	Data() []T
	Capacity() int
	HasAllocated() bool
}

// growth returns the capacity the heap strategies move to when count
// elements do not fit in capacity. Below the overflow bound it never returns
// exactly count, so a run of single element additions reallocates a
// logarithmic number of times.
func growth(capacity, count int) int {
	if count > (math.MaxInt-4)/3*2 {
		return count
	}
	return max(2*capacity, count+count/2+4)
}

// Heap keeps elements in a Go slice.
type Heap[T any] struct {
	data []T
}

// NewHeap returns an empty heap strategy; nothing is allocated until the
// first Resize.
func NewHeap[T any]() *Heap[T] { return &Heap[T]{} }

func (h *Heap[T]) Resize(count int) (int, error) {
	check.That(count >= 0, "resize count %d >= 0", count)
	if count <= len(h.data) {
		return len(h.data), nil
	}
	grown := make([]T, growth(len(h.data), count))
	copy(grown, h.data)
	h.data = grown
	return len(grown), nil
}

func (h *Heap[T]) Trim(count int) error {
	check.That(count >= 0, "trim count %d >= 0", count)
	if count == len(h.data) {
		return nil
	}
	if count == 0 {
		h.data = nil
		return nil
	}
	trimmed := make([]T, count)
	copy(trimmed, h.data)
	h.data = trimmed
	return nil
}

func (h *Heap[T]) Data() []T          { return h.data }
func (h *Heap[T]) Capacity() int      { return len(h.data) }
func (h *Heap[T]) HasAllocated() bool { return h.data != nil }

// Fixed holds a capacity chosen at construction and never reallocates.
type Fixed[T any] struct {
	data []T
}

// NewFixed returns a strategy with room for exactly n elements.
func NewFixed[T any](n int) *Fixed[T] {
	check.That(n >= 0, "fixed capacity %d >= 0", n)
	return &Fixed[T]{data: make([]T, n)}
}

func (f *Fixed[T]) Resize(count int) (int, error) {
	if count > len(f.data) {
		return len(f.data), errors.Wrapf(ErrCapacityExceeded, "%d > %d", count, len(f.data))
	}
	return len(f.data), nil
}

// Trim is a no-op: the storage is fixed.
func (f *Fixed[T]) Trim(int) error { return nil }

func (f *Fixed[T]) Data() []T          { return f.data }
func (f *Fixed[T]) Capacity() int      { return len(f.data) }
func (f *Fixed[T]) HasAllocated() bool { return len(f.data) > 0 }

var (
	_ Allocator[int] = (*Heap[int])(nil)
	_ Allocator[int] = (*Fixed[int])(nil)
)
