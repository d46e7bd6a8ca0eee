package container

import (
	"iter"

	"github.com/pavanmanishd/blockarena/internal/check"
)

// Array is an index addressed dynamic array. Elements live contiguously in
// the storage of its Allocator; count never exceeds the capacity.
type Array[T comparable] struct {
	alloc Allocator[T]
	count int
}

// NewArray returns an empty array on the Go heap.
func NewArray[T comparable]() *Array[T] {
	return &Array[T]{alloc: NewHeap[T]()}
}

// NewArrayWith returns an empty array whose storage is managed by alloc.
// The array owns alloc from then on.
func NewArrayWith[T comparable](alloc Allocator[T]) *Array[T] {
	return &Array[T]{alloc: alloc}
}

// Len returns the number of elements.
func (a *Array[T]) Len() int { return a.count }

// Max returns the capacity.
func (a *Array[T]) Max() int { return a.alloc.Capacity() }

// Allocator returns the storage strategy.
func (a *Array[T]) Allocator() Allocator[T] { return a.alloc }

// Slice returns the elements as a slice sharing the array's storage.
func (a *Array[T]) Slice() []T { return a.alloc.Data()[:a.count] }

func (a *Array[T]) reserve(n int) error {
	if n <= a.alloc.Capacity() {
		return nil
	}
	_, err := a.alloc.Resize(n)
	return err
}

// Add appends v and returns its index.
func (a *Array[T]) Add(v T) (int, error) {
	if err := a.reserve(a.count + 1); err != nil {
		return InvalidIndex, err
	}
	a.alloc.Data()[a.count] = v
	a.count++
	return a.count - 1, nil
}

// Insert places v at index i, shifting the elements from i on up by one.
// i must be an existing index.
func (a *Array[T]) Insert(i int, v T) error {
	check.Index(i, a.count)
	if err := a.reserve(a.count + 1); err != nil {
		return err
	}
	d := a.alloc.Data()
	copy(d[i+1:a.count+1], d[i:a.count])
	d[i] = v
	a.count++
	return nil
}

// RemoveAt removes the element at i, keeping the order of the rest. It
// reports false when i is out of range.
func (a *Array[T]) RemoveAt(i int) bool {
	if i < 0 || i >= a.count {
		return false
	}
	d := a.alloc.Data()
	copy(d[i:a.count-1], d[i+1:a.count])
	var zero T
	d[a.count-1] = zero
	a.count--
	return true
}

// Remove removes the first element equal to v.
func (a *Array[T]) Remove(v T) bool {
	i, ok := a.Find(v)
	if !ok {
		return false
	}
	return a.RemoveAt(i)
}

// Find returns the index of the first element equal to v, or InvalidIndex
// and false.
func (a *Array[T]) Find(v T) (int, bool) {
	for i, e := range a.Slice() {
		if e == v {
			return i, true
		}
	}
	return InvalidIndex, false
}

// Contains reports whether some element equals v.
func (a *Array[T]) Contains(v T) bool {
	_, ok := a.Find(v)
	return ok
}

// At returns the element at i.
func (a *Array[T]) At(i int) T {
	check.Index(i, a.count)
	return a.alloc.Data()[i]
}

// Ref returns a pointer to the element at i, valid until the array grows.
func (a *Array[T]) Ref(i int) *T {
	check.Index(i, a.count)
	return &a.alloc.Data()[i]
}

// Set replaces the element at i.
func (a *Array[T]) Set(i int, v T) {
	check.Index(i, a.count)
	a.alloc.Data()[i] = v
}

// Resize grows the capacity to at least n. It never shrinks.
func (a *Array[T]) Resize(n int) error {
	return a.reserve(n)
}

// Shrink trims the capacity to the element count, keeping room for one
// element at least.
func (a *Array[T]) Shrink() error {
	return a.alloc.Trim(max(a.count, 1))
}

// Clear removes every element and keeps the capacity.
func (a *Array[T]) Clear() {
	clear(a.Slice())
	a.count = 0
}

// All iterates over index and element pairs.
func (a *Array[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := 0; i < a.count; i++ {
			if !yield(i, a.alloc.Data()[i]) {
				return
			}
		}
	}
}

// Iter returns a cursor positioned at index i.
func (a *Array[T]) Iter(i int) Iterator[T] {
	return Iterator[T]{a: a, i: i}
}

// Begin returns a cursor on the first element.
func (a *Array[T]) Begin() Iterator[T] { return a.Iter(0) }

// Iterator is an index cursor over an Array. It stays usable while the
// array changes, since it holds an index and not an element address.
//
//	for it := arr.Begin(); it.Valid(); it.Next() {
//		if it.Value() == dead {
//			it.RemoveCurrent()
//		}
//	}
type Iterator[T comparable] struct {
	a *Array[T]
	i int
}

func (it *Iterator[T]) Next()         { it.i++ }
func (it *Iterator[T]) Prev()         { it.i-- }
func (it *Iterator[T]) Advance(n int) { it.i += n }

// Valid reports whether the cursor is on an element.
func (it *Iterator[T]) Valid() bool { return it.i >= 0 && it.i < it.a.count }

func (it *Iterator[T]) Index() int { return it.i }

func (it *Iterator[T]) Value() T { return it.a.At(it.i) }

func (it *Iterator[T]) Ref() *T { return it.a.Ref(it.i) }

func (it *Iterator[T]) Set(v T) { it.a.Set(it.i, v) }

// RemoveCurrent removes the element under the cursor and steps back one, so
// the following Next lands on the element after the removed one.
func (it *Iterator[T]) RemoveCurrent() bool {
	if !it.a.RemoveAt(it.i) {
		return false
	}
	it.i--
	return true
}
