package container

import (
	"iter"

	"github.com/pavanmanishd/blockarena/internal/check"
)

// Pair is one Map entry.
type Pair[K, V comparable] struct {
	Key   K
	Value V
}

// Map associates unique keys with values. Entries are kept unordered in an
// Array and every operation is a linear scan, which suits the small
// registries it is used for.
type Map[K, V comparable] struct {
	pairs *Array[Pair[K, V]]
}

// NewMap returns an empty map on the Go heap.
func NewMap[K, V comparable]() *Map[K, V] {
	return &Map[K, V]{pairs: NewArray[Pair[K, V]]()}
}

// NewMapWith returns an empty map whose entries are stored by alloc.
func NewMapWith[K, V comparable](alloc Allocator[Pair[K, V]]) *Map[K, V] {
	return &Map[K, V]{pairs: NewArrayWith(alloc)}
}

func (m *Map[K, V]) indexOf(k K) (int, bool) {
	for i, p := range m.pairs.Slice() {
		if p.Key == k {
			return i, true
		}
	}
	return InvalidIndex, false
}

func (m *Map[K, V]) indexOfValue(v V) (int, bool) {
	for i, p := range m.pairs.Slice() {
		if p.Value == v {
			return i, true
		}
	}
	return InvalidIndex, false
}

// Insert sets the value for k, overwriting an existing entry. It reports
// whether k was newly added.
func (m *Map[K, V]) Insert(k K, v V) (bool, error) {
	if i, ok := m.indexOf(k); ok {
		m.pairs.Ref(i).Value = v
		return false, nil
	}
	if _, err := m.pairs.Add(Pair[K, V]{Key: k, Value: v}); err != nil {
		return false, err
	}
	return true, nil
}

// At returns the value for k, which must be present.
func (m *Map[K, V]) At(k K) V {
	i, ok := m.indexOf(k)
	check.That(ok, "key %v present", k)
	if !ok {
		var zero V
		return zero
	}
	return m.pairs.At(i).Value
}

// Get returns the value for k and whether it was present.
func (m *Map[K, V]) Get(k K) (V, bool) {
	i, ok := m.indexOf(k)
	if !ok {
		var zero V
		return zero, false
	}
	return m.pairs.At(i).Value, true
}

// Ref returns a pointer to the value for k, or nil. The pointer is valid
// until the next Insert.
func (m *Map[K, V]) Ref(k K) *V {
	i, ok := m.indexOf(k)
	if !ok {
		return nil
	}
	return &m.pairs.Ref(i).Value
}

// KeyOf returns the key of the first entry holding v.
func (m *Map[K, V]) KeyOf(v V) (K, bool) {
	i, ok := m.indexOfValue(v)
	if !ok {
		var zero K
		return zero, false
	}
	return m.pairs.At(i).Key, true
}

func (m *Map[K, V]) ContainsKey(k K) bool {
	_, ok := m.indexOf(k)
	return ok
}

func (m *Map[K, V]) ContainsValue(v V) bool {
	_, ok := m.indexOfValue(v)
	return ok
}

// RemoveByKey removes the entry for k.
func (m *Map[K, V]) RemoveByKey(k K) bool {
	i, ok := m.indexOf(k)
	if !ok {
		return false
	}
	return m.pairs.RemoveAt(i)
}

// RemoveByValue removes the first entry holding v.
func (m *Map[K, V]) RemoveByValue(v V) bool {
	i, ok := m.indexOfValue(v)
	if !ok {
		return false
	}
	return m.pairs.RemoveAt(i)
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int { return m.pairs.Len() }

// Clear removes every entry.
func (m *Map[K, V]) Clear() { m.pairs.Clear() }

// All iterates over the entries in storage order.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, p := range m.pairs.All() {
			if !yield(p.Key, p.Value) {
				return
			}
		}
	}
}
