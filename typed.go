package arena

import "unsafe"

// Destroyer is implemented by types that must run cleanup before their
// memory is returned. Delete and DeleteArray call Destroy; types without it
// are freed directly.
type Destroyer interface {
	Destroy()
}

func destroys[T any]() bool {
	_, ok := any((*T)(nil)).(Destroyer)
	return ok
}

// countPrefix is the space in front of an array holding its element count.
const countPrefix = unsafe.Sizeof(uint64(0))

// New allocates a zeroed T inside the arena.
//
// The arena's memory is not scanned by the garbage collector: T must not
// hold the only reference to Go heap memory.
func New[T any, A Allocator, R Tracker](m *MemoryArena[A, R]) (*T, error) {
	var zero T
	size := max(unsafe.Sizeof(zero), 1)
	p, err := m.allocate(size, unsafe.Alignof(zero), 0)
	if err != nil {
		return nil, err
	}
	clear(unsafe.Slice((*byte)(p), size))
	return (*T)(p), nil
}

// NewValue allocates a T inside the arena initialised to v.
func NewValue[T any, A Allocator, R Tracker](m *MemoryArena[A, R], v T) (*T, error) {
	size := max(unsafe.Sizeof(v), 1)
	p, err := m.allocate(size, unsafe.Alignof(v), 0)
	if err != nil {
		return nil, err
	}
	t := (*T)(p)
	*t = v
	return t, nil
}

// Delete destroys *p if T implements Destroyer and frees it. nil is ignored.
func Delete[T any, A Allocator, R Tracker](m *MemoryArena[A, R], p *T) {
	if p == nil {
		return
	}
	if d, ok := any(p).(Destroyer); ok {
		d.Destroy()
	}
	m.Free(unsafe.Pointer(p))
}

// NewArray allocates n zeroed elements. The element count is stored in
// front of the first element so DeleteArray can recover it. Returns nil for
// n <= 0.
func NewArray[T any, A Allocator, R Tracker](m *MemoryArena[A, R], n int) ([]T, error) {
	if n <= 0 {
		return nil, nil
	}
	var zero T
	// offset puts the first element, not the count, on T's alignment
	align := max(unsafe.Alignof(zero), unsafe.Alignof(uint64(0)))
	size, ok := arrayBytes(n, unsafe.Sizeof(zero), countPrefix)
	if !ok {
		return nil, m.arrayTooLarge(n, unsafe.Sizeof(zero), align)
	}
	p, err := m.allocate(size, align, countPrefix)
	if err != nil {
		return nil, err
	}
	clear(unsafe.Slice((*byte)(p), size))
	*(*uint64)(p) = uint64(n)
	return unsafe.Slice((*T)(unsafe.Add(p, countPrefix)), n), nil
}

// ArrayLen returns the element count stored for an array from NewArray.
func ArrayLen[T any](s []T) int {
	if cap(s) == 0 {
		return 0
	}
	return int(*(*uint64)(arrayBase(s)))
}

func arrayBase[T any](s []T) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(unsafe.SliceData(s)), -int(countPrefix))
}

// DeleteArray destroys the elements of s in reverse order when T
// implements Destroyer, then frees the array. s must start at the first
// element returned by NewArray; its length may have been cut.
func DeleteArray[T any, A Allocator, R Tracker](m *MemoryArena[A, R], s []T) {
	if cap(s) == 0 {
		return
	}
	base := arrayBase(s)
	if destroys[T]() {
		n := int(*(*uint64)(base))
		all := unsafe.Slice(unsafe.SliceData(s), n)
		for i := n - 1; i >= 0; i-- {
			any(&all[i]).(Destroyer).Destroy()
		}
	}
	m.Free(base)
}
