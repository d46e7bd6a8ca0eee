package arena

import (
	"math"
	"math/bits"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/pavanmanishd/blockarena/block"
)

// MemoryArena binds one allocator strategy and one tracking policy. Both are
// type parameters, so calls into them are resolved at compile time.
// A MemoryArena owns its allocator and tracker and is not safe for
// concurrent use.
type MemoryArena[A Allocator, R Tracker] struct {
	alloc   A
	tracker R
	logger  logrus.FieldLogger
	sites   bool
}

// Option configures a MemoryArena.
type Option func(*options)

type options struct {
	logger logrus.FieldLogger
}

// WithLogger sets the logger leak reports go to.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewMemoryArena returns an arena that takes ownership of alloc and tracker.
func NewMemoryArena[A Allocator, R Tracker](alloc A, tracker R, opts ...Option) *MemoryArena[A, R] {
	o := options{logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	m := &MemoryArena[A, R]{alloc: alloc, tracker: tracker, logger: o.logger}
	if sr, ok := any(tracker).(siteRecorder); ok {
		m.sites = sr.RecordsSites()
	}
	return m
}

// NewDefault returns a block backed arena with the build's default tracker.
func NewDefault(opts ...block.Option) (*MemoryArena[*block.Allocator, DefaultTracker], error) {
	b, err := block.New(opts...)
	if err != nil {
		return nil, err
	}
	return NewMemoryArena(b, NewDefaultTracker()), nil
}

// callerDepth is the runtime.Caller depth of the user's call site, seen
// from callerSite inside allocate.
const callerDepth = 3

// Allocate returns size bytes such that p+offset is aligned to align and
// records the allocation with the tracker. When the allocator returns no
// memory the error is an *AllocationError matching ErrAllocationFailure.
func (m *MemoryArena[A, R]) Allocate(size, align, offset uintptr) (unsafe.Pointer, error) {
	return m.allocate(size, align, offset)
}

func (m *MemoryArena[A, R]) allocate(size, align, offset uintptr) (unsafe.Pointer, error) {
	if align == 0 {
		align = DefaultAlignment
	}
	p, err := m.alloc.Allocate(size, align, offset)
	if err != nil || p == nil {
		return nil, &AllocationError{Size: size, Align: align, Offset: offset, Err: err}
	}
	var site Site
	if m.sites {
		site = callerSite(callerDepth)
	}
	m.tracker.OnAllocation(p, size, site)
	return p, nil
}

// AllocateArray returns room for n elements of elemSize bytes aligned to
// align. A count whose byte size does not fit in an int fails with an
// *AllocationError wrapping block.ErrAllocationTooLarge.
func (m *MemoryArena[A, R]) AllocateArray(n int, elemSize, align uintptr) (unsafe.Pointer, error) {
	size, ok := arrayBytes(n, elemSize, 0)
	if !ok {
		return nil, m.arrayTooLarge(n, elemSize, align)
	}
	return m.allocate(max(size, 1), align, 0)
}

// arrayBytes returns prefix + n*elemSize, or false when n is negative or the
// result does not fit in an int.
func arrayBytes(n int, elemSize, prefix uintptr) (uintptr, bool) {
	if n < 0 {
		return 0, false
	}
	hi, lo := bits.Mul(uint(n), uint(elemSize))
	size, carry := bits.Add(lo, uint(prefix), 0)
	if hi != 0 || carry != 0 || size > math.MaxInt {
		return 0, false
	}
	return uintptr(size), true
}

func (m *MemoryArena[A, R]) arrayTooLarge(n int, elemSize, align uintptr) error {
	m.logger.WithField("action", "arena_allocate").
		WithField("count", n).
		WithField("elem_size", elemSize).
		Warn("array size overflows")
	return &AllocationError{
		Size:  ^uintptr(0),
		Align: align,
		Err:   errors.Wrapf(block.ErrAllocationTooLarge, "%d elements of %d bytes", n, elemSize),
	}
}

// Free returns p to the allocator and tells the tracker. nil is ignored.
func (m *MemoryArena[A, R]) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}
	m.alloc.Free(p)
	m.tracker.OnFree(p)
}

// AllocBuffer returns a byte buffer of length n aligned to align
// (DefaultAlignment when 0). The buffer's contents are not zeroed.
func (m *MemoryArena[A, R]) AllocBuffer(n int, align uintptr) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	p, err := m.allocate(uintptr(n), align, 0)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(p), n), nil
}

// FreeBuffer frees a buffer returned by AllocBuffer.
func (m *MemoryArena[A, R]) FreeBuffer(b []byte) {
	if cap(b) == 0 {
		return
	}
	m.Free(unsafe.Pointer(unsafe.SliceData(b)))
}

// Allocator returns the arena's allocator.
func (m *MemoryArena[A, R]) Allocator() A { return m.alloc }

// Tracker returns the arena's tracker.
func (m *MemoryArena[A, R]) Tracker() R { return m.tracker }

// Close reports outstanding allocations and releases the allocator when it
// supports it. It returns ErrLeaked if the tracker saw allocations that
// were never freed. The arena must not be used afterwards.
func (m *MemoryArena[A, R]) Close() error {
	if lr, ok := any(m.tracker).(LeakReporter); ok {
		for _, l := range lr.Leaks() {
			m.logger.WithField("action", "arena_close").
				WithField("size", l.Size).
				WithField("site", l.Site.String()).
				Warn("allocation leaked")
		}
	}
	n := m.tracker.Outstanding()
	if r, ok := any(m.alloc).(releaser); ok {
		r.Release()
	}
	if n > 0 {
		return errors.Wrapf(ErrLeaked, "%d allocations", n)
	}
	return nil
}
