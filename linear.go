package arena

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/pavanmanishd/blockarena/block"
	"github.com/pavanmanishd/blockarena/internal/check"
	"github.com/pavanmanishd/blockarena/raw"
)

// DefaultChunkSize is the default chunk size for linear allocators (64 KiB).
const DefaultChunkSize = 1 << 16

// chunk is a single memory region within a LinearAllocator.
type chunk struct {
	buf    []byte  // backing memory
	offset uintptr // allocation offset within buf
}

// LinearAllocator is a chunked bump allocator: allocations are carved in
// order and never freed individually. Reset rewinds every chunk for reuse,
// which suits per-frame scratch memory. Not safe for concurrent use.
type LinearAllocator struct {
	raw       raw.Allocator
	logger    logrus.FieldLogger
	chunks    []chunk
	chunkSize int
	current   int // index of the chunk being carved
	tooLarge  int
}

// LinearOption configures a LinearAllocator.
type LinearOption func(*LinearAllocator)

// WithLinearLogger sets the logger for rejected requests and raw free
// failures. Defaults to the logrus standard logger.
func WithLinearLogger(l logrus.FieldLogger) LinearOption {
	return func(a *LinearAllocator) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewLinearAllocator creates a LinearAllocator with the given chunk size,
// reserving chunks from r (the Go heap when nil). If chunkSize <= 0,
// DefaultChunkSize is used.
func NewLinearAllocator(chunkSize int, r raw.Allocator, opts ...LinearOption) (*LinearAllocator, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if r == nil {
		r = raw.NewHeap()
	}
	a := &LinearAllocator{raw: r, chunkSize: chunkSize, logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.grow(chunkSize); err != nil {
		return nil, err
	}
	return a, nil
}

// Allocate returns size bytes such that p+offset is aligned to align. It
// moves on to the next chunk, reserving one if needed, when the current
// chunk is full. Requests that no chunk could ever hold fail with
// block.ErrAllocationTooLarge.
func (a *LinearAllocator) Allocate(size, align, offset uintptr) (unsafe.Pointer, error) {
	a.panicIfReleased()
	check.That(size > 0, "allocation size %d > 0", size)
	check.That(raw.IsPow2(int(align)), "alignment %d is a power of two", align)

	// each term is capped first so the sum cannot wrap
	const limit = uintptr(raw.MaxSize)
	if size > limit || align > limit || offset > limit || size+align+offset > limit {
		a.tooLarge++
		a.logger.WithField("action", "linear_allocate").
			WithField("size", size).
			WithField("align", align).
			WithField("offset", offset).
			Warn("allocation too large for any chunk")
		return nil, errors.Wrapf(block.ErrAllocationTooLarge, "size %d align %d offset %d", size, align, offset)
	}

	if p := a.chunks[a.current].bump(size, align, offset); p != nil {
		return p, nil
	}
	return a.allocateSlow(size, align, offset)
}

// allocateSlow handles allocation when the current chunk is full.
func (a *LinearAllocator) allocateSlow(size, align, offset uintptr) (unsafe.Pointer, error) {
	for a.current+1 < len(a.chunks) {
		a.current++
		if p := a.chunks[a.current].bump(size, align, offset); p != nil {
			return p, nil
		}
	}
	if err := a.grow(int(size + align + offset)); err != nil {
		return nil, err
	}
	p := a.chunks[a.current].bump(size, align, offset)
	if p == nil {
		return nil, errors.Errorf("arena: %d bytes do not fit a fresh chunk", size)
	}
	return p, nil
}

func (c *chunk) bump(size, align, offset uintptr) unsafe.Pointer {
	start := raw.Addr(c.buf)
	limit := uintptr(len(c.buf))
	off := raw.AlignUp(start+c.offset+offset, align) - offset - start
	if off > limit || size > limit-off {
		return nil
	}
	c.offset = off + size
	return unsafe.Pointer(&c.buf[off])
}

// Free is a no-op; memory comes back with Reset or Release.
func (a *LinearAllocator) Free(unsafe.Pointer) {}

// EnsureCapacity ensures the current chunk has at least n free bytes.
// If not, it grows the allocator with a new chunk.
func (a *LinearAllocator) EnsureCapacity(n int) error {
	a.panicIfReleased()
	c := &a.chunks[a.current]
	if n > len(c.buf)-int(c.offset) {
		return a.grow(n)
	}
	return nil
}

// Reset rewinds every chunk to zero but keeps them for reuse.
// Every pointer handed out before becomes invalid.
func (a *LinearAllocator) Reset() {
	a.panicIfReleased()
	for i := range a.chunks {
		a.chunks[i].offset = 0
	}
	a.current = 0
}

// Release returns every chunk to the raw allocator and makes the
// allocator unusable. Any subsequent operation panics.
func (a *LinearAllocator) Release() {
	for _, c := range a.chunks {
		if err := a.raw.Free(c.buf); err != nil {
			a.logger.WithField("action", "linear_release").WithError(err).Error("raw free of chunk failed")
		}
	}
	a.chunks = nil
	a.current = 0
}

// grow appends a new chunk of at least need bytes and makes it current.
func (a *LinearAllocator) grow(need int) error {
	size := max(a.chunkSize, need)
	buf, err := a.raw.Allocate(size, DefaultAlignment)
	if err != nil {
		return errors.Wrapf(err, "arena: reserve %d byte chunk", size)
	}
	a.chunks = append(a.chunks, chunk{buf: buf})
	a.current = len(a.chunks) - 1
	return nil
}

// panicIfReleased panics if the allocator has been released.
func (a *LinearAllocator) panicIfReleased() {
	if a.chunks == nil {
		panic(ErrReleased)
	}
}
