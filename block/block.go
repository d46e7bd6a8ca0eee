// Package block implements the block allocator: variable sized, variable
// alignment allocations carved out of large fixed size blocks, with freed
// allocations recycled through a free list instead of being returned to the
// platform.
//
// Every allocation is preceded by a small in-band header:
//
//	| ... padding ... | allocHeader{size, next} | data (size bytes) | ...
//	                                            ^ returned pointer
//
// The header's next field links the allocation into the free list and is
// meaningless while the allocation is live. Free locates the header by
// stepping back from the data pointer, so it is O(1) and performs no
// validation. An Allocator is not safe for concurrent use.
package block

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/pavanmanishd/blockarena/internal/check"
	"github.com/pavanmanishd/blockarena/raw"
)

const (
	// DefaultBlockSize is the size of every block reserved from the raw allocator (16 KiB).
	DefaultBlockSize = 16 << 10

	// DefaultReuseFactor bounds free-list reuse: a freed region of n bytes
	// serves requests of size s with s <= n <= DefaultReuseFactor*s.
	DefaultReuseFactor = 2

	// blockAlign is the alignment blocks are reserved with.
	blockAlign = 16
)

var (
	// ErrAllocationTooLarge is returned when a request can never fit in a block.
	ErrAllocationTooLarge = errors.New("block: allocation too large for block size")
	// ErrReleased is the panic value for use of an allocator after Release.
	ErrReleased = errors.New("block: use after Release()")
)

// allocHeader sits immediately before every allocation's data.
type allocHeader struct {
	size uintptr
	next *allocHeader
}

const (
	headerSize  = unsafe.Sizeof(allocHeader{})
	headerAlign = unsafe.Alignof(allocHeader{})
)

// HeaderSize is the per-allocation overhead placed before each data region.
const HeaderSize = int(headerSize)

// block is one region reserved from the raw allocator. Its bookkeeping lives
// here rather than in-band so the whole region is usable.
type block struct {
	buf    []byte
	cursor int // next free byte; always within [0, len(buf)]
	next   *block
}

func (b *block) start() uintptr { return raw.Addr(b.buf) }

func (b *block) contains(p uintptr) bool {
	s := b.start()
	return p >= s && p < s+uintptr(len(b.buf))
}

// carve places an allocation after the cursor so that data+offset is aligned
// to align and the header ends exactly at data. It reports false when the
// allocation would run past the end of the block.
func (b *block) carve(size, align, offset uintptr) (unsafe.Pointer, bool) {
	start := b.start()
	limit := uintptr(len(b.buf))
	data := raw.AlignUp(start+uintptr(b.cursor)+headerSize+offset, align) - offset
	if data < start {
		return nil, false
	}
	// compare remaining space instead of data+size, which can wrap
	dataOff := data - start
	if dataOff > limit || size > limit-dataOff {
		return nil, false
	}

	h := (*allocHeader)(unsafe.Pointer(&b.buf[dataOff-headerSize]))
	h.size = size
	h.next = nil
	b.cursor = int(dataOff + size)
	return unsafe.Pointer(&b.buf[dataOff]), true
}

// Allocator serves allocations from a singly linked chain of blocks.
type Allocator struct {
	raw         raw.Allocator
	logger      logrus.FieldLogger
	blockSize   int
	reuseFactor uintptr

	head, tail *block
	numBlocks  int

	freeHead, freeTail *allocHeader
	freeCount          int

	stats counters
}

type counters struct {
	allocs       int
	frees        int
	reuseHits    int
	blocksGrown  int
	blocksFreed  int
	tooLarge     int
	freeListDrop int
}

// New creates an Allocator and eagerly reserves its first block.
func New(opts ...Option) (*Allocator, error) {
	a := &Allocator{
		blockSize:   DefaultBlockSize,
		reuseFactor: DefaultReuseFactor,
		logger:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.raw == nil {
		a.raw = raw.NewHeap()
	}
	check.That(a.blockSize > HeaderSize, "block size %d > header size %d", a.blockSize, HeaderSize)
	check.That(a.reuseFactor >= 1, "reuse factor %d >= 1", a.reuseFactor)

	if err := a.grow(); err != nil {
		return nil, err
	}
	return a, nil
}

// grow reserves a new block and appends it to the chain.
func (a *Allocator) grow() error {
	buf, err := a.raw.Allocate(a.blockSize, blockAlign)
	if err != nil {
		a.logger.WithField("action", "block_reserve").
			WithField("block_size", a.blockSize).
			WithError(err).
			Error("raw allocation of block failed")
		return errors.Wrapf(err, "block: reserve %d byte block", a.blockSize)
	}
	b := &block{buf: buf}
	if a.tail == nil {
		a.head = b
	} else {
		a.tail.next = b
	}
	a.tail = b
	a.numBlocks++
	a.stats.blocksGrown++
	return nil
}

// Allocate returns size bytes such that the address p+offset is aligned to
// align. offset must be a multiple of the header alignment (8); pass 0 for a
// plainly aligned region. Requests whose size plus header exceed the block
// size fail with ErrAllocationTooLarge and a nil pointer. The memory is not
// zeroed.
func (a *Allocator) Allocate(size, align, offset uintptr) (unsafe.Pointer, error) {
	a.panicIfReleased()
	check.That(size > 0, "allocation size %d > 0", size)
	check.That(raw.IsPow2(int(align)), "alignment %d is a power of two", align)
	check.That(offset%headerAlign == 0, "offset %d is a multiple of %d", offset, headerAlign)

	if size > uintptr(a.blockSize)-headerSize {
		a.stats.tooLarge++
		a.logger.WithField("action", "block_allocate").
			WithField("size", size).
			WithField("block_size", a.blockSize).
			Warn("allocation too large for block")
		return nil, ErrAllocationTooLarge
	}
	if align < headerAlign {
		align = headerAlign
	}

	if p := a.takeFree(size, align, offset); p != nil {
		a.stats.allocs++
		a.stats.reuseHits++
		return p, nil
	}

	fresh := false
	for {
		if p, ok := a.tail.carve(size, align, offset); ok {
			a.stats.allocs++
			return p, nil
		}
		if fresh {
			// alignment padding pushed it past an empty block
			a.stats.tooLarge++
			a.logger.WithField("action", "block_allocate").
				WithField("size", size).
				WithField("align", align).
				WithField("block_size", a.blockSize).
				Warn("aligned allocation does not fit in an empty block")
			return nil, errors.Wrapf(ErrAllocationTooLarge, "size %d align %d", size, align)
		}
		if err := a.grow(); err != nil {
			return nil, err
		}
		fresh = true
	}
}

// Free hands the allocation at p back to the free list. p must have been
// returned by Allocate on this allocator and not freed since; nothing is
// validated.
func (a *Allocator) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}
	a.panicIfReleased()
	h := headerOf(p)
	h.next = nil
	if a.freeTail == nil {
		a.freeHead = h
	} else {
		a.freeTail.next = h
	}
	a.freeTail = h
	a.freeCount++
	a.stats.frees++
}

// SizeOf returns the usable size of the live allocation at p, which may be
// larger than requested when the region was recycled from the free list.
func (a *Allocator) SizeOf(p unsafe.Pointer) int {
	return int(headerOf(p).size)
}

func headerOf(p unsafe.Pointer) *allocHeader {
	return (*allocHeader)(unsafe.Add(p, -HeaderSize))
}

func dataOf(h *allocHeader) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(h), HeaderSize)
}

// FreeExcessBlocks releases every block but the first, dropping free-list
// entries that live in the released blocks. Allocations still live in those
// blocks become invalid.
func (a *Allocator) FreeExcessBlocks() {
	a.panicIfReleased()
	excess := a.head.next
	if excess == nil {
		return
	}
	a.dropFree(func(h *allocHeader) bool {
		p := uintptr(unsafe.Pointer(h))
		for b := excess; b != nil; b = b.next {
			if b.contains(p) {
				return true
			}
		}
		return false
	})

	for b := excess; b != nil; {
		next := b.next
		if err := a.raw.Free(b.buf); err != nil {
			a.logger.WithField("action", "block_release").WithError(err).Error("raw free of block failed")
		}
		b.buf, b.next = nil, nil
		a.numBlocks--
		a.stats.blocksFreed++
		b = next
	}
	a.head.next = nil
	a.tail = a.head
}

// Release frees every block. The allocator must not be used afterwards.
func (a *Allocator) Release() {
	for b := a.head; b != nil; {
		next := b.next
		if err := a.raw.Free(b.buf); err != nil {
			a.logger.WithField("action", "block_release").WithError(err).Error("raw free of block failed")
		}
		b.buf, b.next = nil, nil
		b = next
	}
	a.head, a.tail = nil, nil
	a.freeHead, a.freeTail = nil, nil
	a.numBlocks, a.freeCount = 0, 0
}

// HasAllocated reports whether the allocator holds at least one block.
func (a *Allocator) HasAllocated() bool { return a.head != nil }

// AllocatedSize is the total reserved memory: blocks times block size.
func (a *Allocator) AllocatedSize() int { return a.numBlocks * a.blockSize }

// NumBlocks returns the number of blocks in the chain.
func (a *Allocator) NumBlocks() int { return a.numBlocks }

// BlockSize returns the configured block size.
func (a *Allocator) BlockSize() int { return a.blockSize }

// ReuseFactor returns the free-list reuse bound.
func (a *Allocator) ReuseFactor() int { return int(a.reuseFactor) }

func (a *Allocator) panicIfReleased() {
	if a.head == nil {
		panic(ErrReleased)
	}
}
