package block

import "unsafe"

// takeFree unlinks and returns the first free-list entry that is large
// enough, no more than reuseFactor times the request, and whose data address
// satisfies the alignment. It returns nil when nothing fits.
func (a *Allocator) takeFree(size, align, offset uintptr) unsafe.Pointer {
	limit := a.reuseFactor * size
	if limit/a.reuseFactor != size {
		limit = ^uintptr(0)
	}
	var prev *allocHeader
	for h := a.freeHead; h != nil; prev, h = h, h.next {
		if h.size < size || h.size > limit {
			continue
		}
		p := dataOf(h)
		if (uintptr(p)+offset)%align != 0 {
			continue
		}
		a.unlink(prev, h)
		return p
	}
	return nil
}

// unlink removes h, whose predecessor is prev (nil for the head).
func (a *Allocator) unlink(prev, h *allocHeader) {
	if prev == nil {
		a.freeHead = h.next
	} else {
		prev.next = h.next
	}
	if a.freeTail == h {
		a.freeTail = prev
	}
	h.next = nil
	a.freeCount--
}

// dropFree removes every free-list entry for which drop returns true.
func (a *Allocator) dropFree(drop func(*allocHeader) bool) {
	var prev *allocHeader
	for h := a.freeHead; h != nil; {
		next := h.next
		if drop(h) {
			a.unlink(prev, h)
			a.stats.freeListDrop++
		} else {
			prev = h
		}
		h = next
	}
}

// FreeListLen returns the number of allocations waiting for reuse.
func (a *Allocator) FreeListLen() int { return a.freeCount }

// FreeListContains reports whether the allocation at p is on the free list.
func (a *Allocator) FreeListContains(p unsafe.Pointer) bool {
	target := uintptr(p) - uintptr(HeaderSize)
	for h := a.freeHead; h != nil; h = h.next {
		if uintptr(unsafe.Pointer(h)) == target {
			return true
		}
	}
	return false
}
