package raw

// Heap allocates from the Go heap. Alignment is obtained by over-allocating
// by align bytes and reslicing. Free only drops the reference.
type Heap struct{}

// NewHeap returns the Go heap allocator.
func NewHeap() *Heap { return &Heap{} }

func (h *Heap) Allocate(size, align int) ([]byte, error) {
	align, err := normalize(size, align)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, size+align)
	addr := Addr(buf)
	shift := int(AlignUp(addr, uintptr(align)) - addr)
	return buf[shift : shift+size : shift+size], nil
}

func (h *Heap) Reallocate(b []byte, size, align int) ([]byte, error) {
	if size == len(b) && align > 0 && Addr(b)%uintptr(align) == 0 {
		return b, nil
	}
	return reallocate(h, b, size, align)
}

func (h *Heap) Free(b []byte) error { return nil }
