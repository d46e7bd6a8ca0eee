//go:build !unix

package raw

// Mmap is unavailable on this platform; every call fails with ErrUnsupported.
type Mmap struct{}

func NewMmap() *Mmap { return &Mmap{} }

func (m *Mmap) PageSize() int { return 0 }

func (m *Mmap) Allocate(size, align int) ([]byte, error) { return nil, ErrUnsupported }

func (m *Mmap) Reallocate(b []byte, size, align int) ([]byte, error) {
	return nil, ErrUnsupported
}

func (m *Mmap) Free(b []byte) error { return ErrUnsupported }
