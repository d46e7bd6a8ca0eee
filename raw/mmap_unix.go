//go:build unix

package raw

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Mmap backs every allocation with its own anonymous private mapping. The
// memory lives outside the Go heap and is returned to the OS by Free.
type Mmap struct {
	pageSize int
}

// NewMmap returns an allocator backed by anonymous mappings.
func NewMmap() *Mmap {
	return &Mmap{pageSize: unix.Getpagesize()}
}

// PageSize is the mapping granularity and the largest supported alignment.
func (m *Mmap) PageSize() int { return m.pageSize }

func (m *Mmap) Allocate(size, align int) ([]byte, error) {
	align, err := normalize(size, align)
	if err != nil {
		return nil, err
	}
	if align > m.pageSize {
		return nil, errors.Wrapf(ErrInvalidAlignment, "%d exceeds page size %d", align, m.pageSize)
	}
	length := int(AlignUp(uintptr(size), uintptr(m.pageSize)))
	mem, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, errors.Wrapf(err, "raw: mmap %d bytes", length)
	}
	// cap stays at the mapping length, Munmap looks the mapping up by it
	return mem[:size], nil
}

func (m *Mmap) Reallocate(b []byte, size, align int) ([]byte, error) {
	if size > 0 && size <= cap(b) && (align == 0 || Addr(b)%uintptr(align) == 0) {
		return b[:size], nil
	}
	return reallocate(m, b, size, align)
}

func (m *Mmap) Free(b []byte) error {
	if cap(b) == 0 {
		return nil
	}
	if err := unix.Munmap(b[:cap(b)]); err != nil {
		return errors.Wrap(err, "raw: munmap")
	}
	return nil
}
