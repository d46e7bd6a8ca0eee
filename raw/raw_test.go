package raw

import (
	"math"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allocators(t *testing.T) map[string]Allocator {
	t.Helper()
	all := map[string]Allocator{"heap": NewHeap()}
	if runtime.GOOS != "windows" && runtime.GOOS != "plan9" && runtime.GOOS != "js" && runtime.GOOS != "wasip1" {
		all["mmap"] = NewMmap()
	}
	return all
}

func TestAllocateAlignment(t *testing.T) {
	for name, a := range allocators(t) {
		t.Run(name, func(t *testing.T) {
			for _, align := range []int{1, 2, 8, 16, 64, 256, 4096} {
				for _, size := range []int{1, 7, 100, 5000} {
					b, err := a.Allocate(size, align)
					require.NoError(t, err, "Allocate(%d, %d)", size, align)
					assert.Len(t, b, size)
					assert.Zero(t, Addr(b)%uintptr(align), "Allocate(%d, %d) misaligned", size, align)
					require.NoError(t, a.Free(b))
				}
			}
		})
	}
}

func TestAllocateInvalid(t *testing.T) {
	for name, a := range allocators(t) {
		t.Run(name, func(t *testing.T) {
			_, err := a.Allocate(0, 16)
			assert.ErrorIs(t, err, ErrInvalidSize)

			_, err = a.Allocate(-4, 16)
			assert.ErrorIs(t, err, ErrInvalidSize)

			_, err = a.Allocate(16, 3)
			assert.ErrorIs(t, err, ErrInvalidAlignment)

			_, err = a.Allocate(math.MaxInt, 16)
			assert.ErrorIs(t, err, ErrTooLarge)

			_, err = a.Allocate(MaxSize, 16)
			assert.ErrorIs(t, err, ErrTooLarge)
		})
	}
}

func TestAllocateDefaultAlignment(t *testing.T) {
	b, err := NewHeap().Allocate(24, 0)
	require.NoError(t, err)
	assert.Zero(t, Addr(b)%DefaultAlignment)
}

func TestReallocate(t *testing.T) {
	for name, a := range allocators(t) {
		t.Run(name, func(t *testing.T) {
			b, err := a.Allocate(8, 8)
			require.NoError(t, err)
			copy(b, "abcdefgh")

			b, err = a.Reallocate(b, 10000, 16)
			require.NoError(t, err)
			require.Len(t, b, 10000)
			assert.Equal(t, "abcdefgh", string(b[:8]))
			assert.Zero(t, Addr(b)%16)

			b, err = a.Reallocate(b, 4, 16)
			require.NoError(t, err)
			assert.Equal(t, "abcd", string(b))

			require.NoError(t, a.Free(b))
		})
	}
}

func TestReallocateEmptyAllocates(t *testing.T) {
	b, err := NewHeap().Reallocate(nil, 32, 16)
	require.NoError(t, err)
	assert.Len(t, b, 32)
}

func TestMmapRejectsHugeAlignment(t *testing.T) {
	if _, ok := allocators(t)["mmap"]; !ok {
		t.Skip("mmap unsupported")
	}
	m := NewMmap()
	_, err := m.Allocate(16, m.PageSize()*2)
	assert.ErrorIs(t, err, ErrInvalidAlignment)
}

func TestCounting(t *testing.T) {
	c := NewCounting(nil)

	a, err := c.Allocate(100, 16)
	require.NoError(t, err)
	b, err := c.Allocate(50, 16)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Live())
	assert.Equal(t, 150, c.LiveBytes())

	b, err = c.Reallocate(b, 70, 16)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Live())
	assert.Equal(t, 170, c.LiveBytes())

	require.NoError(t, c.Free(a))
	require.NoError(t, c.Free(b))
	assert.Zero(t, c.Live())
	assert.Zero(t, c.LiveBytes())
	assert.Equal(t, 2, c.Total())
}

func TestCountingPropagatesErrors(t *testing.T) {
	c := NewCounting(NewHeap())
	_, err := c.Allocate(0, 16)
	assert.ErrorIs(t, err, ErrInvalidSize)
	assert.Zero(t, c.Total())
}

func TestAlignUp(t *testing.T) {
	tests := []struct {
		n, align, want uintptr
	}{
		{0, 8, 0},
		{1, 8, 8},
		{8, 8, 8},
		{9, 16, 16},
		{33, 32, 64},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AlignUp(tt.n, tt.align), "AlignUp(%d, %d)", tt.n, tt.align)
	}
}
