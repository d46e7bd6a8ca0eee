package arena

import (
	"testing"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavanmanishd/blockarena/block"
)

func newBlockArena[R Tracker](t *testing.T, tracker R, opts ...block.Option) (*MemoryArena[*block.Allocator, R], *test.Hook) {
	t.Helper()
	l, hook := test.NewNullLogger()
	b, err := block.New(append([]block.Option{block.WithLogger(l)}, opts...)...)
	require.NoError(t, err)
	return NewMemoryArena(b, tracker, WithLogger(l)), hook
}

func TestMemoryArenaAllocateFree(t *testing.T) {
	a, _ := newBlockArena(t, NewSimpleTracking())

	p, err := a.Allocate(128, 32, 0)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Zero(t, uintptr(p)%32)
	assert.Equal(t, 1, a.Tracker().Outstanding())
	assert.True(t, a.Tracker().HasOutstanding())

	q, err := a.Allocate(16, 8, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, a.Tracker().Outstanding())

	a.Free(p)
	a.Free(q)
	a.Free(nil)
	assert.Zero(t, a.Tracker().Outstanding())
	assert.False(t, a.Tracker().HasOutstanding())
	assert.Equal(t, 2, a.Tracker().Total())
	assert.Equal(t, 2, a.Allocator().FreeListLen())
}

func TestMemoryArenaDefaultAlignment(t *testing.T) {
	a, _ := newBlockArena(t, NoTracking{})
	for i := 0; i < 10; i++ {
		p, err := a.Allocate(uintptr(1+i*3), 0, 0)
		require.NoError(t, err)
		assert.Zero(t, uintptr(p)%DefaultAlignment)
	}
}

func TestMemoryArenaAllocationFailure(t *testing.T) {
	a, hook := newBlockArena(t, NewSimpleTracking(), block.WithBlockSize(256))

	p, err := a.Allocate(1000, 8, 0)
	assert.Nil(t, p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllocationFailure)
	assert.ErrorIs(t, err, block.ErrAllocationTooLarge)

	var ae *AllocationError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, uintptr(1000), ae.Size)
	assert.Equal(t, uintptr(8), ae.Align)

	assert.Zero(t, a.Tracker().Outstanding(), "failed allocations are not tracked")
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

type nilAllocator struct{}

func (nilAllocator) Allocate(uintptr, uintptr, uintptr) (unsafe.Pointer, error) { return nil, nil }
func (nilAllocator) Free(unsafe.Pointer)                                       {}
func (nilAllocator) AllocatedSize() int                                        { return 0 }

func TestMemoryArenaNilFromAllocator(t *testing.T) {
	a := NewMemoryArena(nilAllocator{}, NewSimpleTracking())
	p, err := a.Allocate(8, 8, 0)
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrAllocationFailure)
	assert.Nil(t, errors.Unwrap(err))
}

func TestMemoryArenaBuffers(t *testing.T) {
	a, _ := newBlockArena(t, NewSimpleTracking())

	b, err := a.AllocBuffer(100, 0)
	require.NoError(t, err)
	assert.Len(t, b, 100)
	assert.Zero(t, uintptr(unsafe.Pointer(&b[0]))%DefaultAlignment)
	copy(b, "frame data")

	empty, err := a.AllocBuffer(0, 0)
	require.NoError(t, err)
	assert.Nil(t, empty)
	a.FreeBuffer(empty)

	assert.Equal(t, 1, a.Tracker().Outstanding())
	a.FreeBuffer(b)
	assert.Zero(t, a.Tracker().Outstanding())

	c, err := a.AllocBuffer(80, 0)
	require.NoError(t, err)
	assert.Equal(t, unsafe.Pointer(&b[0]), unsafe.Pointer(&c[0]), "freed buffer reused")
}

func TestMemoryArenaClose(t *testing.T) {
	t.Run("no leaks", func(t *testing.T) {
		a, hook := newBlockArena(t, NewSimpleTracking())
		p, _ := a.Allocate(64, 8, 0)
		a.Free(p)

		require.NoError(t, a.Close())
		assert.False(t, a.Allocator().HasAllocated(), "allocator released")
		assert.Empty(t, hook.AllEntries())
	})

	t.Run("counted leaks", func(t *testing.T) {
		a, _ := newBlockArena(t, NewSimpleTracking())
		_, _ = a.Allocate(64, 8, 0)
		_, _ = a.Allocate(64, 8, 0)

		err := a.Close()
		assert.ErrorIs(t, err, ErrLeaked)
		assert.Contains(t, err.Error(), "2 allocations")
	})

	t.Run("leaks with sites", func(t *testing.T) {
		a, hook := newBlockArena(t, NewSiteTracking())
		_, _ = a.Allocate(64, 8, 0)
		p, _ := a.Allocate(32, 8, 0)
		_, _ = a.Allocate(16, 8, 0)
		a.Free(p)

		err := a.Close()
		assert.ErrorIs(t, err, ErrLeaked)

		warnings := 0
		for _, e := range hook.AllEntries() {
			if e.Level == logrus.WarnLevel && e.Message == "allocation leaked" {
				warnings++
				assert.Contains(t, e.Data["site"], "memory_arena_test.go")
			}
		}
		assert.Equal(t, 2, warnings)
	})

	t.Run("no tracking", func(t *testing.T) {
		a, _ := newBlockArena(t, NoTracking{})
		_, _ = a.Allocate(64, 8, 0)
		assert.NoError(t, a.Close())
	})
}

func TestMemoryArenaRecordsSites(t *testing.T) {
	a, _ := newBlockArena(t, NewSiteTracking())

	p, err := a.Allocate(24, 8, 0)
	require.NoError(t, err)
	b, err := a.AllocBuffer(10, 0)
	require.NoError(t, err)
	v, err := New[int64](a)
	require.NoError(t, err)

	leaks := a.Tracker().Leaks()
	require.Len(t, leaks, 3)
	for _, l := range leaks {
		assert.Equal(t, "memory_arena_test.go", l.Site.File)
		assert.Contains(t, l.Site.Function, "TestMemoryArenaRecordsSites")
	}
	assert.Less(t, leaks[0].Site.Line, leaks[1].Site.Line)
	assert.Less(t, leaks[1].Site.Line, leaks[2].Site.Line)
	assert.Equal(t, p, leaks[0].Ptr)
	assert.Equal(t, uintptr(24), leaks[0].Size)

	a.Free(p)
	a.FreeBuffer(b)
	Delete(a, v)
	assert.Empty(t, a.Tracker().Leaks())
}

func TestMemoryArenaMetrics(t *testing.T) {
	t.Run("block", func(t *testing.T) {
		a, _ := newBlockArena(t, NewSimpleTracking(), block.WithBlockSize(1024))
		var ptrs []unsafe.Pointer
		for i := 0; i < 20; i++ {
			p, err := a.Allocate(100, 8, 0)
			require.NoError(t, err)
			ptrs = append(ptrs, p)
		}
		a.Free(ptrs[0])
		a.Free(ptrs[1])

		m := a.Metrics()
		assert.Equal(t, a.Allocator().AllocatedSize(), m.AllocatedSize)
		assert.Equal(t, a.Allocator().NumBlocks(), m.Blocks)
		assert.Greater(t, m.Blocks, 1)
		assert.Equal(t, 2, m.FreeListEntries)
		assert.Equal(t, 200, m.FreeListBytes)
		assert.Equal(t, 18, m.Outstanding)
		assert.Greater(t, m.BytesInUse, 20*100)
		assert.Greater(t, m.Utilization, 0.0)
		assert.LessOrEqual(t, m.Utilization, 1.0)
	})

	t.Run("linear", func(t *testing.T) {
		l, err := NewLinearAllocator(1024, nil)
		require.NoError(t, err)
		a := NewMemoryArena(l, NoTracking{})
		_, _ = a.Allocate(100, 8, 0)

		m := a.Metrics()
		assert.Equal(t, 1024, m.AllocatedSize)
		assert.Equal(t, 1, m.Blocks)
		assert.Equal(t, 100, m.BytesInUse)
		assert.Zero(t, m.FreeListEntries)
		assert.Zero(t, m.Outstanding)
	})
}

func TestNewDefault(t *testing.T) {
	l, _ := test.NewNullLogger()
	a, err := NewDefault(block.WithLogger(l), block.WithBlockSize(4096))
	require.NoError(t, err)
	assert.Equal(t, 4096, a.Allocator().BlockSize())

	p, err := a.Allocate(10, 8, 0)
	require.NoError(t, err)
	a.Free(p)
	assert.NoError(t, a.Close())
}

func TestLinearBackedArena(t *testing.T) {
	l, err := NewLinearAllocator(256, nil)
	require.NoError(t, err)
	a := NewMemoryArena(l, NewSimpleTracking())

	for frame := 0; frame < 3; frame++ {
		for i := 0; i < 10; i++ {
			p, err := a.Allocate(48, 16, 0)
			require.NoError(t, err)
			assert.Zero(t, uintptr(p)%16)
			a.Free(p)
		}
		l.Reset()
	}
	assert.Zero(t, a.Tracker().Outstanding())
	assert.Equal(t, 2, l.Stats().Chunks, "frames after the first reuse the chunks")
	require.NoError(t, a.Close())
	assert.Zero(t, l.Stats().Chunks)
}
