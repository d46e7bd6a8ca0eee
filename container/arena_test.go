package container

import (
	"math"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	arena "github.com/pavanmanishd/blockarena"
	"github.com/pavanmanishd/blockarena/block"
)

func newTestArena(t *testing.T, blockSize int) *arena.MemoryArena[*block.Allocator, *arena.SimpleTracking] {
	t.Helper()
	l, _ := test.NewNullLogger()
	b, err := block.New(block.WithLogger(l), block.WithBlockSize(blockSize))
	require.NoError(t, err)
	return arena.NewMemoryArena(b, arena.NewSimpleTracking(), arena.WithLogger(l))
}

func TestArenaStorageArray(t *testing.T) {
	m := newTestArena(t, 4096)
	s := NewArenaStorage[int64](m)
	a := NewArrayWith[int64](s)

	for i := int64(0); i < 100; i++ {
		_, err := a.Add(i)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(99), a.At(99))
	assert.Equal(t, 1, m.Tracker().Outstanding(), "old storage freed on growth")

	require.NoError(t, a.Shrink())
	assert.Equal(t, 100, a.Max())
	for i := int64(0); i < 100; i++ {
		assert.Equal(t, i, a.At(int(i)))
	}

	s.Release()
	assert.Zero(t, m.Tracker().Outstanding())
	assert.False(t, s.HasAllocated())
	require.NoError(t, m.Close())
}

func TestArenaStorageLinkedList(t *testing.T) {
	m := newTestArena(t, 4096)
	s := NewArenaStorage[Node[int32]](m)
	l := NewLinkedListWith[int32](s)

	for frame := int32(0); frame < 10; frame++ {
		for i := int32(0); i < 16; i++ {
			require.NoError(t, l.PushTail(frame*16+i))
		}
		for i := int32(0); i < 16; i++ {
			assert.Equal(t, frame*16+i, l.PopHead())
		}
	}
	assert.Zero(t, l.Len())
	assert.Equal(t, 1, m.Tracker().Outstanding())

	require.NoError(t, s.Trim(0))
	assert.Zero(t, m.Tracker().Outstanding())
}

func TestArenaStorageTooLarge(t *testing.T) {
	m := newTestArena(t, 256)
	a := NewArrayWith[int64](NewArenaStorage[int64](m))

	var err error
	for i := 0; i < 100 && err == nil; i++ {
		_, err = a.Add(int64(i))
	}
	assert.ErrorIs(t, err, arena.ErrAllocationFailure)
	assert.ErrorIs(t, err, block.ErrAllocationTooLarge)
	assert.LessOrEqual(t, a.Len(), a.Max())
}

func TestArenaStorageResizeOverflows(t *testing.T) {
	m := newTestArena(t, 1024)
	s := NewArenaStorage[[32]byte](m)

	for _, n := range []int{math.MaxInt / 32, math.MaxInt} {
		got, err := s.Resize(n)
		assert.Zero(t, got)
		assert.ErrorIs(t, err, arena.ErrAllocationFailure)
		assert.ErrorIs(t, err, block.ErrAllocationTooLarge)
	}
	assert.False(t, s.HasAllocated())
	assert.Zero(t, m.Tracker().Outstanding())
}
