package slab

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slabpool/containers/mempool"
)

func TestVectorAllocatorInline(t *testing.T) {
	pool := mempool.NewPool("test")
	a, err := NewVectorAllocator[int](pool, "test", 4)
	require.NoError(t, err)

	buf, err := a.Allocate(3)
	require.NoError(t, err)
	require.Len(t, buf, 3)
	require.True(t, a.IsInline(buf))
	require.Equal(t, int64(1), pool.Slabs()) // the inline buffer itself.

	a.Deallocate(buf) // no-op, still inline.
	require.Equal(t, int64(1), pool.Slabs())
	a.Release()
	require.Equal(t, int64(0), pool.Slabs())
}

func TestVectorAllocatorOverflowsToHeap(t *testing.T) {
	pool := mempool.NewPool("test")
	a, err := NewVectorAllocator[int](pool, "test", 4)
	require.NoError(t, err)

	buf, err := a.Allocate(10)
	require.NoError(t, err)
	require.Len(t, buf, 10)
	require.False(t, a.IsInline(buf))
	require.Equal(t, int64(2), pool.Slabs()) // inline buffer + the heap block.

	a.Deallocate(buf)
	require.Equal(t, int64(1), pool.Slabs()) // inline buffer remains.
	a.Release()
	require.Equal(t, int64(0), pool.Slabs())
}

func TestVectorAllocatorOutOfMemoryPropagates(t *testing.T) {
	pool := mempool.NewBoundedPool("bounded", 8)
	a, err := NewVectorAllocator[int](pool, "test", 0)
	require.NoError(t, err)

	_, err = a.Allocate(1000)
	require.Error(t, err)
	require.ErrorIs(t, err, mempool.ErrOutOfMemory)
}
