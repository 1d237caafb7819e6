package mempool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolAccounting(t *testing.T) {
	p := NewPool("test")
	require.NoError(t, p.SlabNew(8, 16, 4, false, false))
	require.Equal(t, int64(4), p.FreeItems())
	require.Equal(t, int64(0), p.InuseItems())

	p.ItemAllocate(16)
	p.ItemAllocate(16)
	require.Equal(t, int64(2), p.FreeItems())
	require.Equal(t, int64(2), p.InuseItems())
	require.Equal(t, int64(32), p.InuseBytes())

	p.ItemFree(16)
	require.Equal(t, int64(3), p.FreeItems())
	require.Equal(t, int64(1), p.InuseItems())

	require.Equal(t, int64(1), p.Slabs())
	p.SlabDelete(8, 16, 4, false)
	require.Equal(t, int64(0), p.Slabs())
}

func TestPoolOutOfMemory(t *testing.T) {
	p := NewBoundedPool("bounded", 64)
	require.NoError(t, p.SlabNew(0, 16, 2, true, false)) // 32 bytes, fits.
	err := p.SlabNew(0, 16, 3, true, false)               // would need 48 more, 80 total.
	require.ErrorIs(t, err, ErrOutOfMemory)
}

func TestRegistryStableByTag(t *testing.T) {
	r := NewRegistry()
	a := r.Pool("ordered.Map[string,int]")
	b := r.Pool("ordered.Map[string,int]")
	require.Same(t, a, b)

	c := r.Pool("list.List[int]")
	require.NotSame(t, a, c)

	_, ok := r.Get("never-registered")
	require.False(t, ok)
}

func TestPoolString(t *testing.T) {
	p := NewPool("demo")
	require.NoError(t, p.SlabNew(0, 16, 4, false, false))
	p.ItemAllocate(16)
	require.Contains(t, p.String(), "demo")
}
