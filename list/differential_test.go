package list

import (
	"container/list"
	"math/rand"
	"testing"

	"github.com/dgryski/go-farm"
	"github.com/stretchr/testify/require"

	"github.com/slabpool/containers/mempool"
)

// randomValues derives n pseudo-random ints in [0,mod), the same
// random-buffer-then-farm.Fingerprint64 recipe z/rtutil_test.go's
// BenchmarkFarm uses, driving the reference-model differential tests below
// for spec.md §8 Testable Property 7 ("splice and swap on the list preserve
// element-wise equality to a reference doubly-linked list performing the
// same operations").
func randomValues(seed int64, n, mod int) []int {
	r := rand.New(rand.NewSource(seed))
	buf := make([]byte, 8)
	out := make([]int, n)
	for i := range out {
		_, _ = r.Read(buf)
		out[i] = int(farm.Fingerprint64(buf) % uint64(mod))
	}
	return out
}

func refCollect(l *list.List) []int {
	out := make([]int, 0, l.Len())
	for e := l.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(int))
	}
	return out
}

func TestListSpliceDifferentialAgainstReferenceList(t *testing.T) {
	pool := mempool.NewPool("list-splice-differential")
	a, err := New[int](pool, "a", 4, 4)
	require.NoError(t, err)
	b, err := New[int](pool, "b", 4, 4)
	require.NoError(t, err)
	defer func() {
		a.Clear()
		b.Clear()
		a.Release()
		b.Release()
	}()

	refA, refB := list.New(), list.New()
	for _, v := range randomValues(10, 7, 1000) {
		_, err := a.PushBack(v)
		require.NoError(t, err)
		refA.PushBack(v)
	}
	for _, v := range randomValues(11, 5, 1000) {
		_, err := b.PushBack(v)
		require.NoError(t, err)
		refB.PushBack(v)
	}

	require.NoError(t, a.SpliceRange(nil, b, b.Front(), nil))
	for refB.Len() > 0 {
		e := refB.Front()
		refA.PushBack(e.Value)
		refB.Remove(e)
	}

	require.Equal(t, refCollect(refA), collect(a))
	require.Equal(t, 0, b.Len())
}

func TestListSwapDifferentialAgainstReferenceList(t *testing.T) {
	pool := mempool.NewPool("list-swap-differential")
	a, err := New[int](pool, "a", 4, 4)
	require.NoError(t, err)
	b, err := New[int](pool, "b", 4, 4)
	require.NoError(t, err)
	defer func() {
		a.Clear()
		b.Clear()
		a.Release()
		b.Release()
	}()

	refA, refB := list.New(), list.New()
	for _, v := range randomValues(20, 6, 1000) {
		_, err := a.PushBack(v)
		require.NoError(t, err)
		refA.PushBack(v)
	}
	for _, v := range randomValues(21, 9, 1000) {
		_, err := b.PushBack(v)
		require.NoError(t, err)
		refB.PushBack(v)
	}

	require.NoError(t, a.Swap(b))
	refA, refB = refB, refA

	require.Equal(t, refCollect(refA), collect(a))
	require.Equal(t, refCollect(refB), collect(b))
}
