package ordered

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/dgryski/go-farm"
	"github.com/stretchr/testify/require"

	"github.com/slabpool/containers/mempool"
)

// randomKeys derives n pseudo-random ints in [0,mod), folding a random byte
// buffer down with farm.Fingerprint64 the same way z/rtutil_test.go's
// BenchmarkFarm exercises the teacher's alternate hash. Used here to drive
// the reference-model differential tests for spec.md §8 Testable Properties
// 1 ("contents equal a reference container after any insert/erase
// sequence") and 8 ("find matches a reference ordered container").
func randomKeys(seed int64, n, mod int) []int {
	r := rand.New(rand.NewSource(seed))
	buf := make([]byte, 8)
	out := make([]int, n)
	for i := range out {
		_, _ = r.Read(buf)
		out[i] = int(farm.Fingerprint64(buf) % uint64(mod))
	}
	return out
}

func TestMapDifferentialAgainstReferenceMap(t *testing.T) {
	pool := mempool.NewPool("map-differential")
	m, err := NewMap[int, int](pool, "map-differential", 4, 4)
	require.NoError(t, err)
	defer func() {
		m.Clear()
		m.Release()
	}()

	ref := make(map[int]int)
	for i, k := range randomKeys(1, 500, 200) {
		if i%3 == 2 {
			delete(ref, k)
			m.Erase(k)
			continue
		}
		ref[k] = k * 7
		_, err := m.Put(k, k*7)
		require.NoError(t, err)
	}

	require.Equal(t, len(ref), m.Len())
	for k, v := range ref {
		got, ok := m.Get(k)
		require.True(t, ok)
		require.Equal(t, v, got)
	}

	sortedRef := make([]int, 0, len(ref))
	for k := range ref {
		sortedRef = append(sortedRef, k)
	}
	sort.Ints(sortedRef)

	var seen []int
	m.Range(func(k, v int) bool {
		seen = append(seen, k)
		require.Equal(t, ref[k], v)
		return true
	})
	require.Equal(t, sortedRef, seen)
}

func TestSetDifferentialAgainstReferenceSet(t *testing.T) {
	pool := mempool.NewPool("set-differential")
	s, err := NewSet[int](pool, "set-differential", 4, 4)
	require.NoError(t, err)
	defer func() {
		s.Clear()
		s.Release()
	}()

	ref := make(map[int]struct{})
	for i, k := range randomKeys(2, 500, 200) {
		if i%3 == 2 {
			delete(ref, k)
			s.Erase(k)
			continue
		}
		ref[k] = struct{}{}
		_, err := s.Insert(k)
		require.NoError(t, err)
	}

	require.Equal(t, len(ref), s.Len())
	for k := range ref {
		require.True(t, s.Contains(k))
	}

	sortedRef := make([]int, 0, len(ref))
	for k := range ref {
		sortedRef = append(sortedRef, k)
	}
	sort.Ints(sortedRef)

	var seen []int
	s.Range(func(k int) bool {
		seen = append(seen, k)
		return true
	})
	require.Equal(t, sortedRef, seen)
}

func TestMultiMapDifferentialAgainstReferenceSlices(t *testing.T) {
	pool := mempool.NewPool("multimap-differential")
	mm, err := NewMultiMap[int, int](pool, "multimap-differential", 4, 4)
	require.NoError(t, err)
	defer func() {
		mm.Clear()
		mm.Release()
	}()

	ref := make(map[int][]int)
	for i, k := range randomKeys(3, 300, 50) {
		ref[k] = append(ref[k], i)
		require.NoError(t, mm.Insert(k, i))
	}

	total := 0
	for k, vals := range ref {
		total += len(vals)
		require.Equal(t, vals, mm.Find(k))
		require.Equal(t, len(vals), mm.Count(k))
	}
	require.Equal(t, total, mm.Len())

	for k := range ref {
		require.True(t, mm.EraseFirst(k))
		ref[k] = ref[k][1:]
		require.Equal(t, ref[k], mm.Find(k))
	}
}

func TestMultiSetDifferentialAgainstReferenceCounts(t *testing.T) {
	pool := mempool.NewPool("multiset-differential")
	ms, err := NewMultiSet[int](pool, "multiset-differential", 4, 4)
	require.NoError(t, err)
	defer func() {
		ms.Clear()
		ms.Release()
	}()

	ref := make(map[int]int)
	for _, k := range randomKeys(4, 300, 50) {
		ref[k]++
		require.NoError(t, ms.Insert(k))
	}

	total := 0
	for k, n := range ref {
		total += n
		require.Equal(t, n, ms.Count(k))
	}
	require.Equal(t, total, ms.Len())

	for k, n := range ref {
		require.Equal(t, n, ms.EraseAll(k))
	}
	require.Equal(t, 0, ms.Len())
}
