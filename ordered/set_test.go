package ordered

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slabpool/containers/mempool"
)

func TestSetInsertContainsErase(t *testing.T) {
	pool := mempool.NewPool("set-test")
	s, err := NewSet[int](pool, "set-test", 4, 0)
	require.NoError(t, err)
	defer s.Release()

	isNew, err := s.Insert(7)
	require.NoError(t, err)
	require.True(t, isNew)

	isNew, err = s.Insert(7)
	require.NoError(t, err)
	require.False(t, isNew)

	require.True(t, s.Contains(7))
	require.False(t, s.Contains(8))
	require.Equal(t, 1, s.Len())

	require.True(t, s.Erase(7))
	require.False(t, s.Erase(7))
	require.Equal(t, 0, s.Len())
}

// TestSetEraseAllReleasesHeapSlabs inserts enough elements to spill onto
// heap slabs, erases every key, and confirms the heap slabs go away while
// the inline reserve survives.
func TestSetEraseAllReleasesHeapSlabs(t *testing.T) {
	pool := mempool.NewPool("set-erase-middle")
	s, err := NewSet[int](pool, "set-erase-middle", 2, 3)
	require.NoError(t, err)
	defer s.Release()

	keys := []int{10, 20, 30, 40, 50, 60, 70}
	for _, k := range keys {
		_, err := s.Insert(k)
		require.NoError(t, err)
	}
	require.True(t, pool.Slabs() > 1)

	for _, k := range keys {
		require.True(t, s.Erase(k))
	}
	require.Equal(t, 0, s.Len())
	require.EqualValues(t, 1, pool.Slabs())
}

func TestSetRangeAscending(t *testing.T) {
	pool := mempool.NewPool("set-range")
	s, err := NewSet[string](pool, "set-range", 8, 0)
	require.NoError(t, err)
	defer func() {
		s.Clear()
		s.Release()
	}()

	for _, k := range []string{"banana", "apple", "cherry"} {
		_, err := s.Insert(k)
		require.NoError(t, err)
	}

	var seen []string
	s.Range(func(k string) bool {
		seen = append(seen, k)
		return true
	})
	require.Equal(t, []string{"apple", "banana", "cherry"}, seen)
}
