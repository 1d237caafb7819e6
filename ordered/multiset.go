/*
 * Copyright 2020 Dgraph Labs, Inc. and Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package ordered

import (
	"cmp"
	"math"

	"github.com/slabpool/containers/mempool"
)

// MultiSet is an ordered container that allows duplicate elements. It is a
// thin projection of MultiMap onto an empty value type.
type MultiSet[K cmp.Ordered] struct {
	t   *tree[multiKey[K], struct{}]
	seq uint64
}

// NewMultiSet creates an empty MultiSet reporting to pool under tag.
func NewMultiSet[K cmp.Ordered](pool mempool.Pool, tag string, stackSize, heapSize int) (*MultiSet[K], error) {
	less := lessMultiKey[K](func(a, b K) bool { return a < b })
	t, err := newTree[multiKey[K], struct{}](pool, tag, stackSize, heapSize, less)
	if err != nil {
		return nil, err
	}
	return &MultiSet[K]{t: t}, nil
}

// Len returns the number of elements, counting duplicates.
func (s *MultiSet[K]) Len() int { return s.t.Len() }

// Reserve guarantees at least n free slots without more than one heap-slab
// request.
func (s *MultiSet[K]) Reserve(n int) error { return s.t.Reserve(n) }

// Insert always adds a new element, even if key is already present.
func (s *MultiSet[K]) Insert(key K) error {
	s.seq++
	_, err := s.t.Put(multiKey[K]{key: key, seq: s.seq}, struct{}{})
	return err
}

// Count returns the number of occurrences of key.
func (s *MultiSet[K]) Count(key K) int {
	n := 0
	s.t.visitRange(s.t.root, multiKey[K]{key: key, seq: 0}, multiKey[K]{key: key, seq: math.MaxUint64},
		func(_ multiKey[K], _ struct{}) bool {
			n++
			return true
		})
	return n
}

// EraseAll removes every occurrence of key and returns how many were
// removed.
func (s *MultiSet[K]) EraseAll(key K) int {
	victims := s.matchingKeys(key)
	for _, ck := range victims {
		s.t.Delete(ck)
	}
	return len(victims)
}

// EraseOne removes a single occurrence of key, if any.
func (s *MultiSet[K]) EraseOne(key K) bool {
	victims := s.matchingKeys(key)
	if len(victims) == 0 {
		return false
	}
	_, ok := s.t.Delete(victims[0])
	return ok
}

func (s *MultiSet[K]) matchingKeys(key K) []multiKey[K] {
	var out []multiKey[K]
	s.t.visitRange(s.t.root, multiKey[K]{key: key, seq: 0}, multiKey[K]{key: key, seq: math.MaxUint64},
		func(ck multiKey[K], _ struct{}) bool {
			out = append(out, ck)
			return true
		})
	return out
}

// Clear empties the multiset and releases every heap slab that held one of
// its elements; a heap slab added by Reserve and never used stays until
// Release.
func (s *MultiSet[K]) Clear() { s.t.Clear() }

// Release tears down the multiset's allocator. Clear must be called first
// if the multiset still holds elements.
func (s *MultiSet[K]) Release() { s.t.Release() }

// Range visits every element in ascending, insertion-order until visit
// returns false.
//
// Swap is intentionally not implemented; see Map.Range's doc comment.
func (s *MultiSet[K]) Range(visit func(K) bool) {
	s.t.ForEach(func(ck multiKey[K], _ struct{}) bool { return visit(ck.key) })
}
