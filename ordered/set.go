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

	"github.com/slabpool/containers/mempool"
)

// Set is an ordered, unique-key set over a slab-backed red-black tree.
type Set[K cmp.Ordered] struct {
	t *tree[K, struct{}]
}

// NewSet creates an empty Set reporting to pool under tag.
func NewSet[K cmp.Ordered](pool mempool.Pool, tag string, stackSize, heapSize int) (*Set[K], error) {
	t, err := newTree[K, struct{}](pool, tag, stackSize, heapSize, func(a, b K) bool { return a < b })
	if err != nil {
		return nil, err
	}
	return &Set[K]{t: t}, nil
}

// Len returns the number of elements.
func (s *Set[K]) Len() int { return s.t.Len() }

// Reserve guarantees at least n free slots without more than one heap-slab
// request.
func (s *Set[K]) Reserve(n int) error { return s.t.Reserve(n) }

// Insert adds key, reporting whether it was new.
func (s *Set[K]) Insert(key K) (bool, error) { return s.t.Put(key, struct{}{}) }

// Contains reports whether key is present.
func (s *Set[K]) Contains(key K) bool {
	_, ok := s.t.Get(key)
	return ok
}

// Erase removes key if present.
func (s *Set[K]) Erase(key K) bool {
	_, ok := s.t.Delete(key)
	return ok
}

// Clear empties the set and releases every heap slab that held one of its
// elements; a heap slab added by Reserve and never used stays until Release.
func (s *Set[K]) Clear() { s.t.Clear() }

// Release tears down the set's allocator. Clear must be called first if
// the set still holds elements.
func (s *Set[K]) Release() { s.t.Release() }

// Range visits every element in ascending order until visit returns false.
//
// Swap is intentionally not implemented; see Map.Range's doc comment.
func (s *Set[K]) Range(visit func(K) bool) {
	s.t.ForEach(func(k K, _ struct{}) bool { return visit(k) })
}
