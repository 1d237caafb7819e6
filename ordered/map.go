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

// Map is an ordered, unique-key associative container over a slab-backed
// red-black tree.
type Map[K cmp.Ordered, V any] struct {
	t *tree[K, V]
}

// NewMap creates an empty Map reporting to pool under tag, with stackSize
// entries kept inline before spilling to heapSize-sized batches.
func NewMap[K cmp.Ordered, V any](pool mempool.Pool, tag string, stackSize, heapSize int) (*Map[K, V], error) {
	t, err := newTree[K, V](pool, tag, stackSize, heapSize, func(a, b K) bool { return a < b })
	if err != nil {
		return nil, err
	}
	return &Map[K, V]{t: t}, nil
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int { return m.t.Len() }

// Reserve guarantees at least n free slots without more than one heap-slab
// request.
func (m *Map[K, V]) Reserve(n int) error { return m.t.Reserve(n) }

// Get returns the value stored for key, if any.
func (m *Map[K, V]) Get(key K) (V, bool) { return m.t.Get(key) }

// Put inserts or overwrites the value for key, reporting whether the key
// was new.
func (m *Map[K, V]) Put(key K, val V) (bool, error) { return m.t.Put(key, val) }

// Erase removes key if present.
func (m *Map[K, V]) Erase(key K) bool {
	_, ok := m.t.Delete(key)
	return ok
}

// Clear empties the map and releases every heap slab that held one of its
// entries; a heap slab added by Reserve and never used stays until Release.
func (m *Map[K, V]) Clear() { m.t.Clear() }

// Release tears down the map's allocator. Clear must be called first if
// the map still holds entries.
func (m *Map[K, V]) Release() { m.t.Release() }

// Range visits every key/value pair in ascending key order until visit
// returns false.
//
// Swap is intentionally not implemented: spec.md §4.3 forbids it, since
// exchanging contents would hand one Map's nodes to another Map's
// allocator.
func (m *Map[K, V]) Range(visit func(K, V) bool) { m.t.ForEach(visit) }
