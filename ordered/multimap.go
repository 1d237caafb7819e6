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

// MultiMap is an ordered associative container that allows duplicate keys.
// Internally it is a unique-key tree keyed by (key, insertion sequence):
// every entry gets its own node, and entries sharing a key stay adjacent in
// ascending-sequence order because the sequence only breaks ties among
// otherwise-equal keys.
type MultiMap[K cmp.Ordered, V any] struct {
	t   *tree[multiKey[K], V]
	seq uint64
}

// NewMultiMap creates an empty MultiMap reporting to pool under tag.
func NewMultiMap[K cmp.Ordered, V any](pool mempool.Pool, tag string, stackSize, heapSize int) (*MultiMap[K, V], error) {
	less := lessMultiKey[K](func(a, b K) bool { return a < b })
	t, err := newTree[multiKey[K], V](pool, tag, stackSize, heapSize, less)
	if err != nil {
		return nil, err
	}
	return &MultiMap[K, V]{t: t}, nil
}

// Len returns the number of entries, counting duplicates.
func (m *MultiMap[K, V]) Len() int { return m.t.Len() }

// Reserve guarantees at least n free slots without more than one heap-slab
// request.
func (m *MultiMap[K, V]) Reserve(n int) error { return m.t.Reserve(n) }

// Insert always adds a new entry, even if key already has other values.
func (m *MultiMap[K, V]) Insert(key K, val V) error {
	m.seq++
	_, err := m.t.Put(multiKey[K]{key: key, seq: m.seq}, val)
	return err
}

// Find returns every value stored for key, in insertion order.
func (m *MultiMap[K, V]) Find(key K) []V {
	out := []V{}
	m.t.visitRange(m.t.root, multiKey[K]{key: key, seq: 0}, multiKey[K]{key: key, seq: math.MaxUint64},
		func(_ multiKey[K], v V) bool {
			out = append(out, v)
			return true
		})
	return out
}

// Count returns the number of values stored for key.
func (m *MultiMap[K, V]) Count(key K) int { return len(m.Find(key)) }

// EraseAll removes every entry for key and returns how many were removed.
func (m *MultiMap[K, V]) EraseAll(key K) int {
	victims := m.matchingKeys(key)
	for _, ck := range victims {
		m.t.Delete(ck)
	}
	return len(victims)
}

// EraseFirst removes the earliest-inserted entry for key, if any.
func (m *MultiMap[K, V]) EraseFirst(key K) bool {
	victims := m.matchingKeys(key)
	if len(victims) == 0 {
		return false
	}
	_, ok := m.t.Delete(victims[0])
	return ok
}

func (m *MultiMap[K, V]) matchingKeys(key K) []multiKey[K] {
	var out []multiKey[K]
	m.t.visitRange(m.t.root, multiKey[K]{key: key, seq: 0}, multiKey[K]{key: key, seq: math.MaxUint64},
		func(ck multiKey[K], _ V) bool {
			out = append(out, ck)
			return true
		})
	return out
}

// Clear empties the multimap and releases every heap slab that held one of
// its entries; a heap slab added by Reserve and never used stays until
// Release.
func (m *MultiMap[K, V]) Clear() { m.t.Clear() }

// Release tears down the multimap's allocator. Clear must be called first
// if the multimap still holds entries.
func (m *MultiMap[K, V]) Release() { m.t.Release() }

// Range visits every key/value pair in ascending key, insertion-order
// until visit returns false.
//
// Swap is intentionally not implemented; see Map.Range's doc comment.
func (m *MultiMap[K, V]) Range(visit func(K, V) bool) {
	m.t.ForEach(func(ck multiKey[K], v V) bool { return visit(ck.key, v) })
}
