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

// Package ordered implements the slab-backed ordered associative containers
// of spec.md §4.3: Map, MultiMap, Set and MultiSet. All four share one
// unexported left-leaning red-black tree engine (tree.go) whose nodes come
// from a slab.NodeAllocator instead of plain allocation — the same
// "intrusive node handed out by a fixed-size slab" shape the teacher's
// z/btree.go and arena.go use for their own tree/page structures, just with
// a classic in-memory balanced tree on top instead of an mmap B+-tree.
//
// None of the four wrappers expose Swap: spec.md §4.3 forbids it outright
// because swapping contents would hand one allocator's nodes to another.
package ordered

import (
	"github.com/slabpool/containers/mempool"
	"github.com/slabpool/containers/slab"
)

type node[K any, V any] struct {
	key         K
	val         V
	left, right *node[K, V]
	red         bool
}

func isRed[K any, V any](n *node[K, V]) bool { return n != nil && n.red }

func rotateLeft[K any, V any](h *node[K, V]) *node[K, V] {
	x := h.right
	h.right = x.left
	x.left = h
	x.red = h.red
	h.red = true
	return x
}

func rotateRight[K any, V any](h *node[K, V]) *node[K, V] {
	x := h.left
	h.left = x.right
	x.right = h
	x.red = h.red
	h.red = true
	return x
}

func flipColors[K any, V any](h *node[K, V]) *node[K, V] {
	h.red = !h.red
	h.left.red = !h.left.red
	h.right.red = !h.right.red
	return h
}

func fixUp[K any, V any](h *node[K, V]) *node[K, V] {
	if isRed(h.right) {
		h = rotateLeft(h)
	}
	if isRed(h.left) && isRed(h.left.left) {
		h = rotateRight(h)
	}
	if isRed(h.left) && isRed(h.right) {
		h = flipColors(h)
	}
	return h
}

func moveRedLeft[K any, V any](h *node[K, V]) *node[K, V] {
	h = flipColors(h)
	if isRed(h.right.left) {
		h.right = rotateRight(h.right)
		h = rotateLeft(h)
		h = flipColors(h)
	}
	return h
}

func moveRedRight[K any, V any](h *node[K, V]) *node[K, V] {
	h = flipColors(h)
	if isRed(h.left.left) {
		h = rotateRight(h)
		h = flipColors(h)
	}
	return h
}

func minNode[K any, V any](h *node[K, V]) *node[K, V] {
	for h.left != nil {
		h = h.left
	}
	return h
}

// tree is the shared engine behind Map, MultiMap, Set and MultiSet. less
// defines the total order over K; for the multi variants K is a composite
// key that tie-breaks equal user keys by insertion sequence, so every
// composite key the tree ever holds is unique and Put always inserts
// rather than overwrites.
type tree[K any, V any] struct {
	alloc *slab.NodeAllocator[node[K, V]]
	less  func(a, b K) bool
	root  *node[K, V]
	size  int
}

func newTree[K any, V any](pool mempool.Pool, tag string, stackSize, heapSize int, less func(a, b K) bool) (*tree[K, V], error) {
	alloc, err := slab.NewNodeAllocator[node[K, V]](pool, tag, stackSize, heapSize)
	if err != nil {
		return nil, err
	}
	return &tree[K, V]{alloc: alloc, less: less}, nil
}

func (t *tree[K, V]) Len() int           { return t.size }
func (t *tree[K, V]) Reserve(n int) error { return t.alloc.Reserve(n) }
func (t *tree[K, V]) Release()           { t.alloc.Release() }

func (t *tree[K, V]) Get(key K) (V, bool) {
	h := t.root
	for h != nil {
		switch {
		case t.less(key, h.key):
			h = h.left
		case t.less(h.key, key):
			h = h.right
		default:
			return h.val, true
		}
	}
	var zero V
	return zero, false
}

// Put inserts key/val if key is not present, or overwrites the existing
// value if it is, reporting whether a new node was created.
func (t *tree[K, V]) Put(key K, val V) (bool, error) {
	before := t.size
	root, err := t.putNode(t.root, key, val)
	if err != nil {
		return false, err
	}
	root.red = false
	t.root = root
	return t.size > before, nil
}

func (t *tree[K, V]) putNode(h *node[K, V], key K, val V) (*node[K, V], error) {
	if h == nil {
		n, err := t.alloc.Allocate()
		if err != nil {
			return nil, err
		}
		n.key, n.val, n.red, n.left, n.right = key, val, true, nil, nil
		t.size++
		return n, nil
	}
	var err error
	switch {
	case t.less(key, h.key):
		h.left, err = t.putNode(h.left, key, val)
	case t.less(h.key, key):
		h.right, err = t.putNode(h.right, key, val)
	default:
		h.val = val
		return h, nil
	}
	if err != nil {
		return nil, err
	}
	return fixUp(h), nil
}

// Delete removes key if present and returns its value.
func (t *tree[K, V]) Delete(key K) (V, bool) {
	val, ok := t.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	if !isRed(t.root.left) && !isRed(t.root.right) {
		t.root.red = true
	}
	t.root = t.deleteNode(t.root, key)
	if t.root != nil {
		t.root.red = false
	}
	t.size--
	return val, true
}

func (t *tree[K, V]) deleteNode(h *node[K, V], key K) *node[K, V] {
	if t.less(key, h.key) {
		if !isRed(h.left) && !isRed(leftLeft(h)) {
			h = moveRedLeft(h)
		}
		h.left = t.deleteNode(h.left, key)
	} else {
		if isRed(h.left) {
			h = rotateRight(h)
		}
		if !t.less(h.key, key) && !t.less(key, h.key) && h.right == nil {
			t.alloc.Free(h)
			return nil
		}
		if !isRed(h.right) && !isRed(rightLeft(h)) {
			h = moveRedRight(h)
		}
		if !t.less(h.key, key) && !t.less(key, h.key) {
			m := minNode(h.right)
			h.key, h.val = m.key, m.val
			h.right = t.deleteMin(h.right)
		} else {
			h.right = t.deleteNode(h.right, key)
		}
	}
	return fixUp(h)
}

func (t *tree[K, V]) deleteMin(h *node[K, V]) *node[K, V] {
	if h.left == nil {
		t.alloc.Free(h)
		return nil
	}
	if !isRed(h.left) && !isRed(leftLeft(h)) {
		h = moveRedLeft(h)
	}
	h.left = t.deleteMin(h.left)
	return fixUp(h)
}

func leftLeft[K any, V any](h *node[K, V]) *node[K, V] {
	if h.left == nil {
		return nil
	}
	return h.left.left
}

func rightLeft[K any, V any](h *node[K, V]) *node[K, V] {
	if h.right == nil {
		return nil
	}
	return h.right.left
}

// ForEach visits every key/value pair in ascending order until visit
// returns false.
func (t *tree[K, V]) ForEach(visit func(K, V) bool) {
	t.forEachNode(t.root, visit)
}

func (t *tree[K, V]) forEachNode(h *node[K, V], visit func(K, V) bool) bool {
	if h == nil {
		return true
	}
	if !t.forEachNode(h.left, visit) {
		return false
	}
	if !visit(h.key, h.val) {
		return false
	}
	return t.forEachNode(h.right, visit)
}

// visitRange visits every key/value pair with lo <= key <= hi, in order.
func (t *tree[K, V]) visitRange(h *node[K, V], lo, hi K, visit func(K, V) bool) bool {
	if h == nil {
		return true
	}
	if t.less(h.key, lo) {
		return t.visitRange(h.right, lo, hi, visit)
	}
	if t.less(hi, h.key) {
		return t.visitRange(h.left, lo, hi, visit)
	}
	if !t.visitRange(h.left, lo, hi, visit) {
		return false
	}
	if !visit(h.key, h.val) {
		return false
	}
	return t.visitRange(h.right, lo, hi, visit)
}

// Clear frees every node directly, without rebalancing, and drops the root.
// Any heap slabs that become entirely empty along the way are released by
// the underlying allocator (spec.md §8 Testable Property 5).
func (t *tree[K, V]) Clear() {
	t.freeAll(t.root)
	t.root = nil
	t.size = 0
}

func (t *tree[K, V]) freeAll(h *node[K, V]) {
	if h == nil {
		return
	}
	t.freeAll(h.left)
	t.freeAll(h.right)
	t.alloc.Free(h)
}
