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

// Package smallvector implements the small-vector wrapper of spec.md §4.5: a
// contiguous sequence whose elements start out in a slab.VectorAllocator's
// inline buffer of stackCount elements, and which moves its whole contents
// to a heap buffer only once it grows past that.
package smallvector

import (
	"github.com/slabpool/containers/mempool"
	"github.com/slabpool/containers/slab"
)

// SmallVector is a contiguous, append-friendly sequence of T with a
// guaranteed inline capacity of stackCount elements.
type SmallVector[T any] struct {
	alloc      *slab.VectorAllocator[T]
	stackCount int
	buf        []T
	n          int
}

// New creates a SmallVector and immediately reserves stackCount elements,
// wiring in the allocator's inline storage (spec.md §4.5 "on default
// construction it immediately reserves stackCount").
func New[T any](pool mempool.Pool, tag string, stackCount int) (*SmallVector[T], error) {
	alloc, err := slab.NewVectorAllocator[T](pool, tag, stackCount)
	if err != nil {
		return nil, err
	}
	v := &SmallVector[T]{alloc: alloc, stackCount: stackCount}
	if err := v.Reserve(stackCount); err != nil {
		return nil, err
	}
	return v, nil
}

// NewWithValues creates a SmallVector seeded with a copy of src: reserve to
// at least stackCount (or more, if src is larger), then append.
func NewWithValues[T any](pool mempool.Pool, tag string, stackCount int, src []T) (*SmallVector[T], error) {
	v, err := New[T](pool, tag, stackCount)
	if err != nil {
		return nil, err
	}
	if err := v.Reserve(len(src)); err != nil {
		return nil, err
	}
	v.n = copy(v.buf[:cap(v.buf)], src)
	v.buf = v.buf[:v.n]
	return v, nil
}

// Clone is the copy-construction path: a fresh SmallVector holding a copy
// of other's elements, independent of other's allocator.
func Clone[T any](pool mempool.Pool, tag string, other *SmallVector[T]) (*SmallVector[T], error) {
	return NewWithValues[T](pool, tag, other.stackCount, other.Slice())
}

// Len returns the number of elements currently held.
func (v *SmallVector[T]) Len() int { return v.n }

// StackCount returns the guaranteed inline capacity.
func (v *SmallVector[T]) StackCount() int { return v.stackCount }

// Cap returns the current backing capacity, inline or heap.
func (v *SmallVector[T]) Cap() int { return cap(v.buf) }

// IsInline reports whether the current backing buffer is still the
// allocator's inline storage.
func (v *SmallVector[T]) IsInline() bool { return v.alloc.IsInline(v.buf) }

// Slice returns the live elements. The returned slice aliases the vector's
// internal storage and is invalidated by any mutating call.
func (v *SmallVector[T]) Slice() []T { return v.buf[:v.n] }

// At returns the element at index i.
func (v *SmallVector[T]) At(i int) T { return v.buf[i] }

// Set overwrites the element at index i.
func (v *SmallVector[T]) Set(i int, val T) { v.buf[i] = val }

// Reserve guarantees the backing buffer can hold at least n elements
// without another allocation, migrating off the inline buffer exactly once
// if n exceeds stackCount.
func (v *SmallVector[T]) Reserve(n int) error {
	if cap(v.buf) >= n {
		return nil
	}
	next, err := v.alloc.Allocate(n)
	if err != nil {
		return err
	}
	copied := copy(next, v.buf[:v.n])
	old := v.buf
	v.buf = next[:copied]
	if old != nil {
		v.alloc.Deallocate(old)
	}
	return nil
}

// PushBack appends val, growing the backing buffer (amortized doubling)
// when the current one is full.
func (v *SmallVector[T]) PushBack(val T) error {
	if v.n == cap(v.buf) {
		next := cap(v.buf) * 2
		if next <= v.n {
			next = v.n + 1
		}
		if err := v.Reserve(next); err != nil {
			return err
		}
	}
	v.buf = v.buf[:v.n+1]
	v.buf[v.n] = val
	v.n++
	return nil
}

// Clear empties the vector without releasing its current backing buffer.
func (v *SmallVector[T]) Clear() {
	var zero T
	for i := 0; i < v.n; i++ {
		v.buf[i] = zero
	}
	v.buf = v.buf[:0]
	v.n = 0
}

// Assign replaces the vector's contents with a copy of src, reserving
// first so at most one allocation occurs.
func (v *SmallVector[T]) Assign(src []T) error {
	v.Clear()
	if err := v.Reserve(len(src)); err != nil {
		return err
	}
	v.n = copy(v.buf[:cap(v.buf)], src)
	v.buf = v.buf[:v.n]
	return nil
}

// Swap exchanges contents with other in O(2*stackCount) worst case: both
// vectors are first forced off their inline storage (spec.md §4.5), after
// which the exchange is a plain pointer-level slice swap. Each vector keeps
// its own allocator; only the backing buffers move, which is safe because,
// unlike node slots, vector-slab buffers carry no owning-slab back-pointer
// for Deallocate to check (slab/vector.go has no node-escape invariant).
func (v *SmallVector[T]) Swap(other *SmallVector[T]) error {
	if err := v.Reserve(v.stackCount + 1); err != nil {
		return err
	}
	if err := other.Reserve(other.stackCount + 1); err != nil {
		return err
	}
	v.buf, other.buf = other.buf, v.buf
	v.n, other.n = other.n, v.n
	return nil
}

// Release tears down the vector's allocator: a heap buffer currently held is
// handed back through Deallocate, then the inline reserve's accounting is
// returned via slab.VectorAllocator.Release.
func (v *SmallVector[T]) Release() {
	if !v.IsInline() {
		v.alloc.Deallocate(v.buf)
	}
	v.alloc.Release()
}
