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

package slab

import (
	"unsafe"

	"github.com/pkg/errors"

	"github.com/slabpool/containers/mempool"
)

// VectorAllocator backs a single growable contiguous buffer (spec.md §4.2):
// it holds one inline array of stackSize elements and, once a request
// exceeds that, asks pool for a fresh contiguous block sized to the exact
// request. Unlike NodeAllocator there is no free list: every Allocate call
// is independent and the caller is responsible for calling Deallocate on
// whatever it is replacing.
//
// This is the element-typed analog of z.Allocator in the teacher repo,
// adapted from "grow by doubling into byte buffers" to "inline-or-exact-fit
// typed slice", since spec.md §4.2 fixes the inline capacity up front and
// wants the heap fallback sized to the caller's request, not a growing
// byte arena.
type VectorAllocator[T any] struct {
	self *VectorAllocator[T]

	pool mempool.Pool
	tag  string

	stackSize int
	elemSize  int
	inline    []T
}

// NewVectorAllocator creates a vector-slab allocator with stackSize elements
// kept inline.
func NewVectorAllocator[T any](pool mempool.Pool, tag string, stackSize int) (*VectorAllocator[T], error) {
	if stackSize < 0 {
		invariantf("slab: stackSize must be >= 0, got %d", stackSize)
	}
	var zero T
	a := &VectorAllocator[T]{
		pool:      pool,
		tag:       tag,
		stackSize: stackSize,
		elemSize:  int(unsafe.Sizeof(zero)),
	}
	a.self = a
	if stackSize > 0 {
		if err := pool.SlabNew(0, a.elemSize, stackSize, false, true); err != nil {
			return nil, errors.Wrap(err, "slab: allocating inline vector buffer")
		}
	}
	a.inline = make([]T, stackSize)
	return a, nil
}

func (a *VectorAllocator[T]) checkSelf() {
	if a.self != a {
		invariantf("slab: VectorAllocator used after Release or copied by value")
	}
}

// StackSize returns the inline element capacity.
func (a *VectorAllocator[T]) StackSize() int { return a.stackSize }

// Allocate returns a buffer of exactly cnt elements: the inline array if
// cnt fits within stackSize, otherwise a fresh contiguous heap block sized
// to cnt.
func (a *VectorAllocator[T]) Allocate(cnt int) ([]T, error) {
	a.checkSelf()
	if cnt < 0 {
		invariantf("slab: Allocate called with negative count %d", cnt)
	}
	if cnt <= a.stackSize {
		return a.inline[:cnt:a.stackSize], nil
	}
	if err := a.pool.SlabNew(0, a.elemSize, cnt, true, true); err != nil {
		return nil, errors.Wrapf(err, "slab: allocating vector buffer of %d elements", cnt)
	}
	return make([]T, cnt), nil
}

// IsInline reports whether buf is (still) backed by this allocator's inline
// storage.
func (a *VectorAllocator[T]) IsInline(buf []T) bool {
	if a.stackSize == 0 || len(buf) == 0 {
		return len(buf) == 0 && cap(buf) <= a.stackSize && (len(a.inline) == 0 || unsafe.SliceData(buf) == unsafe.SliceData(a.inline))
	}
	return unsafe.SliceData(buf) == unsafe.SliceData(a.inline)
}

// Deallocate releases buf back to pool unless it is the inline array, in
// which case it is a no-op — the inline storage belongs to the allocator
// for its whole lifetime.
func (a *VectorAllocator[T]) Deallocate(buf []T) {
	a.checkSelf()
	if a.IsInline(buf) {
		return
	}
	a.pool.SlabDelete(0, a.elemSize, cap(buf), true)
}

// Release tears down the allocator, returning the inline buffer's
// accounting to pool.
func (a *VectorAllocator[T]) Release() {
	a.checkSelf()
	if a.stackSize > 0 {
		a.pool.SlabDelete(0, a.elemSize, a.stackSize, false)
	}
	a.self = nil
}
