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

// Package slab implements the inline-first, batch-on-overflow node
// allocators every container in this module is built on: NodeAllocator for
// fixed-size nodes with an intrusive per-slab free list, and VectorAllocator
// for a single growable contiguous buffer.
package slab

import (
	"fmt"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/slabpool/containers/mempool"
)

// InvariantViolation is raised (via panic) when an allocator detects a
// broken internal invariant: a node that escaped its owning allocator, a
// slab freed with live slots still outstanding, or a self-pointer mismatch
// caused by copying an allocator by value after construction. These are
// programming errors, never conditions a caller should try to recover from.
type InvariantViolation struct {
	Msg string
}

func (e *InvariantViolation) Error() string { return e.Msg }

func invariantf(format string, args ...interface{}) {
	panic(&InvariantViolation{Msg: fmt.Sprintf(format, args...)})
}

// ErrInvalidRequest is the sentinel wrapped into the panic raised when
// AllocateN is asked for anything other than exactly one slot. Single-object
// allocation only is a hard non-goal of this package (spec.md §1).
var ErrInvalidRequest = errors.New("slab: allocate count must be exactly 1")

// slot is the fixed-size record a nodeSlab hands out. value must be the
// first field: Free recovers the enclosing slot from a *T by an unsafe
// pointer cast that depends on this offset being zero, the Go analog of
// spec.md §4.1's "recover slot base from the caller pointer by subtracting
// the back-pointer offset".
type slot[T any] struct {
	value T
	owner *nodeSlab[T]
	next  *slot[T] // per-slab free-list link; meaningful only while free.
}

// nodeSlab is either the allocator's permanent inline slab or one batch
// ("heap slab") obtained on overflow. prev/next form the allocator's
// doubly-linked free-slab list, in the style of tinylfu/list.go's
// sentinel-rooted list.
type nodeSlab[T any] struct {
	prev, next *nodeSlab[T]
	linked     bool
	home       *NodeAllocator[T] // the allocator this slab belongs to; guards against node escape.

	slots     []slot[T]
	freeHead  *slot[T]
	freeCount int
	capacity  int
	inline    bool
}

func newNodeSlab[T any](capacity int, inline bool) *nodeSlab[T] {
	s := &nodeSlab[T]{
		slots:    make([]slot[T], capacity),
		capacity: capacity,
		inline:   inline,
	}
	for i := range s.slots {
		sl := &s.slots[i]
		sl.owner = s
		s.pushFree(sl)
	}
	return s
}

func (s *nodeSlab[T]) pushFree(sl *slot[T]) {
	sl.next = s.freeHead
	s.freeHead = sl
	s.freeCount++
}

func (s *nodeSlab[T]) popFree() *slot[T] {
	sl := s.freeHead
	s.freeHead = sl.next
	sl.next = nil
	s.freeCount--
	return sl
}

// NodeAllocator is the node-slab allocator of spec.md §4.1: the first
// stackSize nodes live in a slab embedded in the allocator itself and are
// never released; once that reserve is exhausted, further nodes come from
// heapSize-sized batches requested from pool.
//
// Go has no way to give a runtime-supplied stackSize a literal inline array
// layout the way the C++ source does, so the "inline slab" here is simply
// the first slab ever created, allocated once in NewNodeAllocator and never freed for
// the allocator's lifetime — see SPEC_FULL.md's "GO-SPECIFIC
// RE-ARCHITECTURE" section for why that preserves the contract this package
// exists to provide.
type NodeAllocator[T any] struct {
	self *NodeAllocator[T] // layout assertion: catches copy-by-value after construction.

	pool mempool.Pool
	tag  string

	stackSize int
	heapSize  int
	slotSize  int
	header    int

	freeRoot   nodeSlab[T] // sentinel; never holds slots itself.
	inlineSlab *nodeSlab[T]

	freeSlotCount  int
	allocSlotCount int
}

// NewNodeAllocator creates an allocator reporting to pool under tag, with
// stackSize nodes kept inline and heapSize nodes requested per batch once
// the inline reserve is exhausted. heapSize <= 0 selects a default sized so
// a heap slab holds about 256 bytes of node storage, but never fewer than
// one node (spec.md §6, §9 open question #2).
func NewNodeAllocator[T any](pool mempool.Pool, tag string, stackSize, heapSize int) (*NodeAllocator[T], error) {
	if stackSize < 0 {
		invariantf("slab: stackSize must be >= 0, got %d", stackSize)
	}
	a := &NodeAllocator[T]{
		pool:      pool,
		tag:       tag,
		stackSize: stackSize,
		slotSize:  int(unsafe.Sizeof(slot[T]{})),
		header:    int(unsafe.Sizeof(nodeSlab[T]{})),
	}
	a.self = a
	a.freeRoot.next = &a.freeRoot
	a.freeRoot.prev = &a.freeRoot

	if heapSize <= 0 {
		heapSize = defaultHeapSize(a.slotSize)
	}
	a.heapSize = heapSize

	if stackSize > 0 {
		if err := pool.SlabNew(a.header, a.slotSize, stackSize, false, false); err != nil {
			return nil, errors.Wrap(err, "slab: allocating inline slab")
		}
		a.inlineSlab = newNodeSlab[T](stackSize, true)
		a.inlineSlab.home = a
		a.linkFreeSlab(a.inlineSlab)
	}
	a.freeSlotCount = stackSize
	a.allocSlotCount = stackSize
	return a, nil
}

func defaultHeapSize(slotSize int) int {
	if slotSize <= 0 {
		return 1
	}
	n := 256 / slotSize
	if n < 1 {
		n = 1
	}
	return n
}

func (a *NodeAllocator[T]) checkSelf() {
	if a.self != a {
		invariantf("slab: NodeAllocator used after Release or copied by value")
	}
}

func (a *NodeAllocator[T]) linkFreeSlab(s *nodeSlab[T]) {
	s.next = a.freeRoot.next
	s.prev = &a.freeRoot
	a.freeRoot.next.prev = s
	a.freeRoot.next = s
	s.linked = true
}

func (s *nodeSlab[T]) unlink() {
	s.prev.next = s.next
	s.next.prev = s.prev
	s.prev, s.next = nil, nil
	s.linked = false
}

// SlotSize returns the cached true slot size (the element plus the
// back-pointer and the free-list link),
// computed once at construction (spec.md §3 "Node slot").
func (a *NodeAllocator[T]) SlotSize() int { return a.slotSize }

// FreeSlots returns the number of slots immediately available without a
// new heap slab.
func (a *NodeAllocator[T]) FreeSlots() int { a.checkSelf(); return a.freeSlotCount }

// AllocatedSlots returns the total number of slots this allocator currently
// owns, free or in use.
func (a *NodeAllocator[T]) AllocatedSlots() int { a.checkSelf(); return a.allocSlotCount }

// InUse returns the number of slots currently handed out.
func (a *NodeAllocator[T]) InUse() int { a.checkSelf(); return a.allocSlotCount - a.freeSlotCount }

// Allocate hands out storage for exactly one node, growing by a heap slab
// first if the free-slab list is empty.
func (a *NodeAllocator[T]) Allocate() (*T, error) {
	a.checkSelf()
	if a.freeRoot.next == &a.freeRoot {
		if err := a.addSlab(a.heapSize); err != nil {
			return nil, err
		}
	}
	s := a.freeRoot.next
	if s.freeCount == 0 {
		invariantf("slab: free-slab list head %p has no free slots", s)
	}
	sl := s.popFree()
	if s.freeCount == 0 {
		s.unlink()
	}
	a.freeSlotCount--
	a.pool.ItemAllocate(a.slotSize)
	return &sl.value, nil
}

// AllocateN exists only to carry the count != 1 non-goal into the API
// explicitly; every real caller should use Allocate.
func (a *NodeAllocator[T]) AllocateN(count int) (*T, error) {
	if count != 1 {
		panic(errors.Wrapf(ErrInvalidRequest, "got count=%d", count))
	}
	return a.Allocate()
}

// Free returns ptr, previously returned by Allocate on this same allocator,
// to its owning slab. Passing a pointer obtained from a different allocator
// or container is a node-escape bug and is an invariant violation.
func (a *NodeAllocator[T]) Free(ptr *T) {
	a.checkSelf()
	sl := (*slot[T])(unsafe.Pointer(ptr))
	s := sl.owner
	if s == nil {
		invariantf("slab: free of a pointer with no owning slab (node escape)")
	}
	if s.home != a {
		invariantf("slab: free of a node that belongs to a different allocator (node escape)")
	}
	wasFull := s.freeCount == 0
	s.pushFree(sl)
	a.freeSlotCount++
	a.pool.ItemFree(a.slotSize)

	if wasFull {
		a.linkFreeSlab(s)
	}
	if s.freeCount == s.capacity && !s.inline {
		s.unlink()
		a.freeSlotCount -= s.capacity
		a.allocSlotCount -= s.capacity
		a.pool.SlabDelete(a.header, a.slotSize, s.capacity, true)
	}
}

// Reserve guarantees at least n free slots are available, issuing at most
// one heap-slab request regardless of how far short of n the allocator
// currently is (spec.md §4.1, Testable Property 6).
func (a *NodeAllocator[T]) Reserve(n int) error {
	a.checkSelf()
	if a.freeSlotCount >= n {
		return nil
	}
	return a.addSlab(n - a.freeSlotCount)
}

func (a *NodeAllocator[T]) addSlab(capacity int) error {
	if err := a.pool.SlabNew(a.header, a.slotSize, capacity, true, false); err != nil {
		return errors.Wrapf(err, "slab: allocating heap slab of %d nodes", capacity)
	}
	s := newNodeSlab[T](capacity, false)
	s.home = a
	a.linkFreeSlab(s)
	a.freeSlotCount += capacity
	a.allocSlotCount += capacity
	return nil
}

// Release tears the allocator down. Every slot handed out by Allocate must
// have been returned via Free first; otherwise this is an invariant
// violation (spec.md §4.1 "Destruction"), since the outstanding pointers
// would be dangling the moment the inline slab's backing slice is dropped.
// Heap slabs with every slot free (for example one added by Reserve and
// never used) are handed back to the pool before that check.
func (a *NodeAllocator[T]) Release() {
	a.checkSelf()
	for s := a.freeRoot.next; s != &a.freeRoot; {
		next := s.next
		if !s.inline && s.freeCount == s.capacity {
			s.unlink()
			a.freeSlotCount -= s.capacity
			a.allocSlotCount -= s.capacity
			a.pool.SlabDelete(a.header, a.slotSize, s.capacity, true)
		}
		s = next
	}
	if a.freeSlotCount != a.allocSlotCount || a.allocSlotCount != a.stackSize {
		invariantf("slab: Release with outstanding slots: free=%d alloc=%d stack=%d",
			a.freeSlotCount, a.allocSlotCount, a.stackSize)
	}
	if a.stackSize > 0 {
		if a.freeRoot.next != a.inlineSlab || a.inlineSlab.next != &a.freeRoot {
			invariantf("slab: Release found heap slabs still on the free list")
		}
		a.pool.SlabDelete(a.header, a.slotSize, a.stackSize, false)
	} else if a.freeRoot.next != &a.freeRoot {
		invariantf("slab: Release found heap slabs still on the free list")
	}
	a.self = nil
}
