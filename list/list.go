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

// Package list is the slab-backed doubly-linked list of spec.md §4.4. Its
// sentinel-rooted layout follows tinylfu/list.go in the teacher repo; the
// node storage underneath it is a slab.NodeAllocator rather than plain Go
// allocation, which is why Splice and Swap are O(N) copy-and-erase instead
// of the O(1) pointer-relinking a plain doubly-linked list would do: moving
// a node's storage from one allocator to another would violate the "no
// node escape" invariant every allocator in this module depends on.
package list

import (
	"fmt"

	"github.com/slabpool/containers/mempool"
	"github.com/slabpool/containers/slab"
)

// Element is one node of a List. Next and Prev return nil past either end,
// matching the standard library's container/list.
type Element[T any] struct {
	Value T

	next, prev *Element[T]
	owner      *List[T]
}

// Next returns the next list element or nil.
func (e *Element[T]) Next() *Element[T] {
	if p := e.next; p != nil && p != &e.owner.root {
		return p
	}
	return nil
}

// Prev returns the previous list element or nil.
func (e *Element[T]) Prev() *Element[T] {
	if p := e.prev; p != nil && p != &e.owner.root {
		return p
	}
	return nil
}

// List is a doubly-linked list whose nodes are handed out by a
// slab.NodeAllocator. The allocator is held as an explicit pointer field,
// the "safer implementation technique" spec.md §4.3 sanctions in place of
// reinterpreting the container's address.
type List[T any] struct {
	alloc *slab.NodeAllocator[Element[T]]
	root  Element[T] // sentinel; never allocator-backed.
	length int
}

// New creates an empty list reporting to pool under tag, with stackSize
// elements kept inline before spilling to heapSize-sized batches.
func New[T any](pool mempool.Pool, tag string, stackSize, heapSize int) (*List[T], error) {
	alloc, err := slab.NewNodeAllocator[Element[T]](pool, tag, stackSize, heapSize)
	if err != nil {
		return nil, err
	}
	l := &List[T]{alloc: alloc}
	l.root.next = &l.root
	l.root.prev = &l.root
	l.root.owner = l
	return l, nil
}

// Len returns the number of elements in the list.
func (l *List[T]) Len() int { return l.length }

// Front returns the first element or nil if the list is empty.
func (l *List[T]) Front() *Element[T] {
	if l.length == 0 {
		return nil
	}
	return l.root.next
}

// Back returns the last element or nil if the list is empty.
func (l *List[T]) Back() *Element[T] {
	if l.length == 0 {
		return nil
	}
	return l.root.prev
}

// Reserve guarantees at least n free slots without more than one heap-slab
// request.
func (l *List[T]) Reserve(n int) error { return l.alloc.Reserve(n) }

func (l *List[T]) insertBetween(v T, prev, next *Element[T]) (*Element[T], error) {
	e, err := l.alloc.Allocate()
	if err != nil {
		return nil, err
	}
	e.Value = v
	e.owner = l
	e.prev = prev
	e.next = next
	prev.next = e
	next.prev = e
	l.length++
	return e, nil
}

// PushBack appends v to the end of the list.
func (l *List[T]) PushBack(v T) (*Element[T], error) {
	return l.insertBetween(v, l.root.prev, &l.root)
}

// PushFront prepends v to the front of the list.
func (l *List[T]) PushFront(v T) (*Element[T], error) {
	return l.insertBetween(v, &l.root, l.root.next)
}

// InsertBefore inserts v immediately before mark, which must belong to l.
func (l *List[T]) InsertBefore(mark *Element[T], v T) (*Element[T], error) {
	l.checkOwner(mark)
	return l.insertBetween(v, mark.prev, mark)
}

// InsertAfter inserts v immediately after mark, which must belong to l.
func (l *List[T]) InsertAfter(mark *Element[T], v T) (*Element[T], error) {
	l.checkOwner(mark)
	return l.insertBetween(v, mark, mark.next)
}

func (l *List[T]) checkOwner(e *Element[T]) {
	if e == nil || e.owner != l {
		panic(&slab.InvariantViolation{Msg: fmt.Sprintf("list: element does not belong to this list")})
	}
}

// Erase removes e from the list and returns its value. e must belong to l.
func (l *List[T]) Erase(e *Element[T]) T {
	l.checkOwner(e)
	e.prev.next = e.next
	e.next.prev = e.prev
	v := e.Value
	e.next, e.prev, e.owner = nil, nil, nil
	l.alloc.Free(e)
	l.length--
	return v
}

// Clear removes every element, releasing any now-empty heap slabs as it
// goes (spec.md §8 Testable Property 5).
func (l *List[T]) Clear() {
	for e := l.Front(); e != nil; {
		next := e.Next()
		l.Erase(e)
		e = next
	}
}

// Release tears down the list's allocator. Clear must be called first if
// the list still holds elements.
func (l *List[T]) Release() { l.alloc.Release() }

// SpliceRange moves the half-open range [first, last) from other into l,
// inserting it immediately before pos, preserving relative order. first ==
// nil is treated as first == other's end iterator and is a documented
// no-op (spec.md §9, first open question); last == nil means "through the
// end of other".
func (l *List[T]) SpliceRange(pos *Element[T], other *List[T], first, last *Element[T]) error {
	if pos != nil {
		l.checkOwner(pos)
	}
	if first == nil {
		return nil
	}
	other.checkOwner(first)

	e := first
	for e != nil && e != last {
		next := e.Next()
		v := other.Erase(e)
		var err error
		if pos == nil {
			_, err = l.PushBack(v)
		} else {
			_, err = l.InsertBefore(pos, v)
		}
		if err != nil {
			return err
		}
		e = next
	}
	return nil
}

// Splice moves every element of other into l, inserting it immediately
// before pos, and leaves other empty.
func (l *List[T]) Splice(pos *Element[T], other *List[T]) error {
	return l.SpliceRange(pos, other, other.Front(), nil)
}

// Swap exchanges the contents of l and other in O(len(l)+len(other)) without
// any node crossing from one allocator to the other: every element is
// freed from its source and re-allocated in its destination.
func (l *List[T]) Swap(other *List[T]) error {
	origLen := l.length
	for other.length > 0 {
		e := other.Front()
		v := other.Erase(e)
		if _, err := l.PushBack(v); err != nil {
			return err
		}
	}
	for i := 0; i < origLen; i++ {
		e := l.Front()
		v := l.Erase(e)
		if _, err := other.PushBack(v); err != nil {
			return err
		}
	}
	return nil
}

// Assign clears l and copies every element of src into it, the "copy
// construction, copy assignment" row of spec.md §4.4's operation table.
func (l *List[T]) Assign(src *List[T]) error {
	l.Clear()
	for e := src.Front(); e != nil; e = e.Next() {
		if _, err := l.PushBack(e.Value); err != nil {
			return err
		}
	}
	return nil
}
