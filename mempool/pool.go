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

// Package mempool is the accounting and notification service that every
// slab allocator in this module reports to. It does not itself hand out
// memory (the Go allocator already does that); it tracks, per pool tag, how
// many slab-backed items are outstanding and how many bytes that represents,
// and it is the one place an injected out-of-memory condition can surface
// from.
package mempool

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// ErrOutOfMemory is returned by SlabNew when a pool's byte budget would be
// exceeded by the requested slab. It is the only recoverable error this
// package produces; everything else the allocators detect on top of it is a
// programming error and panics instead.
var ErrOutOfMemory = errors.New("mempool: out of memory")

// Pool is the accounting surface a slab.NodeAllocator or slab.VectorAllocator
// reports to. One Pool corresponds to one pool-index tag: every container
// instance sharing a tag shares the same counters.
type Pool interface {
	// SlabNew is called once a new slab has been carved out, whether it is
	// the allocator's permanent inline slab (heap=false) or a batch taken
	// from the heap (heap=true). contiguous is true only for vector-slab
	// buffers, which are a single contiguous allocation rather than a slab
	// of fixed-size slots.
	SlabNew(headerSize, slotSize, count int, heap, contiguous bool) error
	// SlabDelete undoes the accounting of a prior SlabNew. It is called
	// with heap=false exactly once, when the allocator owning the inline
	// slab is released.
	SlabDelete(headerSize, slotSize, count int, heap bool)
	// ItemAllocate records one slot moving from free to in-use.
	ItemAllocate(slotSize int)
	// ItemFree records one slot moving from in-use back to free.
	ItemFree(slotSize int)

	FreeBytes() int64
	FreeItems() int64
	InuseBytes() int64
	InuseItems() int64
	Slabs() int64

	fmt.Stringer
}

// memPool is the reference Pool implementation: a flat set of atomic
// counters, the same style z.NumAllocBytes and Metrics use in the teacher
// repo this module is patterned on.
type memPool struct {
	tag string

	freeBytes  int64
	freeItems  int64
	inuseBytes int64
	inuseItems int64
	slabs      int64

	// maxBytes caps the pool's total footprint (free+inuse). Zero means
	// unbounded. It exists purely so callers can deterministically exercise
	// the OutOfMemory path in tests, the way z.Buffer's maxSz bounds a
	// single buffer's growth.
	maxBytes int64
}

// NewPool creates a standalone accounting pool not tied to a Registry. Most
// callers should prefer Registry.Pool so that containers sharing a tag also
// share counters.
func NewPool(tag string) Pool {
	return &memPool{tag: tag}
}

// NewBoundedPool is like NewPool but fails SlabNew once the pool's footprint
// would exceed maxBytes.
func NewBoundedPool(tag string, maxBytes int64) Pool {
	return &memPool{tag: tag, maxBytes: maxBytes}
}

func (p *memPool) SlabNew(headerSize, slotSize, count int, heap, contiguous bool) error {
	bytes := int64(headerSize) + int64(slotSize)*int64(count)
	if p.maxBytes > 0 {
		free := atomic.LoadInt64(&p.freeBytes)
		inuse := atomic.LoadInt64(&p.inuseBytes)
		if free+inuse+bytes > p.maxBytes {
			return errors.Wrapf(ErrOutOfMemory, "pool %q: slab of %d bytes would exceed budget %d",
				p.tag, bytes, p.maxBytes)
		}
	}
	atomic.AddInt64(&p.freeBytes, bytes)
	atomic.AddInt64(&p.freeItems, int64(count))
	atomic.AddInt64(&p.slabs, 1)
	return nil
}

func (p *memPool) SlabDelete(headerSize, slotSize, count int, heap bool) {
	bytes := int64(headerSize) + int64(slotSize)*int64(count)
	atomic.AddInt64(&p.freeBytes, -bytes)
	atomic.AddInt64(&p.freeItems, -int64(count))
	atomic.AddInt64(&p.slabs, -1)
}

func (p *memPool) ItemAllocate(slotSize int) {
	atomic.AddInt64(&p.freeBytes, -int64(slotSize))
	atomic.AddInt64(&p.freeItems, -1)
	atomic.AddInt64(&p.inuseBytes, int64(slotSize))
	atomic.AddInt64(&p.inuseItems, 1)
}

func (p *memPool) ItemFree(slotSize int) {
	atomic.AddInt64(&p.inuseBytes, -int64(slotSize))
	atomic.AddInt64(&p.inuseItems, -1)
	atomic.AddInt64(&p.freeBytes, int64(slotSize))
	atomic.AddInt64(&p.freeItems, 1)
}

func (p *memPool) FreeBytes() int64  { return atomic.LoadInt64(&p.freeBytes) }
func (p *memPool) FreeItems() int64  { return atomic.LoadInt64(&p.freeItems) }
func (p *memPool) InuseBytes() int64 { return atomic.LoadInt64(&p.inuseBytes) }
func (p *memPool) InuseItems() int64 { return atomic.LoadInt64(&p.inuseItems) }
func (p *memPool) Slabs() int64      { return atomic.LoadInt64(&p.slabs) }

func (p *memPool) String() string {
	return fmt.Sprintf("pool(%s): inuse=%s/%d free=%s/%d slabs=%d",
		p.tag,
		humanize.IBytes(uint64(p.InuseBytes())), p.InuseItems(),
		humanize.IBytes(uint64(p.FreeBytes())), p.FreeItems(),
		p.Slabs())
}

// Registry hands out one Pool per tag, creating it on first use. Tags are
// hashed with xxhash to a stable pool-index the way spec.md describes "one
// pool per pool-index tag"; the hash is only used to key the map, callers
// never see it.
type Registry struct {
	mu    sync.Mutex
	pools map[uint64]Pool
	tags  map[uint64]string
}

// NewRegistry creates an empty pool registry.
func NewRegistry() *Registry {
	return &Registry{
		pools: make(map[uint64]Pool),
		tags:  make(map[uint64]string),
	}
}

// Pool returns the pool for tag, creating an unbounded one if this is the
// first time tag has been seen.
func (r *Registry) Pool(tag string) Pool {
	idx := xxhash.Sum64String(tag)
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pools[idx]; ok {
		if existing := r.tags[idx]; existing != tag {
			panic(fmt.Sprintf("mempool: pool-index collision between tags %q and %q", existing, tag))
		}
		return p
	}
	p := NewPool(tag)
	r.pools[idx] = p
	r.tags[idx] = tag
	return p
}

// Get returns the pool registered for tag, if any, without creating one.
func (r *Registry) Get(tag string) (Pool, bool) {
	idx := xxhash.Sum64String(tag)
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pools[idx]
	return p, ok
}

// Default is a process-wide registry. The container constructors in this
// module do not consult it: each of them takes an explicit mempool.Pool.
var Default = NewRegistry()
