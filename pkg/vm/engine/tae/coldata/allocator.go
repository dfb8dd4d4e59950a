// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package coldata

import (
	"sync"

	"github.com/zzl200012/coldata/pkg/common/moerr"
	"github.com/zzl200012/coldata/pkg/common/mpool"
	tcommon "github.com/zzl200012/coldata/pkg/vm/engine/tae/common"

	"github.com/zzl200012/coldata/pkg/container/types"
)

// blockID names one allocator-owned unit of storage, exactly large enough
// to hold one vector descriptor's worth of data plus its validity
// bitmap. A Segment hands out one per AllocateVector call.
type blockID int64

const invalidBlockID blockID = -1

// varlenaBlock is the varchar block representation: a plain Go slice of
// Varlena (which itself may hold a slice pointing into a Heap-owned
// backing array), kept out of the raw []byte path used for every other
// physical type. Reinterpreting a pointer-bearing struct over raw memory
// obtained from mpool would hide that pointer from the garbage collector
// (a []byte block is scanned as opaque, pointer-free memory) — so varchar
// gets its own block kind instead of an unsafe cast trick.
type varlenaBlock struct {
	data     []types.Varlena
	validity []uint64
}

// BufferManager is the pluggable backing store behind a buffer-manager
// mode Allocator: AllocateBlock reserves a fresh block, Pin/Unpin bound
// how much is resident at once. InMemoryBufferManager is the reference
// implementation; a caller wanting spill-to-disk or a shared process-wide
// budget supplies their own.
type BufferManager interface {
	AllocateBlock(oid types.T) (blockID, error)
	Pin(id blockID) (any, error)
	Unpin(id blockID)
}

// blockHandle is one pinned entry in a ChunkState's local cache.
type blockHandle struct {
	id  blockID
	raw any
}

// ChunkState is the per-scan (or per-append) pin cache spec.md §4.1 and
// §4.5 both reference: GetDataPointer consults it before asking the
// allocator to resolve a blockID, and Clear drops every entry, which
// under a buffer-manager Allocator also unpins the underlying blocks.
// Bounding a ChunkState's lifetime to one chunk (or resetting it at
// segment boundaries during a scan) is what keeps a long scan's working
// set from growing without bound.
type ChunkState struct {
	handles map[blockID]*blockHandle
}

func NewChunkState() *ChunkState {
	return &ChunkState{handles: make(map[blockID]*blockHandle)}
}

func (cs *ChunkState) Clear(a *Allocator) {
	if !a.direct {
		for id := range cs.handles {
			a.bm.Unpin(id)
		}
	}
	cs.handles = make(map[blockID]*blockHandle)
}

// Allocator is coldata's memory source. In direct mode it owns every
// block for the collection's lifetime (backed by an mpool.MPool, so
// usage is visible through the teacher's ReportMemUsage machinery); in
// buffer-manager mode it defers to a caller-supplied BufferManager and
// every read must go through GetDataPointer's pin/cache path.
type Allocator struct {
	direct bool

	pool *mpool.MPool
	ids  *tcommon.IdAlloctor

	mu     sync.Mutex
	blocks map[blockID]any

	bm BufferManager
}

func NewDirectAllocator(pool *mpool.MPool) *Allocator {
	return &Allocator{
		direct: true,
		pool:   pool,
		ids:    tcommon.NewIdAlloctor(1),
		blocks: make(map[blockID]any),
	}
}

func NewBufferManagerAllocator(bm BufferManager) *Allocator {
	return &Allocator{direct: false, bm: bm}
}

func (a *Allocator) AllocateBlock(oid types.T) (blockID, error) {
	if !a.direct {
		return a.bm.AllocateBlock(oid)
	}
	id := blockID(a.ids.Alloc())
	raw, err := newDirectBlock(a.pool, oid)
	if err != nil {
		return invalidBlockID, err
	}
	a.mu.Lock()
	a.blocks[id] = raw
	a.mu.Unlock()
	return id, nil
}

func newDirectBlock(pool *mpool.MPool, oid types.T) (any, error) {
	if oid == types.T_varchar {
		return &varlenaBlock{
			data:     make([]types.Varlena, StandardVectorSize),
			validity: make([]uint64, validityWords),
		}, nil
	}
	buf, err := pool.Alloc(blockByteSize)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// GetDataPointer resolves id to its backing storage ([]byte for every
// fixed-width physical type, *varlenaBlock for varchar), pinning it into
// cs if it is not already cached there.
func (a *Allocator) GetDataPointer(cs *ChunkState, id blockID) (any, error) {
	if h, ok := cs.handles[id]; ok {
		return h.raw, nil
	}
	var raw any
	var err error
	if a.direct {
		a.mu.Lock()
		raw = a.blocks[id]
		a.mu.Unlock()
		if raw == nil {
			return nil, moerr.NewInternalErrorNoCtx("coldata: unknown block %d", id)
		}
	} else {
		raw, err = a.bm.Pin(id)
		if err != nil {
			return nil, err
		}
	}
	cs.handles[id] = &blockHandle{id: id, raw: raw}
	return raw, nil
}

// InMemoryBufferManager is the reference BufferManager: every block lives
// in a plain map for the process lifetime, with Pin refusing to exceed a
// fixed count of simultaneously-pinned blocks. It has no eviction policy
// beyond that refusal — a caller who needs spill-to-disk or LRU eviction
// supplies their own BufferManager; this one exists to exercise the
// Allocator's buffer-manager mode end to end.
type InMemoryBufferManager struct {
	mu       sync.Mutex
	capacity int
	ids      *tcommon.IdAlloctor
	pool     *mpool.MPool
	blocks   map[blockID]any
	pinned   map[blockID]bool
}

func NewInMemoryBufferManager(capacity int) *InMemoryBufferManager {
	return &InMemoryBufferManager{
		capacity: capacity,
		ids:      tcommon.NewIdAlloctor(1),
		pool:     mpool.MustNewZero(),
		blocks:   make(map[blockID]any),
		pinned:   make(map[blockID]bool),
	}
}

func (m *InMemoryBufferManager) AllocateBlock(oid types.T) (blockID, error) {
	id := blockID(m.ids.Alloc())
	raw, err := newDirectBlock(m.pool, oid)
	if err != nil {
		return invalidBlockID, err
	}
	m.mu.Lock()
	m.blocks[id] = raw
	m.mu.Unlock()
	return id, nil
}

func (m *InMemoryBufferManager) Pin(id blockID) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.pinned[id] && len(m.pinned) >= m.capacity {
		return nil, moerr.NewOOM(nil)
	}
	m.pinned[id] = true
	return m.blocks[id], nil
}

func (m *InMemoryBufferManager) Unpin(id blockID) {
	m.mu.Lock()
	delete(m.pinned, id)
	m.mu.Unlock()
}
