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
	"fmt"
	"sync"
	"unsafe"

	"github.com/RoaringBitmap/roaring"

	"github.com/zzl200012/coldata/pkg/common/moerr"
	"github.com/zzl200012/coldata/pkg/container/batch"
	"github.com/zzl200012/coldata/pkg/container/nulls"
	"github.com/zzl200012/coldata/pkg/container/types"
	"github.com/zzl200012/coldata/pkg/container/vector"
)

// vectorIndex names one vector descriptor inside a Segment's arena.
// Descriptors are identified by a dense integer index into Segment.vectors
// rather than a pointer, so a whole segment (and the chains within it) is
// relocatable and trivially movable by Collection.Combine.
type vectorIndex uint32

const invalidIndex = vectorIndex(^uint32(0))

// vectorMeta is one descriptor: a block of storage, a row count, and the
// two chain pointers spec.md §1/§3 describe — next_data for overflow
// within the same logical column, head identifying which descriptor
// started that chain (where a nested type's child_index actually lives,
// since only a chain's first descriptor carries one).
type vectorMeta struct {
	typ             types.Type
	block           blockID
	count           int
	nextData        vectorIndex
	head            vectorIndex
	validityTouched bool
}

// chunkMeta is one chunk: one descriptor-chain root per schema column,
// plus the row count every one of those chains agrees on.
type chunkMeta struct {
	roots []vectorIndex
	count int
}

// Heap is a segment's append-only byte arena for varchar values too long
// to inline into a Varlena. It never frees: per spec.md's Non-goals this
// is a scratch structure, not a long-lived store with compaction needs.
type Heap struct {
	mu    sync.Mutex
	blobs [][]byte
}

func NewHeap() *Heap { return &Heap{} }

// AddBlob stores bs (copying it) and returns a Varlena view over the
// result, inlining short values instead of touching the heap at all.
func (h *Heap) AddBlob(bs []byte) types.Varlena {
	if len(bs) <= types.VarlenaInlineLen {
		return types.NewInlineVarlena(bs)
	}
	owned := make([]byte, len(bs))
	copy(owned, bs)
	h.mu.Lock()
	h.blobs = append(h.blobs, owned)
	h.mu.Unlock()
	return types.NewHeapVarlena(owned)
}

func (h *Heap) BlobCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.blobs)
}

// Segment is one allocator-backed unit of storage: a growable arena of
// vector descriptors organized into chunks, plus the one Heap its
// varchar columns share. A Collection's row data lives entirely in its
// segments; Combine moves segments between collections without touching
// a single descriptor.
type Segment struct {
	alloc  *Allocator
	schema []types.ColumnType

	vectors      []*vectorMeta
	childIndices map[vectorIndex][]vectorIndex
	// compoundRoots tracks which descriptor indices are nesting roots
	// (have at least one child_index registered). AddChildIndex fills it;
	// nothing in the package reads it back, Verify included. RoaringBitmap is overkill for
	// the handful of roots a typical schema has, but it is the
	// membership-set structure this module's dependency pack offers, and
	// using it here keeps the arena's bookkeeping off a second
	// hand-rolled set type.
	compoundRoots *roaring.Bitmap

	chunks []*chunkMeta
	count  int

	heap *Heap
}

func NewSegment(alloc *Allocator, schema []types.ColumnType) *Segment {
	return &Segment{
		alloc:         alloc,
		schema:        schema,
		childIndices:  make(map[vectorIndex][]vectorIndex),
		compoundRoots: roaring.New(),
		heap:          NewHeap(),
	}
}

func (s *Segment) ChunkCount() int { return len(s.chunks) }
func (s *Segment) Count() int      { return s.count }

// AllocateVector reserves a fresh descriptor for typ, linking it onto
// predecessor's chain (via next_data) if predecessor is not invalidIndex,
// or starting a new chain (head == self) otherwise.
func (s *Segment) AllocateVector(typ types.Type, predecessor vectorIndex) (vectorIndex, error) {
	id, err := s.alloc.AllocateBlock(typ.Oid)
	if err != nil {
		return invalidIndex, err
	}
	idx := vectorIndex(len(s.vectors))
	vm := &vectorMeta{typ: typ, block: id, nextData: invalidIndex}
	if predecessor != invalidIndex {
		vm.head = s.vectors[predecessor].head
		s.vectors[predecessor].nextData = idx
	} else {
		vm.head = idx
	}
	s.vectors = append(s.vectors, vm)
	return idx, nil
}

// AddChildIndex registers child as one of parent's nested descriptors
// (the sole child for a list, the i-th field for a struct, in field
// order). Only ever called on a chain's head.
func (s *Segment) AddChildIndex(parent, child vectorIndex) {
	s.childIndices[parent] = append(s.childIndices[parent], child)
	s.compoundRoots.Add(uint32(parent))
}

func (s *Segment) GetChildIndex(parent vectorIndex, i int) vectorIndex {
	return s.childIndices[parent][i]
}

func (s *Segment) childCount(parent vectorIndex) int {
	return len(s.childIndices[parent])
}

// allocateVectorTree allocates one column's full descriptor tree: the
// root, and recursively, a root for each nested level (list's one child,
// struct's N fields).
func (s *Segment) allocateVectorTree(ct types.ColumnType) (vectorIndex, error) {
	idx, err := s.AllocateVector(ct.Typ, invalidIndex)
	if err != nil {
		return invalidIndex, err
	}
	switch ct.Typ.Oid {
	case types.T_list:
		childIdx, err := s.allocateVectorTree(*ct.Child)
		if err != nil {
			return invalidIndex, err
		}
		s.AddChildIndex(idx, childIdx)
	case types.T_struct:
		for _, f := range ct.Fields {
			childIdx, err := s.allocateVectorTree(f)
			if err != nil {
				return invalidIndex, err
			}
			s.AddChildIndex(idx, childIdx)
		}
	}
	return idx, nil
}

// AllocateNewChunk allocates one root descriptor tree per schema column
// and appends an empty chunkMeta tying them together.
func (s *Segment) AllocateNewChunk() (int, error) {
	roots := make([]vectorIndex, len(s.schema))
	for i, ct := range s.schema {
		idx, err := s.allocateVectorTree(ct)
		if err != nil {
			return -1, err
		}
		roots[i] = idx
	}
	s.chunks = append(s.chunks, &chunkMeta{roots: roots})
	return len(s.chunks) - 1, nil
}

func (s *Segment) chainTotalCount(root vectorIndex) int {
	total := 0
	cur := root
	for cur != invalidIndex {
		total += s.vectors[cur].count
		cur = s.vectors[cur].nextData
	}
	return total
}

func (s *Segment) lastInChain(root vectorIndex) vectorIndex {
	cur := root
	for s.vectors[cur].nextData != invalidIndex {
		cur = s.vectors[cur].nextData
	}
	return cur
}

// ensureValidity lazily marks every slot in cur's validity bitmap valid
// the first time cur is written to; setValid then flips individual bits
// for nulls as they are copied in. Every copy into a descriptor fills its
// bitmap this way, nulls or not; only a descriptor that was never written
// to stays untouched, and it is read back as "all valid".
func (s *Segment) ensureValidity(cs *ChunkState, idx vectorIndex) error {
	vm := s.vectors[idx]
	if vm.validityTouched {
		return nil
	}
	raw, err := s.alloc.GetDataPointer(cs, vm.block)
	if err != nil {
		return err
	}
	bits := validitySliceOf(raw)
	for i := range bits {
		bits[i] = ^uint64(0)
	}
	vm.validityTouched = true
	return nil
}

func setValid(bits []uint64, row int, valid bool) {
	if valid {
		bits[row>>6] |= 1 << uint(row&63)
	} else {
		bits[row>>6] &^= 1 << uint(row&63)
	}
}

func isValid(bits []uint64, row int) bool {
	return bits[row>>6]&(1<<uint(row&63)) != 0
}

// fixedSlice reinterprets a raw []byte block's data region as a typed
// slice. Safe because every FixedSizeT is pointer-free: the GC never
// needs to see through it.
func fixedSlice[T types.FixedSizeT](raw any) []T {
	data := raw.([]byte)
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), StandardVectorSize)
}

func validitySliceOf(raw any) []uint64 {
	switch b := raw.(type) {
	case []byte:
		tail := b[StandardVectorSize*types.MaxTypeSize:]
		return unsafe.Slice((*uint64)(unsafe.Pointer(&tail[0])), validityWords)
	case *varlenaBlock:
		return b.validity
	default:
		panic(fmt.Sprintf("coldata: validitySliceOf: unknown block kind %T", raw))
	}
}

func varlenaSliceOf(raw any) []types.Varlena {
	return raw.(*varlenaBlock).data
}

// ReadChunk rehydrates chunkIdx into a Batch, projecting columnIDs (nil
// means every column, in schema order).
func (s *Segment) ReadChunk(chunkIdx int, cs *ChunkState, columnIDs []int) (*batch.Batch, error) {
	chunk := s.chunks[chunkIdx]
	cols := columnIDs
	if cols == nil {
		cols = identityCols(len(s.schema))
	}
	attrs := make([]string, len(cols))
	for i, ci := range cols {
		attrs[i] = fmt.Sprintf("col%d", ci)
	}
	out := batch.New(attrs)
	for oi, ci := range cols {
		vec, err := s.readColumn(chunk.roots[ci], s.schema[ci], chunk.count, cs)
		if err != nil {
			return nil, err
		}
		out.SetVector(oi, vec)
	}
	out.SetRowCount(chunk.count)
	return out, nil
}

// FetchChunk is a convenience scan of one chunk with every column
// projected. Collection.FetchChunk maps a collection-wide chunk index to
// the owning segment and its local chunk index before calling this.
func (s *Segment) FetchChunk(chunkIdx int, cs *ChunkState) (*batch.Batch, error) {
	if chunkIdx < 0 || chunkIdx >= len(s.chunks) {
		return nil, moerr.NewOutOfRange(nil, "FetchChunk", "chunk index %d out of range [0,%d)", chunkIdx, len(s.chunks))
	}
	return s.ReadChunk(chunkIdx, cs, nil)
}

func identityCols(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func (s *Segment) readColumn(root vectorIndex, ct types.ColumnType, rowCount int, cs *ChunkState) (*vector.Vector, error) {
	switch ct.Typ.Oid {
	case types.T_varchar:
		return s.readVarcharChain(root, rowCount, cs)
	case types.T_list:
		return s.readListChain(root, ct, rowCount, cs)
	case types.T_struct:
		return s.readStructChain(root, ct, rowCount, cs)
	default:
		return s.readFixedChain(root, ct, rowCount, cs)
	}
}

func readFixed[T types.FixedSizeT](s *Segment, root vectorIndex, rowCount int, out *vector.Vector, cs *ChunkState) error {
	remaining := rowCount
	cur := root
	for remaining > 0 {
		vm := s.vectors[cur]
		raw, err := s.alloc.GetDataPointer(cs, vm.block)
		if err != nil {
			return err
		}
		data := fixedSlice[T](raw)
		bits := validitySliceOf(raw)
		n := min(vm.count, remaining)
		for i := 0; i < n; i++ {
			if vm.validityTouched && !isValid(bits, i) {
				vector.AppendNull(out)
			} else {
				vector.Append(out, data[i])
			}
		}
		remaining -= n
		if remaining > 0 {
			if vm.nextData == invalidIndex {
				return moerr.NewInternalErrorNoCtx("coldata: descriptor chain shorter than chunk row count")
			}
			cur = vm.nextData
		}
	}
	return nil
}

func (s *Segment) readFixedChain(root vectorIndex, ct types.ColumnType, rowCount int, cs *ChunkState) (*vector.Vector, error) {
	out := vector.NewVector(ct)
	var err error
	switch ct.Typ.Oid {
	case types.T_bool:
		err = readFixed[bool](s, root, rowCount, out, cs)
	case types.T_int8:
		err = readFixed[int8](s, root, rowCount, out, cs)
	case types.T_int16:
		err = readFixed[int16](s, root, rowCount, out, cs)
	case types.T_int32:
		err = readFixed[int32](s, root, rowCount, out, cs)
	case types.T_int64:
		err = readFixed[int64](s, root, rowCount, out, cs)
	case types.T_int128:
		err = readFixed[types.Int128](s, root, rowCount, out, cs)
	case types.T_uint8:
		err = readFixed[uint8](s, root, rowCount, out, cs)
	case types.T_uint16:
		err = readFixed[uint16](s, root, rowCount, out, cs)
	case types.T_uint32:
		err = readFixed[uint32](s, root, rowCount, out, cs)
	case types.T_uint64:
		err = readFixed[uint64](s, root, rowCount, out, cs)
	case types.T_float32:
		err = readFixed[float32](s, root, rowCount, out, cs)
	case types.T_float64:
		err = readFixed[float64](s, root, rowCount, out, cs)
	case types.T_interval:
		err = readFixed[types.Interval](s, root, rowCount, out, cs)
	default:
		return nil, moerr.NewInternalErrorNoCtx("coldata: unsupported physical type %v", ct.Typ.Oid)
	}
	return out, err
}

func (s *Segment) readVarcharChain(root vectorIndex, rowCount int, cs *ChunkState) (*vector.Vector, error) {
	out := vector.NewVector(types.Scalar(types.T_varchar))
	remaining := rowCount
	cur := root
	for remaining > 0 {
		vm := s.vectors[cur]
		raw, err := s.alloc.GetDataPointer(cs, vm.block)
		if err != nil {
			return nil, err
		}
		data := varlenaSliceOf(raw)
		bits := validitySliceOf(raw)
		n := min(vm.count, remaining)
		for i := 0; i < n; i++ {
			if vm.validityTouched && !isValid(bits, i) {
				vector.AppendNull(out)
			} else {
				vector.AppendBytes(out, data[i].GetByteSlice())
			}
		}
		remaining -= n
		if remaining > 0 {
			if vm.nextData == invalidIndex {
				return nil, moerr.NewInternalErrorNoCtx("coldata: descriptor chain shorter than chunk row count")
			}
			cur = vm.nextData
		}
	}
	return out, nil
}

// readValidityOnly walks a chain copying out only its null bitmap,
// for columns (struct roots) whose data lives entirely in their children.
func (s *Segment) readValidityOnly(root vectorIndex, rowCount int, cs *ChunkState) (*nulls.Nulls, error) {
	nsp := &nulls.Nulls{}
	remaining := rowCount
	pos := 0
	cur := root
	for remaining > 0 {
		vm := s.vectors[cur]
		raw, err := s.alloc.GetDataPointer(cs, vm.block)
		if err != nil {
			return nil, err
		}
		bits := validitySliceOf(raw)
		n := min(vm.count, remaining)
		if vm.validityTouched {
			for i := 0; i < n; i++ {
				if !isValid(bits, i) {
					nulls.Add(nsp, uint64(pos+i))
				}
			}
		}
		pos += n
		remaining -= n
		if remaining > 0 {
			cur = vm.nextData
		}
	}
	return nsp, nil
}

func (s *Segment) readListChain(root vectorIndex, ct types.ColumnType, rowCount int, cs *ChunkState) (*vector.Vector, error) {
	entries := make([]types.ListEntry, 0, rowCount)
	nsp := &nulls.Nulls{}
	remaining := rowCount
	pos := 0
	cur := root
	for remaining > 0 {
		vm := s.vectors[cur]
		raw, err := s.alloc.GetDataPointer(cs, vm.block)
		if err != nil {
			return nil, err
		}
		data := fixedSlice[types.ListEntry](raw)
		bits := validitySliceOf(raw)
		n := min(vm.count, remaining)
		for i := 0; i < n; i++ {
			if vm.validityTouched && !isValid(bits, i) {
				nulls.Add(nsp, uint64(pos+i))
				entries = append(entries, types.ListEntry{})
			} else {
				entries = append(entries, data[i])
			}
		}
		pos += n
		remaining -= n
		if remaining > 0 {
			if vm.nextData == invalidIndex {
				return nil, moerr.NewInternalErrorNoCtx("coldata: descriptor chain shorter than chunk row count")
			}
			cur = vm.nextData
		}
	}

	head := s.vectors[root].head
	childRoot := s.GetChildIndex(head, 0)
	childLen := s.chainTotalCount(childRoot)
	child, err := s.readColumn(childRoot, *ct.Child, childLen, cs)
	if err != nil {
		return nil, err
	}
	return vector.NewListVectorFrom(ct, entries, nsp, child), nil
}

func (s *Segment) readStructChain(root vectorIndex, ct types.ColumnType, rowCount int, cs *ChunkState) (*vector.Vector, error) {
	nsp, err := s.readValidityOnly(root, rowCount, cs)
	if err != nil {
		return nil, err
	}
	head := s.vectors[root].head
	fields := make([]*vector.Vector, len(ct.Fields))
	for i, f := range ct.Fields {
		fieldRoot := s.GetChildIndex(head, i)
		fv, err := s.readColumn(fieldRoot, f, rowCount, cs)
		if err != nil {
			return nil, err
		}
		fields[i] = fv
	}
	return vector.NewStructVectorFrom(ct, nsp, fields, rowCount), nil
}
