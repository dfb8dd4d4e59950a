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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zzl200012/coldata/pkg/common/mpool"
	"github.com/zzl200012/coldata/pkg/container/types"
)

func TestAllocateVectorTreeShapesMatchSchema(t *testing.T) {
	alloc := NewDirectAllocator(mpool.MustNewZero())
	schema := []types.ColumnType{
		types.Scalar(types.T_int32),
		types.List(types.Scalar(types.T_int64)),
		types.Struct(
			types.ColumnType{Typ: types.Type{Oid: types.T_bool}},
			types.ColumnType{Typ: types.Type{Oid: types.T_varchar}},
		),
	}
	seg := NewSegment(alloc, schema)
	chunkIdx, err := seg.AllocateNewChunk()
	require.NoError(t, err)
	require.Equal(t, 0, chunkIdx)

	roots := seg.chunks[0].roots
	require.Len(t, roots, 3)
	assert.Equal(t, 0, seg.childCount(roots[0])) // scalar: no children
	assert.Equal(t, 1, seg.childCount(roots[1])) // list: one child
	assert.Equal(t, 2, seg.childCount(roots[2])) // struct: two fields
}

func TestOverflowAllocatesNewDescriptorNotNewChunk(t *testing.T) {
	alloc := NewDirectAllocator(mpool.MustNewZero())
	seg := NewSegment(alloc, []types.ColumnType{types.Scalar(types.T_int32)})
	chunkIdx, err := seg.AllocateNewChunk()
	require.NoError(t, err)
	root := seg.chunks[chunkIdx].roots[0]

	next, err := seg.AllocateVector(types.Type{Oid: types.T_int32}, root)
	require.NoError(t, err)
	assert.NotEqual(t, root, next)
	assert.Equal(t, next, seg.vectors[root].nextData)
	assert.Equal(t, root, seg.vectors[next].head)
	// Overflow never creates a second chunk by itself.
	assert.Equal(t, 1, seg.ChunkCount())
}

func TestInMemoryBufferManagerEnforcesPinLimit(t *testing.T) {
	bm := NewInMemoryBufferManager(1)
	alloc := NewBufferManagerAllocator(bm)
	seg := NewSegment(alloc, []types.ColumnType{types.Scalar(types.T_int32), types.Scalar(types.T_int32)})
	_, err := seg.AllocateNewChunk()
	require.NoError(t, err)

	cs := NewChunkState()
	_, err = alloc.GetDataPointer(cs, seg.vectors[seg.chunks[0].roots[0]].block)
	require.NoError(t, err)
	// A second distinct pin while the first is still held exceeds capacity 1.
	_, err = alloc.GetDataPointer(cs, seg.vectors[seg.chunks[0].roots[1]].block)
	require.Error(t, err)

	cs.Clear(alloc)
	_, err = alloc.GetDataPointer(cs, seg.vectors[seg.chunks[0].roots[1]].block)
	require.NoError(t, err)
}

func TestHeapInlinesShortAndCopiesLongBlobs(t *testing.T) {
	h := NewHeap()
	short := h.AddBlob([]byte("hi"))
	assert.True(t, short.IsInline())
	assert.Equal(t, 0, h.BlobCount())

	long := h.AddBlob([]byte("this value is definitely longer than twelve bytes"))
	assert.False(t, long.IsInline())
	assert.Equal(t, 1, h.BlobCount())
	assert.Equal(t, "this value is definitely longer than twelve bytes", long.GetString())
}
