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
)

func TestChunkIteratorStopsAtExhaustion(t *testing.T) {
	c := NewWithTypes(intSchema())
	require.NoError(t, c.AppendChunk(makeIntBatch(StandardVectorSize+10, false)))

	it := c.Chunks(nil)
	chunks := 0
	rows := 0
	for it.Next() {
		chunks++
		rows += it.Chunk().RowCount()
	}
	require.NoError(t, it.Err())
	assert.Equal(t, 2, chunks)
	assert.Equal(t, StandardVectorSize+10, rows)
}

func TestRowIteratorYieldsEveryRowInOrder(t *testing.T) {
	c := NewWithTypes(intSchema())
	require.NoError(t, c.AppendChunk(makeIntBatch(3, false)))

	it := c.Rows(nil)
	n := 0
	for it.Next() {
		assert.False(t, it.IsNull(0))
		assert.Equal(t, int32(n), it.Value(0))
		n++
	}
	require.NoError(t, it.Err())
	assert.Equal(t, 3, n)
}

func TestRowIteratorOnEmptyCollectionYieldsNoRows(t *testing.T) {
	c := NewWithTypes(intSchema())
	it := c.Rows(nil)
	assert.False(t, it.Next())
	require.NoError(t, it.Err())
}

func TestChunksWithColumnSubsetProjectsOnlyRequestedColumns(t *testing.T) {
	c := NewWithTypes(intSchema())
	require.NoError(t, c.AppendChunk(makeIntBatch(10, false)))

	it := c.Chunks([]int{1})
	require.True(t, it.Next())
	assert.Equal(t, 1, it.Chunk().VectorCount())
	require.NoError(t, it.Err())
}
