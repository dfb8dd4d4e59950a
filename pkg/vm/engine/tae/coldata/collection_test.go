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

	"github.com/zzl200012/coldata/pkg/container/batch"
	"github.com/zzl200012/coldata/pkg/container/nulls"
	"github.com/zzl200012/coldata/pkg/container/types"
	"github.com/zzl200012/coldata/pkg/container/vector"
)

func intSchema() []types.ColumnType {
	return []types.ColumnType{types.Scalar(types.T_int32), types.Scalar(types.T_int64)}
}

func makeIntBatch(rows int, withNulls bool) *batch.Batch {
	bat := batch.NewWithSchema([]string{"a", "b"}, intSchema())
	for i := 0; i < rows; i++ {
		if withNulls && i%5 == 0 {
			vector.AppendNull(bat.GetVector(0))
			vector.AppendNull(bat.GetVector(1))
			continue
		}
		vector.Append(bat.GetVector(0), int32(i))
		vector.Append(bat.GetVector(1), int64(i*10))
	}
	bat.SetRowCount(rows)
	return bat
}

func TestEmptyCollection(t *testing.T) {
	c := NewWithTypes(intSchema())
	assert.Equal(t, 0, c.Count())
	assert.Equal(t, 0, c.ChunkCount())

	var state ScanState
	c.InitializeScan(&state, nil, nil)
	_, ok, err := c.Scan(&state)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSingleChunkWithNulls(t *testing.T) {
	c := NewWithTypes(intSchema())
	bat := makeIntBatch(100, true)
	require.NoError(t, c.AppendChunk(bat))
	assert.Equal(t, 100, c.Count())
	assert.Equal(t, 1, c.ChunkCount())

	rows, err := c.GetRows()
	require.NoError(t, err)
	require.Equal(t, 100, rows.RowCount())
	for i := 0; i < 100; i++ {
		if i%5 == 0 {
			assert.True(t, rows.IsNull(i, 0), "row %d", i)
			continue
		}
		assert.False(t, rows.IsNull(i, 0))
		assert.Equal(t, int32(i), rows.Value(i, 0))
		assert.Equal(t, int64(i*10), rows.Value(i, 1))
	}
}

func TestOverflowToSecondChunk(t *testing.T) {
	for _, n := range []int{StandardVectorSize + 1, 1500} {
		c := NewWithTypes(intSchema())
		bat := makeIntBatch(n, false)
		require.NoError(t, c.AppendChunk(bat))
		assert.Equal(t, n, c.Count())

		rows, err := c.GetRows()
		require.NoError(t, err)
		require.Equal(t, n, rows.RowCount())
		for i := 0; i < n; i++ {
			assert.Equal(t, int32(i), rows.Value(i, 0))
		}
	}
}

func TestMixedInlineAndHeapStrings(t *testing.T) {
	schema := []types.ColumnType{types.Scalar(types.T_varchar)}
	c := NewWithTypes(schema)
	bat := batch.NewWithSchema([]string{"s"}, schema)

	values := []string{"short", "this is a long string that must spill to the segment heap", "", "also long enough to need the heap for sure"}
	for _, v := range values {
		vector.AppendString(bat.GetVector(0), v)
	}
	bat.SetRowCount(len(values))
	require.NoError(t, c.AppendChunk(bat))

	rows, err := c.GetRows()
	require.NoError(t, err)
	require.Equal(t, len(values), rows.RowCount())
	for i, v := range values {
		assert.Equal(t, v, rows.Value(i, 0))
	}
}

func TestListOfInt32(t *testing.T) {
	schema := []types.ColumnType{types.List(types.Scalar(types.T_int32))}
	c := NewWithTypes(schema)
	bat := batch.NewWithSchema([]string{"l"}, schema)

	lists := [][]int32{{1, 2, 3}, {}, {4}, {5, 6, 7, 8}}
	lv := bat.GetVector(0)
	for _, l := range lists {
		vector.AppendListRow(lv, l)
	}
	bat.SetRowCount(len(lists))
	require.NoError(t, c.AppendChunk(bat))

	rows, err := c.GetRows()
	require.NoError(t, err)
	require.Equal(t, len(lists), rows.RowCount())
	for i, l := range lists {
		got := rows.Value(i, 0).([]any)
		require.Len(t, got, len(l))
		for k, want := range l {
			assert.Equal(t, want, got[k])
		}
	}
}

func TestListOfInt32WithNullRows(t *testing.T) {
	schema := []types.ColumnType{types.List(types.Scalar(types.T_int32))}
	c := NewWithTypes(schema)
	bat := batch.NewWithSchema([]string{"l"}, schema)

	lv := bat.GetVector(0)
	vector.AppendListRow(lv, []int32{1, 2})
	vector.AppendNull(lv)
	vector.AppendListRow(lv, []int32{3})
	bat.SetRowCount(3)
	require.NoError(t, c.AppendChunk(bat))

	rows, err := c.GetRows()
	require.NoError(t, err)
	assert.False(t, rows.IsNull(0, 0))
	assert.True(t, rows.IsNull(1, 0))
	assert.False(t, rows.IsNull(2, 0))
}

func TestCombineMovesSegmentsNotRows(t *testing.T) {
	a := NewWithTypes(intSchema())
	require.NoError(t, a.AppendChunk(makeIntBatch(10, false)))
	b := NewWithTypes(intSchema())
	require.NoError(t, b.AppendChunk(makeIntBatch(20, false)))

	require.NoError(t, a.Combine(b))
	assert.Equal(t, 30, a.Count())
	assert.Equal(t, 0, b.Count())
	assert.Equal(t, 0, len(b.segments))

	emptyRows, err := b.GetRows()
	require.NoError(t, err)
	assert.Equal(t, 0, emptyRows.RowCount())
}

func TestCombineIntoItselfErrors(t *testing.T) {
	a := NewWithTypes(intSchema())
	require.Error(t, a.Combine(a))
}

func TestAppendAfterCombineOnSourceFails(t *testing.T) {
	a := NewWithTypes(intSchema())
	b := NewWithTypes(intSchema())
	require.NoError(t, b.AppendChunk(makeIntBatch(5, false)))
	require.NoError(t, a.Combine(b))

	var state AppendState
	require.Error(t, b.InitializeAppend(&state))
}

func TestResultEqualsAndItsFixedNullComparisonBug(t *testing.T) {
	left := NewWithTypes(intSchema())
	right := NewWithTypes(intSchema())
	require.NoError(t, left.AppendChunk(makeIntBatch(50, true)))
	require.NoError(t, right.AppendChunk(makeIntBatch(50, true)))

	ok, msg := ResultEquals(left, right)
	assert.True(t, ok, msg)

	diverged := NewWithTypes(intSchema())
	bat := makeIntBatch(50, true)
	// Flip one non-null value on the right side only, and confirm
	// ResultEquals actually reads rightRows (not left twice) when
	// deciding the verdict: a bug that always compared leftRows against
	// itself would report "equal" here.
	vector.MustFixedCol[int32](bat.GetVector(0))[1] = 999999
	require.NoError(t, diverged.AppendChunk(bat))
	ok, _ = ResultEquals(left, diverged)
	assert.False(t, ok)
}

func TestSchemaFixedAtFirstAppend(t *testing.T) {
	c := New()
	require.NoError(t, c.AppendChunk(makeIntBatch(5, false)))
	assert.Equal(t, intSchema(), c.Types())

	mismatched := batch.NewWithSchema([]string{"x"}, []types.ColumnType{types.Scalar(types.T_varchar)})
	vector.AppendString(mismatched.GetVector(0), "nope")
	mismatched.SetRowCount(1)
	require.Error(t, c.AppendChunk(mismatched))
}

func TestStructColumn(t *testing.T) {
	schema := []types.ColumnType{types.Struct(
		types.ColumnType{Typ: types.Type{Oid: types.T_int32}, Name: "x"},
		types.ColumnType{Typ: types.Type{Oid: types.T_varchar}, Name: "y"},
	)}
	c := NewWithTypes(schema)
	bat := batch.NewWithSchema([]string{"s"}, schema)
	sv := bat.GetVector(0)
	fields := sv.Children()

	for i := 0; i < 5; i++ {
		if i == 2 {
			vector.AppendNull(fields[0])
			vector.AppendNull(fields[1])
			sv.AppendStructRow(true)
			continue
		}
		vector.Append(fields[0], int32(i))
		vector.AppendString(fields[1], "v")
		sv.AppendStructRow(false)
	}
	bat.SetRowCount(5)
	require.NoError(t, c.AppendChunk(bat))

	rows, err := c.GetRows()
	require.NoError(t, err)
	assert.True(t, rows.IsNull(2, 0))
	v := rows.Value(0, 0).([]any)
	assert.Equal(t, int32(0), v[0])
	assert.Equal(t, "v", v[1])
}

func TestFetchChunkMapsGlobalIndexAcrossSegments(t *testing.T) {
	a := NewWithTypes(intSchema())
	require.NoError(t, a.AppendChunk(makeIntBatch(StandardVectorSize+1, false)))
	b := NewWithTypes(intSchema())
	require.NoError(t, b.AppendChunk(makeIntBatch(5, false)))
	require.NoError(t, a.Combine(b))
	require.Equal(t, 3, a.ChunkCount())

	cs := NewChunkState()
	bat, err := a.FetchChunk(0, cs)
	require.NoError(t, err)
	assert.Equal(t, StandardVectorSize, bat.RowCount())
	assert.Equal(t, int32(0), vector.MustFixedCol[int32](bat.GetVector(0))[0])

	bat, err = a.FetchChunk(1, cs)
	require.NoError(t, err)
	assert.Equal(t, 1, bat.RowCount())
	assert.Equal(t, int32(StandardVectorSize), vector.MustFixedCol[int32](bat.GetVector(0))[0])

	bat, err = a.FetchChunk(2, cs)
	require.NoError(t, err)
	assert.Equal(t, 5, bat.RowCount())
	assert.Equal(t, int32(0), vector.MustFixedCol[int32](bat.GetVector(0))[0])

	_, err = a.FetchChunk(3, cs)
	require.Error(t, err)
	_, err = a.FetchChunk(-1, cs)
	require.Error(t, err)
}

func TestVerifyNoopWithoutDebugTag(t *testing.T) {
	c := NewWithTypes(intSchema())
	require.NoError(t, c.AppendChunk(makeIntBatch(10, false)))
	c.Verify() // no-op build; must not panic
}

func TestNullsHelperSanity(t *testing.T) {
	// Regression guard for the Nulls wrapper coldata's copy functions
	// depend on: a freshly zero-value Nulls reports every row non-null.
	nsp := &nulls.Nulls{}
	assert.False(t, nulls.Contains(nsp, 0))
	nulls.Add(nsp, 3)
	assert.True(t, nulls.Contains(nsp, 3))
	assert.False(t, nulls.Contains(nsp, 0))
}
