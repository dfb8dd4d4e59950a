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
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zzl200012/coldata/pkg/container/batch"
)

func TestScanParallelCoversEveryRowExactlyOnce(t *testing.T) {
	c := NewWithTypes(intSchema())
	const rows = StandardVectorSize*3 + 17
	require.NoError(t, c.AppendChunk(makeIntBatch(rows, false)))

	var shared ParallelScanState
	c.InitializeParallelScan(&shared, nil)

	var mu sync.Mutex
	var wg sync.WaitGroup
	seen := make(map[int32]bool)
	worker := func() {
		defer wg.Done()
		local := NewLocalScanState()
		for {
			bat, ok, err := c.ScanParallel(&shared, local)
			require.NoError(t, err)
			if !ok {
				return
			}
			vals := bat.GetVector(0)
			mu.Lock()
			for i := 0; i < bat.RowCount(); i++ {
				v := vals.ValueAt(i).(int32)
				assert.False(t, seen[v], "row %d delivered twice", v)
				seen[v] = true
			}
			mu.Unlock()
		}
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go worker()
	}
	wg.Wait()
	assert.Equal(t, rows, len(seen))
}

func TestScanWithWorkerPoolVisitsAllChunks(t *testing.T) {
	c := NewWithTypes(intSchema())
	const rows = StandardVectorSize*2 + 3
	require.NoError(t, c.AppendChunk(makeIntBatch(rows, false)))

	var mu sync.Mutex
	total := 0
	err := c.ScanWithWorkerPool(context.Background(), 3, nil, func(bat *batch.Batch) error {
		mu.Lock()
		total += bat.RowCount()
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, rows, total)
}

func TestScanCrossesIntoCombinedSegment(t *testing.T) {
	a := NewWithTypes(intSchema())
	require.NoError(t, a.AppendChunk(makeIntBatch(5, false)))
	b := NewWithTypes(intSchema())
	require.NoError(t, b.AppendChunk(makeIntBatch(5, false)))
	require.NoError(t, a.Combine(b))
	require.Equal(t, 2, len(a.segments))

	var state ScanState
	a.InitializeScan(&state, nil, nil)
	_, ok, err := a.Scan(&state)
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = a.Scan(&state)
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = a.Scan(&state)
	require.NoError(t, err)
	assert.False(t, ok)
}
