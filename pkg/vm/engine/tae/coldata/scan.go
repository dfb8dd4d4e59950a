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

	"github.com/panjf2000/ants/v2"

	"github.com/zzl200012/coldata/pkg/container/batch"
)

// ScanProperties are the handful of scan-wide knobs spec.md §4.5 leaves
// room for; AllowZeroCopy documents intent for a future direct-buffer
// scan path and is not yet consulted anywhere.
type ScanProperties struct {
	AllowZeroCopy bool
}

// ScanState is serial scan's cursor: which segment/chunk comes next, the
// running row offset (currentRowIndex/nextRowIndex bracket the chunk
// Scan is about to return), and the pin cache backing whatever chunk was
// last read.
type ScanState struct {
	segmentIndex    int
	chunkIndex      int
	currentRowIndex int
	nextRowIndex    int
	columnIDs       []int
	cs              *ChunkState
	props           ScanProperties
}

func (c *Collection) InitializeScan(state *ScanState, columnIDs []int, props *ScanProperties) {
	*state = ScanState{columnIDs: columnIDs, cs: NewChunkState()}
	if props != nil {
		state.props = *props
	}
}

// nextScanIndex advances state past exhausted segments and returns the
// next (segment, chunk) pair to read, reporting whether the advance just
// crossed into a new segment (the caller's signal to drop its pin
// cache). The boolean ok is false once every segment is exhausted.
func (c *Collection) nextScanIndex(state *ScanState) (segIdx, chunkIdx int, crossedSegment, ok bool) {
	for {
		if state.segmentIndex >= len(c.segments) {
			return 0, 0, crossedSegment, false
		}
		seg := c.segments[state.segmentIndex]
		if state.chunkIndex >= seg.ChunkCount() {
			state.segmentIndex++
			state.chunkIndex = 0
			crossedSegment = true
			continue
		}
		segIdx, chunkIdx = state.segmentIndex, state.chunkIndex
		state.chunkIndex++
		state.currentRowIndex = state.nextRowIndex
		state.nextRowIndex += seg.chunks[chunkIdx].count
		return segIdx, chunkIdx, crossedSegment, true
	}
}

// Scan returns the next chunk, or ok==false once the collection is
// exhausted. Safe for a single goroutine to call repeatedly; concurrent
// callers want InitializeParallelScan/ScanParallel instead.
func (c *Collection) Scan(state *ScanState) (*batch.Batch, bool, error) {
	segIdx, chunkIdx, crossed, ok := c.nextScanIndex(state)
	if !ok {
		return nil, false, nil
	}
	if crossed {
		state.cs.Clear(c.alloc)
	}
	bat, err := c.segments[segIdx].ReadChunk(chunkIdx, state.cs, state.columnIDs)
	if err != nil {
		return nil, false, err
	}
	return bat, true, nil
}

// ParallelScanState is the one piece of state every worker in a parallel
// scan shares: the chunk-index cursor, guarded by a mutex that is held
// only long enough to pop the next (segment, chunk) pair.
type ParallelScanState struct {
	mu     sync.Mutex
	shared ScanState
}

func (c *Collection) InitializeParallelScan(state *ParallelScanState, columnIDs []int) {
	c.InitializeScan(&state.shared, columnIDs, nil)
}

// LocalScanState is one worker's private pin cache. Workers never share
// one: ReadChunk pins blocks into it without any locking, which is only
// safe because no two workers are ever handed the same chunk.
type LocalScanState struct {
	cs *ChunkState
}

func NewLocalScanState() *LocalScanState {
	return &LocalScanState{cs: NewChunkState()}
}

// ScanParallel is the work-stealing scan primitive: a worker takes shared's
// mutex just long enough to claim the next chunk index, then reads that
// chunk through its own local pin cache with no further synchronization.
func (c *Collection) ScanParallel(shared *ParallelScanState, local *LocalScanState) (*batch.Batch, bool, error) {
	shared.mu.Lock()
	segIdx, chunkIdx, crossed, ok := c.nextScanIndex(&shared.shared)
	columnIDs := shared.shared.columnIDs
	shared.mu.Unlock()
	if !ok {
		return nil, false, nil
	}
	if crossed {
		local.cs.Clear(c.alloc)
	}
	bat, err := c.segments[segIdx].ReadChunk(chunkIdx, local.cs, columnIDs)
	if err != nil {
		return nil, false, err
	}
	return bat, true, nil
}

// ScanWithWorkerPool drives a full parallel scan over an ants worker
// pool of size workers, invoking f once per chunk (from whichever worker
// claimed it — f must tolerate concurrent calls). It is the coldata-side
// counterpart to the teacher's ants.NewPool+sync.WaitGroup pattern for
// fanning a bounded amount of goroutine work across a fixed pool.
func (c *Collection) ScanWithWorkerPool(ctx context.Context, workers int, columnIDs []int, f func(*batch.Batch) error) error {
	var shared ParallelScanState
	c.InitializeParallelScan(&shared, columnIDs)

	pool, err := ants.NewPool(workers)
	if err != nil {
		return err
	}
	defer pool.Release()

	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	worker := func() {
		defer wg.Done()
		local := NewLocalScanState()
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			bat, ok, err := c.ScanParallel(&shared, local)
			if err != nil {
				errCh <- err
				return
			}
			if !ok {
				return
			}
			if err := f(bat); err != nil {
				errCh <- err
				return
			}
		}
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		if err := pool.Submit(worker); err != nil {
			wg.Done()
			return err
		}
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}
