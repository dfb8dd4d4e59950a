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

package main

import (
	"context"
	"os"
	"runtime/pprof"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/zzl200012/coldata/pkg/common/logutil"
	"github.com/zzl200012/coldata/pkg/container/batch"
	"github.com/zzl200012/coldata/pkg/container/types"
	"github.com/zzl200012/coldata/pkg/container/vector"
	"github.com/zzl200012/coldata/pkg/vm/engine/tae/coldata"
)

var (
	cpuprofile = "/tmp/coldatabench/cpuprofile"
	memprofile = "/tmp/coldatabench/memprofile"
	batchCnt   = 200
	batchRows  = coldata.StandardVectorSize
	scanners   = 8
)

func init() {
	os.MkdirAll("/tmp/coldatabench", 0755)
}

func startProfile() {
	f, _ := os.Create(cpuprofile)
	pprof.StartCPUProfile(f)
}

func stopProfile() {
	pprof.StopCPUProfile()
	memf, _ := os.Create(memprofile)
	defer memf.Close()
	pprof.Lookup("heap").WriteTo(memf, 0)
}

func mockBatch(rows int) *batch.Batch {
	schema := []types.ColumnType{
		types.Scalar(types.T_int64),
		types.Scalar(types.T_varchar),
		types.List(types.Scalar(types.T_int32)),
	}
	bat := batch.NewWithSchema([]string{"id", "payload", "tags"}, schema)
	for i := 0; i < rows; i++ {
		vector.Append(bat.GetVector(0), int64(i))
		vector.AppendString(bat.GetVector(1), "benchmark payload row value")
		vector.AppendListRow(bat.GetVector(2), []int32{int32(i), int32(i + 1)})
	}
	bat.SetRowCount(rows)
	return bat
}

func main() {
	c := coldata.New()

	bats := make([]*batch.Batch, batchCnt)
	for i := range bats {
		bats[i] = mockBatch(batchRows)
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	doAppend := func(b *batch.Batch) func() {
		return func() {
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			if err := c.AppendChunk(b); err != nil {
				panic(err)
			}
		}
	}

	pool, err := ants.NewPool(scanners)
	if err != nil {
		panic(err)
	}
	defer pool.Release()

	now := time.Now()
	startProfile()
	for _, b := range bats {
		wg.Add(1)
		if err := pool.Submit(doAppend(b)); err != nil {
			panic(err)
		}
	}
	wg.Wait()
	stopProfile()
	logutil.Infof("append of %d rows across %d chunks takes: %s", c.Count(), c.ChunkCount(), time.Since(now))

	now = time.Now()
	var total int
	err = c.ScanWithWorkerPool(context.Background(), scanners, nil, func(bat *batch.Batch) error {
		mu.Lock()
		total += bat.RowCount()
		mu.Unlock()
		return nil
	})
	if err != nil {
		panic(err)
	}
	logutil.Infof("parallel scan of %d rows takes: %s", total, time.Since(now))
}
