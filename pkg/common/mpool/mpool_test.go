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

package mpool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func BenchmarkMP(b *testing.B) {
	pool, err := NewMPool("bench-default", 0, 0)
	if err != nil {
		panic(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var wg sync.WaitGroup
		run := func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				buf, err := pool.Alloc(10)
				if err != nil {
					panic(err)
				}
				pool.Free(buf)
			}
		}
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go run()
		}
		wg.Wait()
	}
}

func TestMPool(t *testing.T) {
	m, err := NewMPool("test-mpool-small", 0, 0)
	require.True(t, err == nil, "new mpool failed %v", err)

	nalloc0 := m.Stats().NumAlloc.Load()
	nfree0 := m.Stats().NumFree.Load()
	require.True(t, nalloc0 == 0, "bad nalloc")
	require.True(t, nfree0 == 0, "bad nfree")

	for i := 1; i <= 1000; i++ {
		a, err := m.Alloc(i * 10)
		require.True(t, err == nil, "alloc failure, %v", err)
		require.True(t, len(a) == i*10, "allocation i size error")
		a[0] = 0xF0
		require.True(t, a[1] == 0, "allocation result not zeroed.")
		a[i*10-1] = 0xBA

		a, err = m.Realloc(a, i*20)
		require.True(t, err == nil, "realloc failure %v", err)
		require.True(t, len(a) == i*20, "allocation i size error")
		require.True(t, a[0] == 0xF0, "reallocation not copied")
		require.True(t, a[i*10-1] == 0xBA, "reallocation not copied")
		require.True(t, a[i*10] == 0, "reallocation not zeroed")
		require.True(t, a[i*20-1] == 0, "reallocation not zeroed")
		m.Free(a)
	}

	require.True(t, m.Stats().NumAlloc.Load()-m.Stats().NumFree.Load() == 0, "leak")
}

func TestMPoolCapped(t *testing.T) {
	m, err := NewMPool("test-mpool-capped", 64, 0)
	require.NoError(t, err)

	_, err = m.Alloc(32)
	require.NoError(t, err)
	_, err = m.Alloc(64)
	require.Error(t, err, "allocation beyond maxSize should fail")
}

func TestReportMemUsage(t *testing.T) {
	m, err := NewMPool("testjson", 0, 0)
	require.NoError(t, err)
	m.EnableDetailRecording()

	mem, err := m.Alloc(1000)
	require.NoError(t, err)

	require.NotEmpty(t, ReportMemUsage(""))
	require.NotEmpty(t, ReportMemUsage("global"))
	require.NotEmpty(t, ReportMemUsage("testjson"))

	m.Free(mem)
	DeleteMPool(m)
	require.Equal(t, "{}", ReportMemUsage("testjson"))
}

func TestMP(t *testing.T) {
	pool, err := NewMPool("default", 0, 0)
	if err != nil {
		panic(err)
	}
	var wg sync.WaitGroup
	run := func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			buf, err := pool.Alloc(10)
			if err != nil {
				panic(err)
			}
			pool.Free(buf)
		}
	}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go run()
	}
	wg.Wait()
}
