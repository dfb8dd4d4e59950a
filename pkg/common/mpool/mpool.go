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

// Package mpool is the raw memory allocator behind coldata's
// direct-allocator mode (see the allocator component design: "direct
// allocator" backs every block with a resident heap buffer). It tracks
// high-water-mark and alloc/free counters per pool so a caller can budget
// memory across many collections sharing one MPool.
package mpool

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zzl200012/coldata/pkg/common/moerr"
)

type Stats struct {
	HighWaterMark atomic.Int64
	NumAlloc      atomic.Int64
	NumFree       atomic.Int64
	CurrBytes     atomic.Int64
}

// MPool is a tagged, optionally size-capped memory pool. maxSize <= 0
// means unbounded.
type MPool struct {
	tag     string
	maxSize int64
	flag    int
	detail  atomic.Bool

	mu sync.Mutex
	s  Stats
}

var (
	registryMu sync.Mutex
	registry   = map[string]*MPool{}
)

// NewMPool creates a new named pool. Matches the teacher's
// mpool.NewMPool(tag, maxSize, flag) signature; flag is reserved for
// future allocation-policy bits and currently unused.
func NewMPool(tag string, maxSize int64, flag int) (*MPool, error) {
	mp := &MPool{tag: tag, maxSize: maxSize, flag: flag}
	registryMu.Lock()
	registry[tag] = mp
	registryMu.Unlock()
	return mp, nil
}

// MustNewZero returns an unbounded, unnamed pool. Panics never happen in
// practice (there is no fallible step), but the name mirrors the
// teacher's MustNewZero so call sites read the same way.
func MustNewZero() *MPool {
	mp, _ := NewMPool(fmt.Sprintf("anon-%p", &struct{}{}), 0, 0)
	return mp
}

func DeleteMPool(mp *MPool) {
	if mp == nil {
		return
	}
	registryMu.Lock()
	delete(registry, mp.tag)
	registryMu.Unlock()
}

func (mp *MPool) EnableDetailRecording() {
	mp.detail.Store(true)
}

// Alloc returns a zeroed buffer of exactly size bytes.
func (mp *MPool) Alloc(size int) ([]byte, error) {
	if size < 0 {
		return nil, moerr.NewInvalidArg(nil, "size", size)
	}
	if mp.maxSize > 0 && mp.s.CurrBytes.Load()+int64(size) > mp.maxSize {
		return nil, moerr.NewOOM(nil)
	}
	buf := make([]byte, size)
	mp.s.NumAlloc.Add(1)
	nb := mp.s.CurrBytes.Add(int64(size))
	for {
		hw := mp.s.HighWaterMark.Load()
		if nb <= hw || mp.s.HighWaterMark.CompareAndSwap(hw, nb) {
			break
		}
	}
	return buf, nil
}

// Free releases a buffer previously returned by Alloc or Realloc.
func (mp *MPool) Free(buf []byte) {
	if buf == nil {
		return
	}
	mp.s.NumFree.Add(1)
	mp.s.CurrBytes.Add(-int64(cap(buf)))
}

// Realloc grows or shrinks buf to newSize, preserving the overlapping
// prefix and zero-filling any newly added tail, then frees the original.
func (mp *MPool) Realloc(buf []byte, newSize int) ([]byte, error) {
	nb, err := mp.Alloc(newSize)
	if err != nil {
		return nil, err
	}
	n := len(buf)
	if newSize < n {
		n = newSize
	}
	copy(nb, buf[:n])
	mp.Free(buf)
	return nb, nil
}

func (mp *MPool) CurrNB() int64 {
	return mp.s.CurrBytes.Load()
}

func (mp *MPool) Stats() *Stats {
	return &mp.s
}

func (mp *MPool) Tag() string {
	return mp.tag
}

// ReportMemUsage renders the HighWaterMark/CurrBytes counters for the
// named pool ("" and "global" behave the same as the teacher's report:
// an aggregate snapshot across every registered pool).
func ReportMemUsage(tag string) string {
	registryMu.Lock()
	defer registryMu.Unlock()
	if tag == "" || tag == "global" {
		var cur, hw int64
		for _, mp := range registry {
			cur += mp.s.CurrBytes.Load()
			hw += mp.s.HighWaterMark.Load()
		}
		return fmt.Sprintf("{\"curr\":%d,\"highwater\":%d}", cur, hw)
	}
	mp, ok := registry[tag]
	if !ok {
		return "{}"
	}
	return fmt.Sprintf("{\"tag\":%q,\"curr\":%d,\"highwater\":%d,\"numAlloc\":%d,\"numFree\":%d}",
		mp.tag, mp.s.CurrBytes.Load(), mp.s.HighWaterMark.Load(), mp.s.NumAlloc.Load(), mp.s.NumFree.Load())
}
