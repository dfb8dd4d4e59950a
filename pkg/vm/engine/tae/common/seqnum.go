// Copyright 2022 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package common carries the teacher's monotonic id-allocator idiom,
// repurposed here as coldata's block-id source (pkg/vm/engine/tae/coldata
// allocates a fresh blockID per AllocateBlock call through an
// IdAlloctor instead of the teacher's txn/object ids). The teacher's
// TxnIDAllocator (uuid-backed transaction ids) is dropped: this spec has
// no transactional isolation (spec.md §1 Non-goals), so there is nothing
// for a txn id to identify.
package common

import (
	"sync/atomic"
)

// IdAlloctor hands out a dense, monotonically increasing id sequence.
// coldata.Allocator embeds one per direct-allocator instance to assign
// blockIDs.
type IdAlloctor struct {
	id uint64
}

func NewIdAlloctor(from uint64) *IdAlloctor {
	if from == 0 {
		panic("should not be 0")
	}
	return &IdAlloctor{id: from - 1}
}

func (alloc *IdAlloctor) Alloc() uint64 {
	return atomic.AddUint64(&alloc.id, uint64(1))
}
