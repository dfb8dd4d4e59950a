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

// Package coldata is an in-memory, append-only, chunked columnar buffer:
// a scratch structure for holding intermediate query results that does
// not fit a query engine's persistent storage format. It is organized,
// from the bottom up, as Allocator (raw memory), Segment (descriptor-level
// layout of one memory unit), Collection (the public append/scan API a
// caller uses), and the iteration helpers built on top of Scan.
package coldata

import "github.com/zzl200012/coldata/pkg/container/types"

// StandardVectorSize bounds both how many rows a chunk holds and how many
// elements a single vector descriptor's data region holds before the
// append driver must overflow into a new descriptor.
const StandardVectorSize = 2048

const (
	validityWords = (StandardVectorSize + 63) / 64
	validityBytes = validityWords * 8
	// blockByteSize is the fixed size every raw, non-varchar block is
	// allocated at: one standard vector's worth of the widest fixed
	// physical type, plus its validity bitmap.
	blockByteSize = StandardVectorSize*types.MaxTypeSize + validityBytes
)
