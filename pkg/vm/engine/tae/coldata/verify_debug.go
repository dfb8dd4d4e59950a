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

//go:build coldebug

package coldata

import "github.com/zzl200012/coldata/pkg/common/moerr"

// Verify asserts the running-total invariants Collection.count,
// Segment.count and each chunk's own count must always agree on. It
// panics on mismatch rather than returning an error: every one of these
// can only drift from a coldata bug, never from caller input.
func (c *Collection) Verify() {
	total := 0
	for _, seg := range c.segments {
		segTotal := 0
		for _, ch := range seg.chunks {
			segTotal += ch.count
		}
		if segTotal != seg.count {
			panic(moerr.NewInternalErrorNoCtx("coldata: segment count %d disagrees with chunk total %d", seg.count, segTotal))
		}
		total += segTotal
	}
	if total != c.count {
		panic(moerr.NewInternalErrorNoCtx("coldata: collection count %d disagrees with segment total %d", c.count, total))
	}
}
