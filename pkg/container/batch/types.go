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

package batch

import (
	"github.com/zzl200012/coldata/pkg/container/vector"
)

// Batch is coldata's DataChunk: the unit callers Append to a Collection
// and get back from a Scan. Trimmed from the teacher's container.Batch —
// which also carries Aggs/Ht/AuxData for its role as the colexec
// pipeline's row-group currency — down to exactly what spec.md §2's data
// flow needs: a schema'd list of named vectors sharing one row count.
type Batch struct {
	Attrs []string
	Vecs  []*vector.Vector

	rowCount int
}
