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
	"bytes"
	"fmt"

	"github.com/zzl200012/coldata/pkg/container/types"
	"github.com/zzl200012/coldata/pkg/container/vector"
)

func New(attrs []string) *Batch {
	return &Batch{
		Attrs: attrs,
		Vecs:  make([]*vector.Vector, len(attrs)),
	}
}

// NewWithSchema builds a Batch with freshly allocated, empty vectors for
// each column of ct, named by attrs (len(attrs) must equal len(ct)).
func NewWithSchema(attrs []string, ct []types.ColumnType) *Batch {
	bat := New(attrs)
	for i, t := range ct {
		bat.Vecs[i] = vector.NewVector(t)
	}
	return bat
}

func (bat *Batch) RowCount() int    { return bat.rowCount }
func (bat *Batch) VectorCount() int { return len(bat.Vecs) }

// SetRowCount is used once all of a Batch's vectors have had the same
// number of rows appended to them directly (the common pattern when
// building list/struct columns field-by-field).
func (bat *Batch) SetRowCount(n int) { bat.rowCount = n }

func (bat *Batch) AddRowCount(n int) { bat.rowCount += n }

func (bat *Batch) GetVector(pos int) *vector.Vector { return bat.Vecs[pos] }

func (bat *Batch) SetVector(pos int, vec *vector.Vector) { bat.Vecs[pos] = vec }

func (bat *Batch) Types() []types.ColumnType {
	out := make([]types.ColumnType, len(bat.Vecs))
	for i, v := range bat.Vecs {
		out[i] = v.Type()
	}
	return out
}

// GetSubBatch projects a subset of columns by name, matching the
// teacher's Batch.GetSubBatch.
func (bat *Batch) GetSubBatch(cols []string) *Batch {
	idx := make(map[string]int, len(bat.Attrs))
	for i, attr := range bat.Attrs {
		idx[attr] = i
	}
	rbat := New(cols)
	for i, col := range cols {
		rbat.Vecs[i] = bat.Vecs[idx[col]]
	}
	rbat.rowCount = bat.rowCount
	return rbat
}

func (bat *Batch) String() string {
	var buf bytes.Buffer
	for i, vec := range bat.Vecs {
		buf.WriteString(fmt.Sprintf("%d: %s\n", i, vec.String()))
	}
	return buf.String()
}
