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

// Package nulls wraps up functions for the manipulation of the bitmap
// library. A Vector uses Nulls to record which of its rows are NULL; you
// can think of Nulls as a growable bitmap addressed by row index.
package nulls

import (
	"fmt"

	"github.com/zzl200012/coldata/pkg/common/bitmap"
)

type Nulls struct {
	Np *bitmap.Bitmap
}

func newBitmap(size int) *bitmap.Bitmap {
	bm := bitmap.New()
	bm.InitWithSize(int64(size))
	return &bm
}

func (nsp *Nulls) Clone() *Nulls {
	if nsp == nil {
		return nil
	}
	if nsp.Np == nil {
		return &Nulls{Np: nil}
	}
	return &Nulls{
		Np: nsp.Np.Clone(),
	}
}

// Or performs union operation on Nulls nsp,m and stores the result in r.
func Or(nsp, m, r *Nulls) {
	if Ptr(nsp) == nil && Ptr(m) == nil {
		r.Np = nil
		return
	}
	r.Np = newBitmap(0)
	if Ptr(nsp) != nil {
		r.Np.Or(nsp.Np)
	}
	if Ptr(m) != nil {
		r.Np.Or(m.Np)
	}
}

func Reset(nsp *Nulls) {
	if nsp.Np != nil {
		nsp.Np.Reset()
	}
}

func NewWithSize(size int) *Nulls {
	return &Nulls{Np: newBitmap(size)}
}

func Build(size int, rows ...uint64) *Nulls {
	nsp := NewWithSize(size)
	Add(nsp, rows...)
	return nsp
}

// Any returns true if any bit in the Nulls is set.
func Any(nsp *Nulls) bool {
	if nsp == nil || nsp.Np == nil {
		return false
	}
	return !nsp.Np.IsEmpty()
}

func Ptr(nsp *Nulls) *uint64 {
	if nsp == nil || nsp.Np == nil {
		return nil
	}
	return nsp.Np.Ptr()
}

// Length returns the number of set bits in the Nulls.
func Length(nsp *Nulls) int {
	if nsp == nil || nsp.Np == nil {
		return 0
	}
	return nsp.Np.Count()
}

func String(nsp *Nulls) string {
	if nsp == nil || nsp.Np == nil {
		return "[]"
	}
	return fmt.Sprintf("%v", nsp.Np.ToArray())
}

func TryExpand(nsp *Nulls, size int) {
	if nsp.Np == nil {
		nsp.Np = newBitmap(size)
		return
	}
	nsp.Np.TryExpandWithSize(size)
}

// Contains returns true if row is set in the Nulls.
func Contains(nsp *Nulls, row uint64) bool {
	return nsp != nil && nsp.Np != nil && nsp.Np.Contains(row)
}

func Add(nsp *Nulls, rows ...uint64) {
	if len(rows) == 0 || nsp == nil {
		return
	}
	TryExpand(nsp, int(rows[len(rows)-1])+1)
	nsp.Np.AddMany(rows)
}

func AddRange(nsp *Nulls, start, end uint64) {
	TryExpand(nsp, int(end+1))
	nsp.Np.AddRange(start, end)
}

func Del(nsp *Nulls, rows ...uint64) {
	if nsp == nil || nsp.Np == nil {
		return
	}
	for _, row := range rows {
		nsp.Np.Remove(row)
	}
}

// Set performs union operation on Nulls nsp,m and stores the result in nsp.
func Set(nsp, m *Nulls) {
	if m != nil && m.Np != nil {
		if nsp.Np == nil {
			nsp.Np = newBitmap(0)
		}
		nsp.Np.Or(m.Np)
	}
}

func RemoveRange(nsp *Nulls, start, end uint64) {
	if nsp != nil && nsp.Np != nil {
		nsp.Np.RemoveRange(start, end)
	}
}

func (nsp *Nulls) Any() bool {
	if nsp == nil || nsp.Np == nil {
		return false
	}
	return !nsp.Np.IsEmpty()
}

func (nsp *Nulls) Set(row uint64) {
	TryExpand(nsp, int(row)+1)
	nsp.Np.Add(row)
}

func (nsp *Nulls) Contains(row uint64) bool {
	return nsp != nil && nsp.Np != nil && nsp.Np.Contains(row)
}

func (nsp *Nulls) Count() int {
	if nsp == nil || nsp.Np == nil {
		return 0
	}
	return nsp.Np.Count()
}

func (nsp *Nulls) Or(m *Nulls) *Nulls {
	switch {
	case m == nil || m.Np == nil:
		return nsp
	case nsp.Np == nil:
		return m
	default:
		nsp.Np.Or(m.Np)
		return nsp
	}
}

func (nsp *Nulls) IsSame(m *Nulls) bool {
	switch {
	case nsp == nil && m == nil:
		return true
	case (nsp == nil || nsp.Np == nil) && (m == nil || m.Np == nil):
		return true
	case nsp != nil && m != nil && nsp.Np != nil && m.Np != nil:
		return nsp.Np.IsSame(m.Np)
	default:
		return false
	}
}

func (nsp *Nulls) ToArray() []uint64 {
	if nsp == nil || nsp.Np == nil {
		return []uint64{}
	}
	return nsp.Np.ToArray()
}

func (nsp *Nulls) GetCardinality() int {
	if nsp == nil || nsp.Np == nil {
		return 0
	}
	return nsp.Np.Count()
}
