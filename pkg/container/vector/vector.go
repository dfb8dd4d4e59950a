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

// Package vector is the generic Vector value container spec.md §1 and §6
// name as an external collaborator: the in-memory column a caller builds
// a DataChunk out of before handing it to coldata.Collection.Append, and
// the shape coldata.Collection.Scan hands back. It also produces the
// UnifiedVectorFormat projection (selection vector + validity + data)
// coldata's append driver captures once per column, and implements
// Flatten, the normalization step spec.md §4.4 requires before a complex
// column can be captured.
//
// Trimmed relative to the teacher's own container/vector: there is no
// dictionary encoding, no on-disk marshalling, no arithmetic/cast
// surface — those all belong to collaborators spec.md §1 declares out of
// scope. What is added relative to the teacher is first-class nesting
// (Child for list, Children for struct), which the teacher's flat,
// decimal/date-heavy Vector has no equivalent of.
package vector

import (
	"fmt"

	"github.com/zzl200012/coldata/pkg/common/moerr"
	"github.com/zzl200012/coldata/pkg/container/nulls"
	"github.com/zzl200012/coldata/pkg/container/types"
)

// class mirrors the teacher's FLAT/CONSTANT/DIST trio, minus DIST:
// coldata's append driver requires complex columns be neither dictionary
// nor constant encoded (spec.md §4.4), and scalar columns only ever need
// the other two to exercise Flatten.
const (
	FLAT     = iota
	CONSTANT
)

// Vector represents one column: either a scalar with a typed backing
// slice, a list with a single child Vector, or a struct with one child
// Vector per field.
type Vector struct {
	class  int
	typ    types.ColumnType
	nsp    *nulls.Nulls
	length int

	col any // scalar/list: typed slice ([]T or []types.Varlena or []types.ListEntry)

	child    *Vector   // list only
	children []*Vector // struct only
}

func NewVector(ct types.ColumnType) *Vector {
	v := &Vector{typ: ct, class: FLAT, nsp: &nulls.Nulls{}}
	switch ct.Typ.Oid {
	case types.T_list:
		v.col = []types.ListEntry{}
		v.child = NewVector(*ct.Child)
	case types.T_struct:
		v.children = make([]*Vector, len(ct.Fields))
		for i, f := range ct.Fields {
			v.children[i] = NewVector(f)
		}
	default:
		v.col = newTypedSlice(ct.Typ.Oid)
	}
	return v
}

func newTypedSlice(oid types.T) any {
	switch oid {
	case types.T_bool:
		return []bool{}
	case types.T_int8:
		return []int8{}
	case types.T_int16:
		return []int16{}
	case types.T_int32:
		return []int32{}
	case types.T_int64:
		return []int64{}
	case types.T_int128:
		return []types.Int128{}
	case types.T_uint8:
		return []uint8{}
	case types.T_uint16:
		return []uint16{}
	case types.T_uint32:
		return []uint32{}
	case types.T_uint64:
		return []uint64{}
	case types.T_float32:
		return []float32{}
	case types.T_float64:
		return []float64{}
	case types.T_interval:
		return []types.Interval{}
	case types.T_varchar:
		return []types.Varlena{}
	default:
		panic(moerr.NewInternalErrorNoCtx("vector: unsupported physical type %v", oid))
	}
}

func (v *Vector) Type() types.ColumnType { return v.typ }
func (v *Vector) Length() int            { return v.length }
func (v *Vector) SetLength(n int)        { v.length = n }
func (v *Vector) IsConst() bool          { return v.class == CONSTANT }
func (v *Vector) GetNulls() *nulls.Nulls { return v.nsp }
func (v *Vector) SetNulls(n *nulls.Nulls) { v.nsp = n }
func (v *Vector) Child() *Vector         { return v.child }
func (v *Vector) Children() []*Vector    { return v.children }

// MustFixedCol returns the physical backing slice for a scalar or list
// column (list columns store []types.ListEntry); it panics — matching
// the teacher's MustTCols — if T does not match the vector's physical
// type, since that is always a programmer error.
func MustFixedCol[T types.FixedSizeT](v *Vector) []T {
	return v.col.([]T)
}

func MustVarlenaCol(v *Vector) []types.Varlena {
	return v.col.([]types.Varlena)
}

func (v *Vector) GetBytes(i int) []byte {
	if v.IsConst() {
		i = 0
	}
	return MustVarlenaCol(v)[i].GetByteSlice()
}

func (v *Vector) GetString(i int) string {
	if v.IsConst() {
		i = 0
	}
	return MustVarlenaCol(v)[i].GetString()
}

// Append appends one non-null value to a scalar column.
func Append[T types.FixedSizeT](v *Vector, val T) {
	col := v.col.([]T)
	v.col = append(col, val)
	v.length++
}

// AppendNull appends one null value (a zero slot plus a flipped
// validity bit) to a scalar or list column.
func AppendNull(v *Vector) {
	switch v.typ.Typ.Oid {
	case types.T_varchar:
		col := v.col.([]types.Varlena)
		v.col = append(col, types.Varlena{})
	case types.T_list:
		col := v.col.([]types.ListEntry)
		v.col = append(col, types.ListEntry{Offset: int64(v.child.Length()), Length: 0})
	default:
		appendZero(v)
	}
	nulls.Add(v.nsp, uint64(v.length))
	v.length++
}

func appendZero(v *Vector) {
	switch col := v.col.(type) {
	case []bool:
		v.col = append(col, false)
	case []int8:
		v.col = append(col, 0)
	case []int16:
		v.col = append(col, 0)
	case []int32:
		v.col = append(col, 0)
	case []int64:
		v.col = append(col, 0)
	case []types.Int128:
		v.col = append(col, types.Int128{})
	case []uint8:
		v.col = append(col, 0)
	case []uint16:
		v.col = append(col, 0)
	case []uint32:
		v.col = append(col, 0)
	case []uint64:
		v.col = append(col, 0)
	case []float32:
		v.col = append(col, 0)
	case []float64:
		v.col = append(col, 0)
	case []types.Interval:
		v.col = append(col, types.Interval{})
	default:
		panic(fmt.Sprintf("vector: appendZero unsupported for %T", col))
	}
}

// AppendBytes appends one non-null varchar value, inlining it when it
// fits and otherwise giving it its own backing array (the source vector
// has no shared heap of its own — that is coldata's segment Heap's job
// once the value is actually copied into a collection).
func AppendBytes(v *Vector, bs []byte) {
	col := v.col.([]types.Varlena)
	var va types.Varlena
	if len(bs) <= types.VarlenaInlineLen {
		va = types.NewInlineVarlena(bs)
	} else {
		owned := make([]byte, len(bs))
		copy(owned, bs)
		va = types.NewHeapVarlena(owned)
	}
	v.col = append(col, va)
	v.length++
}

func AppendString(v *Vector, s string) {
	AppendBytes(v, []byte(s))
}

// AppendListRow appends one list-typed row: vals (possibly empty) are
// appended to the child vector first, then a ListEntry recording their
// position is appended to this vector's own column.
func AppendListRow[T types.FixedSizeT](v *Vector, vals []T) {
	start := v.child.Length()
	for _, val := range vals {
		Append(v.child, val)
	}
	col := v.col.([]types.ListEntry)
	v.col = append(col, types.ListEntry{Offset: int64(start), Length: int64(len(vals))})
	v.length++
}

// AppendStringListRow is AppendListRow for a varchar child.
func AppendStringListRow(v *Vector, vals []string) {
	start := v.child.Length()
	for _, val := range vals {
		AppendString(v.child, val)
	}
	col := v.col.([]types.ListEntry)
	v.col = append(col, types.ListEntry{Offset: int64(start), Length: int64(len(vals))})
	v.length++
}

// AppendStructRow bumps this struct vector's own row bookkeeping.
// Callers append the row's field values to v.Children()[i] themselves,
// in lockstep, before calling this — matching spec.md §4.1's "parallel
// child descent": the struct vector's own descriptor carries nothing
// but validity, so its only job here is the row count and null bit.
func (v *Vector) AppendStructRow(isNull bool) {
	if isNull {
		nulls.Add(v.nsp, uint64(v.length))
	}
	v.length++
}

// NewConst builds a length-n constant scalar vector, used by tests (and
// any caller) to exercise Flatten.
func NewConst[T types.FixedSizeT](ct types.ColumnType, val T, isNull bool, n int) *Vector {
	v := NewVector(ct)
	v.class = CONSTANT
	Append(v, val)
	if isNull {
		nulls.Add(v.nsp, 0)
	}
	v.length = n
	return v
}

// UnifiedVectorFormat is the normalized (selection vector, validity,
// data) triple spec.md §6 names as the Vector container's contract with
// coldata: independent of whether the source vector was constant or
// flat. Sel is nil for an identity mapping.
type UnifiedVectorFormat struct {
	Sel      []int64
	Validity *nulls.Nulls
	Data     any
}

// ToUnifiedFormat projects v without copying its backing data: a
// constant vector gets an all-zero selection vector of length v.length,
// a flat vector gets an identity (nil) selection vector.
func (v *Vector) ToUnifiedFormat() *UnifiedVectorFormat {
	if v.class == CONSTANT {
		sel := make([]int64, v.length)
		return &UnifiedVectorFormat{Sel: sel, Validity: v.nsp, Data: v.col}
	}
	return &UnifiedVectorFormat{Sel: nil, Validity: v.nsp, Data: v.col}
}

// Index maps a logical row position through the selection vector,
// identity when the format has none (the common flat-vector case).
func (f *UnifiedVectorFormat) Index(i int) int {
	if f.Sel == nil {
		return i
	}
	return int(f.Sel[i])
}

func (f *UnifiedVectorFormat) IsNull(i int) bool {
	return nulls.Contains(f.Validity, uint64(f.Index(i)))
}

// Flatten materializes a complex-free logical view of length n: a flat
// vector is returned unchanged, a constant vector is expanded into a
// flat one of length n. Per spec.md §4.4, list and struct columns must
// never be constant-encoded; Flatten enforces that contract rather than
// silently expanding a nested value n times.
func (v *Vector) Flatten(n int) *Vector {
	if v.typ.Typ.Oid == types.T_list || v.typ.Typ.Oid == types.T_struct {
		if v.class == CONSTANT {
			panic(moerr.NewInternalErrorNoCtx("flatten: list/struct column must not be constant-encoded"))
		}
		return v
	}
	if v.class != CONSTANT {
		return v
	}
	out := NewVector(v.typ)
	isNull := nulls.Contains(v.nsp, 0)
	for i := 0; i < n; i++ {
		if isNull {
			AppendNull(out)
			continue
		}
		if v.typ.Typ.Oid == types.T_varchar {
			AppendBytes(out, v.GetBytes(0))
			continue
		}
		copyScalarOne(out, v, 0)
	}
	return out
}

func copyScalarOne(dst, src *Vector, i int) {
	switch col := src.col.(type) {
	case []bool:
		Append(dst, col[i])
	case []int8:
		Append(dst, col[i])
	case []int16:
		Append(dst, col[i])
	case []int32:
		Append(dst, col[i])
	case []int64:
		Append(dst, col[i])
	case []types.Int128:
		Append(dst, col[i])
	case []uint8:
		Append(dst, col[i])
	case []uint16:
		Append(dst, col[i])
	case []uint32:
		Append(dst, col[i])
	case []uint64:
		Append(dst, col[i])
	case []float32:
		Append(dst, col[i])
	case []float64:
		Append(dst, col[i])
	case []types.Interval:
		Append(dst, col[i])
	default:
		panic(fmt.Sprintf("vector: copyScalarOne unsupported for %T", col))
	}
}

// NewListVectorFrom builds a list Vector directly from already-materialized
// parts, bypassing AppendListRow's one-row-at-a-time API. Used by
// coldata's scan path, which reconstructs a whole child vector in one
// shot from a descriptor chain rather than row by row.
func NewListVectorFrom(ct types.ColumnType, entries []types.ListEntry, nsp *nulls.Nulls, child *Vector) *Vector {
	return &Vector{typ: ct, class: FLAT, nsp: nsp, col: entries, child: child, length: len(entries)}
}

// NewStructVectorFrom is NewListVectorFrom's struct counterpart.
func NewStructVectorFrom(ct types.ColumnType, nsp *nulls.Nulls, children []*Vector, length int) *Vector {
	return &Vector{typ: ct, class: FLAT, nsp: nsp, children: children, length: length}
}

// ValueAt extracts row i as an any, recursing into list/struct children.
// Used by coldata's row-iteration and ResultEquals; not on any hot path.
func (v *Vector) ValueAt(i int) any {
	if nulls.Contains(v.nsp, uint64(i)) {
		return nil
	}
	switch v.typ.Typ.Oid {
	case types.T_varchar:
		return v.GetString(i)
	case types.T_list:
		e := v.col.([]types.ListEntry)[i]
		vals := make([]any, e.Length)
		for k := range vals {
			vals[k] = v.child.ValueAt(int(e.Offset) + k)
		}
		return vals
	case types.T_struct:
		vals := make([]any, len(v.children))
		for idx, ch := range v.children {
			vals[idx] = ch.ValueAt(i)
		}
		return vals
	default:
		return fixedValueAt(v, i)
	}
}

func fixedValueAt(v *Vector, i int) any {
	switch col := v.col.(type) {
	case []bool:
		return col[i]
	case []int8:
		return col[i]
	case []int16:
		return col[i]
	case []int32:
		return col[i]
	case []int64:
		return col[i]
	case []types.Int128:
		return col[i]
	case []uint8:
		return col[i]
	case []uint16:
		return col[i]
	case []uint32:
		return col[i]
	case []uint64:
		return col[i]
	case []float32:
		return col[i]
	case []float64:
		return col[i]
	case []types.Interval:
		return col[i]
	default:
		panic(fmt.Sprintf("vector: fixedValueAt unsupported for %T", col))
	}
}

func (v *Vector) String() string {
	switch v.typ.Typ.Oid {
	case types.T_varchar:
		out := make([]string, 0, v.length)
		for i := 0; i < v.length; i++ {
			if nulls.Contains(v.nsp, uint64(i)) {
				out = append(out, "null")
				continue
			}
			out = append(out, v.GetString(i))
		}
		return fmt.Sprintf("%v", out)
	case types.T_list:
		return fmt.Sprintf("list[%d rows]-%s", v.length, nulls.String(v.nsp))
	case types.T_struct:
		return fmt.Sprintf("struct[%d rows]-%s", v.length, nulls.String(v.nsp))
	default:
		return fmt.Sprintf("%v-%s", v.col, nulls.String(v.nsp))
	}
}
