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

// Package types is the closed physical-type system coldata and its
// vector/batch collaborators build on. It intentionally carries far fewer
// oids than the teacher's own pkg/container/types: only the physical
// types a column data collection is required to dispatch copy functions
// over (bool, the signed/unsigned integer family, the two floats,
// interval, varchar, struct and list). Logical concerns the teacher
// layers on top (decimals, dates, JSON, row ids) are out of scope.
package types

import "fmt"

// T is a physical type oid, the thing GetCopyFunction switches on.
type T uint8

const (
	T_bool T = iota
	T_int8
	T_int16
	T_int32
	T_int64
	T_int128
	T_uint8
	T_uint16
	T_uint32
	T_uint64
	T_float32
	T_float64
	T_interval
	T_varchar
	T_struct
	T_list
)

func (t T) String() string {
	switch t {
	case T_bool:
		return "BOOL"
	case T_int8:
		return "INT8"
	case T_int16:
		return "INT16"
	case T_int32:
		return "INT32"
	case T_int64:
		return "INT64"
	case T_int128:
		return "INT128"
	case T_uint8:
		return "UINT8"
	case T_uint16:
		return "UINT16"
	case T_uint32:
		return "UINT32"
	case T_uint64:
		return "UINT64"
	case T_float32:
		return "FLOAT32"
	case T_float64:
		return "FLOAT64"
	case T_interval:
		return "INTERVAL"
	case T_varchar:
		return "VARCHAR"
	case T_struct:
		return "STRUCT"
	case T_list:
		return "LIST"
	default:
		return "UNKNOWN"
	}
}

// Type is the logical-type handle carried on every Vector and schema
// column. Width/Scale are unused by any oid coldata dispatches on today
// (no decimal, no parameterized varchar) but are kept so callers building
// a schema from a richer type system elsewhere have somewhere to put
// them, matching the teacher's Type{Oid,Width,Scale} shape.
type Type struct {
	Oid   T
	Width int32
	Scale int32
}

func New(oid T) Type { return Type{Oid: oid} }

// TypeSize returns the physical slot width in bytes, matching spec.md
// §4.2's "data region occupies the first STANDARD_VECTOR_SIZE x TypeSize
// bytes". Struct is 0 (validity only); list is the width of a
// ListEntry (offset+length), not the child's width.
func (t Type) TypeSize() int {
	switch t.Oid {
	case T_bool, T_int8, T_uint8:
		return 1
	case T_int16, T_uint16:
		return 2
	case T_int32, T_uint32, T_float32:
		return 4
	case T_int64, T_uint64, T_float64:
		return 8
	case T_int128, T_interval, T_list:
		return 16
	case T_varchar:
		return VarlenaSize
	case T_struct:
		return 0
	default:
		panic(fmt.Sprintf("unsupported physical type %v", t.Oid))
	}
}

// IsFixedLen mirrors the teacher's Type.IsFixedLen: everything except
// varchar copies by straight slot assignment.
func (t Type) IsFixedLen() bool {
	return t.Oid != T_varchar
}

func (t Type) String() string {
	return t.Oid.String()
}

// MaxTypeSize is the width the allocator sizes every block's data region
// to, regardless of which physical type ends up stored in it (spec.md
// §4.1: "blocks... sized to hold one standard vector of any supported
// physical type"). int128/interval/list are the widest fixed types.
const MaxTypeSize = 16

// Int128 stands in for the spec's int128 physical type. No arithmetic is
// implemented here (that lives in the out-of-scope vector-operation
// library); this is purely a 16-byte storage slot.
type Int128 struct {
	Lo uint64
	Hi uint64
}

// Interval is duckdb's month/day/microsecond decomposition, since the
// teacher's own type system has no interval oid to borrow from.
type Interval struct {
	Months int32
	Days   int32
	Micros int64
}

// ListEntry is the physical representation stored in a list column's own
// descriptor slot: an offset into (and length within) the child
// descriptor chain. Matches spec.md §4.3's list_entry_t.
type ListEntry struct {
	Offset int64
	Length int64
}

// FixedSizeT is the set of physical Go types the generic copy engine
// (coldata.copyFixed[T]) and Vector's typed accessors instantiate over.
// Varchar is deliberately excluded: it has its own heap-aware copy path.
type FixedSizeT interface {
	bool | int8 | int16 | int32 | int64 | Int128 |
		uint8 | uint16 | uint32 | uint64 |
		float32 | float64 | Interval | ListEntry
}
