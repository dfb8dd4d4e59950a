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

package types

// ColumnType describes one schema column as a tree: scalars carry only
// Typ, list columns carry exactly one Child, struct columns carry one
// Fields entry per member. This is the Go-native stand-in for whatever
// richer logical-type system a real query engine would hand coldata;
// it is deliberately just expressive enough to drive copy-function
// construction and descriptor allocation (spec.md §4.3).
type ColumnType struct {
	Typ    Type
	Name   string // only meaningful for struct Fields entries
	Child  *ColumnType
	Fields []ColumnType
}

func Scalar(oid T) ColumnType { return ColumnType{Typ: Type{Oid: oid}} }

func List(child ColumnType) ColumnType {
	return ColumnType{Typ: Type{Oid: T_list}, Child: &child}
}

func Struct(fields ...ColumnType) ColumnType {
	return ColumnType{Typ: Type{Oid: T_struct}, Fields: fields}
}

// Equal reports structural equality, used by Collection.Append/Combine
// to enforce spec.md §3's "schema is fixed at first use" invariant.
func (c ColumnType) Equal(o ColumnType) bool {
	if c.Typ.Oid != o.Typ.Oid {
		return false
	}
	switch c.Typ.Oid {
	case T_list:
		if c.Child == nil || o.Child == nil {
			return c.Child == o.Child
		}
		return c.Child.Equal(*o.Child)
	case T_struct:
		if len(c.Fields) != len(o.Fields) {
			return false
		}
		for i := range c.Fields {
			if !c.Fields[i].Equal(o.Fields[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}
