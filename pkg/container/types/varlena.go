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

// VarlenaInlineLen is the inline-storage threshold referenced throughout
// spec.md §3/§4.3 as "string values that fit inline are stored by
// value". At or below this length a Varlena never touches the segment heap.
const VarlenaInlineLen = 12

// VarlenaSize is the nominal slot width used for block-capacity math
// (Type.TypeSize for T_varchar); it has no bearing on Varlena's actual
// in-memory Go layout, which is a plain struct rather than a packed byte
// array (the teacher's C-struct-compatible Varlena has no equivalent
// need in a Go process that never serializes this value to disk).
const VarlenaSize = 24

// Varlena is coldata's string_t: a length plus either up to
// VarlenaInlineLen bytes stored by value, or a slice referencing bytes
// already copied into a segment's Heap. It never owns heap memory
// itself; construction through Heap.AddBlob is what copies bytes in.
type Varlena struct {
	length int32
	inline [VarlenaInlineLen]byte
	heap   []byte
}

// NewInlineVarlena stores bs by value. Panics if bs does not fit inline;
// callers route anything longer through a Heap first.
func NewInlineVarlena(bs []byte) Varlena {
	if len(bs) > VarlenaInlineLen {
		panic("NewInlineVarlena: value too long to inline")
	}
	var v Varlena
	v.length = int32(len(bs))
	copy(v.inline[:], bs)
	return v
}

// NewHeapVarlena wraps a byte slice already owned by a segment's Heap.
func NewHeapVarlena(bs []byte) Varlena {
	return Varlena{length: int32(len(bs)), heap: bs}
}

func (v Varlena) IsInline() bool { return int(v.length) <= VarlenaInlineLen }

func (v Varlena) Length() int { return int(v.length) }

// GetByteSlice returns the value's bytes regardless of storage mode,
// matching the teacher's Varlena.GetByteSlice(area) — the area parameter
// is unused here since heap-backed Varlenas already hold their own
// slice rather than an offset into a caller-supplied area.
func (v Varlena) GetByteSlice() []byte {
	if v.IsInline() {
		return v.inline[:v.length]
	}
	return v.heap
}

func (v Varlena) GetString() string {
	return string(v.GetByteSlice())
}
