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

package coldata

import (
	"github.com/zzl200012/coldata/pkg/common/moerr"
	"github.com/zzl200012/coldata/pkg/container/types"
	"github.com/zzl200012/coldata/pkg/container/vector"
)

// TightenListCopy selects which of the two documented list-copy
// strategies the list copyFunc uses. The straightforward strategy
// flattens and appends a list column's entire child vector on every
// call, which over-copies whenever only a subset of a batch's list rows
// are non-null or short; the tightened strategy instead copies, per row,
// only the child slice that row's ListEntry actually references. The
// tightened strategy is the default: it is no more code, its row loop is
// already there for null handling, and it avoids writing child data a
// reader will never reach through any entry.
var TightenListCopy = true

// copyFunc copies count rows of src (already flattened, [offset,
// offset+count)) into the descriptor chain starting at cur, allocating
// further descriptors on overflow, and returns the descriptor the next
// call should resume writing at.
type copyFunc func(seg *Segment, cur vectorIndex, src *vector.Vector, offset, count int, cs *ChunkState) (vectorIndex, error)

// copyFunction is one node of the copy-function tree GetCopyFunction
// builds from a schema column: the tree's shape mirrors the schema's own
// nesting, and Collection.Append walks it once per Append call.
type copyFunction struct {
	typ      types.Type
	fn       copyFunc
	child    *copyFunction
	children []*copyFunction
}

// GetCopyFunction builds the copy-function tree for one schema column.
func GetCopyFunction(ct types.ColumnType) (*copyFunction, error) {
	switch ct.Typ.Oid {
	case types.T_bool:
		return &copyFunction{typ: ct.Typ, fn: copyFixed[bool]}, nil
	case types.T_int8:
		return &copyFunction{typ: ct.Typ, fn: copyFixed[int8]}, nil
	case types.T_int16:
		return &copyFunction{typ: ct.Typ, fn: copyFixed[int16]}, nil
	case types.T_int32:
		return &copyFunction{typ: ct.Typ, fn: copyFixed[int32]}, nil
	case types.T_int64:
		return &copyFunction{typ: ct.Typ, fn: copyFixed[int64]}, nil
	case types.T_int128:
		return &copyFunction{typ: ct.Typ, fn: copyFixed[types.Int128]}, nil
	case types.T_uint8:
		return &copyFunction{typ: ct.Typ, fn: copyFixed[uint8]}, nil
	case types.T_uint16:
		return &copyFunction{typ: ct.Typ, fn: copyFixed[uint16]}, nil
	case types.T_uint32:
		return &copyFunction{typ: ct.Typ, fn: copyFixed[uint32]}, nil
	case types.T_uint64:
		return &copyFunction{typ: ct.Typ, fn: copyFixed[uint64]}, nil
	case types.T_float32:
		return &copyFunction{typ: ct.Typ, fn: copyFixed[float32]}, nil
	case types.T_float64:
		return &copyFunction{typ: ct.Typ, fn: copyFixed[float64]}, nil
	case types.T_interval:
		return &copyFunction{typ: ct.Typ, fn: copyFixed[types.Interval]}, nil
	case types.T_varchar:
		return &copyFunction{typ: ct.Typ, fn: copyVarchar}, nil
	case types.T_list:
		child, err := GetCopyFunction(*ct.Child)
		if err != nil {
			return nil, err
		}
		return &copyFunction{typ: ct.Typ, fn: makeListCopyFunc(child), child: child}, nil
	case types.T_struct:
		children := make([]*copyFunction, len(ct.Fields))
		for i, f := range ct.Fields {
			cf, err := GetCopyFunction(f)
			if err != nil {
				return nil, err
			}
			children[i] = cf
		}
		return &copyFunction{typ: ct.Typ, fn: makeStructCopyFunc(children), children: children}, nil
	default:
		return nil, moerr.NewNYI(nil, "coldata: no copy function for physical type %v", ct.Typ.Oid)
	}
}

// copyFixed is the generic templated engine spec.md §4.3 describes for
// every fixed-width physical type: project the source through its
// UnifiedVectorFormat, then walk the destination chain, overflowing into
// a freshly allocated descriptor whenever the current one fills.
func copyFixed[T types.FixedSizeT](seg *Segment, cur vectorIndex, src *vector.Vector, offset, count int, cs *ChunkState) (vectorIndex, error) {
	uf := src.ToUnifiedFormat()
	data := uf.Data.([]T)
	remaining := count
	pos := offset
	for remaining > 0 {
		if err := seg.ensureValidity(cs, cur); err != nil {
			return invalidIndex, err
		}
		vm := seg.vectors[cur]
		room := StandardVectorSize - vm.count
		if room == 0 {
			next, err := seg.AllocateVector(vm.typ, cur)
			if err != nil {
				return invalidIndex, err
			}
			cur = next
			continue
		}
		n := min(remaining, room)
		raw, err := seg.alloc.GetDataPointer(cs, seg.vectors[cur].block)
		if err != nil {
			return invalidIndex, err
		}
		dst := fixedSlice[T](raw)
		bits := validitySliceOf(raw)
		base := vm.count
		for i := 0; i < n; i++ {
			srcIdx := uf.Index(pos + i)
			if uf.IsNull(pos + i) {
				setValid(bits, base+i, false)
			} else {
				dst[base+i] = data[srcIdx]
			}
		}
		vm.count += n
		remaining -= n
		pos += n
	}
	return cur, nil
}

// copyVarchar is copyFixed's varlen-string counterpart: every non-null
// value is routed through the segment's Heap, which decides inline vs.
// heap-owned storage.
func copyVarchar(seg *Segment, cur vectorIndex, src *vector.Vector, offset, count int, cs *ChunkState) (vectorIndex, error) {
	uf := src.ToUnifiedFormat()
	data := uf.Data.([]types.Varlena)
	remaining := count
	pos := offset
	for remaining > 0 {
		if err := seg.ensureValidity(cs, cur); err != nil {
			return invalidIndex, err
		}
		vm := seg.vectors[cur]
		room := StandardVectorSize - vm.count
		if room == 0 {
			next, err := seg.AllocateVector(vm.typ, cur)
			if err != nil {
				return invalidIndex, err
			}
			cur = next
			continue
		}
		n := min(remaining, room)
		raw, err := seg.alloc.GetDataPointer(cs, seg.vectors[cur].block)
		if err != nil {
			return invalidIndex, err
		}
		dst := varlenaSliceOf(raw)
		bits := validitySliceOf(raw)
		base := vm.count
		for i := 0; i < n; i++ {
			srcIdx := uf.Index(pos + i)
			if uf.IsNull(pos + i) {
				setValid(bits, base+i, false)
			} else {
				dst[base+i] = seg.heap.AddBlob(data[srcIdx].GetByteSlice())
			}
		}
		vm.count += n
		remaining -= n
		pos += n
	}
	return cur, nil
}

// makeListCopyFunc closes over the child column's own copy function: a
// list's own descriptor only ever stores list_entry_t values, each an
// offset into (and length within) a per-chunk child descriptor chain
// shared by every row of that column in that chunk.
func makeListCopyFunc(childFn *copyFunction) copyFunc {
	return func(seg *Segment, cur vectorIndex, src *vector.Vector, offset, count int, cs *ChunkState) (vectorIndex, error) {
		uf := src.ToUnifiedFormat()
		entries := uf.Data.([]types.ListEntry)
		childVec := src.Child()

		head := seg.vectors[cur].head
		childRoot := seg.GetChildIndex(head, 0)
		childCur := seg.lastInChain(childRoot)
		childLen := seg.chainTotalCount(childRoot)
		overCopyBase := int64(childLen)

		if !TightenListCopy {
			var err error
			childCur, err = childFn.fn(seg, childCur, childVec, 0, childVec.Length(), cs)
			if err != nil {
				return invalidIndex, err
			}
		}

		remaining := count
		pos := offset
		for remaining > 0 {
			if err := seg.ensureValidity(cs, cur); err != nil {
				return invalidIndex, err
			}
			vm := seg.vectors[cur]
			room := StandardVectorSize - vm.count
			if room == 0 {
				next, err := seg.AllocateVector(vm.typ, cur)
				if err != nil {
					return invalidIndex, err
				}
				cur = next
				continue
			}
			n := min(remaining, room)
			raw, err := seg.alloc.GetDataPointer(cs, seg.vectors[cur].block)
			if err != nil {
				return invalidIndex, err
			}
			dst := fixedSlice[types.ListEntry](raw)
			bits := validitySliceOf(raw)
			base := vm.count
			for i := 0; i < n; i++ {
				srcIdx := uf.Index(pos + i)
				if uf.IsNull(pos + i) {
					setValid(bits, base+i, false)
					dst[base+i] = types.ListEntry{Offset: int64(childLen), Length: 0}
					continue
				}
				e := entries[srcIdx]
				if TightenListCopy {
					newOffset := int64(childLen)
					if e.Length > 0 {
						var cerr error
						childCur, cerr = childFn.fn(seg, childCur, childVec, int(e.Offset), int(e.Length), cs)
						if cerr != nil {
							return invalidIndex, cerr
						}
					}
					dst[base+i] = types.ListEntry{Offset: newOffset, Length: e.Length}
					childLen += int(e.Length)
				} else {
					dst[base+i] = types.ListEntry{Offset: e.Offset + overCopyBase, Length: e.Length}
				}
			}
			vm.count += n
			remaining -= n
			pos += n
		}
		return cur, nil
	}
}

// makeStructCopyFunc closes over each field's copy function: the struct's
// own descriptor only ever stores validity, then every field column is
// copied with the same [offset, offset+count) row window as the parent.
func makeStructCopyFunc(children []*copyFunction) copyFunc {
	return func(seg *Segment, cur vectorIndex, src *vector.Vector, offset, count int, cs *ChunkState) (vectorIndex, error) {
		head := seg.vectors[cur].head
		uf := src.ToUnifiedFormat()

		remaining := count
		pos := offset
		for remaining > 0 {
			if err := seg.ensureValidity(cs, cur); err != nil {
				return invalidIndex, err
			}
			vm := seg.vectors[cur]
			room := StandardVectorSize - vm.count
			if room == 0 {
				next, err := seg.AllocateVector(vm.typ, cur)
				if err != nil {
					return invalidIndex, err
				}
				cur = next
				continue
			}
			n := min(remaining, room)
			raw, err := seg.alloc.GetDataPointer(cs, seg.vectors[cur].block)
			if err != nil {
				return invalidIndex, err
			}
			bits := validitySliceOf(raw)
			base := vm.count
			for i := 0; i < n; i++ {
				if uf.IsNull(pos + i) {
					setValid(bits, base+i, false)
				}
			}
			vm.count += n
			remaining -= n
			pos += n
		}

		fields := src.Children()
		for i, childFn := range children {
			fieldRoot := seg.GetChildIndex(head, i)
			if _, err := childFn.fn(seg, fieldRoot, fields[i], offset, count, cs); err != nil {
				return invalidIndex, err
			}
		}
		return cur, nil
	}
}
