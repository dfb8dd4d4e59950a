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
	"bytes"
	"fmt"

	"github.com/zzl200012/coldata/pkg/common/logutil"
	"github.com/zzl200012/coldata/pkg/common/moerr"
	"github.com/zzl200012/coldata/pkg/common/mpool"
	"github.com/zzl200012/coldata/pkg/container/batch"
	"github.com/zzl200012/coldata/pkg/container/types"
	"github.com/zzl200012/coldata/pkg/container/vector"
)

// Options configures a new Collection, following this module's
// functional-options idiom rather than a mutable config struct handed
// around by pointer.
type Options struct {
	Allocator     *mpool.MPool
	BufferManager BufferManager
}

type Option func(*Options)

// WithAllocator backs the collection with a direct, resident allocator
// drawing from mp. This is the default when no option is given.
func WithAllocator(mp *mpool.MPool) Option {
	return func(o *Options) { o.Allocator = mp }
}

// WithBufferManager backs the collection with a pluggable BufferManager
// instead of a direct allocator, so every read pins through it.
func WithBufferManager(bm BufferManager) Option {
	return func(o *Options) { o.BufferManager = bm }
}

// Collection is the public column data collection: an append-only,
// chunked columnar buffer that owns one or more Segments and hands out
// Scan/ChunkIterator/RowIterator views over them. Its schema is fixed at
// first use, either by NewWithTypes or by the first Append.
type Collection struct {
	schema []types.ColumnType
	alloc  *Allocator

	segments []*Segment
	copyFns  []*copyFunction

	count    int
	finished bool
}

func newCollection(schema []types.ColumnType, opts []Option) *Collection {
	o := &Options{}
	for _, f := range opts {
		f(o)
	}
	var alloc *Allocator
	if o.BufferManager != nil {
		alloc = NewBufferManagerAllocator(o.BufferManager)
	} else {
		mp := o.Allocator
		if mp == nil {
			mp = mpool.MustNewZero()
		}
		alloc = NewDirectAllocator(mp)
	}
	c := &Collection{schema: schema, alloc: alloc}
	if schema != nil {
		if err := c.buildCopyFunctions(); err != nil {
			panic(err)
		}
	}
	return c
}

// New creates an empty collection with no fixed schema; the schema is
// taken from the first Batch appended to it.
func New(opts ...Option) *Collection {
	return newCollection(nil, opts)
}

// NewWithTypes creates a collection whose schema is fixed up front.
func NewWithTypes(schema []types.ColumnType, opts ...Option) *Collection {
	return newCollection(schema, opts)
}

// NewShared creates an empty collection that shares source's allocator
// (and therefore its memory budget), marking source finished — matching
// the teacher's copy-construction idiom for "start a sibling scratch
// buffer from an existing one's configuration without copying its rows".
func NewShared(source *Collection) *Collection {
	source.finished = true
	c := &Collection{schema: source.schema, alloc: source.alloc}
	if c.schema != nil {
		if err := c.buildCopyFunctions(); err != nil {
			panic(err)
		}
	}
	return c
}

func (c *Collection) buildCopyFunctions() error {
	c.copyFns = make([]*copyFunction, len(c.schema))
	for i, ct := range c.schema {
		fn, err := GetCopyFunction(ct)
		if err != nil {
			return err
		}
		c.copyFns[i] = fn
	}
	return nil
}

func (c *Collection) Count() int                  { return c.count }
func (c *Collection) ColumnCount() int             { return len(c.schema) }
func (c *Collection) Types() []types.ColumnType    { return c.schema }

func (c *Collection) ChunkCount() int {
	total := 0
	for _, seg := range c.segments {
		total += seg.ChunkCount()
	}
	return total
}

// FetchChunk is the random-access counterpart to ChunkCount: it maps a
// global chunk index (ranging over every chunk of every segment, in
// segment order) to the owning segment's local chunk index and reads it
// back as a Batch. chunkIdx outside [0, ChunkCount()) is the §7 "index
// out of bounds" error kind.
func (c *Collection) FetchChunk(chunkIdx int, cs *ChunkState) (*batch.Batch, error) {
	if chunkIdx < 0 || chunkIdx >= c.ChunkCount() {
		return nil, moerr.NewOutOfRange(nil, "FetchChunk", "chunk index %d out of range [0,%d)", chunkIdx, c.ChunkCount())
	}
	for _, seg := range c.segments {
		if chunkIdx < seg.ChunkCount() {
			return seg.FetchChunk(chunkIdx, cs)
		}
		chunkIdx -= seg.ChunkCount()
	}
	return nil, moerr.NewOutOfRange(nil, "FetchChunk", "chunk index out of range")
}

func (c *Collection) checkOrSetSchema(batTypes []types.ColumnType) error {
	if c.schema == nil {
		c.schema = batTypes
		return c.buildCopyFunctions()
	}
	if len(batTypes) != len(c.schema) {
		return moerr.NewInternalErrorNoCtx("coldata: append schema mismatch: %d columns, collection has %d", len(batTypes), len(c.schema))
	}
	for i := range batTypes {
		if !batTypes[i].Equal(c.schema[i]) {
			return moerr.NewInternalErrorNoCtx("coldata: append schema mismatch at column %d", i)
		}
	}
	return nil
}

// AppendState is the per-append-session cache InitializeAppend primes and
// every Append call reuses: today that is just a ChunkState pin cache,
// since the writable chunk itself is always "whichever chunk is last",
// re-derived cheaply on each call.
type AppendState struct {
	cs *ChunkState
}

func (c *Collection) InitializeAppend(state *AppendState) error {
	if c.finished {
		return moerr.NewInternalErrorNoCtx("coldata: cannot append to a finished collection")
	}
	state.cs = NewChunkState()
	return nil
}

func (c *Collection) lastSegment() *Segment {
	if len(c.segments) == 0 {
		return nil
	}
	return c.segments[len(c.segments)-1]
}

// ensureWritableSegment returns the collection's one growable segment,
// creating it against the now-fixed schema on first use. A collection
// only ever grows a second segment through Combine: within one
// collection's own Append calls, chunks simply accumulate in the first.
func (c *Collection) ensureWritableSegment() *Segment {
	if seg := c.lastSegment(); seg != nil {
		return seg
	}
	seg := NewSegment(c.alloc, c.schema)
	c.segments = append(c.segments, seg)
	return seg
}

// ensureWritableChunk returns the last chunk of seg if it still has room,
// allocating a fresh one otherwise.
func (c *Collection) ensureWritableChunk(seg *Segment) (int, error) {
	if seg.ChunkCount() == 0 || seg.chunks[seg.ChunkCount()-1].count >= StandardVectorSize {
		return seg.AllocateNewChunk()
	}
	return seg.ChunkCount() - 1, nil
}

// Append copies bat's rows into the collection, chunking them across
// possibly multiple chunks of StandardVectorSize rows each.
func (c *Collection) Append(state *AppendState, bat *batch.Batch) error {
	if c.finished {
		return moerr.NewInternalErrorNoCtx("coldata: cannot append to a finished collection")
	}
	n := bat.RowCount()
	if n == 0 {
		return nil
	}
	if err := c.checkOrSetSchema(bat.Types()); err != nil {
		return err
	}

	flatVecs := make([]*vector.Vector, bat.VectorCount())
	for i := 0; i < bat.VectorCount(); i++ {
		flatVecs[i] = bat.GetVector(i).Flatten(n)
	}

	seg := c.ensureWritableSegment()
	remaining := n
	offset := 0
	for remaining > 0 {
		chunkIdx, err := c.ensureWritableChunk(seg)
		if err != nil {
			return err
		}
		chunk := seg.chunks[chunkIdx]
		appendAmount := min(remaining, StandardVectorSize-chunk.count)
		for i, fn := range c.copyFns {
			if _, err := fn.fn(seg, chunk.roots[i], flatVecs[i], offset, appendAmount, state.cs); err != nil {
				return err
			}
		}
		chunk.count += appendAmount
		seg.count += appendAmount
		remaining -= appendAmount
		offset += appendAmount
	}
	c.count += n
	return nil
}

// AppendChunk is the convenience one-shot form of InitializeAppend+Append
// for callers who do not need to amortize a ChunkState across several
// Batches.
func (c *Collection) AppendChunk(bat *batch.Batch) error {
	var state AppendState
	if err := c.InitializeAppend(&state); err != nil {
		return err
	}
	return c.Append(&state, bat)
}

// Combine moves every segment (and the row count they represent) from
// other into c, leaving other empty. No row is copied: this is a pure
// pointer-list splice, the same move-in semantics DuckDB's Combine has.
func (c *Collection) Combine(other *Collection) error {
	if other == c {
		return moerr.NewInternalErrorNoCtx("coldata: cannot combine a collection with itself")
	}
	if c.schema == nil {
		c.schema = other.schema
		if c.schema != nil {
			if err := c.buildCopyFunctions(); err != nil {
				return err
			}
		}
	} else if other.schema != nil {
		if len(c.schema) != len(other.schema) {
			return moerr.NewInternalErrorNoCtx("coldata: combine schema mismatch: %d columns vs %d", len(other.schema), len(c.schema))
		}
		for i := range c.schema {
			if !c.schema[i].Equal(other.schema[i]) {
				return moerr.NewInternalErrorNoCtx("coldata: combine schema mismatch at column %d", i)
			}
		}
	}
	movedRows := other.count
	c.segments = append(c.segments, other.segments...)
	c.count += other.count
	other.segments = nil
	other.count = 0
	other.finished = true
	logutil.Infof("coldata: combined %d rows into collection (now %d rows, %d segments)", movedRows, c.count, len(c.segments))
	return nil
}

// ToString renders every chunk via the underlying Batch.String, matching
// the teacher's "scan everything into a debug string" idiom rather than
// building a second, parallel pretty-printer.
func (c *Collection) ToString() string {
	var buf bytes.Buffer
	var state ScanState
	c.InitializeScan(&state, nil, nil)
	for {
		bat, ok, err := c.Scan(&state)
		if err != nil {
			fmt.Fprintf(&buf, "<scan error: %v>\n", err)
			return buf.String()
		}
		if !ok {
			break
		}
		buf.WriteString(bat.String())
	}
	return buf.String()
}

func (c *Collection) Print() {
	logutil.Info(c.ToString())
}

// Reset drops every segment, returning the collection to its
// just-constructed state (schema included, since a caller that built a
// schema-fixed collection expects to keep reusing that schema).
func (c *Collection) Reset() {
	c.segments = nil
	c.count = 0
	c.finished = false
	logutil.Infof("coldata: collection reset")
}
