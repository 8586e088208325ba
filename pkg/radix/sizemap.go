// Copyright 2023 Matrix Origin
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

package radix

import (
	"context"

	"go.uber.org/zap"

	"github.com/matrixorigin/moradix/pkg/common/concurrent"
	"github.com/matrixorigin/moradix/pkg/common/moerr"
	"github.com/matrixorigin/moradix/pkg/logutil/logutil2"
)

// Chunk is the rows [Start, End) of bucket column Part, scanned by one task.
type Chunk struct {
	Part  int
	Start int
	End   int
}

// BucketsSizeMap is the write plan of a scatter. Chunk c writes the rows of
// bucket b into [Offsets[c][b], Offsets[c][b]+Histogram[c][b]); these ranges
// tile [0, BucketSizes[b]) in chunk order.
type BucketsSizeMap struct {
	Histogram   [][]uint64
	Offsets     [][]uint64
	BucketSizes []uint64
	// ChunkLen is the rows per chunk, 0 when chunks follow existing partitions.
	ChunkLen int
	Chunks   []Chunk
	Columns  []*BucketColumn
}

// FromBucketColumn plans the scatter of one column split into chunks of
// ceil(n/workers) rows.
func FromBucketColumn(ctx context.Context, exec *concurrent.Executor, bc *BucketColumn, workers int) (*BucketsSizeMap, error) {
	if workers < 1 {
		return nil, moerr.NewInvalidInput(ctx, "%d workers", workers)
	}
	n := bc.Len()
	sm := &BucketsSizeMap{
		ChunkLen: concurrent.ChunkLen(n, workers),
		Columns:  []*BucketColumn{bc},
	}
	for start := 0; start < n; start += sm.ChunkLen {
		end := start + sm.ChunkLen
		if end > n {
			end = n
		}
		sm.Chunks = append(sm.Chunks, Chunk{Start: start, End: end})
	}
	if err := sm.build(ctx, exec, bc.Bits); err != nil {
		return nil, err
	}
	return sm, nil
}

// FromPartitionedBuckets plans the scatter of already partitioned rows, one
// chunk per existing partition. All parts must use the same radix.
func FromPartitionedBuckets(ctx context.Context, exec *concurrent.Executor, parts []*BucketColumn) (*BucketsSizeMap, error) {
	if len(parts) == 0 {
		return nil, moerr.NewInvalidInput(ctx, "no partitions")
	}
	bits := parts[0].Bits
	sm := &BucketsSizeMap{Columns: parts}
	for i, p := range parts {
		if p.Bits != bits {
			return nil, moerr.NewShapeMismatch(ctx, "partition %d has %d bucket bits, partition 0 has %d", i, p.Bits, bits)
		}
		sm.Chunks = append(sm.Chunks, Chunk{Part: i, Start: 0, End: p.Len()})
	}
	if err := sm.build(ctx, exec, bits); err != nil {
		return nil, err
	}
	return sm, nil
}

func (sm *BucketsSizeMap) build(ctx context.Context, exec *concurrent.Executor, bits int) error {
	nb := uint64(1) << bits
	sm.Histogram = make([][]uint64, len(sm.Chunks))
	sm.Offsets = make([][]uint64, len(sm.Chunks))

	// histogram, one task per chunk
	err := exec.Run(ctx, len(sm.Chunks), func(_ context.Context, c int) error {
		ch := sm.Chunks[c]
		ids := sm.Columns[ch.Part].Ids
		hist := make([]uint64, nb)
		for _, id := range ids[ch.Start:ch.End] {
			if id&1 == 0 {
				hist[id>>1]++
			}
		}
		sm.Histogram[c] = hist
		return nil
	})
	if err != nil {
		return err
	}

	// offsets, running totals in chunk order
	sm.BucketSizes = make([]uint64, nb)
	for c, hist := range sm.Histogram {
		offs := make([]uint64, nb)
		copy(offs, sm.BucketSizes)
		sm.Offsets[c] = offs
		for b, cnt := range hist {
			sm.BucketSizes[b] += cnt
		}
	}
	logutil2.Debug(ctx, "radix size map",
		zap.Int("chunks", len(sm.Chunks)),
		zap.Uint64("buckets", nb),
		zap.Uint64("rows", sm.Total()))
	return nil
}

func (sm *BucketsSizeMap) Buckets() int {
	return len(sm.BucketSizes)
}

func (sm *BucketsSizeMap) Bits() int {
	return sm.Columns[0].Bits
}

// Total is the number of non-null rows planned.
func (sm *BucketsSizeMap) Total() uint64 {
	var total uint64
	for _, s := range sm.BucketSizes {
		total += s
	}
	return total
}

// Rows is the number of rows scanned, null rows included.
func (sm *BucketsSizeMap) Rows() int {
	n := 0
	for _, ch := range sm.Chunks {
		n += ch.End - ch.Start
	}
	return n
}

// Check verifies that the chunk ranges of every bucket tile it exactly.
func (sm *BucketsSizeMap) Check(ctx context.Context) error {
	for b, size := range sm.BucketSizes {
		var next uint64
		for c := range sm.Chunks {
			if sm.Offsets[c][b] != next {
				return moerr.NewInternalError(ctx, "bucket %d: chunk %d starts at %d, expected %d", b, c, sm.Offsets[c][b], next)
			}
			next += sm.Histogram[c][b]
		}
		if next != size {
			return moerr.NewInternalError(ctx, "bucket %d: chunks cover %d rows of %d", b, next, size)
		}
	}
	return nil
}

// slotWriter hands out the slots a chunk owns, in increasing order per
// bucket, and reports any write outside them.
type slotWriter struct {
	chunk int
	next  []uint64
	limit []uint64
}

func (sm *BucketsSizeMap) newSlotWriter(chunk int) *slotWriter {
	w := &slotWriter{
		chunk: chunk,
		next:  make([]uint64, len(sm.BucketSizes)),
		limit: make([]uint64, len(sm.BucketSizes)),
	}
	copy(w.next, sm.Offsets[chunk])
	for b := range w.limit {
		w.limit[b] = sm.Offsets[chunk][b] + sm.Histogram[chunk][b]
	}
	return w
}

func (w *slotWriter) slot(ctx context.Context, b uint64) (uint64, error) {
	s := w.next[b]
	if s >= w.limit[b] {
		return 0, moerr.NewInternalError(ctx, "chunk %d overruns its range of bucket %d at slot %d", w.chunk, b, s)
	}
	w.next[b]++
	return s, nil
}

// done reports a range left partly unwritten.
func (w *slotWriter) done(ctx context.Context) error {
	for b := range w.next {
		if w.next[b] != w.limit[b] {
			return moerr.NewInternalError(ctx, "chunk %d filled bucket %d up to slot %d of %d", w.chunk, b, w.next[b], w.limit[b])
		}
	}
	return nil
}
