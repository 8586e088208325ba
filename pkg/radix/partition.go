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
	"time"

	"go.uber.org/zap"

	"github.com/matrixorigin/moradix/pkg/common/bitmap"
	"github.com/matrixorigin/moradix/pkg/common/concurrent"
	"github.com/matrixorigin/moradix/pkg/common/moerr"
	"github.com/matrixorigin/moradix/pkg/container/types"
	"github.com/matrixorigin/moradix/pkg/container/vector"
	"github.com/matrixorigin/moradix/pkg/logutil/logutil2"
	v2 "github.com/matrixorigin/moradix/pkg/util/metric/v2"
)

// Partitioned is a column split into one flat vector per bucket. Parts
// produced by a scatter always carry a bitmap. Within a bucket rows keep
// their scan order inside a chunk and chunks follow each other in order,
// so the layout is stable per chunk but not globally.
type Partitioned struct {
	Typ   types.Type
	Parts []*vector.Vector
}

func (p *Partitioned) Buckets() int {
	return len(p.Parts)
}

// Len is the number of logical rows over all parts.
func (p *Partitioned) Len() int {
	n := 0
	for _, part := range p.Parts {
		n += part.Length()
	}
	return n
}

// PartitionColumn scatters the logical rows of vec into the buckets planned
// by sm. Null bucket ids drop their row.
func PartitionColumn(ctx context.Context, exec *concurrent.Executor, vec *vector.Vector, sm *BucketsSizeMap) (*Partitioned, error) {
	start := time.Now()
	defer v2.ObserveSince(v2.RadixPartitionDurationHistogram, start)

	if len(sm.Columns) != 1 {
		return nil, moerr.NewInvalidInput(ctx, "partition needs a size map over one bucket column")
	}
	if err := vec.Validate(ctx); err != nil {
		return nil, err
	}
	if vec.Length() != sm.Columns[0].Len() {
		return nil, moerr.NewShapeMismatch(ctx, "column has %d rows, bucket column %d", vec.Length(), sm.Columns[0].Len())
	}
	p, err := scatter(ctx, exec, vec.Typ, []*vector.Vector{vec}, sm)
	if err != nil {
		return nil, err
	}
	v2.AddRows(v2.RadixPartitionRowsCounter, int(sm.Total()))
	logutil2.Debug(ctx, "radix partition",
		zap.String("type", vec.Typ.String()),
		zap.Int("rows", vec.Length()),
		zap.Int("buckets", p.Buckets()))
	return p, nil
}

// scatter writes srcs[part] logical row r to its slot for every chunk of sm.
// Shapes are checked by the caller.
func scatter(ctx context.Context, exec *concurrent.Executor, typ types.Type, srcs []*vector.Vector, sm *BucketsSizeMap) (*Partitioned, error) {
	switch typ.Oid {
	case types.T_bool:
		return scatterFixed[bool](ctx, exec, typ, srcs, sm)
	case types.T_int8:
		return scatterFixed[int8](ctx, exec, typ, srcs, sm)
	case types.T_int16:
		return scatterFixed[int16](ctx, exec, typ, srcs, sm)
	case types.T_int32:
		return scatterFixed[int32](ctx, exec, typ, srcs, sm)
	case types.T_int64:
		return scatterFixed[int64](ctx, exec, typ, srcs, sm)
	case types.T_uint8:
		return scatterFixed[uint8](ctx, exec, typ, srcs, sm)
	case types.T_uint16:
		return scatterFixed[uint16](ctx, exec, typ, srcs, sm)
	case types.T_uint32:
		return scatterFixed[uint32](ctx, exec, typ, srcs, sm)
	case types.T_uint64:
		return scatterFixed[uint64](ctx, exec, typ, srcs, sm)
	case types.T_float32:
		return scatterFixed[float32](ctx, exec, typ, srcs, sm)
	case types.T_float64:
		return scatterFixed[float64](ctx, exec, typ, srcs, sm)
	case types.T_char, types.T_varchar:
		return scatterBytes(ctx, exec, typ, srcs, sm)
	}
	return nil, moerr.NewUnsupportedOperation(ctx, "partition", typ.String())
}

func scatterFixed[T types.FixedSizeT](ctx context.Context, exec *concurrent.Executor, typ types.Type,
	srcs []*vector.Vector, sm *BucketsSizeMap) (*Partitioned, error) {
	cols := make([][]T, len(srcs))
	for i, src := range srcs {
		col, err := vector.GetFixedCol[T](ctx, src)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}

	nb := sm.Buckets()
	outs := make([][]T, nb)
	bms := make([]bitmap.Bitmap, nb)
	for b, size := range sm.BucketSizes {
		outs[b] = make([]T, size)
		bms[b] = make(bitmap.Bitmap, size)
	}

	err := exec.Run(ctx, len(sm.Chunks), func(ctx context.Context, c int) error {
		ch := sm.Chunks[c]
		src, col, ids := srcs[ch.Part], cols[ch.Part], sm.Columns[ch.Part].Ids
		w := sm.newSlotWriter(c)
		for r := ch.Start; r < ch.End; r++ {
			id := ids[r]
			if id&1 == 1 {
				continue
			}
			b := id >> 1
			s, err := w.slot(ctx, b)
			if err != nil {
				return err
			}
			if row, ok := src.Row(r); ok {
				outs[b][s] = col[row]
				bms[b][s] = bitmap.Valid
			}
		}
		return w.done(ctx)
	})
	if err != nil {
		return nil, err
	}

	p := &Partitioned{Typ: typ, Parts: make([]*vector.Vector, nb)}
	for b := range outs {
		p.Parts[b] = &vector.Vector{Typ: typ, Col: outs[b], Bitmap: bms[b]}
	}
	return p, nil
}

func scatterBytes(ctx context.Context, exec *concurrent.Executor, typ types.Type,
	srcs []*vector.Vector, sm *BucketsSizeMap) (*Partitioned, error) {
	cols := make([]*types.Bytes, len(srcs))
	for i, src := range srcs {
		col, err := vector.GetBytesCol(ctx, src)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}

	// byte length pre-pass, same chunking as the rows
	nb := sm.Buckets()
	byteHist := make([][]uint64, len(sm.Chunks))
	err := exec.Run(ctx, len(sm.Chunks), func(_ context.Context, c int) error {
		ch := sm.Chunks[c]
		src, col, ids := srcs[ch.Part], cols[ch.Part], sm.Columns[ch.Part].Ids
		hist := make([]uint64, nb)
		for r := ch.Start; r < ch.End; r++ {
			id := ids[r]
			if id&1 == 1 {
				continue
			}
			if row, ok := src.Row(r); ok {
				hist[id>>1] += uint64(col.Lengths[row])
			}
		}
		byteHist[c] = hist
		return nil
	})
	if err != nil {
		return nil, err
	}
	byteOffs := make([][]uint64, len(sm.Chunks))
	byteSizes := make([]uint64, nb)
	for c, hist := range byteHist {
		byteOffs[c] = make([]uint64, nb)
		copy(byteOffs[c], byteSizes)
		for b, cnt := range hist {
			byteSizes[b] += cnt
		}
	}
	for b, size := range byteSizes {
		if size > uint64(^uint32(0)) {
			return nil, moerr.NewOverflow(ctx, "bucket %d holds %d bytes", b, size)
		}
	}

	outs := make([]*types.Bytes, nb)
	bms := make([]bitmap.Bitmap, nb)
	for b, size := range sm.BucketSizes {
		outs[b] = &types.Bytes{
			Data:    make([]byte, byteSizes[b]),
			Offsets: make([]uint32, size),
			Lengths: make([]uint32, size),
		}
		bms[b] = make(bitmap.Bitmap, size)
	}

	err = exec.Run(ctx, len(sm.Chunks), func(ctx context.Context, c int) error {
		ch := sm.Chunks[c]
		src, col, ids := srcs[ch.Part], cols[ch.Part], sm.Columns[ch.Part].Ids
		w := sm.newSlotWriter(c)
		next := make([]uint64, nb)
		copy(next, byteOffs[c])
		for r := ch.Start; r < ch.End; r++ {
			id := ids[r]
			if id&1 == 1 {
				continue
			}
			b := id >> 1
			s, err := w.slot(ctx, b)
			if err != nil {
				return err
			}
			out := outs[b]
			out.Offsets[s] = uint32(next[b])
			row, ok := src.Row(r)
			if !ok {
				continue
			}
			v := col.Get(row)
			if next[b]+uint64(len(v)) > byteOffs[c][b]+byteHist[c][b] {
				return moerr.NewInternalError(ctx, "chunk %d overruns the bytes of bucket %d", c, b)
			}
			copy(out.Data[next[b]:], v)
			out.Lengths[s] = uint32(len(v))
			next[b] += uint64(len(v))
			bms[b][s] = bitmap.Valid
		}
		for b := range next {
			if next[b] != byteOffs[c][b]+byteHist[c][b] {
				return moerr.NewInternalError(ctx, "chunk %d left bytes of bucket %d unwritten", c, b)
			}
		}
		return w.done(ctx)
	})
	if err != nil {
		return nil, err
	}

	p := &Partitioned{Typ: typ, Parts: make([]*vector.Vector, nb)}
	for b := range outs {
		p.Parts[b] = &vector.Vector{Typ: typ, Col: outs[b], Bitmap: bms[b]}
	}
	return p, nil
}
