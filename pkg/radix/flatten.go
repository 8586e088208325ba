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
	"golang.org/x/exp/slices"

	"github.com/matrixorigin/moradix/pkg/common/bitmap"
	"github.com/matrixorigin/moradix/pkg/common/concurrent"
	"github.com/matrixorigin/moradix/pkg/common/moerr"
	"github.com/matrixorigin/moradix/pkg/container/types"
	"github.com/matrixorigin/moradix/pkg/container/vector"
	"github.com/matrixorigin/moradix/pkg/logutil/logutil2"
	"github.com/matrixorigin/moradix/pkg/partition"
	v2 "github.com/matrixorigin/moradix/pkg/util/metric/v2"
)

// FlattenMap is the plan to merge the parts of a Partitioned back into one
// column. Part i lands at [TargetWriteOffset[i], TargetWriteOffset[i]+DataTargetLen[i]).
// A part with CopyIndices copies only those source rows, in that order,
// otherwise its first DataTargetLen rows.
type FlattenMap struct {
	DataTargetLen     []int
	TargetWriteOffset []int
	CopyIndices       [][]int64
	TargetTotalLen    int
	// Index maps the logical rows of the selections onto the merged
	// column. nil when no part had a selection.
	Index vector.Index
}

// FlattenIndex plans a flatten. sels holds an optional selection per part.
// Selected rows are copied once however many times they are selected, and
// Index points every selection entry at that copy. When some part has a
// selection, parts without one contribute all of their rows.
func FlattenIndex(ctx context.Context, parts *Partitioned, sels []vector.Index) (*FlattenMap, error) {
	np := len(parts.Parts)
	if sels != nil && len(sels) != np {
		return nil, moerr.NewShapeMismatch(ctx, "%d selections for %d partitions", len(sels), np)
	}
	anySel := false
	for _, sel := range sels {
		if sel != nil {
			anySel = true
		}
	}

	fm := &FlattenMap{
		DataTargetLen:     make([]int, np),
		TargetWriteOffset: make([]int, np),
		CopyIndices:       make([][]int64, np),
	}
	for i, part := range parts.Parts {
		if part.Index != nil {
			return nil, moerr.NewInvalidInput(ctx, "flatten of indexed partition %d", i)
		}
		n := part.PhysicalLen()
		if !anySel || sels[i] == nil {
			fm.DataTargetLen[i] = n
			continue
		}
		uniq, err := dedupSelection(ctx, i, sels[i], n)
		if err != nil {
			return nil, err
		}
		fm.CopyIndices[i] = uniq
		fm.DataTargetLen[i] = len(uniq)
	}
	for i, l := range fm.DataTargetLen {
		fm.TargetWriteOffset[i] = fm.TargetTotalLen
		fm.TargetTotalLen += l
	}
	if !anySel {
		return fm, nil
	}

	size := 0
	for i := range parts.Parts {
		if sels[i] == nil {
			size += fm.DataTargetLen[i]
		} else {
			size += len(sels[i])
		}
	}
	fm.Index = make(vector.Index, 0, size)
	for i := range parts.Parts {
		off := int64(fm.TargetWriteOffset[i])
		if sels[i] == nil {
			for r := 0; r < fm.DataTargetLen[i]; r++ {
				fm.Index = append(fm.Index, off+int64(r))
			}
			continue
		}
		for _, s := range sels[i] {
			if s == vector.NullRow {
				fm.Index = append(fm.Index, vector.NullRow)
				continue
			}
			pos, _ := slices.BinarySearch(fm.CopyIndices[i], s)
			fm.Index = append(fm.Index, off+int64(pos))
		}
	}
	return fm, nil
}

// dedupSelection sorts sel and keeps one entry per run of equal rows.
func dedupSelection(ctx context.Context, part int, sel vector.Index, n int) ([]int64, error) {
	sorted := make([]int64, 0, len(sel))
	for _, s := range sel {
		if s != vector.NullRow {
			sorted = append(sorted, s)
		}
	}
	slices.Sort(sorted)
	runs := partition.Partition(nil, nil, nil, vector.NewFixed(sorted))
	uniq := make([]int64, len(runs))
	for j, r := range runs {
		uniq[j] = sorted[r]
	}
	if len(uniq) > 0 && (uniq[0] < 0 || uniq[len(uniq)-1] >= int64(n)) {
		return nil, moerr.NewInvalidIndex(ctx, "partition %d: selection of rows %d..%d, %d rows",
			part, uniq[0], uniq[len(uniq)-1], n)
	}
	return uniq, nil
}

func (fm *FlattenMap) check(ctx context.Context, parts *Partitioned) error {
	np := len(parts.Parts)
	if len(fm.DataTargetLen) != np || len(fm.TargetWriteOffset) != np ||
		(fm.CopyIndices != nil && len(fm.CopyIndices) != np) {
		return moerr.NewShapeMismatch(ctx, "flatten map of %d partitions, column of %d", len(fm.DataTargetLen), np)
	}
	next := 0
	for i, part := range parts.Parts {
		if part.Index != nil {
			return moerr.NewInvalidInput(ctx, "flatten of indexed partition %d", i)
		}
		if err := part.Validate(ctx); err != nil {
			return err
		}
		n, l, off := part.PhysicalLen(), fm.DataTargetLen[i], fm.TargetWriteOffset[i]
		if l < 0 || l > n {
			return moerr.NewShapeMismatch(ctx, "partition %d: target length %d, %d rows", i, l, n)
		}
		if off != next || off+l > fm.TargetTotalLen {
			return moerr.NewShapeMismatch(ctx, "partition %d: writes [%d, %d) of %d rows, expected offset %d",
				i, off, off+l, fm.TargetTotalLen, next)
		}
		next = off + l
		if fm.CopyIndices == nil || fm.CopyIndices[i] == nil {
			continue
		}
		ci := fm.CopyIndices[i]
		if len(ci) != l {
			return moerr.NewShapeMismatch(ctx, "partition %d: %d copy indices, target length %d", i, len(ci), l)
		}
		for j, r := range ci {
			if r < 0 || r >= int64(n) || (j > 0 && r <= ci[j-1]) {
				return moerr.NewInvalidIndex(ctx, "partition %d: copy index %d is %d, %d rows", i, j, r, n)
			}
		}
	}
	// parts tile the target: no overlap, no gap
	if next != fm.TargetTotalLen {
		return moerr.NewShapeMismatch(ctx, "partitions write %d of %d rows", next, fm.TargetTotalLen)
	}
	for i, r := range fm.Index {
		if r != vector.NullRow && (r < 0 || r >= int64(fm.TargetTotalLen)) {
			return moerr.NewInvalidIndex(ctx, "flat index entry %d is %d, %d rows", i, r, fm.TargetTotalLen)
		}
	}
	return nil
}

func (fm *FlattenMap) copyIndices(i int) []int64 {
	if fm.CopyIndices == nil {
		return nil
	}
	return fm.CopyIndices[i]
}

// FlattenColumn merges parts into one column following fm. The result
// carries fm.Index and a bitmap over its logical rows.
func FlattenColumn(ctx context.Context, exec *concurrent.Executor, parts *Partitioned, fm *FlattenMap) (*vector.Vector, error) {
	start := time.Now()
	defer v2.ObserveSince(v2.RadixFlattenDurationHistogram, start)

	if err := fm.check(ctx, parts); err != nil {
		return nil, err
	}
	var (
		vec *vector.Vector
		err error
	)
	switch parts.Typ.Oid {
	case types.T_bool:
		vec, err = flattenFixed[bool](ctx, exec, parts, fm)
	case types.T_int8:
		vec, err = flattenFixed[int8](ctx, exec, parts, fm)
	case types.T_int16:
		vec, err = flattenFixed[int16](ctx, exec, parts, fm)
	case types.T_int32:
		vec, err = flattenFixed[int32](ctx, exec, parts, fm)
	case types.T_int64:
		vec, err = flattenFixed[int64](ctx, exec, parts, fm)
	case types.T_uint8:
		vec, err = flattenFixed[uint8](ctx, exec, parts, fm)
	case types.T_uint16:
		vec, err = flattenFixed[uint16](ctx, exec, parts, fm)
	case types.T_uint32:
		vec, err = flattenFixed[uint32](ctx, exec, parts, fm)
	case types.T_uint64:
		vec, err = flattenFixed[uint64](ctx, exec, parts, fm)
	case types.T_float32:
		vec, err = flattenFixed[float32](ctx, exec, parts, fm)
	case types.T_float64:
		vec, err = flattenFixed[float64](ctx, exec, parts, fm)
	case types.T_char, types.T_varchar:
		vec, err = flattenBytes(ctx, exec, parts, fm)
	default:
		err = moerr.NewUnsupportedOperation(ctx, "flatten", parts.Typ.String())
	}
	if err != nil {
		return nil, err
	}
	v2.AddRows(v2.RadixFlattenRowsCounter, fm.TargetTotalLen)
	logutil2.Debug(ctx, "radix flatten",
		zap.Int("partitions", parts.Buckets()),
		zap.Int("rows", fm.TargetTotalLen),
		zap.Int("logical rows", vec.Length()))
	return vec, nil
}

func flattenFixed[T types.FixedSizeT](ctx context.Context, exec *concurrent.Executor, parts *Partitioned, fm *FlattenMap) (*vector.Vector, error) {
	cols := make([][]T, len(parts.Parts))
	for i, part := range parts.Parts {
		col, err := vector.GetFixedCol[T](ctx, part)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	out := make([]T, fm.TargetTotalLen)
	valid := make(bitmap.Bitmap, fm.TargetTotalLen)
	err := exec.Run(ctx, len(parts.Parts), func(_ context.Context, i int) error {
		part, col, off := parts.Parts[i], cols[i], fm.TargetWriteOffset[i]
		if ci := fm.copyIndices(i); ci != nil {
			for j, r := range ci {
				out[off+j] = col[r]
				valid[off+j] = validity(part, int(r))
			}
			return nil
		}
		l := fm.DataTargetLen[i]
		copy(out[off:off+l], col[:l])
		for r := 0; r < l; r++ {
			valid[off+r] = validity(part, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return finishFlatten(parts.Typ, out, valid, fm), nil
}

func flattenBytes(ctx context.Context, exec *concurrent.Executor, parts *Partitioned, fm *FlattenMap) (*vector.Vector, error) {
	cols := make([]*types.Bytes, len(parts.Parts))
	byteOffs := make([]uint64, len(parts.Parts))
	var total uint64
	for i, part := range parts.Parts {
		col, err := vector.GetBytesCol(ctx, part)
		if err != nil {
			return nil, err
		}
		cols[i] = col
		byteOffs[i] = total
		if ci := fm.copyIndices(i); ci != nil {
			for _, r := range ci {
				total += uint64(col.Lengths[r])
			}
		} else {
			for r := 0; r < fm.DataTargetLen[i]; r++ {
				total += uint64(col.Lengths[r])
			}
		}
	}
	if total > uint64(^uint32(0)) {
		return nil, moerr.NewOverflow(ctx, "flattened column holds %d bytes", total)
	}

	out := &types.Bytes{
		Data:    make([]byte, total),
		Offsets: make([]uint32, fm.TargetTotalLen),
		Lengths: make([]uint32, fm.TargetTotalLen),
	}
	valid := make(bitmap.Bitmap, fm.TargetTotalLen)
	err := exec.Run(ctx, len(parts.Parts), func(_ context.Context, i int) error {
		part, col, off := parts.Parts[i], cols[i], fm.TargetWriteOffset[i]
		pos := byteOffs[i]
		put := func(j, r int) {
			v := col.Get(int64(r))
			copy(out.Data[pos:], v)
			out.Offsets[off+j] = uint32(pos)
			out.Lengths[off+j] = uint32(len(v))
			valid[off+j] = validity(part, r)
			pos += uint64(len(v))
		}
		if ci := fm.copyIndices(i); ci != nil {
			for j, r := range ci {
				put(j, int(r))
			}
			return nil
		}
		for r := 0; r < fm.DataTargetLen[i]; r++ {
			put(r, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return finishFlatten(parts.Typ, out, valid, fm), nil
}

func validity(part *vector.Vector, r int) uint8 {
	if part.Bitmap.IsValid(r) {
		return bitmap.Valid
	}
	return bitmap.Null
}

func finishFlatten(typ types.Type, col any, valid bitmap.Bitmap, fm *FlattenMap) *vector.Vector {
	vec := &vector.Vector{Typ: typ, Col: col, Index: fm.Index, Bitmap: valid}
	if fm.Index == nil {
		return vec
	}
	vec.Bitmap = make(bitmap.Bitmap, len(fm.Index))
	for i, r := range fm.Index {
		if r != vector.NullRow {
			vec.Bitmap[i] = valid[r]
		}
	}
	return vec
}
