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

package vector

import (
	"bytes"
	"context"
	"fmt"

	"github.com/matrixorigin/moradix/pkg/common/bitmap"
	"github.com/matrixorigin/moradix/pkg/common/moerr"
	"github.com/matrixorigin/moradix/pkg/container/nulls"
	"github.com/matrixorigin/moradix/pkg/container/types"
)

// NullRow is the index entry of a row that selects nothing, it reads as NULL.
const NullRow int64 = -1

// Index selects and reorders the physical rows of a column. Entry i is the
// physical row backing logical row i, or NullRow. A nil Index is identity.
type Index []int64

// Vector represent a column
type Vector struct {
	Typ types.Type
	// Col is a []T of the fixed width kind of Typ, or *types.Bytes for
	// char and varchar.
	Col    any
	Index  Index
	Bitmap bitmap.Bitmap
}

// NewVec returns an empty column of typ.
func NewVec(typ types.Type) *Vector {
	v := &Vector{Typ: typ}
	switch typ.Oid {
	case types.T_bool:
		v.Col = []bool{}
	case types.T_int8:
		v.Col = []int8{}
	case types.T_int16:
		v.Col = []int16{}
	case types.T_int32:
		v.Col = []int32{}
	case types.T_int64:
		v.Col = []int64{}
	case types.T_uint8:
		v.Col = []uint8{}
	case types.T_uint16:
		v.Col = []uint16{}
	case types.T_uint32:
		v.Col = []uint32{}
	case types.T_uint64:
		v.Col = []uint64{}
	case types.T_float32:
		v.Col = []float32{}
	case types.T_float64:
		v.Col = []float64{}
	default:
		v.Col = &types.Bytes{}
	}
	return v
}

func NewFixed[T types.FixedSizeT](vs []T) *Vector {
	return &Vector{Typ: types.TypeOf[T]().ToType(), Col: vs}
}

func NewBytes(typ types.Type, col *types.Bytes) *Vector {
	return &Vector{Typ: typ, Col: col}
}

func NewStrings(vs ...string) *Vector {
	return NewBytes(types.T_varchar.ToType(), types.NewBytesFromStrings(vs...))
}

// PhysicalLen is the number of stored values.
func (v *Vector) PhysicalLen() int {
	switch col := v.Col.(type) {
	case *types.Bytes:
		return col.Len()
	case []bool:
		return len(col)
	case []int8:
		return len(col)
	case []int16:
		return len(col)
	case []int32:
		return len(col)
	case []int64:
		return len(col)
	case []uint8:
		return len(col)
	case []uint16:
		return len(col)
	case []uint32:
		return len(col)
	case []uint64:
		return len(col)
	case []float32:
		return len(col)
	case []float64:
		return len(col)
	}
	return 0
}

// Length is the number of logical rows.
func (v *Vector) Length() int {
	if v.Index != nil {
		return len(v.Index)
	}
	return v.PhysicalLen()
}

// Row resolves logical row i to its physical row. ok is false when the row
// is null.
func (v *Vector) Row(i int) (row int64, ok bool) {
	row = int64(i)
	if v.Index != nil {
		row = v.Index[i]
		if row == NullRow {
			return NullRow, false
		}
	}
	return row, v.Bitmap.IsValid(i)
}

func (v *Vector) IsNull(i int) bool {
	_, ok := v.Row(i)
	return !ok
}

// Nulls returns the null logical rows.
func (v *Vector) Nulls() *nulls.Nulls {
	nsp := &nulls.Nulls{}
	for i, n := 0, v.Length(); i < n; i++ {
		if v.IsNull(i) {
			nulls.Add(nsp, uint64(i))
		}
	}
	return nsp
}

// SetNulls marks the rows of nsp null, keeping rows already null.
func (v *Vector) SetNulls(ctx context.Context, nsp *nulls.Nulls) error {
	bm, err := bitmap.FromNulls(ctx, nsp, v.Length())
	if err != nil {
		return err
	}
	if v.Bitmap != nil && len(v.Bitmap) != v.Length() {
		return moerr.NewShapeMismatch(ctx, "bitmap %d rows, column %d rows", len(v.Bitmap), v.Length())
	}
	v.Bitmap, err = bitmap.And(ctx, v.Bitmap, bm)
	return err
}

// Validate checks that the data, index and bitmap of v agree.
func (v *Vector) Validate(ctx context.Context) error {
	if !colMatches(v.Typ.Oid, v.Col) {
		return moerr.NewTypeMismatch(ctx, v.Typ.String(), fmt.Sprintf("%T", v.Col))
	}
	if col, ok := v.Col.(*types.Bytes); ok && !col.Consistent() {
		return moerr.NewShapeMismatch(ctx, "bytes column: %d offsets, %d lengths, %d data bytes",
			len(col.Offsets), len(col.Lengths), len(col.Data))
	}
	n := int64(v.PhysicalLen())
	for i, row := range v.Index {
		if row != NullRow && (row < 0 || row >= n) {
			return moerr.NewInvalidIndex(ctx, "index entry %d is %d, column has %d rows", i, row, n)
		}
	}
	if v.Bitmap != nil && len(v.Bitmap) != v.Length() {
		return moerr.NewShapeMismatch(ctx, "bitmap %d rows, column %d rows", len(v.Bitmap), v.Length())
	}
	return nil
}

func colMatches(oid types.T, col any) bool {
	switch col.(type) {
	case []bool:
		return oid == types.T_bool
	case []int8:
		return oid == types.T_int8
	case []int16:
		return oid == types.T_int16
	case []int32:
		return oid == types.T_int32
	case []int64:
		return oid == types.T_int64
	case []uint8:
		return oid == types.T_uint8
	case []uint16:
		return oid == types.T_uint16
	case []uint32:
		return oid == types.T_uint32
	case []uint64:
		return oid == types.T_uint64
	case []float32:
		return oid == types.T_float32
	case []float64:
		return oid == types.T_float64
	case *types.Bytes:
		return oid.IsVarlen()
	}
	return false
}

// GetFixedCol returns the values of a fixed width column.
func GetFixedCol[T types.FixedSizeT](ctx context.Context, v *Vector) ([]T, error) {
	col, ok := v.Col.([]T)
	if !ok {
		return nil, moerr.NewTypeMismatch(ctx, v.Typ.String(), fmt.Sprintf("%T", []T(nil)))
	}
	return col, nil
}

func MustFixedCol[T types.FixedSizeT](v *Vector) []T {
	col, err := GetFixedCol[T](moerr.Context(), v)
	if err != nil {
		panic(err)
	}
	return col
}

func GetBytesCol(ctx context.Context, v *Vector) (*types.Bytes, error) {
	col, ok := v.Col.(*types.Bytes)
	if !ok {
		return nil, moerr.NewTypeMismatch(ctx, v.Typ.String(), "*types.Bytes")
	}
	return col, nil
}

func MustBytesCol(v *Vector) *types.Bytes {
	col, err := GetBytesCol(moerr.Context(), v)
	if err != nil {
		panic(err)
	}
	return col
}

// Value returns logical row i boxed, nil when the row is null. Strings are
// returned as []byte.
func (v *Vector) Value(i int) any {
	row, ok := v.Row(i)
	if !ok {
		return nil
	}
	switch col := v.Col.(type) {
	case *types.Bytes:
		return col.Get(row)
	case []bool:
		return col[row]
	case []int8:
		return col[row]
	case []int16:
		return col[row]
	case []int32:
		return col[row]
	case []int64:
		return col[row]
	case []uint8:
		return col[row]
	case []uint16:
		return col[row]
	case []uint32:
		return col[row]
	case []uint64:
		return col[row]
	case []float32:
		return col[row]
	case []float64:
		return col[row]
	}
	return nil
}

// KeyEqual reports whether logical row i of a and logical row j of b hold
// the same non-null value. Columns of different kinds are never equal.
func KeyEqual(a *Vector, i int, b *Vector, j int) bool {
	if a.Typ.Oid != b.Typ.Oid {
		return false
	}
	ri, ok := a.Row(i)
	if !ok {
		return false
	}
	rj, ok := b.Row(j)
	if !ok {
		return false
	}
	switch ca := a.Col.(type) {
	case *types.Bytes:
		return bytes.Equal(ca.Get(ri), b.Col.(*types.Bytes).Get(rj))
	case []bool:
		return ca[ri] == b.Col.([]bool)[rj]
	case []int8:
		return ca[ri] == b.Col.([]int8)[rj]
	case []int16:
		return ca[ri] == b.Col.([]int16)[rj]
	case []int32:
		return ca[ri] == b.Col.([]int32)[rj]
	case []int64:
		return ca[ri] == b.Col.([]int64)[rj]
	case []uint8:
		return ca[ri] == b.Col.([]uint8)[rj]
	case []uint16:
		return ca[ri] == b.Col.([]uint16)[rj]
	case []uint32:
		return ca[ri] == b.Col.([]uint32)[rj]
	case []uint64:
		return ca[ri] == b.Col.([]uint64)[rj]
	case []float32:
		return ca[ri] == b.Col.([]float32)[rj]
	case []float64:
		return ca[ri] == b.Col.([]float64)[rj]
	}
	return false
}

// Take returns a column sharing the data of v whose logical row i is
// logical row idx[i] of v. No value is copied.
func (v *Vector) Take(ctx context.Context, idx Index) (*Vector, error) {
	n := int64(v.Length())
	out := &Vector{Typ: v.Typ, Col: v.Col, Index: make(Index, len(idx))}
	if v.Bitmap != nil {
		out.Bitmap = bitmap.New(len(idx))
	}
	for i, sel := range idx {
		if sel == NullRow {
			out.Index[i] = NullRow
			if out.Bitmap != nil {
				out.Bitmap[i] = bitmap.Null
			}
			continue
		}
		if sel < 0 || sel >= n {
			return nil, moerr.NewInvalidIndex(ctx, "take row %d of %d rows", sel, n)
		}
		row := sel
		if v.Index != nil {
			row = v.Index[sel]
		}
		out.Index[i] = row
		if out.Bitmap != nil {
			out.Bitmap[i] = v.Bitmap[sel]
		}
	}
	return out, nil
}

func (v *Vector) String() string {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, n := 0, v.Length(); i < n; i++ {
		if i > 0 {
			buf.WriteByte(' ')
		}
		switch val := v.Value(i).(type) {
		case nil:
			buf.WriteString("null")
		case []byte:
			buf.Write(val)
		default:
			fmt.Fprintf(&buf, "%v", val)
		}
	}
	buf.WriteByte(']')
	return buf.String()
}
