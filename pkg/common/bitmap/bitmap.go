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

package bitmap

import (
	"bytes"
	"context"

	"github.com/matrixorigin/moradix/pkg/common/moerr"
	"github.com/matrixorigin/moradix/pkg/container/nulls"
)

const (
	Null  uint8 = 0
	Valid uint8 = 1
)

// Bitmap is a validity mask with one byte per logical row. A Null byte
// marks a null row, any other byte a valid one. A nil Bitmap marks every
// row valid.
//
// Bytes instead of bits keep the scatter writers of a partition free of
// read-modify-write on shared words.
type Bitmap []uint8

// New returns a bitmap of n valid rows.
func New(n int) Bitmap {
	b := make(Bitmap, n)
	for i := range b {
		b[i] = Valid
	}
	return b
}

func (b Bitmap) Len() int {
	return len(b)
}

// IsValid reports whether row i is valid. Every row of a nil bitmap is.
func (b Bitmap) IsValid(i int) bool {
	return b == nil || b[i] != Null
}

func (b Bitmap) NullCount() int {
	if b == nil {
		return 0
	}
	return bytes.Count(b, []byte{Null})
}

func (b Bitmap) Clone() Bitmap {
	if b == nil {
		return nil
	}
	r := make(Bitmap, len(b))
	copy(r, b)
	return r
}

// And returns a row valid iff it is valid in both a and b.
func And(ctx context.Context, a, b Bitmap) (Bitmap, error) {
	switch {
	case a == nil:
		return b.Clone(), nil
	case b == nil:
		return a.Clone(), nil
	case len(a) != len(b):
		return nil, moerr.NewShapeMismatch(ctx, "bitmap and: %d vs %d rows", len(a), len(b))
	}
	r := make(Bitmap, len(a))
	for i := range a {
		if a[i] != Null && b[i] != Null {
			r[i] = Valid
		}
	}
	return r, nil
}

// Or returns a row valid iff it is valid in a or b.
func Or(ctx context.Context, a, b Bitmap) (Bitmap, error) {
	if a == nil || b == nil {
		return nil, nil
	}
	if len(a) != len(b) {
		return nil, moerr.NewShapeMismatch(ctx, "bitmap or: %d vs %d rows", len(a), len(b))
	}
	r := make(Bitmap, len(a))
	for i := range a {
		if a[i] != Null || b[i] != Null {
			r[i] = Valid
		}
	}
	return r, nil
}

// FromNulls builds the validity of n rows whose null rows are nsp.
func FromNulls(ctx context.Context, nsp *nulls.Nulls, n int) (Bitmap, error) {
	if !nulls.Any(nsp) {
		return nil, nil
	}
	if last := nsp.Np.Maximum(); last >= uint64(n) {
		return nil, moerr.NewInvalidIndex(ctx, "null row %d of %d rows", last, n)
	}
	b := New(n)
	nulls.Foreach(nsp, func(row uint64) {
		b[row] = Null
	})
	return b, nil
}

func (b Bitmap) ToNulls() *nulls.Nulls {
	nsp := &nulls.Nulls{}
	for i, v := range b {
		if v == Null {
			nulls.Add(nsp, uint64(i))
		}
	}
	return nsp
}
