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

// Package nulls wrap up functions for the manipulation of bitmap library roaring.
// A Nulls holds the logical row numbers of a column that are NULL.
package nulls

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/roaring64"
)

type Nulls struct {
	Np *roaring64.Bitmap
}

func Build(rows ...uint64) *Nulls {
	nsp := &Nulls{}
	Add(nsp, rows...)
	return nsp
}

// Any returns true if any bit in the Nulls is set, otherwise it will return false.
func Any(nsp *Nulls) bool {
	if nsp == nil || nsp.Np == nil {
		return false
	}
	return !nsp.Np.IsEmpty()
}

// Length returns the number of integers contained in the Nulls
func Length(nsp *Nulls) int {
	if nsp == nil || nsp.Np == nil {
		return 0
	}
	return int(nsp.Np.GetCardinality())
}

func String(nsp *Nulls) string {
	if nsp == nil || nsp.Np == nil {
		return "[]"
	}
	return fmt.Sprintf("%v", nsp.Np.ToArray())
}

// Contains returns true if the integer is contained in the Nulls
func Contains(nsp *Nulls, row uint64) bool {
	if nsp == nil || nsp.Np == nil {
		return false
	}
	return nsp.Np.Contains(row)
}

func Add(nsp *Nulls, rows ...uint64) {
	if len(rows) == 0 {
		return
	}
	if nsp.Np == nil {
		nsp.Np = roaring64.BitmapOf(rows...)
		return
	}
	nsp.Np.AddMany(rows)
}

func Del(nsp *Nulls, rows ...uint64) {
	if nsp.Np == nil {
		return
	}
	for _, row := range rows {
		nsp.Np.Remove(row)
	}
}

// Or performs union operation on Nulls nsp,m and store the result in r
func Or(nsp, m, r *Nulls) {
	switch {
	case !Any(nsp) && !Any(m):
		r.Np = nil
	case !Any(m):
		r.Np = nsp.Np.Clone()
	case !Any(nsp):
		r.Np = m.Np.Clone()
	default:
		r.Np = roaring64.Or(nsp.Np, m.Np)
	}
}

// Foreach calls fn for every null row in ascending order.
func Foreach(nsp *Nulls, fn func(row uint64)) {
	if !Any(nsp) {
		return
	}
	itr := nsp.Np.Iterator()
	for itr.HasNext() {
		fn(itr.Next())
	}
}

// Filter returns the nulls of the column obtained by taking rows sels, in
// that order. Row i of the result is null iff sels[i] is null in nsp.
func Filter(nsp *Nulls, sels []int64) *Nulls {
	r := &Nulls{}
	if !Any(nsp) {
		return r
	}
	for i, sel := range sels {
		if nsp.Np.Contains(uint64(sel)) {
			Add(r, uint64(i))
		}
	}
	return r
}

func Clone(nsp *Nulls) *Nulls {
	if nsp == nil || nsp.Np == nil {
		return &Nulls{}
	}
	return &Nulls{Np: nsp.Np.Clone()}
}
