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

package partition

import (
	"bytes"

	"github.com/matrixorigin/moradix/pkg/container/types"
	"github.com/matrixorigin/moradix/pkg/container/vector"
)

// Partitions will return the rowSels; vs[rowSel] != vs[last_rowSel].
// by default, the 0th row is always not equal to the one before it
// (though it doesn't exist)
//
// sels lists the logical rows of vec to scan, nil scans every row in order.
// diffs may carry boundaries found on a previous key column; it is grown
// when shorter than the scan. Null equals null and differs from any value.
func Partition(sels []int64, diffs []bool, partitions []int64, vec *vector.Vector) []int64 {
	n := len(sels)
	if sels == nil {
		n = vec.Length()
	}
	partitions = partitions[:0]
	if n == 0 {
		return partitions
	}
	if len(diffs) < n {
		diffs = append(diffs, make([]bool, n-len(diffs))...)
	}
	diffs = diffs[:n]
	diffs[0] = true
	switch col := vec.Col.(type) {
	case []bool:
		partitionFixed(sels, diffs, vec, col)
	case []int8:
		partitionFixed(sels, diffs, vec, col)
	case []int16:
		partitionFixed(sels, diffs, vec, col)
	case []int32:
		partitionFixed(sels, diffs, vec, col)
	case []int64:
		partitionFixed(sels, diffs, vec, col)
	case []uint8:
		partitionFixed(sels, diffs, vec, col)
	case []uint16:
		partitionFixed(sels, diffs, vec, col)
	case []uint32:
		partitionFixed(sels, diffs, vec, col)
	case []uint64:
		partitionFixed(sels, diffs, vec, col)
	case []float32:
		partitionFixed(sels, diffs, vec, col)
	case []float64:
		partitionFixed(sels, diffs, vec, col)
	case *types.Bytes:
		partitionBytes(sels, diffs, vec, col)
	}
	for i, j := range diffs {
		if j {
			partitions = append(partitions, int64(i))
		}
	}
	return partitions
}

func partitionFixed[T comparable](sels []int64, diffs []bool, vec *vector.Vector, vs []T) {
	var n bool
	var v T

	for i := range diffs {
		sel := int64(i)
		if sels != nil {
			sel = sels[i]
		}
		row, ok := vec.Row(int(sel))
		isNull := !ok
		if n != isNull {
			diffs[i] = true
		} else if !isNull {
			diffs[i] = diffs[i] || (v != vs[row])
		}
		if !isNull {
			v = vs[row]
		}
		n = isNull
	}
}

func partitionBytes(sels []int64, diffs []bool, vec *vector.Vector, vs *types.Bytes) {
	var n bool
	var v []byte

	for i := range diffs {
		sel := int64(i)
		if sels != nil {
			sel = sels[i]
		}
		row, ok := vec.Row(int(sel))
		isNull := !ok
		if n != isNull {
			diffs[i] = true
		} else if !isNull {
			diffs[i] = diffs[i] || !bytes.Equal(v, vs.Get(row))
		}
		if !isNull {
			v = vs.Get(row)
		}
		n = isNull
	}
}
