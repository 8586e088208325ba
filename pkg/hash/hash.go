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

// Package hash computes per row digests of columns. The low bit of a digest
// is the null flag: a null row hashes to exactly NullHash and a valid row to
// hasher(value) << 1.
package hash

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/exp/constraints"

	"github.com/matrixorigin/moradix/pkg/common/concurrent"
	"github.com/matrixorigin/moradix/pkg/common/moerr"
	"github.com/matrixorigin/moradix/pkg/container/types"
	"github.com/matrixorigin/moradix/pkg/container/vector"
)

const NullHash uint64 = 1

type Hasher interface {
	HashUint64(v uint64) uint64
	HashBytes(v []byte) uint64
}

type XXHasher struct{}

func (XXHasher) HashUint64(v uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return xxhash.Sum64(buf[:])
}

func (XXHasher) HashBytes(v []byte) uint64 {
	return xxhash.Sum64(v)
}

var DefaultHasher Hasher = XXHasher{}

// Column holds one digest per logical row of its source column.
type Column struct {
	Hashes []uint64
}

func (c *Column) Len() int {
	return len(c.Hashes)
}

func (c *Column) IsNull(i int) bool {
	return c.Hashes[i]&NullHash == NullHash
}

// Vector exposes the digests as a BIGINT UNSIGNED column sharing storage.
func (c *Column) Vector() *vector.Vector {
	return vector.NewFixed(c.Hashes)
}

// HashColumn hashes every logical row of vec.
func HashColumn(ctx context.Context, exec *concurrent.Executor, vec *vector.Vector, hasher Hasher) (*Column, error) {
	if err := vec.Validate(ctx); err != nil {
		return nil, err
	}
	hc := &Column{Hashes: make([]uint64, vec.Length())}
	if err := hashRows(ctx, exec, vec, hasher, hc.Hashes, false); err != nil {
		return nil, err
	}
	return hc, nil
}

// HashAppend mixes vec into hc by wrapping addition. Rows already null in hc
// are left untouched and rows null in vec become null, so once a row is null
// it stays NullHash.
func HashAppend(ctx context.Context, exec *concurrent.Executor, vec *vector.Vector, hasher Hasher, hc *Column) error {
	if err := vec.Validate(ctx); err != nil {
		return err
	}
	if vec.Length() != hc.Len() {
		return moerr.NewShapeMismatch(ctx, "hash append: column %d rows, hash column %d rows", vec.Length(), hc.Len())
	}
	return hashRows(ctx, exec, vec, hasher, hc.Hashes, true)
}

func hashRows(ctx context.Context, exec *concurrent.Executor, vec *vector.Vector, hasher Hasher, out []uint64, mix bool) error {
	if hasher == nil {
		hasher = DefaultHasher
	}
	n := len(out)
	return exec.Chunks(ctx, n, exec.ChunkLen(n), func(ctx context.Context, _, start, end int) error {
		switch col := vec.Col.(type) {
		case *types.Bytes:
			hashBytes(vec, col, hasher, out, start, end, mix)
		case []bool:
			hashFixed(vec, col, widenBool, hasher, out, start, end, mix)
		case []int8:
			hashFixed(vec, col, widenSigned[int8], hasher, out, start, end, mix)
		case []int16:
			hashFixed(vec, col, widenSigned[int16], hasher, out, start, end, mix)
		case []int32:
			hashFixed(vec, col, widenSigned[int32], hasher, out, start, end, mix)
		case []int64:
			hashFixed(vec, col, widenSigned[int64], hasher, out, start, end, mix)
		case []uint8:
			hashFixed(vec, col, widenUnsigned[uint8], hasher, out, start, end, mix)
		case []uint16:
			hashFixed(vec, col, widenUnsigned[uint16], hasher, out, start, end, mix)
		case []uint32:
			hashFixed(vec, col, widenUnsigned[uint32], hasher, out, start, end, mix)
		case []uint64:
			hashFixed(vec, col, widenUnsigned[uint64], hasher, out, start, end, mix)
		case []float32:
			hashFixed(vec, col, widenFloat32, hasher, out, start, end, mix)
		case []float64:
			hashFixed(vec, col, widenFloat64, hasher, out, start, end, mix)
		default:
			return moerr.NewUnsupportedOperation(ctx, "hash", vec.Typ.String())
		}
		return nil
	})
}

func hashFixed[T any](vec *vector.Vector, col []T, widen func(T) uint64, hasher Hasher,
	out []uint64, start, end int, mix bool) {
	for i := start; i < end; i++ {
		if mix && out[i]&NullHash == NullHash {
			continue
		}
		row, ok := vec.Row(i)
		if !ok {
			out[i] = NullHash
			continue
		}
		h := hasher.HashUint64(widen(col[row])) << 1
		if mix {
			out[i] += h
		} else {
			out[i] = h
		}
	}
}

func hashBytes(vec *vector.Vector, col *types.Bytes, hasher Hasher, out []uint64, start, end int, mix bool) {
	for i := start; i < end; i++ {
		if mix && out[i]&NullHash == NullHash {
			continue
		}
		row, ok := vec.Row(i)
		if !ok {
			out[i] = NullHash
			continue
		}
		h := hasher.HashBytes(col.Get(row)) << 1
		if mix {
			out[i] += h
		} else {
			out[i] = h
		}
	}
}

func widenSigned[T constraints.Signed](v T) uint64 {
	return uint64(int64(v))
}

func widenUnsigned[T constraints.Unsigned](v T) uint64 {
	return uint64(v)
}

// Floats hash by value: -0 and +0 share a digest, as do all NaN payloads.
func widenFloat32(v float32) uint64 {
	switch {
	case v == 0:
		return 0
	case v != v:
		return uint64(math.Float32bits(float32(math.NaN())))
	}
	return uint64(math.Float32bits(v))
}

func widenFloat64(v float64) uint64 {
	switch {
	case v == 0:
		return 0
	case v != v:
		return math.Float64bits(math.NaN())
	}
	return math.Float64bits(v)
}

func widenBool(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}
