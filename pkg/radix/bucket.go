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

	"github.com/matrixorigin/moradix/pkg/common/moerr"
	"github.com/matrixorigin/moradix/pkg/hash"
)

// MaxBucketBits is the widest radix that still leaves room for the null
// bit in a 64 bit id.
const MaxBucketBits = 62

// BucketColumn assigns every row a bucket id in [0, 2*Count()). Even ids are
// real buckets doubled, odd ids are null rows.
type BucketColumn struct {
	Ids  []uint64
	Bits int
}

func (bc *BucketColumn) Count() uint64 {
	return 1 << bc.Bits
}

func (bc *BucketColumn) Len() int {
	return len(bc.Ids)
}

func (bc *BucketColumn) IsNull(i int) bool {
	return bc.Ids[i]&1 == 1
}

// Bucket returns the real bucket of row i, meaningless for a null row.
func (bc *BucketColumn) Bucket(i int) uint64 {
	return bc.Ids[i] >> 1
}

// FromHash buckets every row by the low bits of its digest: the id is
// hash % (2 * 2^bits).
func FromHash(ctx context.Context, hc *hash.Column, bits int) (*BucketColumn, error) {
	return FromHashLevel(ctx, hc, bits, 0)
}

// FromHashLevel buckets every row by bits of the real hash starting after
// the skipBits lowest ones. The null bit is carried over.
func FromHashLevel(ctx context.Context, hc *hash.Column, bits, skipBits int) (*BucketColumn, error) {
	if err := checkBits(ctx, bits); err != nil {
		return nil, err
	}
	if skipBits < 0 || skipBits+bits > 63 {
		return nil, moerr.NewOverflow(ctx, "skip %d bits then take %d bits of a 63 bit hash", skipBits, bits)
	}
	mask := uint64(1)<<bits - 1
	ids := make([]uint64, len(hc.Hashes))
	for i, h := range hc.Hashes {
		ids[i] = (((h>>1)>>skipBits)&mask)<<1 | h&1
	}
	return &BucketColumn{Ids: ids, Bits: bits}, nil
}

// NewBucketColumn wraps precomputed ids.
func NewBucketColumn(ctx context.Context, ids []uint64, bits int) (*BucketColumn, error) {
	if err := checkBits(ctx, bits); err != nil {
		return nil, err
	}
	limit := uint64(2) << bits
	for i, id := range ids {
		if id >= limit {
			return nil, moerr.NewInvalidIndex(ctx, "bucket id %d of row %d, %d buckets", id, i, uint64(1)<<bits)
		}
	}
	return &BucketColumn{Ids: ids, Bits: bits}, nil
}

func checkBits(ctx context.Context, bits int) error {
	if bits < 0 || bits > MaxBucketBits {
		return moerr.NewOverflow(ctx, "%d bucket bits, at most %d", bits, MaxBucketBits)
	}
	return nil
}
