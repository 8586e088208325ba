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


package hashjoin

import (
	"context"
	"math/bits"

	"go.uber.org/zap"

	"github.com/matrixorigin/moradix/pkg/common/moerr"
	"github.com/matrixorigin/moradix/pkg/hash"
	"github.com/matrixorigin/moradix/pkg/logutil/logutil2"
	"github.com/matrixorigin/moradix/pkg/radix"
	v2 "github.com/matrixorigin/moradix/pkg/util/metric/v2"
)

// BuildInd joins two hash columns that were partitioned into the same outer
// bucket and returns the matching row pairs as two parallel slices. Rows
// match when their digests are equal; null digests never match.
//
// The build side is hashed into nextPow2(len(left)) inner buckets taken from
// the hash bits above the outer radix, so rows of one outer bucket spread
// over the whole table. outerBucketsCount must be a power of two.
func BuildInd(ctx context.Context, left, right []uint64, outerBucketsCount uint64) ([]int64, []int64, error) {
	if outerBucketsCount == 0 || outerBucketsCount&(outerBucketsCount-1) != 0 {
		return nil, nil, moerr.NewInvalidInput(ctx, "outer buckets count %d is not a power of two", outerBucketsCount)
	}
	if len(left) == 0 || len(right) == 0 {
		return []int64{}, []int64{}, nil
	}

	skip := bits.TrailingZeros64(outerBucketsCount)
	innerBits := bits.Len64(uint64(len(left)) - 1)
	lbc, err := radix.FromHashLevel(ctx, &hash.Column{Hashes: left}, innerBits, skip)
	if err != nil {
		return nil, nil, err
	}
	rbc, err := radix.FromHashLevel(ctx, &hash.Column{Hashes: right}, innerBits, skip)
	if err != nil {
		return nil, nil, err
	}

	ctr := &container{}
	ctr.build(lbc, innerBits)
	ls, rs := ctr.probe(left, right, rbc)

	v2.AddRows(v2.RadixJoinPairsCounter, len(ls))
	logutil2.Debug(ctx, "hash join bucket",
		zap.Int("build rows", len(left)),
		zap.Int("probe rows", len(right)),
		zap.Int("inner bits", innerBits),
		zap.Int("pairs", len(ls)))
	return ls, rs, nil
}

func (ctr *container) build(lbc *radix.BucketColumn, innerBits int) {
	ctr.vhash = make([]int64, 1<<innerBits)
	ctr.vlink = make([]int64, lbc.Len()+1)
	for i, id := range lbc.Ids {
		if id&1 == 1 {
			continue
		}
		b := id >> 1
		if ctr.vhash[b] == 0 {
			ctr.live++
		}
		ctr.vlink[i+1] = ctr.vhash[b]
		ctr.vhash[b] = int64(i + 1)
	}
}

// probe scans the probe side once per chain step: every pass compares each
// probe row with the current head of its bucket, then moves all heads one
// link down.
func (ctr *container) probe(left, right []uint64, rbc *radix.BucketColumn) ([]int64, []int64) {
	ls := make([]int64, 0, len(right))
	rs := make([]int64, 0, len(right))
	for ctr.live > 0 {
		for j, id := range rbc.Ids {
			if id&1 == 1 {
				continue
			}
			if l := ctr.vhash[id>>1]; l != 0 && left[l-1] == right[j] {
				ls = append(ls, l-1)
				rs = append(rs, int64(j))
			}
		}
		for b, l := range ctr.vhash {
			if l == 0 {
				continue
			}
			ctr.vhash[b] = ctr.vlink[l]
			if ctr.vhash[b] == 0 {
				ctr.live--
			}
		}
	}
	return ls, rs
}
