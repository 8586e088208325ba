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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/moradix/pkg/common/moerr"
)

func TestBucketsSizeMap(t *testing.T) {
	exec := newExecutor(t, 2)
	bc := mustBuckets(t, []uint64{1, 2, 4, 6, 0, 2}, 2)
	sm := mustSizeMap(t, exec, bc, 2)

	require.Equal(t, 3, sm.ChunkLen)
	require.Equal(t, []Chunk{{0, 0, 3}, {0, 3, 6}}, sm.Chunks)
	require.Equal(t, [][]uint64{{0, 1, 1, 0}, {1, 1, 0, 1}}, sm.Histogram)
	require.Equal(t, [][]uint64{{0, 0, 0, 0}, {0, 1, 1, 0}}, sm.Offsets)
	require.Equal(t, []uint64{1, 2, 1, 1}, sm.BucketSizes)
	require.Equal(t, 4, sm.Buckets())
	require.Equal(t, 2, sm.Bits())
	require.Equal(t, uint64(5), sm.Total())
	require.Equal(t, 6, sm.Rows())
}

func TestBucketSizesCountEvenIds(t *testing.T) {
	ctx := context.Background()
	r := rand.New(rand.NewSource(11))
	hc := randomHashes(r, 5000, 7)
	bc, err := FromHash(ctx, hc, 6)
	require.NoError(t, err)

	even := uint64(0)
	for _, id := range bc.Ids {
		if id&1 == 0 {
			even++
		}
	}
	for _, workers := range []int{1, 3, 8, 64} {
		sm := mustSizeMap(t, newExecutor(t, 4), bc, workers)
		require.Equal(t, even, sm.Total(), "workers %d", workers)
		require.LessOrEqual(t, len(sm.Chunks), workers)
	}
}

func TestSizeMapEmpty(t *testing.T) {
	sm := mustSizeMap(t, newExecutor(t, 2), mustBuckets(t, nil, 3), 4)
	require.Empty(t, sm.Chunks)
	require.Equal(t, make([]uint64, 8), sm.BucketSizes)
}

func TestSizeMapCheck(t *testing.T) {
	ctx := context.Background()
	sm := mustSizeMap(t, newExecutor(t, 2), mustBuckets(t, []uint64{0, 2, 0, 2}, 1), 2)
	sm.Offsets[1][0]++
	require.True(t, moerr.IsMoErrCode(sm.Check(ctx), moerr.ErrInternal))
	sm.Offsets[1][0]--
	sm.BucketSizes[1]++
	require.True(t, moerr.IsMoErrCode(sm.Check(ctx), moerr.ErrInternal))
}

func TestFromPartitionedBuckets(t *testing.T) {
	ctx := context.Background()
	exec := newExecutor(t, 2)
	parts := []*BucketColumn{
		mustBuckets(t, []uint64{0, 4, 1}, 2),
		mustBuckets(t, nil, 2),
		mustBuckets(t, []uint64{6, 4}, 2),
	}
	sm, err := FromPartitionedBuckets(ctx, exec, parts)
	require.NoError(t, err)
	require.NoError(t, sm.Check(ctx))
	require.Equal(t, 0, sm.ChunkLen)
	require.Equal(t, []Chunk{{0, 0, 3}, {1, 0, 0}, {2, 0, 2}}, sm.Chunks)
	require.Equal(t, []uint64{1, 0, 2, 1}, sm.BucketSizes)
	require.Equal(t, []uint64{1, 0, 1, 0}, sm.Offsets[2])

	_, err = FromPartitionedBuckets(ctx, exec, []*BucketColumn{parts[0], mustBuckets(t, nil, 3)})
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrShapeMismatch))
	_, err = FromPartitionedBuckets(ctx, exec, nil)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))
	_, err = FromBucketColumn(ctx, exec, parts[0], 0)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))
}
