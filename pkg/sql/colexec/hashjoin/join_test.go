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
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/moradix/pkg/common/moerr"
	"github.com/matrixorigin/moradix/pkg/hash"
)

type pair struct{ l, r int64 }

func pairsOf(t *testing.T, ls, rs []int64) []pair {
	require.Equal(t, len(ls), len(rs))
	ps := make([]pair, len(ls))
	for i := range ls {
		ps[i] = pair{ls[i], rs[i]}
	}
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].l != ps[j].l {
			return ps[i].l < ps[j].l
		}
		return ps[i].r < ps[j].r
	})
	return ps
}

func nestedLoop(left, right []uint64) []pair {
	var ps []pair
	for i, l := range left {
		if l&hash.NullHash == hash.NullHash {
			continue
		}
		for j, r := range right {
			if l == r {
				ps = append(ps, pair{int64(i), int64(j)})
			}
		}
	}
	return ps
}

func TestBuildIndDuplicates(t *testing.T) {
	hs := []uint64{8, 2, 2, 2, 2, 6}
	ls, rs, err := BuildInd(context.Background(), hs, hs, 2)
	require.NoError(t, err)

	want := []pair{{0, 0}}
	for i := int64(1); i <= 4; i++ {
		for j := int64(1); j <= 4; j++ {
			want = append(want, pair{i, j})
		}
	}
	want = append(want, pair{5, 5})
	require.Equal(t, want, pairsOf(t, ls, rs))
}

func TestBuildIndEmpty(t *testing.T) {
	ls, rs, err := BuildInd(context.Background(), nil, []uint64{2}, 4)
	require.NoError(t, err)
	require.Empty(t, ls)
	require.Empty(t, rs)
	require.NotNil(t, ls)

	ls, rs, err = BuildInd(context.Background(), []uint64{2}, []uint64{}, 4)
	require.NoError(t, err)
	require.Empty(t, ls)
	require.Empty(t, rs)
}

func TestBuildIndOuterCount(t *testing.T) {
	for _, outer := range []uint64{0, 3, 6} {
		_, _, err := BuildInd(context.Background(), []uint64{2}, []uint64{2}, outer)
		require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput), "outer %d", outer)
	}
}

func TestBuildIndNulls(t *testing.T) {
	left := []uint64{hash.NullHash, 4, hash.NullHash}
	right := []uint64{hash.NullHash, 4}
	ls, rs, err := BuildInd(context.Background(), left, right, 1)
	require.NoError(t, err)
	require.Equal(t, []pair{{1, 1}}, pairsOf(t, ls, rs))
}

func TestBuildIndRandom(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for _, outer := range []uint64{1, 4, 64} {
		left := make([]uint64, 300)
		right := make([]uint64, 200)
		for i := range left {
			left[i] = uint64(r.Intn(40)) << 1
			if r.Intn(25) == 0 {
				left[i] = hash.NullHash
			}
		}
		for i := range right {
			right[i] = uint64(r.Intn(40)) << 1
		}
		ls, rs, err := BuildInd(context.Background(), left, right, outer)
		require.NoError(t, err)
		require.Equal(t, nestedLoop(left, right), pairsOf(t, ls, rs), "outer %d", outer)
	}
}
