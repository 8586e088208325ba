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
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/moradix/pkg/common/concurrent"
	"github.com/matrixorigin/moradix/pkg/container/vector"
	"github.com/matrixorigin/moradix/pkg/hash"
)

func newExecutor(t *testing.T, workers int) *concurrent.Executor {
	e, err := concurrent.NewExecutor(workers)
	require.NoError(t, err)
	t.Cleanup(e.Release)
	return e
}

func mustBuckets(t *testing.T, ids []uint64, bits int) *BucketColumn {
	bc, err := NewBucketColumn(context.Background(), ids, bits)
	require.NoError(t, err)
	return bc
}

func mustSizeMap(t *testing.T, exec *concurrent.Executor, bc *BucketColumn, workers int) *BucketsSizeMap {
	sm, err := FromBucketColumn(context.Background(), exec, bc, workers)
	require.NoError(t, err)
	require.NoError(t, sm.Check(context.Background()))
	return sm
}

// randomHashes returns n digests, roughly one in nullEvery null.
func randomHashes(r *rand.Rand, n, nullEvery int) *hash.Column {
	hc := &hash.Column{Hashes: make([]uint64, n)}
	for i := range hc.Hashes {
		if nullEvery > 0 && r.Intn(nullEvery) == 0 {
			hc.Hashes[i] = hash.NullHash
		} else {
			hc.Hashes[i] = r.Uint64() &^ 1
		}
	}
	return hc
}

// bucketValues renders every part as a sorted multiset of values.
func bucketValues(p *Partitioned) [][]string {
	out := make([][]string, len(p.Parts))
	for b, part := range p.Parts {
		vals := make([]string, part.Length())
		for i := range vals {
			vals[i] = fmt.Sprint(part.Value(i))
		}
		sort.Strings(vals)
		out[b] = vals
	}
	return out
}

func flatValues(vec *vector.Vector) []string {
	vals := make([]string, vec.Length())
	for i := range vals {
		vals[i] = fmt.Sprint(vec.Value(i))
	}
	sort.Strings(vals)
	return vals
}
