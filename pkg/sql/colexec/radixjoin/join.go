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

package radixjoin

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/matrixorigin/moradix/pkg/common/concurrent"
	"github.com/matrixorigin/moradix/pkg/common/moerr"
	"github.com/matrixorigin/moradix/pkg/config"
	"github.com/matrixorigin/moradix/pkg/container/vector"
	"github.com/matrixorigin/moradix/pkg/hash"
	"github.com/matrixorigin/moradix/pkg/logutil/logutil2"
	"github.com/matrixorigin/moradix/pkg/radix"
	"github.com/matrixorigin/moradix/pkg/sql/colexec/hashjoin"
	v2 "github.com/matrixorigin/moradix/pkg/util/metric/v2"
)

func New(cfg *config.Config, exec *concurrent.Executor) (*Join, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Join{cfg: cfg, exec: exec}, nil
}

// Run joins the rows of leftKeys and rightKeys whose keys are all equal.
// Rows with a null key join nothing. The order of the pairs follows the
// buckets and is otherwise unspecified.
func (j *Join) Run(ctx context.Context, leftKeys, rightKeys []*vector.Vector) (*Result, error) {
	if err := checkKeys(ctx, leftKeys, rightKeys); err != nil {
		return nil, err
	}
	keys := [2][]*vector.Vector{leftKeys, rightKeys}
	var hcs [2]*hash.Column
	err := bothSides(ctx, func(ctx context.Context, i int) (err error) {
		hcs[i], err = j.hashKeys(ctx, keys[i])
		return err
	})
	if err != nil {
		return nil, err
	}

	bits := j.cfg.BucketBits
	if bits == 0 {
		bits = EstimateBucketBits(hcs[0].Hashes, j.cfg.TargetBucketRows, j.cfg.MaxBucketBits)
	}
	defer logutil2.Stage(ctx, "radix join",
		zap.Int("left rows", hcs[0].Len()),
		zap.Int("right rows", hcs[1].Len()),
		zap.Int("bucket bits", bits),
		zap.Int("levels", j.cfg.RadixLevels))()

	var sides [2]*side
	err = bothSides(ctx, func(ctx context.Context, i int) (err error) {
		if sides[i], err = j.partition(ctx, hcs[i], bits); err != nil {
			return err
		}
		for level, b := 1, bits; level < j.cfg.RadixLevels; level++ {
			b += j.cfg.LevelBits
			if err = j.repartition(ctx, sides[i], b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	l, r := sides[0], sides[1]

	lsels, rsels, err := j.build(ctx, l, r)
	if err != nil {
		return nil, err
	}
	res := &Result{}
	if res.Left, err = j.flattenRows(ctx, l.rows, lsels); err != nil {
		return nil, err
	}
	if res.Right, err = j.flattenRows(ctx, r.rows, rsels); err != nil {
		return nil, err
	}
	if j.cfg.VerifyKeys {
		return j.verify(ctx, leftKeys, rightKeys, res)
	}
	return res, nil
}

// bothSides runs fn for the left (0) and the right (1) input at once. The
// first error cancels the context of the other side.
func bothSides(ctx context.Context, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 2; i++ {
		i := i
		g.Go(func() error {
			return fn(gctx, i)
		})
	}
	return g.Wait()
}

func checkKeys(ctx context.Context, leftKeys, rightKeys []*vector.Vector) error {
	if len(leftKeys) == 0 || len(leftKeys) != len(rightKeys) {
		return moerr.NewInvalidInput(ctx, "join on %d left keys and %d right keys", len(leftKeys), len(rightKeys))
	}
	for k := range leftKeys {
		if !leftKeys[k].Typ.Eq(rightKeys[k].Typ) {
			return moerr.NewInvalidInput(ctx, "key %d joins %s with %s", k, leftKeys[k].Typ, rightKeys[k].Typ)
		}
	}
	return nil
}

func (j *Join) hashKeys(ctx context.Context, keys []*vector.Vector) (*hash.Column, error) {
	start := time.Now()
	defer v2.ObserveSince(v2.RadixHashDurationHistogram, start)

	hc, err := hash.HashColumn(ctx, j.exec, keys[0], j.hasher)
	if err != nil {
		return nil, err
	}
	for _, key := range keys[1:] {
		if err = hash.HashAppend(ctx, j.exec, key, j.hasher, hc); err != nil {
			return nil, err
		}
	}
	return hc, nil
}

func rowNumbers(n int) *vector.Vector {
	rows := make([]int64, n)
	for i := range rows {
		rows[i] = int64(i)
	}
	return vector.NewFixed(rows)
}

func (j *Join) partition(ctx context.Context, hc *hash.Column, bits int) (*side, error) {
	bc, err := radix.FromHash(ctx, hc, bits)
	if err != nil {
		return nil, err
	}
	sm, err := radix.FromBucketColumn(ctx, j.exec, bc, j.exec.Workers())
	if err != nil {
		return nil, err
	}
	s := &side{}
	if s.hashes, err = radix.PartitionColumn(ctx, j.exec, hc.Vector(), sm); err != nil {
		return nil, err
	}
	if s.rows, err = radix.PartitionColumn(ctx, j.exec, rowNumbers(hc.Len()), sm); err != nil {
		return nil, err
	}
	return s, nil
}

// repartition refines every bucket of s to bits. The new buckets keep the
// old bucket in their low bits.
func (j *Join) repartition(ctx context.Context, s *side, bits int) error {
	cols := make([]*radix.BucketColumn, s.hashes.Buckets())
	for b, part := range s.hashes.Parts {
		hs, err := vector.GetFixedCol[uint64](ctx, part)
		if err != nil {
			return err
		}
		if cols[b], err = radix.FromHash(ctx, &hash.Column{Hashes: hs}, bits); err != nil {
			return err
		}
	}
	sm, err := radix.FromPartitionedBuckets(ctx, j.exec, cols)
	if err != nil {
		return err
	}
	if s.hashes, err = radix.Repartition(ctx, j.exec, s.hashes, sm); err != nil {
		return err
	}
	s.rows, err = radix.Repartition(ctx, j.exec, s.rows, sm)
	return err
}

// build joins every bucket pair and returns the matching rows of each
// bucket as selections over its parts.
func (j *Join) build(ctx context.Context, l, r *side) ([]vector.Index, []vector.Index, error) {
	start := time.Now()
	defer v2.ObserveSince(v2.RadixBuildDurationHistogram, start)

	nb := l.hashes.Buckets()
	if r.hashes.Buckets() != nb {
		return nil, nil, moerr.NewShapeMismatch(ctx, "%d left buckets, %d right buckets", nb, r.hashes.Buckets())
	}
	lsels := make([]vector.Index, nb)
	rsels := make([]vector.Index, nb)
	err := j.exec.Run(ctx, nb, func(ctx context.Context, b int) error {
		lh, err := vector.GetFixedCol[uint64](ctx, l.hashes.Parts[b])
		if err != nil {
			return err
		}
		rh, err := vector.GetFixedCol[uint64](ctx, r.hashes.Parts[b])
		if err != nil {
			return err
		}
		ls, rs, err := hashjoin.BuildInd(ctx, lh, rh, uint64(nb))
		if err != nil {
			return err
		}
		lsels[b], rsels[b] = ls, rs
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return lsels, rsels, nil
}

// flattenRows gathers the original row numbers selected in every bucket.
func (j *Join) flattenRows(ctx context.Context, rows *radix.Partitioned, sels []vector.Index) (vector.Index, error) {
	fm, err := radix.FlattenIndex(ctx, rows, sels)
	if err != nil {
		return nil, err
	}
	vec, err := radix.FlattenColumn(ctx, j.exec, rows, fm)
	if err != nil {
		return nil, err
	}
	ids, err := vector.GetFixedCol[int64](ctx, vec)
	if err != nil {
		return nil, err
	}
	out := make(vector.Index, vec.Length())
	for i := range out {
		row, ok := vec.Row(i)
		if !ok {
			return nil, moerr.NewInternalError(ctx, "joined row %d is null", i)
		}
		out[i] = ids[row]
	}
	return out, nil
}

// verify drops the pairs whose keys only share a digest.
func (j *Join) verify(ctx context.Context, leftKeys, rightKeys []*vector.Vector, res *Result) (*Result, error) {
	n := res.Len()
	keep := make([]bool, n)
	err := j.exec.Chunks(ctx, n, j.exec.ChunkLen(n), func(_ context.Context, _, start, end int) error {
		for i := start; i < end; i++ {
			keep[i] = true
			for k := range leftKeys {
				if !vector.KeyEqual(leftKeys[k], int(res.Left[i]), rightKeys[k], int(res.Right[i])) {
					keep[i] = false
					break
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := &Result{Left: make(vector.Index, 0, n), Right: make(vector.Index, 0, n)}
	for i, ok := range keep {
		if ok {
			out.Left = append(out.Left, res.Left[i])
			out.Right = append(out.Right, res.Right[i])
		}
	}
	if dropped := n - out.Len(); dropped > 0 {
		logutil2.Debug(ctx, "radix join dropped hash collisions", zap.Int("pairs", dropped))
	}
	return out, nil
}

// Materialize returns vec reordered by idx without copying its data.
func Materialize(ctx context.Context, vec *vector.Vector, idx vector.Index) (*vector.Vector, error) {
	return vec.Take(ctx, idx)
}
