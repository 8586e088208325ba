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

package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matrixorigin/moradix/pkg/container/vector"
	"github.com/matrixorigin/moradix/pkg/logutil"
	"github.com/matrixorigin/moradix/pkg/sql/colexec/radixjoin"
)

type joinOptions struct {
	rows int
	keys int
	dup  int
	seed int64
}

func joinCommand() *cobra.Command {
	opts := &joinOptions{}
	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join two generated tables on random keys",
		Long:  "Generate two tables of --rows rows with --keys key columns, every key value repeated about --dup times, and join them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJoin(opts)
		},
	}
	cmd.Flags().IntVar(&opts.rows, "rows", 1<<20, "rows per side")
	cmd.Flags().IntVar(&opts.keys, "keys", 1, "key columns")
	cmd.Flags().IntVar(&opts.dup, "dup", 1, "average repetitions of a key value")
	cmd.Flags().Int64Var(&opts.seed, "seed", 1, "random seed")
	return cmd
}

func (o *joinOptions) validate() error {
	if o.rows < 0 || o.keys < 1 || o.dup < 1 {
		return fmt.Errorf("bad join options: rows %d, keys %d, dup %d", o.rows, o.keys, o.dup)
	}
	return nil
}

// genKeys builds keys columns of rows rows. Every column draws from
// rows/dup values, so combined keys repeat about dup times or less.
func genKeys(r *rand.Rand, rows, keys, dup int) []*vector.Vector {
	ndv := int64(rows / dup)
	if ndv < 1 {
		ndv = 1
	}
	vecs := make([]*vector.Vector, keys)
	for k := range vecs {
		col := make([]int64, rows)
		for i := range col {
			col[i] = r.Int63n(ndv)
		}
		vecs[k] = vector.NewFixed(col)
	}
	return vecs
}

func runJoin(opts *joinOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, exec, err := setup(cfg)
	if err != nil {
		return err
	}
	defer exec.Release()
	stop, err := startCPUProfile()
	if err != nil {
		return err
	}
	defer stop()

	r := rand.New(rand.NewSource(opts.seed))
	left := genKeys(r, opts.rows, opts.keys, opts.dup)
	right := genKeys(r, opts.rows, opts.keys, opts.dup)

	j, err := radixjoin.New(cfg, exec)
	if err != nil {
		return err
	}
	start := time.Now()
	res, err := j.Run(ctx, left, right)
	if err != nil {
		return err
	}
	logutil.Info("radix join done",
		zap.Int("rows", opts.rows),
		zap.Int("keys", opts.keys),
		zap.Int("pairs", res.Len()),
		zap.Duration("cost", time.Since(start)))

	if res.Len() > 0 {
		first, err := radixjoin.Materialize(ctx, left[0], res.Left[:1])
		if err != nil {
			return err
		}
		logutil.Debug("first joined key", zap.Stringer("value", first))
	}
	if cfg.Metric.Enable {
		reportMetrics()
	}
	return nil
}
