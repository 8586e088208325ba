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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matrixorigin/moradix/pkg/container/vector"
	"github.com/matrixorigin/moradix/pkg/hash"
	"github.com/matrixorigin/moradix/pkg/logutil"
	"github.com/matrixorigin/moradix/pkg/radix"
	"github.com/matrixorigin/moradix/pkg/vm/overload"
)

type partitionOptions struct {
	rows int
	bits int
	seed int64
}

func partitionCommand() *cobra.Command {
	opts := &partitionOptions{}
	cmd := &cobra.Command{
		Use:   "partition",
		Short: "Partition and flatten a generated string column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPartition(opts)
		},
	}
	cmd.Flags().IntVar(&opts.rows, "rows", 1<<16, "rows of the column")
	cmd.Flags().IntVar(&opts.bits, "bits", 4, "bucket bits")
	cmd.Flags().Int64Var(&opts.seed, "seed", 1, "random seed")
	return cmd
}

func runPartition(opts *partitionOptions) error {
	if opts.rows < 0 {
		return fmt.Errorf("bad row count %d", opts.rows)
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
	vals := make([]string, opts.rows)
	for i := range vals {
		vals[i] = fmt.Sprintf("key-%d", r.Intn(opts.rows+1))
	}
	vec := vector.NewStrings(vals...)

	reg := overload.NewDefaultRegistry()
	v, err := reg.Eval(ctx, exec, overload.Hash, vec)
	if err != nil {
		return err
	}
	bc, err := radix.FromHash(ctx, v.(*hash.Column), opts.bits)
	if err != nil {
		return err
	}
	sm, err := radix.FromBucketColumn(ctx, exec, bc, exec.Workers())
	if err != nil {
		return err
	}
	v, err = reg.Eval(ctx, exec, overload.Partition, vec, sm)
	if err != nil {
		return err
	}
	parts := v.(*radix.Partitioned)
	for b, part := range parts.Parts {
		logutil.Debug("bucket", zap.Int("bucket", b), zap.Int("rows", part.Length()))
	}

	fm, err := radix.FlattenIndex(ctx, parts, nil)
	if err != nil {
		return err
	}
	flat, err := radix.FlattenColumn(ctx, exec, parts, fm)
	if err != nil {
		return err
	}
	logutil.Info("partition done",
		zap.Int("rows", opts.rows),
		zap.Int("buckets", parts.Buckets()),
		zap.Int("flattened rows", flat.Length()))
	if cfg.Metric.Enable {
		reportMetrics()
	}
	return nil
}
