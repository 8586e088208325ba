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
	"time"

	"go.uber.org/zap"

	"github.com/matrixorigin/moradix/pkg/common/concurrent"
	"github.com/matrixorigin/moradix/pkg/common/moerr"
	"github.com/matrixorigin/moradix/pkg/logutil/logutil2"
	v2 "github.com/matrixorigin/moradix/pkg/util/metric/v2"
)

// Repartition scatters an already partitioned column once more without
// flattening it first. sm must come from FromPartitionedBuckets over one
// bucket column per part of src.
//
// A part may carry an index, a bitmap, both or neither. Rows selected by a
// NullRow index entry come out null; a part without bitmap reads as valid.
func Repartition(ctx context.Context, exec *concurrent.Executor, src *Partitioned, sm *BucketsSizeMap) (*Partitioned, error) {
	start := time.Now()
	defer v2.ObserveSince(v2.RadixRepartitionDurationHistogram, start)

	if len(sm.Columns) != len(src.Parts) || len(sm.Chunks) != len(src.Parts) {
		return nil, moerr.NewShapeMismatch(ctx, "%d partitions, size map over %d bucket columns", len(src.Parts), len(sm.Columns))
	}
	for i, part := range src.Parts {
		if !part.Typ.Eq(src.Typ) {
			return nil, moerr.NewTypeMismatch(ctx, part.Typ.String(), src.Typ.String())
		}
		if err := part.Validate(ctx); err != nil {
			return nil, err
		}
		if part.Length() != sm.Columns[i].Len() {
			return nil, moerr.NewShapeMismatch(ctx, "partition %d has %d rows, bucket column %d", i, part.Length(), sm.Columns[i].Len())
		}
	}
	p, err := scatter(ctx, exec, src.Typ, src.Parts, sm)
	if err != nil {
		return nil, err
	}
	v2.AddRows(v2.RadixRepartitionRowsCounter, int(sm.Total()))
	logutil2.Debug(ctx, "radix repartition",
		zap.Int("from", src.Buckets()),
		zap.Int("to", p.Buckets()))
	return p, nil
}
