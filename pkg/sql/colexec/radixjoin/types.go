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
	"github.com/matrixorigin/moradix/pkg/common/concurrent"
	"github.com/matrixorigin/moradix/pkg/config"
	"github.com/matrixorigin/moradix/pkg/container/vector"
	"github.com/matrixorigin/moradix/pkg/hash"
	"github.com/matrixorigin/moradix/pkg/radix"
)

// Join is an inner equi-join of two key lists. It is safe to run one Join
// from several goroutines; all parallel work goes through exec.
type Join struct {
	cfg    *config.Config
	exec   *concurrent.Executor
	hasher hash.Hasher
}

// Result lists the joined pairs as logical row numbers of the left and
// right inputs. Left[i] joins Right[i].
type Result struct {
	Left  vector.Index
	Right vector.Index
}

func (r *Result) Len() int {
	return len(r.Left)
}

// side is one input after partitioning: its digests and the original row
// numbers, scattered with the same plan.
type side struct {
	hashes *radix.Partitioned
	rows   *radix.Partitioned
}
