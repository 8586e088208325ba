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

package overload

import (
	"context"

	"github.com/matrixorigin/moradix/pkg/common/concurrent"
	"github.com/matrixorigin/moradix/pkg/container/types"
)

const (
	Hash       = "hash"
	HashAppend = "hash_append"
	Partition  = "partition"
)

// Output is the slot an operation writes its result into.
type Output struct {
	Value any
}

// Fn evaluates one operation over type-erased arguments. The argument
// kinds were matched by the registry; the Go types of args are checked by
// the operation itself.
type Fn func(ctx context.Context, exec *concurrent.Executor, out *Output, args []any) error

// Op is one overload: an operation name over an ordered list of column
// kinds.
type Op struct {
	Name string
	Args []types.T
	Fn   Fn
}

// Registry maps (name, argument kinds) to an implementation. It is filled
// once and then only read.
type Registry struct {
	ops map[string][]*Op
}
