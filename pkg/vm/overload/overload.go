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
	"fmt"
	"strings"

	"github.com/matrixorigin/moradix/pkg/common/concurrent"
	"github.com/matrixorigin/moradix/pkg/common/moerr"
	"github.com/matrixorigin/moradix/pkg/container/types"
	"github.com/matrixorigin/moradix/pkg/container/vector"
	"github.com/matrixorigin/moradix/pkg/hash"
	"github.com/matrixorigin/moradix/pkg/radix"
)

func NewRegistry() *Registry {
	return &Registry{ops: make(map[string][]*Op)}
}

// Register adds fn for name over args, replacing an earlier registration
// of the same kinds.
func (r *Registry) Register(name string, args []types.T, fn Fn) {
	for _, o := range r.ops[name] {
		if argsCheck(o.Args, args) {
			o.Fn = fn
			return
		}
	}
	r.ops[name] = append(r.ops[name], &Op{Name: name, Args: args, Fn: fn})
}

func (r *Registry) Lookup(ctx context.Context, name string, args []types.T) (Fn, error) {
	for _, o := range r.ops[name] {
		if argsCheck(o.Args, args) {
			return o.Fn, nil
		}
	}
	return nil, moerr.NewUnsupportedOperation(ctx, name, kindNames(args))
}

// Eval looks up name by the kinds of the vector arguments and runs it.
func (r *Registry) Eval(ctx context.Context, exec *concurrent.Executor, name string, args ...any) (any, error) {
	var kinds []types.T
	for _, arg := range args {
		if vec, ok := arg.(*vector.Vector); ok {
			kinds = append(kinds, vec.Typ.Oid)
		}
	}
	fn, err := r.Lookup(ctx, name, kinds)
	if err != nil {
		return nil, err
	}
	out := &Output{}
	if err = fn(ctx, exec, out, args); err != nil {
		return nil, err
	}
	return out.Value, nil
}

func argsCheck(want, got []types.T) bool {
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if want[i] != got[i] {
			return false
		}
	}
	return true
}

func kindNames(args []types.T) string {
	names := make([]string, len(args))
	for i, t := range args {
		names[i] = t.String()
	}
	return strings.Join(names, ", ")
}

// NewDefaultRegistry registers hash, hash_append and partition for every
// supported column kind.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	kinds := append(append([]types.T{}, types.FixedKinds...), types.T_char, types.T_varchar)
	for _, k := range kinds {
		r.Register(Hash, []types.T{k}, hashFn)
		r.Register(HashAppend, []types.T{k}, hashAppendFn)
		r.Register(Partition, []types.T{k}, partitionFn)
	}
	return r
}

func argAt[T any](ctx context.Context, args []any, i int) (T, error) {
	var zero T
	if i >= len(args) {
		return zero, moerr.NewInvalidInput(ctx, "missing argument %d", i)
	}
	v, ok := args[i].(T)
	if !ok {
		return zero, moerr.NewTypeMismatch(ctx, fmt.Sprintf("%T", args[i]), fmt.Sprintf("%T", zero))
	}
	return v, nil
}

// hashFn: (vec) -> *hash.Column
func hashFn(ctx context.Context, exec *concurrent.Executor, out *Output, args []any) error {
	vec, err := argAt[*vector.Vector](ctx, args, 0)
	if err != nil {
		return err
	}
	hc, err := hash.HashColumn(ctx, exec, vec, nil)
	if err != nil {
		return err
	}
	out.Value = hc
	return nil
}

// hashAppendFn: (vec, *hash.Column) -> *hash.Column, updated in place
func hashAppendFn(ctx context.Context, exec *concurrent.Executor, out *Output, args []any) error {
	vec, err := argAt[*vector.Vector](ctx, args, 0)
	if err != nil {
		return err
	}
	hc, err := argAt[*hash.Column](ctx, args, 1)
	if err != nil {
		return err
	}
	if err = hash.HashAppend(ctx, exec, vec, nil, hc); err != nil {
		return err
	}
	out.Value = hc
	return nil
}

// partitionFn: (vec, *radix.BucketsSizeMap) -> *radix.Partitioned
func partitionFn(ctx context.Context, exec *concurrent.Executor, out *Output, args []any) error {
	vec, err := argAt[*vector.Vector](ctx, args, 0)
	if err != nil {
		return err
	}
	sm, err := argAt[*radix.BucketsSizeMap](ctx, args, 1)
	if err != nil {
		return err
	}
	p, err := radix.PartitionColumn(ctx, exec, vec, sm)
	if err != nil {
		return err
	}
	out.Value = p
	return nil
}
