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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/moradix/pkg/common/concurrent"
	"github.com/matrixorigin/moradix/pkg/common/moerr"
	"github.com/matrixorigin/moradix/pkg/container/types"
	"github.com/matrixorigin/moradix/pkg/container/vector"
	"github.com/matrixorigin/moradix/pkg/hash"
	"github.com/matrixorigin/moradix/pkg/radix"
)

func newExecutor(t *testing.T) *concurrent.Executor {
	e, err := concurrent.NewExecutor(2)
	require.NoError(t, err)
	t.Cleanup(e.Release)
	return e
}

func TestLookupMissing(t *testing.T) {
	ctx := context.Background()
	r := NewDefaultRegistry()

	_, err := r.Lookup(ctx, "sum", []types.T{types.T_int64})
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrUnsupportedOperation))

	_, err = r.Lookup(ctx, Hash, []types.T{types.T_int8, types.T_varchar})
	require.Equal(t, "unsupported operation hash for input types (TINYINT, VARCHAR)", err.Error())

	fn, err := r.Lookup(ctx, Partition, []types.T{types.T_float64})
	require.NoError(t, err)
	require.NotNil(t, fn)
}

func TestRegisterReplaces(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()
	calls := 0
	r.Register("noop", []types.T{types.T_bool}, func(context.Context, *concurrent.Executor, *Output, []any) error {
		calls++
		return nil
	})
	r.Register("noop", []types.T{types.T_bool}, func(context.Context, *concurrent.Executor, *Output, []any) error {
		calls += 10
		return nil
	})
	require.Len(t, r.ops["noop"], 1)
	_, err := r.Eval(ctx, nil, "noop", vector.NewFixed([]bool{true}))
	require.NoError(t, err)
	require.Equal(t, 10, calls)
}

func TestEvalPipeline(t *testing.T) {
	ctx := context.Background()
	exec := newExecutor(t)
	r := NewDefaultRegistry()

	a := vector.NewFixed([]uint32{7, 8, 7, 9})
	b := vector.NewStrings("x", "y", "x", "z")

	v, err := r.Eval(ctx, exec, Hash, a)
	require.NoError(t, err)
	hc := v.(*hash.Column)
	v, err = r.Eval(ctx, exec, HashAppend, b, hc)
	require.NoError(t, err)
	require.Same(t, hc, v.(*hash.Column))
	require.Equal(t, hc.Hashes[0], hc.Hashes[2])

	bc, err := radix.FromHash(ctx, hc, 2)
	require.NoError(t, err)
	sm, err := radix.FromBucketColumn(ctx, exec, bc, exec.Workers())
	require.NoError(t, err)
	v, err = r.Eval(ctx, exec, Partition, b, sm)
	require.NoError(t, err)
	require.Equal(t, 4, v.(*radix.Partitioned).Len())
}

func TestEvalBadArgument(t *testing.T) {
	ctx := context.Background()
	exec := newExecutor(t)
	r := NewDefaultRegistry()

	_, err := r.Eval(ctx, exec, HashAppend, vector.NewFixed([]int8{1}), "not a hash column")
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrTypeMismatch))

	_, err = r.Eval(ctx, exec, Partition, vector.NewFixed([]int8{1}))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))

	_, err = r.Eval(ctx, exec, Hash, &vector.Vector{Typ: types.T_any.ToType()})
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrUnsupportedOperation))
}
