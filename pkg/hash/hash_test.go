// Copyright 2021 Matrix Origin
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

package hash

import (
	"context"
	"math"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/prashantv/gostub"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/moradix/pkg/common/bitmap"
	"github.com/matrixorigin/moradix/pkg/common/concurrent"
	"github.com/matrixorigin/moradix/pkg/common/moerr"
	"github.com/matrixorigin/moradix/pkg/container/types"
	"github.com/matrixorigin/moradix/pkg/container/vector"
)

// identity keeps digests readable in tests.
type identity struct{}

func (identity) HashUint64(v uint64) uint64 { return v }
func (identity) HashBytes(v []byte) uint64  { return uint64(len(v)) }

func newExecutor(t *testing.T, workers int) *concurrent.Executor {
	e, err := concurrent.NewExecutor(workers)
	require.NoError(t, err)
	t.Cleanup(e.Release)
	return e
}

func TestHashColumn(t *testing.T) {
	ctx := context.Background()
	exec := newExecutor(t, 3)

	vec := vector.NewFixed([]int64{4, 5, -1, 7})
	vec.Index = vector.Index{0, 1, vector.NullRow, 2, 3}
	hc, err := HashColumn(ctx, exec, vec, identity{})
	require.NoError(t, err)
	require.Equal(t, []uint64{8, 10, NullHash, ^uint64(1), 14}, hc.Hashes)
	require.True(t, hc.IsNull(2))
	require.False(t, hc.IsNull(3))

	hv := hc.Vector()
	require.Equal(t, types.T_uint64, hv.Typ.Oid)
	require.Equal(t, 5, hv.Length())
}

func TestXXHasher(t *testing.T) {
	ctx := context.Background()
	exec := newExecutor(t, 2)

	hc, err := HashColumn(ctx, exec, vector.NewStrings("aa", "b"), nil)
	require.NoError(t, err)
	require.Equal(t, xxhash.Sum64String("aa")<<1, hc.Hashes[0])
	require.Equal(t, xxhash.Sum64String("b")<<1, hc.Hashes[1])

	// equal values of different widths hash alike
	a, err := HashColumn(ctx, exec, vector.NewFixed([]int8{-3}), nil)
	require.NoError(t, err)
	b, err := HashColumn(ctx, exec, vector.NewFixed([]int64{-3}), nil)
	require.NoError(t, err)
	require.Equal(t, a.Hashes, b.Hashes)
}

func TestDefaultHasherStub(t *testing.T) {
	stubs := gostub.Stub(&DefaultHasher, Hasher(identity{}))
	defer stubs.Reset()

	hc, err := HashColumn(context.Background(), newExecutor(t, 1),
		vector.NewFixed([]bool{true, false}), nil)
	require.NoError(t, err)
	require.Equal(t, []uint64{2, 0}, hc.Hashes)
}

func TestHashAppend(t *testing.T) {
	ctx := context.Background()
	exec := newExecutor(t, 2)

	Convey("null rows are sticky", t, func() {
		first := vector.NewFixed([]uint32{1, 2, 3, 4})
		first.Bitmap = bitmap.Bitmap{1, 0, 1, 1}
		hc, err := HashColumn(ctx, exec, first, identity{})
		So(err, ShouldBeNil)
		So(hc.Hashes, ShouldResemble, []uint64{2, NullHash, 6, 8})

		second := vector.NewStrings("x", "yy", "", "zzz")
		second.Index = vector.Index{0, 1, 2, vector.NullRow}
		So(HashAppend(ctx, exec, second, identity{}, hc), ShouldBeNil)
		So(hc.Hashes, ShouldResemble, []uint64{4, NullHash, 6, NullHash})

		third := vector.NewFixed([]float32{0, 0, 0, 0})
		So(HashAppend(ctx, exec, third, identity{}, hc), ShouldBeNil)
		for i, h := range hc.Hashes {
			So(h&1 == 1, ShouldEqual, i == 1 || i == 3)
		}
	})

	Convey("length mismatch", t, func() {
		hc := &Column{Hashes: make([]uint64, 2)}
		err := HashAppend(ctx, exec, vector.NewFixed([]int16{1}), nil, hc)
		So(moerr.IsMoErrCode(err, moerr.ErrShapeMismatch), ShouldBeTrue)
	})

	Convey("invalid column", t, func() {
		vec := vector.NewFixed([]int16{1})
		vec.Index = vector.Index{4}
		_, err := HashColumn(ctx, exec, vec, nil)
		So(moerr.IsMoErrCode(err, moerr.ErrInvalidIndex), ShouldBeTrue)
	})
}

func TestHashFloat(t *testing.T) {
	hc, err := HashColumn(context.Background(), newExecutor(t, 1),
		vector.NewFixed([]float64{1.5}), identity{})
	require.NoError(t, err)
	require.Equal(t, math.Float64bits(1.5)<<1, hc.Hashes[0])

	negZero := math.Copysign(0, -1)
	otherNaN := math.Float64frombits(0xfff8000000000002)
	hc, err = HashColumn(context.Background(), newExecutor(t, 2),
		vector.NewFixed([]float64{0, negZero, math.NaN(), otherNaN}), nil)
	require.NoError(t, err)
	require.Equal(t, hc.Hashes[0], hc.Hashes[1])
	require.Equal(t, hc.Hashes[2], hc.Hashes[3])
	require.NotEqual(t, hc.Hashes[0], hc.Hashes[2])

	hc32, err := HashColumn(context.Background(), newExecutor(t, 1),
		vector.NewFixed([]float32{float32(negZero), 0, float32(otherNaN), float32(math.NaN())}), nil)
	require.NoError(t, err)
	require.Equal(t, hc32.Hashes[0], hc32.Hashes[1])
	require.Equal(t, hc32.Hashes[2], hc32.Hashes[3])
}
