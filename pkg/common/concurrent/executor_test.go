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

package concurrent

import (
	"context"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/lni/goutils/leaktest"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/moradix/pkg/common/moerr"
)

func TestExecutorRun(t *testing.T) {
	defer leaktest.AfterTest(t)()
	e, err := NewExecutor(4)
	require.NoError(t, err)
	defer e.Release()

	var sum atomic.Int64
	seen := make([]int32, 100)
	err = e.Run(context.Background(), len(seen), func(_ context.Context, task int) error {
		atomic.AddInt32(&seen[task], 1)
		sum.Add(int64(task))
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, int64(4950), sum.Load())
	for _, s := range seen {
		require.Equal(t, int32(1), s)
	}
}

func TestExecutorError(t *testing.T) {
	defer leaktest.AfterTest(t)()
	e, err := NewExecutor(2)
	require.NoError(t, err)
	defer e.Release()

	var finished atomic.Int32
	err = e.Run(context.Background(), 8, func(ctx context.Context, task int) error {
		defer finished.Add(1)
		if task == 5 {
			return moerr.NewShapeMismatch(ctx, "task %d", task)
		}
		return nil
	})
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrShapeMismatch))
	// barrier: every task has returned
	require.Equal(t, int32(8), finished.Load())
}

// Waiting on a phase costs no goroutine per task.
func TestExecutorManyTasks(t *testing.T) {
	defer leaktest.AfterTest(t)()
	e, err := NewExecutor(2)
	require.NoError(t, err)
	defer e.Release()

	base := runtime.NumGoroutine()
	var peak atomic.Int64
	err = e.Run(context.Background(), 1000, func(ctx context.Context, task int) error {
		if n := int64(runtime.NumGoroutine()); n > peak.Load() {
			peak.Store(n)
		}
		if task == 999 {
			return moerr.NewInvalidInput(ctx, "task %d", task)
		}
		return nil
	})
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))
	require.Less(t, peak.Load(), int64(base+2+8))
}

func TestExecutorReleased(t *testing.T) {
	e, err := NewExecutor(1)
	require.NoError(t, err)
	e.Release()

	called := false
	err = e.Run(context.Background(), 3, func(context.Context, int) error {
		called = true
		return nil
	})
	require.Error(t, err)
	require.False(t, called)
}

func TestExecutorPanic(t *testing.T) {
	defer leaktest.AfterTest(t)()
	e, err := NewExecutor(2)
	require.NoError(t, err)
	defer e.Release()

	err = e.Run(context.Background(), 3, func(_ context.Context, task int) error {
		if task == 1 {
			var s []int
			_ = s[task]
		}
		return nil
	})
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInternal))
	require.Contains(t, err.Error(), "panic")

	err = e.Run(context.Background(), 1, func(ctx context.Context, _ int) error {
		panic(moerr.NewInvalidIndex(ctx, "row %d", 3))
	})
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidIndex))
}

func TestExecutorChunks(t *testing.T) {
	defer leaktest.AfterTest(t)()
	e, err := NewExecutor(3)
	require.NoError(t, err)
	defer e.Release()

	n := 10
	chunkLen := e.ChunkLen(n)
	require.Equal(t, 4, chunkLen)

	covered := make([]int, n)
	ranges := make([][2]int, 3)
	err = e.Chunks(context.Background(), n, chunkLen, func(_ context.Context, chunk, start, end int) error {
		ranges[chunk] = [2]int{start, end}
		for i := start; i < end; i++ {
			covered[i]++
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, [][2]int{{0, 4}, {4, 8}, {8, 10}}, ranges)
	for _, c := range covered {
		require.Equal(t, 1, c)
	}

	require.NoError(t, e.Chunks(context.Background(), 0, 0, nil))
	err = e.Chunks(context.Background(), 3, 0, nil)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))
}

func TestExecutorCanceled(t *testing.T) {
	defer leaktest.AfterTest(t)()
	e, err := NewExecutor(1)
	require.NoError(t, err)
	defer e.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err = e.Run(ctx, 1, func(context.Context, int) error {
		called = true
		return nil
	})
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrQueryInterrupted))
	require.False(t, called)
}

func TestChunkLen(t *testing.T) {
	require.Equal(t, 1, ChunkLen(0, 4))
	require.Equal(t, 3, ChunkLen(9, 3))
	require.Equal(t, 4, ChunkLen(10, 3))
	require.Equal(t, 10, ChunkLen(10, 0))
}
