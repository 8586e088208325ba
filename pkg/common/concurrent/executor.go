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
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/matrixorigin/moradix/pkg/common/moerr"
	"github.com/matrixorigin/moradix/pkg/logutil"
)

// Executor runs fork/join phases on a fixed pool of workers. Every call of
// Run or Chunks is a barrier: it returns only after all of its tasks have
// finished. A task must not call Run on the executor that is running it.
type Executor struct {
	workers int
	pool    *ants.Pool
}

func NewExecutor(workers int) (*Executor, error) {
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	if workers < 0 {
		return nil, moerr.NewInvalidInput(context.Background(), "executor workers %d", workers)
	}
	pool, err := ants.NewPool(workers,
		ants.WithExpiryDuration(100*time.Millisecond),
		ants.WithPanicHandler(func(v interface{}) {
			logutil.Error("radix worker exits on panic", zap.Any("panic", v))
		}))
	if err != nil {
		return nil, moerr.ConvertGoError(context.Background(), err)
	}
	return &Executor{workers: workers, pool: pool}, nil
}

func (e *Executor) Workers() int {
	return e.workers
}

// Run executes fn for every task in [0, ntasks) and waits for all of them.
// The first error, or the first panic converted into an internal error,
// is returned. Cancellation of ctx is only observed before the tasks start.
func (e *Executor) Run(ctx context.Context, ntasks int, fn func(ctx context.Context, task int) error) error {
	if err := ctx.Err(); err != nil {
		return moerr.NewQueryInterrupted(ctx)
	}
	if ntasks <= 0 {
		return nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}
	for i := 0; i < ntasks; i++ {
		task := i
		wg.Add(1)
		err := e.pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					err := moerr.ConvertPanicError(ctx, r)
					logutil.Error("radix task panic",
						zap.Int("task", task),
						zap.String("error", err.Display()))
					fail(err)
				}
			}()
			if err := fn(ctx, task); err != nil {
				fail(err)
			}
		})
		if err != nil {
			fail(moerr.ConvertGoError(ctx, err))
			wg.Done()
		}
	}
	wg.Wait()
	return firstErr
}

// Chunks splits [0, n) into consecutive ranges of chunkLen rows (the last
// may be shorter) and runs fn once per range.
func (e *Executor) Chunks(ctx context.Context, n, chunkLen int,
	fn func(ctx context.Context, chunk, start, end int) error) error {
	if n == 0 {
		return nil
	}
	if chunkLen <= 0 {
		return moerr.NewInvalidInput(ctx, "chunk length %d", chunkLen)
	}
	nchunks := (n + chunkLen - 1) / chunkLen
	return e.Run(ctx, nchunks, func(ctx context.Context, chunk int) error {
		start := chunk * chunkLen
		end := start + chunkLen
		if end > n {
			end = n
		}
		return fn(ctx, chunk, start, end)
	})
}

// ChunkLen returns ceil(n / workers), never less than 1.
func (e *Executor) ChunkLen(n int) int {
	return ChunkLen(n, e.workers)
}

func ChunkLen(n, workers int) int {
	if workers < 1 {
		workers = 1
	}
	l := (n + workers - 1) / workers
	if l < 1 {
		l = 1
	}
	return l
}

// Release stops the workers. The executor must not be used afterwards.
func (e *Executor) Release() {
	e.pool.Release()
}
