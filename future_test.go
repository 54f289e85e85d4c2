// Copyright 2025 samber.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://github.com/samber/ro/blob/main/licenses/LICENSE.apache.md
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package asyncflow

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewFutureValueIsAlreadyCompleted(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	f := NewFutureValue(7)
	is.True(f.IsCompleted())

	result := f.Wait(context.Background())
	v, err := result.Unwrap()
	is.NoError(err)
	is.Equal(7, v)
}

func TestNewFutureErrorIsAlreadyCompleted(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	boom := errors.New("boom")
	f := NewFutureError[int](boom)
	is.True(f.IsCompleted())

	result := f.Wait(context.Background())
	is.True(result.IsFailure())
	is.Equal(boom, result.Err())
}

func TestPromiseSubscribeBeforeCompletion(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	p := NewPromise[int]()
	var got atomic.Int64
	var wg sync.WaitGroup
	wg.Add(1)

	sub := p.Subscribe(Immediate, func(ctx context.Context, result Fallible[int]) {
		defer wg.Done()
		v, _ := result.Value()
		got.Store(int64(v))
	})
	is.False(sub.IsClosed())

	is.True(p.Succeed(9))
	wg.Wait()
	is.EqualValues(9, got.Load())
}

func TestPromiseSubscribeAfterCompletion(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	p := NewPromise[int]()
	is.True(p.Succeed(1))

	var got int
	sub := p.Subscribe(Immediate, func(ctx context.Context, result Fallible[int]) {
		v, _ := result.Value()
		got = v
	})
	is.Equal(1, got)
	is.True(sub.IsClosed())
}

func TestPromiseTryCompleteIsUniqueWriter(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	p := NewPromise[int]()

	const n = 100
	var wg sync.WaitGroup
	var wins int64

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if p.TryComplete(Success(i), Immediate) {
				atomic.AddInt64(&wins, 1)
			}
		}(i)
	}
	wg.Wait()

	is.EqualValues(1, wins)
	is.True(p.IsCompleted())
}

func TestFutureWaitBlocksUntilCompletion(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	p := NewPromise[int]()
	go func() {
		time.Sleep(10 * time.Millisecond)
		p.Succeed(5)
	}()

	result := p.Future.Wait(context.Background())
	v, err := result.Unwrap()
	is.NoError(err)
	is.Equal(5, v)
}

func TestFutureWaitTimeoutExpires(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	p := NewPromise[int]()
	result := p.Future.WaitTimeout(5 * time.Millisecond)
	is.True(result.IsFailure())
	is.ErrorIs(result.Err(), context.DeadlineExceeded)
}

func TestNewDeferredFutureStartsLazily(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var started atomic.Bool
	f := NewDeferredFuture[int](func(p *Promise[int]) {
		started.Store(true)
		p.Succeed(3)
	})

	is.False(started.Load())

	result := f.Wait(context.Background())
	is.True(started.Load())
	v, _ := result.Unwrap()
	is.Equal(3, v)
}

func TestNewDeferredFutureOnFirstSubscribeFiresOnce(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var starts atomic.Int64
	f := NewDeferredFuture[int](func(p *Promise[int]) {
		starts.Add(1)
		p.Succeed(1)
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Wait(context.Background())
		}()
	}
	wg.Wait()

	is.EqualValues(1, starts.Load())
}

func TestPromiseCompleteWith(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	source := NewFutureValue(11)
	p := NewPromise[int]()
	p.CompleteWith(source)

	result := p.Future.Wait(context.Background())
	v, _ := result.Unwrap()
	is.Equal(11, v)
}

func TestPromiseCancelOn(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	token := NewCancellationToken()
	p := NewPromise[int]().CancelOn(token)

	is.False(p.IsCompleted())
	token.Cancel()

	result := p.Future.Wait(context.Background())
	is.True(result.IsFailure())
	is.ErrorIs(result.Err(), ErrCancelled)
}

func TestNewFutureOnRunsOnExecutor(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	f := NewFutureOn[int](context.Background(), Primary, func(ctx context.Context) Fallible[int] {
		return Success(21)
	})

	result := f.Wait(context.Background())
	v, err := result.Unwrap()
	is.NoError(err)
	is.Equal(21, v)
}

func TestNewFutureOnRecoversPanic(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	f := NewFutureOn[int](context.Background(), Immediate, func(ctx context.Context) Fallible[int] {
		panic("construct exploded")
	})

	result := f.Wait(context.Background())
	is.True(result.IsFailure())
	is.Contains(result.Err().Error(), "construct exploded")
}

func TestFutureSubscribeMultipleHandlersAllFire(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	p := NewPromise[int]()
	var count atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		p.Subscribe(Immediate, func(ctx context.Context, result Fallible[int]) {
			defer wg.Done()
			count.Add(1)
		})
	}

	is.True(p.Succeed(1))
	wg.Wait()
	is.EqualValues(10, count.Load())
}

func TestFutureSubscriptionUnsubscribeBeforeCompletionSkipsDelivery(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	p := NewPromise[int]()
	var fired atomic.Bool

	sub := p.Subscribe(Immediate, func(ctx context.Context, result Fallible[int]) {
		fired.Store(true)
	})
	sub.Unsubscribe()
	is.True(sub.IsClosed())

	p.Succeed(1)
	is.False(fired.Load())
}
