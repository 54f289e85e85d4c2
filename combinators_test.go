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
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestMapFutureTransformsSuccess(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	source := NewFutureValue(3)
	mapped := MapFuture(source, func(v int) string { return "n" })

	result := mapped.Wait(context.Background())
	v, err := result.Unwrap()
	is.NoError(err)
	is.Equal("n", v)
}

func TestMapFutureForwardsFailure(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	boom := errors.New("boom")
	source := NewFutureError[int](boom)
	mapped := MapFuture(source, func(v int) string { return "n" })

	result := mapped.Wait(context.Background())
	is.Equal(boom, result.Err())
}

func TestFlatMapFutureChainsFutures(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	source := NewFutureValue(3)
	chained := FlatMapFuture(source, func(v int) *Future[int] {
		return NewFutureValue(v * 10)
	})

	result := chained.Wait(context.Background())
	v, _ := result.Unwrap()
	is.Equal(30, v)
}

func TestFlatMapFutureForwardsOuterFailure(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	boom := errors.New("boom")
	source := NewFutureError[int](boom)
	chained := FlatMapFuture(source, func(v int) *Future[int] {
		return NewFutureValue(v)
	})

	result := chained.Wait(context.Background())
	is.Equal(boom, result.Err())
}

func TestMapChannelTransformsEveryUpdate(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	source := NewProducer[int](0)
	mapped := MapChannel(source.Channel, Immediate, func(v int) int { return v * 2 })

	var got []int
	mapped.Subscribe(Immediate, func(ctx context.Context, value int) {
		got = append(got, value)
	}, nil)

	source.Send(1)
	source.Send(2)
	source.Complete()

	is.Equal([]int{2, 4}, got)
	is.True(mapped.IsCompleted())
}

func TestFilterChannelForwardsMatchingOnly(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	source := NewProducer[int](0)
	filtered := FilterChannel(source.Channel, Immediate, func(v int) bool { return v%2 == 0 })

	var got []int
	filtered.Subscribe(Immediate, func(ctx context.Context, value int) {
		got = append(got, value)
	}, nil)

	source.Send(1)
	source.Send(2)
	source.Send(3)
	source.Send(4)

	is.Equal([]int{2, 4}, got)
}

func TestDistinctChannelSuppressesConsecutiveDuplicates(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	source := NewProducer[int](0)
	distinct := DistinctChannel(source.Channel, Immediate, func(a, b int) bool { return a == b })

	var got []int
	distinct.Subscribe(Immediate, func(ctx context.Context, value int) {
		got = append(got, value)
	}, nil)

	source.Send(1)
	source.Send(1)
	source.Send(2)
	source.Send(2)
	source.Send(1)

	is.Equal([]int{1, 2, 1}, got)
}

func TestScanChannelAccumulatesRunningTotal(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	source := NewProducer[int](0)
	sum := ScanChannel(source.Channel, Immediate, func(acc, value int) int { return acc + value })

	var got []int
	sum.Subscribe(Immediate, func(ctx context.Context, value int) {
		got = append(got, value)
	}, nil)

	source.Send(1)
	source.Send(2)
	source.Send(3)

	is.Equal([]int{1, 3, 6}, got)
}

func TestMergeChannelsForwardsAllUpdatesAndCompletesWhenAllDone(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	a := NewProducer[int](0)
	b := NewProducer[int](0)
	merged := MergeChannels(Immediate, a.Channel, b.Channel)

	var got []int
	var completed bool
	merged.Subscribe(Immediate, func(ctx context.Context, value int) {
		got = append(got, value)
	}, func(ctx context.Context, err error) {
		completed = true
	})

	a.Send(1)
	b.Send(2)
	is.False(completed)

	a.Complete()
	is.False(completed)
	b.Complete()
	is.True(completed)

	is.ElementsMatch([]int{1, 2}, got)
}

func TestMergeChannelsFailsOnFirstError(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	boom := errors.New("boom")
	a := NewProducer[int](0)
	b := NewProducer[int](0)
	merged := MergeChannels(Immediate, a.Channel, b.Channel)

	var gotErr error
	merged.Subscribe(Immediate, func(ctx context.Context, value int) {}, func(ctx context.Context, err error) {
		gotErr = err
	})

	a.Fail(boom)
	is.Equal(boom, gotErr)
}

func TestMergeChannelsNoSourcesCompletesImmediately(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	merged := MergeChannels[int](Immediate)
	is.True(merged.IsCompleted())
}

func TestZipChannels2PairsUpInOrder(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	a := NewProducer[int](0)
	b := NewProducer[string](0)
	zipped := ZipChannels2(a.Channel, b.Channel, Immediate)

	var got []lo.Tuple2[int, string]
	zipped.Subscribe(Immediate, func(ctx context.Context, value lo.Tuple2[int, string]) {
		got = append(got, value)
	}, nil)

	a.Send(1)
	a.Send(2)
	b.Send("x")
	b.Send("y")

	is.Equal([]lo.Tuple2[int, string]{lo.T2(1, "x"), lo.T2(2, "y")}, got)
}

func TestDebounceForwardsOnlyAfterQuietPeriod(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	source := NewProducer[int](0)
	debounced := Debounce(source.Channel, Immediate, 30*time.Millisecond)

	var mu sync.Mutex
	var got []int
	debounced.Subscribe(Immediate, func(ctx context.Context, value int) {
		mu.Lock()
		got = append(got, value)
		mu.Unlock()
	}, nil)

	source.Send(1)
	source.Send(2)
	source.Send(3)

	is.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	is.Equal([]int{3}, got)
}

func TestDebounceFlushesPendingOnCompletion(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	source := NewProducer[int](0)
	debounced := Debounce(source.Channel, Immediate, time.Hour)

	var got []int
	var completed bool
	debounced.Subscribe(Immediate, func(ctx context.Context, value int) {
		got = append(got, value)
	}, func(ctx context.Context, err error) {
		completed = true
	})

	source.Send(9)
	source.Complete()

	is.Equal([]int{9}, got)
	is.True(completed)
}
