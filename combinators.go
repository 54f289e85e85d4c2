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
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"

	"github.com/nezhyborets/asyncflow/internal/constraints"
)

// MapFuture transforms a completed Future's success value with transform,
// forwarding a failure unchanged. Grounded on operator_math.go's
// subscribe-and-forward-to-a-fresh-destination shape, narrowed to Future's
// single terminal notification instead of an Observable's Next/Error/Complete
// triad.
func MapFuture[T, U any](source *Future[T], transform func(T) U) *Future[U] {
	p := NewPromise[U]()
	sub := source.SubscribeWithContext(context.Background(), Immediate, func(_ context.Context, result Fallible[T]) {
		p.TryComplete(LiftSuccess(result, transform), Immediate)
	})
	p.pool.Insert(sub)
	return p.Future
}

// FlatMapFuture subscribes to the Future transform produces from source's
// success value, forwarding whichever of the two fails first (or the
// transformed Future's eventual success).
func FlatMapFuture[T, U any](source *Future[T], transform func(T) *Future[U]) *Future[U] {
	p := NewPromise[U]()
	outer := source.SubscribeWithContext(context.Background(), Immediate, func(_ context.Context, result Fallible[T]) {
		if result.IsFailure() {
			p.TryComplete(Failure[U](result.Err()), Immediate)
			return
		}
		value, _ := result.Value()
		p.CompleteWith(transform(value))
	})
	p.pool.Insert(outer)
	return p.Future
}

// MapChannel transforms every update from source with transform, forwarding
// completion unchanged.
func MapChannel[T, U any](source *Channel[T], executor Executor, transform func(T) U) *Channel[U] {
	out := NewProducer[U](0)
	sub := source.SubscribeWithContext(context.Background(), executor, func(_ context.Context, value T) {
		out.Send(transform(value))
	}, func(_ context.Context, err error) {
		out.TryComplete(fallibleFromErr[U](err))
	})
	out.pool.Insert(sub)
	return out.Channel
}

// FilterChannel forwards only the updates from source for which predicate
// returns true.
func FilterChannel[T any](source *Channel[T], executor Executor, predicate func(T) bool) *Channel[T] {
	out := NewProducer[T](0)
	sub := source.SubscribeWithContext(context.Background(), executor, func(_ context.Context, value T) {
		if predicate(value) {
			out.Send(value)
		}
	}, func(_ context.Context, err error) {
		out.TryComplete(fallibleFromErr[T](err))
	})
	out.pool.Insert(sub)
	return out.Channel
}

// DistinctChannel suppresses consecutive duplicate updates (comparing with
// equal), forwarding only the first of each run.
func DistinctChannel[T any](source *Channel[T], executor Executor, equal func(a, b T) bool) *Channel[T] {
	out := NewProducer[T](0)
	var mu sync.Mutex
	var have bool
	var last T

	sub := source.SubscribeWithContext(context.Background(), executor, func(_ context.Context, value T) {
		mu.Lock()
		skip := have && equal(last, value)
		have = true
		last = value
		mu.Unlock()

		if !skip {
			out.Send(value)
		}
	}, func(_ context.Context, err error) {
		out.TryComplete(fallibleFromErr[T](err))
	})
	out.pool.Insert(sub)
	return out.Channel
}

// ScanChannel folds every update into an accumulator with combine, starting
// from T's zero value (T is constrained to Numeric so that zero value is a
// meaningful starting accumulator), emitting the accumulator after each
// update. The direct generalization of operator_math.go's
// per-operator Sum/Average into one combinator, using the same Numeric
// constraint the teacher's own internal/constraints package defines.
func ScanChannel[T constraints.Numeric](source *Channel[T], executor Executor, combine func(acc, value T) T) *Channel[T] {
	out := NewProducer[T](0)
	var mu sync.Mutex
	var acc T

	sub := source.SubscribeWithContext(context.Background(), executor, func(_ context.Context, value T) {
		mu.Lock()
		acc = combine(acc, value)
		next := acc
		mu.Unlock()
		out.Send(next)
	}, func(_ context.Context, err error) {
		out.TryComplete(fallibleFromErr[T](err))
	})
	out.pool.Insert(sub)
	return out.Channel
}

// MergeChannels forwards every update from every source channel onto one
// output channel, completing (successfully) once all sources have
// completed successfully, or failing immediately with the first error any
// source reports.
func MergeChannels[T any](executor Executor, sources ...*Channel[T]) *Channel[T] {
	out := NewProducer[T](0)
	remaining := int64(len(sources))

	if remaining == 0 {
		out.Complete()
		return out.Channel
	}

	for _, source := range sources {
		sub := source.SubscribeWithContext(context.Background(), executor, func(_ context.Context, value T) {
			out.Send(value)
		}, func(_ context.Context, err error) {
			if err != nil {
				out.TryComplete(Failure[T](err))
				return
			}
			if atomic.AddInt64(&remaining, -1) == 0 {
				out.Complete()
			}
		})
		out.pool.Insert(sub)
	}

	return out.Channel
}

// ZipChannels2 pairs up the nth update of a with the nth update of b,
// buffering whichever side runs ahead, using lo.Tuple2 for the pair type
// exactly as the teacher's replaySubjectImpl pairs a buffered value with its
// originating context.
func ZipChannels2[A, B any](a *Channel[A], b *Channel[B], executor Executor) *Channel[lo.Tuple2[A, B]] {
	out := NewProducer[lo.Tuple2[A, B]](0)

	var mu sync.Mutex
	var pendingA []A
	var pendingB []B
	done := false

	tryEmit := func() {
		for len(pendingA) > 0 && len(pendingB) > 0 {
			pair := lo.T2(pendingA[0], pendingB[0])
			pendingA = pendingA[1:]
			pendingB = pendingB[1:]
			out.Send(pair)
		}
	}

	finishOnce := func(result Fallible[lo.Tuple2[A, B]]) {
		mu.Lock()
		already := done
		done = true
		mu.Unlock()
		if !already {
			out.TryComplete(result)
		}
	}

	subA := a.SubscribeWithContext(context.Background(), executor, func(_ context.Context, value A) {
		mu.Lock()
		pendingA = append(pendingA, value)
		tryEmit()
		mu.Unlock()
	}, func(_ context.Context, err error) {
		finishOnce(fallibleFromErr[lo.Tuple2[A, B]](err))
	})

	subB := b.SubscribeWithContext(context.Background(), executor, func(_ context.Context, value B) {
		mu.Lock()
		pendingB = append(pendingB, value)
		tryEmit()
		mu.Unlock()
	}, func(_ context.Context, err error) {
		finishOnce(fallibleFromErr[lo.Tuple2[A, B]](err))
	})

	out.pool.Insert(subA)
	out.pool.Insert(subB)

	return out.Channel
}

// Debounce forwards an update from source only after quiet has elapsed with
// no further update arriving, cancelling and rescheduling its internal
// timer on every new update (the standard leading-edge-suppressed debounce).
func Debounce[T any](source *Channel[T], executor Executor, quiet time.Duration) *Channel[T] {
	out := NewProducer[T](0)

	var mu sync.Mutex
	var timer *time.Timer
	var latest T
	var havePending bool

	emit := func() {
		mu.Lock()
		if !havePending {
			mu.Unlock()
			return
		}
		value := latest
		havePending = false
		mu.Unlock()
		out.Send(value)
	}

	sub := source.SubscribeWithContext(context.Background(), executor, func(_ context.Context, value T) {
		mu.Lock()
		latest = value
		havePending = true
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(quiet, emit)
		mu.Unlock()
	}, func(_ context.Context, err error) {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		emit()
		out.TryComplete(fallibleFromErr[T](err))
	})

	out.pool.Insert(sub)
	return out.Channel
}
