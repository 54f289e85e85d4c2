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
	"time"
)

// Future is component F (spec.md §4.F): a single-assignment value backed by
// the head CAS container. It starts Initial, moves to Subscribed on its
// first subscriber, and moves to Completed exactly once, from either state.
//
// Future never exposes a way to write to itself: writing is Promise's job.
// A Future obtained from a Promise's embedded Future field (or any
// constructor below) is
// read-only from the caller's point of view, mirroring the teacher's
// split between a read-side Observable and its backing Subject.
type Future[T any] struct {
	head *head[T]
	pool *ReleasePool
}

// Promise is the writable handle paired with a Future (spec.md §4.F
// "Promise wraps a Future and exposes tryComplete"). The zero value is not
// usable; construct with NewPromise.
type Promise[T any] struct {
	*Future[T]
}

func newFuture[T any](onFirstSubscribe func()) *Future[T] {
	return &Future[T]{
		head: newHead[T](&initialHeadState[T]{onFirstSubscribe: onFirstSubscribe}),
		pool: NewReleasePool(),
	}
}

// NewPromise returns a fresh, incomplete Promise/Future pair.
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{Future: newFuture[T](nil)}
}

// NewDeferredFuture returns a Future whose construction is deferred until
// its first subscriber attaches (spec.md §4.F "lazy start": the
// onFirstSubscribe hook fires exactly once, on the Initial -> Subscribed
// edge, because that edge itself can only be won once per head). start
// receives the Promise it must eventually complete.
func NewDeferredFuture[T any](start func(p *Promise[T])) *Future[T] {
	p := &Promise[T]{}
	p.Future = newFuture[T](func() { start(p) })
	return p.Future
}

// NewFutureValue returns a Future already completed with value.
func NewFutureValue[T any](value T) *Future[T] {
	f := newFuture[T](nil)
	f.head.ptr.Store(&headBox[T]{state: &completedHeadState[T]{result: Success(value)}})
	return f
}

// NewFutureError returns a Future already completed with err.
func NewFutureError[T any](err error) *Future[T] {
	f := newFuture[T](nil)
	f.head.ptr.Store(&headBox[T]{state: &completedHeadState[T]{result: Failure[T](err)}})
	return f
}

// NewFutureOn runs construct on executor and completes a fresh Promise with
// its result, recovering a panic in construct into a Failure (see
// execFallible).
func NewFutureOn[T any](ctx context.Context, executor Executor, construct func(ctx context.Context) Fallible[T]) *Future[T] {
	p := NewPromise[T]()
	executor.Execute(nil, func(ranOn Executor) {
		p.TryComplete(execFallible(ctx, construct), ranOn)
	})
	return p.Future
}

// execFallible runs construct, recovering a panic into a Failure rather
// than letting it escape onto whatever goroutine the executor scheduled it
// on (mirrors handler.invoke's lo.TryCatchWithErrorValue use).
func execFallible[T any](ctx context.Context, construct func(ctx context.Context) Fallible[T]) (result Fallible[T]) {
	defer func() {
		if r := recover(); r != nil {
			result = Failure[T](recoverValueToError(r))
		}
	}()
	result = construct(ctx)
	return result
}

// IsCompleted reports whether f has reached its terminal state.
func (f *Future[T]) IsCompleted() bool {
	_, ok := f.head.load().(*completedHeadState[T])
	return ok
}

// Subscribe registers block to run on executor for f's single terminal
// notification, using context.Background() as the ambient context. See
// SubscribeWithContext for the full contract.
func (f *Future[T]) Subscribe(executor Executor, block func(ctx context.Context, result Fallible[T])) Subscription {
	return f.SubscribeWithContext(context.Background(), executor, block)
}

// SubscribeWithContext is spec.md §4.F's subscribe operation: it returns a
// Handler/Subscription that fires block exactly once with f's Fallible[T]
// result. If f is already Completed, block is scheduled immediately (still
// through executor's own dispatch rules) and a trivial Subscription is
// returned, since there is nothing left to unsubscribe from.
func (f *Future[T]) SubscribeWithContext(ctx context.Context, executor Executor, block func(ctx context.Context, result Fallible[T])) Subscription {
	h := newHandler[T](executor, f, func(ctx context.Context, event Event[T], ranOn Executor) {
		block(ctx, resultFromEvent(event))
	})

	old, newState := f.head.update(func(old headState[T]) headState[T] {
		if _, ok := old.(*completedHeadState[T]); ok {
			return old
		}
		return pushHandler(old, h)
	})

	if completed, ok := newState.(*completedHeadState[T]); ok {
		h.dispatch(ctx, eventFromFallible(completed.result), nil)
		return trivialSubscription{}
	}

	if init, wasInitial := old.(*initialHeadState[T]); wasInitial && init.onFirstSubscribe != nil {
		init.onFirstSubscribe()
	}

	return newSubscription(h)
}

// resultFromEvent turns the Error/Complete Event a handler receives back
// into the Fallible[T] the public API promises.
func resultFromEvent[T any](event Event[T]) Fallible[T] {
	if event.Kind == KindError {
		return Failure[T](event.Err)
	}
	return Success(event.Value)
}

// TryComplete is spec.md §4.F's tryComplete: the single writer that wins
// the Initial/Subscribed -> Completed transition walks the subscriber chain
// captured by that transition and returns true; every other caller
// (concurrent or after the fact) observes Completed as the old state and
// returns false without side effects. from is the originating executor
// passed through to each handler's dispatch for same-executor inlining.
func (p *Promise[T]) TryComplete(result Fallible[T], from Executor) bool {
	old, _ := p.head.update(func(old headState[T]) headState[T] {
		if _, ok := old.(*completedHeadState[T]); ok {
			return old
		}
		return &completedHeadState[T]{result: result}
	})

	if _, alreadyDone := old.(*completedHeadState[T]); alreadyDone {
		return false
	}

	var chain *handlerNode[T]
	if sub, ok := old.(*subscribedHeadState[T]); ok {
		chain = sub.chain
	}

	event := eventFromFallible(result)
	for node := chain; node != nil; node = node.next {
		h, alive := node.weakHandler.Value()
		if !alive {
			continue
		}
		h.dispatch(context.Background(), event, from)
	}

	p.pool.Drain()
	return true
}

// Succeed is a convenience for TryComplete(Success(value), Immediate).
func (p *Promise[T]) Succeed(value T) bool {
	return p.TryComplete(Success(value), Immediate)
}

// Fail is a convenience for TryComplete(Failure(err), Immediate).
func (p *Promise[T]) Fail(err error) bool {
	return p.TryComplete(Failure[T](err), Immediate)
}

// CompleteWith subscribes to source and forwards its single result into p
// via TryComplete, retaining the subscription in p's release pool so it
// lives exactly as long as p does (spec.md §4.F "complete(with: Future)").
func (p *Promise[T]) CompleteWith(source *Future[T]) {
	sub := source.SubscribeWithContext(context.Background(), Immediate, func(ctx context.Context, result Fallible[T]) {
		p.TryComplete(result, Immediate)
	})
	p.pool.Insert(sub)
}

// Wait blocks the calling goroutine until f completes or ctx is done,
// whichever comes first (spec.md §4.F "wait(timeout?)", generalized to any
// context.Context deadline/cancellation rather than a bare timeout).
func (f *Future[T]) Wait(ctx context.Context) Fallible[T] {
	resultCh := make(chan Fallible[T], 1)
	sub := f.SubscribeWithContext(ctx, Immediate, func(_ context.Context, result Fallible[T]) {
		select {
		case resultCh <- result:
		default:
		}
	})

	select {
	case r := <-resultCh:
		return r
	case <-ctx.Done():
		sub.Unsubscribe()
		return Failure[T](ctx.Err())
	}
}

// CancelOn registers p to fail with ErrCancelled when token is cancelled
// (spec.md §4.D "cancellation propagation"), returning p for chaining.
func (p *Promise[T]) CancelOn(token *CancellationToken) *Promise[T] {
	token.AddFunc(func() {
		p.TryComplete(Failure[T](ErrCancelled), Immediate)
	})
	return p
}

// WaitTimeout is Wait with a bare time.Duration instead of a context,
// matching spec.md §4.F's literal "wait(timeout?)" signature.
func (f *Future[T]) WaitTimeout(timeout time.Duration) Fallible[T] {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return f.Wait(ctx)
}
