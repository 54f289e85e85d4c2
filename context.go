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
	"runtime"
	"sync"
	"weak"
)

// ExecutionContext is component H (spec.md §4.H): it binds the lifetime of
// whatever Futures/Channels it constructs to an external owner object,
// holding that owner only weakly. When the owner is garbage collected,
// every dependent registered with AddDependent is cancelled; a construction
// block that needs the owner gets a strong reference restored from the weak
// pointer, or a contextDeallocated failure if the owner is already gone.
//
// This is the one component spec.md §9 flags as a design challenge in
// languages without native weak references: Go 1.24's weak.Pointer plus
// runtime.AddCleanup gives a direct, non-reflective answer, so unlike
// handler.go's own weak-reference use (grounded on the same stdlib package)
// there is no teacher precedent to adapt here — see DESIGN.md.
type ExecutionContext[Owner any] struct {
	executor Executor

	mu          sync.Mutex
	weakOwner   weak.Pointer[Owner]
	deallocated bool
	dependents  []Cancellable
}

// NewExecutionContext binds owner (held weakly from this point on) to
// executor. The returned context must be kept alive by the caller for as
// long as it is in use; it does not keep owner alive itself.
func NewExecutionContext[Owner any](owner *Owner, executor Executor) *ExecutionContext[Owner] {
	ec := &ExecutionContext[Owner]{
		executor:  executor,
		weakOwner: weak.Make(owner),
	}
	runtime.AddCleanup(owner, (*ExecutionContext[Owner]).onOwnerDeallocated, ec)
	return ec
}

// Executor returns the Executor bound to this context.
func (ec *ExecutionContext[Owner]) Executor() Executor {
	return ec.executor
}

// IsDeallocated reports whether the owner has already been collected.
func (ec *ExecutionContext[Owner]) IsDeallocated() bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.deallocated
}

// restore returns a strong reference to the owner, or false if it has
// already been collected.
func (ec *ExecutionContext[Owner]) restore() (*Owner, bool) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if ec.deallocated {
		return nil, false
	}
	owner := ec.weakOwner.Value()
	return owner, owner != nil
}

// AddDependent registers c to be cancelled when the owner is deallocated.
// If the owner is already gone, c is cancelled immediately instead (spec.md
// §4.H "addDependent(completable)").
func (ec *ExecutionContext[Owner]) AddDependent(c Cancellable) {
	if c == nil {
		return
	}

	ec.mu.Lock()
	if ec.deallocated {
		ec.mu.Unlock()
		execTeardown(c.Cancel)
		return
	}
	ec.dependents = append(ec.dependents, c)
	ec.mu.Unlock()
}

// onOwnerDeallocated runs once, from a runtime cleanup goroutine, after the
// owner becomes unreachable: it cancels every registered dependent exactly
// once, the same one-shot drain discipline as CancellationToken.Cancel.
func (ec *ExecutionContext[Owner]) onOwnerDeallocated() {
	ec.mu.Lock()
	if ec.deallocated {
		ec.mu.Unlock()
		return
	}
	ec.deallocated = true
	pending := ec.dependents
	ec.dependents = nil
	ec.mu.Unlock()

	for _, c := range pending {
		execTeardown(c.Cancel)
	}
}

// NewFutureBoundTo runs construct with a strong reference to ec's owner and
// completes the returned Future with its result, on ec's executor. If the
// owner has already been deallocated, the Future completes immediately with
// ErrContextDeallocated and construct never runs (spec.md §4.H).
func NewFutureBoundTo[Owner, T any](ec *ExecutionContext[Owner], construct func(ctx context.Context, owner *Owner) Fallible[T]) *Future[T] {
	owner, alive := ec.restore()
	if !alive {
		return NewFutureError[T](ErrContextDeallocated)
	}

	f := NewFutureOn[T](context.Background(), ec.executor, func(ctx context.Context) Fallible[T] {
		return construct(ctx, owner)
	})

	return f
}

// BindPromise registers p to fail with ErrContextDeallocated when ec's owner
// is deallocated, and returns p unchanged for chaining.
func BindPromise[Owner, T any](ec *ExecutionContext[Owner], p *Promise[T]) *Promise[T] {
	ec.AddDependent(CancellableFunc(func() {
		p.TryComplete(Failure[T](ErrContextDeallocated), Immediate)
	}))
	return p
}

// BindProducer registers p to fail with ErrContextDeallocated when ec's
// owner is deallocated, and returns p unchanged for chaining.
func BindProducer[Owner, T any](ec *ExecutionContext[Owner], p *Producer[T]) *Producer[T] {
	ec.AddDependent(CancellableFunc(func() {
		p.TryComplete(Failure[T](ErrContextDeallocated))
	}))
	return p
}
