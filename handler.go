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
	"sync/atomic"
	"weak"

	"github.com/samber/lo"
)

// handler is the per-subscription record described in spec.md §4.I: it
// carries the executor, the user block, and a strong backreference to the
// owning Promise/Producer that is cleared immediately after the block runs
// on a terminal event, breaking the
// Handler -> Owner -> Subscribed(weak Handler) cycle spec.md §9 calls out.
//
// Only the terminal arm clears ownerBackref (updates never terminate the
// subscription, so there's nothing to break a cycle over yet).
//
// capturePanics mirrors the teacher's observerImpl.capturePanics flag
// (observer.go): by default a panicking block is recovered and turned into
// OnUnhandledError, never crashing the goroutine walking the subscriber
// chain.
type handler[T any] struct {
	executor      Executor
	block         func(ctx context.Context, event Event[T], ranOn Executor)
	capturePanics bool

	// unsubscribed is the deterministic "don't deliver to me anymore" flag.
	// It is checked before every dispatch so Unsubscribe takes effect
	// immediately regardless of when (or whether) the GC later reclaims a
	// handler whose weak slot in the subscriber chain has gone empty.
	unsubscribed atomic.Bool

	ownerBackref any // cleared to nil after terminal dispatch
}

// newHandler creates a handler bound to executor, invoking block on every
// dispatched event. owner is held strongly until a terminal event fires.
func newHandler[T any](executor Executor, owner any, block func(ctx context.Context, event Event[T], ranOn Executor)) *handler[T] {
	return &handler[T]{
		executor:      executor,
		block:         block,
		capturePanics: true,
		ownerBackref:  owner,
	}
}

// dispatch runs h.block on h.executor, honoring strictAsync/inlining rules
// (spec.md §4.F "Scheduling semantics"): when h.executor is not StrictAsync
// and originatingExecutor equals h.executor, the block may be invoked
// inline instead of re-entering the executor's own queue.
func (h *handler[T]) dispatch(ctx context.Context, event Event[T], originatingExecutor Executor) {
	if h.unsubscribed.Load() {
		OnDroppedNotification(ctx, event)
		return
	}

	runBlock := func(ranOn Executor) {
		if h.unsubscribed.Load() {
			OnDroppedNotification(ctx, event)
			return
		}
		h.invoke(ctx, event, ranOn)
	}

	if !h.executor.StrictAsync() && originatingExecutor != nil && sameExecutor(originatingExecutor, h.executor) {
		runBlock(originatingExecutor)
		return
	}

	h.executor.Execute(originatingExecutor, runBlock)
}

// invoke calls h.block, recovering panics into OnUnhandledError when
// capturePanics is set (the default), exactly as observerImpl.tryNext /
// tryError / tryComplete do in the teacher (observer.go). After a terminal
// event (error or complete) the owner backreference is cleared.
func (h *handler[T]) invoke(ctx context.Context, event Event[T], ranOn Executor) {
	if !h.capturePanics {
		h.block(ctx, event, ranOn)
	} else {
		lo.TryCatchWithErrorValue(
			func() error {
				h.block(ctx, event, ranOn)
				return nil
			},
			func(r any) {
				OnUnhandledError(ctx, newHandlerError(recoverValueToError(r)))
			},
		)
	}

	if event.Kind != KindUpdate {
		h.ownerBackref = nil
	}
}

func sameExecutor(a, b Executor) bool {
	return a == b
}

// handlerNode is a singly-linked stack cell in a subscribedHeadState[T]'s
// subscriber chain (spec.md §3 "singly-linked stack of handler records,
// each holding a weak reference to a Handler object"). The AsyncValue side
// reaches the handler only through a weak.Pointer: once the consumer drops
// its strong Subscription, the handler (and the user block/closure it
// holds) becomes collectible even though the AsyncValue itself is still
// alive and the node still sits in the chain — the walk simply skips empty
// weak slots (spec.md §4.I "a handler whose strong reference was dropped by
// the consumer before completion is simply skipped during the walk").
type handlerNode[T any] struct {
	weakHandler weak.Pointer[handler[T]]
	next        *handlerNode[T]
}

// weakenHandler captures a weak.Pointer to h for storage in a
// subscribedHeadState's chain.
func weakenHandler[T any](h *handler[T]) weak.Pointer[handler[T]] {
	return weak.Make(h)
}
