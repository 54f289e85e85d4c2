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

// zeroValue returns the zero value of T, used where an API needs a T to
// populate a Success that genuinely carries no payload (a Channel's
// no-payload completion).
func zeroValue[T any]() T {
	var z T
	return z
}

// The three head states of Future/Promise (component F), per spec.md §3
// (Channel/Producer has its own three in channel.go):
//
//   Initial -> Subscribed (first subscription) -> Completed (terminal)
//   Initial -----------------------------------> Completed (terminal)
//
// Transitions are monotonic; once Completed, the head never changes again
// (spec.md §3 invariants i, ii).

// initialHeadState is the head's state before any subscriber has attached
// and before completion. onFirstSubscribe, if non-nil, is the one-shot
// lazy-start hook fired exactly once on the Initial -> Subscribed edge.
type initialHeadState[T any] struct {
	onFirstSubscribe func()
}

func (*initialHeadState[T]) isHeadState() {}

// subscribedHeadState holds the singly-linked stack of handler records
// (spec.md §3). Pushing a new handler prepends a node; the completion walk
// reads the whole chain captured at CAS time, so no handler added after
// that point by a racing subscribe is missed by the walk, and no handler
// fired by the walk is fired twice (the old chain read by the walk is
// exactly the chain as of the winning CAS, by construction of the CAS
// itself per component E).
type subscribedHeadState[T any] struct {
	chain *handlerNode[T]
}

func (*subscribedHeadState[T]) isHeadState() {}

// completedHeadState is the terminal state: it carries the final Fallible
// and never changes again.
type completedHeadState[T any] struct {
	result Fallible[T]
}

func (*completedHeadState[T]) isHeadState() {}

// pushHandler returns the subscribedHeadState that results from prepending
// h onto state's existing chain (or onto an empty chain, if state was
// Initial). It is a pure function of its inputs, fit for use inside a
// head.update transform.
func pushHandler[T any](state headState[T], h *handler[T]) *subscribedHeadState[T] {
	node := &handlerNode[T]{weakHandler: weakenHandler(h)}

	switch s := state.(type) {
	case *initialHeadState[T]:
		return &subscribedHeadState[T]{chain: node}
	case *subscribedHeadState[T]:
		node.next = s.chain
		return &subscribedHeadState[T]{chain: node}
	default:
		// Completed: callers must not reach here; the subscribe transform
		// returns a Completed state unchanged instead of calling pushHandler.
		return &subscribedHeadState[T]{chain: node}
	}
}
