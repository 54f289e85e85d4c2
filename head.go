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

import "sync/atomic"

// headState is the sum type a head[T] points to: for a Future, exactly one
// of *initialHeadState[T], *subscribedHeadState[T] or *completedHeadState[T]
// at any time; for a Channel, one of *channelInitialState[T],
// *channelOpenState[T] or *channelCompletedState[T] (spec.md §3, §4.E).
type headState[T any] interface {
	isHeadState()
}

// headBox wraps a headState so it can be swapped atomically: atomic.Pointer
// requires one concrete pointee type, so the box is the concrete type and
// the interior interface value is what actually varies.
type headBox[T any] struct {
	state headState[T]
}

// head is the lock-free container backing every Future/Promise and
// Channel/Producer (spec.md §4.E component E, "the single synchronization
// point for the entire library"). It exposes exactly one mutator,
// update, implemented as a compare-and-swap retry loop: this is the
// generalization of the teacher's per-field atomic.CompareAndSwapInt32
// status transitions (subscriber.go's status 0/1/2 dance) to a CAS over an
// entire immutable state value instead of a bare integer.
type head[T any] struct {
	ptr atomic.Pointer[headBox[T]]
}

// newHead initializes a head in the given initial state.
func newHead[T any](initial headState[T]) *head[T] {
	h := &head[T]{}
	h.ptr.Store(&headBox[T]{state: initial})
	return h
}

// load returns the current state without mutating anything.
func (h *head[T]) load() headState[T] {
	return h.ptr.Load().state
}

// update applies transform to the current state in a CAS retry loop and
// returns the (old, new) pair observed by the call that won the race.
// transform must be a pure function of its input (no observable side
// effects): side effects belonging to the transition (walking a subscriber
// chain, draining a release pool) must happen after update returns, keyed
// off whether old != new by reference. This mirrors spec.md §4.E exactly:
// "read head; compute new = transform(old); CAS(head, old, new); retry on
// contention."
func (h *head[T]) update(transform func(old headState[T]) headState[T]) (old, new headState[T]) {
	for {
		oldBox := h.ptr.Load()
		oldState := oldBox.state

		newState := transform(oldState)

		newBox := &headBox[T]{state: newState}

		if h.ptr.CompareAndSwap(oldBox, newBox) {
			return oldState, newState
		}
		// Contention: another goroutine swapped the head first. Retry with
		// the freshly observed state; transform is re-evaluated so it must
		// be safe to call more than once per logical update.
	}
}
