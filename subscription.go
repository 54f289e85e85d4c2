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

// Subscription is the consumer-side disposable returned by Subscribe: it
// holds the handler strongly (the AsyncValue side only ever holds it
// weakly, see handlerNode) and lets the consumer opt out of further
// delivery. This is the direct descendant of the teacher's
// Subscription/Unsubscribable interface pair (subscription.go), narrowed to
// what spec.md §3/§4.I actually need: a disposable plus a closed check.
type Subscription interface {
	Unsubscribe()
	IsClosed() bool
}

// subscriptionImpl is the concrete Subscription returned by Future.Subscribe
// on a not-yet-completed Future (Channel.Subscribe returns a
// channelSubscription). It is also a Cancellable, so it
// can be registered directly with a CancellationToken.
type subscriptionImpl[T any] struct {
	strongHandler *handler[T]
}

var _ Subscription = (*subscriptionImpl[int])(nil)
var _ Cancellable = (*subscriptionImpl[int])(nil)

func newSubscription[T any](h *handler[T]) *subscriptionImpl[T] {
	return &subscriptionImpl[T]{strongHandler: h}
}

// Unsubscribe flips the handler's deterministic unsubscribed flag (so no
// further dispatch reaches it, even one already queued on a non-strict
// executor's call stack might still be in flight — dispatch re-checks the
// flag right before invoking the block) and drops this Subscription's own
// strong reference, making the handler (and whatever closure state it
// captured) collectible once the AsyncValue's weak slot is the only other
// pointer to it.
func (s *subscriptionImpl[T]) Unsubscribe() {
	if s.strongHandler == nil {
		return
	}
	s.strongHandler.unsubscribed.Store(true)
	s.strongHandler = nil
}

func (s *subscriptionImpl[T]) IsClosed() bool {
	return s.strongHandler == nil || s.strongHandler.unsubscribed.Load()
}

// Cancel implements Cancellable so a Subscription can be added directly to a
// CancellationToken.
func (s *subscriptionImpl[T]) Cancel() {
	s.Unsubscribe()
}

// trivialSubscription is returned by Subscribe when the AsyncValue had
// already completed and the terminal event was already handed to the
// subscriber's executor: there is
// nothing left to unsubscribe from (spec.md §4.F "return nil or a trivial
// handle").
type trivialSubscription struct{}

func (trivialSubscription) Unsubscribe() {}
func (trivialSubscription) IsClosed() bool { return true }
func (trivialSubscription) Cancel()        {}

var _ Subscription = trivialSubscription{}
var _ Cancellable = trivialSubscription{}
