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
)

// Property is the minimal external surface for the KVO/property-bridge
// collaborator spec.md §6 describes: a mutable cell that also happens to be
// a Channel, so observing a property is exactly subscribing to it, and
// binding two properties together is exactly ProducerProxy.Bind. It is
// deliberately thin — a get/set pair over a ProducerProxy — rather than a
// full reflection-based observation framework, since that framework has no
// teacher precedent in this pack and spec.md §6 only asks for the
// collaborator surface, not an implementation of a host UI toolkit's own KVO.
type Property[T any] struct {
	proxy *ProducerProxy[T]

	mu    sync.Mutex
	value T
}

// NewProperty returns a Property initialized to initial.
func NewProperty[T any](initial T) *Property[T] {
	return &Property[T]{
		proxy: NewProducerProxy[T](1),
		value: initial,
	}
}

// Get returns the current value.
func (p *Property[T]) Get() T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// Set updates the value and notifies every subscriber/bound peer.
func (p *Property[T]) Set(value T) {
	p.mu.Lock()
	p.value = value
	p.mu.Unlock()
	p.proxy.Send(value)
}

// Channel exposes the property as a read-only Channel: subscribing observes
// every future Set (WatchFile/WatchURL-style polling is a separate,
// external-source concern; a Property changes only through explicit Set
// calls, so no polling loop is needed here).
func (p *Property[T]) Channel() *Channel[T] {
	return p.proxy.Channel
}

// Subscribe is a convenience for Channel().Subscribe, delivering only
// updates (a Property has no terminal completion of its own).
func (p *Property[T]) Subscribe(executor Executor, onUpdate func(ctx context.Context, value T)) Subscription {
	return p.proxy.SubscribeWithContext(context.Background(), executor, onUpdate, nil)
}

// Bind wires p and peer so that setting either updates the other, using
// ProducerProxy.Bind's feedback-loop guard to avoid an infinite ping-pong.
// Unlike a bare ProducerProxy.Bind, this also keeps each Property's cached
// value (the one Get returns) in sync, since Bind's forwarding handlers push
// straight into the peer's underlying proxy and bypass Set.
func (p *Property[T]) Bind(peer *Property[T]) Subscription {
	bind := p.proxy.Bind(peer.proxy)

	toPeer := p.Subscribe(Immediate, func(_ context.Context, value T) {
		peer.mu.Lock()
		peer.value = value
		peer.mu.Unlock()
	})
	toSelf := peer.Subscribe(Immediate, func(_ context.Context, value T) {
		p.mu.Lock()
		p.value = value
		p.mu.Unlock()
	})

	return &bindSubscription{a: bind, b: &bindSubscription{a: toPeer, b: toSelf}}
}
