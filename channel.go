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

	"github.com/nezhyborets/asyncflow/internal/xsync"
	"github.com/nezhyborets/asyncflow/internal/xtime"
)

// ChannelUnlimitedBufferSize disables eviction: every update is retained for
// late subscribers. A bufferSize of 0 disables replay entirely; any positive
// N retains only the N most recent updates, evicting the oldest first
// (spec.md §4.G, grounded on the teacher's ReplaySubject,
// other_examples/.../subject_replay.go.go).
const ChannelUnlimitedBufferSize = -1

// Channel is component G (spec.md §4.G): a multi-subscriber stream that
// delivers zero or more updates before a single terminal completion. Unlike
// Future's fixed-at-completion-time subscriber chain, a Channel's subscriber
// set is genuinely dynamic for the whole Open lifetime, so the three-state
// head lifecycle (Initial -> Open -> Completed) only governs which core a
// subscribe/send sees; the live handler registry and replay buffer inside
// that core are guarded by their own mutex, exactly the way the teacher's
// replaySubjectImpl guards its observers/values/status behind one sync.Mutex
// rather than trying to CAS a whole subject on every Next call.
type Channel[T any] struct {
	head *head[T]
	pool *ReleasePool
}

// Producer is the writable handle paired with a Channel (spec.md §4.G
// "Producer wraps a Channel and exposes send/tryComplete").
type Producer[T any] struct {
	*Channel[T]
}

// channelInitialState is the head's state before any subscriber has
// attached. The core already exists at this point (not lazily created on
// first subscribe) because a Producer is allowed to Send before anyone is
// listening; those sends still land in the replay buffer for whoever
// subscribes later, exactly like a hot ReplaySubject.
type channelInitialState[T any] struct {
	onFirstSubscribe func()
	core             *channelCore[T]
}

func (*channelInitialState[T]) isHeadState() {}

// channelOpenState is reached on the first subscribe; it carries the same
// core onward, so sends and subscribes behave identically before and after
// that edge except for firing onFirstSubscribe exactly once.
type channelOpenState[T any] struct {
	core *channelCore[T]
}

func (*channelOpenState[T]) isHeadState() {}

// channelCompletedState is terminal. It keeps core so a subscriber arriving
// after completion can still replay the buffered updates before receiving
// the terminal Fallible, matching replaySubjectImpl's post-completion
// subscribe behavior.
type channelCompletedState[T any] struct {
	result Fallible[T]
	core   *channelCore[T]
}

func (*channelCompletedState[T]) isHeadState() {}

func coreOf[T any](state headState[T]) *channelCore[T] {
	switch s := state.(type) {
	case *channelInitialState[T]:
		return s.core
	case *channelOpenState[T]:
		return s.core
	case *channelCompletedState[T]:
		return s.core
	default:
		return nil
	}
}

// channelCore is the mutex-guarded registry + replay buffer backing every
// Channel regardless of which head state currently wraps it. Its own
// "closed" flag (distinct from, but set in lockstep with, the head's
// Completed transition) is what lets subscribeWithReplay and terminate race
// safely against each other: whichever runs first under the core's lock
// wins, and the other observes a consistent view instead of registering
// into, or double-broadcasting on, a half-torn-down core.
type channelCore[T any] struct {
	mu     xsync.Mutex
	closed bool
	// terminalEvent is only meaningful once closed is true.
	terminalEvent Event[T]

	nextID   uint64
	handlers map[uint64]weak.Pointer[handler[T]]
	order    []uint64

	buffer     []T
	bufferSize int

	// lastSendNanos is stamped on every send using the teacher's fast
	// monotonic clock read (internal/xtime.NowNanoMonotonic) rather than
	// time.Now(), since it sits on the hot per-update broadcast path.
	lastSendNanos atomic.Int64
}

func newChannelCore[T any](bufferSize int) *channelCore[T] {
	return &channelCore[T]{
		mu:         xsync.NewMutexWithLock(),
		handlers:   make(map[uint64]weak.Pointer[handler[T]]),
		bufferSize: bufferSize,
	}
}

// newUnsynchronizedChannelCore skips locking entirely: fit only for a
// Channel whose Producer is used from a single goroutine (Send is never
// called concurrently with itself), in exchange for one less atomic
// operation per send/subscribe on that hot path.
func newUnsynchronizedChannelCore[T any](bufferSize int) *channelCore[T] {
	return &channelCore[T]{
		mu:         xsync.NewMutexWithoutLock(),
		handlers:   make(map[uint64]weak.Pointer[handler[T]]),
		bufferSize: bufferSize,
	}
}

// subscribeWithReplay replays the buffered updates, then either registers h
// into the live chain (closed == false) or reports the terminal event the
// caller must deliver instead (closed == true). Taking the buffer snapshot
// and the closed check/registration together under one critical section is
// what keeps this atomic with send/terminate; the actual replay dispatch
// happens afterward, with the lock released, so a handler that re-enters
// the channel from its own callback does not retake a lock it still holds.
func (c *channelCore[T]) subscribeWithReplay(ctx context.Context, h *handler[T]) (unsubscribe func(), closed bool, terminal Event[T]) {
	c.mu.Lock()

	replay := append([]T(nil), c.buffer...)

	if c.closed {
		terminalEvent := c.terminalEvent
		c.mu.Unlock()

		for _, v := range replay {
			h.dispatch(ctx, NewUpdateEvent(v), nil)
		}
		return nil, true, terminalEvent
	}

	id := c.nextID
	c.nextID++
	c.handlers[id] = weak.Make(h)
	c.order = append(c.order, id)

	c.mu.Unlock()

	for _, v := range replay {
		h.dispatch(ctx, NewUpdateEvent(v), nil)
	}

	return func() {
		c.mu.Lock()
		delete(c.handlers, id)
		c.mu.Unlock()
	}, false, Event[T]{}
}

// send appends value to the replay buffer, evicting the oldest entry past
// bufferSize, then broadcasts it to every live handler (spec.md §4.G
// "bounded buffer, evicts oldest on overflow"; dropped entries are reported
// through OnDroppedNotification exactly as the teacher's replaySubjectImpl
// does for both overflowed buffer entries and post-close sends).
//
// The lock only guards the registry/buffer mutation; it is released before
// any handler is dispatched to, so a handler that re-enters Send/Subscribe/
// TryComplete on the same Channel from inside its own callback does not
// deadlock retaking a non-reentrant mutex it is still holding.
func (c *channelCore[T]) send(ctx context.Context, value T, from Executor) {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		OnDroppedNotification(ctx, NewUpdateEvent(value))
		return
	}

	c.lastSendNanos.Store(xtime.NowNanoMonotonic())
	handlers := c.snapshotHandlersLocked()

	var dropped T
	hasDropped := false
	if c.bufferSize != 0 {
		c.buffer = append(c.buffer, value)
		if c.bufferSize != ChannelUnlimitedBufferSize && len(c.buffer) > c.bufferSize {
			dropped = c.buffer[0]
			hasDropped = true
			c.buffer = c.buffer[len(c.buffer)-c.bufferSize:]
		}
	}

	c.mu.Unlock()

	event := NewUpdateEvent(value)
	for _, h := range handlers {
		h.dispatch(ctx, event, from)
	}

	if hasDropped {
		OnDroppedNotification(ctx, NewUpdateEvent(dropped))
	}
}

// snapshotHandlersLocked resolves the live, ordered handler chain to strong
// pointers while c.mu is held, so the caller can dispatch to that snapshot
// after releasing the lock instead of holding it across user callbacks.
func (c *channelCore[T]) snapshotHandlersLocked() []*handler[T] {
	handlers := make([]*handler[T], 0, len(c.order))
	for _, id := range c.order {
		wp, ok := c.handlers[id]
		if !ok {
			continue
		}
		h, alive := wp.Value()
		if !alive {
			continue
		}
		handlers = append(handlers, h)
	}
	return handlers
}

// terminate is idempotent: only the first caller (the one TryComplete's own
// head CAS identified as the unique writer) actually broadcasts and tears
// down the registry; a second call (which can only happen if a racing
// subscribeWithReplay's view of "closed" was stale) is a no-op. As with
// send, the handler snapshot is dispatched to only after c.mu is released.
func (c *channelCore[T]) terminate(ctx context.Context, event Event[T], from Executor) {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.terminalEvent = event

	handlers := c.snapshotHandlersLocked()
	c.handlers = nil
	c.order = nil

	c.mu.Unlock()

	for _, h := range handlers {
		h.dispatch(ctx, event, from)
	}
}

func newChannel[T any](bufferSize int, onFirstSubscribe func()) *Channel[T] {
	return newChannelWithCore[T](newChannelCore[T](bufferSize), onFirstSubscribe)
}

func newChannelWithCore[T any](core *channelCore[T], onFirstSubscribe func()) *Channel[T] {
	return &Channel[T]{
		head: newHead[T](&channelInitialState[T]{onFirstSubscribe: onFirstSubscribe, core: core}),
		pool: NewReleasePool(),
	}
}

// NewProducer returns a fresh, open Channel/Producer pair with the given
// replay buffer size (0 disables replay, ChannelUnlimitedBufferSize keeps
// everything).
func NewProducer[T any](bufferSize int) *Producer[T] {
	return &Producer[T]{Channel: newChannel[T](bufferSize, nil)}
}

// NewSingleProducerChannel is NewProducer without the internal locking:
// the core takes no lock at all, so Send, Subscribe, Unsubscribe and
// completion must never run concurrently with one another.
func NewSingleProducerChannel[T any](bufferSize int) *Producer[T] {
	return &Producer[T]{Channel: newChannelWithCore[T](newUnsynchronizedChannelCore[T](bufferSize), nil)}
}

// NewDeferredChannel returns a Channel whose producer-side start routine is
// deferred until the first subscriber attaches, mirroring
// NewDeferredFuture's lazy-start contract for component F.
func NewDeferredChannel[T any](bufferSize int, start func(p *Producer[T])) *Channel[T] {
	p := &Producer[T]{}
	p.Channel = newChannel[T](bufferSize, func() { start(p) })
	return p.Channel
}

// IsCompleted reports whether c has already delivered its terminal event.
func (c *Channel[T]) IsCompleted() bool {
	_, ok := c.head.load().(*channelCompletedState[T])
	return ok
}

// LastSendNanos returns the monotonic timestamp (internal/xtime.NowNanoMonotonic
// epoch) of the most recent update sent through c, or 0 if none has been
// sent yet.
func (c *Channel[T]) LastSendNanos() int64 {
	core := coreOf[T](c.head.load())
	if core == nil {
		return 0
	}
	return core.lastSendNanos.Load()
}

// Subscribe registers onUpdate/onComplete for c's updates and terminal
// event, using context.Background(). See SubscribeWithContext.
func (c *Channel[T]) Subscribe(executor Executor, onUpdate func(ctx context.Context, value T), onComplete func(ctx context.Context, err error)) Subscription {
	return c.SubscribeWithContext(context.Background(), executor, onUpdate, onComplete)
}

// SubscribeWithContext is spec.md §4.G's subscribe operation. A new
// subscriber first receives any buffered updates (oldest first), then
// either joins the live chain (c still Open) or immediately receives the
// terminal Fallible (c already Completed) — in both cases without missing
// or double-delivering a value that was in flight at subscribe time,
// because the replay snapshot and the registration are taken together under
// the core's lock (the replay itself is dispatched after the lock is
// released).
func (c *Channel[T]) SubscribeWithContext(ctx context.Context, executor Executor, onUpdate func(ctx context.Context, value T), onComplete func(ctx context.Context, err error)) Subscription {
	h := newHandler[T](executor, c, func(ctx context.Context, event Event[T], ranOn Executor) {
		switch event.Kind {
		case KindUpdate:
			if onUpdate != nil {
				onUpdate(ctx, event.Value)
			}
		case KindError:
			if onComplete != nil {
				onComplete(ctx, event.Err)
			}
		case KindComplete:
			if onComplete != nil {
				onComplete(ctx, nil)
			}
		}
	})

	old, newState := c.head.update(func(old headState[T]) headState[T] {
		if init, ok := old.(*channelInitialState[T]); ok {
			return &channelOpenState[T]{core: init.core}
		}
		return old
	})

	core := coreOf[T](newState)
	if core == nil {
		return trivialSubscription{}
	}

	unsubscribe, closed, terminal := core.subscribeWithReplay(ctx, h)
	if closed {
		h.dispatch(ctx, terminal, nil)
		return trivialSubscription{}
	}

	if init, wasInitial := old.(*channelInitialState[T]); wasInitial && init.onFirstSubscribe != nil {
		init.onFirstSubscribe()
	}

	return newChannelSubscription(h, unsubscribe)
}

// Send delivers value to every current subscriber and appends it to the
// replay buffer, using context.Background().
func (p *Producer[T]) Send(value T) {
	p.SendWithContext(context.Background(), value)
}

// SendWithContext is spec.md §4.G's send operation. Sending after
// completion is a silent no-op (beyond reporting the drop), resolving the
// spec's "send racing with complete" open question the same way the
// teacher's NextWithContext does for an already-closed subject.
func (p *Producer[T]) SendWithContext(ctx context.Context, value T) {
	core := coreOf[T](p.head.load())
	if core == nil {
		OnDroppedNotification(ctx, NewUpdateEvent(value))
		return
	}
	core.send(ctx, value, Immediate)
}

// TryComplete is spec.md §4.G's tryComplete: the unique winning caller
// broadcasts the terminal event to the live handlers the core holds when
// terminate closes it, and
// drains the release pool; every other caller observes Completed as the old
// state and returns false.
func (p *Producer[T]) TryComplete(result Fallible[T]) bool {
	old, _ := p.head.update(func(old headState[T]) headState[T] {
		if _, ok := old.(*channelCompletedState[T]); ok {
			return old
		}
		return &channelCompletedState[T]{result: result, core: coreOf[T](old)}
	})

	if _, already := old.(*channelCompletedState[T]); already {
		return false
	}

	if core := coreOf[T](old); core != nil {
		core.terminate(context.Background(), eventFromFallible(result), Immediate)
	}

	p.pool.Drain()
	return true
}

// Complete terminates the channel successfully (no payload).
func (p *Producer[T]) Complete() bool {
	return p.TryComplete(Success(zeroValue[T]()))
}

// Fail terminates the channel with err.
func (p *Producer[T]) Fail(err error) bool {
	return p.TryComplete(Failure[T](err))
}

// CancelOn registers p to complete with ErrCancelled when token is
// cancelled, returning p for chaining.
func (p *Producer[T]) CancelOn(token *CancellationToken) *Producer[T] {
	token.AddFunc(func() {
		p.TryComplete(Failure[T](ErrCancelled))
	})
	return p
}

// channelSubscription additionally unregisters from the core's live chain
// on Unsubscribe, on top of subscriptionImpl's deterministic flag flip —
// Future's chain is read once at completion time and needs no such
// bookkeeping, but Channel's chain is live for its whole Open lifetime.
type channelSubscription[T any] struct {
	strongHandler       *handler[T]
	unsubscribeFromCore func()
}

func newChannelSubscription[T any](h *handler[T], unsubscribeFromCore func()) *channelSubscription[T] {
	return &channelSubscription[T]{strongHandler: h, unsubscribeFromCore: unsubscribeFromCore}
}

func (s *channelSubscription[T]) Unsubscribe() {
	if s.strongHandler == nil {
		return
	}
	s.strongHandler.unsubscribed.Store(true)
	if s.unsubscribeFromCore != nil {
		s.unsubscribeFromCore()
	}
	s.strongHandler = nil
	s.unsubscribeFromCore = nil
}

func (s *channelSubscription[T]) IsClosed() bool {
	return s.strongHandler == nil || s.strongHandler.unsubscribed.Load()
}

func (s *channelSubscription[T]) Cancel() {
	s.Unsubscribe()
}

var _ Subscription = (*channelSubscription[int])(nil)
var _ Cancellable = (*channelSubscription[int])(nil)

// ProducerProxy is a Producer that can be bound bidirectionally to another
// ProducerProxy of the same type (spec.md §4.G two-way binding, the KVO/
// property-bridge use case in §6). Without a guard, forwarding every update
// symmetrically would bounce a single logical update back and forth
// forever; applyingFromPeer is that guard, set only while a value just
// received from the bound peer is being applied locally, so the forwarding
// handler (which checks it) knows not to bounce it straight back.
type ProducerProxy[T any] struct {
	*Producer[T]
	applyingFromPeer atomic.Bool
}

// NewProducerProxy returns a fresh, unbound ProducerProxy.
func NewProducerProxy[T any](bufferSize int) *ProducerProxy[T] {
	return &ProducerProxy[T]{Producer: NewProducer[T](bufferSize)}
}

// tryUpdateWithoutHandling applies value as if it came from a bound peer:
// it is sent through the normal path (so pp's own subscribers still see it)
// but with applyingFromPeer held true for the duration, so Bind's forwarding
// handler sees the guard and does not forward it onward again.
func (pp *ProducerProxy[T]) tryUpdateWithoutHandling(value T) {
	pp.applyingFromPeer.Store(true)
	defer pp.applyingFromPeer.Store(false)
	pp.Send(value)
}

// Bind wires pp and peer bidirectionally: every update sent directly to
// either side (via Send, not already a forwarded peer update) is
// mirrored onto the other side exactly once. Returns a Subscription that
// tears down both forwarding legs.
func (pp *ProducerProxy[T]) Bind(peer *ProducerProxy[T]) Subscription {
	forwardToPeer := pp.SubscribeWithContext(context.Background(), Immediate, func(_ context.Context, value T) {
		if pp.applyingFromPeer.Load() {
			return
		}
		peer.tryUpdateWithoutHandling(value)
	}, nil)

	forwardToSelf := peer.SubscribeWithContext(context.Background(), Immediate, func(_ context.Context, value T) {
		if peer.applyingFromPeer.Load() {
			return
		}
		pp.tryUpdateWithoutHandling(value)
	}, nil)

	return &bindSubscription{a: forwardToPeer, b: forwardToSelf}
}

type bindSubscription struct {
	a, b Subscription
}

func (s *bindSubscription) Unsubscribe() {
	s.a.Unsubscribe()
	s.b.Unsubscribe()
}

func (s *bindSubscription) IsClosed() bool {
	return s.a.IsClosed() && s.b.IsClosed()
}

func (s *bindSubscription) Cancel() {
	s.Unsubscribe()
}

var _ Subscription = (*bindSubscription)(nil)
