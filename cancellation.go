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
	"os"
	"os/signal"
	"sync"

	"github.com/nezhyborets/asyncflow/internal/xerrors"
)

// Cancellable is anything that can be cancelled. Subscriptions and
// CancellableFunc implement it; Promise and Producer do not, and are tied to
// a token through their CancelOn methods instead, as is the timer of
// NewFutureAfter through its token parameter.
type Cancellable interface {
	Cancel()
}

// CancellableFunc adapts a plain function to Cancellable.
type CancellableFunc func()

func (f CancellableFunc) Cancel() { f() }

// CancellationToken is a fan-out cancellation signal: a monotonic one-way
// flag plus the set of cancellables registered against it. Cancelling the
// token cancels every cancellable added so far, and any cancellable added
// afterwards is cancelled immediately upon Add (spec.md §4.D, §8
// "Cancellation propagation"). Structurally this reuses the teacher's
// subscriptionImpl finalizer-list discipline (subscription.go): collect
// under a lock, flip a done flag, then run every callback exactly once
// outside the lock.
type CancellationToken struct {
	mu           sync.Mutex
	cancelled    bool
	cancellables []Cancellable
}

// NewCancellationToken creates an un-cancelled token.
func NewCancellationToken() *CancellationToken {
	return &CancellationToken{}
}

// NewCancellationTokenFromContext returns a token that cancels itself when
// ctx is done. This supplements spec.md with a concrete, idiomatic source
// for tokens beyond manual construction — ctx.Done() is how the rest of the
// module threads cancellation through blocking operations.
func NewCancellationTokenFromContext(ctx context.Context) *CancellationToken {
	token := NewCancellationToken()
	if ctx == nil {
		return token
	}

	go func() {
		<-ctx.Done()
		token.Cancel()
	}()

	return token
}

// NewCancellationTokenFromSignals returns a token that cancels itself on
// the first delivery of any of sigs (typically os.Interrupt), stopping
// signal delivery once triggered. Supplements spec.md's token sources with
// the one every long-running consumer of this library needs: tying a root
// CancellationToken to process shutdown signals.
func NewCancellationTokenFromSignals(sigs ...os.Signal) *CancellationToken {
	token := NewCancellationToken()
	if len(sigs) == 0 {
		sigs = []os.Signal{os.Interrupt}
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	go func() {
		<-ch
		signal.Stop(ch)
		token.Cancel()
	}()

	return token
}

// Add atomically inserts cancellable into the token's set. If the token is
// already cancelled, cancellable.Cancel() runs immediately instead
// (spec.md §4.D).
func (t *CancellationToken) Add(cancellable Cancellable) {
	if cancellable == nil {
		return
	}

	t.mu.Lock()

	if t.cancelled {
		t.mu.Unlock()
		execTeardown(cancellable.Cancel)
		return
	}

	t.cancellables = append(t.cancellables, cancellable)
	t.mu.Unlock()
}

// AddFunc is a convenience wrapper around Add(CancellableFunc(fn)).
func (t *CancellationToken) AddFunc(fn func()) {
	t.Add(CancellableFunc(fn))
}

// Cancel atomically flips the cancelled flag and cancels every registered
// cancellable exactly once. Idempotent: calling Cancel twice only runs the
// drain once (spec.md §4.D).
func (t *CancellationToken) Cancel() {
	t.mu.Lock()

	if t.cancelled {
		t.mu.Unlock()
		return
	}

	t.cancelled = true
	pending := t.cancellables
	t.cancellables = nil

	t.mu.Unlock()

	var errs []error
	for _, c := range pending {
		if err := execTeardownErr(c.Cancel); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		panic(xerrors.Join(errs...))
	}
}

// IsCancelled reports whether Cancel has run.
func (t *CancellationToken) IsCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}
