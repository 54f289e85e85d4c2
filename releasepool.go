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
	"sync"

	"github.com/samber/lo"

	"github.com/nezhyborets/asyncflow/internal/xerrors"
)

// Releasable is anything a ReleasePool can keep alive until drain: the pool
// only needs to hold a reference, so `any` is accepted directly.
type Releasable = any

// ReleasePool is a one-shot keep-alive container: it holds arbitrary
// releasable handles (and a list of on-drain callbacks) until the moment its
// owning Promise/Producer completes, at which point it drains exactly once
// (spec.md §4.C). This is adapted from the teacher's subscriptionImpl
// finalizer list (subscription.go): the same "collect callbacks, then run
// them all once, aggregating panics" shape, generalized to also hold
// plain keep-alive values instead of only teardown closures.
type ReleasePool struct {
	mu        sync.Mutex
	drained   bool
	held      []Releasable
	onDrained []func()
}

// NewReleasePool creates an empty, undrained ReleasePool.
func NewReleasePool() *ReleasePool {
	return &ReleasePool{}
}

// Insert adds a releasable handle to the pool. No-op if the pool has
// already drained (the handle is not retained, mirroring spec.md §4.C).
func (p *ReleasePool) Insert(releasable Releasable) {
	if releasable == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.drained {
		return
	}

	p.held = append(p.held, releasable)
}

// NotifyDrain schedules block to run at drain time. If the pool has already
// drained, block runs immediately (spec.md §4.C).
func (p *ReleasePool) NotifyDrain(block func()) {
	if block == nil {
		return
	}

	p.mu.Lock()

	if p.drained {
		p.mu.Unlock()
		execTeardown(block)
		return
	}

	p.onDrained = append(p.onDrained, block)
	p.mu.Unlock()
}

// Drain releases every inserted handle and runs every on-drain callback, in
// insertion order, exactly once. Subsequent calls are no-ops. Panics from
// on-drain callbacks are recovered and aggregated; Drain panics with the
// aggregate if any callback panicked (the same aggregation
// CancellationToken.Cancel does).
func (p *ReleasePool) Drain() {
	p.mu.Lock()

	if p.drained {
		p.mu.Unlock()
		return
	}

	p.drained = true
	held := p.held
	callbacks := p.onDrained
	p.held = nil
	p.onDrained = nil

	p.mu.Unlock()

	var errs []error

	for _, callback := range callbacks {
		if err := execTeardownErr(callback); err != nil {
			errs = append(errs, err)
		}
	}

	// Drop the strong references last, after on-drain callbacks had a chance
	// to observe them.
	_ = held

	if len(errs) > 0 {
		panic(xerrors.Join(errs...))
	}
}

// IsDrained reports whether Drain has already run.
func (p *ReleasePool) IsDrained() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.drained
}

func execTeardown(fn func()) {
	_ = execTeardownErr(fn)
}

// execTeardownErr runs fn, recovering any panic into a *teardownError.
func execTeardownErr(fn func()) (err error) {
	lo.TryCatchWithErrorValue(
		func() error {
			fn()
			return nil
		},
		func(r any) {
			err = newTeardownError(recoverValueToError(r))
		},
	)

	return err
}
