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
	"time"
)

// Executor is a strategy for running a block of work: inline, on a shared
// pool, on a named serial queue, delayed, or via a user-supplied dispatch
// function. Every AsyncValue dispatches handler invocations through the
// Executor recorded at subscription time (spec.md §4.B).
type Executor interface {
	// Execute runs block, either inline or asynchronously depending on the
	// Executor and on whether `from` (the executor that originated the
	// current call stack, or nil) allows inlining. The block receives the
	// Executor that actually ran it, so downstream dispatch can decide
	// whether to inline further.
	Execute(from Executor, block func(ranOn Executor))

	// ExecuteAfter schedules block to run after delay, via the same
	// dispatch mechanism as Execute.
	ExecuteAfter(delay time.Duration, block func(ranOn Executor))

	// StrictAsync reports whether this executor always dispatches through
	// its own scheduler, even when called from itself (true), or whether it
	// permits inlining when `from` equals this executor (false).
	StrictAsync() bool

	// name identifies the executor for logging/debugging; not part of the
	// external interface contract in spec.md §6, but handy for tests.
	name() string
}

// immediateExecutor runs every block synchronously on the calling goroutine.
type immediateExecutor struct{}

// Immediate is the executor that always runs inline on the calling
// goroutine. It is never StrictAsync.
var Immediate Executor = immediateExecutor{}

func (immediateExecutor) Execute(from Executor, block func(Executor)) { block(Immediate) }
func (immediateExecutor) ExecuteAfter(delay time.Duration, block func(Executor)) {
	if delay <= 0 {
		block(Immediate)
		return
	}
	time.AfterFunc(delay, func() { block(Immediate) })
}
func (immediateExecutor) StrictAsync() bool { return false }
func (immediateExecutor) name() string      { return "immediate" }

// poolExecutor dispatches onto an unbounded goroutine-per-block pool. It
// backs Primary and the four priority lanes; lanes only differ by name (Go
// has no user-space thread priority, so the "priority" is informational,
// matching how the teacher's priority lanes are themselves just named
// dispatch queues with OS-level priority hints it cannot control either).
type poolExecutor struct {
	label  string
	strict bool
}

func (e *poolExecutor) Execute(from Executor, block func(Executor)) {
	if !e.strict && from == Executor(e) {
		block(e)
		return
	}
	go block(e)
}

func (e *poolExecutor) ExecuteAfter(delay time.Duration, block func(Executor)) {
	if delay <= 0 {
		go block(e)
		return
	}
	time.AfterFunc(delay, func() { go block(e) })
}

func (e *poolExecutor) StrictAsync() bool { return e.strict }
func (e *poolExecutor) name() string      { return e.label }

// Primary is the library's default executor: a shared, unbounded concurrent
// pool, non-strict (callers on Primary may be inlined when re-entering
// Primary).
var Primary Executor = &poolExecutor{label: "primary", strict: false}

// Cooperative priority lanes, mapped to platform concurrent queues in the
// source material; here they are named pools with the same dispatch
// semantics as Primary; see internal/constraints for the shared Numeric
// constraint used by Scan, not related to these lanes.
var (
	UserInteractive Executor = &poolExecutor{label: "user-interactive", strict: false}
	UserInitiated   Executor = &poolExecutor{label: "user-initiated", strict: false}
	Utility         Executor = &poolExecutor{label: "utility", strict: false}
	Background      Executor = &poolExecutor{label: "background", strict: false}
)

// queueExecutor is a named serial executor: a single worker goroutine
// draining a FIFO job channel. strictAsync is always true: a queue executor
// never inlines, even if the caller is already running on it, since doing
// so would let a running job enqueue itself reentrantly and starve the
// queue.
type queueExecutor struct {
	label     string
	jobs      chan func(Executor)
	once      sync.Once
	closeOnce sync.Once
}

// NewQueueExecutor creates a named serial Executor: all blocks submitted to
// it run one at a time, in submission order, on a single dedicated
// goroutine.
func NewQueueExecutor(name string) Executor {
	e := &queueExecutor{label: name, jobs: make(chan func(Executor), 256)}
	e.start()
	return e
}

// Close stops the queue's dedicated worker goroutine once any already
// submitted jobs drain. Only meaningful for a queueExecutor, so it is
// reached via a type assertion rather than added to the Executor interface
// itself: most executors (Immediate, the shared pools) have no dedicated
// goroutine to stop.
func (e *queueExecutor) Close() {
	e.closeOnce.Do(func() { close(e.jobs) })
}

func (e *queueExecutor) start() {
	e.once.Do(func() {
		go func() {
			for job := range e.jobs {
				func() {
					defer func() { _ = recover() }() // a panicking job must not kill the worker
					job(e)
				}()
			}
		}()
	})
}

func (e *queueExecutor) Execute(from Executor, block func(Executor)) {
	e.jobs <- block
}

func (e *queueExecutor) ExecuteAfter(delay time.Duration, block func(Executor)) {
	if delay <= 0 {
		e.jobs <- block
		return
	}
	time.AfterFunc(delay, func() { e.jobs <- block })
}

func (e *queueExecutor) StrictAsync() bool { return true }
func (e *queueExecutor) name() string      { return e.label }

// customExecutor wraps a user-supplied dispatch function.
type customExecutor struct {
	label  string
	strict bool
	fn     func(block func())
}

// NewCustomExecutor wraps fn (which must eventually call the block it is
// given, possibly asynchronously) as an Executor. strictAsync controls
// whether same-executor inlining is permitted.
func NewCustomExecutor(name string, strictAsync bool, fn func(block func())) Executor {
	return &customExecutor{label: name, strict: strictAsync, fn: fn}
}

func (e *customExecutor) Execute(from Executor, block func(Executor)) {
	if !e.strict && from == Executor(e) {
		block(e)
		return
	}
	e.fn(func() { block(e) })
}

func (e *customExecutor) ExecuteAfter(delay time.Duration, block func(Executor)) {
	if delay <= 0 {
		e.Execute(nil, block)
		return
	}
	time.AfterFunc(delay, func() { e.Execute(nil, block) })
}

func (e *customExecutor) StrictAsync() bool { return e.strict }
func (e *customExecutor) name() string      { return e.label }
