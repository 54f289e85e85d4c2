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
	"time"
)

// NewFutureAfter returns a Future that runs construct on executor after
// delay elapses, and completes with its result. Passing a non-nil token
// lets the wait itself be cancelled before delay elapses, in which case the
// Future completes with ErrCancelled and construct never runs.
func NewFutureAfter[T any](delay time.Duration, executor Executor, token *CancellationToken, construct func(ctx context.Context) Fallible[T]) *Future[T] {
	p := NewPromise[T]()

	timer := time.AfterFunc(delay, func() {
		executor.Execute(nil, func(ranOn Executor) {
			p.TryComplete(execFallible(context.Background(), construct), ranOn)
		})
	})

	p.pool.NotifyDrain(func() { timer.Stop() })

	if token != nil {
		token.AddFunc(func() {
			timer.Stop()
			p.TryComplete(Failure[T](ErrCancelled), Immediate)
		})
	}

	return p.Future
}

// NewFutureValueAfter is the common case of NewFutureAfter: complete
// successfully with value after delay.
func NewFutureValueAfter[T any](delay time.Duration, executor Executor, token *CancellationToken, value T) *Future[T] {
	return NewFutureAfter(delay, executor, token, func(context.Context) Fallible[T] {
		return Success(value)
	})
}
