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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCancellationTokenAddBeforeCancelFiresOnCancel(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	token := NewCancellationToken()
	var fired atomic.Bool
	token.AddFunc(func() { fired.Store(true) })

	is.False(token.IsCancelled())
	token.Cancel()
	is.True(token.IsCancelled())
	is.True(fired.Load())
}

func TestCancellationTokenAddAfterCancelFiresImmediately(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	token := NewCancellationToken()
	token.Cancel()

	var fired atomic.Bool
	token.AddFunc(func() { fired.Store(true) })
	is.True(fired.Load())
}

func TestCancellationTokenCancelIsIdempotent(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	token := NewCancellationToken()
	var count atomic.Int64
	token.AddFunc(func() { count.Add(1) })

	token.Cancel()
	token.Cancel()
	token.Cancel()

	is.EqualValues(1, count.Load())
}

func TestCancellationTokenAddNilIsNoOp(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	token := NewCancellationToken()
	token.Add(nil)
	is.NotPanics(func() { token.Cancel() })
}

func TestNewCancellationTokenFromContextCancelsOnContextDone(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	token := NewCancellationTokenFromContext(ctx)

	is.False(token.IsCancelled())
	cancel()

	is.Eventually(func() bool {
		return token.IsCancelled()
	}, time.Second, time.Millisecond)
}

func TestNewCancellationTokenFromContextNilContext(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	token := NewCancellationTokenFromContext(nil)
	is.False(token.IsCancelled())
}
