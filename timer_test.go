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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewFutureValueAfterCompletesAfterDelay(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	f := NewFutureValueAfter(10*time.Millisecond, Immediate, nil, 7)
	is.False(f.IsCompleted())

	result := f.Wait(context.Background())
	v, err := result.Unwrap()
	is.NoError(err)
	is.Equal(7, v)
}

func TestNewFutureAfterCancelledBeforeDelayFailsWithErrCancelled(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	token := NewCancellationToken()
	f := NewFutureAfter(time.Hour, Immediate, token, func(ctx context.Context) Fallible[int] {
		return Success(1)
	})

	token.Cancel()

	result := f.Wait(context.Background())
	is.True(result.IsFailure())
	is.ErrorIs(result.Err(), ErrCancelled)
}
