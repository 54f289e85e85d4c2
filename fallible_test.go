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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFallibleSuccess(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	f := Success(42)
	is.True(f.IsSuccess())
	is.False(f.IsFailure())
	is.Nil(f.Err())

	v, ok := f.Value()
	is.True(ok)
	is.Equal(42, v)

	v, err := f.Unwrap()
	is.NoError(err)
	is.Equal(42, v)

	is.Equal("Success(42)", f.String())
}

func TestFallibleFailure(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	boom := errors.New("boom")
	f := Failure[int](boom)
	is.False(f.IsSuccess())
	is.True(f.IsFailure())
	is.Equal(boom, f.Err())

	v, ok := f.Value()
	is.False(ok)
	is.Zero(v)

	_, err := f.Unwrap()
	is.Equal(boom, err)

	is.Equal("Failure(boom)", f.String())
}

func TestFallibleFailureNilError(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	f := Failure[string](nil)
	is.True(f.IsFailure())
	is.Equal("Failure(nil)", f.String())
}

func TestLiftSuccess(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	result := LiftSuccess(Success(3), func(v int) string { return "x" })
	is.True(result.IsSuccess())
	v, _ := result.Value()
	is.Equal("x", v)

	boom := errors.New("boom")
	failed := LiftSuccess(Failure[int](boom), func(v int) string { return "x" })
	is.True(failed.IsFailure())
	is.Equal(boom, failed.Err())
}

func TestLiftSuccessRecoversPanic(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	result := LiftSuccess(Success(3), func(v int) string { panic("kaboom") })
	is.True(result.IsFailure())
	is.Contains(result.Err().Error(), "kaboom")
}

func TestLiftSuccessFallible(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	ok := LiftSuccessFallible(Success(3), func(v int) Fallible[int] { return Success(v * 2) })
	is.True(ok.IsSuccess())
	v, _ := ok.Value()
	is.Equal(6, v)

	boom := errors.New("boom")
	propagated := LiftSuccessFallible(Failure[int](boom), func(v int) Fallible[int] { return Success(v) })
	is.Equal(boom, propagated.Err())

	failing := LiftSuccessFallible(Success(3), func(v int) Fallible[int] { return Failure[int](boom) })
	is.Equal(boom, failing.Err())
}

func TestLiftFailure(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	is.Equal(3, LiftFailure(Success(3), func(err error) int { return -1 }))
	is.Equal(-1, LiftFailure(Failure[int](errors.New("boom")), func(err error) int { return -1 }))
}

func TestLiftFailureFallible(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	recovered := LiftFailureFallible(Failure[int](errors.New("boom")), func(err error) Fallible[int] { return Success(7) })
	is.True(recovered.IsSuccess())
	v, _ := recovered.Value()
	is.Equal(7, v)

	untouched := LiftFailureFallible(Success(9), func(err error) Fallible[int] { return Success(-1) })
	v, _ = untouched.Value()
	is.Equal(9, v)
}
