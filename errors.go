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
	"fmt"
)

// Intrinsic failure kinds raised by the core itself (spec.md §7). User
// failures pass through Fallible/Event unchanged and are never wrapped by
// the library.
var (
	// ErrCancelled is the failure a Promise/Producer completes with when a
	// CancellationToken it was attached to is cancelled.
	ErrCancelled = errors.New("asyncflow: cancelled")

	// ErrContextDeallocated is the failure a Future completes with when its
	// construction block runs (or would run) after the ExecutionContext it
	// was bound to has died.
	ErrContextDeallocated = errors.New("asyncflow: execution context deallocated")
)

// handlerError wraps a panic recovered from a subscriber/handler block.
type handlerError struct {
	cause error
}

func newHandlerError(cause error) error {
	return &handlerError{cause: cause}
}

func (e *handlerError) Error() string {
	return fmt.Sprintf("asyncflow: handler panicked: %s", e.cause.Error())
}

func (e *handlerError) Unwrap() error { return e.cause }

// teardownError wraps a panic recovered from a ReleasePool/CancellationToken
// teardown callback.
type teardownError struct {
	cause error
}

func newTeardownError(cause error) error {
	return &teardownError{cause: cause}
}

func (e *teardownError) Error() string {
	return fmt.Sprintf("asyncflow: teardown panicked: %s", e.cause.Error())
}

func (e *teardownError) Unwrap() error { return e.cause }

// recoverValueToError normalizes an arbitrary recover() value into an error.
func recoverValueToError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
