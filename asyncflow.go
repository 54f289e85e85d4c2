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

// Package asyncflow implements the core of a composable, thread-safe
// asynchronous-value library: Future/Promise for a single completion,
// Channel/Producer for a stream of updates terminated by a completion, and
// the ExecutionContext binding that ties dependent work to the lifetime of
// a host object.
package asyncflow

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	// onUnhandledError stores the current handler for unhandled errors. It is
	// accessed via atomic.Value to allow concurrent readers and writers
	// without data races.
	onUnhandledError atomic.Value // func(context.Context, error)

	// onDroppedNotification stores the current handler for dropped events.
	onDroppedNotification atomic.Value // func(context.Context, fmt.Stringer)

	// pkgLogger is the structured logger backing the zap-based default hooks.
	// It is swappable via SetLogger; nil means zap.NewNop().
	pkgLogger atomic.Pointer[zap.Logger]
)

func init() {
	pkgLogger.Store(zap.NewNop())
	onUnhandledError.Store(ZapOnUnhandledError)
	onDroppedNotification.Store(ZapOnDroppedNotification)
}

// SetLogger sets the zap logger used by the default unhandled-error and
// dropped-notification hooks. Passing nil installs a no-op logger.
func SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pkgLogger.Store(logger)
}

// Logger returns the logger currently backing the zap-based default hooks.
func Logger() *zap.Logger {
	return pkgLogger.Load()
}

// SetOnUnhandledError sets the handler invoked when an error is produced and
// not otherwise observable (e.g. a panic recovered from a subscriber block
// that has no error sink). Passing nil restores the zap-backed default.
func SetOnUnhandledError(fn func(ctx context.Context, err error)) {
	if fn == nil {
		fn = ZapOnUnhandledError
	}
	onUnhandledError.Store(fn)
}

// GetOnUnhandledError returns the currently configured unhandled-error handler.
func GetOnUnhandledError() func(ctx context.Context, err error) {
	return onUnhandledError.Load().(func(context.Context, error))
}

// OnUnhandledError invokes the currently configured unhandled-error handler.
func OnUnhandledError(ctx context.Context, err error) {
	GetOnUnhandledError()(ctx, err)
}

// SetOnDroppedNotification sets the handler invoked when an event (Update,
// Error or Complete) is computed but cannot be delivered — typically
// because the target handler has already been closed or unsubscribed, or
// because a send raced with completion. Passing nil restores the zap-backed
// default.
func SetOnDroppedNotification(fn func(ctx context.Context, event fmt.Stringer)) {
	if fn == nil {
		fn = ZapOnDroppedNotification
	}
	onDroppedNotification.Store(fn)
}

// GetOnDroppedNotification returns the currently configured dropped-event handler.
func GetOnDroppedNotification() func(ctx context.Context, event fmt.Stringer) {
	return onDroppedNotification.Load().(func(context.Context, fmt.Stringer))
}

// OnDroppedNotification invokes the currently configured dropped-event handler.
func OnDroppedNotification(ctx context.Context, event fmt.Stringer) {
	GetOnDroppedNotification()(ctx, event)
}

// IgnoreOnUnhandledError is a no-op unhandled-error handler. Useful in tests
// that intentionally trigger panics/errors and don't want log noise.
func IgnoreOnUnhandledError(ctx context.Context, err error) {}

// IgnoreOnDroppedNotification is a no-op dropped-event handler.
func IgnoreOnDroppedNotification(ctx context.Context, event fmt.Stringer) {}

// ZapOnUnhandledError is the default unhandled-error handler: it logs through
// the package logger (see SetLogger).
func ZapOnUnhandledError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	Logger().Error("asyncflow: unhandled error", zap.Error(err))
}

var _ fmt.Stringer = Event[int]{} // see ZapOnDroppedNotification

// ZapOnDroppedNotification is the default dropped-event handler: it logs
// through the package logger (see SetLogger).
//
// Since we cannot assign a generic callback to OnDroppedNotification, the
// dropped event is downgraded to a fmt.Stringer (see Event[T].String).
func ZapOnDroppedNotification(ctx context.Context, event fmt.Stringer) {
	Logger().Warn("asyncflow: dropped event", zap.String("event", event.String()))
}
