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

// Package xtime gives channelCore a cheap monotonic clock for stamping
// every send, without going through the runtime-internal nanotime hook.
package xtime

import "time"

var startTime = time.Now()

// NowNanoMonotonic returns nanoseconds elapsed since package init, derived
// from time.Since's monotonic reading rather than a wall-clock time.Now()
// diff, so it stays correct across NTP adjustments on the process's
// lifetime-scoped hot path (channelCore.send stamps lastSendNanos on every
// call).
func NowNanoMonotonic() int64 {
	return time.Since(startTime).Nanoseconds()
}
