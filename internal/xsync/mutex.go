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

// Package xsync provides a Mutex abstraction that can be swapped for a
// no-op implementation on call-sites that don't need synchronization (e.g.
// a Channel known to have a single producer goroutine), while keeping the
// exact same call shape (Lock/Unlock/TryLock) on the hot path either way.
package xsync

import "sync"

// Mutex is the minimal locking surface the Channel buffer guard needs.
type Mutex interface {
	Lock()
	Unlock()
	TryLock() bool
}

type realMutex struct {
	mu sync.Mutex
}

// NewMutexWithLock returns a Mutex backed by a real sync.Mutex.
func NewMutexWithLock() Mutex {
	return &realMutex{}
}

func (m *realMutex) Lock()         { m.mu.Lock() }
func (m *realMutex) Unlock()       { m.mu.Unlock() }
func (m *realMutex) TryLock() bool { return m.mu.TryLock() }

type noopMutex struct{}

// NewMutexWithoutLock returns a Mutex whose Lock/Unlock/TryLock are no-ops.
// Used when the caller guarantees single-producer access but still wants to
// keep the same call shape as the synchronized path.
func NewMutexWithoutLock() Mutex {
	return noopMutex{}
}

func (noopMutex) Lock()         {}
func (noopMutex) Unlock()       {}
func (noopMutex) TryLock() bool { return true }
