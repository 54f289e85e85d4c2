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

// Package xerrors aggregates multiple errors collected while running a
// batch of independent callbacks (teardowns, finalizers) where every
// callback must run regardless of earlier failures.
package xerrors

import "errors"

// Join aggregates non-nil errors into one error using the standard library's
// multi-error wrapping (errors.Is/As traverse every joined error). Returns
// nil if errs is empty or contains only nils.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
