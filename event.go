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

import "fmt"

// Kind identifies the kind of Event carried through a handler: an update
// value, a terminal failure, or a terminal completion. Mirrors the
// teacher's Kind/Notification split (ro.go), generalized so one type covers
// both Future (Next absent, single terminal) and Channel (many Next, one
// terminal) traffic.
type Kind uint8

const (
	KindUpdate Kind = iota
	KindError
	KindComplete
)

func (k Kind) String() string {
	switch k {
	case KindUpdate:
		return "Update"
	case KindError:
		return "Error"
	case KindComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Event is what a producer-side completion walk dispatches to a handler: an
// update carrying T, or a terminal Fallible[T] (failure or completion).
// Event implements fmt.Stringer so it can be passed to OnDroppedNotification
// without requiring a non-generic callback signature.
type Event[T any] struct {
	Kind  Kind
	Value T
	Err   error
}

func NewUpdateEvent[T any](value T) Event[T] {
	return Event[T]{Kind: KindUpdate, Value: value}
}

func NewErrorEvent[T any](err error) Event[T] {
	return Event[T]{Kind: KindError, Err: err}
}

func NewCompleteEvent[T any]() Event[T] {
	return Event[T]{Kind: KindComplete}
}

// eventFromFallible turns a terminal Fallible[T] into its Error/Complete
// Event. For a Future, the Complete event's Value is the actual result (a
// Future only ever has one terminal notification, so "Complete" doubles as
// "Complete-with-this-value"). For a Channel, whose terminal completion
// carries no payload by convention, Value is simply the zero value of T and
// ignored by callers.
func eventFromFallible[T any](f Fallible[T]) Event[T] {
	if f.IsFailure() {
		return NewErrorEvent[T](f.Err())
	}
	v, _ := f.Value()
	return Event[T]{Kind: KindComplete, Value: v}
}

// fallibleFromErr builds the Fallible a Channel's onComplete callback needs
// to forward into another Producer's TryComplete: nil means success with no
// payload, any non-nil error means failure.
func fallibleFromErr[T any](err error) Fallible[T] {
	if err == nil {
		return Success(zeroValue[T]())
	}
	return Failure[T](err)
}

func (e Event[T]) String() string {
	switch e.Kind {
	case KindUpdate:
		return fmt.Sprintf("Update(%+v)", e.Value)
	case KindError:
		if e.Err == nil {
			return "Error(nil)"
		}
		return fmt.Sprintf("Error(%s)", e.Err.Error())
	case KindComplete:
		return "Complete()"
	default:
		return "Unknown()"
	}
}
