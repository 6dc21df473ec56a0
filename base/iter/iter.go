// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package iter provides iterators over graph-like slices.
package iter

import "iter"

// NonNil iterates over the non-nil elements of a slice of pointers.
func NonNil[T any](s []*T) iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for _, el := range s {
			if el == nil {
				continue
			}
			if !yield(el) {
				return
			}
		}
	}
}

// Expand pairs every element of a sequence with each element
// of the slice returned by f for that element.
func Expand[T, U any](seq iter.Seq[T], f func(T) []U) iter.Seq2[T, U] {
	return func(yield func(T, U) bool) {
		for el := range seq {
			for _, sub := range f(el) {
				if !yield(el, sub) {
					return
				}
			}
		}
	}
}

// Filter excludes the elements of a sequence for which f returns false.
func Filter[T any](seq iter.Seq[T], f func(T) bool) iter.Seq[T] {
	return func(yield func(T) bool) {
		for el := range seq {
			if !f(el) {
				continue
			}
			if !yield(el) {
				return
			}
		}
	}
}
