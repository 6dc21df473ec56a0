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

// Package stringseq builds strings from sequences.
package stringseq

import (
	"fmt"
	"iter"
	"strconv"
	"strings"
)

// Join formats each element of a sequence with f and concatenates the results.
// The separator string sep is placed between elements in the resulting string.
func Join[T any](seq iter.Seq[T], f func(T) string, sep string) string {
	var b strings.Builder
	n := 0
	for item := range seq {
		if n > 0 {
			b.WriteString(sep)
		}
		b.WriteString(f(item))
		n++
	}
	return b.String()
}

// JoinStringer concatenates the stringified elements of a sequence.
func JoinStringer[T fmt.Stringer](seq iter.Seq[T], sep string) string {
	return Join(seq, T.String, sep)
}

// Ints formats a slice of integers as a bracketed comma-separated list.
func Ints[T ~int | ~int32 | ~int64](xs []T) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range xs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(int64(x), 10))
	}
	b.WriteByte(']')
	return b.String()
}
