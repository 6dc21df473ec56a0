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

package stringseq_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/zmaychek84/vaip-sub004/base/stringseq"
)

func TestJoin(t *testing.T) {
	got := stringseq.Join(slices.Values([]string{"a", "b", "c"}), strings.ToUpper, "->")
	if want := "A->B->C"; got != want {
		t.Errorf("got %q but want %q", got, want)
	}
}

func TestInts(t *testing.T) {
	tests := []struct {
		xs   []int64
		want string
	}{
		{xs: nil, want: "[]"},
		{xs: []int64{0}, want: "[0]"},
		{xs: []int64{0, 2, 3, 1}, want: "[0,2,3,1]"},
		{xs: []int64{-1, 4}, want: "[-1,4]"},
	}
	for _, test := range tests {
		if got := stringseq.Ints(test.xs); got != test.want {
			t.Errorf("Ints(%v) = %q but want %q", test.xs, got, test.want)
		}
	}
}
