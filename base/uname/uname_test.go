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

package uname_test

import (
	"testing"

	"github.com/zmaychek84/vaip-sub004/base/uname"
)

func TestName(t *testing.T) {
	unames := uname.New()
	unames.Register("vaip_b")
	unames.Register("vaip_a_2")
	tests := []struct {
		name, want string
	}{
		{name: "vaip_a", want: "vaip_a"},
		{name: "vaip_a", want: "vaip_a_1"},
		{name: "vaip_a", want: "vaip_a_3"},
		{name: "vaip_b", want: "vaip_b_1"},
		{name: "vaip_c", want: "vaip_c"},
	}
	for i, test := range tests {
		got := unames.Name(test.name)
		if got != test.want {
			t.Errorf("test %d: for name %s, got %s but want %s", i, test.name, got, test.want)
		}
	}
}
