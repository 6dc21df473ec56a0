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

package names_test

import (
	"testing"

	"github.com/zmaychek84/vaip-sub004/anchor/names"
)

func TestStripPriority(t *testing.T) {
	tests := []struct {
		raw, want string
	}{
		{raw: "conv_reshaped_0_inserted_fix_1_merged", want: "conv"},
		{raw: "conv_reshaped_12_inserted_fix_3", want: "conv"},
		{raw: "x_recomputation_inserted_fix_2", want: "x"},
		{raw: "a_fix_reshaped_inserted_fix_3", want: "a"},
		{raw: "relu_inserted_fix_7", want: "relu"},
		{raw: "conv_FixShifter_new", want: "conv"},
		{raw: "pool_insert_conv2d_fix", want: "pool"},
		{raw: "relu_fix_new", want: "relu_fix"},
		{raw: "relu_fix", want: "relu"},
		{raw: "relu", want: "relu"},
		{raw: "_fix", want: "_fix"},
	}
	s := names.Default()
	for _, test := range tests {
		got, changed := s.Strip(test.raw)
		if got != test.want {
			t.Errorf("%s: got %q, want %q", test.raw, got, test.want)
		}
		if changed != (test.raw != test.want) {
			t.Errorf("%s: changed=%v", test.raw, changed)
		}
	}
}

func TestForCompiler(t *testing.T) {
	tests := []struct {
		version string
		rules   int
		raw     string
		want    string
	}{
		{version: "v1.0.0", rules: 3, raw: "conv_reshaped_0_inserted_fix_1", want: "conv_reshaped_0"},
		{version: "2.5", rules: 5, raw: "pool_insert_conv2d_fix", want: "pool"},
		{version: "v3.0.1", rules: 7, raw: "a_fix_reshaped_inserted_fix_3", want: "a"},
		{version: "v3.5.0", rules: 8, raw: "conv_reshaped_0_inserted_fix_1", want: "conv"},
	}
	for _, test := range tests {
		s, err := names.ForCompiler(test.version)
		if err != nil {
			t.Errorf("%s: %v", test.version, err)
			continue
		}
		if got := len(s.Rules()); got != test.rules {
			t.Errorf("%s: got %d rules, want %d", test.version, got, test.rules)
		}
		if got, _ := s.Strip(test.raw); got != test.want {
			t.Errorf("%s: %s: got %q, want %q", test.version, test.raw, got, test.want)
		}
	}
	if _, err := names.ForCompiler("latest"); err == nil {
		t.Errorf("expected an error for an invalid version")
	}
}
