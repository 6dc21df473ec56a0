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

package anchor_test

import (
	"testing"

	"github.com/zmaychek84/vaip-sub004/anchor"
	"github.com/zmaychek84/vaip-sub004/graph/graphtest"
)

const qdqGraph = `
name: qdq
inputs:
  - {name: xq, dtype: int8, shape: [1, 3, 4, 4]}
  - {name: f, dtype: float, shape: [1, 3, 4, 4]}
initializers:
  - {name: s, dtype: float, values: [0.5]}
  - {name: zp, dtype: int8, values: [3]}
value_info:
  - {name: x, dtype: float, shape: [1, 3, 4, 4]}
  - {name: y, dtype: float, shape: [1, 3, 4, 4]}
  - {name: yq, dtype: int8, shape: [1, 3, 4, 4]}
  - {name: r, dtype: float, shape: [1, 3, 4, 4]}
nodes:
  - {name: dq, op_type: DequantizeLinear, inputs: [xq, s, zp], outputs: [x]}
  - {name: relu, op_type: Relu, inputs: [x], outputs: [y]}
  - {name: q, op_type: QuantizeLinear, inputs: [y, s], outputs: [yq]}
  - {name: relu2, op_type: Relu, inputs: [f], outputs: [r]}
outputs: [yq, r]
`

func TestFindQDQ(t *testing.T) {
	g := graphtest.Load(t, qdqGraph)
	tests := []struct {
		origin string
		want   string
	}{
		{origin: "xq", want: "xq"},
		{origin: "x", want: "xq -dequantize_linear(0.5,3)-> x"},
		{origin: "y", want: "yq -dequantize_linear(0.5,0)-> y"},
		{origin: "r"},
		{origin: "f"},
	}
	for _, test := range tests {
		p, ok, err := anchor.FindQDQ(g, test.origin)
		if err != nil {
			t.Errorf("%s: %v", test.origin, err)
			continue
		}
		if test.want == "" {
			if ok {
				t.Errorf("%s: unexpected correction %s", test.origin, p)
			}
			continue
		}
		if !ok {
			t.Errorf("%s: no correction found", test.origin)
			continue
		}
		if got := p.String(); got != test.want {
			t.Errorf("%s: got %q, want %q", test.origin, got, test.want)
		}
	}
	if _, _, err := anchor.FindQDQ(g, "unknown"); err == nil {
		t.Errorf("expected an error for an unknown tensor")
	}
}

func TestIsLowBitInput(t *testing.T) {
	g := graphtest.Load(t, qdqGraph)
	for name, want := range map[string]bool{"xq": true, "f": false, "yq": false, "unknown": false} {
		if got := anchor.IsLowBitInput(g, name); got != want {
			t.Errorf("%s: got %v, want %v", name, got, want)
		}
	}
}

func TestTable(t *testing.T) {
	g := graphtest.Load(t, qdqGraph)
	table := anchor.NewTable()
	table.Seed(g)
	if got, want := table.Len(), 8; got != want {
		t.Errorf("got %d anchor points, want %d", got, want)
	}
	p, ok := table.Find("y")
	if !ok || p.Origin() != "y" || p.NumSteps() != 0 {
		t.Errorf("y: got %v", p)
	}
	alias := anchor.Alias("y", "y_fix")
	if _, inserted := table.Insert(alias); !inserted {
		t.Errorf("alias not inserted")
	}
	actual, inserted := table.Insert(anchor.Alias("r", "y_fix"))
	if inserted {
		t.Errorf("second alias for y_fix inserted")
	}
	if actual != alias {
		t.Errorf("got %s, want the first alias", actual)
	}
	if p, _ := table.Find("y_fix"); p.Origin() != "y" {
		t.Errorf("y_fix anchored to %s", p)
	}
}
