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

package pattern_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zmaychek84/vaip-sub004/graph"
	"github.com/zmaychek84/vaip-sub004/graph/graphtest"
	"github.com/zmaychek84/vaip-sub004/pattern"
)

// buildDAG builds a pattern with shared, optional and commutable sub-patterns.
func buildDAG(bld *pattern.Builder) *pattern.Pattern {
	x := bld.Bind("x", bld.Wildcard())
	k := bld.Constant()
	clip := bld.NodeWithOptional("Clip", []*pattern.Pattern{x, k}, []bool{false, true})
	add := bld.Bind("add", bld.Node("Add", x, x))
	mul := bld.CommutableNode("Mul", bld.GraphInput(), bld.Wildcard())
	addk := bld.Node("Add", mul, bld.Constant())
	return bld.Bind("root", bld.Or(clip, add, addk))
}

func matchAll(g *graph.Graph, p *pattern.Pattern) map[string]map[pattern.ID]string {
	all := make(map[string]map[pattern.ID]string)
	for node := range g.Nodes() {
		all[node.Name()] = bindings(p.Match(g, node))
	}
	return all
}

func TestBinaryRoundTrip(t *testing.T) {
	g := graphtest.Load(t, matchGraph)
	orig := buildDAG(pattern.NewBuilder())
	data, err := orig.ToBinary()
	if err != nil {
		t.Fatal(err)
	}
	bld := pattern.NewBuilder()
	got, err := bld.CreateFromBinary(data)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if got.ID() != orig.ID() {
		t.Errorf("root identifier: got %d, want %d", got.ID(), orig.ID())
	}
	if diff := cmp.Diff(matchAll(g, orig), matchAll(g, got)); diff != "" {
		t.Errorf("decoded pattern matches differently:\n%s", diff)
	}
	for _, name := range []string{"x", "add", "root"} {
		want := orig.Builder().PatternByName(name)
		p := bld.PatternByName(name)
		if p == nil {
			t.Errorf("name %q not bound", name)
			continue
		}
		if p.ID() != want.ID() {
			t.Errorf("name %q bound to %d, want %d", name, p.ID(), want.ID())
		}
	}
	if diff := cmp.Diff(orig.String(), got.String()); diff != "" {
		t.Errorf("decoded pattern differs:\n%s", diff)
	}
	again, err := got.ToBinary()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(data, again); diff != "" {
		t.Errorf("encoding not stable:\n%s", diff)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	g := graphtest.Load(t, matchGraph)
	orig := buildDAG(pattern.NewBuilder())
	data, err := orig.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	got, err := pattern.NewBuilder().CreateByJSON(data)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if diff := cmp.Diff(matchAll(g, orig), matchAll(g, got)); diff != "" {
		t.Errorf("decoded pattern matches differently:\n%s", diff)
	}
}

func TestDecodeShiftsIdentifiers(t *testing.T) {
	bld := pattern.NewBuilder()
	orig := buildDAG(bld)
	data, err := orig.ToBinary()
	if err != nil {
		t.Fatal(err)
	}
	n := bld.NumPatterns()
	got, err := bld.CreateFromBinary(data)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if want := orig.ID() + pattern.ID(n); got.ID() != want {
		t.Errorf("root identifier: got %d, want %d", got.ID(), want)
	}
	if p := bld.PatternByName("root"); p != got {
		t.Errorf("root name not rebound to the decoded pattern")
	}
}

func TestWhereNotSerializable(t *testing.T) {
	bld := pattern.NewBuilder()
	p := bld.Where(bld.Wildcard(), func(graph.NodeInput) bool { return true })
	if _, err := bld.Node("Relu", p).ToBinary(); err == nil {
		t.Errorf("expected an error")
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		json string
		err  string
	}{
		{
			json: `{"patterns": [{"id": "1", "isRoot": true, "callNode": {"opType": "Relu", "args": ["0"], "optionalArgs": [false]}}]}`,
			err:  "undefined pattern 0",
		},
		{
			json: `{"patterns": [{"id": "0", "isRoot": true}]}`,
			err:  "kind not set",
		},
		{
			json: `{"patterns": [{"id": "0", "wildcard": {}}]}`,
			err:  "got 0 root patterns",
		},
		{
			json: `{"patterns": [{"id": "0", "wildcard": {}}, {"id": "1", "isRoot": true, "callNode": {"opType": "Relu", "args": ["0"]}}]}`,
			err:  "1 arguments but 0 optional flags",
		},
		{
			json: `{}`,
			err:  "no pattern",
		},
	}
	for i, test := range tests {
		_, err := pattern.NewBuilder().CreateByJSON([]byte(test.json))
		if err == nil {
			t.Errorf("test %d: expected an error", i)
			continue
		}
		if !strings.Contains(err.Error(), test.err) {
			t.Errorf("test %d: error %q does not contain %q", i, err.Error(), test.err)
		}
	}
}
