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

// Package graphtest builds graphs for tests.
package graphtest

import (
	"strings"
	"testing"

	"github.com/zmaychek84/vaip-sub004/base/fmterr"
	"github.com/zmaychek84/vaip-sub004/graph"
)

// Load a graph from a YAML definition or fails the test.
func Load(t testing.TB, src string) *graph.Graph {
	t.Helper()
	g, err := graph.Load(strings.NewReader(src))
	if err != nil {
		t.Fatalf("cannot load test graph: %+v", fmterr.ToStackTraceError(err))
	}
	return g
}

// Node returns a node given its name or fails the test.
func Node(t testing.TB, g *graph.Graph, name string) *graph.Node {
	t.Helper()
	n := g.NodeByName(name)
	if n == nil {
		t.Fatalf("node %q not found in graph %s", name, g.Name())
	}
	return n
}

// Arg returns a tensor given its name or fails the test.
func Arg(t testing.TB, g *graph.Graph, name string) *graph.NodeArg {
	t.Helper()
	arg := g.Arg(name)
	if !arg.Exists() {
		t.Fatalf("tensor %q not found in graph %s", name, g.Name())
	}
	return arg
}
