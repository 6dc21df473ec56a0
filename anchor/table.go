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

package anchor

import (
	"iter"

	"github.com/zmaychek84/vaip-sub004/base/sync"
	"github.com/zmaychek84/vaip-sub004/graph"
)

// Table caches anchor points by the name of the tensor they lead to.
// An entry is written once and never replaced.
// A Table is safe for concurrent use.
type Table struct {
	points sync.Map[string, *Point]
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// Seed registers the identity anchor point of every tensor of a graph.
func (t *Table) Seed(g *graph.Graph) {
	for arg := range g.Args() {
		t.Insert(NewPoint(arg.Name()))
	}
}

// Insert registers p under its name.
// If an anchor point is already registered for that name, the table is
// unchanged: Insert returns the registered point and false.
func (t *Table) Insert(p *Point) (*Point, bool) {
	actual, loaded := t.points.LoadOrStore(p.Name(), p)
	return actual, !loaded
}

// Find returns the anchor point leading to a tensor.
func (t *Table) Find(name string) (*Point, bool) {
	return t.points.Load(name)
}

// Len returns the number of anchor points in the table.
func (t *Table) Len() int {
	return t.points.Len()
}

// All iterates over the anchor points in no particular order.
func (t *Table) All() iter.Seq2[string, *Point] {
	return t.points.All()
}
