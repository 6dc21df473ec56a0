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

package pattern

import (
	"fmt"
	"iter"
	"strings"

	"github.com/benbjohnson/immutable"
	"github.com/zmaychek84/vaip-sub004/base/fmterr"
	"github.com/zmaychek84/vaip-sub004/base/ordered"
	"github.com/zmaychek84/vaip-sub004/graph"
)

// binderBuilder accumulates bindings during a match.
// It is a persistent value: adding a binding returns a new builder
// and leaves the receiver unchanged, so a failed branch of the
// matcher is discarded by dropping its builder.
type binderBuilder struct {
	m *immutable.SortedMap[int, graph.NodeInput]
}

func newBinderBuilder() binderBuilder {
	return binderBuilder{m: immutable.NewSortedMap[int, graph.NodeInput](nil)}
}

func (bb binderBuilder) find(id ID) (graph.NodeInput, bool) {
	return bb.m.Get(int(id))
}

func (bb binderBuilder) add(id ID, in graph.NodeInput) binderBuilder {
	if prev, ok := bb.find(id); ok && !prev.Same(in) {
		panic(fmterr.Internalf("pattern %d already bound to %s: cannot bind it to %s", id, prev, in))
	}
	return binderBuilder{m: bb.m.Set(int(id), in)}
}

func (bb binderBuilder) build(g *graph.Graph, names *ordered.Map[string, ID]) *Binder {
	return &Binder{g: g, m: bb.m, names: names}
}

// Binder is the result of a successful match.
// It maps pattern identifiers and pattern names to the node inputs they matched.
type Binder struct {
	g     *graph.Graph
	m     *immutable.SortedMap[int, graph.NodeInput]
	names *ordered.Map[string, ID]
}

// Graph returns the graph in which the match was found.
func (b *Binder) Graph() *graph.Graph {
	return b.g
}

// Get returns the node input matched by a pattern.
// It returns the zero NodeInput if the pattern did not take part in the match.
func (b *Binder) Get(id ID) graph.NodeInput {
	in, _ := b.m.Get(int(id))
	return in
}

// Lookup returns the node input matched by the pattern bound to a name.
// It returns the zero NodeInput if the name is unknown or its pattern did not take part in the match.
func (b *Binder) Lookup(name string) graph.NodeInput {
	id, ok := b.names.Load(name)
	if !ok {
		return graph.NodeInput{}
	}
	return b.Get(id)
}

// Node returns the node matched by the pattern bound to a name or nil.
func (b *Binder) Node(name string) *graph.Node {
	return b.Lookup(name).Node
}

// Len returns the number of bound patterns.
func (b *Binder) Len() int {
	return b.m.Len()
}

// All iterates over the bindings ordered by pattern identifier.
func (b *Binder) All() iter.Seq2[ID, graph.NodeInput] {
	return func(yield func(ID, graph.NodeInput) bool) {
		it := b.m.Iterator()
		for !it.Done() {
			id, in, _ := it.Next()
			if !yield(ID(id), in) {
				return
			}
		}
	}
}

func (b *Binder) String() string {
	var s strings.Builder
	for id, in := range b.All() {
		fmt.Fprintf(&s, "#%d", id)
		if names := ordered.KeysOf(b.names, id); len(names) > 0 {
			fmt.Fprintf(&s, "(%s)", strings.Join(names, ","))
		}
		fmt.Fprintf(&s, " -> %s\n", in)
	}
	return s.String()
}
