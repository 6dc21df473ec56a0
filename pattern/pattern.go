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

// Package pattern matches declarative patterns against the nodes of a graph.
//
// Patterns form a directed acyclic graph owned by a Builder.
// Matching a pattern against a node returns a Binder mapping the
// identifier of every matched sub-pattern to the node input it matched.
package pattern

import (
	"github.com/zmaychek84/vaip-sub004/base/fmterr"
	"github.com/zmaychek84/vaip-sub004/graph"
)

type (
	// ID identifies a pattern in its builder.
	// Identifiers are allocated densely starting at 0.
	ID int

	// Kind of a pattern.
	Kind int

	// Predicate selects the node inputs accepted by a Where pattern.
	Predicate func(graph.NodeInput) bool

	// Pattern is a node of a pattern DAG.
	Pattern struct {
		bld  *Builder
		slot int
		id   ID
		kind Kind

		// Qualified op type ("domain:op") of Node and CommutableNode patterns.
		opType string
		// Arena slots of the sub-patterns.
		args     []int
		optional []bool

		pred Predicate
	}
)

const (
	// WildcardKind matches any value.
	WildcardKind Kind = iota
	// ConstantKind matches an initializer or the output of a Constant node.
	ConstantKind
	// GraphInputKind matches a graph input.
	GraphInputKind
	// NodeKind matches the output of a node given its op type and its arguments.
	NodeKind
	// CommutableNodeKind matches a binary node whose arguments can be swapped.
	CommutableNodeKind
	// SequenceKind matches its first sub-pattern against the value and
	// every following sub-pattern against any value of the graph.
	SequenceKind
	// OrKind matches the first sub-pattern that matches.
	OrKind
	// WhereKind filters a sub-pattern with a predicate.
	WhereKind
)

var kindNames = map[Kind]string{
	WildcardKind:       "wildcard",
	ConstantKind:       "constant",
	GraphInputKind:     "graph_input",
	NodeKind:           "node",
	CommutableNodeKind: "commutable_node",
	SequenceKind:       "sequence",
	OrKind:             "or",
	WhereKind:          "where",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ID returns the identifier of the pattern.
// A Where pattern shares the identifier of the pattern it filters.
func (p *Pattern) ID() ID {
	return p.id
}

// Kind returns the kind of the pattern.
func (p *Pattern) Kind() Kind {
	return p.kind
}

// OpType returns the qualified op type of a node pattern.
func (p *Pattern) OpType() string {
	return p.opType
}

// Builder returns the builder owning the pattern.
func (p *Pattern) Builder() *Builder {
	return p.bld
}

// Args returns the sub-patterns.
func (p *Pattern) Args() []*Pattern {
	args := make([]*Pattern, len(p.args))
	for i := range args {
		args[i] = p.arg(i)
	}
	return args
}

// Optional returns, for a node pattern, which arguments are optional.
func (p *Pattern) Optional() []bool {
	return append([]bool{}, p.optional...)
}

func (p *Pattern) arg(i int) *Pattern {
	slot := p.args[i]
	if slot < 0 || slot >= len(p.bld.arena) {
		panic(fmterr.Internalf("pattern %d refers to unknown slot %d", p.id, slot))
	}
	return p.bld.arena[slot]
}
