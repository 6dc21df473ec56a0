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
	"strings"

	"github.com/zmaychek84/vaip-sub004/base/fmterr"
	"github.com/zmaychek84/vaip-sub004/base/ordered"
	"github.com/zmaychek84/vaip-sub004/graph"
)

// Builder creates and owns patterns.
// A builder is not safe for concurrent use while patterns are being created.
// Once built, patterns can be matched concurrently.
type Builder struct {
	arena  []*Pattern
	byID   map[ID]*Pattern
	nextID ID
	names  *ordered.Map[string, ID]
}

// NewBuilder returns a new pattern builder.
func NewBuilder() *Builder {
	return &Builder{
		byID:  make(map[ID]*Pattern),
		names: ordered.NewMap[string, ID](),
	}
}

func qualify(opType string) string {
	if strings.Contains(opType, ":") {
		return opType
	}
	return graph.QualifiedOpType(graph.DefaultDomain, opType)
}

func (b *Builder) slot(p *Pattern) int {
	if p == nil || p.bld != b {
		panic(fmterr.Internalf("pattern not created by this builder"))
	}
	return p.slot
}

func (b *Builder) slots(ps []*Pattern) []int {
	slots := make([]int, len(ps))
	for i, p := range ps {
		slots[i] = b.slot(p)
	}
	return slots
}

func (b *Builder) push(p *Pattern) *Pattern {
	p.bld = b
	p.slot = len(b.arena)
	b.arena = append(b.arena, p)
	return p
}

func (b *Builder) create(p *Pattern) *Pattern {
	p.id = b.nextID
	b.nextID++
	b.byID[p.id] = p
	return b.push(p)
}

// Wildcard returns a pattern matching any value.
func (b *Builder) Wildcard() *Pattern {
	return b.create(&Pattern{kind: WildcardKind})
}

// Constant returns a pattern matching a constant initializer or the output of a Constant node.
func (b *Builder) Constant() *Pattern {
	return b.create(&Pattern{kind: ConstantKind})
}

// GraphInput returns a pattern matching a graph input.
func (b *Builder) GraphInput() *Pattern {
	return b.create(&Pattern{kind: GraphInputKind})
}

// Node returns a pattern matching a node with a given op type and arguments.
// The op type is either qualified ("domain:op") or belongs to the default domain.
func (b *Builder) Node(opType string, args ...*Pattern) *Pattern {
	return b.NodeWithOptional(opType, args, make([]bool, len(args)))
}

// NodeWithOptional returns a pattern matching a node where some arguments may be absent.
// An optional argument matches when the node input is absent (empty name)
// or when the node has fewer inputs.
func (b *Builder) NodeWithOptional(opType string, args []*Pattern, optional []bool) *Pattern {
	if len(args) != len(optional) {
		panic(fmterr.Internalf("pattern %s: got %d arguments but %d optional flags", opType, len(args), len(optional)))
	}
	return b.create(&Pattern{
		kind:     NodeKind,
		opType:   qualify(opType),
		args:     b.slots(args),
		optional: append([]bool{}, optional...),
	})
}

// CommutableNode returns a pattern matching a binary node in any argument order.
func (b *Builder) CommutableNode(opType string, arg1, arg2 *Pattern) *Pattern {
	return b.create(&Pattern{
		kind:   CommutableNodeKind,
		opType: qualify(opType),
		args:   b.slots([]*Pattern{arg1, arg2}),
	})
}

// Sequence returns a pattern matching its first sub-pattern against the value.
// The following sub-patterns are matched, in order, against any node output
// of the graph. Bindings accumulate from one sub-pattern to the next.
// Each step scans every node of the graph: matching is linear in the graph size.
func (b *Builder) Sequence(patterns ...*Pattern) *Pattern {
	if len(patterns) == 0 {
		panic(fmterr.Internalf("empty sequence pattern"))
	}
	return b.create(&Pattern{kind: SequenceKind, args: b.slots(patterns)})
}

// Or returns a pattern matching the first sub-pattern that matches the value.
func (b *Builder) Or(patterns ...*Pattern) *Pattern {
	return b.create(&Pattern{kind: OrKind, args: b.slots(patterns)})
}

// Where returns a pattern matching p only when pred accepts the value.
// The returned pattern shares the identifier of p and cannot be serialized.
func (b *Builder) Where(p *Pattern, pred Predicate) *Pattern {
	if pred == nil {
		panic(fmterr.Internalf("nil predicate for pattern %d", p.ID()))
	}
	return b.push(&Pattern{
		kind: WhereKind,
		id:   p.ID(),
		args: []int{b.slot(p)},
		pred: pred,
	})
}

// Bind associates a name to the identifier of a pattern and returns the pattern.
// Binding an existing name shadows its previous association.
func (b *Builder) Bind(name string, p *Pattern) *Pattern {
	b.slot(p)
	b.names.Store(name, p.ID())
	return p
}

// PatternByName returns the pattern bound to a name or nil.
func (b *Builder) PatternByName(name string) *Pattern {
	id, ok := b.names.Load(name)
	if !ok {
		return nil
	}
	return b.byID[id]
}

// PatternByID returns the pattern with a given identifier or nil.
func (b *Builder) PatternByID(id ID) *Pattern {
	return b.byID[id]
}

// NumPatterns returns the number of identifiers allocated by the builder.
func (b *Builder) NumPatterns() int {
	return len(b.byID)
}
