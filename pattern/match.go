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
	"iter"

	"github.com/go-logr/logr"
	"k8s.io/klog/v2"

	"github.com/zmaychek84/vaip-sub004/base/fmterr"
	viter "github.com/zmaychek84/vaip-sub004/base/iter"
	"github.com/zmaychek84/vaip-sub004/graph"
)

type (
	// MatchOption configures a match.
	MatchOption func(*matcher)

	matcher struct {
		g   *graph.Graph
		log klog.Logger
	}
)

// WithLogger traces the decisions of the matcher at verbosity 2.
func WithLogger(log klog.Logger) MatchOption {
	return func(m *matcher) {
		m.log = log
	}
}

func newMatcher(g *graph.Graph, opts []MatchOption) *matcher {
	m := &matcher{g: g, log: logr.Discard()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match matches the pattern against the outputs of a node.
// Outputs are tried in order and the binder of the first output
// that matches is returned. Match returns nil if no output matches.
func (p *Pattern) Match(g *graph.Graph, node *graph.Node, opts ...MatchOption) *Binder {
	m := newMatcher(g, opts)
	for _, out := range node.Outputs() {
		bb, ok := m.matchCached(p, graph.NodeInput{Node: node, Arg: out}, newBinderBuilder())
		if ok {
			m.log.V(1).Info("pattern matched", "pattern", p.id, "node", node.Name(), "output", out.Name())
			return bb.build(g, p.bld.names)
		}
	}
	return nil
}

// MatchInput matches the pattern against a single node input.
func (p *Pattern) MatchInput(g *graph.Graph, in graph.NodeInput, opts ...MatchOption) *Binder {
	m := newMatcher(g, opts)
	bb, ok := m.matchCached(p, in, newBinderBuilder())
	if !ok {
		return nil
	}
	return bb.build(g, p.bld.names)
}

// FindAll matches the pattern against every live node of a graph
// and yields the nodes that match with their binders.
func (p *Pattern) FindAll(g *graph.Graph, opts ...MatchOption) iter.Seq2[*graph.Node, *Binder] {
	return func(yield func(*graph.Node, *Binder) bool) {
		for node := range g.Nodes() {
			binder := p.Match(g, node, opts...)
			if binder == nil {
				continue
			}
			if !yield(node, binder) {
				return
			}
		}
	}
}

func (m *matcher) reject(p *Pattern, in graph.NodeInput, reason string) (binderBuilder, bool) {
	if log := m.log.V(2); log.Enabled() {
		log.Info("no match", "pattern", p.id, "kind", p.kind.String(), "input", in.String(), "reason", reason)
	}
	return binderBuilder{}, false
}

// matchCached enforces that a pattern is bound to a single value:
// a pattern already bound matches only the value it is bound to.
func (m *matcher) matchCached(p *Pattern, in graph.NodeInput, bb binderBuilder) (binderBuilder, bool) {
	if p.kind == WhereKind {
		if !p.pred(in) {
			return m.reject(p, in, "predicate rejected the value")
		}
		return m.matchCached(p.arg(0), in, bb)
	}
	if prev, ok := bb.find(p.id); ok {
		if prev.Same(in) {
			return bb, true
		}
		return m.reject(p, in, "already bound to "+prev.String())
	}
	next, ok := m.matchUncached(p, in, bb)
	if !ok {
		return binderBuilder{}, false
	}
	if prev, ok := next.find(p.id); ok {
		if !prev.Same(in) {
			return m.reject(p, in, "bound to "+prev.String()+" by a sub-pattern")
		}
		return next, true
	}
	return next.add(p.id, in), true
}

func (m *matcher) matchUncached(p *Pattern, in graph.NodeInput, bb binderBuilder) (binderBuilder, bool) {
	switch p.kind {
	case WildcardKind:
		return bb, true
	case ConstantKind:
		return m.matchConstant(p, in, bb)
	case GraphInputKind:
		if in.Node != nil || in.Arg == nil || !m.g.IsInput(in.Arg) {
			return m.reject(p, in, "not a graph input")
		}
		return bb, true
	case NodeKind:
		return m.matchNode(p, in, bb)
	case CommutableNodeKind:
		return m.matchCommutable(p, in, bb)
	case SequenceKind:
		return m.matchSequence(p, in, bb)
	case OrKind:
		for _, alt := range p.Args() {
			if next, ok := m.matchCached(alt, in, bb); ok {
				return next, true
			}
		}
		return m.reject(p, in, "no alternative matched")
	}
	panic(fmterr.Internalf("pattern %d: kind %s not supported by the matcher", p.id, p.kind))
}

func (m *matcher) matchConstant(p *Pattern, in graph.NodeInput, bb binderBuilder) (binderBuilder, bool) {
	if node, ok := in.AsNode(); ok {
		if node.OpType() != "Constant" {
			return m.reject(p, in, "produced by "+node.OpType())
		}
		return bb, true
	}
	if in.Arg == nil || !m.g.IsConstant(in.Arg) {
		return m.reject(p, in, "not a constant initializer")
	}
	return bb, true
}

func (m *matcher) node(p *Pattern, in graph.NodeInput) (*graph.Node, bool) {
	node, ok := in.AsNode()
	if !ok {
		m.reject(p, in, "not a node output")
		return nil, false
	}
	if node.QualifiedOpType() != p.opType {
		m.reject(p, in, "op type is "+node.QualifiedOpType())
		return nil, false
	}
	return node, true
}

func (m *matcher) matchNode(p *Pattern, in graph.NodeInput, bb binderBuilder) (binderBuilder, bool) {
	node, ok := m.node(p, in)
	if !ok {
		return binderBuilder{}, false
	}
	edges := node.InputEdges()
	if len(edges) > len(p.args) {
		return m.reject(p, in, "too many inputs")
	}
	for i, edge := range edges {
		if p.optional[i] && !edge.Arg.Exists() {
			continue
		}
		if bb, ok = m.matchCached(p.arg(i), edge, bb); !ok {
			return binderBuilder{}, false
		}
	}
	for i := len(edges); i < len(p.args); i++ {
		if !p.optional[i] {
			return m.reject(p, in, "missing required input")
		}
	}
	return bb, true
}

func (m *matcher) matchCommutable(p *Pattern, in graph.NodeInput, bb binderBuilder) (binderBuilder, bool) {
	node, ok := m.node(p, in)
	if !ok {
		return binderBuilder{}, false
	}
	edges := node.InputEdges()
	if len(edges) != 2 {
		return m.reject(p, in, "not a binary node")
	}
	for _, order := range [][2]int{{0, 1}, {1, 0}} {
		next, ok := m.matchCached(p.arg(0), edges[order[0]], bb)
		if !ok {
			continue
		}
		if next, ok = m.matchCached(p.arg(1), edges[order[1]], next); ok {
			return next, true
		}
	}
	return m.reject(p, in, "arguments do not match in any order")
}

func (m *matcher) matchSequence(p *Pattern, in graph.NodeInput, bb binderBuilder) (binderBuilder, bool) {
	bb, ok := m.matchCached(p.arg(0), in, bb)
	if !ok {
		return binderBuilder{}, false
	}
	for i := 1; i < len(p.args); i++ {
		sub := p.arg(i)
		found := false
		for node, out := range viter.Expand(m.g.Nodes(), (*graph.Node).Outputs) {
			next, ok := m.matchCached(sub, graph.NodeInput{Node: node, Arg: out}, bb)
			if ok {
				bb, found = next, true
				break
			}
		}
		if !found {
			return m.reject(p, in, "no value of the graph matches a sub-pattern")
		}
	}
	return bb, true
}
