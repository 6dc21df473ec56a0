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

package graph

import (
	"slices"

	"github.com/pkg/errors"
)

type (
	// Fusion is a set of nodes delimited by a tensor boundary,
	// ready to be replaced by a single node.
	Fusion struct {
		g       *Graph
		inputs  []*NodeArg
		outputs []*NodeArg
		nodes   []*Node
		applied bool
	}

	// FusedNodeDef defines the node replacing the nodes of a fusion.
	FusedNodeDef struct {
		Name   string
		OpType string
		Domain string
		Attrs  map[string]Attribute
	}
)

func (g *Graph) resolve(names []string) ([]*NodeArg, error) {
	args := make([]*NodeArg, len(names))
	for i, name := range names {
		arg := g.Arg(name)
		if !arg.Exists() {
			return nil, errors.Errorf("tensor %q not found in graph %s", name, g.name)
		}
		args[i] = arg
	}
	return args, nil
}

// TryFuse computes the nodes between a set of input and output tensors.
// The graph is not modified. An error is returned if the boundary does not delimit
// a closed subgraph: a graph input which is not part of the boundary is reached,
// or a tensor computed inside is consumed outside without being a boundary output.
func (g *Graph) TryFuse(inputs, outputs []string) (*Fusion, error) {
	ins, err := g.resolve(inputs)
	if err != nil {
		return nil, err
	}
	outs, err := g.resolve(outputs)
	if err != nil {
		return nil, err
	}
	if len(outs) == 0 {
		return nil, errors.Errorf("cannot fuse an empty set of outputs")
	}
	boundary := make(map[*NodeArg]bool)
	for _, in := range ins {
		boundary[in] = true
	}
	inSet := make(map[*Node]bool)
	var stack []*Node
	for _, out := range outs {
		if boundary[out] {
			return nil, errors.Errorf("tensor %q is both an input and an output of the fusion", out.name)
		}
		p := g.producers[out]
		if p == nil {
			return nil, errors.Errorf("output %q is not computed by any node", out.name)
		}
		stack = append(stack, p)
	}
	used := make(map[*NodeArg]bool)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if inSet[n] {
			continue
		}
		inSet[n] = true
		for _, arg := range n.inputs {
			switch {
			case !arg.Exists():
			case boundary[arg]:
				used[arg] = true
			case g.IsConstant(arg):
			case g.IsInput(arg):
				return nil, errors.Errorf("node %s reads graph input %q which is not an input of the fusion", n.name, arg.name)
			default:
				p := g.producers[arg]
				if p == nil {
					return nil, errors.Errorf("tensor %q read by %s has no producer", arg.name, n.name)
				}
				stack = append(stack, p)
			}
		}
	}
	for _, in := range ins {
		if !used[in] {
			return nil, errors.Errorf("input %q is not consumed by the fused nodes", in.name)
		}
	}
	nodes := make([]*Node, 0, len(inSet))
	for n := range inSet {
		nodes = append(nodes, n)
	}
	slices.SortFunc(nodes, func(a, b *Node) int { return a.index - b.index })
	for _, n := range nodes {
		for _, arg := range n.outputs {
			if slices.Contains(outs, arg) {
				continue
			}
			if g.IsOutput(arg) {
				return nil, errors.Errorf("graph output %q is computed inside the fusion but is not an output of the fusion", arg.name)
			}
			for _, c := range g.consumers[arg] {
				if !inSet[c] {
					return nil, errors.Errorf("tensor %q computed inside the fusion is consumed by %s outside of it", arg.name, c.name)
				}
			}
		}
	}
	return &Fusion{g: g, inputs: ins, outputs: outs, nodes: nodes}, nil
}

// Nodes returns the nodes replaced by the fusion, in index order.
func (f *Fusion) Nodes() []*Node {
	return slices.Clone(f.nodes)
}

// Inputs returns the input tensors of the fusion.
func (f *Fusion) Inputs() []*NodeArg {
	return slices.Clone(f.inputs)
}

// Outputs returns the output tensors of the fusion.
func (f *Fusion) Outputs() []*NodeArg {
	return slices.Clone(f.outputs)
}

// Apply replaces the nodes of the fusion by a single node.
func (f *Fusion) Apply(def FusedNodeDef) (*Node, error) {
	g := f.g
	if f.applied {
		return nil, errors.Errorf("fusion has already been applied")
	}
	for _, n := range f.nodes {
		if g.nodes[n.index] != n {
			return nil, errors.Errorf("node %s has been removed from the graph since the fusion was computed", n.name)
		}
	}
	for _, n := range f.nodes {
		g.nodes[n.index] = nil
		for _, arg := range n.inputs {
			g.consumers[arg] = slices.DeleteFunc(g.consumers[arg], func(c *Node) bool { return c == n })
			if len(g.consumers[arg]) == 0 {
				delete(g.consumers, arg)
			}
		}
		for _, arg := range n.outputs {
			delete(g.producers, arg)
		}
	}
	nd := NodeDef{
		Name:   def.Name,
		OpType: def.OpType,
		Domain: def.Domain,
		Attrs:  def.Attrs,
	}
	for _, in := range f.inputs {
		nd.Inputs = append(nd.Inputs, in.name)
	}
	for _, out := range f.outputs {
		nd.Outputs = append(nd.Outputs, out.name)
	}
	fused, err := g.AddNode(nd)
	if err != nil {
		return nil, err
	}
	f.applied = true
	return fused, nil
}
