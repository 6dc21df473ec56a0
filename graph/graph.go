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

// Package graph provides a read view of an ONNX-like graph of operators,
// the only mutation being the replacement of a set of nodes by a fused node.
package graph

import (
	"iter"
	"slices"

	"github.com/pkg/errors"

	viter "github.com/zmaychek84/vaip-sub004/base/iter"
	"github.com/zmaychek84/vaip-sub004/base/ordered"
	"github.com/zmaychek84/vaip-sub004/base/uname"
)

// Graph of operators.
type Graph struct {
	name string

	// nodes is indexed by node index. Fused nodes are set to nil.
	nodes []*Node
	args  *ordered.Map[string, *NodeArg]
	empty *NodeArg

	inputs       []*NodeArg
	outputs      []*NodeArg
	initializers map[*NodeArg][]float64

	producers map[*NodeArg]*Node
	consumers map[*NodeArg][]*Node

	names *uname.Unique
}

// New returns a new empty graph.
func New(name string) *Graph {
	return &Graph{
		name:         name,
		args:         ordered.NewMap[string, *NodeArg](),
		empty:        &NodeArg{},
		initializers: make(map[*NodeArg][]float64),
		producers:    make(map[*NodeArg]*Node),
		consumers:    make(map[*NodeArg][]*Node),
		names:        uname.New(),
	}
}

// Name of the graph.
func (g *Graph) Name() string {
	return g.name
}

func (g *Graph) arg(name string) *NodeArg {
	if name == "" {
		return g.empty
	}
	arg, ok := g.args.Load(name)
	if !ok {
		arg = &NodeArg{name: name}
		g.args.Store(name, arg)
	}
	return arg
}

// Arg returns a tensor given its name, or nil if the graph has no such tensor.
// The empty name returns the sentinel argument of absent optional inputs.
func (g *Graph) Arg(name string) *NodeArg {
	if name == "" {
		return g.empty
	}
	arg, _ := g.args.Load(name)
	return arg
}

// Args iterates over all the tensors of the graph in declaration order.
func (g *Graph) Args() iter.Seq[*NodeArg] {
	return g.args.Values()
}

// SetValueInfo sets the type and shape of a tensor.
func (g *Graph) SetValueInfo(name string, dtype DataType, shape ...int64) *NodeArg {
	arg := g.arg(name)
	arg.dtype = dtype
	arg.shape = slices.Clone(shape)
	return arg
}

// AddInput declares a new graph input.
func (g *Graph) AddInput(name string, dtype DataType, shape ...int64) (*NodeArg, error) {
	if g.Arg(name) != nil {
		return nil, errors.Errorf("cannot declare input %q: tensor already exists", name)
	}
	arg := g.SetValueInfo(name, dtype, shape...)
	g.inputs = append(g.inputs, arg)
	return arg, nil
}

// AddInitializer declares a new constant tensor.
func (g *Graph) AddInitializer(name string, dtype DataType, shape []int64, values []float64) (*NodeArg, error) {
	if g.Arg(name) != nil {
		return nil, errors.Errorf("cannot declare initializer %q: tensor already exists", name)
	}
	arg := g.SetValueInfo(name, dtype, shape...)
	g.initializers[arg] = slices.Clone(values)
	return arg, nil
}

// NodeDef defines a node to add to a graph.
type NodeDef struct {
	Name    string               `yaml:"name"`
	OpType  string               `yaml:"op_type"`
	Domain  string               `yaml:"domain,omitempty"`
	Inputs  []string             `yaml:"inputs"`
	Outputs []string             `yaml:"outputs"`
	Attrs   map[string]Attribute `yaml:"attrs,omitempty"`
}

// AddNode adds a node to the graph.
// Tensors not yet declared are created without type information.
func (g *Graph) AddNode(def NodeDef) (*Node, error) {
	if def.OpType == "" {
		return nil, errors.Errorf("node %q has no op type", def.Name)
	}
	for _, out := range def.Outputs {
		arg := g.Arg(out)
		if !arg.Exists() {
			if out == "" {
				return nil, errors.Errorf("node %q has an empty output name", def.Name)
			}
			continue
		}
		if p := g.producers[arg]; p != nil {
			return nil, errors.Errorf("tensor %q is produced by both %q and %q", out, p.name, def.Name)
		}
		if g.IsInput(arg) || g.IsConstant(arg) {
			return nil, errors.Errorf("node %q cannot produce graph input or initializer %q", def.Name, out)
		}
	}
	name := def.Name
	if name == "" {
		name = def.OpType
	}
	n := &Node{
		g:      g,
		index:  len(g.nodes),
		name:   g.names.Name(name),
		opType: def.OpType,
		domain: def.Domain,
		attrs:  def.Attrs,
	}
	for _, in := range def.Inputs {
		arg := g.arg(in)
		n.inputs = append(n.inputs, arg)
		if arg.Exists() {
			g.consumers[arg] = append(g.consumers[arg], n)
		}
	}
	for _, out := range def.Outputs {
		arg := g.arg(out)
		n.outputs = append(n.outputs, arg)
		g.producers[arg] = n
	}
	g.nodes = append(g.nodes, n)
	return n, nil
}

// SetOutputs declares the outputs of the graph.
func (g *Graph) SetOutputs(names ...string) error {
	g.outputs = nil
	for _, name := range names {
		arg := g.Arg(name)
		if !arg.Exists() {
			return errors.Errorf("graph output %q is not a tensor of the graph", name)
		}
		g.outputs = append(g.outputs, arg)
	}
	return nil
}

// Nodes iterates over the nodes currently in the graph, in index order.
func (g *Graph) Nodes() iter.Seq[*Node] {
	return viter.NonNil(g.nodes)
}

// NumNodes returns the number of nodes currently in the graph.
func (g *Graph) NumNodes() (n int) {
	for range g.Nodes() {
		n++
	}
	return
}

// Node returns a node given its index or nil if the node has been fused away.
func (g *Graph) Node(index int) *Node {
	if index < 0 || index >= len(g.nodes) {
		return nil
	}
	return g.nodes[index]
}

// NodeByName returns a node given its name or nil if not found.
func (g *Graph) NodeByName(name string) *Node {
	for n := range g.Nodes() {
		if n.name == name {
			return n
		}
	}
	return nil
}

// Inputs returns the inputs of the graph.
func (g *Graph) Inputs() []*NodeArg {
	return slices.Clone(g.inputs)
}

// Outputs returns the outputs of the graph.
func (g *Graph) Outputs() []*NodeArg {
	return slices.Clone(g.outputs)
}

// IsInput returns true if the argument is declared as a graph input.
func (g *Graph) IsInput(arg *NodeArg) bool {
	return slices.Contains(g.inputs, arg)
}

// IsOutput returns true if the argument is declared as a graph output.
func (g *Graph) IsOutput(arg *NodeArg) bool {
	return slices.Contains(g.outputs, arg)
}

// IsConstant returns true if the argument is a constant initializer.
func (g *Graph) IsConstant(arg *NodeArg) bool {
	_, ok := g.initializers[arg]
	return ok
}

// ConstantValues returns the values of a constant initializer.
func (g *Graph) ConstantValues(arg *NodeArg) ([]float64, bool) {
	vals, ok := g.initializers[arg]
	return vals, ok
}

// Producer returns the node producing a tensor or nil for graph inputs and initializers.
func (g *Graph) Producer(arg *NodeArg) *Node {
	return g.producers[arg]
}

// Consumers returns the nodes consuming a tensor.
func (g *Graph) Consumers(arg *NodeArg) []*Node {
	return slices.Clone(g.consumers[arg])
}

// SoleConsumer returns the single consumer of a tensor, or nil if there are 0 or 2+ consumers.
func (g *Graph) SoleConsumer(arg *NodeArg) *Node {
	cs := g.consumers[arg]
	if len(cs) != 1 {
		return nil
	}
	return cs[0]
}
