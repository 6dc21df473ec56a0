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
	"fmt"
	"slices"

	"github.com/zmaychek84/vaip-sub004/base/stringseq"
)

// DefaultDomain is the domain of operators declared without an explicit domain.
const DefaultDomain = "onnx"

type (
	// Attribute is a typed attribute value attached to a node.
	// Only one of the fields is set.
	Attribute struct {
		Int    *int64    `yaml:"i,omitempty"`
		Float  *float32  `yaml:"f,omitempty"`
		Str    *string   `yaml:"s,omitempty"`
		Ints   []int64   `yaml:"ints,omitempty"`
		Floats []float32 `yaml:"floats,omitempty"`
	}

	// Node is an operator in a graph.
	Node struct {
		g       *Graph
		index   int
		name    string
		opType  string
		domain  string
		inputs  []*NodeArg
		outputs []*NodeArg
		attrs   map[string]Attribute
	}
)

// StringAttr returns a string attribute.
func StringAttr(s string) Attribute {
	return Attribute{Str: &s}
}

// IntAttr returns an integer attribute.
func IntAttr(i int64) Attribute {
	return Attribute{Int: &i}
}

// QualifiedOpType returns the operator identity domain:op_type.
// An empty domain is replaced by the default ONNX domain.
func QualifiedOpType(domain, opType string) string {
	if domain == "" {
		domain = DefaultDomain
	}
	return domain + ":" + opType
}

// Graph owning the node.
func (n *Node) Graph() *Graph {
	return n.g
}

// Index of the node in its graph. Indices are stable across fusions.
func (n *Node) Index() int {
	return n.index
}

// Name of the node.
func (n *Node) Name() string {
	return n.name
}

// OpType returns the type of the operator, without its domain.
func (n *Node) OpType() string {
	return n.opType
}

// Domain of the operator.
func (n *Node) Domain() string {
	return n.domain
}

// QualifiedOpType returns domain:op_type of the node.
func (n *Node) QualifiedOpType() string {
	return QualifiedOpType(n.domain, n.opType)
}

// Inputs returns the input arguments of the node.
// Absent optional inputs are represented by an argument for which Exists returns false.
func (n *Node) Inputs() []*NodeArg {
	return slices.Clone(n.inputs)
}

// Outputs returns the output arguments of the node.
func (n *Node) Outputs() []*NodeArg {
	return slices.Clone(n.outputs)
}

// InputEdges returns, for each input argument, the edge to the node producing it.
func (n *Node) InputEdges() []NodeInput {
	edges := make([]NodeInput, len(n.inputs))
	for i, arg := range n.inputs {
		edges[i] = NodeInput{Node: n.g.Producer(arg), Arg: arg}
	}
	return edges
}

// Attr returns the attribute of the node given its name.
func (n *Node) Attr(name string) (Attribute, bool) {
	attr, ok := n.attrs[name]
	return attr, ok
}

func (n *Node) String() string {
	return fmt.Sprintf("%s(%s)[%d] %s -> %s",
		n.QualifiedOpType(), n.name, n.index,
		stringseq.JoinStringer(slices.Values(n.inputs), ","),
		stringseq.JoinStringer(slices.Values(n.outputs), ","),
	)
}
