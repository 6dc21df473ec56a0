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

// NodeInput is the value on the other end of an edge:
// either the output of a node (Node and Arg are set),
// or a constant initializer or a graph input (only Arg is set).
// The zero value denotes the absence of a value.
type NodeInput struct {
	Node *Node
	Arg  *NodeArg
}

// AsNodeArg returns the tensor of the edge.
func (in NodeInput) AsNodeArg() *NodeArg {
	return in.Arg
}

// AsNode returns the node producing the tensor, if any.
func (in NodeInput) AsNode() (*Node, bool) {
	return in.Node, in.Node != nil
}

// IsZero returns true if neither a node nor an argument is set.
func (in NodeInput) IsZero() bool {
	return in.Node == nil && in.Arg == nil
}

// Same returns true if both inputs refer to the same node and the same argument.
func (in NodeInput) Same(other NodeInput) bool {
	return in.Node == other.Node && in.Arg == other.Arg
}

func (in NodeInput) String() string {
	switch {
	case in.IsZero():
		return "<nil>"
	case in.Node == nil:
		return in.Arg.String()
	default:
		return in.Node.Name() + "." + in.Arg.String()
	}
}
