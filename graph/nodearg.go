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

	"github.com/zmaychek84/vaip-sub004/base/stringseq"
)

// NodeArg is a tensor flowing along the edges of a graph.
// The graph owns all its arguments: a pointer to a NodeArg identifies a tensor.
type NodeArg struct {
	name  string
	dtype DataType
	shape []int64
}

// Name of the tensor.
func (a *NodeArg) Name() string {
	return a.name
}

// DataType returns the element type of the tensor.
// It returns Undefined for a nil argument.
func (a *NodeArg) DataType() DataType {
	if a == nil {
		return Undefined
	}
	return a.dtype
}

// Shape returns the dimensions of the tensor or nil if the shape is unknown.
func (a *NodeArg) Shape() []int64 {
	if a == nil {
		return nil
	}
	return a.shape
}

// Exists returns false for the sentinel argument used in place of an absent optional input.
func (a *NodeArg) Exists() bool {
	return a != nil && a.name != ""
}

func (a *NodeArg) String() string {
	if !a.Exists() {
		return "<absent>"
	}
	return fmt.Sprintf("%s:%s%s", a.name, a.dtype, stringseq.Ints(a.shape))
}
