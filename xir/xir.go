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

// Package xir models the subgraphs of a graph compiled for the hardware.
package xir

import (
	"io"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/zmaychek84/vaip-sub004/graph"
)

// DPU is the device running the subgraphs offloaded to the hardware.
const DPU = "DPU"

type (
	// Tensor is a boundary tensor of a compiled subgraph.
	Tensor struct {
		Name  string         `yaml:"name"`
		Shape []int64        `yaml:"shape"`
		DType graph.DataType `yaml:"dtype"`
		// Strides in number of elements. Empty strides are contiguous.
		Strides []int64 `yaml:"strides,omitempty"`
		// FixPoint reported by the compiler for fix-point tensors.
		FixPoint *int32 `yaml:"fix_point,omitempty"`
	}

	// Subgraph is a compiled subgraph.
	Subgraph struct {
		Name    string    `yaml:"name"`
		Device  string    `yaml:"device"`
		Ops     []string  `yaml:"ops,omitempty"`
		Inputs  []*Tensor `yaml:"inputs"`
		Outputs []*Tensor `yaml:"outputs"`
	}

	// Model is the result of the compilation: a list of subgraphs.
	Model struct {
		Subgraphs []*Subgraph `yaml:"subgraphs"`
	}
)

// Load reads a compiled model.
func Load(r io.Reader) (*Model, error) {
	var m Model
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, errors.Wrap(err, "cannot decode compiled model")
	}
	for i, sg := range m.Subgraphs {
		if sg.Name == "" {
			return nil, errors.Errorf("subgraph %d has no name", i)
		}
	}
	return &m, nil
}

// Subgraph returns a subgraph given its name or nil.
func (m *Model) Subgraph(name string) *Subgraph {
	sg, _ := lo.Find(m.Subgraphs, func(sg *Subgraph) bool {
		return sg.Name == name
	})
	return sg
}

// HasUploadOps returns true if the subgraph runs ops on the hardware.
func (sg *Subgraph) HasUploadOps() bool {
	return strings.EqualFold(sg.Device, DPU) && len(sg.Ops) > 0
}

func sortedByName(ts []*Tensor) []*Tensor {
	sorted := slices.Clone(ts)
	slices.SortFunc(sorted, func(a, b *Tensor) int {
		return strings.Compare(a.Name, b.Name)
	})
	return sorted
}

// SortedInputs returns the inputs of the subgraph sorted by name.
func (sg *Subgraph) SortedInputs() []*Tensor {
	return sortedByName(sg.Inputs)
}

// SortedOutputs returns the outputs of the subgraph sorted by name.
func (sg *Subgraph) SortedOutputs() []*Tensor {
	return sortedByName(sg.Outputs)
}

// IsShape4D returns true if all the boundary tensors have 4 dimensions.
func (sg *Subgraph) IsShape4D() bool {
	return lo.EveryBy(slices.Concat(sg.Inputs, sg.Outputs), func(t *Tensor) bool {
		return len(t.Shape) == 4
	})
}

// Padding returns the paddings, in the ONNX layout, turning a contiguous
// tensor of the shape of t into the memory layout described by its strides.
// It returns nil if the tensor is contiguous.
//
// Only the last dimension can be padded: every other dimension must be
// contiguous with respect to the dimension that follows it.
func (t *Tensor) Padding() ([]int64, error) {
	if len(t.Strides) == 0 {
		return nil, nil
	}
	n := len(t.Shape)
	if len(t.Strides) != n {
		return nil, errors.Errorf("tensor %s: %d strides for %d dimensions", t.Name, len(t.Strides), n)
	}
	if t.Strides[n-1] != 1 {
		return nil, errors.Errorf("tensor %s: stride %d of the last dimension is not supported", t.Name, t.Strides[n-1])
	}
	if n == 1 {
		return nil, nil
	}
	pad := t.Strides[n-2] - t.Shape[n-1]
	if pad < 0 {
		return nil, errors.Errorf("tensor %s: stride %d smaller than the last dimension %d", t.Name, t.Strides[n-2], t.Shape[n-1])
	}
	for i := n - 3; i >= 0; i-- {
		if want := t.Strides[i+1] * t.Shape[i+1]; t.Strides[i] != want {
			return nil, errors.Errorf("tensor %s: dimension %d has stride %d but only the last dimension can be padded (want %d)", t.Name, i, t.Strides[i], want)
		}
	}
	if pad == 0 {
		return nil, nil
	}
	paddings := make([]int64, 2*n)
	paddings[2*n-1] = pad
	return paddings, nil
}
