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
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type (
	// TensorDef describes a tensor in a graph file.
	TensorDef struct {
		Name   string    `yaml:"name"`
		DType  DataType  `yaml:"dtype"`
		Shape  []int64   `yaml:"shape,omitempty"`
		Values []float64 `yaml:"values,omitempty"`
	}

	// Def is the serialized form of a graph.
	// YAML and JSON documents are both accepted.
	Def struct {
		Name         string      `yaml:"name"`
		Inputs       []TensorDef `yaml:"inputs"`
		Initializers []TensorDef `yaml:"initializers,omitempty"`
		ValueInfo    []TensorDef `yaml:"value_info,omitempty"`
		Nodes        []NodeDef   `yaml:"nodes"`
		Outputs      []string    `yaml:"outputs"`
	}
)

// Load reads a graph definition and builds the graph.
func Load(r io.Reader) (*Graph, error) {
	var def Def
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, errors.Wrap(err, "cannot decode graph definition")
	}
	return FromDef(&def)
}

// FromDef builds a graph from its definition.
func FromDef(def *Def) (*Graph, error) {
	g := New(def.Name)
	for _, in := range def.Inputs {
		if _, err := g.AddInput(in.Name, in.DType, in.Shape...); err != nil {
			return nil, err
		}
	}
	for _, init := range def.Initializers {
		if _, err := g.AddInitializer(init.Name, init.DType, init.Shape, init.Values); err != nil {
			return nil, err
		}
	}
	for _, vi := range def.ValueInfo {
		g.SetValueInfo(vi.Name, vi.DType, vi.Shape...)
	}
	for i, nd := range def.Nodes {
		if _, err := g.AddNode(nd); err != nil {
			return nil, errors.Wrapf(err, "node %d", i)
		}
	}
	if err := g.SetOutputs(def.Outputs...); err != nil {
		return nil, err
	}
	return g, nil
}
