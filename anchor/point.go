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

// Package anchor relates the tensors of a compiled hardware graph to the
// tensors of the original graph.
//
// An anchor point is a chain of elementary rewrites (rename, transpose,
// pad, fix-point conversion, quantization) leading from a tensor of the
// original graph, its origin, to a tensor of the compiled graph, its name.
package anchor

import (
	"iter"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

type (
	// Step applies an op and names the resulting tensor.
	Step struct {
		Op   Op
		Name string
	}

	// Point is an anchor point. A Point is immutable.
	Point struct {
		origin string
		steps  []Step
	}
)

// NewPoint returns the anchor point of a tensor to itself.
func NewPoint(origin string) *Point {
	return &Point{origin: origin}
}

// Alias returns an anchor point renaming origin to name.
func Alias(origin, name string) *Point {
	return NewPoint(origin).With(Identity(), name)
}

// Origin returns the name of the tensor in the original graph.
func (p *Point) Origin() string {
	return p.origin
}

// Name returns the name of the tensor at the end of the chain.
func (p *Point) Name() string {
	if len(p.steps) == 0 {
		return p.origin
	}
	return p.steps[len(p.steps)-1].Name
}

// Steps returns the steps of the chain.
func (p *Point) Steps() []Step {
	return slices.Clone(p.steps)
}

// All iterates over the steps from the origin to the name.
func (p *Point) All() iter.Seq[Step] {
	return slices.Values(p.steps)
}

// NumSteps returns the number of steps in the chain.
func (p *Point) NumSteps() int {
	return len(p.steps)
}

// With returns a new anchor point extending p by one step.
func (p *Point) With(op Op, name string) *Point {
	steps := make([]Step, len(p.steps), len(p.steps)+1)
	copy(steps, p.steps)
	return &Point{origin: p.origin, steps: append(steps, Step{Op: op, Name: name})}
}

// Append chains q after p. The origin of q must be the name of p.
func (p *Point) Append(q *Point) (*Point, error) {
	if q.origin != p.Name() {
		return nil, errors.Errorf("cannot append anchor point %s: its origin %q is not %q", q, q.origin, p.Name())
	}
	return &Point{
		origin: p.origin,
		steps:  slices.Concat(p.steps, q.steps),
	}, nil
}

// Optimize returns an equivalent anchor point where adjacent steps
// are merged when possible: renames are absorbed, consecutive transposes
// are composed and consecutive pads are summed.
// Fix-point conversions and quantizations are never cancelled: they are lossy.
func (p *Point) Optimize() *Point {
	var steps []Step
	for _, step := range p.steps {
		if len(steps) > 0 {
			last := &steps[len(steps)-1]
			if op, ok := merge(last.Op, step.Op); ok {
				*last = Step{Op: op, Name: step.Name}
				continue
			}
		}
		steps = append(steps, step)
	}
	if len(steps) == 1 && steps[0].Op.Kind == IdentityOp && steps[0].Name == p.origin {
		steps = nil
	}
	return &Point{origin: p.origin, steps: steps}
}

// Reverse returns the anchor point from the name of p back to its origin.
// Steps are replayed backward and inverted.
// Pads are inverted only when depad is true.
func (p *Point) Reverse(depad bool) *Point {
	r := &Point{origin: p.Name(), steps: make([]Step, len(p.steps))}
	for i, step := range p.steps {
		name := p.origin
		if i > 0 {
			name = p.steps[i-1].Name
		}
		r.steps[len(p.steps)-1-i] = Step{Op: step.Op.Inverse(depad), Name: name}
	}
	return r
}

// IsIdentity returns true if the chain does not change the data of its origin.
func (p *Point) IsIdentity() bool {
	for _, step := range p.steps {
		if !step.Op.IsNoOp() {
			return false
		}
	}
	return true
}

func (p *Point) String() string {
	var s strings.Builder
	s.WriteString(p.origin)
	for _, step := range p.steps {
		s.WriteString(" -")
		s.WriteString(step.Op.String())
		s.WriteString("-> ")
		s.WriteString(step.Name)
	}
	return s.String()
}
