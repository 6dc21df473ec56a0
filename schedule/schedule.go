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

// Package schedule generates the instructions a runtime follows to move
// data between the tensors of the original graph and the tensors of a
// compiled subgraph.
package schedule

import (
	"fmt"
	"slices"

	"github.com/zmaychek84/vaip-sub004/anchor"
	"github.com/zmaychek84/vaip-sub004/base/stringseq"
)

type (
	// Location of a tensor buffer.
	Location int32

	// TBParam describes a tensor buffer.
	TBParam struct {
		TensorName string
		Location   Location
		Shape      []int64
	}

	// MetaSchedule applies an op to a buffer and writes the result into another buffer.
	MetaSchedule struct {
		From TBParam
		To   TBParam
		Op   anchor.Op
	}
)

const (
	// Scratch buffers hold intermediate results.
	Scratch Location = iota
	// ONNX buffers are tensors of the original graph.
	ONNX
	// XIR buffers are tensors of the compiled subgraph.
	XIR
)

func (l Location) String() string {
	switch l {
	case Scratch:
		return "scratch"
	case ONNX:
		return "onnx"
	case XIR:
		return "xir"
	}
	return fmt.Sprintf("Location(%d)", int32(l))
}

func (tb TBParam) String() string {
	return fmt.Sprintf("%s:%s%s", tb.Location, tb.TensorName, stringseq.Ints(tb.Shape))
}

func (ms MetaSchedule) String() string {
	return fmt.Sprintf("%s -%s-> %s", ms.From, ms.Op, ms.To)
}

// generate replays the steps of p starting from a buffer of a given shape.
// Steps not changing the data are skipped.
func generate(p *anchor.Point, shape []int64, from, to Location) []MetaSchedule {
	cur := TBParam{TensorName: p.Origin(), Location: from, Shape: slices.Clone(shape)}
	var scheds []MetaSchedule
	for step := range p.All() {
		if step.Op.IsNoOp() {
			continue
		}
		next := TBParam{
			TensorName: step.Name,
			Location:   Scratch,
			Shape:      step.Op.Shape(cur.Shape),
		}
		scheds = append(scheds, MetaSchedule{From: cur, To: next, Op: step.Op})
		cur = next
	}
	if len(scheds) > 0 {
		last := &scheds[len(scheds)-1]
		last.To.TensorName = p.Name()
		last.To.Location = to
	}
	return scheds
}

// Forward returns the schedules moving the data of the origin of an
// anchor point, a tensor of the original graph of a given shape, to the
// tensor of the compiled subgraph. Forward schedules feed subgraph inputs.
func Forward(p *anchor.Point, shape []int64) []MetaSchedule {
	return generate(p, shape, ONNX, XIR)
}

// Reverse returns the schedules moving the data of the tensor of the
// compiled subgraph, of a given shape, back to the origin of an anchor point.
// Reverse schedules retrieve subgraph outputs.
// Pads are cropped only if depad is true.
func Reverse(p *anchor.Point, depad bool, shape []int64) []MetaSchedule {
	return generate(p.Reverse(depad), shape, XIR, ONNX)
}
