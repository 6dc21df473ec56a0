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

package anchor

import (
	"github.com/pkg/errors"

	"github.com/zmaychek84/vaip-sub004/graph"
)

const (
	quantizeLinear   = "QuantizeLinear"
	dequantizeLinear = "DequantizeLinear"
)

// qdqParams reads the scale and the zero point of a QuantizeLinear or DequantizeLinear node.
// The zero point is optional and defaults to 0.
func qdqParams(g *graph.Graph, node *graph.Node) (scale float32, zeroPoint int32, err error) {
	inputs := node.Inputs()
	if len(inputs) < 2 {
		return 0, 0, errors.Errorf("%s node %s has no scale", node.OpType(), node.Name())
	}
	scales, ok := g.ConstantValues(inputs[1])
	if !ok || len(scales) != 1 {
		return 0, 0, errors.Errorf("scale of %s node %s is not a scalar constant", node.OpType(), node.Name())
	}
	if len(inputs) < 3 || !inputs[2].Exists() {
		return float32(scales[0]), 0, nil
	}
	zps, ok := g.ConstantValues(inputs[2])
	if !ok || len(zps) != 1 {
		return 0, 0, errors.Errorf("zero point of %s node %s is not a scalar constant", node.OpType(), node.Name())
	}
	return float32(scales[0]), int32(zps[0]), nil
}

// FindQDQ returns the anchor point correcting the compiler when it anchors
// its fix op to a float tensor next to a quantize or dequantize op.
//
// If origin is already low bit, the correction is the identity.
// If origin is produced by a DequantizeLinear from a low bit tensor,
// the correction starts from that tensor.
// If the sole consumer of origin is a QuantizeLinear,
// the correction starts from the quantized tensor.
// Otherwise, FindQDQ returns false.
func FindQDQ(g *graph.Graph, origin string) (*Point, bool, error) {
	arg := g.Arg(origin)
	if !arg.Exists() {
		return nil, false, errors.Errorf("tensor %q not found in graph %s", origin, g.Name())
	}
	if arg.DataType().IsLowBit() {
		return NewPoint(origin), true, nil
	}
	if producer := g.Producer(arg); producer != nil && producer.OpType() == dequantizeLinear {
		if ins := producer.Inputs(); len(ins) > 0 && ins[0].DataType().IsLowBit() {
			in := ins[0]
			scale, zp, err := qdqParams(g, producer)
			if err != nil {
				return nil, false, err
			}
			return NewPoint(in.Name()).With(DequantizeLinear(scale, zp), origin), true, nil
		}
	}
	if consumer := g.SoleConsumer(arg); consumer != nil && consumer.OpType() == quantizeLinear {
		out := consumer.Outputs()[0]
		scale, zp, err := qdqParams(g, consumer)
		if err != nil {
			return nil, false, err
		}
		return NewPoint(out.Name()).With(DequantizeLinear(scale, zp), origin), true, nil
	}
	return nil, false, nil
}

// IsLowBitInput returns true if a tensor is a graph input of a low bit data type.
func IsLowBitInput(g *graph.Graph, name string) bool {
	arg := g.Arg(name)
	return arg.Exists() && g.IsInput(arg) && arg.DataType().IsLowBit()
}
