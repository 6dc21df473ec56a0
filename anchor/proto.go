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

	"github.com/zmaychek84/vaip-sub004/vaippb"
)

func opToProto(step vaippb.Msg, op Op) {
	switch op.Kind {
	case IdentityOp:
		step.Message("identity")
	case TransposeImmuneOp:
		step.Message("transpose_immune")
	case TransposeOp:
		step.Message("transpose").SetInt64s("order", op.Order)
	case PadOp:
		step.Message("pad").SetInt64s("paddings", op.Paddings)
	case Float2FixOp:
		step.Message("float2fix").SetInt32("fix_point", op.FixPoint)
	case Fix2FloatOp:
		step.Message("fix2float").SetInt32("fix_point", op.FixPoint)
	case QuantizeLinearOp:
		step.Message("quantize_linear").SetFloat("scale", op.Scale).SetInt32("zero_point", op.ZeroPoint)
	case DequantizeLinearOp:
		step.Message("dequantize_linear").SetFloat("scale", op.Scale).SetInt32("zero_point", op.ZeroPoint)
	}
}

func opFromProto(step vaippb.Msg) (Op, error) {
	kind := step.Which("op")
	if kind == "" {
		return Op{}, errors.Errorf("step %q has no op", step.GetString("name"))
	}
	m, _ := step.GetMessage(kind)
	switch kind {
	case "identity":
		return Identity(), nil
	case "transpose_immune":
		return TransposeImmune(), nil
	case "transpose":
		return Transpose(m.GetInt64s("order")...), nil
	case "pad":
		return Pad(m.GetInt64s("paddings")...), nil
	case "float2fix":
		return Float2Fix(m.GetInt32("fix_point")), nil
	case "fix2float":
		return Fix2Float(m.GetInt32("fix_point")), nil
	case "quantize_linear":
		return QuantizeLinear(m.GetFloat("scale"), m.GetInt32("zero_point")), nil
	case "dequantize_linear":
		return DequantizeLinear(m.GetFloat("scale"), m.GetInt32("zero_point")), nil
	}
	return Op{}, errors.Errorf("unknown op %q", kind)
}

// ToProto returns the anchor point as an AnchorPointProto message.
func (p *Point) ToProto() vaippb.Msg {
	m := vaippb.New(vaippb.AnchorPoint).
		SetString("origin_node_arg_name", p.origin).
		SetString("name", p.Name())
	for _, step := range p.steps {
		sm := m.AddMessage("steps").SetString("name", step.Name)
		opToProto(sm, step.Op)
	}
	return m
}

// FromProto returns the anchor point encoded in an AnchorPointProto message.
func FromProto(m vaippb.Msg) (*Point, error) {
	p := NewPoint(m.GetString("origin_node_arg_name"))
	for i, sm := range m.Messages("steps") {
		op, err := opFromProto(sm)
		if err != nil {
			return nil, errors.Wrapf(err, "step %d of anchor point %q", i, p.origin)
		}
		p = p.With(op, sm.GetString("name"))
	}
	if name := m.GetString("name"); name != p.Name() {
		return nil, errors.Errorf("anchor point %s leads to %q but its name is %q", p, p.Name(), name)
	}
	return p, nil
}
