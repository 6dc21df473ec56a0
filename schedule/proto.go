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

package schedule

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/zmaychek84/vaip-sub004/anchor"
	"github.com/zmaychek84/vaip-sub004/vaippb"
)

func tbParamToProto(m vaippb.Msg, tb TBParam) {
	m.SetString("tensor_name", tb.TensorName).
		SetInt32("location", int32(tb.Location)).
		SetInt64s("shape", tb.Shape)
}

func tbParamFromProto(m vaippb.Msg) TBParam {
	return TBParam{
		TensorName: m.GetString("tensor_name"),
		Location:   Location(m.GetInt32("location")),
		Shape:      m.GetInt64s("shape"),
	}
}

// ToProto returns the schedule as a MetaScheduleProto message.
func (ms MetaSchedule) ToProto() vaippb.Msg {
	m := vaippb.New(vaippb.MetaSchedule)
	tbParamToProto(m.Message("from_tb_param"), ms.From)
	tbParamToProto(m.Message("to_tb_param"), ms.To)
	op := m.Message("op")
	switch ms.Op.Kind {
	case anchor.TransposeOp:
		op.SetBool("is_layout_transform", true).SetInt64s("order", ms.Op.Order)
	case anchor.PadOp:
		op.SetBool("is_pad", true).SetInt64s("padding", ms.Op.Paddings)
	case anchor.Float2FixOp:
		op.SetBool("float2fix", true).SetInt32("fix_point", ms.Op.FixPoint)
	case anchor.Fix2FloatOp:
		op.SetBool("fix2float", true).SetInt32("fix_point", ms.Op.FixPoint)
	case anchor.QuantizeLinearOp:
		op.SetBool("quantize_linear", true).
			SetFloat("scale", ms.Op.Scale).
			SetInt32("zero_point", ms.Op.ZeroPoint)
	case anchor.DequantizeLinearOp:
		op.SetBool("dequantize_linear", true).
			SetFloat("scale", ms.Op.Scale).
			SetInt32("zero_point", ms.Op.ZeroPoint)
	}
	return m
}

func opFromProto(m vaippb.Msg) (anchor.Op, error) {
	flags := lo.Filter([]string{
		"is_layout_transform", "is_pad", "float2fix", "fix2float", "quantize_linear", "dequantize_linear",
	}, func(name string, _ int) bool {
		return m.GetBool(name)
	})
	if len(flags) > 1 {
		return anchor.Op{}, errors.Errorf("schedule op sets %v: only one op can be set", flags)
	}
	if len(flags) == 0 {
		return anchor.Identity(), nil
	}
	switch flags[0] {
	case "is_layout_transform":
		return anchor.Transpose(m.GetInt64s("order")...), nil
	case "is_pad":
		return anchor.Pad(m.GetInt64s("padding")...), nil
	case "float2fix":
		return anchor.Float2Fix(m.GetInt32("fix_point")), nil
	case "fix2float":
		return anchor.Fix2Float(m.GetInt32("fix_point")), nil
	case "quantize_linear":
		return anchor.QuantizeLinear(m.GetFloat("scale"), m.GetInt32("zero_point")), nil
	}
	return anchor.DequantizeLinear(m.GetFloat("scale"), m.GetInt32("zero_point")), nil
}

// FromProto returns the schedule encoded in a MetaScheduleProto message.
func FromProto(m vaippb.Msg) (MetaSchedule, error) {
	ms := MetaSchedule{}
	if from, ok := m.GetMessage("from_tb_param"); ok {
		ms.From = tbParamFromProto(from)
	}
	if to, ok := m.GetMessage("to_tb_param"); ok {
		ms.To = tbParamFromProto(to)
	}
	op, ok := m.GetMessage("op")
	if !ok {
		return ms, errors.Errorf("schedule from %s has no op", ms.From)
	}
	var err error
	if ms.Op, err = opFromProto(op); err != nil {
		return ms, errors.Wrapf(err, "schedule from %s", ms.From)
	}
	return ms, nil
}

// ListToProto returns the anchor point and the schedules of a tensor
// as a TensorScheduleProto message.
func ListToProto(tensor string, p *anchor.Point, scheds []MetaSchedule) vaippb.Msg {
	m := vaippb.New(vaippb.TensorSchedule).SetString("tensor_name", tensor)
	if p != nil {
		m.SetMessage("anchor_point", p.ToProto())
	}
	for _, ms := range scheds {
		m.AppendMessage("schedules", ms.ToProto())
	}
	return m
}
