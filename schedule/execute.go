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
	"math"
	"slices"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/zmaychek84/vaip-sub004/anchor"
	"github.com/zmaychek84/vaip-sub004/base/stringseq"
)

// Range of the fix-point values of the hardware.
const (
	fixMin = -128
	fixMax = 127
)

// Buffer is a dense row-major tensor held by the host.
// Fix-point and quantized values are stored as integral floats.
type Buffer struct {
	Shape []int64
	Data  []float32
}

func numElements(shape []int64) int64 {
	return lo.Reduce(shape, func(n int64, d int64, _ int) int64 {
		return n * d
	}, 1)
}

func rowMajorStrides(shape []int64) []int64 {
	strides := make([]int64, len(shape))
	s := int64(1)
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = s
		s *= shape[i]
	}
	return strides
}

// NewBuffer returns a buffer after checking its data matches its shape.
func NewBuffer(shape []int64, data []float32) (Buffer, error) {
	if n := numElements(shape); n != int64(len(data)) {
		return Buffer{}, errors.Errorf("shape %s has %d elements but got %d values", stringseq.Ints(shape), n, len(data))
	}
	return Buffer{Shape: slices.Clone(shape), Data: slices.Clone(data)}, nil
}

// Execute applies a list of schedules to a buffer.
// The shape of the buffer must be the shape of the source of the first schedule.
func Execute(buf Buffer, scheds []MetaSchedule) (Buffer, error) {
	for i, ms := range scheds {
		if !slices.Equal(buf.Shape, ms.From.Shape) {
			return Buffer{}, errors.Errorf("schedule %d (%s): buffer has shape %s", i, ms, stringseq.Ints(buf.Shape))
		}
		var err error
		if buf, err = Apply(ms.Op, buf); err != nil {
			return Buffer{}, errors.Wrapf(err, "schedule %d (%s)", i, ms)
		}
	}
	return buf, nil
}

// Apply applies a single op to a buffer.
func Apply(op anchor.Op, buf Buffer) (Buffer, error) {
	switch op.Kind {
	case anchor.IdentityOp, anchor.TransposeImmuneOp:
		return buf, nil
	case anchor.TransposeOp:
		return transpose(buf, op.Order)
	case anchor.PadOp:
		return pad(buf, op.Paddings)
	case anchor.Float2FixOp:
		return mapValues(buf, func(x float32) float32 {
			v := math32.Round(math32.Ldexp(x, int(op.FixPoint)))
			return math32.Min(math32.Max(v, fixMin), fixMax)
		}), nil
	case anchor.Fix2FloatOp:
		return mapValues(buf, func(x float32) float32 {
			return math32.Ldexp(x, -int(op.FixPoint))
		}), nil
	case anchor.QuantizeLinearOp:
		if op.Scale == 0 {
			return Buffer{}, errors.Errorf("quantize with a zero scale")
		}
		zp := float32(op.ZeroPoint)
		return mapValues(buf, func(x float32) float32 {
			return float32(math.RoundToEven(float64(x/op.Scale))) + zp
		}), nil
	case anchor.DequantizeLinearOp:
		zp := float32(op.ZeroPoint)
		return mapValues(buf, func(x float32) float32 {
			return (x - zp) * op.Scale
		}), nil
	}
	return Buffer{}, errors.Errorf("op %s not supported", op)
}

func mapValues(buf Buffer, f func(float32) float32) Buffer {
	return Buffer{
		Shape: slices.Clone(buf.Shape),
		Data: lo.Map(buf.Data, func(x float32, _ int) float32 {
			return f(x)
		}),
	}
}

// forEachIndex calls f with every multi-dimensional index of a shape in row-major order.
func forEachIndex(shape []int64, f func(idx []int64)) {
	n := numElements(shape)
	idx := make([]int64, len(shape))
	for range n {
		f(idx)
		for i := len(idx) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < shape[i] {
				break
			}
			idx[i] = 0
		}
	}
}

func transpose(buf Buffer, order []int64) (Buffer, error) {
	if len(order) != len(buf.Shape) {
		return Buffer{}, errors.Errorf("transpose order %s does not match shape %s", stringseq.Ints(order), stringseq.Ints(buf.Shape))
	}
	shape := anchor.Transpose(order...).Shape(buf.Shape)
	inStrides := rowMajorStrides(buf.Shape)
	out := make([]float32, 0, len(buf.Data))
	forEachIndex(shape, func(idx []int64) {
		var src int64
		for i, o := range order {
			src += idx[i] * inStrides[o]
		}
		out = append(out, buf.Data[src])
	})
	return Buffer{Shape: shape, Data: out}, nil
}

// pad pads with zeros. Negative paddings crop.
func pad(buf Buffer, paddings []int64) (Buffer, error) {
	rank := len(buf.Shape)
	if len(paddings) != 2*rank {
		return Buffer{}, errors.Errorf("paddings %s do not match shape %s", stringseq.Ints(paddings), stringseq.Ints(buf.Shape))
	}
	shape := anchor.Pad(paddings...).Shape(buf.Shape)
	if slices.ContainsFunc(shape, func(d int64) bool { return d < 0 }) {
		return Buffer{}, errors.Errorf("paddings %s crop more than shape %s", stringseq.Ints(paddings), stringseq.Ints(buf.Shape))
	}
	inStrides := rowMajorStrides(buf.Shape)
	out := make([]float32, 0, numElements(shape))
	forEachIndex(shape, func(idx []int64) {
		var src int64
		for i, o := range idx {
			in := o - paddings[i]
			if in < 0 || in >= buf.Shape[i] {
				out = append(out, 0)
				return
			}
			src += in * inStrides[i]
		}
		out = append(out, buf.Data[src])
	})
	return Buffer{Shape: shape, Data: out}, nil
}
