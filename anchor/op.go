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
	"fmt"
	"slices"

	"github.com/zmaychek84/vaip-sub004/base/stringseq"
)

type (
	// OpKind is the kind of elementary rewrite applied by a step of an anchor point.
	OpKind int

	// Op is an elementary tensor rewrite.
	// Only the fields relevant to its kind are set.
	Op struct {
		Kind OpKind

		// Permutation of a transpose: output dimension i is input dimension Order[i].
		Order []int64
		// Paddings of a pad, in the ONNX layout [begin_0, ..., begin_n, end_0, ..., end_n].
		// Negative values crop.
		Paddings []int64
		// FixPoint of float2fix and fix2float: a float x is stored as round(x * 2^FixPoint).
		FixPoint int32
		// Scale and ZeroPoint of quantize_linear and dequantize_linear.
		Scale     float32
		ZeroPoint int32
	}
)

const (
	// IdentityOp renames a tensor.
	IdentityOp OpKind = iota
	// TransposeOp permutes the dimensions of a tensor.
	TransposeOp
	// PadOp pads (or crops) a tensor.
	PadOp
	// Float2FixOp converts a float tensor to fix-point.
	Float2FixOp
	// Fix2FloatOp converts a fix-point tensor to float.
	Fix2FloatOp
	// QuantizeLinearOp quantizes a float tensor.
	QuantizeLinearOp
	// DequantizeLinearOp dequantizes a tensor to float.
	DequantizeLinearOp
	// TransposeImmuneOp marks a tensor whose layout does not change under transposition.
	TransposeImmuneOp
)

var opKindNames = map[OpKind]string{
	IdentityOp:         "identity",
	TransposeOp:        "transpose",
	PadOp:              "pad",
	Float2FixOp:        "float2fix",
	Fix2FloatOp:        "fix2float",
	QuantizeLinearOp:   "quantize_linear",
	DequantizeLinearOp: "dequantize_linear",
	TransposeImmuneOp:  "transpose_immune",
}

func (k OpKind) String() string {
	if s, ok := opKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("OpKind(%d)", int(k))
}

// Identity returns an op renaming a tensor.
func Identity() Op { return Op{Kind: IdentityOp} }

// TransposeImmune returns an op marking a tensor as transpose immune.
func TransposeImmune() Op { return Op{Kind: TransposeImmuneOp} }

// Transpose returns an op permuting the dimensions of a tensor.
func Transpose(order ...int64) Op {
	return Op{Kind: TransposeOp, Order: slices.Clone(order)}
}

// Pad returns an op padding a tensor.
func Pad(paddings ...int64) Op {
	return Op{Kind: PadOp, Paddings: slices.Clone(paddings)}
}

// Float2Fix returns an op converting floats to fix-point.
func Float2Fix(fixPoint int32) Op {
	return Op{Kind: Float2FixOp, FixPoint: fixPoint}
}

// Fix2Float returns an op converting fix-point values to floats.
func Fix2Float(fixPoint int32) Op {
	return Op{Kind: Fix2FloatOp, FixPoint: fixPoint}
}

// QuantizeLinear returns an op quantizing floats.
func QuantizeLinear(scale float32, zeroPoint int32) Op {
	return Op{Kind: QuantizeLinearOp, Scale: scale, ZeroPoint: zeroPoint}
}

// DequantizeLinear returns an op dequantizing values to floats.
func DequantizeLinear(scale float32, zeroPoint int32) Op {
	return Op{Kind: DequantizeLinearOp, Scale: scale, ZeroPoint: zeroPoint}
}

// IsNoOp returns true if the op does not change the data of the tensor.
func (op Op) IsNoOp() bool {
	switch op.Kind {
	case IdentityOp, TransposeImmuneOp:
		return true
	case TransposeOp:
		return isIdentityPermutation(op.Order)
	case PadOp:
		return !slices.ContainsFunc(op.Paddings, func(p int64) bool { return p != 0 })
	}
	return false
}

func isIdentityPermutation(order []int64) bool {
	for i, o := range order {
		if int64(i) != o {
			return false
		}
	}
	return true
}

// InversePermutation returns the permutation undoing order.
func InversePermutation(order []int64) []int64 {
	inv := make([]int64, len(order))
	for i, o := range order {
		inv[o] = int64(i)
	}
	return inv
}

// Inverse returns the op undoing op.
// A pad is undone by a crop only if depad is true.
// Otherwise its inverse is the identity: the padded tensor is read as is.
func (op Op) Inverse(depad bool) Op {
	switch op.Kind {
	case TransposeOp:
		return Transpose(InversePermutation(op.Order)...)
	case PadOp:
		if !depad {
			return Identity()
		}
		neg := make([]int64, len(op.Paddings))
		for i, p := range op.Paddings {
			neg[i] = -p
		}
		return Pad(neg...)
	case Float2FixOp:
		return Fix2Float(op.FixPoint)
	case Fix2FloatOp:
		return Float2Fix(op.FixPoint)
	case QuantizeLinearOp:
		return DequantizeLinear(op.Scale, op.ZeroPoint)
	case DequantizeLinearOp:
		return QuantizeLinear(op.Scale, op.ZeroPoint)
	}
	return op
}

// Shape returns the shape of the tensor produced by op given the shape of its input.
func (op Op) Shape(in []int64) []int64 {
	switch op.Kind {
	case TransposeOp:
		if len(op.Order) != len(in) {
			return slices.Clone(in)
		}
		out := make([]int64, len(in))
		for i, o := range op.Order {
			out[i] = in[o]
		}
		return out
	case PadOp:
		if len(op.Paddings) != 2*len(in) {
			return slices.Clone(in)
		}
		out := make([]int64, len(in))
		for i, d := range in {
			out[i] = d + op.Paddings[i] + op.Paddings[len(in)+i]
		}
		return out
	}
	return slices.Clone(in)
}

// merge returns a single op equivalent to a followed by b.
func merge(a, b Op) (Op, bool) {
	switch {
	case b.Kind == IdentityOp:
		return a, true
	case a.Kind == IdentityOp:
		return b, true
	case a.Kind == TransposeOp && b.Kind == TransposeOp && len(a.Order) == len(b.Order):
		order := make([]int64, len(b.Order))
		for i, o := range b.Order {
			order[i] = a.Order[o]
		}
		if isIdentityPermutation(order) {
			return Identity(), true
		}
		return Transpose(order...), true
	case a.Kind == PadOp && b.Kind == PadOp && len(a.Paddings) == len(b.Paddings):
		sum := make([]int64, len(a.Paddings))
		for i := range sum {
			sum[i] = a.Paddings[i] + b.Paddings[i]
		}
		pad := Pad(sum...)
		if pad.IsNoOp() {
			return Identity(), true
		}
		return pad, true
	}
	return Op{}, false
}

func (op Op) String() string {
	switch op.Kind {
	case TransposeOp:
		return fmt.Sprintf("transpose%s", stringseq.Ints(op.Order))
	case PadOp:
		return fmt.Sprintf("pad%s", stringseq.Ints(op.Paddings))
	case Float2FixOp, Fix2FloatOp:
		return fmt.Sprintf("%s(%d)", op.Kind, op.FixPoint)
	case QuantizeLinearOp, DequantizeLinearOp:
		return fmt.Sprintf("%s(%g,%d)", op.Kind, op.Scale, op.ZeroPoint)
	}
	return op.Kind.String()
}
