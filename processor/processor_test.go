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

package processor_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"k8s.io/klog/v2/ktesting"

	"github.com/zmaychek84/vaip-sub004/anchor"
	"github.com/zmaychek84/vaip-sub004/config"
	"github.com/zmaychek84/vaip-sub004/graph"
	"github.com/zmaychek84/vaip-sub004/graph/graphtest"
	"github.com/zmaychek84/vaip-sub004/processor"
	"github.com/zmaychek84/vaip-sub004/schedule"
	"github.com/zmaychek84/vaip-sub004/xir"
)

const modelGraph = `
name: model
inputs:
  - {name: xq, dtype: int8, shape: [1, 4, 4, 3]}
initializers:
  - {name: s, dtype: float, values: [0.25]}
  - {name: zp, dtype: int8, values: [0]}
  - {name: w, dtype: float, values: [2]}
  - {name: s2, dtype: float, values: [0.5]}
value_info:
  - {name: x, dtype: float, shape: [1, 4, 4, 3]}
  - {name: y, dtype: float, shape: [1, 4, 4, 3]}
  - {name: yq, dtype: int8, shape: [1, 4, 4, 3]}
  - {name: z, dtype: float, shape: [1, 4, 4, 3]}
nodes:
  - {name: dq, op_type: DequantizeLinear, inputs: [xq, s, zp], outputs: [x]}
  - {name: mul, op_type: Mul, inputs: [x, w], outputs: [y]}
  - {name: q, op_type: QuantizeLinear, inputs: [y, s2], outputs: [yq]}
  - {name: dq2, op_type: DequantizeLinear, inputs: [yq, s2], outputs: [z]}
outputs: [z]
`

const compiled = `
subgraphs:
  - name: sg0
    device: DPU
    ops: [conv2d-fix]
    inputs:
      - {name: x_inserted_fix_0, shape: [1, 4, 4, 3], dtype: int8, fix_point: 2}
    outputs:
      - {name: y_fix, shape: [1, 4, 4, 3], dtype: int8, fix_point: 1, strides: [64, 16, 4, 1]}
  - name: host
    device: CPU
    inputs:
      - {name: yq, shape: [1, 4, 4, 3], dtype: int8}
    outputs:
      - {name: z, shape: [1, 4, 4, 3], dtype: float}
  - name: sg1
    device: DPU
    ops: [conv2d-fix]
    inputs:
      - {name: xq, shape: [1, 4, 4, 3], dtype: int8}
    outputs:
      - {name: z_fix, shape: [1, 4, 4, 3], dtype: float}
`

func setup(t *testing.T, src string, cfg *config.Config) (*processor.Processor, context.Context) {
	t.Helper()
	_, ctx := ktesting.NewTestContext(t)
	g := graphtest.Load(t, src)
	proc, err := processor.New(g, cfg)
	require.NoError(t, err)
	return proc, ctx
}

func loadModel(t *testing.T) *xir.Model {
	t.Helper()
	m, err := xir.Load(strings.NewReader(compiled))
	require.NoError(t, err)
	return m
}

func fix(v int32) *int32 {
	return &v
}

func TestProcess(t *testing.T) {
	proc, ctx := setup(t, modelGraph, nil)
	r := proc.Process(ctx, loadModel(t).Subgraph("sg0"))
	require.True(t, r.OK(), "%s: %s", r.Status, r.Comment)
	require.NoError(t, r.Err())

	require.Len(t, r.Inputs, 1)
	require.Equal(t, "xq -dequantize_linear(0.25,0)-> x_inserted_fix_0 -float2fix(2)-> x_inserted_fix_0", r.Inputs[0].Point.String())
	require.Len(t, r.Inputs[0].Schedules, 2)
	last := r.Inputs[0].Schedules[1]
	require.Equal(t, schedule.TBParam{TensorName: "x_inserted_fix_0", Location: schedule.XIR, Shape: []int64{1, 4, 4, 3}}, last.To)

	require.Len(t, r.Outputs, 1)
	require.Equal(t, "yq -dequantize_linear(0.5,0)-> y_fix -float2fix(1)-> y_fix -pad[0,0,0,0,0,0,0,1]-> y_fix", r.Outputs[0].Point.String())
	outScheds := r.Outputs[0].Schedules
	require.Len(t, outScheds, 2)
	require.Equal(t, schedule.TBParam{TensorName: "y_fix", Location: schedule.XIR, Shape: []int64{1, 4, 4, 4}}, outScheds[0].From)
	require.Equal(t, schedule.TBParam{TensorName: "yq", Location: schedule.ONNX, Shape: []int64{1, 4, 4, 4}}, outScheds[1].To)

	g := proc.Graph()
	require.NotNil(t, r.Fused)
	require.Equal(t, "sg0", r.Fused.Name())
	require.Equal(t, "com.xilinx:super_layer", r.Fused.QualifiedOpType())
	attr, ok := r.Fused.Attr(processor.SubgraphAttr)
	require.True(t, ok)
	require.Equal(t, graph.StringAttr("sg0"), attr)
	for _, name := range []string{"dq", "mul", "q"} {
		require.Nil(t, g.NodeByName(name), "node %s has not been fused", name)
	}
	require.NotNil(t, g.NodeByName("dq2"))

	p, ok := proc.Table().Find("y_fix")
	require.True(t, ok)
	require.Equal(t, "y -identity-> y_fix", p.String())
}

func TestProcessDepad(t *testing.T) {
	cfg := config.Default()
	cfg.EnableDepad = true
	proc, ctx := setup(t, modelGraph, cfg)
	r := proc.Process(ctx, loadModel(t).Subgraph("sg0"))
	require.True(t, r.OK(), "%s: %s", r.Status, r.Comment)
	scheds := r.Outputs[0].Schedules
	require.Len(t, scheds, 3)
	require.Equal(t, schedule.TBParam{TensorName: "yq", Location: schedule.ONNX, Shape: []int64{1, 4, 4, 3}}, scheds[2].To)
}

func TestProcessAll(t *testing.T) {
	proc, ctx := setup(t, modelGraph, nil)
	reports, err := proc.ProcessAll(ctx, loadModel(t))
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 1)
	require.Contains(t, err.Error(), "NESTED_FUSION")

	var got []processor.Status
	for _, r := range reports {
		got = append(got, r.Status)
	}
	require.Equal(t, []processor.Status{processor.OK, processor.NoUploadOps, processor.NestedFusion}, got)
	require.Contains(t, reports[2].Comment, "sg0")
	require.Equal(t, "yq -dequantize_linear(0.5,0)-> z_fix", reports[2].Outputs[0].Point.String())
}

const batchGraph = `
name: batch
inputs:
  - {name: a, dtype: int8, shape: [2, 3]}
value_info:
  - {name: b, dtype: int8, shape: [2, 3]}
nodes:
  - {name: relu, op_type: Relu, inputs: [a], outputs: [b]}
outputs: [b]
`

func TestStrictBatch(t *testing.T) {
	sg := &xir.Subgraph{
		Name:    "sg",
		Device:  xir.DPU,
		Ops:     []string{"relu"},
		Inputs:  []*xir.Tensor{{Name: "a", Shape: []int64{2, 3}, DType: graph.Int8}},
		Outputs: []*xir.Tensor{{Name: "b", Shape: []int64{2, 3}, DType: graph.Int8}},
	}
	proc, ctx := setup(t, batchGraph, nil)
	r := proc.Process(ctx, sg)
	require.True(t, r.OK(), "%s: %s", r.Status, r.Comment)
	require.Equal(t, "a", r.Inputs[0].Point.String())

	cfg := config.Default()
	cfg.StrictBatch = true
	proc, ctx = setup(t, batchGraph, cfg)
	r = proc.Process(ctx, sg)
	require.Equal(t, processor.InputAnchorFailed, r.Status)
	require.Contains(t, r.Comment, "batch size 2 is not 1")
	require.NotNil(t, proc.Graph().NodeByName("relu"))
}

func TestRejections(t *testing.T) {
	validOut := &xir.Tensor{Name: "y_fix", Shape: []int64{1, 4, 4, 3}, DType: graph.Int8, FixPoint: fix(1)}
	tests := []struct {
		name    string
		cfg     func(*config.Config)
		sg      *xir.Subgraph
		status  processor.Status
		comment string
	}{
		{
			name:    "no upload ops",
			sg:      &xir.Subgraph{Name: "sg", Device: xir.DPU},
			status:  processor.NoUploadOps,
			comment: "no op to upload",
		},
		{
			name: "not 4D",
			cfg:  func(cfg *config.Config) { cfg.CheckShape4D = true },
			sg: &xir.Subgraph{
				Name: "sg", Device: xir.DPU, Ops: []string{"fc"},
				Inputs:  []*xir.Tensor{{Name: "x", Shape: []int64{1, 48}}},
				Outputs: []*xir.Tensor{validOut},
			},
			status:  processor.NotShape4D,
			comment: "4 dimensions",
		},
		{
			name: "unknown input",
			sg: &xir.Subgraph{
				Name: "sg", Device: xir.DPU, Ops: []string{"conv"},
				Inputs:  []*xir.Tensor{{Name: "unknown", Shape: []int64{1, 4, 4, 3}}},
				Outputs: []*xir.Tensor{validOut},
			},
			status:  processor.InputAnchorFailed,
			comment: "tensor unknown not found",
		},
		{
			name: "batch mismatch",
			sg: &xir.Subgraph{
				Name: "sg", Device: xir.DPU, Ops: []string{"conv"},
				Inputs:  []*xir.Tensor{{Name: "x_inserted_fix_0", Shape: []int64{2, 4, 4, 3}, FixPoint: fix(2)}},
				Outputs: []*xir.Tensor{validOut},
			},
			status:  processor.InputAnchorFailed,
			comment: "batch size 2 does not match",
		},
		{
			name: "unknown renamed output",
			sg: &xir.Subgraph{
				Name: "sg", Device: xir.DPU, Ops: []string{"conv"},
				Inputs:  []*xir.Tensor{{Name: "x_inserted_fix_0", Shape: []int64{1, 4, 4, 3}, FixPoint: fix(2)}},
				Outputs: []*xir.Tensor{{Name: "nothing_fix", Shape: []int64{1, 4, 4, 3}}},
			},
			status:  processor.OutputAnchorFailed,
			comment: "tensor nothing (renamed nothing_fix) not found",
		},
		{
			name: "empty boundary",
			sg: &xir.Subgraph{
				Name: "sg", Device: xir.DPU, Ops: []string{"conv"},
				Inputs:  []*xir.Tensor{{Name: "x", Shape: []int64{1, 4, 4, 3}}},
				Outputs: []*xir.Tensor{{Name: "x_fix", Shape: []int64{1, 4, 4, 3}}},
			},
			status:  processor.TryFuseFailed,
			comment: "both an input and an output",
		},
		{
			name: "shape mismatch",
			sg: &xir.Subgraph{
				Name: "sg", Device: xir.DPU, Ops: []string{"conv"},
				Inputs:  []*xir.Tensor{{Name: "x_inserted_fix_0", Shape: []int64{1, 4, 4, 8}, FixPoint: fix(2)}},
				Outputs: []*xir.Tensor{validOut},
			},
			status:  processor.ScheduleFailed,
			comment: "input x_inserted_fix_0",
		},
		{
			name: "nil tensor",
			sg: &xir.Subgraph{
				Name: "sg", Device: xir.DPU, Ops: []string{"conv"},
				Inputs:  []*xir.Tensor{nil},
				Outputs: []*xir.Tensor{validOut},
			},
			status:  processor.Exception,
			comment: "nil pointer dereference",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := config.Default()
			if test.cfg != nil {
				test.cfg(cfg)
			}
			proc, ctx := setup(t, modelGraph, cfg)
			numNodes := proc.Graph().NumNodes()
			r := proc.Process(ctx, test.sg)
			require.Equal(t, test.status, r.Status, "comment: %s", r.Comment)
			require.Contains(t, r.Comment, test.comment)
			require.Error(t, r.Err())
			require.Nil(t, r.Fused)
			require.Equal(t, numNodes, proc.Graph().NumNodes())
		})
	}
}

func TestReportToProto(t *testing.T) {
	proc, ctx := setup(t, modelGraph, nil)
	r := proc.Process(ctx, loadModel(t).Subgraph("sg0"))
	require.True(t, r.OK(), "%s: %s", r.Status, r.Comment)
	m := r.ToProto()
	require.Equal(t, "sg0", m.GetString("subgraph"))
	require.Equal(t, "OK", m.GetString("status"))
	outs := m.Messages("outputs")
	require.Len(t, outs, 1)
	require.Equal(t, "y_fix", outs[0].GetString("tensor_name"))
	require.Len(t, outs[0].Messages("schedules"), 2)
	ap, ok := outs[0].GetMessage("anchor_point")
	require.True(t, ok)
	require.Equal(t, "yq", ap.GetString("origin_node_arg_name"))
}

func TestStatusString(t *testing.T) {
	require.Equal(t, "TRY_FUSE_FAILED", processor.TryFuseFailed.String())
	require.Equal(t, "Status(42)", processor.Status(42).String())
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.CompilerVersion = "not a version"
	_, err := processor.New(graphtest.Load(t, batchGraph), cfg)
	require.Error(t, err)
}

func TestProcessRegisteredTranspose(t *testing.T) {
	proc, ctx := setup(t, modelGraph, nil)
	_, inserted := proc.Table().Insert(anchor.NewPoint("y").With(anchor.Transpose(0, 2, 3, 1), "y_nhwc"))
	require.True(t, inserted)
	sg := &xir.Subgraph{
		Name:    "sg",
		Device:  xir.DPU,
		Ops:     []string{"conv2d-fix"},
		Inputs:  []*xir.Tensor{{Name: "x_inserted_fix_0", Shape: []int64{1, 4, 4, 3}, DType: graph.Int8, FixPoint: fix(2)}},
		Outputs: []*xir.Tensor{{Name: "y_nhwc", Shape: []int64{1, 4, 3, 4}, DType: graph.Int8, FixPoint: fix(1)}},
	}
	r := proc.Process(ctx, sg)
	require.True(t, r.OK(), "%s: %s", r.Status, r.Comment)
	require.Equal(t, "yq -dequantize_linear(0.5,0)-> y -transpose[0,2,3,1]-> y_nhwc -float2fix(1)-> y_nhwc", r.Outputs[0].Point.String())

	scheds := r.Outputs[0].Schedules
	require.Len(t, scheds, 3)
	require.Equal(t, anchor.Fix2Float(1), scheds[0].Op)
	require.Equal(t, anchor.Transpose(0, 3, 1, 2), scheds[1].Op)
	require.Equal(t, []int64{1, 4, 4, 3}, scheds[1].To.Shape)
	require.Equal(t, schedule.TBParam{TensorName: "yq", Location: schedule.ONNX, Shape: []int64{1, 4, 4, 3}}, scheds[2].To)
}

func TestProcessRegisteredUnknownOrigin(t *testing.T) {
	proc, ctx := setup(t, modelGraph, nil)
	proc.Table().Insert(anchor.Alias("ghost", "ghost_hw"))
	sg := &xir.Subgraph{
		Name:    "sg",
		Device:  xir.DPU,
		Ops:     []string{"conv2d-fix"},
		Inputs:  []*xir.Tensor{{Name: "ghost_hw", Shape: []int64{1, 4, 4, 3}, FixPoint: fix(2)}},
		Outputs: []*xir.Tensor{{Name: "y_fix", Shape: []int64{1, 4, 4, 3}, FixPoint: fix(1)}},
	}
	r := proc.Process(ctx, sg)
	require.Equal(t, processor.InputAnchorFailed, r.Status)
	require.Contains(t, r.Comment, "starts from ghost")
}

const suffixGraph = `
name: suffix
inputs:
  - {name: a, dtype: int8, shape: [1, 8]}
value_info:
  - {name: conv_fix, dtype: int8, shape: [1, 8]}
nodes:
  - {name: conv, op_type: Conv, inputs: [a], outputs: [conv_fix]}
outputs: [conv_fix]
`

func TestProcessGraphNamesKeepSuffix(t *testing.T) {
	proc, ctx := setup(t, suffixGraph, nil)
	sg := &xir.Subgraph{
		Name:    "sg",
		Device:  xir.DPU,
		Ops:     []string{"conv2d-fix"},
		Inputs:  []*xir.Tensor{{Name: "a_fix", Shape: []int64{1, 8}, DType: graph.Int8}},
		Outputs: []*xir.Tensor{{Name: "conv_fix", Shape: []int64{1, 8}, DType: graph.Int8}},
	}
	r := proc.Process(ctx, sg)
	require.True(t, r.OK(), "%s: %s", r.Status, r.Comment)
	require.Equal(t, "a -identity-> a_fix", r.Inputs[0].Point.String())
	require.Equal(t, "conv_fix", r.Outputs[0].Point.String())
	require.Empty(t, r.Outputs[0].Schedules)
}
