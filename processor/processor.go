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

// Package processor offloads the subgraphs compiled for the hardware:
// it relates the boundary tensors of every compiled subgraph to the
// tensors of the original graph, replaces the matching nodes of the
// original graph by a single node and computes the schedules a runtime
// follows to move data across the boundary.
package processor

import (
	"context"
	"slices"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"golang.org/x/exp/maps"
	"k8s.io/klog/v2"

	"github.com/zmaychek84/vaip-sub004/anchor"
	"github.com/zmaychek84/vaip-sub004/anchor/names"
	"github.com/zmaychek84/vaip-sub004/base/stringseq"
	"github.com/zmaychek84/vaip-sub004/config"
	"github.com/zmaychek84/vaip-sub004/graph"
	"github.com/zmaychek84/vaip-sub004/schedule"
	"github.com/zmaychek84/vaip-sub004/xir"
)

// SubgraphAttr is the attribute of a fused node storing the name of its subgraph.
const SubgraphAttr = "subgraph"

// Processor processes the compiled subgraphs of a graph.
// Successful subgraphs modify the graph: a Processor is not safe for concurrent use.
type Processor struct {
	g     *graph.Graph
	cfg   *config.Config
	names *names.Stripper
	table *anchor.Table
}

// New returns a processor modifying g.
func New(g *graph.Graph, cfg *config.Config) (*Processor, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	stripper, err := names.ForCompiler(cfg.CompilerVersion)
	if err != nil {
		return nil, err
	}
	table := anchor.NewTable()
	table.Seed(g)
	return &Processor{g: g, cfg: cfg, names: stripper, table: table}, nil
}

// Graph returns the graph modified by the processor.
func (p *Processor) Graph() *graph.Graph {
	return p.g
}

// Table returns the anchor points known to the processor.
func (p *Processor) Table() *anchor.Table {
	return p.table
}

// ProcessAll processes all the subgraphs of a compiled model in order.
// The returned error combines the errors of the rejected subgraphs
// which had to run on the hardware.
func (p *Processor) ProcessAll(ctx context.Context, m *xir.Model) ([]*Report, error) {
	reports := make([]*Report, len(m.Subgraphs))
	var err error
	for i, sg := range m.Subgraphs {
		reports[i] = p.Process(ctx, sg)
		if reports[i].Status != NoUploadOps {
			err = multierr.Append(err, reports[i].Err())
		}
	}
	return reports, err
}

// Process processes a compiled subgraph.
// The graph is modified only if the returned report is OK.
func (p *Processor) Process(ctx context.Context, sg *xir.Subgraph) (r *Report) {
	logger := klog.LoggerWithName(klog.FromContext(ctx), "dpu").WithValues("subgraph", sg.Name)
	r = &Report{Subgraph: sg.Name}
	defer func() {
		if x := recover(); x != nil {
			r.reject(Exception, "%T: %v", x, x)
		}
		if r.OK() {
			logger.V(2).Info("subgraph offloaded", "node", r.Fused.Name(), "inputs", len(r.Inputs), "outputs", len(r.Outputs))
		} else {
			logger.V(1).Info("subgraph rejected", "status", r.Status, "comment", r.Comment)
		}
	}()
	p.process(sg, r)
	return r
}

func (p *Processor) process(sg *xir.Subgraph, r *Report) {
	if !sg.HasUploadOps() {
		r.reject(NoUploadOps, "device %q has no op to upload", sg.Device)
		return
	}
	if p.cfg.CheckShape4D && !sg.IsShape4D() {
		r.reject(NotShape4D, "not all boundary tensors have 4 dimensions")
		return
	}
	var err error
	if r.Inputs, err = p.anchorAll(sg.SortedInputs()); err != nil {
		r.reject(InputAnchorFailed, "%v", err)
		return
	}
	if r.Outputs, err = p.anchorAll(sg.SortedOutputs()); err != nil {
		r.reject(OutputAnchorFailed, "%v", err)
		return
	}
	fusion, err := p.g.TryFuse(origins(r.Inputs), origins(r.Outputs))
	if err != nil {
		r.reject(TryFuseFailed, "%v", err)
		return
	}
	if n, nested := lo.Find(fusion.Nodes(), p.isFused); nested {
		r.reject(NestedFusion, "node %s has already been fused", n.Name())
		return
	}
	if err := p.schedule(r); err != nil {
		r.reject(ScheduleFailed, "%v", err)
		return
	}
	r.Fused, err = fusion.Apply(graph.FusedNodeDef{
		Name:   sg.Name,
		OpType: p.cfg.FusedOpType,
		Domain: p.cfg.FusedOpDomain,
		Attrs: map[string]graph.Attribute{
			SubgraphAttr: graph.StringAttr(sg.Name),
		},
	})
	if err != nil {
		r.reject(TryFuseFailed, "%v", err)
	}
}

// origins returns the sorted set of tensors of the original graph
// the anchor points of a set of boundary tensors start from.
func origins(trs []TensorReport) []string {
	set := make(map[string]bool, len(trs))
	for _, tr := range trs {
		set[tr.Point.Origin()] = true
	}
	keys := maps.Keys(set)
	sort.Strings(keys)
	return keys
}

func (p *Processor) isFused(n *graph.Node) bool {
	return n.OpType() == p.cfg.FusedOpType && n.Domain() == p.cfg.FusedOpDomain
}

func (p *Processor) anchorAll(ts []*xir.Tensor) ([]TensorReport, error) {
	trs := make([]TensorReport, len(ts))
	for i, t := range ts {
		point, err := p.anchorTensor(t)
		if err != nil {
			return nil, err
		}
		trs[i] = TensorReport{Tensor: t, Point: point}
	}
	return trs, nil
}

// anchorTensor builds the anchor point from the original graph to a tensor of a compiled subgraph.
// An anchor point registered for the name of the tensor takes precedence over
// the tensors of the graph. Compiler suffixes are stripped only when the name is unknown.
func (p *Processor) anchorTensor(t *xir.Tensor) (*anchor.Point, error) {
	base, ok := p.table.Find(t.Name)
	renamed := false
	if !ok {
		candidate, stripped := p.names.Strip(t.Name)
		if !stripped {
			return nil, errors.Errorf("tensor %s not found in graph %s", t.Name, p.g.Name())
		}
		if !p.g.Arg(candidate).Exists() {
			return nil, errors.Errorf("tensor %s (renamed %s) not found in graph %s", candidate, t.Name, p.g.Name())
		}
		base, _ = p.table.Insert(anchor.Alias(candidate, t.Name))
		renamed = true
	}
	origin := p.g.Arg(base.Origin())
	if !origin.Exists() {
		return nil, errors.Errorf("anchor point %s of tensor %s starts from %s which is not in graph %s", base, t.Name, base.Origin(), p.g.Name())
	}
	if err := p.checkBatch(t, origin); err != nil {
		return nil, err
	}
	point, err := p.correctQDQ(t, base, renamed)
	if err != nil {
		return nil, err
	}
	if t.FixPoint != nil && p.isFloat(point) {
		point = point.With(anchor.Float2Fix(*t.FixPoint), t.Name)
	}
	paddings, err := t.Padding()
	if err != nil {
		return nil, err
	}
	if paddings != nil {
		point = point.With(anchor.Pad(paddings...), t.Name)
	}
	return point.Optimize(), nil
}

// correctQDQ prepends to base the quantization the compiler skipped, if any.
// A low bit graph input read under its own name needs no correction.
func (p *Processor) correctQDQ(t *xir.Tensor, base *anchor.Point, renamed bool) (*anchor.Point, error) {
	if !renamed && anchor.IsLowBitInput(p.g, base.Origin()) {
		return base, nil
	}
	qdq, found, err := anchor.FindQDQ(p.g, base.Origin())
	if err != nil {
		return nil, err
	}
	switch {
	case found:
		return qdq.Append(base)
	case t.FixPoint != nil:
		return base, nil
	}
	return nil, errors.Errorf("tensor %s: cannot find the quantization of %s", t.Name, base.Origin())
}

func (p *Processor) checkBatch(t *xir.Tensor, arg *graph.NodeArg) error {
	shape := arg.Shape()
	if len(shape) == 0 || len(t.Shape) == 0 {
		return nil
	}
	if shape[0] != t.Shape[0] {
		return errors.Errorf("tensor %s: batch size %d does not match batch size %d of %s", t.Name, t.Shape[0], shape[0], arg.Name())
	}
	if p.cfg.StrictBatch && t.Shape[0] != 1 {
		return errors.Errorf("tensor %s: batch size %d is not 1", t.Name, t.Shape[0])
	}
	return nil
}

// isFloat returns true if the data at the end of an anchor point is float data.
func (p *Processor) isFloat(point *anchor.Point) bool {
	float := !p.g.Arg(point.Origin()).DataType().IsLowBit()
	for step := range point.All() {
		switch step.Op.Kind {
		case anchor.DequantizeLinearOp, anchor.Fix2FloatOp:
			float = true
		case anchor.QuantizeLinearOp, anchor.Float2FixOp:
			float = false
		}
	}
	return float
}

// hwShape returns the shape of the memory of a tensor of a compiled subgraph.
func hwShape(t *xir.Tensor) []int64 {
	paddings, err := t.Padding()
	if err != nil || paddings == nil {
		return slices.Clone(t.Shape)
	}
	return anchor.Pad(paddings...).Shape(t.Shape)
}

func lastShape(start []int64, scheds []schedule.MetaSchedule) []int64 {
	if len(scheds) == 0 {
		return start
	}
	return scheds[len(scheds)-1].To.Shape
}

func (p *Processor) schedule(r *Report) error {
	for i := range r.Inputs {
		in := &r.Inputs[i]
		shape := p.g.Arg(in.Point.Origin()).Shape()
		in.Schedules = schedule.Forward(in.Point, shape)
		if len(shape) == 0 {
			continue
		}
		want := hwShape(in.Tensor)
		if got := lastShape(shape, in.Schedules); !slices.Equal(got, want) {
			return errors.Errorf("input %s: schedules produce shape %s but the compiled tensor has shape %s", in.Tensor.Name, stringseq.Ints(got), stringseq.Ints(want))
		}
	}
	for i := range r.Outputs {
		out := &r.Outputs[i]
		hw := hwShape(out.Tensor)
		out.Schedules = schedule.Reverse(out.Point, p.cfg.EnableDepad, hw)
		shape := p.g.Arg(out.Point.Origin()).Shape()
		if len(shape) == 0 || !p.cfg.EnableDepad {
			continue
		}
		if got := lastShape(hw, out.Schedules); !slices.Equal(got, shape) {
			return errors.Errorf("output %s: schedules produce shape %s but %s has shape %s", out.Tensor.Name, stringseq.Ints(got), out.Point.Origin(), stringseq.Ints(shape))
		}
	}
	return nil
}
