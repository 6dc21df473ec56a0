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

package processor

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/zmaychek84/vaip-sub004/anchor"
	"github.com/zmaychek84/vaip-sub004/graph"
	"github.com/zmaychek84/vaip-sub004/schedule"
	"github.com/zmaychek84/vaip-sub004/vaippb"
	"github.com/zmaychek84/vaip-sub004/xir"
)

type (
	// Status of the processing of a subgraph.
	Status int

	// TensorReport relates a boundary tensor of a subgraph to the original graph.
	TensorReport struct {
		Tensor    *xir.Tensor
		Point     *anchor.Point
		Schedules []schedule.MetaSchedule
	}

	// Report is the result of the processing of a subgraph.
	// A subgraph is offloaded to the hardware only if its status is OK.
	Report struct {
		Subgraph string
		Status   Status
		Comment  string
		Inputs   []TensorReport
		Outputs  []TensorReport
		// Fused is the node that replaced the subgraph in the original graph.
		Fused *graph.Node
	}
)

const (
	// OK means the subgraph has been fused and scheduled.
	OK Status = iota
	// NoUploadOps means the subgraph does not run on the hardware.
	NoUploadOps
	// NotShape4D means a boundary tensor is not 4D.
	NotShape4D
	// InputAnchorFailed means an input tensor could not be anchored.
	InputAnchorFailed
	// OutputAnchorFailed means an output tensor could not be anchored.
	OutputAnchorFailed
	// TryFuseFailed means the anchored tensors do not delimit a subgraph of the original graph.
	TryFuseFailed
	// NestedFusion means the subgraph would absorb a node fused previously.
	NestedFusion
	// ScheduleFailed means the schedules of a tensor could not be built.
	ScheduleFailed
	// Exception means the processing panicked.
	Exception
)

var statusNames = map[Status]string{
	OK:                 "OK",
	NoUploadOps:        "NO_UPLOAD_OPS",
	NotShape4D:         "NOT_SHAPE_4D",
	InputAnchorFailed:  "INPUT_ANCHOR_FAILED",
	OutputAnchorFailed: "OUTPUT_ANCHOR_FAILED",
	TryFuseFailed:      "TRY_FUSE_FAILED",
	NestedFusion:       "NESTED_FUSION",
	ScheduleFailed:     "SCHEDULE_FAILED",
	Exception:          "EXCEPTION",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

func (r *Report) reject(status Status, format string, a ...any) *Report {
	r.Status = status
	r.Comment = fmt.Sprintf(format, a...)
	return r
}

// OK returns true if the subgraph has been processed successfully.
func (r *Report) OK() bool {
	return r.Status == OK
}

// Err returns an error describing why the subgraph has been rejected, or nil.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	return errors.Errorf("subgraph %s: %s: %s", r.Subgraph, r.Status, r.Comment)
}

// ToProto returns the report as a SubgraphScheduleProto message.
func (r *Report) ToProto() vaippb.Msg {
	m := vaippb.New(vaippb.SubgraphSchedule).
		SetString("subgraph", r.Subgraph).
		SetString("status", r.Status.String()).
		SetString("comment", r.Comment)
	for _, in := range r.Inputs {
		m.AppendMessage("inputs", schedule.ListToProto(in.Tensor.Name, in.Point, in.Schedules))
	}
	for _, out := range r.Outputs {
		m.AppendMessage("outputs", schedule.ListToProto(out.Tensor.Name, out.Point, out.Schedules))
	}
	return m
}
