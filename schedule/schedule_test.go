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

package schedule_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/zmaychek84/vaip-sub004/anchor"
	"github.com/zmaychek84/vaip-sub004/schedule"
)

func TestForward(t *testing.T) {
	p := anchor.NewPoint("x").
		With(anchor.Identity(), "x_alias").
		With(anchor.Transpose(0, 2, 3, 1), "x_t").
		With(anchor.Float2Fix(2), "x_fix")
	got := schedule.Forward(p, []int64{1, 3, 4, 5})
	want := []schedule.MetaSchedule{
		{
			From: schedule.TBParam{TensorName: "x", Location: schedule.ONNX, Shape: []int64{1, 3, 4, 5}},
			To:   schedule.TBParam{TensorName: "x_t", Location: schedule.Scratch, Shape: []int64{1, 4, 5, 3}},
			Op:   anchor.Transpose(0, 2, 3, 1),
		},
		{
			From: schedule.TBParam{TensorName: "x_t", Location: schedule.Scratch, Shape: []int64{1, 4, 5, 3}},
			To:   schedule.TBParam{TensorName: "x_fix", Location: schedule.XIR, Shape: []int64{1, 4, 5, 3}},
			Op:   anchor.Float2Fix(2),
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected schedules:\n%s", diff)
	}
	if got := schedule.Forward(anchor.Alias("x", "y"), []int64{1}); len(got) != 0 {
		t.Errorf("alias generates schedules: %v", got)
	}
}

func TestReverse(t *testing.T) {
	p := anchor.NewPoint("y").
		With(anchor.DequantizeLinear(0.5, 1), "y_f").
		With(anchor.Float2Fix(3), "y_fix")
	got := schedule.Reverse(p, false, []int64{2, 2})
	want := []schedule.MetaSchedule{
		{
			From: schedule.TBParam{TensorName: "y_fix", Location: schedule.XIR, Shape: []int64{2, 2}},
			To:   schedule.TBParam{TensorName: "y_f", Location: schedule.Scratch, Shape: []int64{2, 2}},
			Op:   anchor.Fix2Float(3),
		},
		{
			From: schedule.TBParam{TensorName: "y_f", Location: schedule.Scratch, Shape: []int64{2, 2}},
			To:   schedule.TBParam{TensorName: "y", Location: schedule.ONNX, Shape: []int64{2, 2}},
			Op:   anchor.QuantizeLinear(0.5, 1),
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected schedules:\n%s", diff)
	}
}

func values(n int, f func(int) float32) []float32 {
	vals := make([]float32, n)
	for i := range vals {
		vals[i] = f(i)
	}
	return vals
}

func run(t *testing.T, scheds []schedule.MetaSchedule, buf schedule.Buffer) schedule.Buffer {
	t.Helper()
	out, err := schedule.Execute(buf, scheds)
	require.NoError(t, err)
	return out
}

func TestAppendReplaysLikeSeparateChains(t *testing.T) {
	a := anchor.NewPoint("x").With(anchor.Transpose(0, 2, 3, 1), "y")
	b := anchor.NewPoint("y").
		With(anchor.Float2Fix(2), "z").
		With(anchor.Pad(0, 0, 0, 0, 0, 0, 0, 2), "w")
	ab, err := a.Append(b)
	require.NoError(t, err)

	shape := []int64{1, 2, 3, 2}
	x, err := schedule.NewBuffer(shape, values(12, func(i int) float32 { return float32(i)/4 - 1 }))
	require.NoError(t, err)

	whole := run(t, schedule.Forward(ab, shape), x)
	y := run(t, schedule.Forward(a, shape), x)
	separate := run(t, schedule.Forward(b, y.Shape), y)
	if diff := cmp.Diff(separate, whole); diff != "" {
		t.Errorf("appended chain differs from separate chains:\n%s", diff)
	}
	require.Equal(t, []int64{1, 3, 2, 4}, whole.Shape)
}

func TestReverseInvertsForward(t *testing.T) {
	p := anchor.NewPoint("x").
		With(anchor.DequantizeLinear(0.5, 3), "x_f").
		With(anchor.Transpose(0, 2, 3, 1), "x_t").
		With(anchor.Float2Fix(2), "x_fix").
		With(anchor.Pad(0, 0, 0, 0, 0, 0, 0, 1), "x_pad")
	shape := []int64{1, 2, 3, 2}
	x, err := schedule.NewBuffer(shape, values(12, func(i int) float32 { return float32(i % 11) }))
	require.NoError(t, err)

	forward := schedule.Forward(p, shape)
	hw := run(t, forward, x)
	require.Equal(t, []int64{1, 3, 2, 3}, hw.Shape)

	back := run(t, schedule.Reverse(p, true, hw.Shape), hw)
	if diff := cmp.Diff(x, back); diff != "" {
		t.Errorf("reverse schedules do not invert forward schedules:\n%s", diff)
	}

	// Without depad, the padding is kept: pads are not inverted.
	padded := run(t, schedule.Reverse(p, false, hw.Shape), hw)
	require.Equal(t, []int64{1, 3, 3, 2}, padded.Shape)
}

func TestExecuteErrors(t *testing.T) {
	buf, err := schedule.NewBuffer([]int64{2, 2}, []float32{1, 2, 3, 4})
	require.NoError(t, err)
	scheds := schedule.Forward(anchor.NewPoint("x").With(anchor.Transpose(1, 0), "y"), []int64{4})
	_, err = schedule.Execute(buf, scheds)
	require.ErrorContains(t, err, "buffer has shape [2,2]")

	_, err = schedule.Apply(anchor.Pad(0, -3, 0, 0), buf)
	require.ErrorContains(t, err, "crop more than shape")

	_, err = schedule.NewBuffer([]int64{2, 3}, []float32{1})
	require.ErrorContains(t, err, "has 6 elements but got 1 values")
}

func TestFloat2FixSaturates(t *testing.T) {
	buf, err := schedule.NewBuffer([]int64{4}, []float32{100, -100, 0.3, -0.375})
	require.NoError(t, err)
	got, err := schedule.Apply(anchor.Float2Fix(3), buf)
	require.NoError(t, err)
	require.Equal(t, []float32{127, -128, 2, -3}, got.Data)
}

func TestProtoRoundTrip(t *testing.T) {
	p := anchor.NewPoint("x").
		With(anchor.QuantizeLinear(0.25, -2), "a").
		With(anchor.Transpose(0, 2, 3, 1), "b").
		With(anchor.Pad(0, 0, 0, 0, 0, 0, 0, 1), "c").
		With(anchor.Float2Fix(2), "d").
		With(anchor.Fix2Float(2), "e").
		With(anchor.DequantizeLinear(0.25, -2), "f")
	for _, ms := range schedule.Forward(p, []int64{1, 2, 3, 4}) {
		got, err := schedule.FromProto(ms.ToProto())
		require.NoError(t, err)
		if diff := cmp.Diff(ms, got); diff != "" {
			t.Errorf("%s: decoded schedule differs:\n%s", ms, diff)
		}
	}
	m := schedule.ListToProto("x", p, schedule.Forward(p, []int64{1, 2, 3, 4}))
	require.Len(t, m.Messages("schedules"), 6)
	ap, ok := m.GetMessage("anchor_point")
	require.True(t, ok)
	decoded, err := anchor.FromProto(ap)
	require.NoError(t, err)
	require.Equal(t, p.String(), decoded.String())
}
