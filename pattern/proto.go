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

package pattern

import (
	"slices"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"

	"github.com/zmaychek84/vaip-sub004/base/fmterr"
	"github.com/zmaychek84/vaip-sub004/base/ordered"
	"github.com/zmaychek84/vaip-sub004/vaippb"
)

// reachable returns the patterns reachable from p, sorted by slot.
// Sub-patterns are always created before the patterns referring to them:
// the result lists children before parents.
func (p *Pattern) reachable() []*Pattern {
	seen := make(map[int]bool)
	var visit func(*Pattern)
	visit = func(q *Pattern) {
		if seen[q.slot] {
			return
		}
		seen[q.slot] = true
		for i := range q.args {
			visit(q.arg(i))
		}
	}
	visit(p)
	var all []*Pattern
	for _, q := range p.bld.arena {
		if seen[q.slot] {
			all = append(all, q)
		}
	}
	return all
}

func (p *Pattern) argIDs() []int64 {
	ids := make([]int64, len(p.args))
	for i := range p.args {
		ids[i] = int64(p.arg(i).id)
	}
	return ids
}

// ToProto returns the pattern DAG as a RootPatternProto message.
// Every reachable pattern appears once, after the patterns it refers to.
func (p *Pattern) ToProto() (vaippb.Msg, error) {
	root := vaippb.New(vaippb.RootPattern)
	for _, q := range p.reachable() {
		pm := root.AddMessage("patterns").SetInt64("id", int64(q.id))
		if q == p {
			pm.SetBool("is_root", true)
		}
		switch q.kind {
		case WildcardKind:
			pm.Message("wildcard")
		case ConstantKind:
			pm.Message("constant")
		case GraphInputKind:
			pm.Message("graph_input")
		case NodeKind:
			pm.Message("call_node").
				SetString("op_type", q.opType).
				SetInt64s("args", q.argIDs()).
				SetBools("optional_args", q.optional)
		case CommutableNodeKind:
			ids := q.argIDs()
			pm.Message("commutable_node").
				SetString("op_type", q.opType).
				SetInt64("arg1", ids[0]).
				SetInt64("arg2", ids[1])
		case SequenceKind:
			pm.Message("sequence").SetInt64s("patterns", q.argIDs())
		case OrKind:
			pm.Message("or").SetInt64s("patterns", q.argIDs())
		case WhereKind:
			return vaippb.Msg{}, errors.Errorf("pattern %d: where patterns cannot be serialized", q.id)
		default:
			return vaippb.Msg{}, fmterr.Internalf("pattern %d: cannot serialize kind %s", q.id, q.kind)
		}
		for _, name := range ordered.KeysOf(q.bld.names, q.id) {
			pm.SetMapInt64("name_to_id", name, int64(q.id))
		}
	}
	return root, nil
}

// ToBinary encodes the pattern DAG in the protobuf binary format.
func (p *Pattern) ToBinary() ([]byte, error) {
	root, err := p.ToProto()
	if err != nil {
		return nil, err
	}
	return vaippb.Marshal(root)
}

// ToJSON encodes the pattern DAG in the protobuf JSON format.
func (p *Pattern) ToJSON() ([]byte, error) {
	root, err := p.ToProto()
	if err != nil {
		return nil, err
	}
	return vaippb.MarshalJSON(root)
}

// CreateFromBinary decodes a pattern DAG encoded by ToBinary and
// recreates it in the builder.
func (b *Builder) CreateFromBinary(data []byte) (*Pattern, error) {
	root, err := vaippb.Unmarshal(vaippb.RootPattern, data)
	if err != nil {
		return nil, err
	}
	return b.CreateFromProto(root)
}

// CreateByJSON decodes a pattern DAG encoded by ToJSON and
// recreates it in the builder.
func (b *Builder) CreateByJSON(data []byte) (*Pattern, error) {
	root, err := vaippb.UnmarshalJSON(vaippb.RootPattern, data)
	if err != nil {
		return nil, err
	}
	return b.CreateFromProto(root)
}

type decoder struct {
	b       *Builder
	offset  ID
	created map[int64]*Pattern
	errs    fmterr.Errors
}

func (d *decoder) ref(id int64) *Pattern {
	p := d.created[id]
	if p == nil {
		d.errs.Appendf("undefined pattern %d", id)
	}
	return p
}

func (d *decoder) refs(ids []int64) ([]*Pattern, bool) {
	ps := make([]*Pattern, len(ids))
	ok := true
	for i, id := range ids {
		if ps[i] = d.ref(id); ps[i] == nil {
			ok = false
		}
	}
	return ps, ok
}

func (d *decoder) decode(pm vaippb.Msg) *Pattern {
	id := pm.GetInt64("id")
	if _, dup := d.created[id]; dup {
		d.errs.Appendf("duplicated pattern")
		return nil
	}
	// Replay through the builder at the identifier of the message,
	// shifted if the builder already allocated it.
	if want := ID(id) + d.offset; want > d.b.nextID {
		d.b.nextID = want
	}
	kind := pm.Which("kind")
	if kind == "" {
		d.errs.Appendf("pattern kind not set")
		return nil
	}
	sub, _ := pm.GetMessage(kind)
	switch kind {
	case "wildcard":
		return d.b.Wildcard()
	case "constant":
		return d.b.Constant()
	case "graph_input":
		return d.b.GraphInput()
	case "call_node":
		args, ok := d.refs(sub.GetInt64s("args"))
		optional := sub.GetBools("optional_args")
		if len(optional) != len(args) {
			d.errs.Appendf("got %d arguments but %d optional flags", len(args), len(optional))
			return nil
		}
		if !ok {
			return nil
		}
		return d.b.NodeWithOptional(sub.GetString("op_type"), args, optional)
	case "commutable_node":
		args, ok := d.refs([]int64{sub.GetInt64("arg1"), sub.GetInt64("arg2")})
		if !ok {
			return nil
		}
		return d.b.CommutableNode(sub.GetString("op_type"), args[0], args[1])
	case "sequence":
		args, ok := d.refs(sub.GetInt64s("patterns"))
		if !ok {
			return nil
		}
		if len(args) == 0 {
			d.errs.Appendf("empty sequence")
			return nil
		}
		return d.b.Sequence(args...)
	case "or":
		args, ok := d.refs(sub.GetInt64s("patterns"))
		if !ok {
			return nil
		}
		return d.b.Or(args...)
	}
	d.errs.Appendf("unknown pattern kind %q", kind)
	return nil
}

// CreateFromProto recreates a pattern DAG from a RootPatternProto message.
// Identifiers of the message are preserved when the builder has not allocated them yet.
// Otherwise, they are shifted by a constant offset.
// Names bound in the message are bound in the builder.
func (b *Builder) CreateFromProto(root vaippb.Msg) (*Pattern, error) {
	pms := root.Messages("patterns")
	if len(pms) == 0 {
		return nil, errors.Errorf("no pattern to decode")
	}
	sort.SliceStable(pms, func(i, j int) bool {
		return pms[i].GetInt64("id") < pms[j].GetInt64("id")
	})
	d := &decoder{b: b, created: make(map[int64]*Pattern)}
	if minID := ID(pms[0].GetInt64("id")); minID < 0 {
		return nil, errors.Errorf("invalid pattern identifier %d", minID)
	} else if b.nextID > minID {
		d.offset = b.nextID - minID
	}
	var roots []*Pattern
	for _, pm := range pms {
		id := pm.GetInt64("id")
		d.errs.Push(fmterr.PrefixWith("pattern %d: ", id))
		p := d.decode(pm)
		d.errs.Pop()
		if p == nil {
			continue
		}
		d.created[id] = p
		if pm.GetBool("is_root") {
			roots = append(roots, p)
		}
	}
	if !d.errs.Empty() {
		return nil, d.errs.ToError()
	}
	if len(roots) != 1 {
		return nil, errors.Errorf("got %d root patterns, want 1", len(roots))
	}
	for _, pm := range pms {
		names := pm.GetMapInt64("name_to_id")
		keys := maps.Keys(names)
		slices.Sort(keys)
		for _, name := range keys {
			p := d.created[names[name]]
			if p == nil {
				return nil, errors.Errorf("name %q bound to undefined pattern %d", name, names[name])
			}
			b.Bind(name, p)
		}
	}
	return roots[0], nil
}
