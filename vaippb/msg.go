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

package vaippb

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/zmaychek84/vaip-sub004/base/fmterr"
)

// Msg is a message of the vaip schema.
// Accessors refer to fields by their proto name and panic if the field does not exist.
type Msg struct {
	m *dynamicpb.Message
}

// New returns a new empty message.
func New(d protoreflect.MessageDescriptor) Msg {
	return Msg{m: dynamicpb.NewMessage(d)}
}

func wrap(m protoreflect.Message) Msg {
	return Msg{m: m.Interface().(*dynamicpb.Message)}
}

// Proto returns the underlying protobuf message.
func (m Msg) Proto() proto.Message {
	return m.m
}

// Descriptor of the message.
func (m Msg) Descriptor() protoreflect.MessageDescriptor {
	return m.m.Descriptor()
}

func (m Msg) field(name string) protoreflect.FieldDescriptor {
	fd := m.m.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		panic(fmterr.Internalf("message %s has no field %q", m.m.Descriptor().FullName(), name))
	}
	return fd
}

// SetString sets a string field.
func (m Msg) SetString(name, v string) Msg {
	m.m.Set(m.field(name), protoreflect.ValueOfString(v))
	return m
}

// SetBool sets a bool field.
func (m Msg) SetBool(name string, v bool) Msg {
	m.m.Set(m.field(name), protoreflect.ValueOfBool(v))
	return m
}

// SetInt32 sets an int32 field.
func (m Msg) SetInt32(name string, v int32) Msg {
	m.m.Set(m.field(name), protoreflect.ValueOfInt32(v))
	return m
}

// SetInt64 sets an int64 field.
func (m Msg) SetInt64(name string, v int64) Msg {
	m.m.Set(m.field(name), protoreflect.ValueOfInt64(v))
	return m
}

// SetFloat sets a float field.
func (m Msg) SetFloat(name string, v float32) Msg {
	m.m.Set(m.field(name), protoreflect.ValueOfFloat32(v))
	return m
}

// SetInt64s appends values to a repeated int64 field.
func (m Msg) SetInt64s(name string, vs []int64) Msg {
	l := m.m.Mutable(m.field(name)).List()
	for _, v := range vs {
		l.Append(protoreflect.ValueOfInt64(v))
	}
	return m
}

// SetBools appends values to a repeated bool field.
func (m Msg) SetBools(name string, vs []bool) Msg {
	l := m.m.Mutable(m.field(name)).List()
	for _, v := range vs {
		l.Append(protoreflect.ValueOfBool(v))
	}
	return m
}

// SetMapInt64 sets an entry of a map<string,int64> field.
func (m Msg) SetMapInt64(name, key string, v int64) Msg {
	mp := m.m.Mutable(m.field(name)).Map()
	mp.Set(protoreflect.ValueOfString(key).MapKey(), protoreflect.ValueOfInt64(v))
	return m
}

// Message returns a message field, setting it if absent.
// Setting an empty message is how a oneof case without a payload is selected.
func (m Msg) Message(name string) Msg {
	return wrap(m.m.Mutable(m.field(name)).Message())
}

// AddMessage appends a new message to a repeated message field.
func (m Msg) AddMessage(name string) Msg {
	return wrap(m.m.Mutable(m.field(name)).List().AppendMutable().Message())
}

// SetMessage sets a message field to v. The message is not copied.
func (m Msg) SetMessage(name string, v Msg) Msg {
	m.m.Set(m.field(name), protoreflect.ValueOfMessage(v.m))
	return m
}

// AppendMessage appends v to a repeated message field.
func (m Msg) AppendMessage(name string, v Msg) Msg {
	m.m.Mutable(m.field(name)).List().Append(protoreflect.ValueOfMessage(v.m))
	return m
}

// Has returns true if a field is populated.
func (m Msg) Has(name string) bool {
	return m.m.Has(m.field(name))
}

// GetString returns the value of a string field.
func (m Msg) GetString(name string) string {
	return m.m.Get(m.field(name)).String()
}

// GetBool returns the value of a bool field.
func (m Msg) GetBool(name string) bool {
	return m.m.Get(m.field(name)).Bool()
}

// GetInt32 returns the value of an int32 field.
func (m Msg) GetInt32(name string) int32 {
	return int32(m.m.Get(m.field(name)).Int())
}

// GetInt64 returns the value of an int64 field.
func (m Msg) GetInt64(name string) int64 {
	return m.m.Get(m.field(name)).Int()
}

// GetFloat returns the value of a float field.
func (m Msg) GetFloat(name string) float32 {
	return float32(m.m.Get(m.field(name)).Float())
}

// GetInt64s returns the values of a repeated int64 field.
func (m Msg) GetInt64s(name string) []int64 {
	l := m.m.Get(m.field(name)).List()
	vs := make([]int64, l.Len())
	for i := range vs {
		vs[i] = l.Get(i).Int()
	}
	return vs
}

// GetBools returns the values of a repeated bool field.
func (m Msg) GetBools(name string) []bool {
	l := m.m.Get(m.field(name)).List()
	vs := make([]bool, l.Len())
	for i := range vs {
		vs[i] = l.Get(i).Bool()
	}
	return vs
}

// GetMapInt64 returns the entries of a map<string,int64> field.
func (m Msg) GetMapInt64(name string) map[string]int64 {
	mp := m.m.Get(m.field(name)).Map()
	out := make(map[string]int64, mp.Len())
	mp.Range(func(k protoreflect.MapKey, v protoreflect.Value) bool {
		out[k.String()] = v.Int()
		return true
	})
	return out
}

// GetMessage returns a message field if it is set.
func (m Msg) GetMessage(name string) (Msg, bool) {
	fd := m.field(name)
	if !m.m.Has(fd) {
		return Msg{}, false
	}
	return wrap(m.m.Get(fd).Message()), true
}

// Messages returns the elements of a repeated message field.
func (m Msg) Messages(name string) []Msg {
	l := m.m.Get(m.field(name)).List()
	msgs := make([]Msg, l.Len())
	for i := range msgs {
		msgs[i] = wrap(l.Get(i).Message())
	}
	return msgs
}

// Which returns the name of the field set in a oneof or an empty string if no field is set.
func (m Msg) Which(oneof string) string {
	od := m.m.Descriptor().Oneofs().ByName(protoreflect.Name(oneof))
	if od == nil {
		panic(fmterr.Internalf("message %s has no oneof %q", m.m.Descriptor().FullName(), oneof))
	}
	fd := m.m.WhichOneof(od)
	if fd == nil {
		return ""
	}
	return string(fd.Name())
}

// Marshal encodes a message in the protobuf binary format.
// The encoding is deterministic.
func Marshal(m Msg) ([]byte, error) {
	b, err := proto.MarshalOptions{Deterministic: true}.Marshal(m.m)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot marshal %s", m.m.Descriptor().FullName())
	}
	return b, nil
}

// Unmarshal decodes a message from the protobuf binary format.
func Unmarshal(d protoreflect.MessageDescriptor, b []byte) (Msg, error) {
	m := New(d)
	if err := proto.Unmarshal(b, m.m); err != nil {
		return Msg{}, errors.Wrapf(err, "cannot unmarshal %s", d.FullName())
	}
	return m, nil
}

// MarshalJSON encodes a message in the protobuf JSON format.
func MarshalJSON(m Msg) ([]byte, error) {
	b, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(m.m)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot marshal %s to JSON", m.m.Descriptor().FullName())
	}
	return b, nil
}

// UnmarshalJSON decodes a message from the protobuf JSON format.
func UnmarshalJSON(d protoreflect.MessageDescriptor, b []byte) (Msg, error) {
	m := New(d)
	if err := protojson.Unmarshal(b, m.m); err != nil {
		return Msg{}, errors.Wrapf(err, "cannot unmarshal %s from JSON", d.FullName())
	}
	return m, nil
}

// Equal returns true if two messages are equal.
func Equal(a, b Msg) bool {
	return proto.Equal(a.m, b.m)
}
