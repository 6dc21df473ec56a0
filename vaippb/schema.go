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

// Package vaippb defines the protobuf messages exchanged by vaip:
// serialized patterns, anchor points and meta schedules.
//
// The schema is declared as a file descriptor and messages are dynamic messages.
// The wire format is identical to the one of messages generated by protoc
// from the equivalent .proto file.
package vaippb

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/zmaychek84/vaip-sub004/base/fmterr"
)

const pkg = "vaip"

type fieldType = descriptorpb.FieldDescriptorProto_Type

const (
	tBool    = descriptorpb.FieldDescriptorProto_TYPE_BOOL
	tInt32   = descriptorpb.FieldDescriptorProto_TYPE_INT32
	tInt64   = descriptorpb.FieldDescriptorProto_TYPE_INT64
	tFloat   = descriptorpb.FieldDescriptorProto_TYPE_FLOAT
	tString  = descriptorpb.FieldDescriptorProto_TYPE_STRING
	tMessage = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE
)

func field(name string, num int32, typ fieldType, label descriptorpb.FieldDescriptorProto_Label) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(num),
		Label:  label.Enum(),
		Type:   typ.Enum(),
	}
}

func scalar(name string, num int32, typ fieldType) *descriptorpb.FieldDescriptorProto {
	return field(name, num, typ, descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL)
}

func list(name string, num int32, typ fieldType) *descriptorpb.FieldDescriptorProto {
	return field(name, num, typ, descriptorpb.FieldDescriptorProto_LABEL_REPEATED)
}

func typeName(msg string) *string {
	return proto.String("." + pkg + "." + msg)
}

func message(name string, num int32, msg string) *descriptorpb.FieldDescriptorProto {
	f := scalar(name, num, tMessage)
	f.TypeName = typeName(msg)
	return f
}

func messages(name string, num int32, msg string) *descriptorpb.FieldDescriptorProto {
	f := list(name, num, tMessage)
	f.TypeName = typeName(msg)
	return f
}

func oneof(f *descriptorpb.FieldDescriptorProto) *descriptorpb.FieldDescriptorProto {
	f.OneofIndex = proto.Int32(0)
	return f
}

func empty(name string) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{Name: proto.String(name)}
}

func msg(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{Name: proto.String(name), Field: fields}
}

func withOneof(d *descriptorpb.DescriptorProto, name string) *descriptorpb.DescriptorProto {
	d.OneofDecl = []*descriptorpb.OneofDescriptorProto{{Name: proto.String(name)}}
	return d
}

func patternProto() *descriptorpb.DescriptorProto {
	nameToID := list("name_to_id", 10, tMessage)
	nameToID.TypeName = typeName("PatternProto.NameToIdEntry")
	d := withOneof(msg("PatternProto",
		scalar("id", 1, tInt64),
		scalar("is_root", 2, tBool),
		oneof(message("wildcard", 3, "WildcardProto")),
		oneof(message("constant", 4, "ConstantProto")),
		oneof(message("graph_input", 5, "GraphInputProto")),
		oneof(message("call_node", 6, "CallNodeProto")),
		oneof(message("commutable_node", 7, "CommutableNodeProto")),
		oneof(message("sequence", 8, "SequenceProto")),
		oneof(message("or", 9, "OrProto")),
		nameToID,
	), "kind")
	entry := msg("NameToIdEntry",
		scalar("key", 1, tString),
		scalar("value", 2, tInt64),
	)
	entry.Options = &descriptorpb.MessageOptions{MapEntry: proto.Bool(true)}
	d.NestedType = []*descriptorpb.DescriptorProto{entry}
	return d
}

func fileDescriptorProto() *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("vaip/vaip.proto"),
		Package: proto.String(pkg),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			// Patterns.
			empty("WildcardProto"),
			empty("ConstantProto"),
			empty("GraphInputProto"),
			msg("CallNodeProto",
				scalar("op_type", 1, tString),
				list("args", 2, tInt64),
				list("optional_args", 3, tBool),
			),
			msg("CommutableNodeProto",
				scalar("op_type", 1, tString),
				scalar("arg1", 2, tInt64),
				scalar("arg2", 3, tInt64),
			),
			msg("SequenceProto", list("patterns", 1, tInt64)),
			msg("OrProto", list("patterns", 1, tInt64)),
			patternProto(),
			msg("RootPatternProto", messages("patterns", 1, "PatternProto")),

			// Anchor points.
			empty("IdentityProto"),
			empty("TransposeImmuneProto"),
			msg("TransposeProto", list("order", 1, tInt64)),
			msg("PadProto", list("paddings", 1, tInt64)),
			msg("FixProto", scalar("fix_point", 1, tInt32)),
			msg("QdqProto",
				scalar("scale", 1, tFloat),
				scalar("zero_point", 2, tInt32),
			),
			withOneof(msg("AnchorStepProto",
				scalar("name", 1, tString),
				oneof(message("identity", 2, "IdentityProto")),
				oneof(message("transpose", 3, "TransposeProto")),
				oneof(message("pad", 4, "PadProto")),
				oneof(message("float2fix", 5, "FixProto")),
				oneof(message("fix2float", 6, "FixProto")),
				oneof(message("quantize_linear", 7, "QdqProto")),
				oneof(message("dequantize_linear", 8, "QdqProto")),
				oneof(message("transpose_immune", 9, "TransposeImmuneProto")),
			), "op"),
			msg("AnchorPointProto",
				scalar("origin_node_arg_name", 1, tString),
				scalar("name", 2, tString),
				messages("steps", 3, "AnchorStepProto"),
			),

			// Meta schedules.
			msg("TensorBufferParamProto",
				scalar("tensor_name", 1, tString),
				scalar("location", 2, tInt32),
				list("shape", 3, tInt64),
			),
			msg("MetaScheduleOpProto",
				scalar("is_layout_transform", 1, tBool),
				list("order", 2, tInt64),
				scalar("is_pad", 3, tBool),
				list("padding", 4, tInt64),
				scalar("float2fix", 5, tBool),
				scalar("fix2float", 6, tBool),
				scalar("fix_point", 7, tInt32),
				scalar("quantize_linear", 8, tBool),
				scalar("dequantize_linear", 9, tBool),
				scalar("scale", 10, tFloat),
				scalar("zero_point", 11, tInt32),
			),
			msg("MetaScheduleProto",
				message("from_tb_param", 1, "TensorBufferParamProto"),
				message("to_tb_param", 2, "TensorBufferParamProto"),
				message("op", 3, "MetaScheduleOpProto"),
			),
			msg("TensorScheduleProto",
				scalar("tensor_name", 1, tString),
				message("anchor_point", 2, "AnchorPointProto"),
				messages("schedules", 3, "MetaScheduleProto"),
			),
			msg("SubgraphScheduleProto",
				scalar("subgraph", 1, tString),
				scalar("status", 2, tString),
				scalar("comment", 3, tString),
				messages("inputs", 4, "TensorScheduleProto"),
				messages("outputs", 5, "TensorScheduleProto"),
			),
		},
	}
}

func mustNewFile() protoreflect.FileDescriptor {
	fd, err := protodesc.NewFile(fileDescriptorProto(), nil)
	if err != nil {
		panic(fmterr.Internal(err))
	}
	return fd
}

var file = mustNewFile()

func byName(name string) protoreflect.MessageDescriptor {
	return file.Messages().ByName(protoreflect.Name(name))
}

// Message descriptors of the schema.
var (
	RootPattern      = byName("RootPatternProto")
	Pattern          = byName("PatternProto")
	AnchorPoint      = byName("AnchorPointProto")
	AnchorStep       = byName("AnchorStepProto")
	TensorBuffer     = byName("TensorBufferParamProto")
	MetaSchedule     = byName("MetaScheduleProto")
	MetaScheduleOp   = byName("MetaScheduleOpProto")
	TensorSchedule   = byName("TensorScheduleProto")
	SubgraphSchedule = byName("SubgraphScheduleProto")
)

// File returns the descriptor of the vaip schema.
func File() protoreflect.FileDescriptor {
	return file
}
