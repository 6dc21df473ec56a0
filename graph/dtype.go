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

package graph

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DataType is the element type of a tensor.
// Values follow the numbering of ONNX TensorProto.DataType.
type DataType int32

// Element types.
const (
	Undefined DataType = 0
	Float     DataType = 1
	Uint8     DataType = 2
	Int8      DataType = 3
	Uint16    DataType = 4
	Int16     DataType = 5
	Int32     DataType = 6
	Int64     DataType = 7
	String    DataType = 8
	Bool      DataType = 9
	Float16   DataType = 10
	Double    DataType = 11
	Uint32    DataType = 12
	Uint64    DataType = 13
	Bfloat16  DataType = 16
)

var dtypeNames = map[DataType]string{
	Undefined: "undefined",
	Float:     "float",
	Uint8:     "uint8",
	Int8:      "int8",
	Uint16:    "uint16",
	Int16:     "int16",
	Int32:     "int32",
	Int64:     "int64",
	String:    "string",
	Bool:      "bool",
	Float16:   "float16",
	Double:    "double",
	Uint32:    "uint32",
	Uint64:    "uint64",
	Bfloat16:  "bfloat16",
}

// ParseDataType returns the data type given its name.
func ParseDataType(s string) (DataType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "float32" {
		return Float, nil
	}
	for dt, name := range dtypeNames {
		if name == s {
			return dt, nil
		}
	}
	return Undefined, errors.Errorf("unknown data type %q", s)
}

// IsLowBit returns true if values of this type are quantized values
// the hardware consumes without a float conversion.
func (dt DataType) IsLowBit() bool {
	switch dt {
	case Uint8, Int8, Int16, Uint16, Bfloat16:
		return true
	}
	return false
}

func (dt DataType) String() string {
	if s, ok := dtypeNames[dt]; ok {
		return s
	}
	return "DataType(" + strconv.Itoa(int(dt)) + ")"
}

// UnmarshalYAML reads a data type from its name.
func (dt *DataType) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseDataType(s)
	if err != nil {
		return errors.Wrapf(err, "line %d", node.Line)
	}
	*dt = parsed
	return nil
}

// MarshalYAML writes the name of a data type.
func (dt DataType) MarshalYAML() (any, error) {
	return dt.String(), nil
}
