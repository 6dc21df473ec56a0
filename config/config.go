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

// Package config holds the options of the subgraph processor.
package config

import (
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/zmaychek84/vaip-sub004/anchor/names"
)

// Config of the processor.
type Config struct {
	// TraceLevel is the verbosity of the pattern matcher traces.
	TraceLevel int `yaml:"trace_level"`
	// StrictBatch requires the batch dimension of boundary tensors to be 1.
	StrictBatch bool `yaml:"strict_batch"`
	// CheckShape4D rejects subgraphs with boundary tensors that are not 4D.
	CheckShape4D bool `yaml:"check_shape_4d"`
	// EnableDepad crops the padding of output tensors.
	EnableDepad bool `yaml:"enable_depad"`
	// CompilerVersion selects the tensor name suffixes to strip.
	CompilerVersion string `yaml:"compiler_version"`
	// FusedOpType and FusedOpDomain of the node replacing a processed subgraph.
	FusedOpType   string `yaml:"fused_op_type"`
	FusedOpDomain string `yaml:"fused_op_domain"`
}

// Environment variables overriding the configuration.
const (
	EnvTraceLevel      = "VAIP_TRACE_LEVEL"
	EnvStrictBatch     = "XLNX_STRICT_BATCH"
	EnvCheckShape4D    = "XLNX_CHECK_SHAPE_4D"
	EnvEnableDepad     = "XLNX_ENABLE_DEPAD"
	EnvCompilerVersion = "XLNX_COMPILER_VERSION"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		CompilerVersion: names.Latest,
		FusedOpType:     "super_layer",
		FusedOpDomain:   "com.xilinx",
	}
}

// Load reads a configuration. Missing fields keep their default value.
func Load(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "cannot decode configuration")
	}
	return cfg, nil
}

// LoadFile reads a configuration file.
// An empty path returns the default configuration.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open configuration")
	}
	defer f.Close()
	cfg, err := Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return cfg, nil
}

// ApplyEnv overrides the configuration with the environment.
// lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var err error
	parseBool := func(key string, dst *bool) {
		s, ok := lookup(key)
		if !ok || s == "" {
			return
		}
		v, perr := strconv.ParseBool(s)
		if perr != nil {
			err = multierr.Append(err, errors.Errorf("%s: %q is not a boolean", key, s))
			return
		}
		*dst = v
	}
	if s, ok := lookup(EnvTraceLevel); ok && s != "" {
		v, perr := strconv.Atoi(s)
		if perr != nil {
			err = multierr.Append(err, errors.Errorf("%s: %q is not an integer", EnvTraceLevel, s))
		} else {
			c.TraceLevel = v
		}
	}
	parseBool(EnvStrictBatch, &c.StrictBatch)
	parseBool(EnvCheckShape4D, &c.CheckShape4D)
	parseBool(EnvEnableDepad, &c.EnableDepad)
	if s, ok := lookup(EnvCompilerVersion); ok && s != "" {
		c.CompilerVersion = s
	}
	return err
}

// Validate checks the configuration and reports all its problems.
func (c *Config) Validate() error {
	var err error
	if c.TraceLevel < 0 {
		err = multierr.Append(err, errors.Errorf("negative trace level %d", c.TraceLevel))
	}
	version := c.CompilerVersion
	if len(version) > 0 && version[0] != 'v' {
		version = "v" + version
	}
	if !semver.IsValid(version) {
		err = multierr.Append(err, errors.Errorf("invalid compiler version %q", c.CompilerVersion))
	}
	if c.FusedOpType == "" {
		err = multierr.Append(err, errors.Errorf("empty fused op type"))
	}
	return err
}
