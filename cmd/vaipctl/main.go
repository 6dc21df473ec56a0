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

// Command vaipctl matches patterns against graphs, converts serialized
// patterns and offloads compiled subgraphs.
//
// Usage:
//
//	vaipctl match --graph g.yaml --pattern p.json [--node name]
//	vaipctl pattern encode --pattern p.json --out p.bin
//	vaipctl pattern decode --in p.bin
//	vaipctl process --graph g.yaml --xir xir.yaml [--config c.yaml]
package main

import (
	"context"
	"flag"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/zmaychek84/vaip-sub004/config"
	"github.com/zmaychek84/vaip-sub004/graph"
)

type options struct {
	configPath string
	klogFlags  *flag.FlagSet
	lookupEnv  func(string) (string, bool)
}

func newRootCmd(lookupEnv func(string) (string, bool)) *cobra.Command {
	opts := &options{
		klogFlags: flag.NewFlagSet("klog", flag.ContinueOnError),
		lookupEnv: lookupEnv,
	}
	klog.InitFlags(opts.klogFlags)
	root := &cobra.Command{
		Use:           "vaipctl",
		Short:         "Match patterns and offload compiled subgraphs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().AddGoFlagSet(opts.klogFlags)
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "configuration file (YAML)")
	root.AddCommand(
		newMatchCmd(opts),
		newPatternCmd(),
		newProcessCmd(opts),
	)
	return root
}

// loadConfig reads the configuration file and applies the environment overrides.
// The trace level of the configuration sets the verbosity of the logs
// unless it has been set on the command line.
func (o *options) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadFile(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(o.lookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.TraceLevel > 0 && !cmd.Flags().Changed("v") {
		if err := o.klogFlags.Set("v", strconv.Itoa(cfg.TraceLevel)); err != nil {
			return nil, errors.Wrap(err, "cannot set the log verbosity")
		}
	}
	return cfg, nil
}

func loadGraph(path string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open graph")
	}
	defer f.Close()
	g, err := graph.Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return g, nil
}

func main() {
	defer klog.Flush()
	if err := newRootCmd(os.LookupEnv).ExecuteContext(context.Background()); err != nil {
		klog.ErrorS(err, "vaipctl failed")
		klog.FlushAndExit(klog.ExitFlushTimeout, 1)
	}
}
