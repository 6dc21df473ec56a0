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

package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/zmaychek84/vaip-sub004/processor"
	"github.com/zmaychek84/vaip-sub004/vaippb"
	"github.com/zmaychek84/vaip-sub004/xir"
)

func newProcessCmd(opts *options) *cobra.Command {
	var graphPath, xirPath string
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Offload the subgraphs of a compiled model and print their schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			g, err := loadGraph(graphPath)
			if err != nil {
				return err
			}
			m, err := loadModel(xirPath)
			if err != nil {
				return err
			}
			proc, err := processor.New(g, cfg)
			if err != nil {
				return err
			}
			reports, procErr := proc.ProcessAll(cmd.Context(), m)
			out := cmd.OutOrStdout()
			for _, r := range reports {
				js, err := vaippb.MarshalJSON(r.ToProto())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\n", js)
			}
			return procErr
		},
	}
	cmd.Flags().StringVar(&graphPath, "graph", "", "graph file (YAML or JSON)")
	cmd.Flags().StringVar(&xirPath, "xir", "", "compiled model file (YAML)")
	cmd.MarkFlagRequired("graph")
	cmd.MarkFlagRequired("xir")
	return cmd
}

func loadModel(path string) (*xir.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open compiled model")
	}
	defer f.Close()
	m, err := xir.Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return m, nil
}
