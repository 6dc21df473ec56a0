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
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/zmaychek84/vaip-sub004/graph"
	"github.com/zmaychek84/vaip-sub004/pattern"
)

func newMatchCmd(opts *options) *cobra.Command {
	var graphPath, patternPath, nodeName string
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match a pattern against the nodes of a graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := opts.loadConfig(cmd); err != nil {
				return err
			}
			g, err := loadGraph(graphPath)
			if err != nil {
				return err
			}
			p, err := loadPattern(patternPath)
			if err != nil {
				return err
			}
			logger := klog.LoggerWithName(klog.FromContext(cmd.Context()), "match")
			out := cmd.OutOrStdout()
			if nodeName != "" {
				node := g.NodeByName(nodeName)
				if node == nil {
					return errors.Errorf("node %q not found in graph %s", nodeName, g.Name())
				}
				b := p.Match(g, node, pattern.WithLogger(logger))
				if b == nil {
					fmt.Fprintf(out, "%s: no match\n", node.Name())
					return nil
				}
				printBinding(out, node, b)
				return nil
			}
			n := 0
			for node, b := range p.FindAll(g, pattern.WithLogger(logger)) {
				printBinding(out, node, b)
				n++
			}
			fmt.Fprintf(out, "%d match(es)\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&graphPath, "graph", "", "graph file (YAML or JSON)")
	cmd.Flags().StringVar(&patternPath, "pattern", "", "pattern file (JSON RootPatternProto)")
	cmd.Flags().StringVar(&nodeName, "node", "", "match only this node")
	cmd.MarkFlagRequired("graph")
	cmd.MarkFlagRequired("pattern")
	return cmd
}

func printBinding(out io.Writer, node *graph.Node, b *pattern.Binder) {
	fmt.Fprintf(out, "%s:\n%s", node.Name(), b)
}

func loadPattern(path string) (*pattern.Pattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read pattern")
	}
	p, err := pattern.NewBuilder().CreateByJSON(data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return p, nil
}
