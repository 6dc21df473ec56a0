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
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/zmaychek84/vaip-sub004/pattern"
)

func newPatternCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pattern",
		Short: "Convert patterns between their JSON and binary forms",
	}
	cmd.AddCommand(newEncodeCmd(), newDecodeCmd())
	return cmd
}

func newEncodeCmd() *cobra.Command {
	var patternPath, outPath string
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a JSON pattern into its binary form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadPattern(patternPath)
			if err != nil {
				return err
			}
			data, err := p.ToBinary()
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return errors.Wrap(err, "cannot write pattern")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&patternPath, "pattern", "", "pattern file (JSON RootPatternProto)")
	cmd.Flags().StringVar(&outPath, "out", "", "output file")
	cmd.MarkFlagRequired("pattern")
	cmd.MarkFlagRequired("out")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode a binary pattern and print it as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(inPath)
			if err != nil {
				return errors.Wrap(err, "cannot read pattern")
			}
			p, err := pattern.NewBuilder().CreateFromBinary(data)
			if err != nil {
				return errors.Wrapf(err, "%s", inPath)
			}
			js, err := p.ToJSON()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := out.Write(append(js, '\n')); err != nil {
				return err
			}
			_, err = out.Write([]byte(p.String()))
			return err
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "binary pattern file")
	cmd.MarkFlagRequired("in")
	return cmd
}
