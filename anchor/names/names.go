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

// Package names recovers the name of an original tensor from the name
// the hardware compiler gave to the tensor it derived from it.
//
// The compiler appends suffixes when it inserts fix ops, reshapes or
// recomputes tensors. Suffixes are stripped by rules tried in a fixed
// priority order: the first rule that matches wins.
package names

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/mod/semver"
)

type (
	// Rule strips one suffix pattern.
	Rule struct {
		// Name describes the rule.
		Name string
		// Since is the first compiler version producing the suffix.
		Since string

		cut func(string) int
	}

	// Stripper applies an ordered set of rules.
	Stripper struct {
		version string
		rules   []Rule
	}
)

func regexRule(since, expr string) Rule {
	re := regexp.MustCompile(expr)
	return Rule{
		Name:  "regexp " + expr,
		Since: since,
		cut: func(s string) int {
			loc := re.FindStringIndex(s)
			if loc == nil {
				return -1
			}
			return loc[0]
		},
	}
}

func substringRule(since, sub string) Rule {
	return Rule{
		Name:  "substring " + sub,
		Since: since,
		cut: func(s string) int {
			return strings.Index(s, sub)
		},
	}
}

func trailingRule(since, suffix string) Rule {
	return Rule{
		Name:  "trailing " + suffix,
		Since: since,
		cut: func(s string) int {
			if !strings.HasSuffix(s, suffix) {
				return -1
			}
			return len(s) - len(suffix)
		},
	}
}

// rules in priority order.
var rules = []Rule{
	regexRule("v3.5.0", `_reshaped_\d+_inserted_fix_\d+(_merged)?$`),
	substringRule("v3.0.0", "_recomputation_"),
	substringRule("v3.0.0", "_fix_reshaped_inserted_fix_"),
	substringRule("v1.0.0", "_inserted_fix_"),
	substringRule("v2.0.0", "_FixShifter"),
	substringRule("v2.5.0", "_insert_conv2d_fix"),
	trailingRule("v1.0.0", "_new"),
	trailingRule("v1.0.0", "_fix"),
}

// Latest is the most recent compiler version with a known suffix rule.
const Latest = "v3.5.0"

// ForCompiler returns the stripper for the suffixes produced by a compiler version.
func ForCompiler(version string) (*Stripper, error) {
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	if !semver.IsValid(version) {
		return nil, errors.Errorf("invalid compiler version %q", version)
	}
	s := &Stripper{version: semver.Canonical(version)}
	for _, r := range rules {
		if semver.Compare(r.Since, s.version) <= 0 {
			s.rules = append(s.rules, r)
		}
	}
	return s, nil
}

// Default returns the stripper for the latest compiler.
func Default() *Stripper {
	return &Stripper{version: Latest, rules: rules}
}

// Version returns the compiler version of the stripper.
func (s *Stripper) Version() string {
	return s.version
}

// Rules returns the rules of the stripper in priority order.
func (s *Stripper) Rules() []Rule {
	return append([]Rule{}, s.rules...)
}

// Strip removes the compiler suffix of a tensor name.
// It returns the name unchanged and false if no rule matches.
func (s *Stripper) Strip(name string) (string, bool) {
	for _, r := range s.rules {
		// A rule never reduces a name to nothing.
		if i := r.cut(name); i > 0 {
			return name[:i], true
		}
	}
	return name, false
}
