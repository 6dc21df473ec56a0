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
	"fmt"
	"slices"
	"strings"

	"github.com/zmaychek84/vaip-sub004/base/ordered"
	"github.com/zmaychek84/vaip-sub004/base/stringseq"
)

func ref(p *Pattern) string {
	return fmt.Sprintf("#%d", p.id)
}

func (p *Pattern) describe() string {
	args := stringseq.Join(slices.Values(p.Args()), ref, ", ")
	switch p.kind {
	case NodeKind:
		refs := make([]string, len(p.args))
		for i, arg := range p.Args() {
			refs[i] = ref(arg)
			if p.optional[i] {
				refs[i] += "?"
			}
		}
		return fmt.Sprintf("%s(%s)", p.opType, strings.Join(refs, ", "))
	case CommutableNodeKind:
		return fmt.Sprintf("commutable %s(%s)", p.opType, args)
	case WildcardKind, ConstantKind, GraphInputKind:
		return p.kind.String()
	}
	return fmt.Sprintf("%s(%s)", p.kind, args)
}

// String returns one line per pattern reachable from p,
// sub-patterns first, with the names bound to each pattern.
func (p *Pattern) String() string {
	if p == nil {
		return "<nil>"
	}
	var s strings.Builder
	for _, q := range p.reachable() {
		fmt.Fprintf(&s, "%s = %s", ref(q), q.describe())
		if q.kind != WhereKind {
			if names := ordered.KeysOf(q.bld.names, q.id); len(names) > 0 {
				fmt.Fprintf(&s, " as %s", strings.Join(names, ","))
			}
		}
		s.WriteString("\n")
	}
	return s.String()
}
