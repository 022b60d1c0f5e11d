// Copyright the dynslice authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package graphutil pre-checks a translated module's static call graph for
// recursion before the Aligner ever descends into it, using a
// strongly-connected-components approach to find elementary cycles in
// this repository's ir.Module call graph.
package graphutil

import (
	"sort"

	"github.com/yourbasic/graph"

	"github.com/superf0sh/panda/internal/ir"
)

// funcGraph adapts a module's static call edges to yourbasic/graph's
// Iterator interface.
type funcGraph struct {
	order int
	edges map[int][]int
}

func (g *funcGraph) Order() int { return g.order }

func (g *funcGraph) Visit(v int, do func(w int, c int64) bool) bool {
	for _, w := range g.edges[v] {
		if do(w, 0) {
			return true
		}
	}
	return false
}

// CheckRecursion builds the static call graph of mod, considering only
// direct calls to a resolved, non-ignored callee, and returns every
// elementary cycle found (mutual recursion as well as direct self-calls),
// named by function.
func CheckRecursion(mod *ir.Module) [][]string {
	names := make([]string, 0, len(mod.Functions))
	for name := range mod.Functions {
		names = append(names, name)
	}
	sort.Strings(names)

	id := make(map[string]int, len(names))
	for i, n := range names {
		id[n] = i
	}

	g := &funcGraph{order: len(names), edges: map[int][]int{}}
	for _, name := range names {
		fn := mod.Functions[name]
		from := id[name]
		for _, blk := range fn.Blocks {
			for _, instr := range blk.Instrs {
				if instr.Opcode != ir.OpCall || instr.Callee == nil {
					continue
				}
				if ir.IsIgnoredCallee(instr.CalleeName) {
					continue
				}
				to, ok := id[instr.Callee.Name]
				if !ok {
					continue
				}
				g.edges[from] = append(g.edges[from], to)
			}
		}
	}

	components := graph.StrongComponents(g)
	var cycles [][]string
	for _, comp := range components {
		if len(comp) >= 2 {
			cycles = append(cycles, namesOf(names, comp))
			continue
		}
		// A size-1 component is only a cycle if the node calls itself.
		v := comp[0]
		for _, w := range g.edges[v] {
			if w == v {
				cycles = append(cycles, []string{names[v]})
				break
			}
		}
	}
	return cycles
}

func namesOf(names []string, ids []int) []string {
	sort.Ints(ids)
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = names[id]
	}
	return out
}
