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

package report

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/goccy/go-graphviz"

	"github.com/superf0sh/panda/internal/ir"
	"github.com/superf0sh/panda/internal/marks"
)

// WriteDOT writes a GraphViz DOT rendering of mod's control-flow graph to w,
// one subgraph cluster per function, filling any block that has at least
// one mark. The DOT text is assembled by hand with fmt.Fprintf rather than
// through an intermediate graph-building API: the graph here is small and
// static, and the text is just handed to `dot`/go-graphviz afterward.
func WriteDOT(w io.Writer, mod *ir.Module, marked *marks.Map) {
	fmt.Fprintln(w, "digraph slice {")
	fmt.Fprintln(w, "  node [shape=box fontname=monospace];")

	fnames := make([]string, 0, len(mod.Functions))
	for name := range mod.Functions {
		fnames = append(fnames, name)
	}
	sort.Strings(fnames)

	for _, fname := range fnames {
		fn := mod.Functions[fname]
		fmt.Fprintf(w, "  subgraph %s {\n", dotClusterID(fname))
		fmt.Fprintf(w, "    label=%q;\n", fname)
		for _, blk := range fn.Blocks {
			id := dotNodeID(fname, blk.Name)
			style := ""
			if len(marked.Block(fname, blk.Ordinal)) > 0 {
				style = " style=filled fillcolor=lightgrey"
			}
			fmt.Fprintf(w, "    %s [label=%q%s];\n", id, blockLabel(blk), style)
		}
		fmt.Fprintln(w, "  }")
		for _, blk := range fn.Blocks {
			for _, succ := range blockSuccessors(blk) {
				fmt.Fprintf(w, "  %s -> %s;\n", dotNodeID(fname, blk.Name), dotNodeID(fname, succ.Name))
			}
		}
	}
	fmt.Fprintln(w, "}")
}

func blockLabel(blk *ir.Block) string {
	label := blk.Name
	for _, instr := range blk.Instrs {
		label += "\n" + instrText(instr)
	}
	return label
}

// blockSuccessors returns the statically-known successors of a block's
// terminator, used only for drawing DOT edges (not for alignment, which
// relies on dynamic branch records).
func blockSuccessors(blk *ir.Block) []*ir.Block {
	if len(blk.Instrs) == 0 {
		return nil
	}
	term := blk.Instrs[len(blk.Instrs)-1]
	switch term.Opcode {
	case ir.OpBr:
		return term.Successors
	case ir.OpSwitch:
		var out []*ir.Block
		out = append(out, term.Successors...)
		return out
	default:
		return nil
	}
}

func dotClusterID(fname string) string {
	return "cluster_" + sanitizeID(fname)
}

func dotNodeID(fname, block string) string {
	return sanitizeID(fname) + "_" + sanitizeID(block)
}

func sanitizeID(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			out[i] = c
		default:
			out[i] = '_'
		}
	}
	return string(out)
}

// RenderPNG lays out the DOT text at dotPath and rasterizes it to pngPath
// via go-graphviz, which pulls in fogleman/gg and golang/freetype for the
// actual rasterization.
func RenderPNG(dotPath, pngPath string) error {
	dot, err := os.ReadFile(dotPath)
	if err != nil {
		return fmt.Errorf("report: read %s: %w", dotPath, err)
	}

	g := graphviz.New()
	defer g.Close()

	graph, err := graphviz.ParseBytes(dot)
	if err != nil {
		return fmt.Errorf("report: parse %s: %w", dotPath, err)
	}
	defer graph.Close()

	if err := g.RenderFilename(graph, graphviz.PNG, pngPath); err != nil {
		return fmt.Errorf("report: render %s: %w", pngPath, err)
	}
	return nil
}
