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

// Package report prints and renders the outcome of a slicing run: a
// colorized per-instruction listing, GraphViz/PNG renderings of the marked
// control-flow graph, and coverage statistics, beyond the bare
// progress/summary line the driver prints to stdout.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/term"
	"gonum.org/v1/gonum/stat"

	"github.com/superf0sh/panda/internal/ir"
	"github.com/superf0sh/panda/internal/marks"
)

var (
	bold  = color("\033[1m%s\033[0m")
	faint = color("\033[2m%s\033[0m")
)

// color only emits escape codes when stdout is a terminal, so
// redirected/piped output (and -marked-out FILE) stays plain text.
func color(codeFmt string) func(string) string {
	return func(s string) string {
		if term.IsTerminal(1) {
			return fmt.Sprintf(codeFmt, s)
		}
		return s
	}
}

// PrintMarked pretty-prints every function in mod with at least one marked
// instruction, annotating each instruction line with "*" when marked. This
// is the Go-native counterpart of dynslice.cpp's print_marked/dump_tubt,
// which walked the translation-block cache and starred the instructions the
// backward walk had touched.
func PrintMarked(w io.Writer, mod *ir.Module, marked *marks.Map, colorize bool) {
	names := marked.Functions()
	sort.Strings(names)

	for _, fname := range names {
		fn, ok := mod.Func(fname)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "function %s\n", fname)
		for _, blk := range fn.Blocks {
			ordinals := marked.Block(fname, blk.Ordinal)
			if len(ordinals) == 0 {
				continue
			}
			fmt.Fprintf(w, "block %s:\n", blk.Name)
			markedSet := make(map[int]bool, len(ordinals))
			for _, o := range ordinals {
				markedSet[o] = true
			}
			for _, instr := range blk.Instrs {
				line := instrText(instr)
				if markedSet[instr.Ordinal] {
					if colorize {
						fmt.Fprintf(w, "  %s %s\n", bold("*"), line)
					} else {
						fmt.Fprintf(w, "  * %s\n", line)
					}
				} else if colorize {
					fmt.Fprintf(w, "    %s\n", faint(line))
				} else {
					fmt.Fprintf(w, "    %s\n", line)
				}
			}
		}
	}
}

// instrText renders a one-line diagnostic summary of an instruction, in the
// same shape as the textual IR format documented in internal/ir/doc.go.
func instrText(i *ir.Instruction) string {
	var b strings.Builder
	if !i.Void {
		fmt.Fprintf(&b, "%%%s = ", i.Name())
	}
	switch i.Opcode {
	case ir.OpOther:
		b.WriteString(i.Mnemonic)
	default:
		b.WriteString(i.Opcode.String())
	}
	for idx, op := range i.Operands {
		if idx == 0 {
			b.WriteString(" ")
		} else {
			b.WriteString(", ")
		}
		b.WriteString(operandText(op))
	}
	if i.Opcode == ir.OpStore && i.Volatile {
		b.WriteString(" volatile")
	}
	if i.Opcode == ir.OpCall {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "-> %s", i.CalleeName)
	}
	return b.String()
}

func operandText(v ir.Value) string {
	if v == nil {
		return "<nil>"
	}
	if c, ok := v.(*ir.Const); ok {
		return c.Text
	}
	return "%" + v.Name()
}

// Coverage summarizes how densely a slice touched the module: the mean and
// standard deviation of marked-instruction counts per block, supplementing
// bare totals.
type Coverage struct {
	Blocks      int
	Mean        float64
	StdDev      float64
	TotalMarked int
}

// Stats computes Coverage over every block marked has at least one mark in.
func Stats(marked *marks.Map) Coverage {
	raw := marked.BlockCounts()
	if len(raw) == 0 {
		return Coverage{}
	}
	counts := make([]float64, len(raw))
	total := 0
	for i, c := range raw {
		counts[i] = float64(c)
		total += c
	}
	mean, stddev := stat.MeanStdDev(counts, nil)
	return Coverage{Blocks: len(counts), Mean: mean, StdDev: stddev, TotalMarked: total}
}
