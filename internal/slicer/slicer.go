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

// Package slicer walks an aligned instruction sequence backward, marking
// the instructions that contributed to a set of slicing criteria. It plays
// the role of the Slicer.
package slicer

import (
	"github.com/pkg/errors"

	"github.com/superf0sh/panda/analysis/config"
	"github.com/superf0sh/panda/internal/align"
	"github.com/superf0sh/panda/internal/ir"
	"github.com/superf0sh/panda/internal/marks"
	"github.com/superf0sh/panda/internal/names"
	"github.com/superf0sh/panda/internal/usedef"
)

// Options configures one slicing run.
type Options struct {
	// IncludeBranches marks a branch/switch terminator even when it
	// doesn't overlap the current working set, adding its condition to
	// the working set (the -b / include-branches flag).
	IncludeBranches bool
	// MaxInstrsPerBlock bounds the marked map's per-block bitset.
	MaxInstrsPerBlock int
	// Logger, when set, receives per-instruction tracing at DebugLevel and
	// working-set tracing at TraceLevel (the -d/-w CLI flags). A nil Logger
	// is a silent no-op.
	Logger *config.LogGroup
}

func (o Options) debugf(format string, v ...any) {
	if o.Logger != nil {
		o.Logger.Debugf(format, v...)
	}
}

func (o Options) tracef(format string, v ...any) {
	if o.Logger != nil {
		o.Logger.Tracef(format, v...)
	}
}

// binding is one argument-binding stack frame: formal parameter name to
// bound actual argument name.
type binding map[string]string

// Slice walks seq backward starting from work, marking every instruction
// that contributes to work, and returns the marked map together with the
// working set as it stood after the walk (before the context-argument
// removal, which the caller applies to the returned set via Finalize after
// each call).
func Slice(seq []align.Entry, work names.Set, entryFunc *ir.Function, opts Options) (*marks.Map, names.Set, error) {
	m := marks.New(opts.MaxInstrsPerBlock)
	w := work.Clone()
	var stack []binding

	for i := len(seq) - 1; i >= 0; i-- {
		e := seq[i]
		res := usedef.Extract(e)
		uses := res.Uses

		if e.Func != entryFunc && len(stack) > 0 {
			uses = remap(uses, stack[len(stack)-1])
		}

		if overlap(res.Defs, w) {
			if err := mark(m, e); err != nil {
				return nil, nil, err
			}
			w = union(difference(w, res.Defs), uses)
			opts.debugf("slicer: %s marked %s (defs=%v uses=%v)", e.Func.Name, e.Instr.Opcode, res.Defs.Sorted(), uses.Sorted())
			opts.tracef("slicer: working set now %v", w.Sorted())
		} else if opts.IncludeBranches && isBranchTerminator(e.Instr.Opcode) {
			if err := mark(m, e); err != nil {
				return nil, nil, err
			}
			w = union(w, uses)
			opts.debugf("slicer: %s marked branch terminator %s", e.Func.Name, e.Instr.Opcode)
			opts.tracef("slicer: working set now %v", w.Sorted())
		} else {
			opts.debugf("slicer: %s %s: no overlap with working set, not marked", e.Func.Name, e.Instr.Opcode)
		}

		switch {
		case e.Instr.Opcode == ir.OpCall && e.Instr.Callee != nil && !ir.IsIgnoredCallee(e.Instr.CalleeName):
			stack = append(stack, bindArgs(e.Instr))
		case isFirstInstrOfEntryBlock(e):
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	return m, w, nil
}

// Finalize removes the entry function's first formal argument (the
// translator's context-pointer argument) from the final working set: it is
// plumbing, not data the caller should treat as live.
func Finalize(work names.Set, entryFunc *ir.Function) names.Set {
	out := work.Clone()
	if len(entryFunc.Params) > 0 {
		out.Remove(entryFunc.Params[0].Name())
	}
	return out
}

func bindArgs(call *ir.Instruction) binding {
	b := binding{}
	callee := call.Callee
	n := len(callee.Params)
	if len(call.Operands) < n {
		n = len(call.Operands)
	}
	for i := 0; i < n; i++ {
		b[callee.Params[i].Name()] = names.NameOf(call.Operands[i])
	}
	return b
}

func isFirstInstrOfEntryBlock(e align.Entry) bool {
	entry := e.Func.EntryBlock()
	return entry != nil && e.Instr.Parent == entry && e.Instr.Ordinal == 0
}

func isBranchTerminator(op ir.Opcode) bool {
	return op == ir.OpBr || op == ir.OpSwitch
}

func mark(m *marks.Map, e align.Entry) error {
	blockOrdinal, instrOrdinal := align.UnpackIndex(e.Index)
	if err := m.Mark(e.Func.Name, blockOrdinal, instrOrdinal); err != nil {
		return errors.Wrap(err, "slicer")
	}
	return nil
}

func remap(uses names.Set, top binding) names.Set {
	out := names.NewSet()
	for _, u := range uses.Sorted() {
		if actual, ok := top[u]; ok {
			out.Add(actual)
		} else {
			out.Add(u)
		}
	}
	return out
}

func overlap(a, b names.Set) bool {
	for k := range a {
		if b.Contains(k) {
			return true
		}
	}
	return false
}

func union(a, b names.Set) names.Set {
	out := a.Clone()
	for k := range b {
		out.Add(k)
	}
	return out
}

func difference(a, b names.Set) names.Set {
	out := names.NewSet()
	for k := range a {
		if !b.Contains(k) {
			out.Add(k)
		}
	}
	return out
}
