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

// Package usedef computes the locations an aligned instruction uses and
// defines. It never fails and never mutates shared state; the Slicer is
// the only caller and owns everything it does with the result.
package usedef

import (
	"strings"

	"github.com/superf0sh/panda/internal/align"
	"github.com/superf0sh/panda/internal/ir"
	"github.com/superf0sh/panda/internal/names"
	"github.com/superf0sh/panda/internal/tracelog"
)

// IgnoredCallKind identifies why a call to a well-known runtime helper
// contributes no uses/defs, so callers can warn once per distinct callee
// without Extract itself needing a logger.
type IgnoredCallKind int

const (
	// NotIgnored means the call is ordinary, fully-modeled code.
	NotIgnored IgnoredCallKind = iota
	// MemTransfer is llvm.memcpy or llvm.memset: reserved for future
	// byte-level handling, currently contributes nothing.
	MemTransfer
	// HelperIO is helper_in or helper_out: same treatment as MemTransfer.
	HelperIO
	// Instrumentation is log_dynval: contributes nothing by design, not
	// an imprecision.
	Instrumentation
)

// Result is the outcome of extracting one aligned entry's uses and defs.
type Result struct {
	Uses, Defs names.Set
	// Ignored is set when the entry is a call to a helper this package
	// deliberately does not model; Callee names the helper.
	Ignored IgnoredCallKind
	Callee  string
	// UnknownOpcode is set when the instruction's opcode isn't one this
	// package recognizes and the instruction fell through to default
	// handling.
	UnknownOpcode bool
}

// Extract computes e's use and def sets.
func Extract(e align.Entry) Result {
	res := Result{Uses: names.NewSet(), Defs: names.NewSet()}
	instr := e.Instr

	switch instr.Opcode {
	case ir.OpLoad:
		extractLoad(instr, e.Dyn, &res)
	case ir.OpStore:
		extractStore(instr, e.Dyn, &res)
	case ir.OpCall:
		extractCall(e, &res)
	case ir.OpRet:
		extractRet(instr, e.Func, &res)
	case ir.OpPhi:
		extractPhi(instr, e.Dyn, &res)
	case ir.OpSelect:
		extractSelect(instr, e.Dyn, &res)
	case ir.OpUnreachable:
		// emits nothing
	case ir.OpBr, ir.OpSwitch, ir.OpOther:
		extractDefault(instr, &res)
	default:
		res.UnknownOpcode = true
		extractDefault(instr, &res)
	}
	return res
}

// extractLoad implements Load semantics.
func extractLoad(instr *ir.Instruction, dyn *tracelog.Record, res *Result) {
	if dyn != nil {
		// Only the kind and the irrelevant flag come from arg1; the
		// location's offset is keyed by arg2, not by arg1's own offset
		// bits (those describe the addr-entry, not the accessed cell).
		kind, irrelevant, _ := names.DecodeAddrEntry(dyn.Arg1)
		if !irrelevant {
			if loc, ok := names.LocationFor(kind, dyn.Arg2); ok {
				res.Uses.Add(loc)
			}
		}
	}
	if len(instr.Operands) > 0 {
		names.InsertValue(res.Uses, instr.Operands[0])
	}
	// An irrelevant load still SSA-defines its result.
	names.InsertValue(res.Defs, instr.Result())
}

// extractStore implements Store semantics.
func extractStore(instr *ir.Instruction, dyn *tracelog.Record, res *Result) {
	if dyn != nil && !instr.Volatile {
		kind, irrelevant, _ := names.DecodeAddrEntry(dyn.Arg1)
		if !irrelevant {
			if loc, ok := names.LocationFor(kind, dyn.Arg2); ok {
				res.Defs.Add(loc)
			}
		}
	}
	if len(instr.Operands) > 0 {
		names.InsertValue(res.Uses, instr.Operands[0])
	}
	if len(instr.Operands) > 1 {
		names.InsertValue(res.Uses, instr.Operands[1])
	}
}

// extractCall implements Call semantics.
func extractCall(e align.Entry, res *Result) {
	instr := e.Instr
	callee := instr.CalleeName

	switch {
	case strings.HasPrefix(callee, "__ld"):
		extractMemHelperLoad(instr, callee, e.Dyn, res)
		return
	case strings.HasPrefix(callee, "__st"):
		extractMemHelperStore(instr, callee, e.Dyn, res)
		return
	case strings.HasPrefix(callee, "llvm.memcpy"), strings.HasPrefix(callee, "llvm.memset"):
		res.Ignored = MemTransfer
		res.Callee = callee
		return
	case strings.HasPrefix(callee, "helper_in"), strings.HasPrefix(callee, "helper_out"):
		res.Ignored = HelperIO
		res.Callee = callee
		return
	case callee == "log_dynval":
		res.Ignored = Instrumentation
		res.Callee = callee
		return
	}

	if !instr.Void {
		names.InsertValue(res.Defs, instr.Result())
		res.Uses.Add(names.Retval(callee))
	}
	// Actual arguments are deliberately not added: they propagate through
	// the callee body and are linked by the argument-binding stack.
}

// extractMemHelperLoad implements the __ld<sz> call form.
func extractMemHelperLoad(instr *ir.Instruction, callee string, dyn *tracelog.Record, res *Result) {
	if dyn != nil && len(callee) > 0 {
		if size, ok := ir.MemAccessSize(callee[len(callee)-1]); ok {
			for off := 0; off < size; off++ {
				res.Uses.Add(names.LocMem(dyn.Arg2 + uint64(off)))
			}
		}
	}
	if len(instr.Operands) > 0 {
		names.InsertValue(res.Uses, instr.Operands[0])
	}
	names.InsertValue(res.Defs, instr.Result())
}

// extractMemHelperStore implements the __st<sz> call form.
func extractMemHelperStore(instr *ir.Instruction, callee string, dyn *tracelog.Record, res *Result) {
	if dyn != nil && len(callee) > 0 {
		if size, ok := ir.MemAccessSize(callee[len(callee)-1]); ok {
			for off := 0; off < size; off++ {
				res.Defs.Add(names.LocMem(dyn.Arg2 + uint64(off)))
			}
		}
	}
	for _, op := range instr.Operands {
		names.InsertValue(res.Uses, op)
	}
}

// extractRet implements Return semantics.
func extractRet(instr *ir.Instruction, fn *ir.Function, res *Result) {
	if len(instr.Operands) > 0 {
		names.InsertValue(res.Uses, instr.Operands[0])
	}
	if fn != nil {
		res.Defs.Add(names.Retval(fn.Name))
	}
}

// extractPhi implements PHI semantics. dyn.Arg1 is the synthesized
// incoming-edge index.
func extractPhi(instr *ir.Instruction, dyn *tracelog.Record, res *Result) {
	if dyn != nil {
		idx := int(dyn.Arg1)
		if idx >= 0 && idx < len(instr.Operands) {
			names.InsertValue(res.Uses, instr.Operands[idx])
		}
	}
	names.InsertValue(res.Defs, instr.Result())
}

// extractSelect implements Select semantics. The dynamic arg1 is
// logged inverted relative to natural boolean selection: arg1 == 1 selects
// the false value. This is documented producer behavior, not a bug to fix.
func extractSelect(instr *ir.Instruction, dyn *tracelog.Record, res *Result) {
	if len(instr.Operands) == 3 && dyn != nil {
		cond, trueVal, falseVal := instr.Operands[0], instr.Operands[1], instr.Operands[2]
		if dyn.Arg1 == 1 {
			names.InsertValue(res.Uses, falseVal)
		} else {
			names.InsertValue(res.Uses, trueVal)
		}
		names.InsertValue(res.Uses, cond)
	}
	names.InsertValue(res.Defs, instr.Result())
}

// extractDefault implements the default/fallback case: every operand except
// basic-block references goes into uses (Operands never holds a *Block for
// the opcodes that reach this function, since branch targets live in
// Successors/Cases/Default instead), and the result, if any, into defs.
func extractDefault(instr *ir.Instruction, res *Result) {
	for _, op := range instr.Operands {
		names.InsertValue(res.Uses, op)
	}
	if !instr.Void {
		names.InsertValue(res.Defs, instr.Result())
	}
}
