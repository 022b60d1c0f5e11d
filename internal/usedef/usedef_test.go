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

package usedef

import (
	"testing"

	"github.com/superf0sh/panda/internal/align"
	"github.com/superf0sh/panda/internal/ir"
	"github.com/superf0sh/panda/internal/names"
	"github.com/superf0sh/panda/internal/tracelog"
)

func TestExtract_load(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Func("f", true, "ptr")
	blk := b.Block(fn, "entry")
	load := b.Instr(blk, "v", ir.OpLoad, false, fn.Params[0])

	dyn := &tracelog.Record{Arg1: uint64(names.AddrGReg), Arg2: 4}
	res := Extract(align.Entry{Func: fn, Instr: load, Dyn: dyn})

	if !res.Uses.Contains("REG_4") {
		t.Fatalf("uses = %v, want REG_4", res.Uses.Sorted())
	}
	if !res.Uses.Contains("ptr") {
		t.Fatalf("uses = %v, want ptr", res.Uses.Sorted())
	}
	if !res.Defs.Contains("v") {
		t.Fatalf("defs = %v, want v", res.Defs.Sorted())
	}
}

func TestExtract_irrelevantLoadStillDefines(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Func("f", true, "ptr")
	blk := b.Block(fn, "entry")
	load := b.Instr(blk, "v", ir.OpLoad, false, fn.Params[0])

	dyn := &tracelog.Record{Arg1: uint64(names.AddrGReg) | 1<<8, Arg2: 4}
	res := Extract(align.Entry{Func: fn, Instr: load, Dyn: dyn})

	if res.Uses.Contains("REG_4") {
		t.Fatalf("irrelevant load should not contribute a register use")
	}
	if !res.Defs.Contains("v") {
		t.Fatalf("irrelevant load must still define its result")
	}
}

func TestExtract_volatileStoreSkipsDef(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Func("f", true, "val", "ptr")
	blk := b.Block(fn, "entry")
	store := b.Instr(blk, "", ir.OpStore, true, fn.Params[0], fn.Params[1])
	store.Volatile = true

	dyn := &tracelog.Record{Arg1: uint64(names.AddrGReg), Arg2: 0}
	res := Extract(align.Entry{Func: fn, Instr: store, Dyn: dyn})

	if res.Defs.Len() != 0 {
		t.Fatalf("volatile store should not define anything, got %v", res.Defs.Sorted())
	}
	if !res.Uses.Contains("val") || !res.Uses.Contains("ptr") {
		t.Fatalf("uses = %v, want val and ptr", res.Uses.Sorted())
	}
}

func TestExtract_memHelperLoadSpansBytes(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Func("f", true, "addr")
	blk := b.Block(fn, "entry")
	call := b.Instr(blk, "v", ir.OpCall, false, fn.Params[0])
	call.CalleeName = "__ldl"

	dyn := &tracelog.Record{Arg2: 0x1000}
	res := Extract(align.Entry{Func: fn, Instr: call, Dyn: dyn})

	for _, off := range []uint64{0, 1, 2, 3} {
		loc := names.LocMem(0x1000 + off)
		if !res.Uses.Contains(loc) {
			t.Fatalf("uses = %v, want %s", res.Uses.Sorted(), loc)
		}
	}
	if !res.Defs.Contains("v") {
		t.Fatalf("__ldl should define its result")
	}
}

func TestExtract_memTransferIsIgnored(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Func("f", true)
	blk := b.Block(fn, "entry")
	call := b.Instr(blk, "", ir.OpCall, true)
	call.CalleeName = "llvm.memcpy.p0i8.p0i8.i64"

	res := Extract(align.Entry{Func: fn, Instr: call})
	if res.Ignored != MemTransfer {
		t.Fatalf("got Ignored=%v, want MemTransfer", res.Ignored)
	}
	if res.Uses.Len() != 0 || res.Defs.Len() != 0 {
		t.Fatalf("memcpy should contribute no uses/defs, got uses=%v defs=%v", res.Uses.Sorted(), res.Defs.Sorted())
	}
}

func TestExtract_ordinaryCallLinksRetval(t *testing.T) {
	b := ir.NewBuilder()
	callee := b.Func("callee", false)
	caller := b.Func("caller", true)
	blk := b.Block(caller, "entry")
	call := b.Instr(blk, "r", ir.OpCall, false)
	call.CalleeName = "callee"
	call.Callee = callee

	res := Extract(align.Entry{Func: caller, Instr: call})
	if !res.Uses.Contains("callee.retval") {
		t.Fatalf("uses = %v, want callee.retval", res.Uses.Sorted())
	}
	if !res.Defs.Contains("r") {
		t.Fatalf("defs = %v, want r", res.Defs.Sorted())
	}
}

func TestExtract_ret(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Func("f", false, "x")
	blk := b.Block(fn, "entry")
	ret := b.Instr(blk, "", ir.OpRet, false, fn.Params[0])

	res := Extract(align.Entry{Func: fn, Instr: ret})
	if !res.Uses.Contains("x") {
		t.Fatalf("uses = %v, want x", res.Uses.Sorted())
	}
	if !res.Defs.Contains("f.retval") {
		t.Fatalf("defs = %v, want f.retval", res.Defs.Sorted())
	}
}

func TestExtract_phiUsesIncomingEdge(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Func("f", true, "a", "b")
	blk := b.Block(fn, "join")
	phi := b.Instr(blk, "m", ir.OpPhi, false, fn.Params[0], fn.Params[1])

	res := Extract(align.Entry{Func: fn, Instr: phi, Dyn: &tracelog.Record{Arg1: 1}})
	if !res.Uses.Contains("b") || res.Uses.Contains("a") {
		t.Fatalf("uses = %v, want only b", res.Uses.Sorted())
	}
}

func TestExtract_selectInversion(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Func("f", true, "cond", "t", "fv")
	blk := b.Block(fn, "entry")
	sel := b.Instr(blk, "s", ir.OpSelect, false, fn.Params[0], fn.Params[1], fn.Params[2])

	res := Extract(align.Entry{Func: fn, Instr: sel, Dyn: &tracelog.Record{Arg1: 1}})
	if !res.Uses.Contains("fv") || res.Uses.Contains("t") {
		t.Fatalf("arg1==1 should select the false value; uses = %v", res.Uses.Sorted())
	}

	res2 := Extract(align.Entry{Func: fn, Instr: sel, Dyn: &tracelog.Record{Arg1: 0}})
	if !res2.Uses.Contains("t") || res2.Uses.Contains("fv") {
		t.Fatalf("arg1!=1 should select the true value; uses = %v", res2.Uses.Sorted())
	}
}

func TestExtract_defaultOpcode(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Func("f", true, "a", "b")
	blk := b.Block(fn, "entry")
	add := b.Instr(blk, "r", ir.OpOther, false, fn.Params[0], fn.Params[1])
	add.Mnemonic = "add"

	res := Extract(align.Entry{Func: fn, Instr: add})
	if !res.Uses.Contains("a") || !res.Uses.Contains("b") {
		t.Fatalf("uses = %v, want a and b", res.Uses.Sorted())
	}
	if !res.Defs.Contains("r") {
		t.Fatalf("defs = %v, want r", res.Defs.Sorted())
	}
}
