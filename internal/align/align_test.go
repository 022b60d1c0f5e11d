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

package align

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/superf0sh/panda/internal/ir"
	"github.com/superf0sh/panda/internal/tracelog"
)

const headerSize = 20
const recordSize = 56

func openLog(t *testing.T, records []tracelog.Record) *tracelog.Reader {
	t.Helper()
	buf := make([]byte, headerSize+recordSize*len(records))
	le := binary.LittleEndian
	for i, r := range records {
		off := headerSize + i*recordSize
		le.PutUint64(buf[off:], r.ASID)
		le.PutUint64(buf[off+8:], r.PC)
		le.PutUint64(buf[off+16:], uint64(r.Type))
		le.PutUint64(buf[off+24:], r.Arg1)
		le.PutUint64(buf[off+32:], r.Arg2)
		le.PutUint64(buf[off+40:], r.Arg3)
		le.PutUint64(buf[off+48:], r.Arg4)
	}
	p := filepath.Join(t.TempDir(), "trace.log")
	if err := os.WriteFile(p, buf, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	r, err := tracelog.Open(p)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestAligner_singleBlockArithmetic(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Func("f", true)
	blk := b.Block(fn, "entry")
	r0 := b.Instr(blk, "r0", ir.OpOther, false)
	r0.Mnemonic = "const"
	add := b.Instr(blk, "r1", ir.OpOther, false, r0)
	add.Mnemonic = "add"
	store := b.Instr(blk, "", ir.OpStore, true, add, r0)

	cur := openLog(t, []tracelog.Record{
		{Type: tracelog.TypeDVStore, Arg1: 0, Arg2: 0},
	})
	a := New(b.Module(), cur)
	if err := a.ProcessFunc(fn); err != nil {
		t.Fatalf("ProcessFunc: %v", err)
	}
	if len(a.Sequence()) != 3 {
		t.Fatalf("got %d entries, want 3", len(a.Sequence()))
	}
	if a.Sequence()[2].Instr != store {
		t.Fatalf("store entry not in expected position")
	}
}

func TestAligner_volatileStoreAppendsNoEntry(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Func("f", true)
	blk := b.Block(fn, "entry")
	v := b.Instr(blk, "v", ir.OpOther, false)
	store := b.Instr(blk, "", ir.OpStore, true, v, v)
	store.Volatile = true

	cur := openLog(t, []tracelog.Record{{Type: tracelog.TypeFN}})
	a := New(b.Module(), cur)
	if err := a.ProcessFunc(fn); err != nil {
		t.Fatalf("ProcessFunc: %v", err)
	}
	if len(a.Sequence()) != 1 {
		t.Fatalf("got %d entries, want 1 (only the value def)", len(a.Sequence()))
	}
}

func TestAligner_branchFollowsDynamicSuccessor(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Func("f", true)
	entry := b.Block(fn, "entry")
	bb1 := b.Block(fn, "bb1")
	bb2 := b.Block(fn, "bb2")
	br := b.Instr(entry, "", ir.OpBr, true)
	br.Successors = []*ir.Block{bb1, bb2}
	b.Instr(bb1, "", ir.OpUnreachable, true)
	b.Instr(bb2, "", ir.OpUnreachable, true)

	cur := openLog(t, []tracelog.Record{{Type: tracelog.TypeDVBranch, Arg1: 1}, {Type: tracelog.TypeFN}})
	a := New(b.Module(), cur)
	if err := a.ProcessFunc(fn); err != nil {
		t.Fatalf("ProcessFunc: %v", err)
	}
	seq := a.Sequence()
	if len(seq) != 2 {
		t.Fatalf("got %d entries, want 2 (br, unreachable)", len(seq))
	}
	if seq[1].Instr.Parent != bb2 {
		t.Fatalf("branch did not follow arg1=1 to bb2")
	}
}

func TestAligner_switchFallsBackToDefault(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Func("f", true, "x")
	entry := b.Block(fn, "entry")
	bb1 := b.Block(fn, "bb1")
	def := b.Block(fn, "default")
	sw := b.Instr(entry, "", ir.OpSwitch, true, fn.Params[0])
	sw.Cases = map[int64]*ir.Block{1: bb1}
	sw.Default = def
	b.Instr(bb1, "", ir.OpUnreachable, true)
	b.Instr(def, "", ir.OpUnreachable, true)

	cur := openLog(t, []tracelog.Record{{Type: tracelog.TypeDVSwitch, Arg1: 99}, {Type: tracelog.TypeFN}})
	a := New(b.Module(), cur)
	if err := a.ProcessFunc(fn); err != nil {
		t.Fatalf("ProcessFunc: %v", err)
	}
	if a.Sequence()[1].Instr.Parent != def {
		t.Fatalf("switch did not fall back to default for an unmatched case")
	}
}

func TestAligner_phiSynthesizesIncomingIndex(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Func("f", true, "a", "b")
	entry := b.Block(fn, "entry")
	bb1 := b.Block(fn, "bb1")
	bb2 := b.Block(fn, "bb2")
	join := b.Block(fn, "join")
	br := b.Instr(entry, "", ir.OpBr, true)
	br.Successors = []*ir.Block{bb1, bb2}
	br1 := b.Instr(bb1, "", ir.OpBr, true)
	br1.Successors = []*ir.Block{join}
	br2 := b.Instr(bb2, "", ir.OpBr, true)
	br2.Successors = []*ir.Block{join}
	phi := b.Instr(join, "m", ir.OpPhi, false, fn.Params[0], fn.Params[1])
	phi.IncomingBlocks = []*ir.Block{bb1, bb2}

	cur := openLog(t, []tracelog.Record{
		{Type: tracelog.TypeDVBranch, Arg1: 1}, // entry -> bb2
		{Type: tracelog.TypeDVBranch, Arg1: 0}, // bb2 -> join
		{Type: tracelog.TypeFN},
	})
	a := New(b.Module(), cur)
	if err := a.ProcessFunc(fn); err != nil {
		t.Fatalf("ProcessFunc: %v", err)
	}
	seq := a.Sequence()
	last := seq[len(seq)-1]
	if last.Instr != phi {
		t.Fatalf("last entry is not the phi")
	}
	if !last.Synthetic || last.Dyn.Arg1 != 1 {
		t.Fatalf("got synthetic=%v arg1=%d, want synthetic/1 (incoming index of bb2)", last.Synthetic, last.Dyn.Arg1)
	}
}

func TestAligner_callDescendsThenAppendsPostOrder(t *testing.T) {
	b := ir.NewBuilder()
	callee := b.Func("callee", false)
	cblk := b.Block(callee, "entry")
	load := b.Instr(cblk, "v", ir.OpLoad, false, b.Const("addr"))
	ret := b.Instr(cblk, "", ir.OpRet, false, load)

	caller := b.Func("caller", true)
	blk := b.Block(caller, "entry")
	call := b.Instr(blk, "r", ir.OpCall, false)
	call.CalleeName = "callee"
	call.Callee = callee

	cur := openLog(t, []tracelog.Record{{Type: tracelog.TypeDVLoad}, {Type: tracelog.TypeFN}})
	a := New(b.Module(), cur)
	if err := a.ProcessFunc(caller); err != nil {
		t.Fatalf("ProcessFunc: %v", err)
	}
	seq := a.Sequence()
	if len(seq) != 3 {
		t.Fatalf("got %d entries, want 3 (load, ret, call)", len(seq))
	}
	if seq[0].Instr != load || seq[1].Instr != ret {
		t.Fatalf("callee body not ordered first")
	}
	if seq[2].Instr != call {
		t.Fatalf("call site was not appended after its callee's body")
	}
}

func TestAligner_exceptionTruncatesWalk(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Func("f", true)
	blk := b.Block(fn, "entry")
	b.Instr(blk, "v1", ir.OpOther, false)
	b.Instr(blk, "v2", ir.OpOther, false)

	cur := openLog(t, []tracelog.Record{{Type: tracelog.TypeException}})
	a := New(b.Module(), cur)
	if err := a.ProcessFunc(fn); err != nil {
		t.Fatalf("ProcessFunc: %v", err)
	}
	if !a.Truncated() {
		t.Fatalf("expected the walk to be marked truncated")
	}
	if len(a.Sequence()) != 0 {
		t.Fatalf("got %d entries, want 0 after an immediate exception", len(a.Sequence()))
	}
}

func TestAligner_desyncedRecordTypeIsFatal(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Func("f", true)
	blk := b.Block(fn, "entry")
	b.Instr(blk, "", ir.OpStore, true, nil, nil)

	cur := openLog(t, []tracelog.Record{{Type: tracelog.TypeDVLoad}})
	a := New(b.Module(), cur)
	if err := a.ProcessFunc(fn); err == nil {
		t.Fatalf("expected a desync error for a DV_LOAD record feeding a store")
	}
}
