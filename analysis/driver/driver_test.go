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

package driver

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/superf0sh/panda/analysis/config"
	"github.com/superf0sh/panda/internal/ir"
	"github.com/superf0sh/panda/internal/tracelog"
)

const headerSize = 20
const recordSize = 56

func writeLog(t *testing.T, records []tracelog.Record) *tracelog.Reader {
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

func TestRun_singleBlockStopsOnEmptyWorkSet(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Func("tcg-llvm-tb-1-0x1000", true)
	blk := b.Block(fn, "entry")
	v := b.Instr(blk, "v", ir.OpOther, false)
	store := b.Instr(blk, "", ir.OpStore, true, v, v)
	_ = store

	cur := writeLog(t, []tracelog.Record{
		{Type: tracelog.TypeFN, Arg1: 1, PC: 0x1000},
		{Type: tracelog.TypeDVStore, Arg1: 0, Arg2: 0},
	})
	logs := config.NewLogGroup(config.NewDefault())

	res, err := Run(Request{
		Module:            b.Module(),
		Log:               cur,
		Criteria:          []string{"REG_0"},
		MaxInstrsPerBlock: 2048,
	}, logs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.BlocksSliced != 1 {
		t.Fatalf("got %d blocks sliced, want 1", res.BlocksSliced)
	}
	if !res.Marked.IsMarked(fn.Name, 0, 0) {
		t.Fatalf("expected the store marked")
	}
}

func TestRun_missingIRFunctionIsFatal(t *testing.T) {
	mod := ir.NewBuilder().Module()
	cur := writeLog(t, []tracelog.Record{{Type: tracelog.TypeFN, Arg1: 7, PC: 0x2000}})
	logs := config.NewLogGroup(config.NewDefault())

	_, err := Run(Request{
		Module:            mod,
		Log:               cur,
		Criteria:          []string{"REG_0"},
		MaxInstrsPerBlock: 2048,
	}, logs)
	if err == nil {
		t.Fatalf("expected an error for an unresolvable translation block")
	}
}

func TestRun_desyncedLeadRecordIsFatal(t *testing.T) {
	b := ir.NewBuilder()
	b.Func("f", true)
	cur := writeLog(t, []tracelog.Record{{Type: tracelog.TypeDVLoad}})
	logs := config.NewLogGroup(config.NewDefault())

	_, err := Run(Request{
		Module:            b.Module(),
		Log:               cur,
		Criteria:          []string{"REG_0"},
		MaxInstrsPerBlock: 2048,
	}, logs)
	if err == nil {
		t.Fatalf("expected an error when the next record isn't FN")
	}
}

func TestRun_logExhaustionStopsCleanly(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Func("tcg-llvm-tb-1-0x1000", true)
	blk := b.Block(fn, "entry")
	val := b.Const("1")
	addr := b.Const("0")
	b.Instr(blk, "", ir.OpStore, true, val, addr)

	// The log ends exactly after this block's one record: nothing follows
	// the store, so the run can only stop via "log exhausted," not via an
	// emptied working set.
	cur := writeLog(t, []tracelog.Record{
		{Type: tracelog.TypeFN, Arg1: 1, PC: 0x1000},
		{Type: tracelog.TypeDVStore, Arg1: 0, Arg2: 5},
	})
	logs := config.NewLogGroup(config.NewDefault())

	res, err := Run(Request{
		Module: b.Module(),
		Log:    cur,
		// Criterion that nothing in this block ever defines, so the loop
		// only stops because the log itself ran out.
		Criteria:          []string{"REG_99"},
		MaxInstrsPerBlock: 2048,
	}, logs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.BlocksSliced != 1 {
		t.Fatalf("got %d blocks, want 1", res.BlocksSliced)
	}
	if !res.Work.Contains("REG_99") {
		t.Fatalf("criterion should still be live: never explained by a marked def")
	}
}
