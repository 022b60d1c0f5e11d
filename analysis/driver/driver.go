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

// Package driver ties the Log I/O, IR Model, Aligner and Slicer together
// into the top-level driver loop.
package driver

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/superf0sh/panda/analysis/config"
	"github.com/superf0sh/panda/internal/align"
	"github.com/superf0sh/panda/internal/graphutil"
	"github.com/superf0sh/panda/internal/ir"
	"github.com/superf0sh/panda/internal/marks"
	"github.com/superf0sh/panda/internal/names"
	"github.com/superf0sh/panda/internal/slicer"
	"github.com/superf0sh/panda/internal/tracelog"
)

// EntryPoint names the translation block a run should fast-forward the log
// cursor to before slicing starts, per the CLI's -n/-p pair.
type EntryPoint struct {
	TBNum uint64
	PC    uint64
}

// Request is everything one driver run needs.
type Request struct {
	Module          *ir.Module
	Log             *tracelog.Reader
	Criteria        []string
	IncludeBranches bool
	MaxInstrsPerBlock int
	// Entry fast-forwards the cursor to a specific (tb_num, pc) FN record
	// before slicing starts. Nil means start at the first record.
	Entry *EntryPoint
	// Progress, if non-nil, is called after every translation block with
	// the log's fractional progress in [0,1].
	Progress func(fraction float64)
}

// Result is the outcome of a full driver run: the accumulated marked map
// and the working set as it stood when the run stopped.
type Result struct {
	Marked       *marks.Map
	Work         names.Set
	BlocksSliced int
}

// Run executes the top-level driver loop: seed the working set, optionally
// fast-forward, then align and slice one translation block at a time until
// the working set empties or the log is exhausted.
func Run(req Request, logs *config.LogGroup) (*Result, error) {
	if cycles := graphutil.CheckRecursion(req.Module); len(cycles) > 0 {
		for _, c := range cycles {
			logs.Warnf("static call graph has a cycle: %v; the aligner still descends into it and will desynchronize against a finite log if it actually recurses at runtime", c)
		}
	}

	work := names.NewSet(req.Criteria...)
	marked := marks.New(req.MaxInstrsPerBlock)

	if req.Entry != nil {
		if err := req.Log.FastForward(req.Entry.TBNum, req.Entry.PC); err != nil {
			return nil, errors.Wrapf(err, "fast-forward to tb_num=%d pc=%#x", req.Entry.TBNum, req.Entry.PC)
		}
	}

	opts := slicer.Options{IncludeBranches: req.IncludeBranches, MaxInstrsPerBlock: req.MaxInstrsPerBlock, Logger: logs}
	blocks := 0

	for {
		if work.Len() == 0 {
			logs.Infof("working set emptied after %d translation blocks", blocks)
			break
		}

		peek, err := req.Log.Peek()
		if err == io.EOF {
			logs.Infof("log exhausted after %d translation blocks", blocks)
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading next translation-block entry")
		}
		if peek.Type != tracelog.TypeFN {
			return nil, errors.Errorf("desynchronized log: expected an FN record, got %s at offset %d", peek.Type, req.Log.Offset())
		}

		rec, err := req.Log.Next()
		if err != nil {
			return nil, errors.Wrap(err, "consuming FN record")
		}

		fnName := tbFuncName(rec)
		fn, ok := req.Module.Func(fnName)
		if !ok {
			return nil, errors.Errorf("fatal: no IR function %q for translation block tb_num=%d pc=%#x", fnName, rec.Arg1, rec.PC)
		}

		a := align.New(req.Module, req.Log)
		a.Logger = logs
		if err := a.ProcessFunc(fn); err != nil {
			return nil, errors.Wrapf(err, "aligning %s", fnName)
		}

		m, w, err := slicer.Slice(a.Sequence(), work, fn, opts)
		if err != nil {
			return nil, errors.Wrapf(err, "slicing %s", fnName)
		}
		marked.Merge(m)
		work = slicer.Finalize(w, fn)
		blocks++

		logs.Tracef("translation block %d (%s): working set = %v", blocks, fnName, work.Sorted())

		warnImprecision(a.Sequence(), logs)

		if req.Progress != nil && req.Log.Size() > 0 {
			req.Progress(float64(req.Log.Offset()) / float64(req.Log.Size()))
		}
	}

	return &Result{Marked: marked, Work: work, BlocksSliced: blocks}, nil
}

// tbFuncName computes the IR function name for a translation-block entry
// record, step 4.
func tbFuncName(rec tracelog.Record) string {
	return fmt.Sprintf("tcg-llvm-tb-%d-%#x", rec.Arg1, rec.PC)
}

// warnImprecision logs a one-time-per-callee warning for the documented
// memcpy/memset/helper_in/helper_out imprecision, so a user relying on
// byte-level precision through these calls is told instead of silently
// under-approximated.
func warnImprecision(seq []align.Entry, logs *config.LogGroup) {
	for _, e := range seq {
		if e.Instr.Opcode != ir.OpCall {
			continue
		}
		name := e.Instr.CalleeName
		switch {
		case hasAnyPrefix(name, "llvm.memcpy", "llvm.memset", "helper_in", "helper_out"):
			logs.WarnOnce(name, "call to %s contributes no uses/defs (byte-level effects through this helper are not modeled)", name)
		}
	}
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if len(s) >= len(p) && s[:len(p)] == p {
			return true
		}
	}
	return false
}
