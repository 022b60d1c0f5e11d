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
	"strings"

	"github.com/pkg/errors"

	"github.com/superf0sh/panda/analysis/config"
	"github.com/superf0sh/panda/internal/ir"
	"github.com/superf0sh/panda/internal/tracelog"
)

// Aligner walks a function's static CFG guided by the dynamic log,
// recursing into callees and building a single flat aligned sequence
// shared across the whole call tree (PHI synthesis needs to see across
// call boundaries, so the sequence can't be kept per-function).
type Aligner struct {
	mod       *ir.Module
	cur       *tracelog.Reader
	seq       []Entry
	truncated bool

	// Logger, when set, receives per-instruction tracing at DebugLevel (the
	// -d CLI flag). A nil Logger is a silent no-op, so callers that don't
	// care about tracing (most tests) can leave it unset.
	Logger *config.LogGroup
}

// New returns an Aligner reading from cur against mod.
func New(mod *ir.Module, cur *tracelog.Reader) *Aligner {
	return &Aligner{mod: mod, cur: cur}
}

// debugf traces one instruction's alignment, a no-op when no Logger is set.
func (a *Aligner) debugf(format string, v ...any) {
	if a.Logger != nil {
		a.Logger.Debugf(format, v...)
	}
}

// Sequence returns the aligned entries produced so far.
func (a *Aligner) Sequence() []Entry { return a.seq }

// Truncated reports whether an exception record cut the walk short.
func (a *Aligner) Truncated() bool { return a.truncated }

// ProcessFunc performs the recursive-descent alignment of fn against the
// Aligner's log cursor.
func (a *Aligner) ProcessFunc(fn *ir.Function) error {
	block := fn.EntryBlock()
	if block == nil {
		return errors.Errorf("align: function %s has no blocks", fn.Name)
	}
	haveSuccessor := true
	for haveSuccessor {
		haveSuccessor = false
		bbIndex := fn.BlockOrdinal(block)

	instrLoop:
		for instrIdx, instr := range block.Instrs {
			if a.truncated {
				return nil
			}
			peek, err := a.cur.Peek()
			if err != nil {
				return errors.Wrapf(err, "align: %s: reading log before %s", fn.Name, instr.Opcode)
			}
			if peek.Type == tracelog.TypeException {
				a.truncated = true
				if _, err := a.cur.Next(); err != nil {
					return errors.Wrapf(err, "align: %s: consuming exception record", fn.Name)
				}
				return nil
			}

			e := Entry{Index: PackIndex(bbIndex, instrIdx), Func: fn, Instr: instr}
			a.debugf("align: %s block %d instr %d: %s", fn.Name, bbIndex, instrIdx, instr.Opcode)

			switch instr.Opcode {
			case ir.OpLoad:
				rec, err := a.consume(tracelog.TypeDVLoad, fn, instr)
				if err != nil {
					return err
				}
				e.Dyn = &rec
				a.seq = append(a.seq, e)

			case ir.OpStore:
				if !instr.Volatile {
					rec, err := a.consume(tracelog.TypeDVStore, fn, instr)
					if err != nil {
						return err
					}
					e.Dyn = &rec
					a.seq = append(a.seq, e)
				}
				// volatile store: no entry appended, no record consumed

			case ir.OpBr:
				rec, err := a.consume(tracelog.TypeDVBranch, fn, instr)
				if err != nil {
					return err
				}
				e.Dyn = &rec
				a.seq = append(a.seq, e)
				idx := int(rec.Arg1)
				if idx < 0 || idx >= len(instr.Successors) {
					return errors.Errorf("align: %s: br successor index %d out of range (%d successors)", fn.Name, idx, len(instr.Successors))
				}
				block = instr.Successors[idx]
				haveSuccessor = true
				break instrLoop

			case ir.OpSwitch:
				rec, err := a.consume(tracelog.TypeDVSwitch, fn, instr)
				if err != nil {
					return err
				}
				e.Dyn = &rec
				a.seq = append(a.seq, e)
				target := instr.FindCase(int64(rec.Arg1))
				if target == nil {
					return errors.Errorf("align: %s: switch on value %d matched no case and has no default", fn.Name, rec.Arg1)
				}
				block = target
				haveSuccessor = true
				break instrLoop

			case ir.OpSelect:
				rec, err := a.consume(tracelog.TypeDVSelect, fn, instr)
				if err != nil {
					return err
				}
				e.Dyn = &rec
				a.seq = append(a.seq, e)

			case ir.OpPhi:
				idx, ok := a.phiIncomingIndex(instr)
				if !ok {
					return errors.Errorf("align: %s: phi %s has no preceding non-PHI entry to synthesize an incoming edge from", fn.Name, instr.Name())
				}
				synth := tracelog.Record{Arg1: uint64(idx)}
				e.Dyn = &synth
				e.Synthetic = true
				a.seq = append(a.seq, e)

			case ir.OpCall:
				if err := a.processCall(fn, &e, instr); err != nil {
					return err
				}

			default:
				// arithmetic, ret, unreachable, and other instructions
				// that produce no dynamic record.
				a.seq = append(a.seq, e)
			}
		}
	}
	return nil
}

// consume reads the next log record, asserting it has the expected type.
// A type mismatch is fatal: it means the log and the static IR have
// desynchronized.
func (a *Aligner) consume(want tracelog.Type, fn *ir.Function, instr *ir.Instruction) (tracelog.Record, error) {
	rec, err := a.cur.Next()
	if err != nil {
		return tracelog.Record{}, errors.Wrapf(err, "align: %s: expected a %s record for %s", fn.Name, want, instr.Opcode)
	}
	if rec.Type != want {
		return tracelog.Record{}, errors.Errorf("align: %s: desynchronized log: expected %s for %s, got %s", fn.Name, want, instr.Opcode, rec.Type)
	}
	return rec, nil
}

// processCall appends e for instr, consuming whatever records the callee's
// classification requires and, for an ordinary callee, recursing into it
// first so the call site lands after its callee's entries in the sequence.
func (a *Aligner) processCall(fn *ir.Function, e *Entry, instr *ir.Instruction) error {
	name := instr.CalleeName
	switch {
	case strings.HasPrefix(name, "__ld"):
		rec, err := a.consume(tracelog.TypeDVLoad, fn, instr)
		if err != nil {
			return err
		}
		e.Dyn = &rec

	case strings.HasPrefix(name, "__st"):
		rec, err := a.consume(tracelog.TypeDVStore, fn, instr)
		if err != nil {
			return err
		}
		e.Dyn = &rec

	case strings.HasPrefix(name, "llvm.memcpy"):
		rec1, err := a.consume(tracelog.TypeDVLoad, fn, instr)
		if err != nil {
			return err
		}
		rec2, err := a.consume(tracelog.TypeDVStore, fn, instr)
		if err != nil {
			return err
		}
		e.Dyn, e.Dyn2 = &rec1, &rec2

	case strings.HasPrefix(name, "llvm.memset"):
		rec, err := a.consume(tracelog.TypeDVStore, fn, instr)
		if err != nil {
			return err
		}
		e.Dyn = &rec

	case strings.HasPrefix(name, "helper_in"):
		rec, err := a.consume(tracelog.TypeDVLoad, fn, instr)
		if err != nil {
			return err
		}
		e.Dyn = &rec

	case strings.HasPrefix(name, "helper_out"):
		rec, err := a.consume(tracelog.TypeDVStore, fn, instr)
		if err != nil {
			return err
		}
		e.Dyn = &rec

	case name == "log_dynval", instr.Callee == nil:
		// Instrumentation call, or an unresolved/declaration-like callee:
		// appended with no record consumed.

	default:
		if err := a.ProcessFunc(instr.Callee); err != nil {
			return err
		}
	}
	a.seq = append(a.seq, *e)
	return nil
}

// phiIncomingIndex finds the last non-PHI entry already in the sequence
// and returns phi's incoming-edge index for that entry's block.
func (a *Aligner) phiIncomingIndex(phi *ir.Instruction) (int, bool) {
	for i := len(a.seq) - 1; i >= 0; i-- {
		if a.seq[i].Instr.Opcode == ir.OpPhi {
			continue
		}
		return phi.IncomingIndex(a.seq[i].Instr.Parent)
	}
	return 0, false
}
