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

// Package align walks a function's static control-flow graph guided by the
// dynamic log, producing the aligned instruction sequence the Slicer walks
// backward. It plays the role of the Aligner.
package align

import (
	"github.com/superf0sh/panda/internal/ir"
	"github.com/superf0sh/panda/internal/tracelog"
)

// Entry is one aligned instruction: a static instruction paired with the
// dynamic record(s) it consumed, if any.
type Entry struct {
	// Index packs (block_ordinal<<16)|instruction_ordinal, identifying the
	// instruction's static position within its function.
	Index uint32
	Func  *ir.Function
	Instr *ir.Instruction
	// Dyn is the primary dynamic record attached to this instruction, or
	// nil for instructions that produce no record (pure arithmetic, calls
	// into non-ignored callees). For a PHI it is the record synthesized by
	// the Aligner (see Synthetic).
	Dyn *tracelog.Record
	// Dyn2 is the second record consumed by block-copy operations
	// (llvm.memcpy) that log one load and one store.
	Dyn2 *tracelog.Record
	// Synthetic is true for a PHI entry whose Dyn record was synthesized
	// by the Aligner rather than read from the log.
	Synthetic bool
}

// PackIndex encodes a block ordinal and an instruction's ordinal within
// that block into a single combined index.
func PackIndex(blockOrdinal, instrOrdinal int) uint32 {
	return uint32(blockOrdinal)<<16 | uint32(instrOrdinal)
}

// UnpackIndex is the inverse of PackIndex.
func UnpackIndex(index uint32) (blockOrdinal, instrOrdinal int) {
	return int(index >> 16), int(index & 0xffff)
}
