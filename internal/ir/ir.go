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

// Package ir is the translator's instruction graph: functions, basic blocks,
// typed instructions and their operands. It plays the role of the "IR
// loader" collaborator: the core engines (align, usedef, slicer) only ever
// depend on the types in this package, never on how a Module was produced,
// so a real bitcode reader could stand in for Parse without touching them.
package ir

import "fmt"

// Opcode identifies the kind of operation an Instruction performs. The
// use/def extractor dispatches on this set; everything not given its own
// opcode here falls into OpOther (arithmetic, comparison, cast, GEP,
// extract/insert-value, alloca, ...), matching the extractor's "Default"
// bucket.
type Opcode int

const (
	OpLoad Opcode = iota
	OpStore
	OpBr
	OpSwitch
	OpCall
	OpRet
	OpPhi
	OpSelect
	OpUnreachable
	OpOther
)

func (op Opcode) String() string {
	switch op {
	case OpLoad:
		return "load"
	case OpStore:
		return "store"
	case OpBr:
		return "br"
	case OpSwitch:
		return "switch"
	case OpCall:
		return "call"
	case OpRet:
		return "ret"
	case OpPhi:
		return "phi"
	case OpSelect:
		return "select"
	case OpUnreachable:
		return "unreachable"
	default:
		return "other"
	}
}

// Value is anything that can appear as an instruction operand: an
// instruction's own result, a function formal argument, or a constant.
// Constants are never inserted into a use/def set.
type Value interface {
	// Name returns the declared name if the value has one, otherwise a
	// stable synthetic name derived from the value's identity.
	Name() string
	// IsConst reports whether the value is a compile-time constant.
	IsConst() bool
}

// valueBase supplies the name-or-synthetic-name behavior shared by Arg,
// Const and Instruction.
type valueBase struct {
	name string
	id   uint64
}

// Name implements Value.
func (v *valueBase) Name() string {
	if v.name != "" {
		return v.name
	}
	return fmt.Sprintf("LV_%x", v.id)
}

// Arg is a function formal parameter.
type Arg struct {
	valueBase
	Index int // position in Function.Params
}

// IsConst implements Value.
func (*Arg) IsConst() bool { return false }

// Const is a compile-time constant operand (an immediate). Constants carry
// a textual representation for diagnostics but are never named values in
// the use/def sense.
type Const struct {
	valueBase
	Text string
}

// IsConst implements Value.
func (*Const) IsConst() bool { return true }

// Instruction is one static instruction. Depending on Opcode, only a subset
// of the fields below are meaningful; see the comment on each field.
type Instruction struct {
	valueBase

	Opcode Opcode
	// Mnemonic is set for OpOther so diagnostics can name the unmodeled
	// opcode.
	Mnemonic string

	Operands []Value
	// Void is true for instructions that produce no value (store, br,
	// switch, unreachable, and calls to a void-returning callee).
	Void bool

	Parent *Block
	// Ordinal is this instruction's position within Parent.Instrs.
	Ordinal int

	// Volatile is meaningful for OpStore only.
	Volatile bool

	// Successors is meaningful for OpBr (indexed by the dynamic branch
	// record's arg1) and as the set of all case/default targets for
	// OpSwitch (see Cases/Default).
	Successors []*Block

	// Cases and Default are meaningful for OpSwitch only.
	Cases   map[int64]*Block
	Default *Block

	// CalleeName is meaningful for OpCall only and is always set, even when
	// Callee is nil: the ignored runtime helpers (__ldq, helper_in, ...)
	// are never modeled as a Function, but the use/def extractor still
	// needs their name to classify the call (see IsIgnoredCallee).
	CalleeName string
	// Callee is meaningful for OpCall only; nil means either a declaration-
	// only/intrinsic callee or an indirect/unresolved call. The Aligner
	// treats a nil Callee the same as log_dynval: the call site is appended
	// with no record consumed and nothing is descended into. The use/def
	// extractor classifies the call by CalleeName alone, so an unlisted
	// name still defines its result and uses <CalleeName>.retval.
	Callee *Function

	// IncomingBlocks is meaningful for OpPhi only, parallel to Operands:
	// IncomingBlocks[i] is the predecessor from which Operands[i] arrives.
	IncomingBlocks []*Block
}

// IsConst implements Value.
func (*Instruction) IsConst() bool { return false }

// Result returns the Instruction as a Value, or nil if it is void. Modeled
// on LLVM's Instruction-is-a-Value relationship: a non-void instruction
// defines exactly one SSA value, itself.
func (i *Instruction) Result() Value {
	if i.Void {
		return nil
	}
	return i
}

// IncomingIndex returns the index into Operands/IncomingBlocks for the
// value arriving from pred, used by the Aligner to synthesize a PHI's
// dynamic record.
func (i *Instruction) IncomingIndex(pred *Block) (int, bool) {
	for idx, b := range i.IncomingBlocks {
		if b == pred {
			return idx, true
		}
	}
	return 0, false
}

// FindCase returns the successor block for a concrete switch case value,
// falling back to Default if no case matches.
func (i *Instruction) FindCase(val int64) *Block {
	if b, ok := i.Cases[val]; ok {
		return b
	}
	return i.Default
}

// Block is one basic block of a Function.
type Block struct {
	Name    string
	Func    *Function
	Ordinal int // position in Func.Blocks
	Instrs  []*Instruction
}

// Function is one statically-defined function in the translated module.
type Function struct {
	Name       string
	Params     []*Arg
	Blocks     []*Block
	ResultVoid bool
}

// EntryBlock returns the function's first block.
func (f *Function) EntryBlock() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// BlockOrdinal returns the index of b within f.Blocks, or -1 if b does not
// belong to f.
func (f *Function) BlockOrdinal(b *Block) int {
	for idx, fb := range f.Blocks {
		if fb == b {
			return idx
		}
	}
	return -1
}

// Module is the whole translated program: every Function, keyed by name.
type Module struct {
	Functions map[string]*Function
}

// NewModule returns an empty Module.
func NewModule() *Module {
	return &Module{Functions: map[string]*Function{}}
}

// Func looks up a function by name.
func (m *Module) Func(name string) (*Function, bool) {
	f, ok := m.Functions[name]
	return f, ok
}
