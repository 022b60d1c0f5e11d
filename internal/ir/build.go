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

package ir

// Builder assembles a Module one function/block/instruction at a time,
// handing out stable synthetic value identities along the way. Both Parse
// and hand-written test fixtures go through a Builder so that an unnamed
// value's synthetic name ("LV_<id>") is deterministic and doesn't depend on
// Go's pointer layout.
type Builder struct {
	mod    *Module
	nextID uint64
}

// NewBuilder returns a Builder for a fresh, empty Module.
func NewBuilder() *Builder {
	return &Builder{mod: NewModule()}
}

// Module returns the Module being built.
func (b *Builder) Module() *Module {
	return b.mod
}

func (b *Builder) id() uint64 {
	b.nextID++
	return b.nextID
}

// Func declares (or returns the existing) function named name.
func (b *Builder) Func(name string, resultVoid bool, paramNames ...string) *Function {
	if f, ok := b.mod.Functions[name]; ok {
		return f
	}
	f := &Function{Name: name, ResultVoid: resultVoid}
	for idx, pn := range paramNames {
		f.Params = append(f.Params, &Arg{valueBase: valueBase{name: pn, id: b.id()}, Index: idx})
	}
	b.mod.Functions[name] = f
	return f
}

// Block appends a new basic block to f.
func (b *Builder) Block(f *Function, name string) *Block {
	blk := &Block{Name: name, Func: f, Ordinal: len(f.Blocks)}
	f.Blocks = append(f.Blocks, blk)
	return blk
}

// Const returns a new constant operand with the given textual representation.
func (b *Builder) Const(text string) *Const {
	return &Const{valueBase: valueBase{name: text, id: b.id()}, Text: text}
}

// Instr appends a new instruction to blk and returns it. name may be empty,
// in which case the instruction gets a synthetic name when Name() is
// called. void must be true for instructions that define no SSA value
// (store, br, switch, unreachable, void calls).
func (b *Builder) Instr(blk *Block, name string, op Opcode, void bool, operands ...Value) *Instruction {
	instr := &Instruction{
		valueBase: valueBase{name: name, id: b.id()},
		Opcode:    op,
		Void:      void,
		Operands:  operands,
		Parent:    blk,
		Ordinal:   len(blk.Instrs),
	}
	blk.Instrs = append(blk.Instrs, instr)
	return instr
}
