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

// Package marks is the marked-instruction map: which static instructions
// were found live by at least one dynamic execution, keyed by function and
// block ordinal. It plays the role of the Marked Map.
package marks

import (
	"fmt"

	"golang.org/x/tools/container/intsets"
)

// blockKey identifies one basic block within the whole module.
type blockKey struct {
	fn      string
	ordinal int
}

// Map is the marked-instruction map. The zero value is not usable; use New.
type Map struct {
	limit  int
	blocks map[blockKey]*intsets.Sparse
}

// New returns an empty Map that rejects marking any instruction ordinal at
// or beyond limit.
func New(limit int) *Map {
	return &Map{limit: limit, blocks: map[blockKey]*intsets.Sparse{}}
}

// Mark records that instruction instrOrdinal in block blockOrdinal of
// function fn was found live. It returns an error if instrOrdinal is at or
// beyond the configured MAX_INSTRS_PER_BLOCK bound, a fatal program error.
func (m *Map) Mark(fn string, blockOrdinal, instrOrdinal int) error {
	if instrOrdinal < 0 || instrOrdinal >= m.limit {
		return fmt.Errorf("marks: instruction ordinal %d in %s block %d exceeds MAX_INSTRS_PER_BLOCK=%d",
			instrOrdinal, fn, blockOrdinal, m.limit)
	}
	key := blockKey{fn, blockOrdinal}
	bs, ok := m.blocks[key]
	if !ok {
		bs = &intsets.Sparse{}
		m.blocks[key] = bs
	}
	bs.Insert(instrOrdinal)
	return nil
}

// IsMarked reports whether instruction instrOrdinal in the given block was
// previously marked.
func (m *Map) IsMarked(fn string, blockOrdinal, instrOrdinal int) bool {
	bs, ok := m.blocks[blockKey{fn, blockOrdinal}]
	if !ok {
		return false
	}
	return bs.Has(instrOrdinal)
}

// Block returns the sorted instruction ordinals marked in one block.
func (m *Map) Block(fn string, blockOrdinal int) []int {
	bs, ok := m.blocks[blockKey{fn, blockOrdinal}]
	if !ok {
		return nil
	}
	return bs.AppendTo(nil)
}

// Count returns the total number of marked instructions across the module.
func (m *Map) Count() int {
	total := 0
	for _, bs := range m.blocks {
		total += bs.Len()
	}
	return total
}

// NumBlocks returns the number of distinct (function, block) pairs with at
// least one marked instruction.
func (m *Map) NumBlocks() int {
	return len(m.blocks)
}

// Merge adds every mark in other to m, for accumulating the per-translation-
// block marked maps the Slicer returns into one whole-run result.
func (m *Map) Merge(other *Map) {
	for key, bs := range other.blocks {
		dst, ok := m.blocks[key]
		if !ok {
			dst = &intsets.Sparse{}
			m.blocks[key] = dst
		}
		dst.UnionWith(bs)
	}
}

// Mark3 is one (function, block, instruction) triple pulled out of a Map by
// All, e.g. for serializing a whole run's marks.
type Mark3 struct {
	Func         string
	BlockOrdinal int
	InstrOrdinal int
}

// All returns every mark in m as a flat, unordered list of triples.
func (m *Map) All() []Mark3 {
	var out []Mark3
	for key, bs := range m.blocks {
		for _, instrOrdinal := range bs.AppendTo(nil) {
			out = append(out, Mark3{Func: key.fn, BlockOrdinal: key.ordinal, InstrOrdinal: instrOrdinal})
		}
	}
	return out
}

// BlockCounts returns the number of marked instructions in each block that
// has at least one, in no particular order. Used by analysis/report.Stats
// to compute slice-density statistics without needing to know the module's
// block layout.
func (m *Map) BlockCounts() []int {
	counts := make([]int, 0, len(m.blocks))
	for _, bs := range m.blocks {
		counts = append(counts, bs.Len())
	}
	return counts
}

// Functions returns the names of every function with at least one marked
// block, for deterministic report iteration order handled by the caller.
func (m *Map) Functions() []string {
	seen := map[string]bool{}
	var out []string
	for k := range m.blocks {
		if !seen[k.fn] {
			seen[k.fn] = true
			out = append(out, k.fn)
		}
	}
	return out
}
