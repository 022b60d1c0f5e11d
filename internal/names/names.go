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

// Package names is the canonical location-name model shared by the
// use/def extractor, the aligner and the slicer. The slicer never compares
// IR objects by identity; it compares the strings this package produces,
// which is what lets an argument-binding substitution at a call boundary
// be plain string replacement instead of object-graph surgery.
package names

import (
	"fmt"

	"github.com/superf0sh/panda/internal/ir"
)

// LocReg names guest CPU register slot n.
func LocReg(n uint64) string { return fmt.Sprintf("REG_%d", n) }

// LocHost names host (translator-internal) address cell n.
func LocHost(n uint64) string { return fmt.Sprintf("HOST_%d", n) }

// LocSpec names guest special-purpose register slot n.
func LocSpec(n uint64) string { return fmt.Sprintf("SPEC_%d", n) }

// LocMem names the guest physical memory byte at addr.
func LocMem(addr uint64) string { return fmt.Sprintf("MEM_%x", addr) }

// Retval names the abstract return-value slot of fname.
func Retval(fname string) string { return fname + ".retval" }

// NameOf returns v's declared name, or a stable synthetic name if v is
// unnamed. v must not be nil.
func NameOf(v ir.Value) string { return v.Name() }

// InsertValue inserts NameOf(v) into set, unless v is a compile-time
// constant: constants never enter a use/def set.
func InsertValue(set Set, v ir.Value) {
	if v == nil || v.IsConst() {
		return
	}
	set.Add(NameOf(v))
}
