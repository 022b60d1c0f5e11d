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

package names

// AddrKind is the address-kind byte packed into a load/store record's
// arg1. The producer's actual byte values aren't part of the slicing
// algorithm's observable behavior (only the resulting location name is),
// so these constants are this repository's own choice rather than a value
// recovered from elsewhere; see DESIGN.md.
type AddrKind byte

const (
	AddrGReg  AddrKind = 0
	AddrMAddr AddrKind = 1
	AddrGSpec AddrKind = 2
)

// flagIrrelevant is the addr-entry flag byte that suppresses register/
// memory def or use generation (but never SSA def generation on loads).
const flagIrrelevant byte = 1

// DecodeAddrEntry unpacks a load/store record's arg1 into its address
// kind, irrelevant flag, and offset, per the addr-entry encoding: low byte
// kind, second byte flag, remaining 48 bits offset.
func DecodeAddrEntry(arg1 uint64) (kind AddrKind, irrelevant bool, offset uint64) {
	kind = AddrKind(byte(arg1))
	irrelevant = byte(arg1>>8) == flagIrrelevant
	offset = arg1 >> 16
	return kind, irrelevant, offset
}

// LocationFor returns the canonical location name for an address kind and
// offset, or ok=false for an address kind this repository doesn't
// recognize. MAddr names a HOST_ location, not a MEM_ one: it identifies a
// host (translator-internal) address cell touched through a load/store's
// addr-entry, as distinct from the guest physical memory bytes named by
// the __ld/__st helper calls in internal/usedef.
func LocationFor(kind AddrKind, offset uint64) (loc string, ok bool) {
	switch kind {
	case AddrGReg:
		return LocReg(offset), true
	case AddrMAddr:
		return LocHost(offset), true
	case AddrGSpec:
		return LocSpec(offset), true
	default:
		return "", false
	}
}
