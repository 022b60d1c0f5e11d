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

// Package tracelog reads the dynamic-value log: the translator's record of
// every load, store, branch, select, switch and function entry that
// actually executed. It plays the role of the "Log I/O" collaborator.
package tracelog

import "fmt"

// Type enumerates the kinds of record the log contains. Ordering mirrors
// the producer's own enum, but the numeric values are this repository's
// choice (see DESIGN.md); nothing outside this package depends on them.
type Type uint64

const (
	TypeFN Type = iota
	TypeDVLoad
	TypeDVStore
	TypeDVBranch
	TypeDVSelect
	TypeDVSwitch
	TypeException
)

func (t Type) String() string {
	switch t {
	case TypeFN:
		return "FN"
	case TypeDVLoad:
		return "DV_LOAD"
	case TypeDVStore:
		return "DV_STORE"
	case TypeDVBranch:
		return "DV_BRANCH"
	case TypeDVSelect:
		return "DV_SELECT"
	case TypeDVSwitch:
		return "DV_SWITCH"
	case TypeException:
		return "EXCEPTION"
	default:
		return fmt.Sprintf("Type(%d)", uint64(t))
	}
}

// headerSize is the number of opaque bytes preceding the first record.
const headerSize = 20

// recordSize is the packed, fixed size of one Record on disk.
const recordSize = 56

// Record is one fixed 56-byte dynamic log entry: { asid, pc, type, arg1,
// arg2, arg3, arg4 }, all u64. decode always reads them little-endian,
// whatever the byte order of the host running the reader.
type Record struct {
	ASID uint64
	PC   uint64
	Type Type
	Arg1 uint64
	Arg2 uint64
	Arg3 uint64
	Arg4 uint64
}

func (r Record) String() string {
	return fmt.Sprintf("%x %x %s %x %x %x %x", r.ASID, r.PC, r.Type, r.Arg1, r.Arg2, r.Arg3, r.Arg4)
}
