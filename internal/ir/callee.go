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

import "strings"

// IsIgnoredCallee reports whether a call to a function named name is one of
// the translator's well-known runtime helpers (memory access thunks,
// intrinsics, the dynamic-value logger) rather than ordinary translated
// code. The Aligner never recurses into these; the Slicer never pushes an
// argument-binding frame for them. Grounded on dynslice.cpp's is_ignored.
func IsIgnoredCallee(name string) bool {
	switch {
	case strings.HasPrefix(name, "__ld"),
		strings.HasPrefix(name, "__st"),
		strings.HasPrefix(name, "llvm.memcpy"),
		strings.HasPrefix(name, "llvm.memset"),
		strings.HasPrefix(name, "helper_in"),
		strings.HasPrefix(name, "helper_out"),
		name == "log_dynval":
		return true
	default:
		return false
	}
}

// MemAccessSize returns the byte width encoded by a __ld/__st helper's size
// suffix ('q','l','w','b' -> 8,4,2,1), and false if suffix isn't recognized.
// Grounded on dynslice.cpp's handleCall size switch.
func MemAccessSize(suffixByte byte) (int, bool) {
	switch suffixByte {
	case 'q':
		return 8, true
	case 'l':
		return 4, true
	case 'w':
		return 2, true
	case 'b':
		return 1, true
	default:
		return 0, false
	}
}
