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

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Set is the working-set representation: a set of location/value names.
type Set map[string]struct{}

// NewSet returns a Set containing items.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

// Add inserts name into s.
func (s Set) Add(name string) { s[name] = struct{}{} }

// Remove deletes name from s.
func (s Set) Remove(name string) { delete(s, name) }

// Contains reports whether name is in s.
func (s Set) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Clone returns an independent copy of s.
func (s Set) Clone() Set { return Set(maps.Clone(map[string]struct{}(s))) }

// Sorted returns s's members in ascending order, for deterministic
// diagnostics and test assertions.
func (s Set) Sorted() []string {
	out := maps.Keys(map[string]struct{}(s))
	slices.Sort(out)
	return out
}

// Len returns the number of members in s.
func (s Set) Len() int { return len(s) }
