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

package report

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/superf0sh/panda/internal/marks"
)

// WriteMarksDump writes a plain-text, line-oriented encoding of marked:
// one "function\tblockOrdinal\tinstrOrdinal" triple per mark, sorted for a
// stable diff. This is the machine-readable counterpart to PrintMarked,
// letting `dynslice render` re-render a previous run's marked map without re-slicing.
func WriteMarksDump(w io.Writer, marked *marks.Map) error {
	all := marked.All()
	sort.Slice(all, func(i, j int) bool {
		if all[i].Func != all[j].Func {
			return all[i].Func < all[j].Func
		}
		if all[i].BlockOrdinal != all[j].BlockOrdinal {
			return all[i].BlockOrdinal < all[j].BlockOrdinal
		}
		return all[i].InstrOrdinal < all[j].InstrOrdinal
	})

	for _, mk := range all {
		if _, err := fmt.Fprintf(w, "%s\t%d\t%d\n", mk.Func, mk.BlockOrdinal, mk.InstrOrdinal); err != nil {
			return err
		}
	}
	return nil
}

// ReadMarksDump parses the format WriteMarksDump produces into a fresh
// *marks.Map with the given MAX_INSTRS_PER_BLOCK bound.
func ReadMarksDump(r io.Reader, maxInstrsPerBlock int) (*marks.Map, error) {
	m := marks.New(maxInstrsPerBlock)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) != 3 {
			return nil, fmt.Errorf("report: marks dump line %d: expected 3 tab-separated fields, got %d", line, len(fields))
		}
		blockOrdinal, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("report: marks dump line %d: bad block ordinal %q: %w", line, fields[1], err)
		}
		instrOrdinal, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("report: marks dump line %d: bad instruction ordinal %q: %w", line, fields[2], err)
		}
		if err := m.Mark(fields[0], blockOrdinal, instrOrdinal); err != nil {
			return nil, fmt.Errorf("report: marks dump line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("report: reading marks dump: %w", err)
	}
	return m, nil
}
