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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/superf0sh/panda/internal/ir"
	"github.com/superf0sh/panda/internal/marks"
)

func fixture(t *testing.T) (*ir.Module, *marks.Map) {
	t.Helper()
	b := ir.NewBuilder()
	fn := b.Func("f", true)
	entry := b.Block(fn, "entry")
	v := b.Instr(entry, "v", ir.OpOther, false)
	b.Instr(entry, "", ir.OpStore, true, v, v)

	m := marks.New(2048)
	// Mark the store (ordinal 1), leaving the defining "v" instruction
	// (ordinal 0) unmarked, so PrintMarked's test can tell the two apart.
	if err := m.Mark("f", 0, 1); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	return b.Module(), m
}

func TestPrintMarked_starsMarkedInstructionOnly(t *testing.T) {
	mod, m := fixture(t)

	var buf bytes.Buffer
	PrintMarked(&buf, mod, m, false)
	out := buf.String()

	if !strings.Contains(out, "function f") {
		t.Fatalf("missing function header, got:\n%s", out)
	}
	lines := strings.Split(out, "\n")
	var marked, unmarked string
	for _, l := range lines {
		switch {
		case strings.Contains(l, "store"):
			marked = l
		case strings.Contains(l, "="):
			unmarked = l
		}
	}
	if !strings.Contains(marked, "*") {
		t.Fatalf("expected the store line to be starred, got: %q", marked)
	}
	if strings.Contains(unmarked, "*") {
		t.Fatalf("the unmarked instruction line should not be starred: %q", unmarked)
	}
}

func TestStats_computesMeanOverMarkedBlocks(t *testing.T) {
	_, m := fixture(t)
	cov := Stats(m)
	if cov.Blocks != 1 {
		t.Fatalf("got %d blocks, want 1", cov.Blocks)
	}
	if cov.TotalMarked != 1 {
		t.Fatalf("got %d total marked, want 1", cov.TotalMarked)
	}
	if cov.Mean != 1 {
		t.Fatalf("got mean %v, want 1", cov.Mean)
	}
}

func TestStats_emptyMapReturnsZeroCoverage(t *testing.T) {
	cov := Stats(marks.New(2048))
	if cov.Blocks != 0 || cov.Mean != 0 || cov.StdDev != 0 {
		t.Fatalf("expected zero-value Coverage, got %+v", cov)
	}
}

func TestWriteDOT_fillsOnlyMarkedBlocks(t *testing.T) {
	mod, m := fixture(t)

	var buf bytes.Buffer
	WriteDOT(&buf, mod, m)
	out := buf.String()

	if !strings.HasPrefix(out, "digraph slice {") {
		t.Fatalf("expected a digraph header, got:\n%s", out)
	}
	if !strings.Contains(out, "fillcolor=lightgrey") {
		t.Fatalf("expected the marked block to be filled, got:\n%s", out)
	}
}

func TestRenderPNG_rasterizesWrittenDOT(t *testing.T) {
	mod, m := fixture(t)

	dir := t.TempDir()
	dotPath := filepath.Join(dir, "slice.dot")
	pngPath := filepath.Join(dir, "slice.png")

	f, err := os.Create(dotPath)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	WriteDOT(f, mod, m)
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := RenderPNG(dotPath, pngPath); err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	info, err := os.Stat(pngPath)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("expected a non-empty PNG file")
	}
}

func TestMarksDump_roundTrips(t *testing.T) {
	_, m := fixture(t)

	var buf bytes.Buffer
	if err := WriteMarksDump(&buf, m); err != nil {
		t.Fatalf("WriteMarksDump: %v", err)
	}

	want := "f\t0\t1\n"
	if buf.String() != want {
		t.Fatalf("got dump %q, want %q", buf.String(), want)
	}

	got, err := ReadMarksDump(strings.NewReader(buf.String()), 2048)
	if err != nil {
		t.Fatalf("ReadMarksDump: %v", err)
	}
	if !got.IsMarked("f", 0, 1) {
		t.Fatalf("expected the round-tripped map to still mark f block 0 instr 1")
	}
	if got.Count() != m.Count() {
		t.Fatalf("got %d marks after round-trip, want %d", got.Count(), m.Count())
	}
}
