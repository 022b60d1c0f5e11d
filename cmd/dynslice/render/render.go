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

// Package render is the `dynslice render` sub-command: re-renders a
// previously produced machine-readable marks dump (written by `dynslice
// slice -dump`) to GraphViz DOT and optionally PNG, without re-running the
// slice. Useful for iterating on visualization styling against a large
// trace that's expensive to re-slice.
package render

import (
	"flag"
	"fmt"
	"os"

	"github.com/pkg/browser"

	"github.com/superf0sh/panda/analysis/config"
	"github.com/superf0sh/panda/analysis/report"
	"github.com/superf0sh/panda/internal/ir"
)

// Usage is printed by -help and on a usage error.
const Usage = `Re-render a machine-readable marks dump to GraphViz DOT/PNG.

Usage:
  dynslice render [options] <ir_module> <marks_dump>

<marks_dump> is a file written by "dynslice slice -dump".

Examples:
  dynslice render -dot slice.dot -png slice.png prog.ir marked.dump
  dynslice render -dot slice.dot -png slice.png -open prog.ir marked.dump
`

// Flags is the parsed `dynslice render` command line.
type Flags struct {
	DotOut    string
	PngOut    string
	Open      bool
	MaxInstrs int

	IRPath   string
	DumpPath string
}

// NewFlags parses args into Flags.
func NewFlags(args []string) (Flags, error) {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	var f Flags
	fs.StringVar(&f.DotOut, "dot", "", "write a GraphViz DOT rendering of the marked CFG to this file")
	fs.StringVar(&f.PngOut, "png", "", "rasterize -dot's output to this PNG file")
	fs.BoolVar(&f.Open, "open", false, "open the rendered PNG in the default browser (requires -png)")
	fs.IntVar(&f.MaxInstrs, "max-instrs", config.DefaultMaxInstrsPerBlock, "MAX_INSTRS_PER_BLOCK bound used to validate the marks dump")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s\n", Usage)
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return Flags{}, fmt.Errorf("render: %w", err)
	}
	rest := fs.Args()
	if len(rest) != 2 {
		return Flags{}, fmt.Errorf("render: expected <ir_module> <marks_dump>")
	}
	f.IRPath, f.DumpPath = rest[0], rest[1]
	if f.Open && f.PngOut == "" {
		return Flags{}, fmt.Errorf("render: -open requires -png")
	}
	if f.DotOut == "" && f.PngOut != "" {
		return Flags{}, fmt.Errorf("render: -png requires -dot")
	}
	return f, nil
}

// Run loads the IR module and marks dump named by flags and writes the
// requested renderings.
func Run(flags Flags) error {
	irFile, err := os.Open(flags.IRPath)
	if err != nil {
		return fmt.Errorf("render: opening IR module: %w", err)
	}
	defer irFile.Close()
	mod, err := ir.Parse(irFile)
	if err != nil {
		return fmt.Errorf("render: parsing IR module: %w", err)
	}

	dumpFile, err := os.Open(flags.DumpPath)
	if err != nil {
		return fmt.Errorf("render: opening marks dump: %w", err)
	}
	defer dumpFile.Close()
	marked, err := report.ReadMarksDump(dumpFile, flags.MaxInstrs)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	if flags.DotOut == "" {
		return fmt.Errorf("render: nothing to do, pass -dot")
	}
	dotFile, err := os.Create(flags.DotOut)
	if err != nil {
		return fmt.Errorf("render: creating %s: %w", flags.DotOut, err)
	}
	report.WriteDOT(dotFile, mod, marked)
	if err := dotFile.Close(); err != nil {
		return fmt.Errorf("render: writing %s: %w", flags.DotOut, err)
	}

	if flags.PngOut != "" {
		if err := report.RenderPNG(flags.DotOut, flags.PngOut); err != nil {
			return fmt.Errorf("render: %w", err)
		}
		if flags.Open {
			if err := browser.OpenFile(flags.PngOut); err != nil {
				return fmt.Errorf("render: opening %s: %w", flags.PngOut, err)
			}
		}
	}
	return nil
}
