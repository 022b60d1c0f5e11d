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

// Package slice is the `dynslice slice` sub-command frontend: flag parsing
// in a NewFlags(args)/Run(flags) idiom, wiring analysis/driver to the IR
// loader, the trace log and the final report.
package slice

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/superf0sh/panda/analysis/config"
	"github.com/superf0sh/panda/analysis/driver"
	"github.com/superf0sh/panda/analysis/report"
	"github.com/superf0sh/panda/internal/ir"
	"github.com/superf0sh/panda/internal/tracelog"
)

// Usage is printed by -help and on a usage error.
const Usage = `Slice a recorded execution trace backward from a set of criteria.

Usage:
  dynslice slice [options] <ir_module> <log_file> <criterion> ...

A criterion is a location name: REG_<n>, MEM_<hex>, HOST_<n>, SPEC_<n>, or
<function>.retval.

Examples:
  dynslice slice prog.ir trace.log REG_0
  dynslice slice -b -config problems.yaml -problem crash-repro prog.ir trace.log
  dynslice slice -dump marked.dump prog.ir trace.log REG_0   # for a later dynslice render
`

// Flags is the parsed `dynslice slice` command line.
type Flags struct {
	IncludeBranches bool
	Debug           bool
	PrintWorkingSet bool
	EntryTBNum      uint64
	EntryPC         uint64
	HasEntry        bool

	ConfigPath  string
	ProblemName string
	MarkedOut   string
	DumpOut     string
	DotOut      string
	PngOut      string
	MaxInstrs   int

	IRPath  string
	LogPath string
	Extra   []string // positional criteria, combined with any -problem criteria
}

// NewFlags parses args into Flags. It returns an error for any usage
// problem: missing positional args, an unknown flag, or -n/-p given
// without its pair.
func NewFlags(args []string) (Flags, error) {
	fs := newFlagSet()
	var f Flags
	var n, p string

	fs.set.BoolVar(&f.IncludeBranches, "b", false, "include terminator instructions as slice members even when their defs don't overlap the working set")
	fs.set.BoolVar(&f.Debug, "d", false, "verbose per-instruction tracing to stdout")
	fs.set.BoolVar(&f.PrintWorkingSet, "w", false, "print the working set after each translation block")
	fs.set.StringVar(&n, "n", "", "fast-forward: translation-block number (requires -p)")
	fs.set.StringVar(&p, "p", "", "fast-forward: translation-block PC, hex or decimal (requires -n)")
	fs.set.StringVar(&f.ConfigPath, "config", "", "YAML config file defining named slicing problems")
	fs.set.StringVar(&f.ProblemName, "problem", "", "name of a slicing problem from -config to run")
	fs.set.StringVar(&f.MarkedOut, "marked-out", "", "write the final marked-instruction report to this file instead of stdout")
	fs.set.StringVar(&f.DumpOut, "dump", "", "also write a machine-readable marks dump to this file, for later `dynslice render`")
	fs.set.StringVar(&f.DotOut, "dot", "", "also write a GraphViz DOT rendering of the marked CFG to this file")
	fs.set.StringVar(&f.PngOut, "png", "", "also rasterize -dot's output to this PNG file")
	fs.set.IntVar(&f.MaxInstrs, "max-instrs", 0, "override MAX_INSTRS_PER_BLOCK (0 means use the config/default)")
	fs.setUsage(Usage)

	if err := fs.set.Parse(args); err != nil {
		return Flags{}, fmt.Errorf("slice: %w", err)
	}

	if (n == "") != (p == "") {
		return Flags{}, fmt.Errorf("slice: -n and -p must be given together")
	}
	if n != "" {
		tbNum, err := strconv.ParseUint(n, 0, 64)
		if err != nil {
			return Flags{}, fmt.Errorf("slice: bad -n value %q: %w", n, err)
		}
		pc, err := strconv.ParseUint(p, 0, 64)
		if err != nil {
			return Flags{}, fmt.Errorf("slice: bad -p value %q: %w", p, err)
		}
		f.EntryTBNum, f.EntryPC, f.HasEntry = tbNum, pc, true
	}

	rest := fs.set.Args()
	if f.ProblemName == "" && len(rest) < 3 {
		return Flags{}, fmt.Errorf("slice: expected <ir_module> <log_file> <criterion>...")
	}
	if f.ProblemName != "" && len(rest) < 2 {
		return Flags{}, fmt.Errorf("slice: expected <ir_module> <log_file> with -problem")
	}
	f.IRPath, f.LogPath = rest[0], rest[1]
	f.Extra = rest[2:]

	return f, nil
}

// Run loads the IR module and trace log named by flags, runs the driver,
// and writes the report. It returns an error for every fatal condition
// (unopenable log/IR, desynchronized log, missing IR function,
// MAX_INSTRS_PER_BLOCK exceeded); user/usage errors are caught earlier, by
// NewFlags.
func Run(flags Flags) error {
	cfg := config.NewDefault()
	if flags.ConfigPath != "" {
		loaded, err := config.Load(flags.ConfigPath)
		if err != nil {
			return errors.Wrap(err, "slice")
		}
		cfg = loaded
	}
	if flags.Debug {
		cfg.LogLevel = int(config.DebugLevel)
	}
	if flags.PrintWorkingSet && cfg.LogLevel < int(config.TraceLevel) {
		cfg.LogLevel = int(config.TraceLevel)
	}
	if flags.MaxInstrs > 0 {
		cfg.MaxInstrsPerBlock = flags.MaxInstrs
	}

	logs := config.NewLogGroup(cfg)

	criteria := append([]string{}, flags.Extra...)
	includeBranches := flags.IncludeBranches || cfg.IncludeBranches
	var entry *driver.EntryPoint
	if flags.HasEntry {
		entry = &driver.EntryPoint{TBNum: flags.EntryTBNum, PC: flags.EntryPC}
	}

	if flags.ProblemName != "" {
		problem, ok := cfg.Problem(flags.ProblemName)
		if !ok {
			return errors.Errorf("slice: no slicing problem named %q in %s", flags.ProblemName, flags.ConfigPath)
		}
		criteria = append(criteria, problem.Criteria...)
		if problem.IncludeBranches != nil {
			includeBranches = *problem.IncludeBranches
		}
		if problem.EntryTBNum != nil && problem.EntryPC != nil {
			pc, err := strconv.ParseUint(*problem.EntryPC, 0, 64)
			if err != nil {
				return errors.Wrapf(err, "slice: problem %q: bad entry-pc %q", flags.ProblemName, *problem.EntryPC)
			}
			entry = &driver.EntryPoint{TBNum: *problem.EntryTBNum, PC: pc}
		}
	}
	if len(criteria) == 0 {
		return errors.New("slice: no criteria given, on the command line or via -problem")
	}

	irFile, err := os.Open(flags.IRPath)
	if err != nil {
		return errors.Wrap(err, "slice: opening IR module")
	}
	defer irFile.Close()
	mod, err := ir.Parse(irFile)
	if err != nil {
		return errors.Wrap(err, "slice: parsing IR module")
	}

	log, err := tracelog.Open(flags.LogPath)
	if err != nil {
		return errors.Wrap(err, "slice: opening trace log")
	}
	defer log.Close()

	isTTY := term.IsTerminal(1)
	progress := func(fraction float64) {
		if isTTY {
			fmt.Fprint(os.Stdout, renderProgressBar(fraction))
		}
	}

	res, err := driver.Run(driver.Request{
		Module:            mod,
		Log:               log,
		Criteria:          criteria,
		IncludeBranches:   includeBranches,
		MaxInstrsPerBlock: cfg.MaxInstrsPerBlock,
		Entry:             entry,
		Progress:          progress,
	}, logs)
	if err != nil {
		return errors.Wrap(err, "slice")
	}
	if isTTY {
		fmt.Fprint(os.Stdout, "\n")
	}

	out := os.Stdout
	if flags.MarkedOut != "" {
		f, err := os.Create(flags.MarkedOut)
		if err != nil {
			return errors.Wrapf(err, "slice: creating %s", flags.MarkedOut)
		}
		defer f.Close()
		out = f
	}
	report.PrintMarked(out, mod, res.Marked, isTTY && flags.MarkedOut == "")

	if flags.DumpOut != "" {
		dumpFile, err := os.Create(flags.DumpOut)
		if err != nil {
			return errors.Wrapf(err, "slice: creating %s", flags.DumpOut)
		}
		if err := report.WriteMarksDump(dumpFile, res.Marked); err != nil {
			dumpFile.Close()
			return errors.Wrapf(err, "slice: writing %s", flags.DumpOut)
		}
		if err := dumpFile.Close(); err != nil {
			return errors.Wrapf(err, "slice: writing %s", flags.DumpOut)
		}
	}

	if flags.DotOut != "" {
		dotFile, err := os.Create(flags.DotOut)
		if err != nil {
			return errors.Wrapf(err, "slice: creating %s", flags.DotOut)
		}
		report.WriteDOT(dotFile, mod, res.Marked)
		if err := dotFile.Close(); err != nil {
			return errors.Wrapf(err, "slice: writing %s", flags.DotOut)
		}
		if flags.PngOut != "" {
			if err := report.RenderPNG(flags.DotOut, flags.PngOut); err != nil {
				return errors.Wrap(err, "slice")
			}
		}
	}

	cov := report.Stats(res.Marked)
	summary := fmt.Sprintf("Done slicing. Marked %d blocks, %d instructions (%.2f +/- %.2f marks/block).\n", cov.Blocks, cov.TotalMarked, cov.Mean, cov.StdDev)
	if isTTY {
		summary = bold(summary)
	}
	fmt.Fprint(os.Stdout, summary)
	return nil
}
