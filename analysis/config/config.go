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

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultMaxInstrsPerBlock is the suggested MAX_INSTRS_PER_BLOCK bound: large
// enough for any translation block the translator is expected to emit for a single guest
// instruction, small enough that an instruction-ordinal overflow is almost certainly a bug
// rather than legitimate input.
const DefaultMaxInstrsPerBlock = 2048

// Options are the global knobs for a dynslice run. Every field also has a corresponding CLI
// flag in cmd/dynslice; a flag always overrides the value loaded from a config file.
type Options struct {
	// LogLevel controls verbosity; see the LogLevel constants.
	LogLevel int `yaml:"log-level"`

	// IncludeBranches mirrors the CLI -b flag: mark branch/switch terminators even when their
	// defs don't overlap the working set.
	IncludeBranches bool `yaml:"include-branches"`

	// MaxInstrsPerBlock overrides DefaultMaxInstrsPerBlock; a value <= 0 means "use the
	// default."
	MaxInstrsPerBlock int `yaml:"max-instrs-per-block"`
}

// SlicingProblem names a reusable slicing run: an optional fast-forward entry point, a set of
// criteria, and an include-branches override. This gives the config file's notion of a
// "problem" (as opposed to one-off CLI criteria) concrete behavior.
type SlicingProblem struct {
	// Name identifies the problem for -problem NAME.
	Name string `yaml:"name"`

	// Criteria are the initial working-set members, e.g. "REG_0", "MEM_1000".
	Criteria []string `yaml:"criteria"`

	// IncludeBranches overrides Options.IncludeBranches for this problem when set.
	IncludeBranches *bool `yaml:"include-branches"`

	// EntryTBNum and EntryPC, if both set, fast-forward the log cursor to the FN record with
	// this (arg1, pc) pair before slicing starts, exactly like the CLI's -n/-p pair.
	EntryTBNum *uint64 `yaml:"entry-tb-num"`
	EntryPC    *string `yaml:"entry-pc"`
}

// Config is the top-level shape of a dynslice YAML config file.
type Config struct {
	Options `yaml:",inline"`

	// SlicingProblems lists the named slicing problems available via -problem.
	SlicingProblems []SlicingProblem `yaml:"slicing-problems"`

	sourceFile string
}

// NewDefault returns a Config with every field at its documented default.
func NewDefault() *Config {
	return &Config{
		Options: Options{
			LogLevel:          int(InfoLevel),
			IncludeBranches:   false,
			MaxInstrsPerBlock: DefaultMaxInstrsPerBlock,
		},
	}
}

// Load reads and validates a YAML config file.
func Load(filename string) (*Config, error) {
	cfg := NewDefault()
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file %s: %w", filename, err)
	}
	cfg.sourceFile = filename

	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}
	if cfg.MaxInstrsPerBlock <= 0 {
		cfg.MaxInstrsPerBlock = DefaultMaxInstrsPerBlock
	}

	seen := map[string]bool{}
	for _, p := range cfg.SlicingProblems {
		if p.Name == "" {
			return nil, fmt.Errorf("config file %s: slicing problem with no name", filename)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("config file %s: duplicate slicing problem name %q", filename, p.Name)
		}
		seen[p.Name] = true
		if (p.EntryTBNum == nil) != (p.EntryPC == nil) {
			return nil, fmt.Errorf("config file %s: slicing problem %q must set both entry-tb-num and entry-pc, or neither",
				filename, p.Name)
		}
	}

	return cfg, nil
}

// Problem looks up a named slicing problem.
func (c *Config) Problem(name string) (SlicingProblem, bool) {
	for _, p := range c.SlicingProblems {
		if p.Name == name {
			return p, true
		}
	}
	return SlicingProblem{}, false
}

// SourceFile returns the path the config was loaded from, or "" for a default config.
func (c *Config) SourceFile() string {
	return c.sourceFile
}
