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

/*
Package config loads the YAML configuration file that drives a dynslice run.

Use [Load](filename) to load a configuration from a specific file. A config
file may define global [Options] (log level, the MAX_INSTRS_PER_BLOCK
override) and zero or more named [SlicingProblem] entries, each of which
bundles an entry translation block, a set of slicing criteria, and the
include-branches flag, so that several slicing runs can be described
declaratively instead of passed on the command line every time:

	log-level: 3
	max-instrs-per-block: 4096
	slicing-problems:
	  - name: reg0-after-decode
	    criteria: [REG_0, REG_1]
	    include-branches: false
	    entry-tb-num: 12
	    entry-pc: "0x4011a0"

Command-line flags always take precedence over a config file's top-level
Options. A named SlicingProblem selected with -problem adds its criteria to
any positional criteria, and its include-branches and entry point, when
set, replace the command-line values.
*/
package config
