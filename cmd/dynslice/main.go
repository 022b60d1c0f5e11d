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

// dynslice: a dynamic backward slicer over a recorded execution trace of a
// binary-translated program.
//
//	slice:  run a backward slice from a set of criteria
//	render: re-render a previous run's marked-instruction dump
package main

import (
	"fmt"
	"os"

	"github.com/superf0sh/panda/cmd/dynslice/render"
	"github.com/superf0sh/panda/cmd/dynslice/slice"
)

const usage = `dynslice: dynamic backward slicing over a recorded execution trace
Usage:
  dynslice [command] [options] ...
Commands:
  - slice: run a backward slice from a set of criteria
  - render: re-render a previous run's marked-instruction dump
Examples:
  dynslice slice prog.ir trace.log REG_0
  dynslice render -dot out.dot -png out.png prog.ir marked.txt`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "error: expected a command\n%s\n", usage)
		os.Exit(2)
	}

	if cmd := os.Args[1]; cmd == "-help" || cmd == "--help" {
		fmt.Println(usage)
		return
	}

	args := os.Args[2:]
	switch cmd := os.Args[1]; cmd {
	case "slice":
		flags, err := slice.NewFlags(args)
		if err != nil {
			usageExit(err)
		}
		if err := slice.Run(flags); err != nil {
			fatalExit(err, flags.Debug)
		}
	case "render":
		flags, err := render.NewFlags(args)
		if err != nil {
			usageExit(err)
		}
		if err := render.Run(flags); err != nil {
			fatalExit(err, false)
		}
	default:
		fmt.Fprintf(os.Stderr, "error: unexpected command: %v\n%s\n", cmd, usage)
		os.Exit(2)
	}
}

// usageExit reports a user/usage error and exits with the
// conventional flag-package usage code.
func usageExit(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(2)
}

// fatalExit reports a fatal program error and exits 1. With debug set (the
// -d flag), it prints the full pkg/errors cause chain and stack trace
// instead of just the outermost message.
func fatalExit(err error, debug bool) {
	if debug {
		fmt.Fprintf(os.Stderr, "error: %+v\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(1)
}
