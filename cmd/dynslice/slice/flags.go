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

package slice

import (
	"flag"
	"fmt"
	"os"
)

// flagSet wraps flag.FlagSet so usage text prints first, then each flag's
// own documentation.
type flagSet struct {
	set *flag.FlagSet
}

func newFlagSet() flagSet {
	return flagSet{set: flag.NewFlagSet("slice", flag.ContinueOnError)}
}

func (f flagSet) setUsage(cmdUsage string) {
	f.set.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s\n", cmdUsage)
		fmt.Fprintf(os.Stderr, "Options:\n")
		f.set.VisitAll(func(fl *flag.Flag) {
			fmt.Fprintf(os.Stderr, "  -%s: %s (default: %q)\n", fl.Name, fl.Usage, fl.DefValue)
		})
	}
}
