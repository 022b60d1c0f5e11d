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
	"fmt"
	"strings"

	"golang.org/x/term"
)

const progressBarWidth = 10

// renderProgressBar formats fraction (in [0,1]) as a progress
// line: "[====>     ] nn%\r". The percentage is bolded when stdout is a
// terminal and left plain otherwise.
func renderProgressBar(fraction float64) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction * progressBarWidth)
	var bar strings.Builder
	bar.WriteString("[")
	for i := 0; i < progressBarWidth; i++ {
		switch {
		case i < filled:
			bar.WriteString("=")
		case i == filled:
			bar.WriteString(">")
		default:
			bar.WriteString(" ")
		}
	}
	bar.WriteString("]")

	pct := fmt.Sprintf("%d%%", int(fraction*100))
	if term.IsTerminal(1) {
		pct = bold(pct)
	}
	return fmt.Sprintf("%s %s\r", bar.String(), pct)
}

func bold(s string) string {
	if !term.IsTerminal(1) {
		return s
	}
	return "\033[1m" + s + "\033[0m"
}
