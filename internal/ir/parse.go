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

package ir

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

var (
	reFunction = regexp.MustCompile(`^function\s+(\S+)\s+(void|value)\(([^)]*)\)$`)
	reBlock    = regexp.MustCompile(`^block\s+(\S+):$`)
	reAssign   = regexp.MustCompile(`^(%\S+)\s*=\s*(.+)$`)
	reCall     = regexp.MustCompile(`^(\S+)\((.*)\)$`)
)

type funcChunk struct {
	name  string
	lines []string
}

// Parse reads the textual IR format documented in doc.go and returns the
// Module it describes, or the first parse error encountered.
func Parse(r io.Reader) (*Module, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ir: parse: %w", err)
	}

	chunks, err := splitChunks(lines)
	if err != nil {
		return nil, err
	}

	b := NewBuilder()

	// Pass 1: declare every function (name, result kind, params) so that a
	// call appearing before its callee's definition still resolves.
	for _, c := range chunks {
		m := reFunction.FindStringSubmatch(strings.TrimSpace(c.lines[0]))
		if m == nil {
			return nil, fmt.Errorf("ir: parse: malformed function header: %q", c.lines[0])
		}
		params := splitOperands(m[3])
		for i, p := range params {
			params[i] = strings.TrimPrefix(p, "%")
		}
		b.Func(m[1], m[2] == "void", params...)
	}

	// Pass 2: parse bodies now that every function and its parameters exist.
	for _, c := range chunks {
		if err := parseFunctionBody(b, c); err != nil {
			return nil, err
		}
	}

	return b.Module(), nil
}

func splitChunks(lines []string) ([]funcChunk, error) {
	var chunks []funcChunk
	start := -1
	for i, ln := range lines {
		if strings.HasPrefix(strings.TrimSpace(ln), "function ") {
			if start >= 0 {
				chunks = append(chunks, funcChunk{lines: lines[start:i]})
			}
			start = i
		}
	}
	if start >= 0 {
		chunks = append(chunks, funcChunk{lines: lines[start:]})
	}
	if len(chunks) == 0 && len(lines) > 0 {
		return nil, fmt.Errorf("ir: parse: no function declarations found")
	}
	return chunks, nil
}

func parseFunctionBody(b *Builder, c funcChunk) error {
	header := strings.TrimSpace(c.lines[0])
	m := reFunction.FindStringSubmatch(header)
	name := m[1]
	fn, ok := b.Module().Func(name)
	if !ok {
		return fmt.Errorf("ir: parse: internal error: function %s not pre-declared", name)
	}

	values := map[string]Value{}
	for _, p := range fn.Params {
		values["%"+p.Name()] = p
	}

	blocks := map[string]*Block{}
	for _, ln := range c.lines[1:] {
		t := strings.TrimSpace(ln)
		if bm := reBlock.FindStringSubmatch(t); bm != nil {
			blocks[bm[1]] = b.Block(fn, bm[1])
		}
	}

	var cur *Block
	for _, ln := range c.lines[1:] {
		t := strings.TrimSpace(ln)
		if t == "" || strings.HasPrefix(t, "#") {
			continue
		}
		if bm := reBlock.FindStringSubmatch(t); bm != nil {
			cur = blocks[bm[1]]
			continue
		}
		if cur == nil {
			return fmt.Errorf("ir: parse: function %s: instruction outside any block: %q", name, t)
		}
		if err := parseInstr(b, cur, blocks, values, t); err != nil {
			return fmt.Errorf("ir: parse: function %s: %w", name, err)
		}
	}
	return nil
}

func parseInstr(b *Builder, blk *Block, blocks map[string]*Block, values map[string]Value, line string) error {
	resultName := ""
	hasAssign := false
	rest := line
	if am := reAssign.FindStringSubmatch(line); am != nil {
		hasAssign = true
		resultName = strings.TrimPrefix(am[1], "%")
		rest = strings.TrimSpace(am[2])
	}

	sp := strings.IndexAny(rest, " \t")
	op := rest
	remainder := ""
	if sp >= 0 {
		op = rest[:sp]
		remainder = strings.TrimSpace(rest[sp+1:])
	}

	resolve := func(tok string) (Value, error) {
		tok = strings.TrimSpace(tok)
		if v, ok := values[tok]; ok {
			return v, nil
		}
		if strings.HasPrefix(tok, "%") {
			return nil, fmt.Errorf("undefined value %q", tok)
		}
		return b.Const(tok), nil
	}

	var instr *Instruction

	switch op {
	case "load":
		volatile := false
		remainder, volatile = stripSuffix(remainder, "volatile")
		ops := splitOperands(remainder)
		if len(ops) != 1 {
			return fmt.Errorf("load: want 1 operand, got %d", len(ops))
		}
		ptr, err := resolve(ops[0])
		if err != nil {
			return err
		}
		instr = b.Instr(blk, resultName, OpLoad, false, ptr)
		instr.Volatile = volatile

	case "store":
		volatile := false
		remainder, volatile = stripSuffix(remainder, "volatile")
		ops := splitOperands(remainder)
		if len(ops) != 2 {
			return fmt.Errorf("store: want 2 operands, got %d", len(ops))
		}
		val, err := resolve(ops[0])
		if err != nil {
			return err
		}
		ptr, err := resolve(ops[1])
		if err != nil {
			return err
		}
		instr = b.Instr(blk, resultName, OpStore, true, val, ptr)
		instr.Volatile = volatile

	case "br":
		labels := splitOperands(remainder)
		if len(labels) == 0 {
			return fmt.Errorf("br: expected at least one target")
		}
		succ, err := resolveBlocks(blocks, labels)
		if err != nil {
			return err
		}
		instr = b.Instr(blk, resultName, OpBr, true)
		instr.Successors = succ

	case "switch":
		toks := strings.Fields(remainder)
		if len(toks) == 0 {
			return fmt.Errorf("switch: expected a value operand")
		}
		val, err := resolve(toks[0])
		if err != nil {
			return err
		}
		cases := map[int64]*Block{}
		var def *Block
		var succ []*Block
		for _, t := range toks[1:] {
			parts := strings.SplitN(t, ":", 2)
			if len(parts) != 2 {
				return fmt.Errorf("switch: malformed case %q", t)
			}
			target, ok := blocks[parts[1]]
			if !ok {
				return fmt.Errorf("switch: unknown block %q", parts[1])
			}
			if parts[0] == "default" {
				def = target
				succ = append(succ, target)
				continue
			}
			n, err := strconv.ParseInt(parts[0], 0, 64)
			if err != nil {
				return fmt.Errorf("switch: bad case value %q: %w", parts[0], err)
			}
			cases[n] = target
			succ = append(succ, target)
		}
		instr = b.Instr(blk, resultName, OpSwitch, true, val)
		instr.Cases = cases
		instr.Default = def
		instr.Successors = succ

	case "call":
		cm := reCall.FindStringSubmatch(remainder)
		if cm == nil {
			return fmt.Errorf("call: malformed call expression %q", remainder)
		}
		calleeName, argsRaw := cm[1], cm[2]
		var args []Value
		for _, a := range splitOperands(argsRaw) {
			v, err := resolve(a)
			if err != nil {
				return err
			}
			args = append(args, v)
		}
		void := !hasAssign
		instr = b.Instr(blk, resultName, OpCall, void, args...)
		instr.CalleeName = calleeName
		if callee, ok := b.Module().Func(calleeName); ok {
			instr.Callee = callee
		}

	case "ret":
		ops := splitOperands(remainder)
		void := len(ops) == 0
		var operands []Value
		if !void {
			v, err := resolve(ops[0])
			if err != nil {
				return err
			}
			operands = []Value{v}
		}
		instr = b.Instr(blk, "", OpRet, void, operands...)

	case "phi":
		body := strings.TrimSpace(remainder)
		body = strings.TrimPrefix(body, "[")
		body = strings.TrimSuffix(body, "]")
		var incoming []*Block
		var vals []Value
		for _, e := range splitOperands(body) {
			parts := strings.SplitN(e, ":", 2)
			if len(parts) != 2 {
				return fmt.Errorf("phi: malformed entry %q", e)
			}
			label := strings.TrimSpace(parts[0])
			tb, ok := blocks[label]
			if !ok {
				return fmt.Errorf("phi: unknown block %q", label)
			}
			v, err := resolve(parts[1])
			if err != nil {
				return err
			}
			incoming = append(incoming, tb)
			vals = append(vals, v)
		}
		instr = b.Instr(blk, resultName, OpPhi, false, vals...)
		instr.IncomingBlocks = incoming

	case "select":
		ops := splitOperands(remainder)
		if len(ops) != 3 {
			return fmt.Errorf("select: want 3 operands, got %d", len(ops))
		}
		vs := make([]Value, 3)
		for i, o := range ops {
			v, err := resolve(o)
			if err != nil {
				return err
			}
			vs[i] = v
		}
		instr = b.Instr(blk, resultName, OpSelect, false, vs...)

	case "unreachable":
		instr = b.Instr(blk, "", OpUnreachable, true)

	default:
		ops := splitOperands(remainder)
		vs := make([]Value, 0, len(ops))
		for _, o := range ops {
			v, err := resolve(o)
			if err != nil {
				return err
			}
			vs = append(vs, v)
		}
		instr = b.Instr(blk, resultName, OpOther, !hasAssign, vs...)
		instr.Mnemonic = op
	}

	if !instr.Void {
		values["%"+instr.Name()] = instr
	}
	return nil
}

func resolveBlocks(blocks map[string]*Block, labels []string) ([]*Block, error) {
	out := make([]*Block, 0, len(labels))
	for _, l := range labels {
		tb, ok := blocks[l]
		if !ok {
			return nil, fmt.Errorf("unknown block %q", l)
		}
		out = append(out, tb)
	}
	return out, nil
}

// splitOperands splits a comma-separated operand list, trimming whitespace
// and dropping empty entries (so "" and "  " both yield nil).
func splitOperands(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// stripSuffix removes a trailing bare keyword (e.g. "volatile") from s,
// reporting whether it was present.
func stripSuffix(s, keyword string) (string, bool) {
	fields := strings.Fields(s)
	if len(fields) > 0 && fields[len(fields)-1] == keyword {
		return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), keyword)), true
	}
	return s, false
}
