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

package names

import (
	"testing"

	"github.com/superf0sh/panda/internal/ir"
)

func TestLocationConstructors(t *testing.T) {
	cases := []struct {
		got, want string
	}{
		{LocReg(3), "REG_3"},
		{LocHost(7), "HOST_7"},
		{LocSpec(1), "SPEC_1"},
		{LocMem(0x4011a0), "MEM_4011a0"},
		{Retval("tcg-llvm-tb-3-4011a0"), "tcg-llvm-tb-3-4011a0.retval"},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("got %q, want %q", c.got, c.want)
		}
	}
}

func TestInsertValue_skipsConstants(t *testing.T) {
	b := ir.NewBuilder()
	c := b.Const("1")
	fn := b.Func("f", true, "a")

	s := NewSet()
	InsertValue(s, c)
	if s.Len() != 0 {
		t.Fatalf("constant was inserted into the set")
	}

	InsertValue(s, fn.Params[0])
	if !s.Contains("a") {
		t.Fatalf("non-constant argument was not inserted")
	}
}

func TestInsertValue_nilIsNoop(t *testing.T) {
	s := NewSet()
	InsertValue(s, nil)
	if s.Len() != 0 {
		t.Fatalf("nil value was inserted into the set")
	}
}

func TestSet_cloneIsIndependent(t *testing.T) {
	s := NewSet("REG_0")
	clone := s.Clone()
	clone.Add("REG_1")
	if s.Contains("REG_1") {
		t.Fatalf("mutating the clone affected the original set")
	}
}

func TestDecodeAddrEntry_roundTrip(t *testing.T) {
	arg1 := uint64(AddrMAddr) | uint64(0)<<8 | uint64(0x1000)<<16
	kind, irrelevant, offset := DecodeAddrEntry(arg1)
	if kind != AddrMAddr || irrelevant || offset != 0x1000 {
		t.Fatalf("got kind=%v irrelevant=%v offset=%#x, want MAddr/false/0x1000", kind, irrelevant, offset)
	}
	loc, ok := LocationFor(kind, offset)
	if !ok || loc != "HOST_4096" {
		t.Fatalf("LocationFor = (%q,%v), want HOST_4096/true", loc, ok)
	}
}

func TestDecodeAddrEntry_irrelevantFlag(t *testing.T) {
	arg1 := uint64(AddrGReg) | uint64(flagIrrelevant)<<8 | uint64(5)<<16
	_, irrelevant, offset := DecodeAddrEntry(arg1)
	if !irrelevant || offset != 5 {
		t.Fatalf("got irrelevant=%v offset=%d, want true/5", irrelevant, offset)
	}
}

func TestLocationFor_unknownKind(t *testing.T) {
	if _, ok := LocationFor(AddrKind(99), 0); ok {
		t.Fatalf("unknown address kind should report ok=false")
	}
}
