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
Textual IR format

Parse reads a line-oriented textual stand-in for the translator's bitcode
module. One function looks like:

	function tcg-llvm-tb-3-0x4011a0 void(%env)
	block entry:
	  %1 = load %env
	  %2 = add %1, 1
	  store %2, %env volatile
	  br bb1, bb2
	block bb1:
	  %3 = call helper_foo(%1, %2)
	  ret %3
	block bb2:
	  unreachable

Grammar, one statement per line (blank lines and lines starting with "#"
are ignored):

	function NAME (void|value) ( %param, %param, ... )
	block LABEL :
	  [%result =] load PTR [volatile]
	  store VAL , PTR [volatile]
	  br LABEL [, LABEL]
	  switch VAL [ CASE : LABEL ]... [default : LABEL]
	  [%result =] call CALLEE ( ARG, ARG, ... )
	  ret [VAL]
	  %result = phi [ LABEL : VAL , LABEL : VAL ... ]
	  %result = select COND , TRUEVAL , FALSEVAL
	  unreachable
	  %result = MNEMONIC OPERAND, OPERAND, ...   (OpOther: add, sub, icmp, gep, ...)

An operand is either %name (an instruction result defined on an earlier
line of the same function, or a function parameter) or a constant: anything else, including bare integers, hex
literals, and global symbol references. Constants are never added to a
use/def set (see internal/names and internal/usedef).

This format exists purely so the repository has a runnable load path; the
core engines (internal/align, internal/slicer, internal/usedef) never
import this file, only the types in ir.go, so a real bitcode reader can
replace Parse without any other package noticing.
*/
package ir
