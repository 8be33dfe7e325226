// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package disasm

import (
	"github.com/holiman/uint256"
	"github.com/jiangzongkun/mev-cfg-go/opcodes"
)

// Disassemble scans code linearly into a flat instruction stream. On
// PUSH1..PUSH32 it reads the next N bytes as the immediate; a PUSH whose
// immediate is truncated by the end of code is still emitted, with
// whatever bytes remain (zero-padded into the big integer, per spec.md
// §4.1). Every other opcode, known or not, occupies exactly one byte.
func Disassemble(code []byte) []Instruction {
	if len(code) == 0 {
		return nil
	}
	out := make([]Instruction, 0, len(code))
	pc := 0
	for pc < len(code) {
		op := opcodes.OpCode(code[pc])
		inst := Instruction{PC: uint16(pc), Op: op}
		if op.IsPush() {
			n := op.PushSize()
			end := pc + 1 + n
			if end > len(code) {
				end = len(code)
			}
			inst.Immediate = new(uint256.Int).SetBytes(code[pc+1 : end])
			out = append(out, inst)
			pc = end
			continue
		}
		out = append(out, inst)
		pc++
	}
	return out
}

// Reassemble is the inverse of Disassemble: it reconstructs the original
// byte sequence from an instruction stream, used to check the
// disassemble/reassemble round-trip property from spec.md §8.
func Reassemble(code []byte, instrs []Instruction) []byte {
	out := make([]byte, 0, len(code))
	for _, in := range instrs {
		out = append(out, byte(in.Op))
		if in.Immediate == nil {
			continue
		}
		n := in.Len(len(code)) - 1
		b := in.Immediate.Bytes()
		if len(b) < n {
			padded := make([]byte, n)
			copy(padded[n-len(b):], b)
			b = padded
		} else if len(b) > n {
			b = b[len(b)-n:]
		}
		out = append(out, b...)
	}
	return out
}
