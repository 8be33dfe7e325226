// Copyright 2017 The go-ethereum Authors
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

import "github.com/jiangzongkun/mev-cfg-go/opcodes"

// bitvec is a packed bitmap, one bit per bytecode position, set where
// that position lies inside a PUSH immediate — the same "is this a code
// byte or data byte" bitmap go-ethereum's core/vm keeps to validate
// JUMPDEST targets in codeBitmap, trimmed to the single bit-per-byte
// case (no gas-metering batch paths).
type bitvec []byte

func newBitvec(codeLen int) bitvec {
	return make(bitvec, codeLen/8+1)
}

func (bits bitvec) set(pos uint64) {
	bits[pos/8] |= 0x80 >> (pos % 8)
}

// isPushData reports whether pos lies inside a PUSH immediate.
func (bits bitvec) isPushData(pos uint64) bool {
	if pos/8 >= uint64(len(bits)) {
		return false
	}
	return bits[pos/8]&(0x80>>(pos%8)) != 0
}

// codeBitmap scans code once, marking every byte that lies inside a
// PUSH1..PUSH32 immediate. A PUSH whose immediate runs past the end of
// code (spec.md §8's "bytecode ending mid-PUSH immediate" boundary case)
// only marks the bytes that actually exist.
func codeBitmap(code []byte) bitvec {
	bits := newBitvec(len(code))
	codeBitmapInternal(code, bits)
	return bits
}

func codeBitmapInternal(code []byte, bits bitvec) {
	pc := uint64(0)
	end := uint64(len(code))
	for pc < end {
		op := opcodes.OpCode(code[pc])
		pc++
		if !op.IsPush() {
			continue
		}
		n := uint64(op.PushSize())
		for i := uint64(0); i < n && pc+i < end; i++ {
			bits.set(pc + i)
		}
		pc += n
	}
}

// JumpDests returns the set of valid JUMPDEST program counters in code:
// bytes containing 0x5B that are not inside a PUSH immediate.
func JumpDests(code []byte) map[uint16]struct{} {
	bits := codeBitmap(code)
	dests := make(map[uint16]struct{})
	for pc := 0; pc < len(code); pc++ {
		if opcodes.OpCode(code[pc]) == opcodes.JUMPDEST && !bits.isPushData(uint64(pc)) {
			dests[uint16(pc)] = struct{}{}
		}
	}
	return dests
}

// IsValidJumpDest reports whether pc is a valid JUMPDEST in code.
func IsValidJumpDest(code []byte, pc uint16) bool {
	if int(pc) >= len(code) {
		return false
	}
	if opcodes.OpCode(code[pc]) != opcodes.JUMPDEST {
		return false
	}
	bits := codeBitmap(code)
	return !bits.isPushData(uint64(pc))
}
