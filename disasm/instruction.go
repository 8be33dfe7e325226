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

// Package disasm turns raw EVM bytecode into a linear instruction stream
// and computes the valid-JUMPDEST set, the two static analyses every
// later stage (stack-info, edge building, the symbolic solver) builds on.
package disasm

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/jiangzongkun/mev-cfg-go/opcodes"
)

// MaxCodeSize is the legacy EVM contract-size bound (spec.md §1's
// non-goal: larger contracts are out of scope). PCs are carried as
// uint16 throughout, which comfortably covers this bound.
const MaxCodeSize = 24576

// Instruction is one decoded opcode at a program counter, with its
// immediate (for PUSH1..PUSH32) if any.
type Instruction struct {
	PC        uint16
	Op        opcodes.OpCode
	Immediate *uint256.Int // nil unless Op is a PUSH
}

// String renders the instruction the way DOT node labels and log lines
// want it: "PUSH2 0x102" or just "ADD".
func (in Instruction) String() string {
	if in.Immediate != nil {
		return fmt.Sprintf("%s %s", opcodes.Lookup(in.Op).Mnemonic, in.Immediate.Hex())
	}
	return opcodes.Lookup(in.Op).Mnemonic
}

// Len returns the number of bytes this instruction occupies in the
// bytecode: 1 plus the immediate size, except for a truncated trailing
// PUSH, whose immediate is shorter than the nominal size.
func (in Instruction) Len(codeLen int) int {
	info := opcodes.Lookup(in.Op)
	avail := codeLen - int(in.PC) - 1
	if avail < 0 {
		avail = 0
	}
	if info.ImmediateSize > avail {
		return 1 + avail
	}
	return 1 + info.ImmediateSize
}
