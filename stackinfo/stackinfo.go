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

// Package stackinfo computes, for one basic block, the net stack effect
// and whether a terminating JUMP/JUMPI target is a compile-time constant
// pushed inside the block — the same "max stack dip" bookkeeping
// go-ethereum's jump table uses to validate an operation's stack
// requirements (core/vm's minStack/maxStack), specialized to also carry
// the concrete jump target forward when one is statically known.
package stackinfo

import (
	"github.com/holiman/uint256"
	"github.com/jiangzongkun/mev-cfg-go/disasm"
	"github.com/jiangzongkun/mev-cfg-go/opcodes"
)

// StackInfo is the per-block summary described in spec.md §3/§4.2.
type StackInfo struct {
	// MinStackDepth is the deepest the block ever reaches below its
	// entry stack height (i.e. the minimum caller-stack depth required
	// to execute the block without underflow).
	MinStackDepth int
	// NetStackDelta is the net stack height change from block entry to
	// block exit.
	NetStackDelta int
	// PushUsedForJump holds the statically-known jump target when the
	// block ends in JUMP/JUMPI and that target was pushed as a constant
	// within the block with no dependency on the entry stack. Nil
	// otherwise.
	PushUsedForJump *uint256.Int
	// IndirectJump is true when the block ends in JUMP/JUMPI and the
	// target could not be resolved statically — it must go through the
	// symbolic solver.
	IndirectJump bool
}

// Analyze simulates a symbolic stack over ops, starting from an abstract
// entry height of zero. PUSH pushes a known constant; every other
// opcode that produces outputs pushes StackOut unknown values. POP,
// DUP, SWAP, and arithmetic/memory/storage/call opcodes consume
// StackIn inputs positionally, each consumption dipping below the entry
// baseline once the locally-tracked stack is exhausted.
func Analyze(ops []disasm.Instruction) StackInfo {
	var (
		values    []*uint256.Int // known values for the stack at or above the entry baseline
		height    int            // net height relative to block entry; may go negative
		minHeight int            // lowest height reached (the baseline dip)
	)

	// adjustHeight tracks the pure arithmetic stack-depth bookkeeping,
	// independent of whether we can name the values involved.
	adjustHeight := func(n, m int) {
		height -= n
		if height < minHeight {
			minHeight = height
		}
		height += m
	}
	// dropKnown removes up to n entries from the tail of values, stopping
	// once it runs out — anything beyond that refers to the (unknown)
	// entry baseline and was never in values to begin with.
	dropKnown := func(n int) {
		if n >= len(values) {
			values = values[:0]
			return
		}
		values = values[:len(values)-n]
	}
	pushUnknown := func(m int) {
		for i := 0; i < m; i++ {
			values = append(values, nil)
		}
	}

	var (
		pushUsedForJump *uint256.Int
		indirect        bool
	)

	for i, in := range ops {
		info := opcodes.Lookup(in.Op)
		last := i == len(ops)-1

		switch {
		case last && (in.Op == opcodes.JUMP || in.Op == opcodes.JUMPI):
			// Inspect the destination — the first value an EVM
			// JUMP/JUMPI implementation pops, i.e. the current top of
			// stack — before consuming it.
			if len(values) >= 1 && values[len(values)-1] != nil {
				pushUsedForJump = values[len(values)-1].Clone()
			} else {
				indirect = true
			}
			dropKnown(info.StackIn)
			pushUnknown(info.StackOut)
			adjustHeight(info.StackIn, info.StackOut)

		case in.Op.IsPush():
			imm := in.Immediate
			if imm == nil {
				imm = new(uint256.Int)
			}
			values = append(values, imm.Clone())
			adjustHeight(0, 1)

		case in.Op.IsDup():
			n := int(in.Op) - int(opcodes.DUP1) + 1
			var v *uint256.Int
			if n <= len(values) {
				v = values[len(values)-n]
			}
			values = append(values, v)
			adjustHeight(n, n+1)

		case in.Op.IsSwap():
			n := int(in.Op) - int(opcodes.SWAP1) + 1
			if n+1 <= len(values) {
				top, other := len(values)-1, len(values)-1-n
				values[top], values[other] = values[other], values[top]
			}
			adjustHeight(n+1, n+1)

		default:
			dropKnown(info.StackIn)
			pushUnknown(info.StackOut)
			adjustHeight(info.StackIn, info.StackOut)
		}
	}

	depth := 0
	if minHeight < 0 {
		depth = -minHeight
	}
	return StackInfo{
		MinStackDepth:   depth,
		NetStackDelta:   height,
		PushUsedForJump: pushUsedForJump,
		IndirectJump:    indirect,
	}
}
