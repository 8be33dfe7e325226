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

package cfg

import (
	"github.com/jiangzongkun/mev-cfg-go/disasm"
	"github.com/jiangzongkun/mev-cfg-go/opcodes"
)

// BuildBasicEdges adds every edge that is structurally obvious without
// the symbolic solver, per spec.md §4.3:
//
//  1. A block that falls through (its terminator is not STOP, RETURN,
//     REVERT, INVALID, SELFDESTRUCT, JUMP, or an unknown opcode) gets a
//     Jump edge to the block starting immediately after it, if one
//     exists.
//  2. A block ending in JUMPI with a statically-known target gets a
//     ConditionTrue edge to that target (if it is a valid JUMPDEST) and
//     a ConditionFalse edge to the following block.
//  3. A block ending in JUMP with a statically-known target gets a
//     single Jump edge to that target (if it is a valid JUMPDEST).
//
// Blocks ending in JUMP/JUMPI whose target is not statically known are
// left for the solver; no SymbolicJump edges are added here.
func BuildBasicEdges(c *ContractCFG) {
	for i, b := range c.Blocks {
		term := b.Terminator()
		info := opcodes.Lookup(term.Op)

		fallThroughIdx, hasFallThrough := c.BlockAt(b.EndPC + 1)

		switch {
		case term.Op == opcodes.JUMPI:
			if b.Stack.PushUsedForJump != nil && !b.Stack.IndirectJump {
				target := b.Stack.PushUsedForJump.Uint64()
				if target <= 0xffff && disasm.IsValidJumpDest(c.Code, uint16(target)) {
					if dstIdx, ok := c.BlockAt(uint16(target)); ok {
						c.AddEdge(Edge{Src: i, Dst: dstIdx, Kind: ConditionTrue})
					}
				}
			}
			if hasFallThrough {
				c.AddEdge(Edge{Src: i, Dst: fallThroughIdx, Kind: ConditionFalse})
			}

		case term.Op == opcodes.JUMP:
			if b.Stack.PushUsedForJump != nil && !b.Stack.IndirectJump {
				target := b.Stack.PushUsedForJump.Uint64()
				if target <= 0xffff && disasm.IsValidJumpDest(c.Code, uint16(target)) {
					if dstIdx, ok := c.BlockAt(uint16(target)); ok {
						c.AddEdge(Edge{Src: i, Dst: dstIdx, Kind: Jump})
					}
				}
			}

		case !info.IsBlockEnder:
			// Ran off the end of a block without hitting an explicit
			// terminator (e.g. a JUMPDEST-forced split): falls through.
			if hasFallThrough {
				c.AddEdge(Edge{Src: i, Dst: fallThroughIdx, Kind: Jump})
			}
		}
	}
}

// incomingCount returns, for every block index, the number of edges
// that name it as a destination.
func incomingCount(c *ContractCFG) map[int]int {
	in := make(map[int]int, len(c.Blocks))
	for _, e := range c.Edges {
		in[e.Dst]++
	}
	return in
}

// Prune removes orphan blocks in a single, non-cascading pass, per
// spec.md §4.5. A block is dropped when it has zero incoming edges,
// its first instruction is not JUMPDEST, and its StartPC is not 0 (the
// entry block is always kept). This mirrors the original Rust
// analyzer's remove_unreachable_instruction_blocks(), which inspects
// each block's direct incoming-edge count exactly once rather than
// walking reachability from the entry block: a JUMPDEST-headed block
// with no incoming edges is kept because it may be the target of an
// indirect jump the solver never resolved, and no second pass re-checks
// blocks that only lost their last incoming edge as a side effect of
// this one.
func Prune(c *ContractCFG) {
	if len(c.Blocks) == 0 {
		return
	}
	in := incomingCount(c)

	drop := make(map[int]bool)
	for i, b := range c.Blocks {
		if in[i] > 0 {
			continue
		}
		if b.StartPC == 0 {
			continue
		}
		if len(b.Ops) > 0 && b.Ops[0].Op == opcodes.JUMPDEST {
			continue
		}
		drop[i] = true
	}

	remap := make(map[int]int, len(c.Blocks)-len(drop))
	var newBlocks []*BasicBlock
	for i, b := range c.Blocks {
		if drop[i] {
			continue
		}
		remap[i] = len(newBlocks)
		newBlocks = append(newBlocks, b)
	}
	var newEdges []Edge
	for _, e := range c.Edges {
		srcIdx, srcOK := remap[e.Src]
		dstIdx, dstOK := remap[e.Dst]
		if srcOK && dstOK {
			newEdges = append(newEdges, Edge{Src: srcIdx, Dst: dstIdx, Kind: e.Kind})
		}
	}

	newByStart := make(map[uint16]int, len(newBlocks))
	for i, b := range newBlocks {
		newByStart[b.StartPC] = i
	}

	c.Blocks = newBlocks
	c.Edges = newEdges
	c.byStart = newByStart
}
