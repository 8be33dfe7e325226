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

// Package cfg builds and manipulates the per-contract control-flow
// graph: block partitioning, the structurally-obvious edge builder, and
// the reachability pruner. Blocks are stored in a flat arena indexed by
// position, edges as (srcIdx, dstIdx, kind) tuples, never as
// owning-references between nodes — spec.md §9 is explicit that these
// graphs are cyclic, so anything pointer-chased would need to tolerate
// cycles anyway; an arena with integer indices sidesteps the question
// entirely, the same shape go-ethereum's own DAG-ish structures (e.g.
// the downloader's queue, or a blockchain fork-choice set) tend to use
// over pointer graphs once cycles or multi-parent references are
// possible.
package cfg

import (
	"fmt"

	"github.com/jiangzongkun/mev-cfg-go/disasm"
	"github.com/jiangzongkun/mev-cfg-go/opcodes"
	"github.com/jiangzongkun/mev-cfg-go/stackinfo"
)

// BasicBlock is a maximal straight-line run of instructions, per
// spec.md §3.
type BasicBlock struct {
	StartPC uint16
	EndPC   uint16
	Ops     []disasm.Instruction
	Stack   stackinfo.StackInfo
}

// Terminator returns the block's last instruction.
func (b *BasicBlock) Terminator() disasm.Instruction {
	return b.Ops[len(b.Ops)-1]
}

// ContainsSSTORE reports whether any instruction in the block writes to
// persistent storage (opcode 0x55), per spec.md §3/§4.7.
func (b *BasicBlock) ContainsSSTORE() bool {
	for _, op := range b.Ops {
		if op.Op == opcodes.SSTORE {
			return true
		}
	}
	return false
}

// EdgeKind labels one directed edge between two blocks in the same
// contract, per spec.md §3.
type EdgeKind int

const (
	// Jump is a fall-through or direct, unconditional jump.
	Jump EdgeKind = iota
	// ConditionTrue is the JUMPI branch taken when the condition is
	// non-zero.
	ConditionTrue
	// ConditionFalse is the JUMPI fall-through taken when the condition
	// is zero.
	ConditionFalse
	// SymbolicJump is an edge resolved by the symbolic stack solver
	// rather than by the structurally-obvious edge builder.
	SymbolicJump
)

func (k EdgeKind) String() string {
	switch k {
	case Jump:
		return "Jump"
	case ConditionTrue:
		return "ConditionTrue"
	case ConditionFalse:
		return "ConditionFalse"
	case SymbolicJump:
		return "SymbolicJump"
	default:
		return fmt.Sprintf("EdgeKind(%d)", int(k))
	}
}

// Edge is one (source, target, kind) tuple. Source and target are block
// arena indices, not pointers, so the graph tolerates cycles freely.
type Edge struct {
	Src, Dst int
	Kind     EdgeKind
}

// ContractCFG is the complete per-contract control-flow graph: an arena
// of blocks plus an edge list, with an index from start PC to arena
// position for O(1) lookup.
type ContractCFG struct {
	Code   []byte
	Blocks []*BasicBlock
	Edges  []Edge

	byStart map[uint16]int
}

// BlockAt returns the arena index of the block starting at pc, and
// whether one exists.
func (c *ContractCFG) BlockAt(pc uint16) (int, bool) {
	idx, ok := c.byStart[pc]
	return idx, ok
}

// BlockContaining returns the arena index of the block whose [StartPC,
// EndPC] range contains pc.
func (c *ContractCFG) BlockContaining(pc uint16) (int, bool) {
	for i, b := range c.Blocks {
		if pc >= b.StartPC && pc <= b.EndPC {
			return i, true
		}
	}
	return 0, false
}

// AddEdge appends e unless an identical (Src, Dst, Kind) edge is already
// present; returns whether a new edge was added.
func (c *ContractCFG) AddEdge(e Edge) bool {
	for _, existing := range c.Edges {
		if existing == e {
			return false
		}
	}
	c.Edges = append(c.Edges, e)
	return true
}

// Successors returns the arena indices reachable from block idx via any
// edge, deduplicated.
func (c *ContractCFG) Successors(idx int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, e := range c.Edges {
		if e.Src == idx && !seen[e.Dst] {
			seen[e.Dst] = true
			out = append(out, e.Dst)
		}
	}
	return out
}

// Build disassembles code, partitions it into basic blocks (spec.md
// §4.1), and computes each block's StackInfo. Edge construction and
// pruning are separate passes (BuildBasicEdges, Prune), matching the
// component pipeline in spec.md §2.
func Build(code []byte) *ContractCFG {
	c := &ContractCFG{Code: code, byStart: make(map[uint16]int)}
	if len(code) == 0 {
		return c
	}
	jumpdests := disasm.JumpDests(code)
	instrs := disasm.Disassemble(code)

	var cur []disasm.Instruction
	startPC := instrs[0].PC
	flush := func(endPC uint16) {
		if len(cur) == 0 {
			return
		}
		block := &BasicBlock{
			StartPC: startPC,
			EndPC:   endPC,
			Ops:     cur,
			Stack:   stackinfo.Analyze(cur),
		}
		c.byStart[block.StartPC] = len(c.Blocks)
		c.Blocks = append(c.Blocks, block)
		cur = nil
	}

	for i, in := range instrs {
		cur = append(cur, in)
		info := opcodes.Lookup(in.Op)
		length := in.Len(len(code))
		endPC := in.PC + uint16(length) - 1

		isLast := i == len(instrs)-1
		var nextPC uint16
		nextIsJumpdest := false
		if !isLast {
			nextPC = instrs[i+1].PC
			_, nextIsJumpdest = jumpdests[nextPC]
		}

		if info.IsBlockEnder || isLast || nextIsJumpdest {
			flush(endPC)
			if !isLast {
				startPC = nextPC
			}
		}
	}
	return c
}
