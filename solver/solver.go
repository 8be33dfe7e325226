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

// Package solver resolves JUMP/JUMPI targets that the per-block stack
// analysis could not pin down to a single constant — indirect jumps fed
// by PHI-joined values flowing in from more than one predecessor block.
// It propagates an abstract stack across the whole contract CFG to a
// fixed point, worklist-style, the same shape go-ethereum's
// core/forkid and trie iterators use for "keep processing until nothing
// changes": a FIFO queue of dirty blocks, each popped once and
// reprocessed only when one of its predecessors produces a wider value.
package solver

import (
	"github.com/holiman/uint256"
	"github.com/jiangzongkun/mev-cfg-go/cfg"
	"github.com/jiangzongkun/mev-cfg-go/disasm"
	"github.com/jiangzongkun/mev-cfg-go/opcodes"
)

// Symbol is the tagged union of abstract stack-slot contents the solver
// tracks, per spec.md §4.4.
type Symbol struct {
	kind SymbolKind

	// Concrete holds the value when kind == KindConcrete.
	Concrete *uint256.Int
	// Opaque identifies an unknown value's origin when kind ==
	// KindOpaque (numbered from a per-block base, so one introduction
	// site keeps its id when its block is simulated again).
	Opaque int
	// Phi holds the distinct source symbols joined at a block with more
	// than one predecessor, when kind == KindPhi.
	Phi []Symbol
}

// SymbolKind distinguishes the five shapes a stack slot's provenance
// can take.
type SymbolKind int

const (
	KindConcrete SymbolKind = iota
	KindCalldataWord
	KindStorageWord
	KindOpaque
	KindPhi
)

func concrete(v *uint256.Int) Symbol { return Symbol{kind: KindConcrete, Concrete: v} }

func opaque(id int) Symbol { return Symbol{kind: KindOpaque, Opaque: id} }

// join merges two symbols observed for the same slot across different
// predecessors. Identical concretes stay concrete; anything else
// collapses to a Phi (or widens an existing Phi). A jump whose target
// is a Phi gets an edge to each Concrete member of it (see Resolve).
func join(a, b Symbol) Symbol {
	if equalSymbol(a, b) {
		return a
	}
	var parts []Symbol
	if a.kind == KindPhi {
		parts = append(parts, a.Phi...)
	} else {
		parts = append(parts, a)
	}
	if b.kind == KindPhi {
		for _, p := range b.Phi {
			parts = appendUnique(parts, p)
		}
	} else {
		parts = appendUnique(parts, b)
	}
	return Symbol{kind: KindPhi, Phi: parts}
}

func appendUnique(parts []Symbol, s Symbol) []Symbol {
	for _, p := range parts {
		if equalSymbol(p, s) {
			return parts
		}
	}
	return append(parts, s)
}

func equalSymbol(a, b Symbol) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindConcrete:
		return a.Concrete.Eq(b.Concrete)
	case KindOpaque:
		return a.Opaque == b.Opaque
	case KindPhi:
		if len(a.Phi) != len(b.Phi) {
			return false
		}
		for i := range a.Phi {
			if !equalSymbol(a.Phi[i], b.Phi[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// stack is the abstract value stack carried into and out of a block.
type stack []Symbol

func (s stack) top(n int) (Symbol, bool) {
	if n >= len(s) {
		return Symbol{}, false
	}
	return s[len(s)-1-n], true
}

// BudgetExceeded is returned (non-fatally — the caller logs and moves
// on to the next contract) when the worklist doesn't converge within
// the iteration cap, per spec.md §4.4/§9.
type BudgetExceeded struct {
	Iterations int
}

func (e *BudgetExceeded) Error() string {
	return "solver: exceeded iteration budget without reaching a fixed point"
}

// maxIterationFactor bounds worklist iterations at maxIterationFactor *
// block count, per spec.md §9's "terminates, possibly leaving some
// jumps unresolved" guarantee.
const maxIterationFactor = 8

// Resolve propagates abstract stacks across c to a fixed point, adding
// a cfg.SymbolicJump edge for every indirect JUMP/JUMPI (one
// BuildBasicEdges could not resolve) to each valid jumpdest its
// destination can take: a single Concrete value, or every Concrete
// member of a Phi. It never removes or alters
// edges BuildBasicEdges already added. If the worklist does not
// converge within budget, it returns *BudgetExceeded alongside
// whatever edges were resolved so far — the caller should keep those
// and flag the contract, not discard the partial result.
func Resolve(c *cfg.ContractCFG) error {
	if len(c.Blocks) == 0 {
		return nil
	}
	entry, ok := c.BlockAt(0)
	if !ok {
		entry = 0
	}

	entryStacks := make([]stack, len(c.Blocks))
	visited := make([]bool, len(c.Blocks))
	queue := []int{entry}
	entryStacks[entry] = stack{}

	nextOpaqueID := 0
	newOpaque := func() Symbol {
		nextOpaqueID++
		return opaque(nextOpaqueID)
	}

	budget := maxIterationFactor * len(c.Blocks)
	iterations := 0

	for len(queue) > 0 {
		iterations++
		if iterations > budget {
			return &BudgetExceeded{Iterations: iterations}
		}

		idx := queue[0]
		queue = queue[1:]
		block := c.Blocks[idx]
		visited[idx] = true

		// Each block numbers its opaque values from its own base, so
		// simulating it again yields the same ids.
		nextOpaqueID = idx << 16
		out, target, hasJump := simulate(block, entryStacks[idx], newOpaque)

		if hasJump && target != nil && block.Stack.IndirectJump {
			candidates := []Symbol{*target}
			if target.kind == KindPhi {
				candidates = target.Phi
			}
			for _, cand := range candidates {
				if t := asConcrete(cand); t != nil && t.IsUint64() {
					tv := t.Uint64()
					if tv <= 0xffff && disasm.IsValidJumpDest(c.Code, uint16(tv)) {
						if dstIdx, ok := c.BlockAt(uint16(tv)); ok {
							c.AddEdge(cfg.Edge{Src: idx, Dst: dstIdx, Kind: cfg.SymbolicJump})
						}
					}
				}
			}
		}

		for _, succIdx := range structuralSuccessors(c, idx) {
			merged := out
			if entryStacks[succIdx] != nil {
				merged = mergeStacks(entryStacks[succIdx], out)
			}
			if !visited[succIdx] || !stacksEqual(entryStacks[succIdx], merged) {
				entryStacks[succIdx] = merged
				queue = append(queue, succIdx)
			}
		}
	}
	return nil
}

// structuralSuccessors returns idx's successors as already known from
// the basic edge builder (Jump/ConditionTrue/ConditionFalse), which is
// what propagates the abstract stack forward; SymbolicJump edges this
// same pass adds are not fed back in, since their targets were just
// discovered from this block's own exit stack, not the other way
// round.
func structuralSuccessors(c *cfg.ContractCFG, idx int) []int {
	var out []int
	for _, e := range c.Edges {
		if e.Src == idx && e.Kind != cfg.SymbolicJump {
			out = append(out, e.Dst)
		}
	}
	return out
}

func mergeStacks(a, b stack) stack {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make(stack, n)
	// Align from the top: index 0 is the bottom of the shorter window.
	for i := 0; i < n; i++ {
		ai := a[len(a)-n+i]
		bi := b[len(b)-n+i]
		out[i] = join(ai, bi)
	}
	return out
}

func stacksEqual(a, b stack) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equalSymbol(a[i], b[i]) {
			return false
		}
	}
	return true
}

func asConcrete(s Symbol) *uint256.Int {
	if s.kind == KindConcrete {
		return s.Concrete
	}
	return nil
}

// simulate runs block's instructions over entry, returning the exit
// stack, the (possible) jump-destination symbol if the block ends in
// JUMP/JUMPI, and whether that terminator exists at all.
func simulate(block *cfg.BasicBlock, entry stack, newOpaque func() Symbol) (out stack, target *Symbol, hasJump bool) {
	s := append(stack{}, entry...)
	var jumpTarget *Symbol

	for i, in := range block.Ops {
		last := i == len(block.Ops)-1
		info := opcodes.Lookup(in.Op)

		switch {
		case last && (in.Op == opcodes.JUMP || in.Op == opcodes.JUMPI):
			if top, ok := s.top(0); ok {
				t := top
				jumpTarget = &t
			} else {
				t := newOpaque()
				jumpTarget = &t
			}
			s = pop(s, info.StackIn)
			s = pushUnknown(s, info.StackOut, newOpaque)

		case in.Op.IsPush():
			imm := in.Immediate
			if imm == nil {
				imm = new(uint256.Int)
			}
			s = append(s, concrete(imm))

		case in.Op.IsDup():
			n := int(in.Op) - int(opcodes.DUP1) + 1
			v, ok := s.top(n - 1)
			if !ok {
				v = newOpaque()
			}
			s = append(s, v)

		case in.Op.IsSwap():
			n := int(in.Op) - int(opcodes.SWAP1) + 1
			if n < len(s) {
				top, other := len(s)-1, len(s)-1-n
				s[top], s[other] = s[other], s[top]
			}

		default:
			s = pop(s, info.StackIn)
			s = pushUnknown(s, info.StackOut, newOpaque)
		}
	}
	return s, jumpTarget, jumpTarget != nil
}

func pop(s stack, n int) stack {
	if n >= len(s) {
		return s[:0]
	}
	return s[:len(s)-n]
}

func pushUnknown(s stack, n int, newOpaque func() Symbol) stack {
	for i := 0; i < n; i++ {
		s = append(s, newOpaque())
	}
	return s
}
