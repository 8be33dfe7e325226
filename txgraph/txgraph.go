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

// Package txgraph composes the global transaction control-flow graph
// (the "G-CFG"): the union of every contract's executed basic blocks
// for one transaction, stitched together by the CALL-family edges the
// trace aligner observed. This is the terminal node of the pipeline —
// everything upstream (disasm, stackinfo, cfg, solver, trace) feeds a
// single Compose call.
package txgraph

import (
	"github.com/jiangzongkun/mev-cfg-go/cfg"
	"github.com/jiangzongkun/mev-cfg-go/common"
	"github.com/jiangzongkun/mev-cfg-go/opcodes"
	"github.com/jiangzongkun/mev-cfg-go/trace"
)

// NodeID identifies one executed basic block in the global graph: the
// contract it belongs to, plus that block's start PC within its
// contract.
type NodeID struct {
	Address common.Address
	StartPC uint16
}

// Node is one entry in the global graph's arena: a contract's basic
// block, annotated with whether the block itself contains an SSTORE.
type Node struct {
	ID           NodeID
	Block        *cfg.BasicBlock
	TouchesStore bool
}

// TxEdge is one directed edge in the global graph, either an
// intra-contract edge carried over from a ContractCFG (Internal(kind)
// per spec.md §3, with Kind set and CallKind meaningless), or a
// cross-contract edge discovered by the trace aligner (External(kind),
// CrossContract set and CallKind carrying the CALL/DELEGATECALL/
// STATICCALL/CALLCODE opcode that crossed into the callee).
type TxEdge struct {
	Src, Dst      NodeID
	Kind          cfg.EdgeKind
	CallKind      opcodes.OpCode
	CrossContract bool
}

// Graph is the composed global transaction CFG.
type Graph struct {
	Nodes []Node
	Edges []TxEdge

	index map[NodeID]int
	// DroppedCallEdges counts CALL-family trace edges that could not
	// be stitched in: the callee's CFG wasn't provided or has no
	// blocks, no block of the caller's CFG contains CallerPC, or the
	// caller block or callee entry block was not executed.
	DroppedCallEdges int
}

// IndexOf returns the arena position of id, if present.
func (g *Graph) IndexOf(id NodeID) (int, bool) {
	idx, ok := g.index[id]
	return idx, ok
}

// Contract bundles one contract's CFG with its address, the unit
// Compose consumes per participant in the transaction.
type Contract struct {
	Address common.Address
	CFG     *cfg.ContractCFG
}

// Compose builds the G-CFG for one transaction: contracts lists every
// contract that participated (by address), aligned is the trace
// aligner's output pairing executed PCs and call edges to those same
// addresses. Only blocks containing at least one executed PC are
// included, per spec.md §4.7's "restricted to executed blocks" rule.
func Compose(contracts []Contract, aligned *trace.Aligned) *Graph {
	g := &Graph{index: make(map[NodeID]int)}

	byAddr := make(map[common.Address]*cfg.ContractCFG, len(contracts))
	for _, c := range contracts {
		byAddr[c.Address] = c.CFG
	}

	// blockIndex maps (address, arena index within that contract's CFG)
	// to this graph's node index, so intra-contract edges can be
	// translated without a second PC lookup.
	blockIndex := make(map[common.Address]map[int]int)

	for _, c := range contracts {
		executed := aligned.ExecutedPCs[c.Address]
		if len(executed) == 0 {
			continue
		}
		localIdx := make(map[int]int)
		for bi, b := range c.CFG.Blocks {
			if !blockExecuted(b, executed) {
				continue
			}
			id := NodeID{Address: c.Address, StartPC: b.StartPC}
			g.index[id] = len(g.Nodes)
			localIdx[bi] = len(g.Nodes)
			g.Nodes = append(g.Nodes, Node{ID: id, Block: b, TouchesStore: b.ContainsSSTORE()})
		}
		blockIndex[c.Address] = localIdx
	}

	for _, c := range contracts {
		localIdx, ok := blockIndex[c.Address]
		if !ok {
			continue
		}
		for _, e := range c.CFG.Edges {
			srcNode, srcOK := localIdx[e.Src]
			dstNode, dstOK := localIdx[e.Dst]
			if !srcOK || !dstOK {
				continue
			}
			g.Edges = append(g.Edges, TxEdge{
				Src:  g.Nodes[srcNode].ID,
				Dst:  g.Nodes[dstNode].ID,
				Kind: e.Kind,
			})
		}
	}

	for _, call := range aligned.CallEdges {
		calleeCFG, ok := byAddr[call.Callee]
		if !ok {
			g.DroppedCallEdges++
			continue
		}
		srcIdx, srcOK := findBlockContaining(byAddr[call.Caller], call.CallerPC)
		dstIdx, dstOK := 0, len(calleeCFG.Blocks) > 0
		if !srcOK || !dstOK {
			g.DroppedCallEdges++
			continue
		}
		srcID := NodeID{Address: call.Caller, StartPC: byAddr[call.Caller].Blocks[srcIdx].StartPC}
		dstID := NodeID{Address: call.Callee, StartPC: calleeCFG.Blocks[dstIdx].StartPC}
		if _, ok := g.index[srcID]; !ok {
			g.DroppedCallEdges++
			continue
		}
		if _, ok := g.index[dstID]; !ok {
			g.DroppedCallEdges++
			continue
		}
		g.Edges = append(g.Edges, TxEdge{Src: srcID, Dst: dstID, CallKind: call.Kind, CrossContract: true})
	}

	return g
}

func blockExecuted(b *cfg.BasicBlock, executed map[uint16]struct{}) bool {
	for pc := range executed {
		if pc >= b.StartPC && pc <= b.EndPC {
			return true
		}
	}
	return false
}

func findBlockContaining(c *cfg.ContractCFG, pc uint16) (int, bool) {
	if c == nil {
		return 0, false
	}
	return c.BlockContaining(pc)
}
