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

package solver

import (
	"encoding/hex"
	"testing"

	"github.com/jiangzongkun/mev-cfg-go/cfg"
)

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// TestResolvesFallthroughIndirectJump mirrors spec.md §8 scenario 4: a
// target pushed in one block and carried, unmodified, across a
// fall-through into a block that jumps using it — locally indirect
// (the jumping block contains no push of its own) but statically
// resolvable once the solver threads the predecessor's stack forward.
// The bytecode here happens to jump back to the JUMPDEST that precedes
// the JUMP itself, producing a resolved self-loop — a legitimate
// result given spec.md §9's acknowledgment that these graphs are
// cyclic.
func TestResolvesFallthroughIndirectJump(t *testing.T) {
	code := mustHex("60025b56") // PUSH1 0x02, JUMPDEST, JUMP
	c := cfg.Build(code)
	cfg.BuildBasicEdges(c)

	loopBlock, ok := c.BlockAt(2)
	if !ok {
		t.Fatalf("no block at pc 2")
	}
	if err := Resolve(c); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	found := false
	for _, e := range c.Edges {
		if e.Src == loopBlock && e.Dst == loopBlock && e.Kind == cfg.SymbolicJump {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a resolved SymbolicJump self-loop at block %d, edges=%+v", loopBlock, c.Edges)
	}
}

// TestLeavesTrulyOpaqueJumpUnresolved checks that a jump fed by
// calldata (genuinely unknowable without runtime values) gets no edge
// at all, and that Resolve reports no error for it — an unresolved
// jump is not a solver failure.
func TestLeavesTrulyOpaqueJumpUnresolved(t *testing.T) {
	code := mustHex("60003556") // PUSH1 00, CALLDATALOAD, JUMP
	c := cfg.Build(code)
	cfg.BuildBasicEdges(c)

	if err := Resolve(c); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(c.Edges) != 0 {
		t.Fatalf("expected no edges for a calldata-fed jump, got %+v", c.Edges)
	}
}

// TestResolveIsIdempotentOnDirectJumps checks that running the solver
// over a contract whose jumps were already resolved by the basic edge
// builder doesn't introduce duplicate or conflicting edges.
func TestResolveIsIdempotentOnDirectJumps(t *testing.T) {
	code := mustHex("6003565b00") // PUSH1 03, JUMP, JUMPDEST, STOP
	c := cfg.Build(code)
	cfg.BuildBasicEdges(c)
	before := len(c.Edges)

	if err := Resolve(c); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(c.Edges) != before {
		t.Fatalf("expected no new edges from an already-direct jump, before=%d after=%d", before, len(c.Edges))
	}
}
