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

package trace

import (
	"testing"

	"github.com/jiangzongkun/mev-cfg-go/common"
)

func TestParseBareArray(t *testing.T) {
	data := []byte(`[{"pc":0,"op":"PUSH1","depth":0},{"pc":2,"op":"CALL","depth":0}]`)
	steps, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("want 2 steps, got %d", len(steps))
	}
	if steps[1].Op != "CALL" {
		t.Fatalf("steps[1].Op = %q, want CALL", steps[1].Op)
	}
}

func TestParseWrappedObject(t *testing.T) {
	data := []byte(`{"gas":21000,"failed":false,"returnValue":"","structLogs":[{"pc":0,"op":"STOP","depth":0}]}`)
	steps, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(steps) != 1 || steps[0].Op != "STOP" {
		t.Fatalf("unexpected steps: %+v", steps)
	}
}

func TestParseInvalidJSON(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Fatalf("expected an error for invalid JSON")
	}
}

// TestAlignCallEdgeWithAddress mirrors spec.md §8 scenario 5: a CALL at
// depth 0 into a callee at depth 1, with the callee resolved directly
// from the next step's Address field (the custom-tracer path).
func TestAlignCallEdgeWithAddress(t *testing.T) {
	root := common.HexToAddress("0x1111111111111111111111111111111111111111")
	callee := common.HexToAddress("0x2222222222222222222222222222222222222222")

	steps := []Step{
		{PC: 0, Op: "PUSH1", Depth: 0, Address: root},
		{PC: 2, Op: "CALL", Depth: 0, Address: root},
		{PC: 0, Op: "STOP", Depth: 1, Address: callee},
	}
	aligned, dropped := Align(steps, root)
	if dropped != 0 {
		t.Fatalf("expected 0 dropped edges, got %d", dropped)
	}
	if len(aligned.CallEdges) != 1 {
		t.Fatalf("want 1 call edge, got %d: %+v", len(aligned.CallEdges), aligned.CallEdges)
	}
	edge := aligned.CallEdges[0]
	if edge.Caller != root || edge.Callee != callee || edge.CallerPC != 2 {
		t.Fatalf("unexpected call edge: %+v", edge)
	}
	if _, ok := aligned.ExecutedPCs[root][0]; !ok {
		t.Fatalf("expected pc 0 executed in root contract")
	}
	if _, ok := aligned.ExecutedPCs[callee][0]; !ok {
		t.Fatalf("expected pc 0 executed in callee contract")
	}
}

// TestAlignCallEdgeFromStack mirrors the struct-logger-only fallback: no
// step carries an Address, so the callee is parsed out of the CALL
// step's own stack (2nd from the top, per spec.md §4.6).
func TestAlignCallEdgeFromStack(t *testing.T) {
	root := common.HexToAddress("0x1111111111111111111111111111111111111111")
	callee := "0x0000000000000000000000002222222222222222222222222222222222222222"

	steps := []Step{
		{PC: 0, Op: "PUSH1", Depth: 0},
		{
			PC: 2, Op: "CALL", Depth: 0,
			Stack: []string{"0x0", "0x0", "0x0", callee, "0x5208"},
		},
		{PC: 0, Op: "STOP", Depth: 1},
	}
	aligned, dropped := Align(steps, root)
	if dropped != 0 {
		t.Fatalf("expected 0 dropped edges, got %d", dropped)
	}
	if len(aligned.CallEdges) != 1 {
		t.Fatalf("want 1 call edge, got %d: %+v", len(aligned.CallEdges), aligned.CallEdges)
	}
	edge := aligned.CallEdges[0]
	if edge.Callee != common.HexToAddress(callee) {
		t.Fatalf("unexpected callee resolved from stack: %+v", edge)
	}
}

func TestAlignDropsCallEdgeWithoutCallee(t *testing.T) {
	root := common.HexToAddress("0x1111111111111111111111111111111111111111")
	steps := []Step{
		{PC: 0, Op: "CALL", Depth: 0},
		{PC: 0, Op: "STOP", Depth: 1},
	}
	aligned, dropped := Align(steps, root)
	if dropped != 1 {
		t.Fatalf("want 1 dropped edge, got %d", dropped)
	}
	if len(aligned.CallEdges) != 0 {
		t.Fatalf("expected no call edges, got %+v", aligned.CallEdges)
	}
}

func TestAlignReturnPopsDepth(t *testing.T) {
	root := common.HexToAddress("0x1111111111111111111111111111111111111111")
	callee := common.HexToAddress("0x2222222222222222222222222222222222222222")
	steps := []Step{
		{PC: 0, Op: "CALL", Depth: 0, Stack: []string{"0x0", "0x0", "0x0", callee.Hex(), "0x5208"}},
		{PC: 0, Op: "STOP", Depth: 1},
		{PC: 5, Op: "STOP", Depth: 0},
	}
	aligned, dropped := Align(steps, root)
	if dropped != 0 {
		t.Fatalf("expected 0 dropped edges, got %d", dropped)
	}
	if _, ok := aligned.ExecutedPCs[callee][0]; !ok {
		t.Fatalf("expected pc 0 executed in callee, got %+v", aligned.ExecutedPCs)
	}
	if _, ok := aligned.ExecutedPCs[root][5]; !ok {
		t.Fatalf("expected pc 5 executed back in root after return, got %+v", aligned.ExecutedPCs)
	}
}
