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
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/jiangzongkun/mev-cfg-go/opcodes"
)

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// TestSeedScenario1 mirrors spec.md §8 scenario 1: PUSH1 01, PUSH1 02, ADD.
func TestSeedScenario1(t *testing.T) {
	code := mustHex("6001600201")
	instrs := Disassemble(code)
	if len(instrs) != 3 {
		t.Fatalf("want 3 instructions, got %d", len(instrs))
	}
	if instrs[0].PC != 0 || instrs[0].Op != opcodes.PUSH1 {
		t.Fatalf("instr 0: %+v", instrs[0])
	}
	if instrs[1].PC != 2 || instrs[1].Op != opcodes.PUSH1 {
		t.Fatalf("instr 1: %+v", instrs[1])
	}
	if instrs[2].PC != 4 || instrs[2].Op != opcodes.ADD {
		t.Fatalf("instr 2: %+v", instrs[2])
	}
}

// TestSeedScenario2 mirrors spec.md §8 scenario 2: PUSH1 03, JUMP, JUMPDEST, STOP.
func TestSeedScenario2(t *testing.T) {
	code := mustHex("6003565b00")
	instrs := Disassemble(code)
	wantOps := []opcodes.OpCode{opcodes.PUSH1, opcodes.JUMP, opcodes.JUMPDEST, opcodes.STOP}
	if len(instrs) != len(wantOps) {
		t.Fatalf("want %d instructions, got %d", len(wantOps), len(instrs))
	}
	for i, op := range wantOps {
		if instrs[i].Op != op {
			t.Fatalf("instr %d: op = %v, want %v", i, instrs[i].Op, op)
		}
	}
	dests := JumpDests(code)
	if _, ok := dests[3]; !ok {
		t.Fatalf("expected JUMPDEST at pc 3, dests=%v", dests)
	}
}

// TestJumpDestInsidePush checks spec.md §8's boundary behavior: a
// JUMPDEST byte (0x5b) inside a PUSH immediate is not a valid jumpdest.
func TestJumpDestInsidePush(t *testing.T) {
	code := []byte{byte(opcodes.PUSH1), byte(opcodes.JUMPDEST), byte(opcodes.STOP)}
	dests := JumpDests(code)
	if _, ok := dests[1]; ok {
		t.Fatalf("pc 1 should not be a valid jumpdest (inside PUSH1 immediate): %v", dests)
	}
}

func TestTruncatedTrailingPush(t *testing.T) {
	// PUSH4 with only two bytes available.
	code := []byte{byte(opcodes.PUSH4), 0x01, 0x02}
	instrs := Disassemble(code)
	if len(instrs) != 1 {
		t.Fatalf("want 1 instruction, got %d: %+v", len(instrs), instrs)
	}
	in := instrs[0]
	if in.Op != opcodes.PUSH4 {
		t.Fatalf("op = %v, want PUSH4", in.Op)
	}
	if in.Len(len(code)) != 3 {
		t.Fatalf("Len = %d, want 3 (1 opcode byte + 2 available immediate bytes)", in.Len(len(code)))
	}
}

func TestEmptyBytecode(t *testing.T) {
	if instrs := Disassemble(nil); instrs != nil {
		t.Fatalf("expected nil instructions for empty code, got %v", instrs)
	}
	if dests := JumpDests(nil); len(dests) != 0 {
		t.Fatalf("expected no jumpdests for empty code, got %v", dests)
	}
}

// TestReassembleRoundTrip checks spec.md §8's round-trip property:
// Disassemble then Reassemble yields the original bytecode.
func TestReassembleRoundTrip(t *testing.T) {
	tests := [][]byte{
		mustHex("6001600201"),
		mustHex("6003565b00"),
		mustHex("6006576001005b6002"),
		{byte(opcodes.PUSH4), 0x01, 0x02}, // truncated push
		{},
	}
	for i, code := range tests {
		instrs := Disassemble(code)
		got := Reassemble(code, instrs)
		if !bytes.Equal(got, code) {
			t.Errorf("test %d: round-trip mismatch: got %x, want %x", i, got, code)
		}
	}
}
