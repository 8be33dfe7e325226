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

// Package trace parses a debug_traceTransaction-style struct-log trace
// and aligns it against the per-contract CFGs: which PCs actually
// executed in which contract, and which CALL-family opcodes crossed
// into which callee. The wire shape mirrors what go-ethereum's
// StructLogger emits (eth/tracers/logger), either as a bare array of
// steps or wrapped in the {gas, failed, returnValue, structLogs} object
// debug_traceTransaction returns.
package trace

import (
	"encoding/json"
	"fmt"

	"github.com/jiangzongkun/mev-cfg-go/common"
	"github.com/jiangzongkun/mev-cfg-go/mcerrors"
	"github.com/jiangzongkun/mev-cfg-go/opcodes"
)

// Step is one struct-log entry: a single opcode executed at a given
// call depth, with the operand stack as it stood just before
// execution. Address is only populated when the provider ran the
// custom tracer rpcclient requests (§4.6); a plain struct-logger
// response leaves Address as the zero value.
type Step struct {
	PC      uint16         `json:"pc"`
	Op      string         `json:"op"`
	Depth   int            `json:"depth"`
	Stack   []string       `json:"stack"`
	Gas     uint64         `json:"gas,omitempty"`
	GasCost uint64         `json:"gasCost,omitempty"`
	Address common.Address `json:"address,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// result is the {gas, failed, returnValue, structLogs} wrapper shape.
type result struct {
	Gas         uint64 `json:"gas"`
	Failed      bool   `json:"failed"`
	ReturnValue string `json:"returnValue"`
	StructLogs  []Step `json:"structLogs"`
}

// Parse accepts either wire shape debug_traceTransaction can return —
// a bare JSON array of steps, or the full result object — and returns
// the flat step list.
func Parse(data []byte) ([]Step, error) {
	var steps []Step
	if err := json.Unmarshal(data, &steps); err == nil {
		return steps, nil
	}
	var res result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, &mcerrors.Error{Kind: mcerrors.TraceParseError, Op: "trace.Parse", Err: err}
	}
	return res.StructLogs, nil
}

// CallEdge records one CALL-family transition observed in the trace:
// execution moved from (Caller, CallerPC) into Callee. Depth is the
// call depth the callee runs at, one more than the calling step's.
type CallEdge struct {
	Caller   common.Address
	CallerPC uint16
	Callee   common.Address
	Depth    int
	Kind     opcodes.OpCode // CALL, DELEGATECALL, STATICCALL, or CALLCODE
}

// Aligned is the per-transaction alignment result: which PCs executed
// in each contract, and the call edges stitching contracts together.
type Aligned struct {
	// ExecutedPCs maps a contract address to the set of program
	// counters that were actually executed, per spec.md §4.6.
	ExecutedPCs map[common.Address]map[uint16]struct{}
	CallEdges   []CallEdge
}

// Align walks steps in order, tracking a call stack of addresses by
// depth. It resolves each CALL-family step's callee through two paths,
// per spec.md §4.6/§9: if the following step carries a non-empty
// Address, that's used directly (the custom tracer rpcclient requests
// annotates every struct-log entry with its executing contract);
// otherwise Align falls back to parsing the callee straight out of the
// CALL-family step's own stack, at the position documented for all
// four call kinds (2nd from the top, i.e. Stack[len(Stack)-2] under the
// convention that the last element is top-of-stack). A CALL-family
// step whose callee cannot be determined by either path is recorded as
// a dropped edge and does not appear in the result.
func Align(steps []Step, root common.Address) (*Aligned, int) {
	out := &Aligned{ExecutedPCs: make(map[common.Address]map[uint16]struct{})}
	dropped := 0

	stack := []common.Address{root}
	pendingCall := -1 // index into steps of the most recent CALL-family step awaiting a depth increase

	markExecuted := func(addr common.Address, pc uint16) {
		set, ok := out.ExecutedPCs[addr]
		if !ok {
			set = make(map[uint16]struct{})
			out.ExecutedPCs[addr] = set
		}
		set[pc] = struct{}{}
	}

	for i, step := range steps {
		depth := len(stack) - 1
		for depth > step.Depth && len(stack) > 1 {
			stack = stack[:len(stack)-1]
			depth = len(stack) - 1
		}
		cur := stack[len(stack)-1]
		markExecuted(cur, step.PC)

		op := opcodes.OpCode(0)
		if code, ok := mnemonicToOp[step.Op]; ok {
			op = code
		}
		if op.IsCall() {
			pendingCall = i
		}

		if i+1 < len(steps) && steps[i+1].Depth > step.Depth {
			callee, ok := resolveCallee(steps[i+1], step)
			if !ok {
				dropped++
				pendingCall = -1
				continue
			}
			stack = append(stack, callee)
			if pendingCall == i {
				out.CallEdges = append(out.CallEdges, CallEdge{
					Caller:   cur,
					CallerPC: step.PC,
					Callee:   callee,
					Depth:    step.Depth + 1,
					Kind:     op,
				})
			}
			pendingCall = -1
		}
	}
	return out, dropped
}

var zeroAddress common.Address

// resolveCallee determines the address execution just entered, given
// the step about to run at the deeper depth (next) and the CALL-family
// step that triggered the transition (callStep).
func resolveCallee(next Step, callStep Step) (common.Address, bool) {
	if next.Address != zeroAddress {
		return next.Address, true
	}
	if len(callStep.Stack) < 2 {
		return common.Address{}, false
	}
	arg := callStep.Stack[len(callStep.Stack)-2]
	if arg == "" {
		return common.Address{}, false
	}
	return common.HexToAddress(arg), true
}

var mnemonicToOp = buildMnemonicIndex()

func buildMnemonicIndex() map[string]opcodes.OpCode {
	m := make(map[string]opcodes.OpCode, 256)
	for op := opcodes.OpCode(0); ; op++ {
		m[op.String()] = op
		if op == 0xff {
			break
		}
	}
	return m
}

func (s Step) String() string {
	return fmt.Sprintf("depth=%d pc=%d op=%s", s.Depth, s.PC, s.Op)
}
