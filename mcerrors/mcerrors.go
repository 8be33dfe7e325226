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

// Package mcerrors defines the error taxonomy shared across the
// toolchain's pipeline stages. Each stage wraps its underlying error
// with a Kind so the CLI's top-level handler can report a concise
// category without callers needing to inspect error strings.
package mcerrors

import "fmt"

// Kind classifies an Error by the pipeline stage that produced it.
type Kind int

const (
	ConfigError Kind = iota
	IOError
	RPCError
	TraceParseError
	BytecodeAnalysisError
	SolverBudgetExceeded
	RenderError
)

func (k Kind) String() string {
	switch k {
	case ConfigError:
		return "config"
	case IOError:
		return "io"
	case RPCError:
		return "rpc"
	case TraceParseError:
		return "trace_parse"
	case BytecodeAnalysisError:
		return "bytecode_analysis"
	case SolverBudgetExceeded:
		return "solver_budget_exceeded"
	case RenderError:
		return "render"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with the pipeline stage (Kind) and
// operation (Op) that produced it, following the same Op/Err shape
// go-ethereum's own leveldb and rawdb error wrappers use.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so
// callers can write errors.Is(err, &mcerrors.Error{Kind: mcerrors.RPCError}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
