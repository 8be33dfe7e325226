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

// Package dotexport serializes a composed transaction graph (or a
// single contract's CFG) to Graphviz DOT, and optionally shells out to
// the dot binary to render it. Rendering is never done in-process —
// there is no pure-Go Graphviz layout engine in the dependency corpus,
// and re-implementing one is out of scope — so Render is a thin
// os/exec wrapper, the same shape bind_test.go uses to invoke `go
// test` as an external tool rather than linking its internals in.
package dotexport

import (
	"bytes"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/jiangzongkun/mev-cfg-go/cfg"
	"github.com/jiangzongkun/mev-cfg-go/mcerrors"
	"github.com/jiangzongkun/mev-cfg-go/opcodes"
	"github.com/jiangzongkun/mev-cfg-go/txgraph"
)

// edgeStyle maps an EdgeKind to its DOT edge attributes, per spec.md
// §4.8's fixed visual-style rules: ConditionTrue is green and labeled
// "True", ConditionFalse is red and labeled "False", SymbolicJump is
// dotted yellow and labeled "Symbolic", and a plain Jump carries no
// label at all.
func edgeStyle(k cfg.EdgeKind) string {
	switch k {
	case cfg.ConditionTrue:
		return `color="green" label="True"`
	case cfg.ConditionFalse:
		return `color="red" label="False"`
	case cfg.SymbolicJump:
		return `color="gold3" style="dotted" label="Symbolic"`
	default:
		return `color="black"`
	}
}

// externalEdgeStyle is the bold-blue, call-kind-labeled style spec.md
// §4.8 requires for a cross-contract External(call-kind) edge, kept
// distinct from edgeStyle's intra-contract palette so a CALL into
// another contract never gets mistaken for a plain Jump.
func externalEdgeStyle(kind opcodes.OpCode) string {
	return fmt.Sprintf(`color="blue" penwidth="2.5" label=%q`, kind.String())
}

const sstoreFill = `fillcolor="lightyellow" style="filled"`

// RenderGraph serializes a composed G-CFG to DOT. Nodes are labeled
// "0xADDR:PC", grouped visually by contract via DOT subgraph clusters,
// with cross-contract edges drawn bold to set them apart from
// intra-contract control flow.
func RenderGraph(g *txgraph.Graph) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G_CFG {\n")
	buf.WriteString("  rankdir=TB;\n  node [shape=box, fontname=\"monospace\"];\n")

	byContract := make(map[string][]int)
	for i, n := range g.Nodes {
		key := n.ID.Address.Hex()
		byContract[key] = append(byContract[key], i)
	}
	var addrs []string
	for addr := range byContract {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	for ci, addr := range addrs {
		fmt.Fprintf(&buf, "  subgraph cluster_%d {\n    label=%q;\n", ci, addr)
		for _, idx := range byContract[addr] {
			n := g.Nodes[idx]
			writeNode(&buf, nodeDotID(n.ID), n.ID.Address.Hex(), n.ID.StartPC, n.TouchesStore)
		}
		buf.WriteString("  }\n")
	}

	for _, e := range g.Edges {
		style := edgeStyle(e.Kind)
		if e.CrossContract {
			style = externalEdgeStyle(e.CallKind)
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", nodeDotID(e.Src), nodeDotID(e.Dst), style)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderContract serializes one contract's CFG in isolation (the
// supplemental per-contract view), highlighting SSTORE-containing
// blocks the same way RenderGraph does.
func RenderContract(addr string, c *cfg.ContractCFG) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %s {\n", sanitizeID(addr))
	buf.WriteString("  rankdir=TB;\n  node [shape=box, fontname=\"monospace\"];\n")

	for _, b := range c.Blocks {
		writeNode(&buf, fmt.Sprintf("pc%d", b.StartPC), addr, b.StartPC, b.ContainsSSTORE())
	}
	for _, e := range c.Edges {
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n",
			fmt.Sprintf("pc%d", c.Blocks[e.Src].StartPC),
			fmt.Sprintf("pc%d", c.Blocks[e.Dst].StartPC),
			edgeStyle(e.Kind))
	}
	buf.WriteString("}\n")
	return buf.String()
}

func writeNode(buf *bytes.Buffer, dotID, addr string, startPC uint16, touchesStore bool) {
	label := fmt.Sprintf("%s:%d", addr, startPC)
	attrs := fmt.Sprintf(`label=%q`, label)
	if touchesStore {
		attrs += " " + sstoreFill
	}
	fmt.Fprintf(buf, "    %q [%s];\n", dotID, attrs)
}

func nodeDotID(id txgraph.NodeID) string {
	return fmt.Sprintf("%s:%d", id.Address.Hex(), id.StartPC)
}

func sanitizeID(s string) string {
	s = strings.ReplaceAll(s, "0x", "addr_")
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, s)
}

// Render shells out to dot, producing outPath in format (e.g. "svg",
// "png") from the DOT source in dotPath.
func Render(dotPath, outPath, format string) error {
	cmd := exec.Command("dot", "-T"+format, "-o", outPath, dotPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &mcerrors.Error{Kind: mcerrors.RenderError, Op: "dotexport.Render", Err: fmt.Errorf("%v: %s", err, out)}
	}
	return nil
}
