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

package dotexport

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/jiangzongkun/mev-cfg-go/cfg"
	"github.com/jiangzongkun/mev-cfg-go/common"
	"github.com/jiangzongkun/mev-cfg-go/opcodes"
	"github.com/jiangzongkun/mev-cfg-go/txgraph"
)

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

func TestRenderContractIncludesSSTOREFill(t *testing.T) {
	code := mustHex("6000600155") // PUSH1 00, PUSH1 01, SSTORE
	c := cfg.Build(code)
	cfg.BuildBasicEdges(c)

	out := RenderContract("0xabc", c)
	if !strings.Contains(out, "fillcolor=\"lightyellow\"") {
		t.Fatalf("expected SSTORE block to be highlighted, got:\n%s", out)
	}
	if !strings.Contains(out, "digraph") {
		t.Fatalf("expected a valid digraph header, got:\n%s", out)
	}
}

func TestRenderGraphGroupsByContractAndMarksCrossContractEdges(t *testing.T) {
	addrA := common.HexToAddress("0x1111111111111111111111111111111111111111")
	addrB := common.HexToAddress("0x2222222222222222222222222222222222222222")

	g := &txgraph.Graph{
		Nodes: []txgraph.Node{
			{ID: txgraph.NodeID{Address: addrA, StartPC: 0}},
			{ID: txgraph.NodeID{Address: addrB, StartPC: 0}},
		},
		Edges: []txgraph.TxEdge{
			{
				Src:           txgraph.NodeID{Address: addrA, StartPC: 0},
				Dst:           txgraph.NodeID{Address: addrB, StartPC: 0},
				Kind:          cfg.Jump,
				CallKind:      opcodes.DELEGATECALL,
				CrossContract: true,
			},
		},
	}

	out := RenderGraph(g)
	if !strings.Contains(out, "cluster_0") {
		t.Fatalf("expected a cluster subgraph per contract, got:\n%s", out)
	}
	if !strings.Contains(out, `penwidth="2.5"`) {
		t.Fatalf("expected cross-contract edge to be visually distinct, got:\n%s", out)
	}
	if !strings.Contains(out, `color="blue"`) {
		t.Fatalf("expected cross-contract edge to be bold blue, got:\n%s", out)
	}
	if !strings.Contains(out, `label="DELEGATECALL"`) {
		t.Fatalf("expected cross-contract edge label to name the call kind, got:\n%s", out)
	}
}

func TestEdgeStyleLabelsIntraContractKinds(t *testing.T) {
	cases := []struct {
		kind  cfg.EdgeKind
		label string
	}{
		{cfg.ConditionTrue, "True"},
		{cfg.ConditionFalse, "False"},
		{cfg.SymbolicJump, "Symbolic"},
	}
	for _, tc := range cases {
		style := edgeStyle(tc.kind)
		if !strings.Contains(style, `label="`+tc.label+`"`) {
			t.Errorf("edgeStyle(%v) = %q, want label %q", tc.kind, style, tc.label)
		}
	}
	if strings.Contains(edgeStyle(cfg.Jump), "label=") {
		t.Errorf("edgeStyle(Jump) should carry no label, got %q", edgeStyle(cfg.Jump))
	}
}
