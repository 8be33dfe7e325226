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

package main

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/jiangzongkun/mev-cfg-go/bytecache"
	"github.com/jiangzongkun/mev-cfg-go/cfg"
	"github.com/jiangzongkun/mev-cfg-go/common"
	"github.com/jiangzongkun/mev-cfg-go/config"
	"github.com/jiangzongkun/mev-cfg-go/dotexport"
	"github.com/jiangzongkun/mev-cfg-go/log"
	"github.com/jiangzongkun/mev-cfg-go/rpcclient"
	"github.com/jiangzongkun/mev-cfg-go/solver"
	"github.com/jiangzongkun/mev-cfg-go/trace"
	"github.com/jiangzongkun/mev-cfg-go/txgraph"
)

// codeCacheSize bounds how many distinct contracts' bytecode this
// process keeps resident at once; a single transaction rarely touches
// more than a handful of distinct contracts, so this is generous
// headroom rather than a tight budget.
const codeCacheSize = 256

func run(ctx *cli.Context) error {
	cfgVals, err := config.Load()
	if err != nil {
		return err
	}
	client := rpcclient.New(cfgVals.RPCURL)

	txHash := common.HexToHash(ctx.String("tx_hash"))
	log.Info("starting analysis", "tx_hash", ctx.String("tx_hash"))

	rawTrace, err := loadTrace(ctx, client)
	if err != nil {
		return err
	}
	steps, err := trace.Parse(rawTrace)
	if err != nil {
		return err
	}

	root := rootAddressFromSteps(steps)
	aligned, dropped := trace.Align(steps, root)
	if dropped > 0 {
		log.Warn("dropped call edges during trace alignment", "count", dropped)
	}

	codeCache := bytecache.NewBasicLRU[common.Address, []byte](codeCacheSize)
	var contracts []txgraph.Contract
	budgetExceeded := 0

	addrs := make([]common.Address, 0, len(aligned.ExecutedPCs))
	for addr := range aligned.ExecutedPCs {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Cmp(addrs[j]) < 0 })

	for _, addr := range addrs {
		code, ok := codeCache.Get(addr)
		if !ok {
			fetched, err := client.GetCode(context.Background(), addr, "latest")
			if err != nil {
				log.Error("failed to fetch bytecode", "address", addr, "err", err)
				continue
			}
			code = fetched
			codeCache.Add(addr, code)
		}

		contractCFG := cfg.Build(code)
		cfg.BuildBasicEdges(contractCFG)
		if err := solver.Resolve(contractCFG); err != nil {
			budgetExceeded++
			log.Warn("solver budget exceeded", "address", addr, "err", err)
		}
		cfg.Prune(contractCFG)

		contracts = append(contracts, txgraph.Contract{Address: addr, CFG: contractCFG})
	}

	graph := txgraph.Compose(contracts, aligned)
	log.Info("composed G-CFG",
		"contracts", len(contracts),
		"nodes", len(graph.Nodes),
		"edges", len(graph.Edges),
		"dropped_call_edges", graph.DroppedCallEdges,
		"solver_budget_exceeded", budgetExceeded,
	)

	outPath := ctx.String("output")
	if outPath == "" {
		outPath = filepath.Join("Results", txHash.Hex(), "g-cfg.dot")
	}
	if err := writeFile(outPath, dotexport.RenderGraph(graph)); err != nil {
		return err
	}

	if ctx.Bool("per_contract") {
		for _, c := range contracts {
			name := strings.TrimPrefix(c.Address.Hex(), "0x")
			path := filepath.Join(filepath.Dir(outPath), name+".dot")
			if err := writeFile(path, dotexport.RenderContract(c.Address.Hex(), c.CFG)); err != nil {
				log.Error("failed to write per-contract DOT", "address", c.Address, "err", err)
			}
		}
	}

	if ctx.Bool("render") {
		format := ctx.String("format")
		renderOut := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + "." + format
		if err := dotexport.Render(outPath, renderOut, format); err != nil {
			return err
		}
		log.Info("rendered graph", "path", renderOut)
	}

	return nil
}

func loadTrace(ctx *cli.Context, client *rpcclient.Client) ([]byte, error) {
	if path := ctx.String("trace"); path != "" {
		return os.ReadFile(path)
	}
	txHash := common.HexToHash(ctx.String("tx_hash"))
	return client.TraceTransaction(context.Background(), txHash)
}

// rootAddressFromSteps resolves the transaction's entry contract from
// the trace itself: the first step's Address field, populated when
// rpcclient's custom tracer ran (rpcclient.perStepTracer). A tx hash is
// 32 bytes and a contract address is 20; the two are never
// interchangeable, so a plain struct-logger trace (no per-step Address)
// leaves root as the zero address and Align's call edges fall back to
// stack-derived callee resolution downstream.
func rootAddressFromSteps(steps []trace.Step) common.Address {
	if len(steps) == 0 {
		return common.Address{}
	}
	return steps[0].Address
}

func writeFile(path, contents string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(contents), 0o644)
}
