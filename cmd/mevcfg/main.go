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

// Command mevcfg reconstructs the global inter-contract control-flow
// graph executed by one transaction and renders it as DOT/Graphviz, in
// the spirit of geth's own cmd/evm: a small urfave/cli front end over
// a library that does the real work.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/jiangzongkun/mev-cfg-go/log"
)

func main() {
	app := &cli.App{
		Name:  "mevcfg",
		Usage: "reconstruct a transaction's global inter-contract control-flow graph",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "trace",
				Usage:    "path to a debug_traceTransaction JSON file (fetched over RPC if omitted)",
				Required: false,
			},
			&cli.StringFlag{
				Name:     "tx_hash",
				Usage:    "transaction hash to analyze",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "output",
				Usage: "output DOT file path (default: Results/<tx_hash>/g-cfg.dot)",
			},
			&cli.BoolFlag{
				Name:  "render",
				Usage: "also shell out to dot(1) to render the DOT file",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "render format passed to dot -T (svg, png, pdf, ...)",
				Value: "svg",
			},
			&cli.BoolFlag{
				Name:  "per_contract",
				Usage: "also emit one DOT file per contract, highlighting SSTORE blocks",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Crit("mevcfg failed", "err", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
