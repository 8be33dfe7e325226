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

// Package config resolves run-time configuration that isn't sensibly
// expressed as a CLI flag, currently just the RPC endpoint — following
// geth's own convention of letting an environment variable override
// rarely-changed operational settings.
package config

import (
	"os"

	"github.com/jiangzongkun/mev-cfg-go/mcerrors"
)

// RPCURLEnv is the environment variable holding the JSON-RPC endpoint
// used to fetch bytecode and traces.
const RPCURLEnv = "MEVCFG_RPC_URL"

// Config is the toolchain's resolved run-time configuration.
type Config struct {
	RPCURL string
}

// Load reads Config from the environment. It fails if MEVCFG_RPC_URL
// is unset, since every operation needs an RPC endpoint to fetch
// bytecode and/or transaction traces from.
func Load() (*Config, error) {
	url := os.Getenv(RPCURLEnv)
	if url == "" {
		return nil, &mcerrors.Error{
			Kind: mcerrors.ConfigError,
			Op:   "config.Load",
			Err:  errMissingRPCURL,
		}
	}
	return &Config{RPCURL: url}, nil
}

var errMissingRPCURL = missingEnvError{RPCURLEnv}

type missingEnvError struct{ name string }

func (e missingEnvError) Error() string {
	return "environment variable " + e.name + " is not set"
}
