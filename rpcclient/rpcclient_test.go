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

package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jiangzongkun/mev-cfg-go/common"
)

func TestGetCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		json.NewDecoder(r.Body).Decode(&req)
		if req.Method != "eth_getCode" {
			t.Errorf("unexpected method: %s", req.Method)
		}
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x6001600201"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	code, err := c.GetCode(context.Background(), common.HexToAddress("0x1111111111111111111111111111111111111111"), "latest")
	if err != nil {
		t.Fatalf("GetCode: %v", err)
	}
	if !bytes.Equal(code, []byte{0x60, 0x01, 0x60, 0x02, 0x01}) {
		t.Fatalf("unexpected code: %x", code)
	}
}

func TestRPCErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"not found"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.GetCode(context.Background(), common.Address{}, "latest")
	if err == nil {
		t.Fatalf("expected an error")
	}
}

func TestTraceTransactionSendsDebugTraceMethod(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		json.NewDecoder(r.Body).Decode(&req)
		if req.Method != "debug_traceTransaction" {
			t.Errorf("unexpected method: %s", req.Method)
		}
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"gas":21000,"failed":false,"returnValue":"","structLogs":[]}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	raw, err := c.TraceTransaction(context.Background(), common.Hash{})
	if err != nil {
		t.Fatalf("TraceTransaction: %v", err)
	}
	if len(raw) == 0 {
		t.Fatalf("expected non-empty raw trace JSON")
	}
}

// TestTraceTransactionRequestsCustomTracerFirst checks that the first
// debug_traceTransaction attempt asks for perStepTracer, not the plain
// struct-logger config.
func TestTraceTransactionRequestsCustomTracerFirst(t *testing.T) {
	var params []json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Params []json.RawMessage `json:"params"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		params = req.Params
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.TraceTransaction(context.Background(), common.Hash{}); err != nil {
		t.Fatalf("TraceTransaction: %v", err)
	}
	if len(params) != 2 {
		t.Fatalf("want 2 params, got %d", len(params))
	}
	var cfg traceConfig
	if err := json.Unmarshal(params[1], &cfg); err != nil {
		t.Fatalf("decoding traceConfig: %v", err)
	}
	if cfg.Tracer == "" {
		t.Fatalf("expected the first attempt to request a custom tracer")
	}
}

// TestTraceTransactionFallsBackOnTracerRejection mirrors a provider that
// rejects custom tracers outright: the first call errors, so
// TraceTransaction must retry with the plain struct-logger config
// instead of propagating the error.
func TestTraceTransactionFallsBackOnTracerRejection(t *testing.T) {
	attempt := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt++
		var req struct {
			Params []json.RawMessage `json:"params"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if attempt == 1 {
			var cfg traceConfig
			json.Unmarshal(req.Params[1], &cfg)
			if cfg.Tracer == "" {
				t.Errorf("expected first attempt to carry a tracer")
			}
			w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"tracer not supported"}}`))
			return
		}
		w.Write([]byte(`{"jsonrpc":"2.0","id":2,"result":[{"pc":0,"op":"STOP","depth":0}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	raw, err := c.TraceTransaction(context.Background(), common.Hash{})
	if err != nil {
		t.Fatalf("TraceTransaction: %v", err)
	}
	if attempt != 2 {
		t.Fatalf("want 2 attempts, got %d", attempt)
	}
	if len(raw) == 0 {
		t.Fatalf("expected non-empty raw trace JSON from the fallback attempt")
	}
}
