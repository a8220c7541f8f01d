package rpc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Klingon-tech/powledger/internal/chain"
)

// FuzzRPCRequestUnmarshal tests that arbitrary JSON does not panic
// when parsed as a JSON-RPC 2.0 request.
func FuzzRPCRequestUnmarshal(f *testing.F) {
	f.Add([]byte(`{"jsonrpc":"2.0","method":"chain_getInfo","params":null,"id":1}`))
	f.Add([]byte(`{"jsonrpc":"2.0","method":"chain_getBlock","params":{"id":2},"id":"test"}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`null`))
	f.Add([]byte(`{"method":"","params":[]}`))
	f.Add([]byte(`{"jsonrpc":"2.0","method":"chain_getInfo","params":[1,2,3],"id":999}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			return
		}
		_ = req.Method
		_ = req.ID
	})
}

// FuzzHandleRequest feeds arbitrary bodies to the read-only handlers.
func FuzzHandleRequest(f *testing.F) {
	f.Add([]byte(`{"jsonrpc":"2.0","method":"chain_selectChain","params":{"chain":[null]},"id":1}`))
	f.Add([]byte(`{"jsonrpc":"2.0","method":"chain_adopt","params":{"chain":[{"id":1}]},"id":1}`))
	f.Add([]byte(`{"jsonrpc":"2.0","method":"chain_submitBlock","params":{"block":{}},"id":1}`))
	f.Add([]byte(`{"jsonrpc":"2.0","method":"chain_getBlock","params":"x","id":1}`))

	ch := chain.New()
	ch.SeedGenesis()
	srv := New("", ch, nil, nil)

	f.Fuzz(func(t *testing.T, data []byte) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}
