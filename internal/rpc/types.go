package rpc

import "github.com/Klingon-tech/powledger/pkg/block"

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
	CodeRejected       = -32001
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// IDParam is used by chain_getBlock.
type IDParam struct {
	ID uint64 `json:"id"`
}

// DataParam is used by chain_mineBlock.
type DataParam struct {
	Data string `json:"data"`
}

// BlockParam is used by chain_submitBlock.
type BlockParam struct {
	Block *block.Block `json:"block"`
}

// ChainParam carries a candidate chain for chain_selectChain and chain_adopt.
type ChainParam struct {
	Chain []*block.Block `json:"chain"`
}

// ── Result types ────────────────────────────────────────────────────────

// InfoResult is returned by chain_getInfo.
type InfoResult struct {
	Length  int    `json:"length"`
	Height  uint64 `json:"height"`
	TipHash string `json:"tip_hash,omitempty"`
	Prefix  string `json:"prefix"`
}

// ValidResult is returned by chain_isValid.
type ValidResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// MineResult is returned by chain_mineBlock and chain_submitBlock.
type MineResult struct {
	Message string       `json:"message"`
	Block   *block.Block `json:"block"`
}

// SelectResult is returned by chain_selectChain.
type SelectResult struct {
	Selected string `json:"selected"` // "local", "remote" or "none"
	Length   int    `json:"length"`
}

// AdoptResult is returned by chain_adopt.
type AdoptResult struct {
	Replaced bool `json:"replaced"`
	Length   int  `json:"length"`
}
