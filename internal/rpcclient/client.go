// Package rpcclient provides a JSON-RPC 2.0 client for powledger nodes.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Klingon-tech/powledger/internal/chain"
	"github.com/Klingon-tech/powledger/internal/rpc"
	"github.com/Klingon-tech/powledger/pkg/block"
)

// Client is a JSON-RPC 2.0 HTTP client.
type Client struct {
	endpoint string
	http     *http.Client
}

// New creates a new RPC client targeting the given endpoint URL.
func New(endpoint string) *Client {
	return NewWithTimeout(endpoint, 10*time.Second)
}

// NewWithTimeout creates a new RPC client with a custom HTTP timeout.
func NewWithTimeout(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// request is a JSON-RPC 2.0 request.
type request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      int         `json:"id"`
}

// response is a JSON-RPC 2.0 response.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      int             `json:"id"`
}

// rpcError is a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// RPCError is returned when the server responds with an error.
type RPCError struct {
	Code    int
	Message string
	Reason  string // Rejection reason for chain_submitBlock, if any.
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Call invokes a JSON-RPC method and unmarshals the result into the provided pointer.
// If result is nil, the response result is discarded.
func (c *Client) Call(method string, params, result interface{}) error {
	return c.CallContext(context.Background(), method, params, result)
}

// CallContext is Call with a context bounding the HTTP round trip.
func (c *Client) CallContext(ctx context.Context, method string, params, result interface{}) error {
	req := request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	var rpcResp response
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if rpcResp.Error != nil {
		return &RPCError{
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
			Reason:  rpcResp.Error.Data,
		}
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}

	return nil
}

// ── Typed helpers ───────────────────────────────────────────────────────

// GetInfo returns the node's chain summary.
func (c *Client) GetInfo(ctx context.Context) (*rpc.InfoResult, error) {
	var info rpc.InfoResult
	if err := c.CallContext(ctx, "chain_getInfo", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetChain fetches the node's full chain document.
func (c *Client) GetChain(ctx context.Context) (*chain.Document, error) {
	var doc chain.Document
	if err := c.CallContext(ctx, "chain_getChain", nil, &doc); err != nil {
		return nil, err
	}
	if len(doc.Chain) != doc.Length {
		return nil, fmt.Errorf("%w: length %d, chain has %d blocks",
			chain.ErrLengthMismatch, doc.Length, len(doc.Chain))
	}
	return &doc, nil
}

// GetBlock fetches a single block by id.
func (c *Client) GetBlock(ctx context.Context, id uint64) (*block.Block, error) {
	var blk block.Block
	if err := c.CallContext(ctx, "chain_getBlock", rpc.IDParam{ID: id}, &blk); err != nil {
		return nil, err
	}
	return &blk, nil
}

// IsValid asks the node to validate its chain.
func (c *Client) IsValid(ctx context.Context) (*rpc.ValidResult, error) {
	var res rpc.ValidResult
	if err := c.CallContext(ctx, "chain_isValid", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// MineBlock asks the node to mine and append a block carrying data.
func (c *Client) MineBlock(ctx context.Context, data string) (*block.Block, error) {
	var res rpc.MineResult
	if err := c.CallContext(ctx, "chain_mineBlock", rpc.DataParam{Data: data}, &res); err != nil {
		return nil, err
	}
	return res.Block, nil
}

// SubmitBlock offers an already mined block to the node.
func (c *Client) SubmitBlock(ctx context.Context, blk *block.Block) error {
	return c.CallContext(ctx, "chain_submitBlock", rpc.BlockParam{Block: blk}, nil)
}

// SelectChain asks the node which of its chain and remote it would keep.
func (c *Client) SelectChain(ctx context.Context, remote []*block.Block) (*rpc.SelectResult, error) {
	var res rpc.SelectResult
	if err := c.CallContext(ctx, "chain_selectChain", rpc.ChainParam{Chain: remote}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Adopt offers remote as a replacement for the node's chain.
func (c *Client) Adopt(ctx context.Context, remote []*block.Block) (*rpc.AdoptResult, error) {
	var res rpc.AdoptResult
	if err := c.CallContext(ctx, "chain_adopt", rpc.ChainParam{Chain: remote}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
