/*

This file contains the JSON-RPC HTTP client shared by the remote pool, ledger
and allocator collaborators. Amount results travel as decimal strings to
survive JSON number precision.

*/

package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/yieldroute/srm/internal/logger"
)

// Error definitions for zero-tolerance error handling
var (
	ErrRequestFailed   = errors.New("RPC request failed")
	ErrInvalidResponse = errors.New("response data is invalid")
	ErrInvalidEndpoint = errors.New("endpoint is invalid")
)

var rpcLogger = logger.GetForComponent("rpc_client")

// JSONRPCRequest defines the structure of a JSON-RPC request.
type JSONRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// JSONRPCResponse defines the structure of a JSON-RPC response.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError defines the structure of a JSON-RPC error. It implements the
// error interface so callers can recover the application code with errors.As
// and map it onto their own sentinels.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *JSONRPCError) Error() string {
	return fmt.Sprintf("node error %d: %s", e.Code, e.Message)
}

// Client performs JSON-RPC round trips against a single endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	nextID     int
}

// New creates a client for the given JSON-RPC endpoint.
func New(endpoint string) (*Client, error) {
	if endpoint == "" {
		return nil, ErrInvalidEndpoint
	}

	client := &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	rpcLogger.Info().Str("endpoint", endpoint).Msg("RPC client initialized")
	return client, nil
}

// Call performs a single JSON-RPC round trip and decodes the result into out.
// A nil out discards the result.
func (c *Client) Call(ctx context.Context, method string, params any, out any) error {
	c.nextID++
	reqBody := JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      c.nextID,
		Method:  method,
		Params:  params,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", method, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return errors.Join(ErrRequestFailed, fmt.Errorf("%s: %w", method, err))
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return errors.Join(ErrRequestFailed, fmt.Errorf("%s: failed to read response: %w", method, err))
	}
	if httpResp.StatusCode != http.StatusOK {
		return errors.Join(ErrRequestFailed, fmt.Errorf("%s: HTTP %d: %s", method, httpResp.StatusCode, string(body)))
	}

	var rpcResp JSONRPCResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return errors.Join(ErrInvalidResponse, fmt.Errorf("%s: %w", method, err))
	}
	if rpcResp.Error != nil {
		return errors.Join(ErrRequestFailed, fmt.Errorf("%s: %w", method, rpcResp.Error))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return errors.Join(ErrInvalidResponse, fmt.Errorf("%s: failed to decode result: %w", method, err))
	}
	return nil
}

// CallForInt performs a call whose result is a single non-negative amount
// string.
func (c *Client) CallForInt(ctx context.Context, method string, params any) (sdkmath.Int, error) {
	var raw string
	if err := c.Call(ctx, method, params, &raw); err != nil {
		return sdkmath.ZeroInt(), err
	}
	value, ok := sdkmath.NewIntFromString(raw)
	if !ok {
		return sdkmath.ZeroInt(), errors.Join(ErrInvalidResponse,
			fmt.Errorf("%s: %q is not a valid integer amount", method, raw))
	}
	if value.IsNegative() {
		return sdkmath.ZeroInt(), errors.Join(ErrInvalidResponse,
			fmt.Errorf("%s: amount %s is negative", method, raw))
	}
	return value, nil
}
