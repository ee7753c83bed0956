// Package chain talks to the OneChain full node and the signer relay.
//
// The node speaks the Sui-compatible JSON-RPC 2.0 dialect; only the read
// methods the game clients need are implemented (event queries and owned
// object lookup). Transaction construction and signing live behind the relay.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync/atomic"
	"time"
)

// Config holds configuration for the node client.
type Config struct {
	// URL is the JSON-RPC endpoint of the full node.
	URL string

	// MaxRetries is the maximum number of retry attempts for retryable errors.
	// Defaults to 2 if zero.
	MaxRetries int

	// BaseRetryDelay is the initial backoff delay. Defaults to 200ms.
	BaseRetryDelay time.Duration

	// MaxRetryDelay caps the exponential backoff. Defaults to 2s.
	MaxRetryDelay time.Duration

	// HTTPClient allows injecting a custom HTTP client.
	HTTPClient *http.Client
}

// Client is a JSON-RPC client for the full node.
type Client struct {
	config Config
	http   *http.Client
	nextID atomic.Uint64
}

// NewClient creates a node client with defaults applied.
func NewClient(cfg Config) *Client {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.BaseRetryDelay == 0 {
		cfg.BaseRetryDelay = 200 * time.Millisecond
	}
	if cfg.MaxRetryDelay == 0 {
		cfg.MaxRetryDelay = 2 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		config: cfg,
		http:   httpClient,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// call performs one JSON-RPC method call with retry and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.retryDelay(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		result, err := c.do(ctx, method, params)
		if err != nil {
			lastErr = err
			if isRetryable(err) {
				continue
			}
			return err
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(result, out); err != nil {
			return fmt.Errorf("chain: decode %s result: %w", method, err)
		}
		return nil
	}

	return fmt.Errorf("chain: max retries exceeded: %w", lastErr)
}

func (c *Client) do(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("chain: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("chain: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chain: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("chain: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("chain: invalid response JSON: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

func (c *Client) retryDelay(attempt int) time.Duration {
	delay := c.config.BaseRetryDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	if delay > c.config.MaxRetryDelay {
		delay = c.config.MaxRetryDelay
	}
	return delay
}

func isRetryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.IsRetryable()
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.IsRetryable()
	}
	return false
}
