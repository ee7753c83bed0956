package chain

import "fmt"

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("chain: rpc error %d: %s", e.Code, e.Message)
}

// IsRetryable returns true for internal server errors reported by the node.
func (e *RPCError) IsRetryable() bool {
	return e.Code == -32603
}

// HTTPError represents a non-200 HTTP response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("chain: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for rate limits (429) and server errors (5xx).
func (e *HTTPError) IsRetryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// SubmitError is a rejection reported by the signer relay or the chain.
type SubmitError struct {
	Message string
}

func (e *SubmitError) Error() string {
	return "chain: transaction rejected: " + e.Message
}
