package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Call is a constructed move call: a target and its ordered arguments.
// Arguments are passed through untouched; the relay encodes them.
type Call struct {
	Target string `json:"target"`
	Args   []any  `json:"arguments"`
}

// Receipt is the outcome of an accepted transaction.
type Receipt struct {
	Digest string `json:"digest"`
}

// Relay submits calls to a signer relay which builds, signs and executes
// the transaction on behalf of the configured sender.
type Relay struct {
	url    string
	sender string
	http   *http.Client
}

// NewRelay creates a relay submitter. httpClient may be nil.
func NewRelay(url, sender string, httpClient *http.Client) *Relay {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Relay{url: url, sender: sender, http: httpClient}
}

type relayRequest struct {
	Call
	Sender         string `json:"sender"`
	IdempotencyKey string `json:"idempotency_key"`
}

type relayResponse struct {
	Digest string `json:"digest"`
	Error  string `json:"error"`
}

// Submit sends the call and waits for execution.
func (r *Relay) Submit(ctx context.Context, call Call) (Receipt, error) {
	if r.url == "" {
		return Receipt{}, &SubmitError{Message: "no signer relay configured"}
	}

	body, err := json.Marshal(relayRequest{
		Call:           call,
		Sender:         r.sender,
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("chain: marshal call: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return Receipt{}, fmt.Errorf("chain: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("chain: submit: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Receipt{}, fmt.Errorf("chain: read response: %w", err)
	}

	var out relayResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return Receipt{}, &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
		}
		return Receipt{}, fmt.Errorf("chain: invalid relay response: %w", err)
	}
	if out.Error != "" {
		return Receipt{}, &SubmitError{Message: out.Error}
	}
	if resp.StatusCode != http.StatusOK {
		return Receipt{}, &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if out.Digest == "" {
		return Receipt{}, &SubmitError{Message: "relay returned no digest"}
	}

	return Receipt{Digest: out.Digest}, nil
}
