// Package push implements the HTTP client for the external batch push
// gateway. The gateway accepts at most MaxBatchSize messages per request and
// answers with one result per message, aligned positionally with the request.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// MaxBatchSize is the gateway's documented per-request message cap.
const MaxBatchSize = 100

// Message is one push message addressed to a single device token.
type Message struct {
	To    string                 `json:"to"`
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	Data  map[string]interface{} `json:"data,omitempty"`
	Sound string                 `json:"sound,omitempty"`
	Badge int                    `json:"badge,omitempty"`
}

// Result statuses returned by the gateway per message.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Result is the gateway's per-message outcome.
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// OK reports whether the message was accepted by the gateway.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// DeviceNotRegistered reports a provider error meaning the target token is no
// longer valid and should be pruned from the token store.
func (r Result) DeviceNotRegistered() bool {
	return r.Status == StatusError && strings.Contains(r.Message, "DeviceNotRegistered")
}

type response struct {
	Data []Result `json:"data"`
}

// Client is the HTTP client for the push gateway.
type Client struct {
	httpClient *http.Client
	url        string
}

// NewClient creates a push gateway client. The timeout bounds each request;
// a timed-out batch counts as a failed batch.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
	}
}

// Send delivers one batch of at most MaxBatchSize messages and returns the
// per-message results in request order. Any transport or HTTP-level failure
// means no message in the batch was confirmed.
func (c *Client) Send(ctx context.Context, messages []Message) ([]Result, error) {
	if len(messages) == 0 {
		return nil, nil
	}
	if len(messages) > MaxBatchSize {
		return nil, fmt.Errorf("batch of %d exceeds gateway maximum of %d", len(messages), MaxBatchSize)
	}

	body, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize push batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send push batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("push gateway returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode push gateway response: %w", err)
	}
	if len(parsed.Data) != len(messages) {
		return nil, fmt.Errorf("push gateway returned %d results for %d messages", len(parsed.Data), len(messages))
	}

	return parsed.Data, nil
}
