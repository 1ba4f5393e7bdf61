package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// httpClient implements Client against the classification endpoint.
type httpClient struct {
	client   *http.Client
	endpoint string
	apiKey   string
	model    string
}

// newHTTPClient creates the HTTP transport for the remote service. The
// credential is supplied here, at construction time, never read from
// ambient state.
func newHTTPClient(cfg Config) (Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("classification endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("classification API key is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &httpClient{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// classifyRequest is the wire format of a classification call.
type classifyRequest struct {
	Description string `json:"description"`
	Explanation string `json:"explanation"`
	Model       string `json:"model,omitempty"`
}

// classifyResponse is the wire format of the service's answer.
type classifyResponse struct {
	Account    string  `json:"account"`
	Rationale  string  `json:"rationale"`
	Confidence float64 `json:"confidence"`
}

// Classify sends one classification request. Transport failures, timeouts,
// non-2xx statuses and malformed bodies all come back as unavailable;
// rejected credentials come back as unauthorized. Nothing else escapes.
func (c *httpClient) Classify(ctx context.Context, req Request) (Classification, error) {
	body, err := json.Marshal(classifyRequest{
		Description: req.Description,
		Explanation: req.Explanation,
		Model:       c.model,
	})
	if err != nil {
		return Classification{}, Unavailable(fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Classification{}, Unavailable(fmt.Errorf("failed to create request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Classification{}, Unavailable(fmt.Errorf("request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Classification{}, Unavailable(fmt.Errorf("failed to read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Classification{}, Unauthorized(fmt.Errorf("status %d: %s", resp.StatusCode, truncate(respBody)))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Classification{}, Unavailable(fmt.Errorf("status %d: %s", resp.StatusCode, truncate(respBody)))
	}

	var parsed classifyResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Classification{}, Unavailable(fmt.Errorf("failed to parse response: %w", err))
	}

	if parsed.Account == "" {
		return Classification{}, Unavailable(fmt.Errorf("no account in response"))
	}

	return Classification{
		AccountID:  parsed.Account,
		Rationale:  parsed.Rationale,
		Confidence: clampConfidence(parsed.Confidence),
	}, nil
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncate(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
