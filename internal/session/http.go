package session

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

// HTTPSearcher implements Searcher against a similarity-search endpoint.
type HTTPSearcher struct {
	client   *http.Client
	endpoint string
}

// NewHTTPSearcher creates a searcher for the given endpoint URL.
func NewHTTPSearcher(endpoint string, timeout time.Duration) (*HTTPSearcher, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("search endpoint is required")
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSearcher{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

type searchRequest struct {
	Description string `json:"description"`
	Explanation string `json:"explanation"`
}

type searchCandidate struct {
	ID                 string  `json:"id"`
	Description        string  `json:"description"`
	Explanation        string  `json:"explanation"`
	TextSimilarity     float64 `json:"text_similarity"`
	SemanticSimilarity float64 `json:"semantic_similarity"`
}

type searchResponse struct {
	Message string            `json:"message"`
	Similar []searchCandidate `json:"similar"`
	Success bool              `json:"success"`
}

// Search posts the current description and explanation and returns the
// similar transactions the service found.
func (s *HTTPSearcher) Search(ctx context.Context, description, explanation string) ([]Candidate, error) {
	var parsed searchResponse
	err := postJSON(ctx, s.client, s.endpoint, searchRequest{
		Description: description,
		Explanation: explanation,
	}, &parsed)
	if err != nil {
		return nil, err
	}

	if !parsed.Success {
		if parsed.Message != "" {
			return nil, fmt.Errorf("search rejected: %s", parsed.Message)
		}
		return nil, fmt.Errorf("search rejected")
	}

	candidates := make([]Candidate, 0, len(parsed.Similar))
	for _, c := range parsed.Similar {
		candidates = append(candidates, Candidate{
			ID:                 c.ID,
			Description:        c.Description,
			Explanation:        c.Explanation,
			TextSimilarity:     c.TextSimilarity,
			SemanticSimilarity: c.SemanticSimilarity,
		})
	}
	return candidates, nil
}

// HTTPReplicator implements Replicator against a replication endpoint.
type HTTPReplicator struct {
	client   *http.Client
	endpoint string
}

// NewHTTPReplicator creates a replicator for the given endpoint URL.
func NewHTTPReplicator(endpoint string, timeout time.Duration) (*HTTPReplicator, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("replication endpoint is required")
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPReplicator{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

type replicateRequest struct {
	TargetID string `json:"target_id"`
	SourceID string `json:"source_id"`
}

type replicateResponse struct {
	Explanation string `json:"explanation"`
	Message     string `json:"message"`
	Success     bool   `json:"success"`
}

// Replicate asks the service to copy the source explanation onto the
// target and returns the explanation as persisted.
func (r *HTTPReplicator) Replicate(ctx context.Context, targetID, sourceID string) (string, error) {
	var parsed replicateResponse
	err := postJSON(ctx, r.client, r.endpoint, replicateRequest{
		TargetID: targetID,
		SourceID: sourceID,
	}, &parsed)
	if err != nil {
		return "", err
	}

	if !parsed.Success {
		if parsed.Message != "" {
			return "", fmt.Errorf("replication rejected: %s", parsed.Message)
		}
		return "", fmt.Errorf("replication rejected")
	}
	return parsed.Explanation, nil
}

// postJSON sends one JSON request and decodes the JSON response into out.
// Each request carries a unique ID for correlation in service logs.
func postJSON(ctx context.Context, client *http.Client, endpoint string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func truncate(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
