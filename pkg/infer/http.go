package infer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTPModel calls a remote scoring service over JSON/HTTP.
//
// Request body:  {"features": [[...], ...]}
// Response body: {"scores":   [[...], ...]}
//
// The service is the single place where model-runtime specifics (output
// tensor names, quantization, batching) live; this client only consumes
// the score matrix.
type HTTPModel struct {
	// URL is the scoring endpoint.
	URL string

	// Client is the HTTP client to use. Nil means http.DefaultClient;
	// set a timeout-bearing client for production use.
	Client *http.Client
}

type scoreRequest struct {
	Features [][]float32 `json:"features"`
}

type scoreResponse struct {
	Scores [][]float32 `json:"scores"`
}

// Run implements Model.
func (m *HTTPModel) Run(ctx context.Context, features [][]float32) ([][]float32, error) {
	body, err := json.Marshal(scoreRequest{Features: features})
	if err != nil {
		return nil, fmt.Errorf("infer: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("infer: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("infer: score request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("infer: score request: %s: %s", resp.Status, bytes.TrimSpace(msg))
	}

	var out scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("infer: decode response: %w", err)
	}
	return out.Scores, nil
}
