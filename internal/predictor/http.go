package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/estimate"
)

// HTTPPredictor posts the redacted input to a JSON endpoint.
//
// Request:  {"input": <snapshot>, "baseline": 5.0, "baselineConfidence": 0.8}
// Response: {"value": 5.5, "confidence": 0.9, "modelVersion": "m-1", "inferenceTimeMs": 12}
type HTTPPredictor struct {
	endpoint string
	client   *http.Client
}

// NewHTTPPredictor creates a predictor for endpoint. A nil client uses
// http.DefaultClient; the Adapter supplies the deadline through ctx.
func NewHTTPPredictor(endpoint string, client *http.Client) *HTTPPredictor {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPPredictor{endpoint: endpoint, client: client}
}

type httpRequest struct {
	Input estimate.Snapshot `json:"input"`
	Context
}

// Predict implements Predictor.
func (p *HTTPPredictor) Predict(ctx context.Context, in estimate.Snapshot, pc Context) (Result, error) {
	body, err := json.Marshal(httpRequest{Input: in, Context: pc})
	if err != nil {
		return Result{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("%w: creating request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return Result{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return Result{}, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, bytes.TrimSpace(respBody))
	case resp.StatusCode != http.StatusOK:
		return Result{}, fmt.Errorf("%w: unexpected status %d", ErrInvalidResponse, resp.StatusCode)
	}

	var answer httpAnswer
	if err := json.Unmarshal(respBody, &answer); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if answer.Value == nil || answer.Confidence == nil {
		return Result{}, fmt.Errorf("%w: value and confidence are required", ErrInvalidResponse)
	}
	return Result{
		Value:           *answer.Value,
		Confidence:      *answer.Confidence,
		ModelVersion:    answer.ModelVersion,
		InferenceTimeMs: answer.InferenceTimeMs,
	}, nil
}

// httpAnswer is the response body. Pointers tell absent fields from zeros.
type httpAnswer struct {
	Value           *float64 `json:"value"`
	Confidence      *float64 `json:"confidence"`
	ModelVersion    string   `json:"modelVersion"`
	InferenceTimeMs int64    `json:"inferenceTimeMs"`
}
