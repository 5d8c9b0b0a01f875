package predictor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/estimate"
)

func TestHTTPPredictor_Success(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"value":6.5,"confidence":0.92,"modelVersion":"gbm-3","inferenceTimeMs":4}`))
	}))
	defer server.Close()

	in := estimate.EstimationInput{
		Volume: 20, TeamSize: 2, Distance: 15,
		CustomerName: "Anna Svensson", CustomerEmail: "anna@example.se", FromAddress: "Storgatan 1",
	}
	p := NewHTTPPredictor(server.URL, server.Client())
	res, err := p.Predict(context.Background(), estimate.Redact(in), Context{Baseline: 5, BaselineConfidence: 0.8})

	require.NoError(t, err)
	assert.Equal(t, Result{Value: 6.5, Confidence: 0.92, ModelVersion: "gbm-3", InferenceTimeMs: 4}, res)
	assert.Equal(t, 5.0, body["baseline"])
	assert.Equal(t, 0.8, body["baselineConfidence"])

	raw, _ := json.Marshal(body)
	assert.NotContains(t, string(raw), "Anna")
	assert.NotContains(t, string(raw), "anna@example.se")
	assert.NotContains(t, string(raw), "Storgatan")
}

func TestHTTPPredictor_StatusClassification(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   error
	}{
		{http.StatusBadRequest, `{"error":"bad"}`, ErrRejected},
		{http.StatusUnprocessableEntity, ``, ErrRejected},
		{http.StatusInternalServerError, ``, ErrUnavailable},
		{http.StatusServiceUnavailable, ``, ErrUnavailable},
		{http.StatusNoContent, ``, ErrInvalidResponse},
		{http.StatusOK, `not json`, ErrInvalidResponse},
		{http.StatusOK, `{"confidence":0.99}`, ErrInvalidResponse},
		{http.StatusOK, `{"value":4.5}`, ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p := NewHTTPPredictor(server.URL, server.Client())
			_, err := p.Predict(context.Background(), testSnapshot(), Context{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHTTPPredictor_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	p := NewHTTPPredictor(url, nil)
	_, err := p.Predict(context.Background(), testSnapshot(), Context{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPPredictor_ThroughAdapter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	a := NewAdapter(NewHTTPPredictor(server.URL, server.Client()))
	_, ok := a.Consult(context.Background(), testSnapshot(), 5, 0.8)
	assert.False(t, ok)
}
