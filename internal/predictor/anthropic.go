package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/estimate"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-sonnet-4-5-20250929"

const anthropicSystemPrompt = `You estimate the working hours of a household or office move.
You receive the job parameters and a baseline estimate from a deterministic model.
Reply with a single JSON object and nothing else:
{"value": <hours as a number>, "confidence": <number between 0 and 1>}`

// AnthropicPredictor asks a hosted Claude model for a second opinion.
type AnthropicPredictor struct {
	client anthropic.Client
	model  string
}

// AnthropicOption configures an AnthropicPredictor.
type AnthropicOption func(*anthropicSettings)

type anthropicSettings struct {
	model   string
	baseURL string
}

// WithModel selects the model.
func WithModel(model string) AnthropicOption {
	return func(s *anthropicSettings) {
		if model != "" {
			s.model = model
		}
	}
}

// WithBaseURL points the client at a different API host.
func WithBaseURL(url string) AnthropicOption {
	return func(s *anthropicSettings) {
		s.baseURL = url
	}
}

// NewAnthropicPredictor creates a predictor using apiKey. SDK retries are
// disabled; the Adapter makes exactly one attempt per decision.
func NewAnthropicPredictor(apiKey string, opts ...AnthropicOption) *AnthropicPredictor {
	s := anthropicSettings{model: DefaultAnthropicModel}
	for _, opt := range opts {
		opt(&s)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if s.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(s.baseURL))
	}

	return &AnthropicPredictor{
		client: anthropic.NewClient(reqOpts...),
		model:  s.model,
	}
}

type anthropicAnswer struct {
	Value      *float64 `json:"value"`
	Confidence *float64 `json:"confidence"`
}

// Predict implements Predictor.
func (p *AnthropicPredictor) Predict(ctx context.Context, in estimate.Snapshot, pc Context) (Result, error) {
	job, err := json.Marshal(in)
	if err != nil {
		return Result{}, fmt.Errorf("marshaling input: %w", err)
	}
	prompt := fmt.Sprintf("Job parameters: %s\nBaseline estimate: %.2f hours (confidence %.2f)",
		job, pc.Baseline, pc.BaselineConfidence)

	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 256,
		System: []anthropic.TextBlockParam{
			{Text: anthropicSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return Result{}, classifyAnthropicError(ctx, err)
	}

	for _, block := range message.Content {
		if block.Type != "text" {
			continue
		}
		answer, err := parseAnswer(block.Text)
		if err != nil {
			return Result{}, err
		}
		version := string(message.Model)
		if version == "" {
			version = p.model
		}
		return Result{
			Value:        *answer.Value,
			Confidence:   *answer.Confidence,
			ModelVersion: "anthropic/" + version,
		}, nil
	}
	return Result{}, fmt.Errorf("%w: no text content in response", ErrInvalidResponse)
}

func classifyAnthropicError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != 429 {
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// parseAnswer extracts the JSON object from a model reply, tolerating
// surrounding prose or code fences.
func parseAnswer(text string) (anthropicAnswer, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return anthropicAnswer{}, fmt.Errorf("%w: no JSON object in %q", ErrInvalidResponse, text)
	}

	var a anthropicAnswer
	if err := json.Unmarshal([]byte(text[start:end+1]), &a); err != nil {
		return anthropicAnswer{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if a.Value == nil || a.Confidence == nil {
		return anthropicAnswer{}, fmt.Errorf("%w: missing value or confidence", ErrInvalidResponse)
	}
	return a, nil
}
