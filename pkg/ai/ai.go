// Package ai wraps the Basalt model inference endpoints. Models run
// backend-side; the SDK sends prompts and documents and gets completions
// and embeddings back.
package ai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-hclog"

	"github.com/basalt-io/basalt-go/pkg/transport"
)

// CompletionRequest is one chat-style completion request. Model is the
// backend's model alias; empty means the project default.
type CompletionRequest struct {
	Model       string    `json:"model,omitempty"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// Message is one turn in the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completion is the model's reply.
type Completion struct {
	Text         string `json:"text"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	StopReason   string `json:"stop_reason,omitempty"`
}

// Embedding is one input's vector.
type Embedding struct {
	Index  int       `json:"index"`
	Vector []float64 `json:"vector"`
}

// Service wraps the inference endpoints.
type Service struct {
	tc     *transport.Client
	logger hclog.Logger
}

// NewService creates an AI service on top of the shared transport.
func NewService(tc *transport.Client, logger hclog.Logger) *Service {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Service{tc: tc, logger: logger.Named("ai")}
}

// Complete runs a completion request and returns the model's reply.
func (s *Service) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("at least one message is required")
	}
	for i, m := range req.Messages {
		if m.Role == "" || m.Content == "" {
			return nil, fmt.Errorf("message %d: role and content are required", i)
		}
	}

	var completion Completion
	if err := s.tc.Do(ctx, http.MethodPost, "/v1/ai/complete", req, &completion); err != nil {
		return nil, err
	}
	s.logger.Debug("completion finished",
		"model", completion.Model,
		"input_tokens", completion.InputTokens,
		"output_tokens", completion.OutputTokens,
	)
	return &completion, nil
}

// Prompt is a single-turn convenience around Complete.
func (s *Service) Prompt(ctx context.Context, prompt string) (string, error) {
	completion, err := s.Complete(ctx, CompletionRequest{
		Messages: []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return completion.Text, nil
}

// Embed returns one embedding per input, in input order.
func (s *Service) Embed(ctx context.Context, model string, inputs []string) ([]Embedding, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("at least one input is required")
	}

	body := map[string]any{"inputs": inputs}
	if model != "" {
		body["model"] = model
	}

	var out struct {
		Embeddings []Embedding `json:"embeddings"`
	}
	if err := s.tc.Do(ctx, http.MethodPost, "/v1/ai/embed", body, &out); err != nil {
		return nil, err
	}
	if len(out.Embeddings) != len(inputs) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(inputs), len(out.Embeddings))
	}
	return out.Embeddings, nil
}
