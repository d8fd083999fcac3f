package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
)

type AnthropicProvider struct {
	model   string
	timeout time.Duration
	llm     llms.Model
}

func NewAnthropicProvider(apiKey, model string, timeout time.Duration) (*AnthropicProvider, error) {
	llm, err := anthropic.New(
		anthropic.WithToken(apiKey),
		anthropic.WithModel(model),
		anthropic.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create anthropic client: %w", err)
	}
	return &AnthropicProvider{
		model:   model,
		timeout: timeout,
		llm:     llm,
	}, nil
}

func (a *AnthropicProvider) Name() string { return "anthropic/" + a.model }

func (a *AnthropicProvider) Complete(ctx context.Context, request *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	content, err := llms.GenerateFromSinglePrompt(ctx, a.llm, request.Prompt,
		llms.WithTemperature(request.Temperature),
		llms.WithMaxTokens(request.MaxTokens),
	)
	if err != nil {
		return nil, fmt.Errorf("anthropic completion failed: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyResponse
	}
	return &Response{Content: content}, nil
}
