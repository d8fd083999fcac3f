package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when the provider answers with no content.
var ErrEmptyResponse = errors.New("empty response from model")

// Provider sends one prompt to a language model.
type Provider interface {
	Name() string
	Complete(ctx context.Context, request *Request) (*Response, error)
}

// Request represents the structured request to the model
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Response represents the raw response from the model
type Response struct {
	Content string
	Usage   *Usage
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}
