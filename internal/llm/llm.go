package llm

import (
	"context"
	"errors"
)

var (
	ErrMissingAPIKey   = errors.New("api key required")
	ErrEmptyCompletion = errors.New("openai: no choices returned")
)

// Request is a single-turn chat completion: one system and one user message.
type Request struct {
	System      string
	User        string
	MaxTokens   int64
	Temperature float64
}

// Client is a minimal LLM interface to allow pluggable providers. The
// credential travels with every call; implementations must not retain it.
type Client interface {
	Complete(ctx context.Context, apiKey string, req Request) (string, error)
}
