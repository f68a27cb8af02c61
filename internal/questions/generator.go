package questions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"pdf-questions/internal/llm"
)

// ErrEmptyQuestions is returned when the model answers with nothing but
// whitespace.
var ErrEmptyQuestions = errors.New("empty completion")

// Generator turns one page of text into a block of model-written questions.
type Generator struct {
	llm llm.Client
	log *slog.Logger
}

func NewGenerator(client llm.Client, log *slog.Logger) *Generator {
	return &Generator{llm: client, log: log}
}

// Generate issues exactly one completion request for text. On failure it
// returns an empty string with the error; callers record the page as failed
// and carry on.
func (g *Generator) Generate(ctx context.Context, apiKey, text string, count int) (string, error) {
	resp, err := g.llm.Complete(ctx, apiKey, llm.Request{
		System:      SystemPrompt,
		User:        BuildPrompt(text, count),
		MaxTokens:   MaxTokens,
		Temperature: Temperature,
	})
	if err != nil {
		g.log.Error("question generation failed", "err", err, "text_len", len(text), "count", count)
		return "", fmt.Errorf("generate questions: %w", err)
	}
	out := strings.TrimSpace(resp)
	if out == "" {
		g.log.Error("question generation returned empty completion", "count", count)
		return "", fmt.Errorf("generate questions: %w", ErrEmptyQuestions)
	}
	return out, nil
}
