package llm

import (
	"context"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIClient calls the OpenAI Chat Completions API.
type OpenAIClient struct {
	model   openai.ChatModel
	baseURL string
	timeout time.Duration
}

// NewOpenAIClient builds a client against api.openai.com, or baseURL when set.
// A zero timeout leaves outbound calls unbounded.
func NewOpenAIClient(model openai.ChatModel, baseURL string, timeout time.Duration) *OpenAIClient {
	if model == "" {
		model = openai.ChatModelGPT4
	}
	return &OpenAIClient{
		model:   model,
		baseURL: baseURL,
		timeout: timeout,
	}
}

// Model reports the chat model requests are sent to.
func (c *OpenAIClient) Model() openai.ChatModel {
	return c.model
}

func (c *OpenAIClient) Complete(ctx context.Context, apiKey string, req Request) (string, error) {
	if apiKey == "" {
		return "", ErrMissingAPIKey
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cli := openai.NewClient(c.requestOptions(apiKey)...)
	resp, err := cli.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    buildMessages(req.System, req.User),
		MaxTokens:   openai.Int(req.MaxTokens),
		Temperature: openai.Float(req.Temperature),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

// requestOptions builds per-call options. The SDK retries failed requests by
// default; generation is one attempt per page, so retries are switched off.
func (c *OpenAIClient) requestOptions(apiKey string) []option.RequestOption {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if c.baseURL != "" {
		opts = append(opts, option.WithBaseURL(c.baseURL))
	}
	return opts
}

func buildMessages(system, user string) []openai.ChatCompletionMessageParamUnion {
	return []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(system),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfString: openai.String(user),
				},
			},
		},
	}
}
