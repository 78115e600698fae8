package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// streamOpenAI talks to any OpenAI-compatible chat completions endpoint
// (Groq by default) through the official SDK's SSE stream.
func (c *Client) streamOpenAI(ctx context.Context, p Prompt, yield func(string) bool) error {
	opts := []option.RequestOption{
		option.WithAPIKey(c.cfg.APIKey),
		option.WithHTTPClient(c.httpClient),
	}
	if base := strings.TrimSpace(c.cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	client := openai.NewClient(opts...)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(p.System),
			openai.UserMessage(p.User),
		},
	}
	if c.cfg.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.cfg.MaxTokens))
	}

	stream := client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	sawChunk := false
	for stream.Next() {
		chunk := stream.Current()
		sawChunk = true
		if len(chunk.Choices) == 0 {
			continue
		}
		if !yield(chunk.Choices[0].Delta.Content) {
			return ctx.Err()
		}
	}
	if err := stream.Err(); err != nil {
		return c.wrapOpenAIError(err)
	}
	if !sawChunk {
		return &ProtocolError{Detail: "stream ended without any payload"}
	}
	return nil
}

func (c *Client) wrapOpenAIError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && IsAuthStatus(apiErr.StatusCode) {
		return &AuthError{Provider: "openai", Err: err}
	}
	return err
}
