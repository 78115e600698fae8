package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultAnthropicModel     = "claude-3-5-haiku-latest"
	defaultAnthropicMaxTokens = 1024
)

func (c *Client) streamAnthropic(ctx context.Context, p Prompt, yield func(string) bool) error {
	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(c.cfg.APIKey),
		anthropicoption.WithHTTPClient(c.httpClient),
	}
	if base := resolvedAnthropicBaseURL(c.cfg.BaseURL); base != "" {
		opts = append(opts, anthropicoption.WithBaseURL(base))
	}
	client := anthropic.NewClient(opts...)

	model := strings.TrimSpace(c.cfg.Model)
	if model == "" {
		model = defaultAnthropicModel
	}
	maxTokens := c.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	stream := client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		System:    []anthropic.TextBlockParam{{Text: p.System}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(p.User)),
		},
	})
	defer stream.Close()

	sawEvent := false
	for stream.Next() {
		event := stream.Current()
		sawEvent = true
		switch variant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch delta := variant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if !yield(delta.Text) {
					return ctx.Err()
				}
			}
		default:
			// Start/stop and usage events carry no response text.
		}
	}
	if err := stream.Err(); err != nil {
		return c.wrapAnthropicError(err)
	}
	if !sawEvent {
		return &ProtocolError{Detail: "stream ended without any payload"}
	}
	return nil
}

func (c *Client) wrapAnthropicError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && IsAuthStatus(apiErr.StatusCode) {
		return &AuthError{Provider: "anthropic", Err: err}
	}
	return err
}

// The SDK expects the bare host base; tolerate configs that append /v1.
func resolvedAnthropicBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return ""
	}
	base = strings.TrimRight(base, "/")
	base = strings.TrimSuffix(base, "/v1")
	return strings.TrimRight(base, "/") + "/"
}
