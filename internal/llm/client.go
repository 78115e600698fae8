// Package llm streams model explanations for failed commands. Providers push
// ordered chunk events over a one-way channel; the event loop is the only
// consumer and owns all resulting state.
package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"rubberduck/internal/config"
)

// ChunkEvent is an ordered fragment of streamed response text. Seq is assigned
// by the ingestor in delivery order, so consumers never observe reordering.
type ChunkEvent struct {
	Seq  int
	Text string
}

// DoneEvent terminates the stream. Err is nil on a clean end-of-stream, or one
// of *AuthError, *StreamError, *ProtocolError.
type DoneEvent struct {
	Err error
}

// Event is either a ChunkEvent or a DoneEvent.
type Event any

// streamFunc yields raw text deltas in arrival order and returns on
// end-of-stream or error. Implemented per provider.
type streamFunc func(ctx context.Context, p Prompt, yield func(string) bool) error

// Client opens streaming requests against the configured provider.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
	stream     streamFunc
}

// New builds a client for the configured provider. Callers must check
// Config.ModelConfigured first: a missing key is "run without model", not an
// error here.
func New(cfg config.Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("api key is required")
	}
	c := &Client{
		cfg: cfg,
		// No client timeout: a stream lives until end-of-stream or ctx cancel.
		httpClient: &http.Client{},
	}
	switch cfg.Provider {
	case config.ProviderAnthropic:
		c.stream = c.streamAnthropic
	default:
		c.stream = c.streamOpenAI
	}
	return c, nil
}

// Stream opens the connection and returns the event channel: zero or more
// ChunkEvents in generation order, then exactly one DoneEvent, then close.
// Cancelling ctx ends the stream; no events follow the DoneEvent.
func (c *Client) Stream(ctx context.Context, p Prompt) <-chan Event {
	events := make(chan Event, 32)
	go func() {
		defer close(events)
		seq := 0
		err := c.stream(ctx, p, func(text string) bool {
			if text == "" {
				return true
			}
			select {
			case events <- ChunkEvent{Seq: seq, Text: text}:
				seq++
				return true
			case <-ctx.Done():
				return false
			}
		})
		events <- DoneEvent{Err: c.classify(err, seq)}
	}()
	return events
}

func (c *Client) classify(err error, received int) error {
	if err == nil {
		return nil
	}
	var ae *AuthError
	var pe *ProtocolError
	switch {
	case errors.As(err, &ae), errors.As(err, &pe):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return &StreamError{Received: received, Err: err}
	}
}

// Model returns the effective model identifier for display.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.cfg.Model
}
