package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"rubberduck/internal/config"
)

func testClient(t *testing.T, stream streamFunc) *Client {
	t.Helper()
	c, err := New(config.Config{Provider: config.ProviderOpenAI, APIKey: "test-key", Model: "m"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	c.stream = stream
	return c
}

func drain(t *testing.T, events <-chan Event) ([]ChunkEvent, DoneEvent) {
	t.Helper()
	var chunks []ChunkEvent
	for ev := range events {
		switch ev := ev.(type) {
		case ChunkEvent:
			chunks = append(chunks, ev)
		case DoneEvent:
			if _, more := <-events; more {
				t.Fatalf("event delivered after done event")
			}
			return chunks, ev
		default:
			t.Fatalf("unexpected event type %T", ev)
		}
	}
	t.Fatalf("channel closed without done event")
	return nil, DoneEvent{}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(config.Config{Provider: config.ProviderOpenAI}); err == nil {
		t.Fatalf("expected error for missing key")
	}
}

func TestStreamOrderedChunksThenDone(t *testing.T) {
	c := testClient(t, func(ctx context.Context, p Prompt, yield func(string) bool) error {
		for _, s := range []string{"The ", "command ", "", "is missing."} {
			if !yield(s) {
				return ctx.Err()
			}
		}
		return nil
	})

	chunks, done := drain(t, c.Stream(context.Background(), Prompt{}))
	if done.Err != nil {
		t.Fatalf("unexpected done error: %v", done.Err)
	}
	// Empty deltas are filtered; sequence numbers must still be gapless.
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	var text strings.Builder
	for i, ch := range chunks {
		if ch.Seq != i {
			t.Fatalf("expected seq %d, got %d", i, ch.Seq)
		}
		text.WriteString(ch.Text)
	}
	if text.String() != "The command is missing." {
		t.Fatalf("unexpected text: %q", text.String())
	}
}

func TestStreamMidStreamFailureKeepsPartialCount(t *testing.T) {
	c := testClient(t, func(ctx context.Context, p Prompt, yield func(string) bool) error {
		yield("partial ")
		yield("answer")
		return errors.New("connection reset")
	})

	chunks, done := drain(t, c.Stream(context.Background(), Prompt{}))
	if len(chunks) != 2 {
		t.Fatalf("expected the 2 delivered chunks to survive, got %d", len(chunks))
	}
	var se *StreamError
	if !errors.As(done.Err, &se) {
		t.Fatalf("expected StreamError, got %v", done.Err)
	}
	if se.Received != 2 {
		t.Fatalf("expected Received=2, got %d", se.Received)
	}
}

func TestStreamAuthErrorPassesThrough(t *testing.T) {
	authErr := &AuthError{Provider: "openai", Err: errors.New("401")}
	c := testClient(t, func(ctx context.Context, p Prompt, yield func(string) bool) error {
		return authErr
	})

	chunks, done := drain(t, c.Stream(context.Background(), Prompt{}))
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
	if !IsAuthError(done.Err) {
		t.Fatalf("expected AuthError, got %v", done.Err)
	}
}

func TestStreamProtocolErrorPassesThrough(t *testing.T) {
	c := testClient(t, func(ctx context.Context, p Prompt, yield func(string) bool) error {
		return &ProtocolError{Detail: "garbage payload"}
	})
	_, done := drain(t, c.Stream(context.Background(), Prompt{}))
	var pe *ProtocolError
	if !errors.As(done.Err, &pe) {
		t.Fatalf("expected ProtocolError, got %v", done.Err)
	}
}

func TestStreamCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	c := testClient(t, func(ctx context.Context, p Prompt, yield func(string) bool) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	events := c.Stream(ctx, Prompt{})
	<-started
	cancel()
	_, done := drain(t, events)
	if !errors.Is(done.Err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", done.Err)
	}
}
