package llm

import (
	"errors"
	"fmt"
)

// AuthError means the endpoint rejected the credentials (or none were sent to
// an endpoint that requires them). Reported once; never retried.
type AuthError struct {
	Provider string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %v", e.Provider, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// StreamError is a network or server failure after the stream was accepted.
// Received counts the chunks delivered before the failure; those chunks were
// already forwarded and must be kept by the consumer.
type StreamError struct {
	Received int
	Err      error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream failed after %d chunks: %v", e.Received, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// ProtocolError means the transport delivered something the protocol does not
// allow (malformed payload, text after the end marker). Not reconciled.
type ProtocolError struct {
	Detail string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Detail
}

// IsAuthStatus reports whether an HTTP status from the model endpoint means
// the credentials are bad.
func IsAuthStatus(status int) bool {
	return status == 401 || status == 403
}

func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
