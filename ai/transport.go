package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Message is one chat turn sent to the completion service.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the provider-independent shape of a completion call.
type CompletionRequest struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Messages    []Message
}

// Transport abstracts the remote chat-completion call so the retry layer can
// be exercised without a live service.
type Transport interface {
	CreateCompletion(ctx context.Context, req CompletionRequest) (string, error)
}

// ErrorKind classifies a transport failure for retry decisions.
type ErrorKind string

const (
	ErrKindRateLimited ErrorKind = "rate_limited"
	ErrKindTimeout     ErrorKind = "timeout"
	ErrKindConnection  ErrorKind = "connection"
	ErrKindServer      ErrorKind = "server"
	ErrKindAuth        ErrorKind = "auth"
	ErrKindInvalid     ErrorKind = "invalid"
	ErrKindUnknown     ErrorKind = "unknown"
)

// Retryable reports whether a failure of this kind is transient and safe to
// retry with backoff.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrKindRateLimited, ErrKindTimeout, ErrKindConnection, ErrKindServer:
		return true
	}
	return false
}

// TransportError is a classified failure from the completion service.
type TransportError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("completion service error (%s, status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("completion service error (%s): %s", e.Kind, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Classify determines the error kind for an arbitrary transport failure.
// Typed errors carry their own kind; everything else falls back to substring
// matching on the message, mirroring how upstream SDK errors describe rate
// limiting, timeouts and connection failures.
func Classify(err error) ErrorKind {
	if err == nil {
		return ErrKindUnknown
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrKindTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit"):
		return ErrKindRateLimited
	case strings.Contains(msg, "timeout"):
		return ErrKindTimeout
	case strings.Contains(msg, "connection"):
		return ErrKindConnection
	}
	return ErrKindUnknown
}
