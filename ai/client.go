package ai

import (
	"context"
	"log"
	"time"

	"adlens/models"
)

// RetryPolicy controls exponential backoff for transient completion failures.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryPolicy matches the production defaults: 3 attempts starting at
// 1s, doubling, capped at 60s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      60 * time.Second,
		BackoffFactor: 2.0,
	}
}

// DelayForAttempt returns the backoff delay applied after the given 0-based
// attempt. The computation is deterministic given the policy and attempt
// index, which keeps retry timing testable without real sleeping.
func (p RetryPolicy) DelayForAttempt(attempt int) time.Duration {
	delay := p.InitialDelay
	for i := 0; i < attempt; i++ {
		delay = time.Duration(float64(delay) * p.BackoffFactor)
	}
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// Client wraps a completion Transport with retry/backoff and error
// classification. Retryable failures (rate limiting, timeouts, connection
// drops, transient server errors) are retried up to MaxRetries attempts;
// everything else surfaces immediately.
type Client struct {
	transport Transport
	model     string
	temp      float64
	maxTokens int
	system    string
	policy    RetryPolicy

	// sleep is injectable so tests can run with zero delay.
	sleep func(time.Duration)
}

// NewClient creates a completion client from LLM settings and a transport.
func NewClient(cfg models.LLMConfig, policy RetryPolicy, transport Transport) *Client {
	return &Client{
		transport: transport,
		model:     cfg.Model,
		temp:      cfg.Temperature,
		maxTokens: cfg.MaxTokens,
		system:    cfg.SystemContext,
		policy:    policy,
		sleep:     time.Sleep,
	}
}

// WithSleep replaces the backoff sleep function. Used by tests to simulate
// elapsed time without waiting.
func (c *Client) WithSleep(fn func(time.Duration)) *Client {
	c.sleep = fn
	return c
}

// Complete sends prompt (and an optional system message) to the completion
// service and returns the response text. On retryable failures it sleeps
// min(delay, MaxDelay), multiplies the delay by BackoffFactor and tries
// again; after MaxRetries attempts the last error is surfaced. Non-retryable
// errors propagate immediately without delay.
func (c *Client) Complete(ctx context.Context, prompt, system string) (string, error) {
	if system == "" {
		system = c.system
	}

	var messages []Message
	if system != "" {
		messages = append(messages, Message{Role: "system", Content: system})
	}
	messages = append(messages, Message{Role: "user", Content: prompt})

	req := CompletionRequest{
		Model:       c.model,
		Temperature: c.temp,
		MaxTokens:   c.maxTokens,
		Messages:    messages,
	}

	var lastErr error
	delay := c.policy.InitialDelay

	for attempt := 0; attempt < c.policy.MaxRetries; attempt++ {
		text, err := c.transport.CreateCompletion(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		kind := Classify(err)
		if !kind.Retryable() {
			log.Printf("[CompletionClient] Non-retryable error (%s): %v", kind, err)
			return "", err
		}

		if attempt < c.policy.MaxRetries-1 {
			wait := delay
			if wait > c.policy.MaxDelay {
				wait = c.policy.MaxDelay
			}
			log.Printf("[CompletionClient] Call failed (attempt %d/%d): %s. Retrying in %s",
				attempt+1, c.policy.MaxRetries, kind, wait)
			c.sleep(wait)
			delay = time.Duration(float64(delay) * c.policy.BackoffFactor)
		}
	}

	log.Printf("[CompletionClient] All %d retry attempts failed", c.policy.MaxRetries)
	return "", lastErr
}
