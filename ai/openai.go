package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// OpenAITransport calls the OpenAI chat-completions endpoint. Failures come
// back as *TransportError so the retry layer can classify them without
// parsing messages.
type OpenAITransport struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewOpenAITransport creates a transport for the given API key and base URL.
// An empty baseURL targets the public OpenAI API.
func NewOpenAITransport(apiKey, baseURL string) *OpenAITransport {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAITransport{
		APIKey:  apiKey,
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 180 * time.Second, // generous for reasoning models
		},
	}
}

type chatRequest struct {
	Model               string    `json:"model"`
	Messages            []Message `json:"messages"`
	Temperature         float64   `json:"temperature,omitempty"`
	MaxCompletionTokens int       `json:"max_completion_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// CreateCompletion performs one chat-completion call and returns the text of
// the first choice.
func (t *OpenAITransport) CreateCompletion(ctx context.Context, req CompletionRequest) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:               req.Model,
		Messages:            req.Messages,
		Temperature:         req.Temperature,
		MaxCompletionTokens: req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+t.APIKey)

	resp, err := t.HTTPClient.Do(httpReq)
	if err != nil {
		return "", &TransportError{Kind: classifyDialError(ctx, err), Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return "", &TransportError{
			Kind:       kindForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    string(payload),
		}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse completion envelope: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", &TransportError{Kind: ErrKindServer, Message: "no choices in completion response"}
	}

	return parsed.Choices[0].Message.Content, nil
}

func classifyDialError(ctx context.Context, err error) ErrorKind {
	if ctx.Err() == context.DeadlineExceeded {
		return ErrKindTimeout
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return ErrKindTimeout
	}
	return ErrKindConnection
}

func kindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrKindRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrKindAuth
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrKindTimeout
	case status >= 500:
		return ErrKindServer
	default:
		return ErrKindInvalid
	}
}
