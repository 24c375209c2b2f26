// Package openai implements the agentkb.Completer contract against an
// OpenAI-compatible chat completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iamtutumo/agentkb"
)

// Ensure Completer implements agentkb.Completer at compile time.
var _ agentkb.Completer = (*Completer)(nil)

const (
	// DefaultBaseURL is the OpenAI API endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o-mini"

	// DefaultRequestTimeout bounds a single completion call.
	DefaultRequestTimeout = 120 * time.Second
)

// defaultRetryDelays is the backoff schedule for retryable API errors.
var defaultRetryDelays = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// Completer calls an OpenAI-compatible chat completions API. Rate limit
// and server errors are retried with exponential backoff.
type Completer struct {
	client      *http.Client
	baseURL     string
	apiKey      string
	model       string
	retryDelays []time.Duration
}

// Option configures a Completer.
type Option func(*Completer)

// WithBaseURL overrides the API endpoint. Useful for proxies and
// compatible providers.
func WithBaseURL(u string) Option {
	return func(c *Completer) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(c *Completer) { c.model = model }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Completer) { c.client = client }
}

// WithRetryDelays overrides the backoff schedule. An empty slice disables
// retries.
func WithRetryDelays(delays []time.Duration) Option {
	return func(c *Completer) { c.retryDelays = delays }
}

// NewCompleter creates a Completer with the given API key.
func NewCompleter(apiKey string, opts ...Option) *Completer {
	c := &Completer{
		client:      &http.Client{Timeout: DefaultRequestTimeout},
		baseURL:     DefaultBaseURL,
		apiKey:      apiKey,
		model:       DefaultModel,
		retryDelays: defaultRetryDelays,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Complete sends one chat completion request and returns the response
// text. Rate limit (429) and server (5xx) errors are retried per the
// backoff schedule before failing.
func (c *Completer) Complete(ctx context.Context, req agentkb.CompletionRequest) (string, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		text, retryable, err := c.complete(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !retryable || attempt >= len(c.retryDelays) {
			return "", lastErr
		}

		select {
		case <-time.After(c.retryDelays[attempt]):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (c *Completer) complete(ctx context.Context, req agentkb.CompletionRequest) (text string, retryable bool, err error) {
	body := chatRequest{
		Model:     c.model,
		MaxTokens: req.MaxTokens,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.Prompt})
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", false, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", false, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		// Network errors and timeouts are worth retrying.
		return "", ctx.Err() == nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError
		return "", retryable, fmt.Errorf("openai: HTTP %d: %s", resp.StatusCode, apiErrorMessage(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", false, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", false, fmt.Errorf("openai: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", false, fmt.Errorf("openai: response contained no choices")
	}

	return parsed.Choices[0].Message.Content, false, nil
}

func apiErrorMessage(body []byte) string {
	var parsed struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(body))
}
