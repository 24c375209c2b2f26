// Package gemini implements the agentkb.Completer contract using Google
// Gemini via the genai SDK.
package gemini

import (
	"context"

	"github.com/iamtutumo/agentkb"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// Ensure Completer implements agentkb.Completer at compile time.
var _ agentkb.Completer = (*Completer)(nil)

// Completer calls the Gemini API for both extraction and synthesis
// completions.
type Completer struct {
	client *genai.Client
	model  string
}

// NewCompleter creates a Completer backed by the given genai client.
// If model is empty, DefaultModel is used.
func NewCompleter(client *genai.Client, model string) *Completer {
	if model == "" {
		model = DefaultModel
	}
	return &Completer{client: client, model: model}
}

// Complete sends one request and returns the response text.
func (c *Completer) Complete(ctx context.Context, req agentkb.CompletionRequest) (string, error) {
	if req.Prompt == "" {
		return "", agentkb.Errorf(agentkb.EINVALID, "prompt required")
	}

	config := BuildConfig(req)

	result, err := c.client.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{{
			Parts: []*genai.Part{{Text: req.Prompt}},
		}},
		config,
	)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", agentkb.Errorf(agentkb.EINTERNAL, "gemini returned nil result")
	}

	return result.Text(), nil
}

// BuildConfig translates a CompletionRequest into a GenerateContentConfig.
func BuildConfig(req agentkb.CompletionRequest) *genai.GenerateContentConfig {
	temp := float32(0.4)
	config := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}
	return config
}
