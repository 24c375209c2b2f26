package agentkb

import "context"

// CompletionRequest describes one LLM call.
type CompletionRequest struct {
	// System is the system instruction.
	System string

	// Prompt is the user message.
	Prompt string

	// MaxTokens caps the response length. Zero means provider default.
	MaxTokens int

	// JSON requests a response that is a single valid JSON object.
	JSON bool
}

// Completer is the LLM service contract. Implementations carry their own
// timeout; the caller owns retry and backoff policy beyond what the
// implementation provides.
type Completer interface {
	// Complete sends one request and returns the response text.
	// Fails with an error on timeout, rate limiting, or auth failure.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// DocumentParser converts an uploaded file to plain text.
// The raw document-format parsing (PDF, DOCX) is an external collaborator;
// implementations may support only a subset of formats.
type DocumentParser interface {
	// Parse returns the plain text of the file.
	// Returns EINVALID for unsupported formats.
	Parse(data []byte, mimeType string) (string, error)
}
