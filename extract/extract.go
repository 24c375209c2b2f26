// Package extract implements stage-one extraction: turning cleaned page
// artifacts into structured records via an LLM service.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iamtutumo/agentkb"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel extraction within a batch.
const DefaultConcurrency = 4

// Extractor turns page artifacts into Stage1Records. Each artifact's text
// is wrapped in explicit delimiters before the LLM call and chunked when it
// exceeds the character budget.
type Extractor struct {
	Completer agentkb.Completer
	Records   agentkb.RecordStore

	// Ledger, when set, receives per-artifact outcomes.
	Ledger agentkb.Ledger

	// ChunkBudget is the per-call character budget for artifact text.
	// Zero means agentkb.DefaultChunkBudget.
	ChunkBudget int

	// Concurrency bounds parallel extraction in ExtractBatch.
	// Zero means DefaultConcurrency.
	Concurrency int
}

// ExtractOne extracts a structured record from one artifact. Oversized
// text is split into ordered chunks, each extracted independently, and the
// partial records are concatenated under one Stage1Record so tail content
// is never dropped. Returns EEXTRACTION when the LLM service errors or its
// response stays unparsable after one stricter retry.
func (e *Extractor) ExtractOne(ctx context.Context, artifact *agentkb.PageArtifact) (*agentkb.Stage1Record, error) {
	if err := artifact.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(artifact.Text) == "" {
		return nil, agentkb.Errorf(agentkb.EINVALID, "artifact %q has no text", artifact.Name)
	}

	budget := e.ChunkBudget
	if budget <= 0 {
		budget = agentkb.DefaultChunkBudget
	}

	var record *agentkb.Stage1Record
	for i, chunk := range splitChunks(artifact.Text, budget) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		partial, err := e.extractChunk(ctx, artifact, chunk)
		if err != nil {
			return nil, err
		}

		if i == 0 {
			record = partial
			continue
		}
		// Later chunks contribute their sections in order; the first
		// chunk's title and metadata win.
		record.Sections = append(record.Sections, partial.Sections...)
	}

	if record.Metadata == nil {
		record.Metadata = make(map[string]string)
	}
	record.Metadata["source"] = artifact.Source

	if err := record.Validate(); err != nil {
		return nil, agentkb.Errorf(agentkb.EEXTRACTION, "record for %q failed validation: %v", artifact.Name, err)
	}
	return record, nil
}

// ExtractBatch processes artifacts concurrently, continuing past
// individual failures. The returned outcomes preserve input order and
// record which artifacts failed and why. The error is non-nil only when
// the context is canceled.
func (e *Extractor) ExtractBatch(ctx context.Context, artifacts []*agentkb.PageArtifact) ([]agentkb.ExtractOutcome, error) {
	concurrency := e.Concurrency
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	outcomes := make([]agentkb.ExtractOutcome, len(artifacts))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, artifact := range artifacts {
		g.Go(func() error {
			outcomes[i] = e.extractItem(ctx, artifact)
			return nil
		})
	}
	// Goroutines never return errors; outcomes carry per-item failures.
	_ = g.Wait()

	return outcomes, ctx.Err()
}

// extractItem runs one artifact end to end: extract, persist, record.
func (e *Extractor) extractItem(ctx context.Context, artifact *agentkb.PageArtifact) agentkb.ExtractOutcome {
	outcome := agentkb.ExtractOutcome{Source: artifact.Source}

	if err := ctx.Err(); err != nil {
		outcome.Err = err
		return outcome
	}

	record, err := e.ExtractOne(ctx, artifact)
	if err != nil {
		outcome.Err = err
		e.record(ctx, artifact, agentkb.StatusFailed, err.Error())
		return outcome
	}

	if e.Records != nil {
		if err := e.Records.SaveRecord(ctx, artifact.SessionID, artifact.Name, record); err != nil {
			outcome.Err = err
			e.record(ctx, artifact, agentkb.StatusFailed, err.Error())
			return outcome
		}
	}

	outcome.Record = record
	e.record(ctx, artifact, agentkb.StatusExtracted, "")
	return outcome
}

// extractChunk sends one chunk to the LLM and parses the response,
// retrying once with a stricter instruction on parse failure.
func (e *Extractor) extractChunk(ctx context.Context, artifact *agentkb.PageArtifact, chunk string) (*agentkb.Stage1Record, error) {
	req := agentkb.CompletionRequest{
		System: systemPrompt,
		Prompt: buildUserPrompt(artifact.Source, artifact.Title, chunk, false),
		JSON:   true,
	}

	text, err := e.Completer.Complete(ctx, req)
	if err != nil {
		return nil, agentkb.Errorf(agentkb.EEXTRACTION, "llm call failed for %q: %v", artifact.Name, err)
	}

	record, parseErr := parseRecord(text)
	if parseErr == nil {
		return record, nil
	}

	// One stricter retry before giving up on the chunk.
	req.Prompt = buildUserPrompt(artifact.Source, artifact.Title, chunk, true)
	text, err = e.Completer.Complete(ctx, req)
	if err != nil {
		return nil, agentkb.Errorf(agentkb.EEXTRACTION, "llm retry failed for %q: %v", artifact.Name, err)
	}

	record, parseErr = parseRecord(text)
	if parseErr != nil {
		return nil, agentkb.Errorf(agentkb.EEXTRACTION, "unparsable response for %q after retry: %v", artifact.Name, parseErr)
	}
	return record, nil
}

func (e *Extractor) record(ctx context.Context, artifact *agentkb.PageArtifact, status agentkb.PageStatus, reason string) {
	if e.Ledger == nil {
		return
	}
	// Ledger failures must not fail the extraction itself.
	_ = e.Ledger.RecordItem(ctx, artifact.SessionID, artifact.Source, artifact.Depth, status, reason)
}

// wireRecord mirrors the JSON schema the prompt asks for. Metadata values
// arrive as arbitrary JSON and are normalized to strings.
type wireRecord struct {
	Title    string            `json:"title"`
	Sections []agentkb.Section `json:"sections"`
	Metadata map[string]any    `json:"metadata"`
}

// parseRecord decodes an LLM response into a Stage1Record. Markdown code
// fences around the JSON are tolerated.
func parseRecord(text string) (*agentkb.Stage1Record, error) {
	payload := extractJSON(text)
	if payload == "" {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	var wire wireRecord
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return nil, err
	}

	record := &agentkb.Stage1Record{
		Title:    wire.Title,
		Sections: wire.Sections,
		Metadata: make(map[string]string, len(wire.Metadata)),
	}
	for k, v := range wire.Metadata {
		record.Metadata[k] = stringifyMetadata(v)
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}

// extractJSON returns the outermost JSON object in the text, tolerating
// surrounding prose and markdown fences.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

func stringifyMetadata(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, stringifyMetadata(item))
		}
		return strings.Join(parts, ", ")
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}

// splitChunks splits text into pieces no larger than budget characters,
// preferring paragraph boundaries. A single paragraph larger than the
// budget is hard-split.
func splitChunks(text string, budget int) []string {
	text = strings.TrimSpace(text)
	if len(text) <= budget {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, para := range strings.Split(text, "\n\n") {
		if para == "" {
			continue
		}

		// Oversized paragraphs are hard-split on the budget boundary.
		for len(para) > budget {
			flush()
			chunks = append(chunks, para[:budget])
			para = para[budget:]
		}
		if para == "" {
			continue
		}

		if current.Len() > 0 && current.Len()+len(para)+2 > budget {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	return chunks
}
