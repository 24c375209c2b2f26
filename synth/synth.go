// Package synth implements stage-two synthesis: merging stage-one records
// into deduplicated topics and producing the final voice-ready knowledge
// base through an LLM service.
package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/iamtutumo/agentkb"
)

// Synthesizer produces the final knowledge base from a session's
// stage-one records. The deterministic merge runs first; the LLM only
// rewrites merged topics into voice-optimized copy and writes the agent
// system prompt.
type Synthesizer struct {
	Completer agentkb.Completer

	// ChunkBudget is the per-call character budget for rendered topics.
	// Batches are formed so each call stays within it. Zero means
	// agentkb.DefaultChunkBudget.
	ChunkBudget int
}

// Synthesize merges the records and produces the knowledge base. Returns
// ESYNTHESIS if no records are supplied or the LLM service fails
// persistently. When the merged corpus exceeds the per-call budget,
// synthesis proceeds over ordered batches with a running summary carried
// forward so no topic is dropped.
func (s *Synthesizer) Synthesize(ctx context.Context, records []*agentkb.Stage1Record) (*agentkb.KnowledgeBase, error) {
	if len(records) == 0 {
		return nil, agentkb.Errorf(agentkb.ESYNTHESIS, "no records to synthesize")
	}

	budget := s.ChunkBudget
	if budget <= 0 {
		budget = agentkb.DefaultChunkBudget
	}

	merged := Merge(records)
	final := make([]agentkb.Topic, len(merged))
	copy(final, merged)

	index := make(map[string]int, len(merged))
	for i, topic := range merged {
		index[normalizeTitle(topic.Title)] = i
	}

	var runningSummary string
	for _, batch := range batchTopics(merged, budget) {
		resp, err := s.synthesizeBatch(ctx, batch, runningSummary)
		if err != nil {
			return nil, err
		}
		runningSummary = resp.Summary

		// Map rewritten topics back onto the merge ordering. A topic the
		// model dropped keeps its merged content so nothing is lost.
		for _, rewritten := range resp.Topics {
			i, ok := index[normalizeTitle(rewritten.Title)]
			if !ok || len(rewritten.Sections) == 0 {
				continue
			}
			final[i].Sections = rewritten.Sections
		}
	}

	systemPrompt, err := s.buildSystemPrompt(ctx, runningSummary, merged)
	if err != nil {
		return nil, err
	}

	kb := &agentkb.KnowledgeBase{
		AgentSystemPrompt: systemPrompt,
		Topics:            final,
		Metadata: map[string]string{
			"sourceCount": strconv.Itoa(len(records)),
			"topicCount":  strconv.Itoa(len(final)),
		},
	}
	if err := kb.Validate(); err != nil {
		return nil, agentkb.Errorf(agentkb.ESYNTHESIS, "knowledge base failed validation: %v", err)
	}
	return kb, nil
}

// batchResponse mirrors the JSON schema the batch prompt asks for.
type batchResponse struct {
	Topics []struct {
		Title    string            `json:"title"`
		Sections []agentkb.Section `json:"sections"`
	} `json:"topics"`
	Summary string `json:"summary"`
}

// synthesizeBatch sends one batch and parses the response, retrying once
// with a stricter instruction on parse failure.
func (s *Synthesizer) synthesizeBatch(ctx context.Context, batch []agentkb.Topic, runningSummary string) (*batchResponse, error) {
	req := agentkb.CompletionRequest{
		System: synthesisSystemPrompt,
		Prompt: buildBatchPrompt(batch, runningSummary, false),
		JSON:   true,
	}

	text, err := s.Completer.Complete(ctx, req)
	if err != nil {
		return nil, agentkb.Errorf(agentkb.ESYNTHESIS, "llm call failed: %v", err)
	}

	resp, parseErr := parseBatchResponse(text)
	if parseErr == nil {
		return resp, nil
	}

	req.Prompt = buildBatchPrompt(batch, runningSummary, true)
	text, err = s.Completer.Complete(ctx, req)
	if err != nil {
		return nil, agentkb.Errorf(agentkb.ESYNTHESIS, "llm retry failed: %v", err)
	}

	resp, parseErr = parseBatchResponse(text)
	if parseErr != nil {
		return nil, agentkb.Errorf(agentkb.ESYNTHESIS, "unparsable response after retry: %v", parseErr)
	}
	return resp, nil
}

// buildSystemPrompt asks the LLM for the agent system prompt using the
// accumulated summary, falling back to a topic listing when batches
// produced none.
func (s *Synthesizer) buildSystemPrompt(ctx context.Context, runningSummary string, topics []agentkb.Topic) (string, error) {
	summary := runningSummary
	if summary == "" {
		titles := make([]string, len(topics))
		for i, topic := range topics {
			titles[i] = topic.Title
		}
		summary = "Topics covered: " + strings.Join(titles, "; ")
	}

	text, err := s.Completer.Complete(ctx, agentkb.CompletionRequest{
		Prompt: fmt.Sprintf(systemPromptRequestFormat, summary),
	})
	if err != nil {
		return "", agentkb.Errorf(agentkb.ESYNTHESIS, "system prompt generation failed: %v", err)
	}
	return strings.TrimSpace(text), nil
}

func parseBatchResponse(text string) (*batchResponse, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	var resp batchResponse
	if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
		return nil, err
	}
	if len(resp.Topics) == 0 {
		return nil, fmt.Errorf("response contained no topics")
	}
	return &resp, nil
}

// batchTopics splits topics into ordered batches whose rendered size stays
// within the budget. Every batch holds at least one topic, so a single
// oversized topic still goes through in its own call.
func batchTopics(topics []agentkb.Topic, budget int) [][]agentkb.Topic {
	var batches [][]agentkb.Topic
	var current []agentkb.Topic
	size := 0

	for _, topic := range topics {
		topicSize := len(renderTopics([]agentkb.Topic{topic}))
		if len(current) > 0 && size+topicSize > budget {
			batches = append(batches, current)
			current = nil
			size = 0
		}
		current = append(current, topic)
		size += topicSize
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}
