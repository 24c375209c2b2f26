package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/iamtutumo/agentkb"
	"github.com/iamtutumo/agentkb/synth"
)

// Run executes the synthesize command.
func (c *SynthesizeCmd) Run(deps *Dependencies) error {
	return runSynthesize(deps, c.Session)
}

// runSynthesize merges a session's records into the final knowledge base
// and writes both the JSON document and a plain-text rendering. Shared by
// synthesize and run.
func runSynthesize(deps *Dependencies, sessionID string) error {
	records, err := deps.Records.ListRecords(deps.Ctx, sessionID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", agentkb.ErrorMessage(err))
		return err
	}

	synthesizer := newSynthesizer(deps)
	kb, err := synthesizer.Synthesize(deps.Ctx, records)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", agentkb.ErrorMessage(err))
		return err
	}

	path, err := deps.Knowledge.SaveKnowledgeBase(deps.Ctx, sessionID, kb)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", agentkb.ErrorMessage(err))
		return err
	}

	// A readable companion next to the JSON document.
	textPath := strings.TrimSuffix(path, ".json") + ".txt"
	if err := os.WriteFile(textPath, []byte(synth.FormatText(kb)), 0644); err != nil {
		return fmt.Errorf("writing text rendering: %w", err)
	}

	fmt.Fprintf(deps.Stdout, "  Merged %d records into %d topics\n", len(records), len(kb.Topics))
	fmt.Fprintf(deps.Stdout, "  Knowledge base: %s\n", path)
	fmt.Fprintf(deps.Stdout, "  Text rendering: %s\n", textPath)
	return nil
}
