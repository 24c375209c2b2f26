package main

import (
	"fmt"

	"github.com/iamtutumo/agentkb"
)

// Run executes the extract command.
func (c *ExtractCmd) Run(deps *Dependencies) error {
	if err := runExtract(deps, c.Session, c.Concurrency); err != nil {
		return err
	}

	fmt.Fprintf(deps.Stdout, "Next: kbagent synthesize %s\n", c.Session)
	return nil
}

// runExtract processes every artifact of a session through Stage-1
// extraction and reports exact succeeded/failed counts. Shared by extract
// and run.
func runExtract(deps *Dependencies, sessionID string, concurrency int) error {
	artifacts, err := deps.Artifacts.ListArtifacts(deps.Ctx, sessionID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", agentkb.ErrorMessage(err))
		return err
	}
	if len(artifacts) == 0 {
		return fmt.Errorf("session %s has no pages to extract", sessionID)
	}

	extractor := newExtractor(deps, concurrency)
	outcomes, err := extractor.ExtractBatch(deps.Ctx, artifacts)
	if err != nil {
		return err
	}

	var succeeded int
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			fmt.Fprintf(deps.Stderr, "  skip %s: %s\n", outcome.Source, agentkb.ErrorMessage(outcome.Err))
			continue
		}
		succeeded++
	}

	fmt.Fprintf(deps.Stdout, "  Extracted %d of %d pages\n", succeeded, len(outcomes))
	if succeeded == 0 {
		return fmt.Errorf("extraction failed for every page in session %s", sessionID)
	}

	return nil
}
