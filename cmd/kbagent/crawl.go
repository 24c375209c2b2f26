package main

import (
	"fmt"
	"time"

	"github.com/iamtutumo/agentkb"
	"github.com/iamtutumo/agentkb/crawl"
)

// Run executes the crawl command.
func (c *CrawlCmd) Run(deps *Dependencies) error {
	session, err := runCrawl(deps, c.URL, c.Depth, c.PageCap, c.Concurrency, c.RPS)
	if err != nil {
		return err
	}

	fmt.Fprintf(deps.Stdout, "Next: kbagent extract %s\n", session.ID)
	return nil
}

// runCrawl creates a session, crawls it, and prints the outcome summary.
// Shared by crawl and run.
func runCrawl(deps *Dependencies, rootURL string, depth, pageCap, concurrency int, rps float64) (*agentkb.Session, error) {
	session := &agentkb.Session{
		ID:       agentkb.NewSessionID(time.Now()),
		RootURL:  rootURL,
		MaxDepth: depth,
		PageCap:  pageCap,
		Started:  time.Now().UTC(),
	}

	fmt.Fprintf(deps.Stdout, "Session %s\n", session.ID)

	crawler := newCrawler(deps, concurrency, rps)
	result, err := crawler.Crawl(deps.Ctx, session)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", agentkb.ErrorMessage(err))
		return nil, err
	}

	fmt.Fprintf(deps.Stdout, "  Saved %d pages\n", len(result.Artifacts))
	if result.CrossDomain > 0 {
		fmt.Fprintf(deps.Stdout, "  Skipped %d cross-domain links\n", result.CrossDomain)
	}

	summary, err := deps.Ledger.Summary(deps.Ctx, session.ID)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(deps.Stdout, "  %s\n", crawl.FormatSummary(summary))
	for _, f := range summary.Failures {
		fmt.Fprintf(deps.Stderr, "  skip %s: %s\n", f.Source, f.Reason)
	}

	if len(result.Artifacts) == 0 {
		return nil, fmt.Errorf("crawl produced no pages")
	}

	return session, nil
}
