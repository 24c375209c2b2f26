package main

import (
	"context"
	"io"

	"github.com/iamtutumo/agentkb"
	"github.com/iamtutumo/agentkb/crawl"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Config agentkb.Config

	Ledger    agentkb.Ledger
	Artifacts agentkb.ArtifactStore
	Records   agentkb.RecordStore
	Knowledge agentkb.KnowledgeStore
	Parser    agentkb.DocumentParser

	// Set for crawl and run.
	Fetcher  agentkb.Fetcher
	Sitemaps agentkb.SitemapService
	Guard    *crawl.Guard

	// Set for extract, synthesize, and run.
	Completer agentkb.Completer
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Verbose bool `short:"v" help:"Log each fetch and LLM call"`

	Crawl      CrawlCmd      `cmd:"" help:"Crawl a website into a new session"`
	Upload     UploadCmd     `cmd:"" help:"Upload documents into a new session"`
	Extract    ExtractCmd    `cmd:"" help:"Extract structured records from a session's pages"`
	Synthesize SynthesizeCmd `cmd:"" help:"Merge a session's records into a knowledge base"`
	Run        RunCmd        `cmd:"" help:"Crawl, extract, and synthesize in one pass"`
	Sessions   SessionsCmd   `cmd:"" help:"List all sessions"`
}

// CrawlCmd is the "crawl" subcommand.
type CrawlCmd struct {
	URL         string  `arg:"" help:"Root URL to crawl"`
	Depth       int     `short:"d" default:"2" help:"Maximum link depth from the root"`
	PageCap     int     `short:"p" default:"100" help:"Maximum number of pages to fetch"`
	Concurrency int     `short:"c" default:"4" help:"Concurrent fetch limit"`
	RPS         float64 `name:"rps" default:"1.0" help:"Requests per second per domain (0 disables pacing)"`
}

// UploadCmd is the "upload" subcommand.
type UploadCmd struct {
	Files []string `arg:"" type:"existingfile" help:"Documents to upload (.txt, .md, .html)"`
}

// ExtractCmd is the "extract" subcommand.
type ExtractCmd struct {
	Session     string `arg:"" help:"Session ID"`
	Concurrency int    `short:"c" default:"4" help:"Concurrent extraction limit"`
}

// SynthesizeCmd is the "synthesize" subcommand.
type SynthesizeCmd struct {
	Session string `arg:"" help:"Session ID"`
}

// RunCmd is the "run" subcommand: the full pipeline.
type RunCmd struct {
	URL         string  `arg:"" help:"Root URL to crawl"`
	Depth       int     `short:"d" default:"2" help:"Maximum link depth from the root"`
	PageCap     int     `short:"p" default:"100" help:"Maximum number of pages to fetch"`
	Concurrency int     `short:"c" default:"4" help:"Concurrent fetch and extraction limit"`
	RPS         float64 `name:"rps" default:"1.0" help:"Requests per second per domain (0 disables pacing)"`
}

// SessionsCmd is the "sessions" subcommand.
type SessionsCmd struct{}
