// Package agentkb turns a public website or a batch of uploaded documents
// into a single deduplicated, voice/LLM-ready knowledge-base document.
// It runs a two-stage pipeline: a depth-bounded, SSRF-guarded crawler that
// collects cleaned page text, followed by per-document LLM extraction and a
// cross-document synthesis pass that merges topics into one knowledge base.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., http/, trafilatura/, openai/).
package agentkb
