package agentkb

import "time"

// Default configuration values.
const (
	DefaultPageCap      = 100
	DefaultMaxUploadMB  = 25
	DefaultChunkBudget  = 3000
	DefaultFetchTimeout = 10 * time.Second
	DefaultMaxFetchSize = 10 << 20 // 10 MB
)

// Config carries the limits for one pipeline invocation. It is passed into
// components at construction time so concurrent sessions can run with
// different limits.
type Config struct {
	// PageCap is the maximum number of pages emitted by a crawl.
	PageCap int

	// MaxUploadMB is the per-upload size cap in megabytes.
	MaxUploadMB int

	// ChunkBudget is the per-page/chunk character budget for LLM calls.
	ChunkBudget int

	// FetchTimeout applies to each page fetch.
	FetchTimeout time.Duration

	// MaxFetchSize caps the response body size in bytes.
	MaxFetchSize int64
}

// DefaultConfig returns a Config populated with default limits.
func DefaultConfig() Config {
	return Config{
		PageCap:      DefaultPageCap,
		MaxUploadMB:  DefaultMaxUploadMB,
		ChunkBudget:  DefaultChunkBudget,
		FetchTimeout: DefaultFetchTimeout,
		MaxFetchSize: DefaultMaxFetchSize,
	}
}

// Validate returns an ECONFIG error if any limit is out of range.
// It runs before any work begins.
func (c Config) Validate() error {
	if c.PageCap < 1 {
		return Errorf(ECONFIG, "page cap must be at least 1, got %d", c.PageCap)
	}
	if c.MaxUploadMB < 1 {
		return Errorf(ECONFIG, "upload size cap must be at least 1 MB, got %d", c.MaxUploadMB)
	}
	if c.ChunkBudget < 1 {
		return Errorf(ECONFIG, "chunk budget must be at least 1, got %d", c.ChunkBudget)
	}
	if c.FetchTimeout <= 0 {
		return Errorf(ECONFIG, "fetch timeout must be positive, got %s", c.FetchTimeout)
	}
	if c.MaxFetchSize < 1 {
		return Errorf(ECONFIG, "max fetch size must be at least 1 byte, got %d", c.MaxFetchSize)
	}
	return nil
}
