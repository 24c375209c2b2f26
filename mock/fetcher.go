// Package mock provides function-field test doubles for agentkb interfaces.
package mock

import (
	"context"

	"github.com/iamtutumo/agentkb"
)

var _ agentkb.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of agentkb.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string) (string, error)
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	return f.FetchFn(ctx, url)
}

var _ agentkb.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of agentkb.Extractor.
type Extractor struct {
	ExtractFn func(html string) (*agentkb.ExtractResult, error)
}

func (e *Extractor) Extract(html string) (*agentkb.ExtractResult, error) {
	return e.ExtractFn(html)
}

var _ agentkb.Converter = (*Converter)(nil)

// Converter is a mock implementation of agentkb.Converter.
type Converter struct {
	ConvertFn func(html string) (string, error)
}

func (c *Converter) Convert(html string) (string, error) {
	return c.ConvertFn(html)
}

var _ agentkb.LinkExtractor = (*LinkExtractor)(nil)

// LinkExtractor is a mock implementation of agentkb.LinkExtractor.
type LinkExtractor struct {
	ExtractLinksFn func(html string, baseURL string) ([]string, error)
}

func (l *LinkExtractor) ExtractLinks(html string, baseURL string) ([]string, error) {
	return l.ExtractLinksFn(html, baseURL)
}

var _ agentkb.SitemapService = (*SitemapService)(nil)

// SitemapService is a mock implementation of agentkb.SitemapService.
type SitemapService struct {
	DiscoverURLsFn func(ctx context.Context, baseURL string) ([]string, error)
}

func (s *SitemapService) DiscoverURLs(ctx context.Context, baseURL string) ([]string, error) {
	return s.DiscoverURLsFn(ctx, baseURL)
}

var _ agentkb.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter is a mock implementation of agentkb.DomainLimiter.
type DomainLimiter struct {
	WaitFn func(ctx context.Context, domain string) error
}

func (l *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return l.WaitFn(ctx, domain)
}
