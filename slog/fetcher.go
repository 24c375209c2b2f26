// Package slog provides logging decorators for the pipeline's blocking
// collaborators.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/iamtutumo/agentkb"
)

// Ensure LoggingFetcher implements agentkb.Fetcher.
var _ agentkb.Fetcher = (*LoggingFetcher)(nil)

// LoggingFetcher wraps a Fetcher with per-request logging.
type LoggingFetcher struct {
	next   agentkb.Fetcher
	logger *slog.Logger
}

// NewLoggingFetcher creates a new LoggingFetcher.
func NewLoggingFetcher(next agentkb.Fetcher, logger *slog.Logger) *LoggingFetcher {
	return &LoggingFetcher{next: next, logger: logger}
}

// Fetch delegates to the wrapped fetcher and logs the operation.
func (f *LoggingFetcher) Fetch(ctx context.Context, url string) (html string, err error) {
	defer func(begin time.Time) {
		f.logger.Info("fetch",
			"url", url,
			"bytes", len(html),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.Fetch(ctx, url)
}

// Ensure LoggingSitemapService implements agentkb.SitemapService.
var _ agentkb.SitemapService = (*LoggingSitemapService)(nil)

// LoggingSitemapService wraps a SitemapService with discovery logging.
type LoggingSitemapService struct {
	next   agentkb.SitemapService
	logger *slog.Logger
}

// NewLoggingSitemapService creates a new LoggingSitemapService.
func NewLoggingSitemapService(next agentkb.SitemapService, logger *slog.Logger) *LoggingSitemapService {
	return &LoggingSitemapService{next: next, logger: logger}
}

// DiscoverURLs delegates to the wrapped service and logs the operation.
func (s *LoggingSitemapService) DiscoverURLs(ctx context.Context, baseURL string) (urls []string, err error) {
	defer func(begin time.Time) {
		s.logger.Info("sitemap discovery",
			"url", baseURL,
			"count", len(urls),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.DiscoverURLs(ctx, baseURL)
}
