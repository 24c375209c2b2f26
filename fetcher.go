package agentkb

import "context"

// Fetcher retrieves raw HTML from URLs.
type Fetcher interface {
	// Fetch downloads the URL and returns the response body.
	// Returns EFETCH on timeout, HTTP error, oversized response, or
	// unsupported content type. The context controls cancellation.
	Fetch(ctx context.Context, url string) (html string, err error)
}

// ExtractResult holds the main content extracted from an HTML page.
type ExtractResult struct {
	// Title is the page title extracted from metadata.
	Title string

	// ContentHTML is the main content with boilerplate (nav, footer,
	// sidebar, ads) removed.
	ContentHTML string
}

// Extractor extracts main content from HTML pages, removing boilerplate.
type Extractor interface {
	Extract(html string) (*ExtractResult, error)
}

// Converter converts clean content HTML to Markdown, preserving heading
// structure.
type Converter interface {
	Convert(html string) (string, error)
}

// LinkExtractor collects absolute outbound hyperlinks from an HTML document.
type LinkExtractor interface {
	// ExtractLinks parses HTML and returns absolute http(s) links.
	// The baseURL resolves relative hrefs. Fragment-only, mailto and
	// javascript links are skipped.
	ExtractLinks(html string, baseURL string) ([]string, error)
}

// SitemapService discovers URLs from a site's sitemap, if one exists.
// It checks robots.txt for sitemap directives and falls back to
// /sitemap.xml; sitemap indexes are resolved recursively.
type SitemapService interface {
	DiscoverURLs(ctx context.Context, baseURL string) ([]string, error)
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, domain string) error
}
