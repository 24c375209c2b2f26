package http

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/beevik/etree"
	"github.com/iamtutumo/agentkb"
)

// Ensure SitemapService implements agentkb.SitemapService.
var _ agentkb.SitemapService = (*SitemapService)(nil)

// SitemapService discovers URLs from website sitemaps via HTTP.
// It is used to seed the crawl frontier with pages that internal linking
// alone might miss.
type SitemapService struct {
	client *http.Client
	check  func(rawURL string) error
}

// SitemapOption configures a SitemapService.
type SitemapOption func(*SitemapService)

// WithURLCheck sets a validation hook run before every request the service
// makes, including sitemap locations taken from robots.txt directives and
// sitemap index entries. Those locations are attacker-influenced input:
// pass crawl.Guard.Check so a hostile robots.txt cannot steer discovery to
// internal addresses. A rejected sitemap location is skipped, not fatal.
func WithURLCheck(fn func(rawURL string) error) SitemapOption {
	return func(s *SitemapService) {
		s.check = fn
	}
}

// NewSitemapService creates a SitemapService with the given HTTP client.
// If client is nil, http.DefaultClient is used.
func NewSitemapService(client *http.Client, opts ...SitemapOption) *SitemapService {
	if client == nil {
		client = http.DefaultClient
	}
	s := &SitemapService{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DiscoverURLs finds all URLs from a site's sitemap. It checks robots.txt
// for Sitemap: directives first and falls back to /sitemap.xml; sitemap
// indexes are resolved recursively. Returns an empty slice if the site has
// no sitemap.
func (s *SitemapService) DiscoverURLs(ctx context.Context, baseURL string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, agentkb.Errorf(agentkb.EINVALID, "invalid base URL %q: %v", baseURL, err)
	}

	// Sitemaps live at the domain root regardless of the starting path.
	sitemapBase := *base
	sitemapBase.Path = ""

	sitemapURLs, err := s.findSitemapURLs(ctx, &sitemapBase)
	if err != nil {
		return nil, err
	}
	if len(sitemapURLs) == 0 {
		return []string{}, nil
	}

	var allURLs []string
	seenSitemaps := make(map[string]bool)
	seenURLs := make(map[string]bool)

	for _, sitemapURL := range sitemapURLs {
		urls, err := s.processSitemap(ctx, sitemapURL, seenSitemaps)
		if err != nil {
			return nil, err
		}
		for _, u := range urls {
			if !seenURLs[u] {
				seenURLs[u] = true
				allURLs = append(allURLs, u)
			}
		}
	}

	return allURLs, nil
}

// findSitemapURLs discovers sitemap URLs from robots.txt or falls back to
// /sitemap.xml.
func (s *SitemapService) findSitemapURLs(ctx context.Context, base *url.URL) ([]string, error) {
	robotsURL := base.ResolveReference(&url.URL{Path: "/robots.txt"})
	sitemaps, err := s.parseSitemapsFromRobots(ctx, robotsURL.String())
	if err == nil && len(sitemaps) > 0 {
		return sitemaps, nil
	}

	sitemapURL := base.ResolveReference(&url.URL{Path: "/sitemap.xml"})
	exists, err := s.urlExists(ctx, sitemapURL.String())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, nil
	}
	if exists {
		return []string{sitemapURL.String()}, nil
	}

	return nil, nil
}

// parseSitemapsFromRobots extracts Sitemap: directives from robots.txt.
func (s *SitemapService) parseSitemapsFromRobots(ctx context.Context, robotsURL string) ([]string, error) {
	body, err := s.fetchURL(ctx, robotsURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var sitemaps []string
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(strings.ToLower(line), "sitemap:") {
			sitemapURL := strings.TrimSpace(line[len("sitemap:"):])
			if sitemapURL != "" {
				sitemaps = append(sitemaps, sitemapURL)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading robots.txt: %w", err)
	}

	return sitemaps, nil
}

// processSitemap fetches and parses a sitemap, handling both urlset and
// sitemapindex documents.
func (s *SitemapService) processSitemap(ctx context.Context, sitemapURL string, seen map[string]bool) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if seen[sitemapURL] {
		return nil, nil
	}
	seen[sitemapURL] = true

	// A rejected location is dropped; the remaining sitemaps still
	// contribute their URLs.
	if err := s.checkURL(sitemapURL); err != nil {
		return nil, nil
	}

	body, err := s.fetchURL(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(body); err != nil {
		return nil, fmt.Errorf("parsing sitemap XML: %w", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("empty sitemap XML")
	}

	if root.Tag == "sitemapindex" {
		return s.processSitemapIndex(ctx, root, seen)
	}

	return parseURLSet(root), nil
}

// processSitemapIndex processes a <sitemapindex> element recursively.
func (s *SitemapService) processSitemapIndex(ctx context.Context, root *etree.Element, seen map[string]bool) ([]string, error) {
	var allURLs []string

	for _, sitemap := range root.SelectElements("sitemap") {
		loc := sitemap.SelectElement("loc")
		if loc == nil {
			continue
		}
		sitemapURL := strings.TrimSpace(loc.Text())
		if sitemapURL == "" {
			continue
		}

		urls, err := s.processSitemap(ctx, sitemapURL, seen)
		if err != nil {
			return nil, err
		}
		allURLs = append(allURLs, urls...)
	}

	return allURLs, nil
}

// parseURLSet extracts URLs from a <urlset> element.
func parseURLSet(root *etree.Element) []string {
	var urls []string
	for _, urlEl := range root.SelectElements("url") {
		loc := urlEl.SelectElement("loc")
		if loc == nil {
			continue
		}
		u := strings.TrimSpace(loc.Text())
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// checkURL applies the configured URL validation hook, if any.
func (s *SitemapService) checkURL(rawURL string) error {
	if s.check == nil {
		return nil
	}
	return s.check(rawURL)
}

// fetchURL fetches a URL and returns the response body.
func (s *SitemapService) fetchURL(ctx context.Context, targetURL string) (io.ReadCloser, error) {
	if err := s.checkURL(targetURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, targetURL)
	}

	return resp.Body, nil
}

// urlExists checks if a URL returns 200 OK.
func (s *SitemapService) urlExists(ctx context.Context, targetURL string) (bool, error) {
	if err := s.checkURL(targetURL); err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, targetURL, nil)
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false, err
	}
	resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}
