package goquery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/iamtutumo/agentkb"
)

// Ensure LinkExtractor implements agentkb.LinkExtractor at compile time.
var _ agentkb.LinkExtractor = (*LinkExtractor)(nil)

// LinkExtractor collects outbound hyperlinks from HTML documents using
// goquery. It resolves relative hrefs against the page URL and returns
// absolute http(s) links in document order, deduplicated. Domain filtering
// is the caller's concern.
type LinkExtractor struct{}

// NewLinkExtractor creates a new LinkExtractor.
func NewLinkExtractor() *LinkExtractor {
	return &LinkExtractor{}
}

// ExtractLinks parses HTML and returns the absolute http(s) links found in
// anchor tags. Fragment-only, mailto, tel, javascript and data links are
// skipped, as are links back to the page itself.
func (e *LinkExtractor) ExtractLinks(html string, baseURL string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, agentkb.Errorf(agentkb.EINVALID, "invalid base URL: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, agentkb.Errorf(agentkb.EINVALID, "failed to parse HTML: %v", err)
	}

	seen := make(map[string]bool)
	var links []string

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, exists := sel.Attr("href")
		if !exists || href == "" {
			return
		}

		if isNonHTTPLink(href) {
			return
		}

		resolved := resolveURL(base, href)
		if resolved == "" {
			return
		}

		if !seen[resolved] {
			seen[resolved] = true
			links = append(links, resolved)
		}
	})

	return links, nil
}

// resolveURL resolves a relative href against the page URL. Returns empty
// string for unparseable hrefs, non-http(s) schemes, and self-referential
// links. Fragments are stripped before comparison.
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""

	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}

	result := resolved.String()
	baseNoFragment := *base
	baseNoFragment.Fragment = ""
	if result == baseNoFragment.String() {
		return ""
	}
	return result
}

// isNonHTTPLink checks if a href uses a scheme that should be skipped.
func isNonHTTPLink(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))
	return strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:")
}
