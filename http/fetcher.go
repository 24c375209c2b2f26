// Package http provides the HTTP implementations of agentkb.Fetcher and
// agentkb.SitemapService.
package http

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/iamtutumo/agentkb"
)

// DefaultFetchTimeout is the default timeout for page requests.
const DefaultFetchTimeout = 10 * time.Second

// DefaultMaxBodySize caps the response body to guard against oversized or
// adversarial pages.
const DefaultMaxBodySize = 10 << 20 // 10 MB

// Ensure Fetcher implements agentkb.Fetcher at compile time.
var _ agentkb.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves HTML content from URLs. Only text content types are
// accepted; binary responses fail with EFETCH.
type Fetcher struct {
	client      *http.Client
	timeout     time.Duration
	maxBodySize int64
	userAgent   string
	transport   http.RoundTripper
	redirect    func(req *http.Request, via []*http.Request) error
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the per-request timeout.
// Defaults to DefaultFetchTimeout if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithMaxBodySize caps the response body size in bytes.
// Defaults to DefaultMaxBodySize if not specified.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		f.maxBodySize = n
	}
}

// WithTransport sets the HTTP transport. Pass the SSRF-safe transport from
// crawl.Guard.NewSafeTransport so DNS rebinding cannot bypass the URL check.
func WithTransport(t http.RoundTripper) Option {
	return func(f *Fetcher) {
		f.transport = t
	}
}

// WithRedirectPolicy sets the redirect hook. Pass crawl.Guard.CheckRedirect
// so every redirect hop is re-validated.
func WithRedirectPolicy(fn func(req *http.Request, via []*http.Request) error) Option {
	return func(f *Fetcher) {
		f.redirect = fn
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// NewFetcher creates an HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:     DefaultFetchTimeout,
		maxBodySize: DefaultMaxBodySize,
		userAgent:   "agentkb/1.0",
	}
	for _, opt := range opts {
		opt(f)
	}

	f.client = &http.Client{
		Timeout:       f.timeout,
		Transport:     f.transport,
		CheckRedirect: f.redirect,
	}

	return f
}

// Fetch retrieves the body from the given URL.
// Returns EFETCH on network errors, non-2xx statuses, unsupported content
// types, and bodies exceeding the size cap.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", agentkb.Errorf(agentkb.EFETCH, "invalid request for %s: %v", url, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", agentkb.Errorf(agentkb.EFETCH, "fetch %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", agentkb.Errorf(agentkb.EFETCH, "HTTP %d for %s", resp.StatusCode, url)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" && !isTextContentType(ct) {
		return "", agentkb.Errorf(agentkb.EFETCH, "unsupported content type %q for %s", ct, url)
	}

	// Read one byte past the cap to distinguish "exactly at cap" from
	// "too large".
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return "", agentkb.Errorf(agentkb.EFETCH, "reading %s: %v", url, err)
	}
	if int64(len(body)) > f.maxBodySize {
		return "", agentkb.Errorf(agentkb.EFETCH, "response for %s exceeds %d bytes", url, f.maxBodySize)
	}

	return string(body), nil
}

func isTextContentType(ct string) bool {
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	switch {
	case strings.HasPrefix(mediaType, "text/"):
		return true
	case mediaType == "application/xhtml+xml":
		return true
	default:
		return false
	}
}
