// Package crawl provides the breadth-first website crawler that feeds the
// knowledge-base pipeline. It coordinates the frontier, the SSRF guard,
// fetching, content extraction, and raw artifact storage.
package crawl

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/iamtutumo/agentkb"
	"golang.org/x/sync/errgroup"
)

// Frontier sizing for Bloom filter deduplication.
const (
	frontierExpectedURLs      = 10000
	frontierFalsePositiveRate = 0.01
)

// Crawler walks one site breadth-first, depth-bounded and page-capped, and
// persists one cleaned text artifact per page.
type Crawler struct {
	Fetcher   agentkb.Fetcher
	Extractor agentkb.Extractor
	Converter agentkb.Converter
	Links     agentkb.LinkExtractor
	Artifacts agentkb.ArtifactStore

	// Sitemaps optionally seeds the frontier from the site's sitemap.
	Sitemaps agentkb.SitemapService

	// Guard rejects private/loopback destinations. Required.
	Guard *Guard

	// Limiter paces requests per domain. Optional.
	Limiter agentkb.DomainLimiter

	// Ledger records per-page outcomes. Optional.
	Ledger agentkb.Ledger

	// Concurrency bounds parallel fetches within one depth level.
	// Values below 1 mean sequential crawling.
	Concurrency int

	// RetryDelays overrides the fetch backoff schedule. Nil uses defaults.
	RetryDelays []time.Duration
}

// Result holds the outcome of one crawl session.
type Result struct {
	Artifacts   []*agentkb.PageArtifact
	Failed      int
	Blocked     int
	CrossDomain int
}

// Crawl traverses the session's root URL breadth-first up to the session's
// depth limit, emitting at most PageCap artifacts. Partial results are
// always returned on hitting the cap. A root fetch failure aborts the whole
// crawl with ECRAWLABORTED; any other page failure is recorded and skipped.
func (c *Crawler) Crawl(ctx context.Context, session *agentkb.Session) (*Result, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}

	root, err := agentkb.NormalizeURL(session.RootURL)
	if err != nil {
		return nil, agentkb.Errorf(agentkb.ECRAWLABORTED, "invalid root URL %q: %v", session.RootURL, err)
	}
	if err := c.Guard.Check(root); err != nil {
		return nil, agentkb.Errorf(agentkb.ECRAWLABORTED, "root URL rejected: %s", agentkb.ErrorMessage(err))
	}

	if c.Ledger != nil {
		if err := c.Ledger.StartSession(ctx, session); err != nil {
			return nil, err
		}
	}

	frontier := NewFrontier(frontierExpectedURLs, frontierFalsePositiveRate)
	frontier.Push(root, 0)
	c.seedFromSitemap(ctx, frontier, root, session.MaxDepth)

	st := &crawlState{
		session:  session,
		root:     root,
		frontier: frontier,
		result:   &Result{},
	}

	concurrency := c.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	// Breadth-first by construction: the frontier is FIFO, so draining
	// the queue processes shallower entries before anything they link to.
	for {
		if err := ctx.Err(); err != nil {
			return st.result, err
		}

		batch := st.drainBatch()
		if len(batch) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for _, item := range batch {
			g.Go(func() error {
				c.processPage(gctx, st, item)
				return nil
			})
		}
		_ = g.Wait()

		if st.rootErr != nil {
			return st.result, agentkb.Errorf(agentkb.ECRAWLABORTED, "root URL unreachable: %v", st.rootErr)
		}
		if st.capReached() {
			break
		}
	}

	return st.result, nil
}

// crawlState is the mutable crawl bookkeeping shared across workers.
// The page cap counter and result are guarded by one mutex so the cap is
// never exceeded even under concurrent completion.
type crawlState struct {
	session  *agentkb.Session
	root     string
	frontier *Frontier

	mu       sync.Mutex
	reserved int
	result   *Result
	rootErr  error
}

// drainBatch pops every currently queued URL into one work batch,
// dropping entries beyond the depth limit.
func (s *crawlState) drainBatch() []agentkb.QueuedURL {
	var batch []agentkb.QueuedURL
	for {
		item, ok := s.frontier.Pop()
		if !ok {
			return batch
		}
		if item.Depth > s.session.MaxDepth {
			continue
		}
		batch = append(batch, item)
	}
}

// reserve claims one page-cap slot. Callers must release on failure.
func (s *crawlState) reserve() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reserved >= s.session.PageCap {
		return false
	}
	s.reserved++
	return true
}

func (s *crawlState) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserved--
}

func (s *crawlState) capReached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reserved >= s.session.PageCap
}

func (c *Crawler) processPage(ctx context.Context, st *crawlState, item agentkb.QueuedURL) {
	if ctx.Err() != nil {
		return
	}

	if err := c.Guard.Check(item.URL); err != nil {
		st.mu.Lock()
		st.result.Blocked++
		st.mu.Unlock()
		c.record(ctx, st, item, agentkb.StatusBlocked, agentkb.ErrorMessage(err))
		return
	}

	if !st.reserve() {
		return
	}

	artifact, err := c.fetchOne(ctx, st, item)
	if err != nil {
		st.release()
		st.mu.Lock()
		st.result.Failed++
		if item.Depth == 0 && item.URL == st.root {
			st.rootErr = err
		}
		st.mu.Unlock()
		c.record(ctx, st, item, agentkb.StatusFailed, err.Error())
		return
	}

	st.mu.Lock()
	st.result.Artifacts = append(st.result.Artifacts, artifact)
	st.mu.Unlock()
	c.record(ctx, st, item, agentkb.StatusFetched, "")
}

// fetchOne downloads, cleans, and persists a single page, then feeds newly
// discovered links back into the frontier.
func (c *Crawler) fetchOne(ctx context.Context, st *crawlState, item agentkb.QueuedURL) (*agentkb.PageArtifact, error) {
	if c.Limiter != nil {
		u, err := url.Parse(item.URL)
		if err != nil {
			return nil, err
		}
		if err := c.Limiter.Wait(ctx, u.Host); err != nil {
			return nil, err
		}
	}

	delays := c.RetryDelays
	if delays == nil {
		delays = DefaultRetryDelays()
	}
	html, err := FetchWithRetryDelays(ctx, item.URL, c.Fetcher.Fetch, delays)
	if err != nil {
		return nil, err
	}

	c.discoverLinks(st, html, item)

	extracted, err := c.Extractor.Extract(html)
	if err != nil {
		return nil, err
	}
	text, err := c.Converter.Convert(extracted.ContentHTML)
	if err != nil {
		return nil, err
	}

	artifact := &agentkb.PageArtifact{
		SessionID:   st.session.ID,
		Source:      item.URL,
		Name:        agentkb.SourceKey(item.URL),
		Title:       extracted.Title,
		Text:        text,
		Depth:       item.Depth,
		ContentHash: strconv.FormatUint(xxhash.Sum64String(text), 16),
		FetchedAt:   time.Now().UTC(),
	}
	if err := c.Artifacts.SaveArtifact(ctx, artifact); err != nil {
		return nil, err
	}
	return artifact, nil
}

// discoverLinks enqueues unseen same-domain links one level deeper.
// Cross-domain links are counted but never fetched.
func (c *Crawler) discoverLinks(st *crawlState, html string, item agentkb.QueuedURL) {
	if item.Depth >= st.session.MaxDepth {
		return
	}
	links, err := c.Links.ExtractLinks(html, item.URL)
	if err != nil {
		return
	}
	for _, link := range links {
		if !agentkb.SameRegistrableDomain(st.root, link) {
			st.mu.Lock()
			st.result.CrossDomain++
			st.mu.Unlock()
			continue
		}
		st.frontier.Push(link, item.Depth+1)
	}
}

// seedFromSitemap pushes sitemap URLs at depth 1 so known pages are reached
// even when internal linking is sparse. Discovery failures are ignored; the
// link walk still covers the site.
func (c *Crawler) seedFromSitemap(ctx context.Context, frontier *Frontier, root string, maxDepth int) {
	if c.Sitemaps == nil || maxDepth < 1 {
		return
	}
	urls, err := c.Sitemaps.DiscoverURLs(ctx, root)
	if err != nil {
		return
	}
	for _, u := range urls {
		if !agentkb.SameRegistrableDomain(root, u) {
			continue
		}
		frontier.Push(u, 1)
	}
}

func (c *Crawler) record(ctx context.Context, st *crawlState, item agentkb.QueuedURL, status agentkb.PageStatus, reason string) {
	if c.Ledger == nil {
		return
	}
	_ = c.Ledger.RecordItem(ctx, st.session.ID, item.URL, item.Depth, status, reason)
}

// FormatSummary renders a ledger summary for terminal output.
func FormatSummary(s *agentkb.LedgerSummary) string {
	fetched := s.Counts[agentkb.StatusFetched]
	failed := s.Counts[agentkb.StatusFailed]
	blocked := s.Counts[agentkb.StatusBlocked]
	return fmt.Sprintf("%d fetched, %d failed, %d blocked", fetched, failed, blocked)
}
