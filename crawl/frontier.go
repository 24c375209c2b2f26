package crawl

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/iamtutumo/agentkb"
)

// Compile-time interface verification.
var _ agentkb.Frontier = (*Frontier)(nil)

// Frontier is an in-memory FIFO frontier with Bloom filter deduplication.
// URLs are normalized before deduplication, so fragment/query/trailing-slash
// variants count as one. It is safe for concurrent use.
type Frontier struct {
	mu    sync.Mutex
	seen  *bloom.BloomFilter
	queue []agentkb.QueuedURL
}

// NewFrontier creates a Frontier sized for n expected URLs with the given
// false positive rate for deduplication.
func NewFrontier(n uint, fpRate float64) *Frontier {
	return &Frontier{
		seen: bloom.NewWithEstimates(n, fpRate),
	}
}

// Push enqueues a URL at the given depth, oldest first.
// Returns false if the URL has already been seen or does not parse as an
// absolute URL.
func (f *Frontier) Push(rawURL string, depth int) bool {
	url, err := agentkb.NormalizeURL(rawURL)
	if err != nil {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.seen.TestString(url) {
		return false
	}
	f.seen.AddString(url)

	f.queue = append(f.queue, agentkb.QueuedURL{URL: url, Depth: depth})
	return true
}

// Pop dequeues the oldest URL (breadth-first order).
// The bool result is false if the frontier is empty.
func (f *Frontier) Pop() (agentkb.QueuedURL, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return agentkb.QueuedURL{}, false
	}
	next := f.queue[0]
	f.queue = f.queue[1:]
	return next, true
}

// Len returns the number of URLs waiting in the queue.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Seen returns true if the URL has been queued or processed.
func (f *Frontier) Seen(rawURL string) bool {
	url, err := agentkb.NormalizeURL(rawURL)
	if err != nil {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen.TestString(url)
}
