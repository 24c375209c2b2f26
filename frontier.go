package agentkb

// QueuedURL is one pending crawl target with its discovery depth.
type QueuedURL struct {
	URL   string
	Depth int
}

// Frontier manages the breadth-first crawl queue with deduplication.
// URLs are normalized before deduplication, so variants differing only by
// fragment, query, or trailing slash count as one.
type Frontier interface {
	// Push enqueues a URL at the given depth.
	// Returns false if the URL has already been seen.
	Push(url string, depth int) bool

	// Pop dequeues the oldest URL (FIFO).
	// Returns false if the frontier is empty.
	Pop() (QueuedURL, bool)

	// Len returns the number of URLs waiting in the queue.
	Len() int

	// Seen returns true if the URL has been queued or processed.
	Seen(url string) bool
}
