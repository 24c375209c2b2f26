package agentkb

import "context"

// PageStatus records how a single page fared during a crawl or extraction
// batch.
type PageStatus string

// Page outcome statuses.
const (
	StatusFetched     PageStatus = "fetched"
	StatusFailed      PageStatus = "failed"
	StatusBlocked     PageStatus = "blocked"      // SSRF guard rejected the URL
	StatusCrossDomain PageStatus = "cross_domain" // recorded but not fetched
	StatusExtracted   PageStatus = "extracted"
)

// LedgerSummary aggregates per-item outcomes for user-visible reporting.
// Batch operations always report succeeded/failed counts with reasons,
// never a silent partial success.
type LedgerSummary struct {
	SessionID string
	Counts    map[PageStatus]int
	Failures  []LedgerFailure
}

// LedgerFailure describes one failed item.
type LedgerFailure struct {
	Source string
	Reason string
}

// Ledger persists per-session, per-item outcomes.
type Ledger interface {
	// StartSession registers a session before any work begins.
	StartSession(ctx context.Context, session *Session) error

	// RecordItem appends one item outcome. reason is empty unless the
	// status is a failure.
	RecordItem(ctx context.Context, sessionID, source string, depth int, status PageStatus, reason string) error

	// Summary returns the aggregated outcome counts for a session.
	Summary(ctx context.Context, sessionID string) (*LedgerSummary, error)

	// ListSessions returns all known sessions, oldest first.
	ListSessions(ctx context.Context) ([]*Session, error)
}
