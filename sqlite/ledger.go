package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/iamtutumo/agentkb"
)

// Compile-time interface verification.
var _ agentkb.Ledger = (*LedgerService)(nil)

// LedgerService implements agentkb.Ledger using SQLite. It records one row
// per page or artifact outcome so batch operations can report exact
// succeeded/failed counts with reasons.
type LedgerService struct {
	db *DB
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(db *DB) *LedgerService {
	return &LedgerService{db: db}
}

// StartSession registers a session before any work begins.
func (s *LedgerService) StartSession(ctx context.Context, session *agentkb.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}

	started := session.Started
	if started.IsZero() {
		started = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, root_url, max_depth, page_cap, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, session.ID, session.RootURL, session.MaxDepth, session.PageCap,
		started.UTC().Format(time.RFC3339))

	return err
}

// RecordItem appends one item outcome.
func (s *LedgerService) RecordItem(ctx context.Context, sessionID, source string, depth int, status agentkb.PageStatus, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_items (id, session_id, source, depth, status, reason, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, uuid.New().String(), sessionID, source, depth, string(status), reason,
		time.Now().UTC().Format(time.RFC3339))

	return err
}

// Summary returns the aggregated outcome counts for a session, with the
// failure reasons in recording order. Returns ENOTFOUND for an unknown
// session.
func (s *LedgerService) Summary(ctx context.Context, sessionID string) (*agentkb.LedgerSummary, error) {
	var exists string
	err := s.db.QueryRowContext(ctx, "SELECT id FROM sessions WHERE id = ?", sessionID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, agentkb.Errorf(agentkb.ENOTFOUND, "session %q not found", sessionID)
	}
	if err != nil {
		return nil, err
	}

	summary := &agentkb.LedgerSummary{
		SessionID: sessionID,
		Counts:    make(map[agentkb.PageStatus]int),
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM session_items
		WHERE session_id = ?
		GROUP BY status
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		summary.Counts[agentkb.PageStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	failures, err := s.db.QueryContext(ctx, `
		SELECT source, reason FROM session_items
		WHERE session_id = ? AND reason != ''
		ORDER BY rowid
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer failures.Close()

	for failures.Next() {
		var failure agentkb.LedgerFailure
		if err := failures.Scan(&failure.Source, &failure.Reason); err != nil {
			return nil, err
		}
		summary.Failures = append(summary.Failures, failure)
	}

	return summary, failures.Err()
}

// ListSessions returns all sessions, oldest first. Session IDs are
// timestamps so ordering by id is chronological.
func (s *LedgerService) ListSessions(ctx context.Context) ([]*agentkb.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, root_url, max_depth, page_cap, started_at FROM sessions
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*agentkb.Session
	for rows.Next() {
		var session agentkb.Session
		var started string
		if err := rows.Scan(&session.ID, &session.RootURL, &session.MaxDepth, &session.PageCap, &started); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, started); err == nil {
			session.Started = t
		}
		sessions = append(sessions, &session)
	}

	return sessions, rows.Err()
}
