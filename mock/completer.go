package mock

import (
	"context"

	"github.com/iamtutumo/agentkb"
)

var _ agentkb.Completer = (*Completer)(nil)

// Completer is a mock implementation of agentkb.Completer.
type Completer struct {
	CompleteFn func(ctx context.Context, req agentkb.CompletionRequest) (string, error)
}

func (c *Completer) Complete(ctx context.Context, req agentkb.CompletionRequest) (string, error) {
	return c.CompleteFn(ctx, req)
}

var _ agentkb.DocumentParser = (*DocumentParser)(nil)

// DocumentParser is a mock implementation of agentkb.DocumentParser.
type DocumentParser struct {
	ParseFn func(data []byte, mimeType string) (string, error)
}

func (p *DocumentParser) Parse(data []byte, mimeType string) (string, error) {
	return p.ParseFn(data, mimeType)
}

var _ agentkb.Ledger = (*Ledger)(nil)

// Ledger is a mock implementation of agentkb.Ledger.
type Ledger struct {
	StartSessionFn func(ctx context.Context, session *agentkb.Session) error
	RecordItemFn   func(ctx context.Context, sessionID, source string, depth int, status agentkb.PageStatus, reason string) error
	SummaryFn      func(ctx context.Context, sessionID string) (*agentkb.LedgerSummary, error)
	ListSessionsFn func(ctx context.Context) ([]*agentkb.Session, error)
}

func (l *Ledger) StartSession(ctx context.Context, session *agentkb.Session) error {
	return l.StartSessionFn(ctx, session)
}

func (l *Ledger) RecordItem(ctx context.Context, sessionID, source string, depth int, status agentkb.PageStatus, reason string) error {
	return l.RecordItemFn(ctx, sessionID, source, depth, status, reason)
}

func (l *Ledger) Summary(ctx context.Context, sessionID string) (*agentkb.LedgerSummary, error) {
	return l.SummaryFn(ctx, sessionID)
}

func (l *Ledger) ListSessions(ctx context.Context) ([]*agentkb.Session, error) {
	return l.ListSessionsFn(ctx)
}
