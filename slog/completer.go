package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/iamtutumo/agentkb"
)

// Ensure LoggingCompleter implements agentkb.Completer.
var _ agentkb.Completer = (*LoggingCompleter)(nil)

// LoggingCompleter wraps a Completer with per-call logging.
type LoggingCompleter struct {
	next   agentkb.Completer
	logger *slog.Logger
}

// NewLoggingCompleter creates a new LoggingCompleter.
func NewLoggingCompleter(next agentkb.Completer, logger *slog.Logger) *LoggingCompleter {
	return &LoggingCompleter{next: next, logger: logger}
}

// Complete delegates to the wrapped completer and logs the operation.
// Prompt content is never logged, only sizes.
func (c *LoggingCompleter) Complete(ctx context.Context, req agentkb.CompletionRequest) (text string, err error) {
	defer func(begin time.Time) {
		c.logger.Info("llm completion",
			"prompt_bytes", len(req.Prompt),
			"response_bytes", len(text),
			"json", req.JSON,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return c.next.Complete(ctx, req)
}
