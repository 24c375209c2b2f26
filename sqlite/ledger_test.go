package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/iamtutumo/agentkb"
	"github.com/iamtutumo/agentkb/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MustOpenDB returns an open in-memory database, closed on test cleanup.
func MustOpenDB(tb testing.TB) *sqlite.DB {
	tb.Helper()

	db := sqlite.NewDB(":memory:")
	require.NoError(tb, db.Open())
	tb.Cleanup(func() {
		assert.NoError(tb, db.Close())
	})
	return db
}

func testSession() *agentkb.Session {
	return &agentkb.Session{
		ID:       "20240115_103000",
		RootURL:  "https://example.com",
		MaxDepth: 2,
		PageCap:  100,
		Started:  time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
	}
}

func TestLedgerService(t *testing.T) {
	t.Parallel()

	t.Run("records and summarizes item outcomes", func(t *testing.T) {
		t.Parallel()

		db := MustOpenDB(t)
		ledger := sqlite.NewLedgerService(db)
		ctx := context.Background()

		require.NoError(t, ledger.StartSession(ctx, testSession()))

		require.NoError(t, ledger.RecordItem(ctx, "20240115_103000", "https://example.com", 0, agentkb.StatusFetched, ""))
		require.NoError(t, ledger.RecordItem(ctx, "20240115_103000", "https://example.com/a", 1, agentkb.StatusFetched, ""))
		require.NoError(t, ledger.RecordItem(ctx, "20240115_103000", "https://example.com/broken", 1, agentkb.StatusFailed, "HTTP 500"))
		require.NoError(t, ledger.RecordItem(ctx, "20240115_103000", "https://internal.example.com", 1, agentkb.StatusBlocked, "resolves to private address"))
		require.NoError(t, ledger.RecordItem(ctx, "20240115_103000", "https://other.com/x", 1, agentkb.StatusCrossDomain, ""))

		summary, err := ledger.Summary(ctx, "20240115_103000")
		require.NoError(t, err)

		assert.Equal(t, "20240115_103000", summary.SessionID)
		assert.Equal(t, 2, summary.Counts[agentkb.StatusFetched])
		assert.Equal(t, 1, summary.Counts[agentkb.StatusFailed])
		assert.Equal(t, 1, summary.Counts[agentkb.StatusBlocked])
		assert.Equal(t, 1, summary.Counts[agentkb.StatusCrossDomain])

		require.Len(t, summary.Failures, 2)
		assert.Equal(t, "https://example.com/broken", summary.Failures[0].Source)
		assert.Equal(t, "HTTP 500", summary.Failures[0].Reason)
		assert.Equal(t, "https://internal.example.com", summary.Failures[1].Source)
	})

	t.Run("summary of session with no items has zero counts", func(t *testing.T) {
		t.Parallel()

		db := MustOpenDB(t)
		ledger := sqlite.NewLedgerService(db)
		ctx := context.Background()

		require.NoError(t, ledger.StartSession(ctx, testSession()))

		summary, err := ledger.Summary(ctx, "20240115_103000")
		require.NoError(t, err)
		assert.Empty(t, summary.Counts)
		assert.Empty(t, summary.Failures)
	})

	t.Run("returns ENOTFOUND for unknown session", func(t *testing.T) {
		t.Parallel()

		db := MustOpenDB(t)
		ledger := sqlite.NewLedgerService(db)

		_, err := ledger.Summary(context.Background(), "20990101_000000")
		require.Error(t, err)
		assert.Equal(t, agentkb.ENOTFOUND, agentkb.ErrorCode(err))
	})

	t.Run("rejects duplicate session registration", func(t *testing.T) {
		t.Parallel()

		db := MustOpenDB(t)
		ledger := sqlite.NewLedgerService(db)
		ctx := context.Background()

		require.NoError(t, ledger.StartSession(ctx, testSession()))
		require.Error(t, ledger.StartSession(ctx, testSession()))
	})

	t.Run("rejects invalid session", func(t *testing.T) {
		t.Parallel()

		db := MustOpenDB(t)
		ledger := sqlite.NewLedgerService(db)

		err := ledger.StartSession(context.Background(), &agentkb.Session{ID: "", PageCap: 1})
		require.Error(t, err)
		assert.Equal(t, agentkb.EINVALID, agentkb.ErrorCode(err))
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		t.Parallel()

		db := MustOpenDB(t)
		ledger := sqlite.NewLedgerService(db)
		ctx := context.Background()

		first := testSession()
		second := testSession()
		second.ID = "20240116_090000"

		require.NoError(t, ledger.StartSession(ctx, first))
		require.NoError(t, ledger.StartSession(ctx, second))

		require.NoError(t, ledger.RecordItem(ctx, first.ID, "https://example.com", 0, agentkb.StatusFetched, ""))

		summary, err := ledger.Summary(ctx, second.ID)
		require.NoError(t, err)
		assert.Empty(t, summary.Counts)
	})
}

func TestLedgerService_ListSessions(t *testing.T) {
	t.Parallel()

	t.Run("returns sessions oldest first", func(t *testing.T) {
		t.Parallel()

		db := MustOpenDB(t)
		ledger := sqlite.NewLedgerService(db)
		ctx := context.Background()

		newer := testSession()
		newer.ID = "20240116_090000"
		newer.Started = time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC)

		require.NoError(t, ledger.StartSession(ctx, newer))
		require.NoError(t, ledger.StartSession(ctx, testSession()))

		sessions, err := ledger.ListSessions(ctx)
		require.NoError(t, err)
		require.Len(t, sessions, 2)
		assert.Equal(t, "20240115_103000", sessions[0].ID)
		assert.Equal(t, "https://example.com", sessions[0].RootURL)
		assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), sessions[0].Started)
		assert.Equal(t, "20240116_090000", sessions[1].ID)
	})

	t.Run("returns empty list when no sessions exist", func(t *testing.T) {
		t.Parallel()

		db := MustOpenDB(t)
		ledger := sqlite.NewLedgerService(db)

		sessions, err := ledger.ListSessions(context.Background())
		require.NoError(t, err)
		assert.Empty(t, sessions)
	})
}
