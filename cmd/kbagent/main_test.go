package main_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/iamtutumo/agentkb"
	main "github.com/iamtutumo/agentkb/cmd/kbagent"
	"github.com/iamtutumo/agentkb/crawl"
	"github.com/iamtutumo/agentkb/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionIDRe = regexp.MustCompile(`Session (\d{8}_\d{6})`)

// newTestMain returns a Main wired to temp storage that may crawl
// localhost test servers.
func newTestMain(t *testing.T) *main.Main {
	t.Helper()

	dir := t.TempDir()
	m := main.NewMain()
	m.DBPath = filepath.Join(dir, "kbagent.db")
	m.DataDir = filepath.Join(dir, "sessions")
	m.Guard = &crawl.Guard{AllowPrivate: true}
	return m
}

// newTestSite serves a small two-page site, closed on test cleanup.
func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Acme Widgets</title></head>
<body>
<main>
<h1>Welcome to Acme Widgets</h1>
<p>We sell durable widgets for home and industry, shipped worldwide within three business days.</p>
<p>Browse our <a href="/pricing">pricing page</a> for current plans and volume discounts.</p>
</main>
</body>
</html>`))
	})
	mux.HandleFunc("/pricing", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Pricing - Acme Widgets</title></head>
<body>
<article>
<h1>Pricing Plans</h1>
<p>The starter plan costs ten dollars per month and includes basic email support.</p>
<p>The business plan costs fifty dollars per month and adds priority phone support.</p>
</article>
</body>
</html>`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// scriptedCompleter answers extraction, synthesis, and system-prompt
// requests with fixed valid responses.
func scriptedCompleter() *mock.Completer {
	return &mock.Completer{
		CompleteFn: func(ctx context.Context, req agentkb.CompletionRequest) (string, error) {
			if !req.JSON {
				return "# Personality\nA helpful customer service agent for Acme Widgets.", nil
			}
			if strings.Contains(req.Prompt, "<document>") {
				return `{
					"title": "Acme Widgets",
					"sections": [
						{"heading": "Overview", "body": "Acme sells durable widgets with worldwide shipping.", "contentType": "service"}
					],
					"metadata": {"business_name": "Acme Widgets"}
				}`, nil
			}
			return `{
				"topics": [
					{
						"title": "Acme Widgets",
						"sections": [
							{"heading": "Overview", "body": "Acme Widgets sells durable widgets, shipped worldwide within three business days."}
						]
					}
				],
				"summary": "Covered the Acme Widgets overview."
			}`, nil
		},
	}
}

func run(t *testing.T, m *main.Main, args ...string) (string, string, error) {
	t.Helper()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	err := m.Run(context.Background(), args, stdout, stderr)
	return stdout.String(), stderr.String(), err
}

func sessionIDFrom(t *testing.T, stdout string) string {
	t.Helper()

	match := sessionIDRe.FindStringSubmatch(stdout)
	require.NotNil(t, match, "no session ID in output: %s", stdout)
	return match[1]
}

func TestCmdCrawl(t *testing.T) {
	t.Parallel()

	t.Run("crawls a site into a new session", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t)
		m := newTestMain(t)

		stdout, _, err := run(t, m, "crawl", srv.URL, "--rps=0")
		require.NoError(t, err)

		assert.Contains(t, stdout, "Saved 2 pages")
		assert.Contains(t, stdout, "2 fetched, 0 failed, 0 blocked")

		id := sessionIDFrom(t, stdout)
		entries, err := os.ReadDir(filepath.Join(m.DataDir, id))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(entries), 2)
	})

	t.Run("fails when the root URL is unreachable", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t)
		m := newTestMain(t)

		_, stderr, err := run(t, m, "crawl", srv.URL+"/missing", "--rps=0")
		require.Error(t, err)
		assert.Equal(t, agentkb.ECRAWLABORTED, agentkb.ErrorCode(err))
		assert.Contains(t, stderr, "error:")
	})
}

func TestCmdUpload(t *testing.T) {
	t.Parallel()

	t.Run("stores parsed documents as session artifacts", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		hours := filepath.Join(dir, "hours.txt")
		require.NoError(t, os.WriteFile(hours, []byte("We are open Monday through Friday, nine to five."), 0644))
		refunds := filepath.Join(dir, "refunds.md")
		require.NoError(t, os.WriteFile(refunds, []byte("# Refunds\n\nFull refund within thirty days."), 0644))

		m := newTestMain(t)
		stdout, _, err := run(t, m, "upload", hours, refunds)
		require.NoError(t, err)

		assert.Contains(t, stdout, "Saved 2 of 2 files")

		id := sessionIDFrom(t, stdout)
		entries, err := os.ReadDir(filepath.Join(m.DataDir, id))
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("skips unsupported files but keeps the rest", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		good := filepath.Join(dir, "faq.txt")
		require.NoError(t, os.WriteFile(good, []byte("Shipping takes three days."), 0644))
		bad := filepath.Join(dir, "brochure.pdf")
		require.NoError(t, os.WriteFile(bad, []byte("%PDF-1.4"), 0644))

		m := newTestMain(t)
		stdout, stderr, err := run(t, m, "upload", good, bad)
		require.NoError(t, err)

		assert.Contains(t, stdout, "Saved 1 of 2 files")
		assert.Contains(t, stderr, "brochure.pdf")
	})
}

func TestCmdExtractAndSynthesize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	doc := filepath.Join(dir, "about.txt")
	require.NoError(t, os.WriteFile(doc, []byte("Acme sells durable widgets with worldwide shipping."), 0644))

	m := newTestMain(t)
	m.Completer = scriptedCompleter()

	stdout, _, err := run(t, m, "upload", doc)
	require.NoError(t, err)
	id := sessionIDFrom(t, stdout)

	stdout, _, err = run(t, m, "extract", id)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Extracted 1 of 1 pages")

	stdout, _, err = run(t, m, "synthesize", id)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Merged 1 records into 1 topics")
	assert.Contains(t, stdout, "Knowledge base:")

	// The text rendering sits next to the JSON document.
	textPath := regexp.MustCompile(`Text rendering: (\S+)`).FindStringSubmatch(stdout)
	require.NotNil(t, textPath)
	content, err := os.ReadFile(textPath[1])
	require.NoError(t, err)
	assert.Contains(t, string(content), "ACME WIDGETS")
}

func TestCmdExtract_UnknownSession(t *testing.T) {
	t.Parallel()

	m := newTestMain(t)
	m.Completer = scriptedCompleter()

	_, stderr, err := run(t, m, "extract", "20240101_000000")
	require.Error(t, err)
	assert.Equal(t, agentkb.ENOTFOUND, agentkb.ErrorCode(err))
	assert.Contains(t, stderr, "error:")
}

func TestCmdRun(t *testing.T) {
	t.Parallel()

	srv := newTestSite(t)
	m := newTestMain(t)
	m.Completer = scriptedCompleter()

	stdout, _, err := run(t, m, "run", srv.URL, "--rps=0")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Saved 2 pages")
	assert.Contains(t, stdout, "Extracted 2 of 2 pages")
	assert.Contains(t, stdout, "Merged 2 records into 1 topics")
	assert.Contains(t, stdout, "Knowledge base:")
}

func TestCmdSessions(t *testing.T) {
	t.Parallel()

	t.Run("lists sessions after a crawl", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t)
		m := newTestMain(t)

		stdout, _, err := run(t, m, "crawl", srv.URL, "--rps=0")
		require.NoError(t, err)
		id := sessionIDFrom(t, stdout)

		stdout, _, err = run(t, m, "sessions")
		require.NoError(t, err)
		assert.Contains(t, stdout, id)
		assert.Contains(t, stdout, srv.URL)
	})

	t.Run("reports when no sessions exist", func(t *testing.T) {
		t.Parallel()

		m := newTestMain(t)
		stdout, _, err := run(t, m, "sessions")
		require.NoError(t, err)
		assert.Contains(t, stdout, "No sessions found")
	})
}

func TestRun_NoCommand(t *testing.T) {
	t.Parallel()

	m := newTestMain(t)
	_, _, err := run(t, m, []string{}...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no command specified")
}
