package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iamtutumo/agentkb"
	kbhttp "github.com/iamtutumo/agentkb/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_returns_page_body(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	f := kbhttp.NewFetcher()
	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, body, "hello")
}

func TestFetcher_rejects_non_2xx_status(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := kbhttp.NewFetcher()
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.Equal(t, agentkb.EFETCH, agentkb.ErrorCode(err))
	assert.Contains(t, agentkb.ErrorMessage(err), "HTTP 404")
}

func TestFetcher_rejects_binary_content_type(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	f := kbhttp.NewFetcher()
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.Equal(t, agentkb.EFETCH, agentkb.ErrorCode(err))
	assert.Contains(t, agentkb.ErrorMessage(err), "unsupported content type")
}

func TestFetcher_rejects_oversized_body(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer srv.Close()

	f := kbhttp.NewFetcher(kbhttp.WithMaxBodySize(1024))
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.Equal(t, agentkb.EFETCH, agentkb.ErrorCode(err))
	assert.Contains(t, agentkb.ErrorMessage(err), "exceeds 1024 bytes")
}

func TestFetcher_times_out_on_slow_server(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	f := kbhttp.NewFetcher(kbhttp.WithTimeout(20 * time.Millisecond))
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.Equal(t, agentkb.EFETCH, agentkb.ErrorCode(err))
}

func TestFetcher_applies_redirect_policy(t *testing.T) {
	t.Parallel()

	var target *httptest.Server
	target = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL+"/next", http.StatusFound)
	}))
	defer target.Close()

	blocked := func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	f := kbhttp.NewFetcher(kbhttp.WithRedirectPolicy(blocked))
	_, err := f.Fetch(context.Background(), target.URL)
	require.Error(t, err, "unfollowed redirect surfaces as a non-2xx status")
	assert.Contains(t, agentkb.ErrorMessage(err), "HTTP 302")
}
