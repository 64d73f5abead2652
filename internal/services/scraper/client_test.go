package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/emitto/internal/common"
)

func newTestClient(baseURL string, enableFallback bool) *Client {
	return NewClient(&common.ScraperConfig{
		BaseURL:        baseURL,
		APIKey:         "test-key",
		RequestTimeout: common.Duration(5 * time.Second),
		RateLimit:      100,
		BatchSize:      2,
		BatchPause:     0,
		EnableFallback: enableFallback,
	}, common.GetLogger())
}

func scrapeSuccessHandler(markdown, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := scrapeResponse{Success: true}
		resp.Data.Markdown = markdown
		resp.Data.Metadata.Title = title
		json.NewEncoder(w).Encode(resp)
	}
}

func TestScrapeSuccess(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		var req scrapeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://example.com/post", req.URL)
		assert.Contains(t, req.Formats, "markdown")

		scrapeSuccessHandler("# Hello\n\nBody text.", "Hello")(w, r)
	}))
	defer server.Close()

	client := newTestClient(server.URL, false)

	article, err := client.Scrape(context.Background(), "https://example.com/post")
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "Hello", article.Title)
	assert.Equal(t, "# Hello\n\nBody text.", article.Markdown)
	assert.Equal(t, "api", article.Source)
	assert.WithinDuration(t, time.Now(), article.FetchedAt, 5*time.Second)
}

func TestScrapeAPIErrorNoFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestClient(server.URL, false)

	_, err := client.Scrape(context.Background(), "https://example.com/post")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestScrapeFallsBackWhenAPIFails(t *testing.T) {
	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer apiServer.Close()

	pageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Fallback Page</title></head>
<body><article><h1>Fallback Page</h1><p>Rendered locally.</p></article></body></html>`)
	}))
	defer pageServer.Close()

	client := newTestClient(apiServer.URL, true)

	article, err := client.Scrape(context.Background(), pageServer.URL)
	require.NoError(t, err)
	assert.Equal(t, "fallback", article.Source)
	assert.Equal(t, "Fallback Page", article.Title)
	assert.Contains(t, article.Markdown, "Rendered locally")
}

func TestScrapeRetriesTransientStatus(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		scrapeSuccessHandler("Recovered content", "Recovered")(w, r)
	}))
	defer server.Close()

	client := newTestClient(server.URL, false)

	article, err := client.Scrape(context.Background(), "https://example.com/post")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, "Recovered", article.Title)
}

func TestScrapeRetriesRateLimitedStatus(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		scrapeSuccessHandler("Recovered content", "Recovered")(w, r)
	}))
	defer server.Close()

	client := newTestClient(server.URL, false)

	article, err := client.Scrape(context.Background(), "https://example.com/post")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, "Recovered", article.Title)
}

func TestScrapeRejectsIncompleteResponse(t *testing.T) {
	// Missing title fails validation
	server := httptest.NewServer(scrapeSuccessHandler("Some markdown", ""))
	defer server.Close()

	client := newTestClient(server.URL, false)

	_, err := client.Scrape(context.Background(), "https://example.com/post")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incomplete content")
}
