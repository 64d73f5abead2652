package sitemap

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/emitto/internal/common"
	"github.com/ternarybob/emitto/internal/models"
)

const urlsetXML = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/blog/go-tips</loc><lastmod>2025-02-01</lastmod></url>
  <url><loc>https://example.com/blog/release-notes</loc></url>
  <url><loc>https://example.com/about</loc></url>
</urlset>`

func newTestService(maxURLs int) *Service {
	return NewService(&common.SitemapConfig{
		RequestTimeout: common.Duration(5 * time.Second),
		MaxURLs:        maxURLs,
	}, common.GetLogger())
}

func TestFetchURLsUrlset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, urlsetXML)
	}))
	defer server.Close()

	svc := newTestService(100)
	source := &models.Source{Name: "blog", SitemapURL: server.URL}

	urls, err := svc.FetchURLs(context.Background(), source)
	require.NoError(t, err)
	assert.Len(t, urls, 3)
	assert.Equal(t, "https://example.com/blog/go-tips", urls[0])
}

func TestFetchURLsAppliesFilters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, urlsetXML)
	}))
	defer server.Close()

	svc := newTestService(100)
	source := &models.Source{
		Name:       "blog",
		SitemapURL: server.URL,
		Include:    []string{"/blog/"},
		Exclude:    []string{"release-notes"},
	}

	urls, err := svc.FetchURLs(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/blog/go-tips"}, urls)
}

func TestFetchURLsSitemapIndex(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/child.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, urlsetXML)
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>%s/child.xml</loc></sitemap>
</sitemapindex>`, server.URL)
	})

	svc := newTestService(100)
	source := &models.Source{Name: "blog", SitemapURL: server.URL + "/sitemap.xml"}

	urls, err := svc.FetchURLs(context.Background(), source)
	require.NoError(t, err)
	assert.Len(t, urls, 3)
}

func TestFetchURLsCapsAtMax(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, urlsetXML)
	}))
	defer server.Close()

	svc := newTestService(2)
	source := &models.Source{Name: "blog", SitemapURL: server.URL}

	urls, err := svc.FetchURLs(context.Background(), source)
	require.NoError(t, err)
	assert.Len(t, urls, 2)
}

func TestFetchURLsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	svc := newTestService(100)
	source := &models.Source{Name: "blog", SitemapURL: server.URL}

	_, err := svc.FetchURLs(context.Background(), source)
	assert.Error(t, err)
}

func TestFilterURLs(t *testing.T) {
	urls := []string{
		"https://example.com/blog/a",
		"https://example.com/blog/b",
		"https://example.com/shop/c",
	}

	tests := []struct {
		name    string
		include []string
		exclude []string
		want    []string
	}{
		{"no filters keeps all", nil, nil, urls},
		{"include blog", []string{"/blog/"}, nil, urls[:2]},
		{"exclude shop", nil, []string{"/shop/"}, urls[:2]},
		{"include and exclude", []string{"example.com"}, []string{"/blog/b"}, []string{urls[0], urls[2]}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterURLs(urls, tt.include, tt.exclude)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FilterURLs() = %v, want %v", got, tt.want)
			}
		})
	}
}
