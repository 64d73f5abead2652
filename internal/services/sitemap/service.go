// Package sitemap fetches and filters website sitemaps.
package sitemap

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/emitto/internal/common"
	"github.com/ternarybob/emitto/internal/httpclient"
	"github.com/ternarybob/emitto/internal/models"
	"github.com/ternarybob/emitto/internal/retry"
)

// maxBodySize caps sitemap response bodies at 10MB
const maxBodySize = 10 * 1024 * 1024

// urlSet is the <urlset> sitemap document
type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	URLs    []urlEntry `xml:"url"`
}

type urlEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

// sitemapIndex is the <sitemapindex> document pointing at child sitemaps
type sitemapIndex struct {
	XMLName  xml.Name       `xml:"sitemapindex"`
	Sitemaps []sitemapEntry `xml:"sitemap"`
}

type sitemapEntry struct {
	Loc string `xml:"loc"`
}

// Service fetches sitemap URLs for configured sources
type Service struct {
	config *common.SitemapConfig
	client *http.Client
	logger arbor.ILogger
}

// NewService creates a sitemap service
func NewService(config *common.SitemapConfig, logger arbor.ILogger) *Service {
	return &Service{
		config: config,
		client: httpclient.NewDefaultHTTPClient(config.RequestTimeout.Std()),
		logger: logger,
	}
}

// FetchURLs fetches the source's sitemap, follows one level of sitemapindex
// children, applies the source's include/exclude filters and caps the result
// at the configured maximum.
func (s *Service) FetchURLs(ctx context.Context, source *models.Source) ([]string, error) {
	urls, err := retry.DoTransient(ctx, s.logger, retry.APIPreset, "sitemap fetch", func(ctx context.Context) ([]string, error) {
		return s.fetch(ctx, source.SitemapURL, true)
	})
	if err != nil {
		return nil, err
	}

	filtered := FilterURLs(urls, source.Include, source.Exclude)
	if len(filtered) > s.config.MaxURLs {
		filtered = filtered[:s.config.MaxURLs]
	}

	s.logger.Info().
		Str("source", source.Name).
		Int("total", len(urls)).
		Int("after_filter", len(filtered)).
		Msg("Sitemap fetched")

	return filtered, nil
}

// fetch downloads and parses one sitemap document. followIndex limits
// sitemapindex recursion to a single level.
func (s *Service) fetch(ctx context.Context, sitemapURL string, followIndex bool) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build sitemap request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sitemap %s: %w", sitemapURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sitemap %s returned status %d", sitemapURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read sitemap body: %w", err)
	}

	// Try <urlset> first, fall back to <sitemapindex>
	var set urlSet
	if err := xml.Unmarshal(body, &set); err == nil && len(set.URLs) > 0 {
		urls := make([]string, 0, len(set.URLs))
		for _, entry := range set.URLs {
			loc := strings.TrimSpace(entry.Loc)
			if loc != "" {
				urls = append(urls, loc)
			}
		}
		return urls, nil
	}

	var index sitemapIndex
	if err := xml.Unmarshal(body, &index); err != nil || len(index.Sitemaps) == 0 {
		return nil, fmt.Errorf("sitemap %s is neither a urlset nor a sitemapindex", sitemapURL)
	}

	if !followIndex {
		return nil, fmt.Errorf("sitemap %s: nested sitemapindex not supported", sitemapURL)
	}

	var urls []string
	for _, child := range index.Sitemaps {
		loc := strings.TrimSpace(child.Loc)
		if loc == "" {
			continue
		}
		childURLs, err := s.fetch(ctx, loc, false)
		if err != nil {
			s.logger.Warn().Err(err).Str("sitemap", loc).Msg("Skipping child sitemap")
			continue
		}
		urls = append(urls, childURLs...)
		if len(urls) >= s.config.MaxURLs {
			break
		}
	}

	return urls, nil
}

// FilterURLs applies include/exclude substring filters. An empty include list
// keeps everything; any exclude match drops the URL.
func FilterURLs(urls, include, exclude []string) []string {
	filtered := make([]string, 0, len(urls))

	for _, u := range urls {
		if len(include) > 0 {
			matched := false
			for _, pattern := range include {
				if strings.Contains(u, pattern) {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}

		excluded := false
		for _, pattern := range exclude {
			if strings.Contains(u, pattern) {
				excluded = true
				break
			}
		}
		if excluded {
			continue
		}

		filtered = append(filtered, u)
	}

	return filtered
}
