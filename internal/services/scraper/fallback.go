package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/emitto/internal/httpclient"
	"github.com/ternarybob/emitto/internal/models"
)

const maxFallbackBodySize = 10 * 1024 * 1024 // 10MB

// contentSelectors are tried in order; the first match wins
var contentSelectors = []string{
	"article",
	"main",
	"[role=main]",
	".post-content",
	".entry-content",
	"#content",
}

// FallbackExtractor fetches a page directly and extracts its content
// locally when the extraction API is unavailable.
type FallbackExtractor struct {
	httpClient *http.Client
	converter  *md.Converter
	logger     arbor.ILogger
}

// NewFallbackExtractor creates a local content extractor
func NewFallbackExtractor(timeout time.Duration, logger arbor.ILogger) *FallbackExtractor {
	converter := md.NewConverter("", true, nil)
	return &FallbackExtractor{
		httpClient: httpclient.NewDefaultHTTPClient(timeout),
		converter:  converter,
		logger:     logger,
	}
}

// Extract fetches the page and converts its main content to markdown
func (f *FallbackExtractor) Extract(ctx context.Context, pageURL string) (*models.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build page request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; emitto/1.0)")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page %s returned status %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxFallbackBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page %s: %w", pageURL, err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && og != "" {
		title = og
	}

	description := ""
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		description = strings.TrimSpace(desc)
	}

	content := f.selectContent(doc)
	if content == nil {
		return nil, fmt.Errorf("no content found in page %s", pageURL)
	}

	// Strip elements that never carry article text
	content.Find("script, style, nav, header, footer, aside").Remove()

	html, err := content.Html()
	if err != nil {
		return nil, fmt.Errorf("failed to render content of %s: %w", pageURL, err)
	}

	markdown, err := f.converter.ConvertString(html)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s to markdown: %w", pageURL, err)
	}

	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return nil, fmt.Errorf("page %s produced no text content", pageURL)
	}

	f.logger.Debug().
		Str("url", pageURL).
		Int("markdown_length", len(markdown)).
		Msg("Extracted content with local fallback")

	return &models.Article{
		URL:         pageURL,
		Title:       title,
		Description: description,
		Markdown:    markdown,
		Source:      "fallback",
		FetchedAt:   time.Now(),
	}, nil
}

func (f *FallbackExtractor) selectContent(doc *goquery.Document) *goquery.Selection {
	for _, selector := range contentSelectors {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			return sel
		}
	}
	if body := doc.Find("body").First(); body.Length() > 0 {
		return body
	}
	return nil
}
