// Package scraper extracts page content through a third-party extraction
// API, with a local fallback extractor.
package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/emitto/internal/common"
	"github.com/ternarybob/emitto/internal/httpclient"
	"github.com/ternarybob/emitto/internal/models"
	"github.com/ternarybob/emitto/internal/retry"
	"golang.org/x/time/rate"
)

// APIError represents an error response from the extraction API
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("extraction API error: %s (status %d, url: %s)", e.Message, e.StatusCode, e.URL)
}

// HTTPStatus lets the retry layer classify the error by status code
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// scrapeRequest is the extraction API request payload
type scrapeRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
}

// scrapeResponse is the extraction API response payload
type scrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    struct {
		Markdown string `json:"markdown"`
		Metadata struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Author      string `json:"author"`
			Language    string `json:"language"`
		} `json:"metadata"`
	} `json:"data"`
}

// Client calls the content-extraction API
type Client struct {
	config     *common.ScraperConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	validate   *validator.Validate
	fallback   *FallbackExtractor
	logger     arbor.ILogger
}

// NewClient creates an extraction API client
func NewClient(config *common.ScraperConfig, logger arbor.ILogger) *Client {
	return &Client{
		config:     config,
		httpClient: httpclient.NewDefaultHTTPClient(config.RequestTimeout.Std()),
		limiter:    rate.NewLimiter(rate.Limit(config.RateLimit), config.RateLimit),
		validate:   validator.New(),
		fallback:   NewFallbackExtractor(config.RequestTimeout.Std(), logger),
		logger:     logger,
	}
}

// Scrape extracts one page. API failures are retried on transient errors;
// when the API is exhausted and the fallback is enabled, a local extraction
// attempt is made before giving up.
func (c *Client) Scrape(ctx context.Context, pageURL string) (*models.Article, error) {
	article, err := retry.DoTransient(ctx, c.logger, retry.APIPreset, "content extraction", func(ctx context.Context) (*models.Article, error) {
		return c.scrapeOnce(ctx, pageURL)
	})
	if err == nil {
		return article, nil
	}

	if !c.config.EnableFallback {
		return nil, err
	}

	c.logger.Warn().
		Err(err).
		Str("url", pageURL).
		Msg("Extraction API failed, using local fallback")

	fallbackArticle, fallbackErr := c.fallback.Extract(ctx, pageURL)
	if fallbackErr != nil {
		// Report the API error; the fallback failure goes to the log
		c.logger.Warn().Err(fallbackErr).Str("url", pageURL).Msg("Local fallback extraction failed")
		return nil, err
	}

	return fallbackArticle, nil
}

func (c *Client) scrapeOnce(ctx context.Context, pageURL string) (*models.Article, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	payload, err := json.Marshal(scrapeRequest{
		URL:     pageURL,
		Formats: []string{"markdown"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scrape request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/scrape", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build scrape request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrape request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read scrape response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status %d", resp.StatusCode),
			URL:        pageURL,
		}
	}

	var parsed scrapeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse scrape response: %w", err)
	}

	if !parsed.Success {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    parsed.Error,
			URL:        pageURL,
		}
	}

	article := &models.Article{
		URL:         pageURL,
		Title:       parsed.Data.Metadata.Title,
		Description: parsed.Data.Metadata.Description,
		Markdown:    parsed.Data.Markdown,
		Author:      parsed.Data.Metadata.Author,
		Source:      "api",
		FetchedAt:   time.Now(),
	}

	if err := c.validate.Struct(article); err != nil {
		return nil, fmt.Errorf("extraction API returned incomplete content for %s: %w", pageURL, err)
	}

	return article, nil
}
