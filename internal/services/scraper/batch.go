package scraper

import (
	"context"
	"sync"
	"time"

	"github.com/phuslu/log"
	"github.com/ternarybob/emitto/internal/models"
)

// BatchStats contains statistics about a batch scrape operation
type BatchStats struct {
	TotalURLs     int
	SuccessCount  int
	ErrorCount    int
	FallbackCount int // Pages extracted by the local fallback
	Duration      time.Duration
	GroupCount    int
}

// BatchResult contains the results of a batch scrape operation
type BatchResult struct {
	Articles []*models.Article
	Errors   []URLError
	Stats    BatchStats
}

// URLError represents an error scraping a specific URL
type URLError struct {
	URL   string
	Error error
}

// BatchScraper scrapes URLs in bounded concurrent groups. Each group runs
// BatchSize requests in parallel, waits for all of them to settle, then
// pauses before the next group so the extraction API is not flooded.
type BatchScraper struct {
	client     *Client
	groupSize  int
	groupPause time.Duration
}

// NewBatchScraper creates a batch scraper over an extraction client
func NewBatchScraper(client *Client) *BatchScraper {
	groupSize := client.config.BatchSize
	if groupSize <= 0 {
		groupSize = 3
	}
	return &BatchScraper{
		client:     client,
		groupSize:  groupSize,
		groupPause: client.config.BatchPause.Std(),
	}
}

// ScrapeAll scrapes every URL and returns the articles that succeeded.
// Individual failures are collected, not fatal; only context cancellation
// stops the run early.
func (b *BatchScraper) ScrapeAll(ctx context.Context, urls []string) *BatchResult {
	startTime := time.Now()

	result := &BatchResult{
		Articles: make([]*models.Article, 0, len(urls)),
		Errors:   make([]URLError, 0),
		Stats: BatchStats{
			TotalURLs: len(urls),
		},
	}

	if len(urls) == 0 {
		result.Stats.Duration = time.Since(startTime)
		return result
	}

	groups := b.splitIntoGroups(urls)
	result.Stats.GroupCount = len(groups)

	log.Info().
		Int("total_urls", len(urls)).
		Int("groups", len(groups)).
		Int("group_size", b.groupSize).
		Msg("Starting batch scrape")

	for groupIdx, group := range groups {
		select {
		case <-ctx.Done():
			result.Errors = append(result.Errors, URLError{
				URL:   "batch",
				Error: ctx.Err(),
			})
			result.Stats.ErrorCount = len(result.Errors)
			result.Stats.Duration = time.Since(startTime)
			return result
		default:
		}

		articles, errs := b.scrapeGroup(ctx, group)
		result.Articles = append(result.Articles, articles...)
		result.Errors = append(result.Errors, errs...)

		log.Debug().
			Int("group", groupIdx+1).
			Int("success", len(articles)).
			Int("errors", len(errs)).
			Msg("Scrape group complete")

		// Pause between groups, not after the last one
		if b.groupPause > 0 && groupIdx < len(groups)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(b.groupPause):
			}
		}
	}

	result.Stats.SuccessCount = len(result.Articles)
	result.Stats.ErrorCount = len(result.Errors)
	for _, article := range result.Articles {
		if article.Source == "fallback" {
			result.Stats.FallbackCount++
		}
	}
	result.Stats.Duration = time.Since(startTime)

	log.Info().
		Int("success", result.Stats.SuccessCount).
		Int("errors", result.Stats.ErrorCount).
		Int("fallback", result.Stats.FallbackCount).
		Dur("duration", result.Stats.Duration).
		Msg("Batch scrape complete")

	return result
}

// scrapeGroup runs one group of concurrent scrapes and waits for all of
// them to settle
func (b *BatchScraper) scrapeGroup(ctx context.Context, urls []string) ([]*models.Article, []URLError) {
	type outcome struct {
		article *models.Article
		err     *URLError
	}

	results := make(chan outcome, len(urls))
	var wg sync.WaitGroup

	for _, pageURL := range urls {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()

			article, err := b.client.Scrape(ctx, u)
			if err != nil {
				results <- outcome{err: &URLError{URL: u, Error: err}}
				return
			}
			results <- outcome{article: article}
		}(pageURL)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var articles []*models.Article
	var errs []URLError
	for r := range results {
		if r.err != nil {
			errs = append(errs, *r.err)
		} else if r.article != nil {
			articles = append(articles, r.article)
		}
	}

	return articles, errs
}

func (b *BatchScraper) splitIntoGroups(urls []string) [][]string {
	if len(urls) == 0 {
		return nil
	}

	numGroups := (len(urls) + b.groupSize - 1) / b.groupSize
	groups := make([][]string, 0, numGroups)

	for i := 0; i < len(urls); i += b.groupSize {
		end := i + b.groupSize
		if end > len(urls) {
			end = len(urls)
		}
		groups = append(groups, urls[i:end])
	}

	return groups
}
