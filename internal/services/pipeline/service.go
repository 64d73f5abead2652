// Package pipeline orchestrates one run of the content pipeline:
// sitemap -> scrape -> optimize -> image -> schedule.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/emitto/internal/common"
	"github.com/ternarybob/emitto/internal/interfaces"
	"github.com/ternarybob/emitto/internal/models"
	"github.com/ternarybob/emitto/internal/retry"
	"github.com/ternarybob/emitto/internal/services/imagegen"
	"github.com/ternarybob/emitto/internal/services/scraper"
)

const processedKeyPrefix = "processed:"

// RunResult summarizes one pipeline run
type RunResult struct {
	URLsFound int           `json:"urls_found"`
	Skipped   int           `json:"skipped"`
	Scraped   int           `json:"scraped"`
	Scheduled int           `json:"scheduled"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// SitemapReader lists candidate URLs for a source
type SitemapReader interface {
	FetchURLs(ctx context.Context, source *models.Source) ([]string, error)
}

// ArticleScraper extracts articles for a set of URLs
type ArticleScraper interface {
	ScrapeAll(ctx context.Context, urls []string) *scraper.BatchResult
}

// Optimizer rewrites an article into platform content
type Optimizer interface {
	Optimize(ctx context.Context, article *models.Article) (*models.OptimizedContent, error)
}

// ImageGenerator produces a cover image for a prompt
type ImageGenerator interface {
	Enabled() bool
	Generate(ctx context.Context, prompt string) (*imagegen.GeneratedImage, error)
}

// Publisher schedules a draft post
type Publisher interface {
	Publish(ctx context.Context, post *models.Post, image []byte, imageMIME string) error
}

// Service runs the content pipeline. Items are processed strictly
// sequentially with a fixed delay between them; the only parallel fan-out
// is inside the batch scraper.
type Service struct {
	config    *common.Config
	sitemap   SitemapReader
	scraper   ArticleScraper
	optimizer Optimizer
	images    ImageGenerator
	publisher Publisher
	posts     interfaces.PostStorage
	cache     interfaces.KeyValueStorage
	logger    arbor.ILogger
}

// NewService creates a pipeline service
func NewService(
	config *common.Config,
	sitemapService SitemapReader,
	batchScraper ArticleScraper,
	optimizerService Optimizer,
	imageService ImageGenerator,
	publisherService Publisher,
	posts interfaces.PostStorage,
	cache interfaces.KeyValueStorage,
	logger arbor.ILogger,
) *Service {
	return &Service{
		config:    config,
		sitemap:   sitemapService,
		scraper:   batchScraper,
		optimizer: optimizerService,
		images:    imageService,
		publisher: publisherService,
		posts:     posts,
		cache:     cache,
		logger:    logger,
	}
}

// Run executes one full pipeline pass over every enabled source
func (s *Service) Run(ctx context.Context) (*RunResult, error) {
	startTime := time.Now()
	result := &RunResult{}

	sources, err := models.LoadSources(s.config.Pipeline.SourcesFile)
	if err != nil {
		return nil, err
	}

	var pending []string
	for i := range sources {
		source := &sources[i]
		if !source.IsEnabled() {
			s.logger.Debug().Str("source", source.Name).Msg("Source disabled, skipping")
			continue
		}

		urls, err := s.sitemap.FetchURLs(ctx, source)
		if err != nil {
			s.logger.Warn().Err(err).Str("source", source.Name).Msg("Sitemap fetch failed, skipping source")
			continue
		}
		result.URLsFound += len(urls)

		for _, pageURL := range urls {
			if len(pending) >= s.config.Pipeline.MaxItems {
				break
			}
			processed, err := s.alreadyProcessed(ctx, pageURL)
			if err != nil {
				s.logger.Warn().Err(err).Str("url", pageURL).Msg("Processed check failed, treating as new")
			}
			if processed {
				result.Skipped++
				continue
			}
			pending = append(pending, pageURL)
		}
	}

	if len(pending) == 0 {
		result.Duration = time.Since(startTime)
		s.logger.Info().Int("urls_found", result.URLsFound).Int("skipped", result.Skipped).Msg("Pipeline run: nothing to do")
		return result, nil
	}

	scraped := s.scraper.ScrapeAll(ctx, pending)
	result.Scraped = len(scraped.Articles)
	result.Failed += len(scraped.Errors)

	for i, article := range scraped.Articles {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(startTime)
			return result, err
		}

		if err := s.processArticle(ctx, article); err != nil {
			s.logger.Error().Err(err).Str("url", article.URL).Msg("Pipeline item failed")
			result.Failed++
		} else {
			result.Scheduled++
		}

		if i < len(scraped.Articles)-1 && s.config.Pipeline.ItemDelay.Std() > 0 {
			select {
			case <-ctx.Done():
				result.Duration = time.Since(startTime)
				return result, ctx.Err()
			case <-time.After(s.config.Pipeline.ItemDelay.Std()):
			}
		}
	}

	result.Duration = time.Since(startTime)

	s.logger.Info().
		Int("urls_found", result.URLsFound).
		Int("skipped", result.Skipped).
		Int("scraped", result.Scraped).
		Int("scheduled", result.Scheduled).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("Pipeline run complete")

	return result, nil
}

// processArticle takes one article through optimize -> image -> schedule,
// persisting the post row through its lifecycle. A stage exhausting its
// retries marks the row failed.
func (s *Service) processArticle(ctx context.Context, article *models.Article) error {
	post := &models.Post{
		ID:        common.NewPostID(),
		SourceURL: article.URL,
		Platform:  s.config.Publisher.Platform,
		Title:     article.Title,
		Status:    models.PostStatusDraft,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if _, err := retry.Do(ctx, s.logger, retry.StoragePreset, "post save", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.posts.SavePost(ctx, post)
	}); err != nil {
		return err
	}

	content, err := s.optimizer.Optimize(ctx, article)
	if err != nil {
		s.markFailed(ctx, post.ID, err)
		return err
	}

	post.Caption = content.Caption
	post.Hashtags = content.Hashtags
	if patchErr := s.posts.PatchPost(ctx, post.ID, &models.PostPatch{
		Caption:  &content.Caption,
		Hashtags: content.Hashtags,
	}); patchErr != nil {
		s.markFailed(ctx, post.ID, patchErr)
		return patchErr
	}

	var imageData []byte
	var imageMIME string
	if s.images != nil && s.images.Enabled() {
		prompt := imagePrompt(article, content)
		image, imgErr := s.images.Generate(ctx, prompt)
		if imgErr != nil {
			// A missing image does not sink the post
			s.logger.Warn().Err(imgErr).Str("post_id", post.ID).Msg("Image generation failed, posting without image")
		} else {
			imageData = image.Data
			imageMIME = image.MIMEType
			if patchErr := s.posts.PatchPost(ctx, post.ID, &models.PostPatch{ImageModel: &image.Model}); patchErr != nil {
				s.logger.Warn().Err(patchErr).Str("post_id", post.ID).Msg("Failed to record image model")
			}
		}
	}

	if s.config.Pipeline.DryRun {
		s.logger.Info().
			Str("post_id", post.ID).
			Str("url", article.URL).
			Msg("Dry run: leaving post in draft")
		return s.markProcessed(ctx, article.URL)
	}

	if err := s.publisher.Publish(ctx, post, imageData, imageMIME); err != nil {
		s.markFailed(ctx, post.ID, err)
		return err
	}

	return s.markProcessed(ctx, article.URL)
}

func (s *Service) alreadyProcessed(ctx context.Context, pageURL string) (bool, error) {
	if _, err := s.cache.Get(ctx, processedKeyPrefix+pageURL); err == nil {
		return true, nil
	} else if !errors.Is(err, interfaces.ErrKeyNotFound) {
		return false, err
	}

	if _, err := s.posts.GetPostBySourceURL(ctx, pageURL); err == nil {
		return true, nil
	} else if !errors.Is(err, interfaces.ErrPostNotFound) {
		return false, err
	}

	return false, nil
}

func (s *Service) markProcessed(ctx context.Context, pageURL string) error {
	err := s.cache.Set(ctx, processedKeyPrefix+pageURL, time.Now().UTC().Format(time.RFC3339), s.config.Pipeline.CacheTTL.Std())
	if err != nil {
		// The post row itself prevents reprocessing; the cache is an optimization
		s.logger.Warn().Err(err).Str("url", pageURL).Msg("Failed to cache processed URL")
	}
	return nil
}

func (s *Service) markFailed(ctx context.Context, postID string, cause error) {
	status := models.PostStatusFailed
	message := cause.Error()
	if err := s.posts.PatchPost(ctx, postID, &models.PostPatch{
		Status: &status,
		Error:  &message,
	}); err != nil {
		s.logger.Error().Err(err).Str("post_id", postID).Msg("Failed to mark post failed")
	}
}

// imagePrompt builds the image generation prompt, preferring the
// optimizer's alt-text suggestion
func imagePrompt(article *models.Article, content *models.OptimizedContent) string {
	if content.AltText != "" {
		return content.AltText
	}
	return fmt.Sprintf("A photo illustrating: %s", article.Title)
}
