// Package app wires the application's services together.
package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/emitto/internal/common"
	"github.com/ternarybob/emitto/internal/httpclient"
	"github.com/ternarybob/emitto/internal/interfaces"
	"github.com/ternarybob/emitto/internal/services/imagegen"
	"github.com/ternarybob/emitto/internal/services/optimizer"
	"github.com/ternarybob/emitto/internal/services/pipeline"
	"github.com/ternarybob/emitto/internal/services/publisher"
	"github.com/ternarybob/emitto/internal/services/scheduler"
	"github.com/ternarybob/emitto/internal/services/scraper"
	"github.com/ternarybob/emitto/internal/services/sitemap"
	"github.com/ternarybob/emitto/internal/storage/badger"
)

// PipelineJobName is the scheduler job the content pipeline runs under; the
// HTTP run endpoint triggers the same job so manual and cron runs serialize.
const PipelineJobName = "content-pipeline"

// App holds the wired application
type App struct {
	Config    *common.Config
	Logger    arbor.ILogger
	DB        *badger.BadgerDB
	Posts     interfaces.PostStorage
	Cache     interfaces.KeyValueStorage
	Pipeline  *pipeline.Service
	Publisher *publisher.Service
	Scheduler *scheduler.Service
	llm       *optimizer.ProviderFactory
}

// New creates and wires the application
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	posts := badger.NewPostStorage(db, logger)
	cache := badger.NewKVStorage(db, logger)

	sitemapService := sitemap.NewService(&config.Sitemap, logger)
	scrapeClient := scraper.NewClient(&config.Scraper, logger)
	batchScraper := scraper.NewBatchScraper(scrapeClient)

	llm := optimizer.NewProviderFactory(&config.Optimizer, logger)
	optimizerService := optimizer.NewService(&config.Optimizer, llm, optimizer.NewDefaultHashtagger(), logger)

	imageService := imagegen.NewService(&config.ImageGen, imagegen.NewSelector(nil, nil), logger)

	publishClient := publisher.NewClient(config.Publisher.BaseURL, config.Publisher.AccessToken,
		publisher.WithLogger(logger),
		publisher.WithRateLimit(config.Publisher.RateLimit),
		publisher.WithHTTPClient(httpclient.NewBearerHTTPClient(config.Publisher.AccessToken, config.Publisher.RequestTimeout.Std())),
	)
	publisherService, err := publisher.NewService(&config.Publisher, publishClient, posts, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	pipelineService := pipeline.NewService(config, sitemapService, batchScraper, optimizerService,
		imageService, publisherService, posts, cache, logger)

	return &App{
		Config:    config,
		Logger:    logger,
		DB:        db,
		Posts:     posts,
		Cache:     cache,
		Pipeline:  pipelineService,
		Publisher: publisherService,
		Scheduler: scheduler.NewService(logger),
		llm:       llm,
	}, nil
}

// StartScheduler registers the pipeline job and starts the cron scheduler.
// Without a configured schedule the job is registered for manual triggering
// only.
func (a *App) StartScheduler() error {
	err := a.Scheduler.RegisterJob(PipelineJobName, a.Config.Pipeline.Schedule,
		"Runs the content pipeline over every enabled source", a.runPipelineJob)
	if err != nil {
		return err
	}

	if a.Config.Pipeline.Schedule == "" {
		a.Logger.Info().Msg("No pipeline schedule configured, manual runs only")
	}

	return a.Scheduler.Start()
}

func (a *App) runPipelineJob() error {
	_, err := a.Pipeline.Run(context.Background())
	return err
}

// Close releases the application's resources
func (a *App) Close() {
	if err := a.Scheduler.Stop(); err != nil {
		a.Logger.Warn().Err(err).Msg("Scheduler stop failed")
	}
	if err := a.llm.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("LLM provider close failed")
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Storage close failed")
	}
}
