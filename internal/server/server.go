// Package server exposes the status HTTP surface: health, schedule stats,
// post listing and cancellation, job control and a manual pipeline trigger.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/emitto/internal/common"
	"github.com/ternarybob/emitto/internal/interfaces"
	"github.com/ternarybob/emitto/internal/scheduling"
	"github.com/ternarybob/emitto/internal/services/scheduler"
)

// JobScheduler is the job registry the run and job routes drive. Manual
// pipeline runs go through TriggerJob so they serialize with cron runs.
type JobScheduler interface {
	TriggerJob(name string) error
	EnableJob(name string) error
	DisableJob(name string) error
	JobStatuses() []scheduler.JobStatus
}

// PostScheduler covers the publisher operations exposed over HTTP
type PostScheduler interface {
	Stats(ctx context.Context) (*scheduling.Stats, error)
	Cancel(ctx context.Context, postID string) error
}

// Server manages the HTTP server and routes
type Server struct {
	config      *common.Config
	logger      arbor.ILogger
	jobs        JobScheduler
	publisher   PostScheduler
	posts       interfaces.PostStorage
	pipelineJob string
	router      *http.ServeMux
	server      *http.Server
}

// New creates the HTTP server. pipelineJob names the scheduler job the run
// endpoint triggers.
func New(config *common.Config, logger arbor.ILogger, jobs JobScheduler, publisher PostScheduler, posts interfaces.PostStorage, pipelineJob string) *Server {
	s := &Server{
		config:      config,
		logger:      logger,
		jobs:        jobs,
		publisher:   publisher,
		posts:       posts,
		pipelineJob: pipelineJob,
	}

	s.router = s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.withMiddleware(s.router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server and blocks until shutdown
func (s *Server) Start() error {
	s.logger.Info().
		Str("address", s.server.Addr).
		Msg("HTTP server starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server...")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info().Msg("HTTP server stopped")
	return nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/api/version", s.versionHandler)
	mux.HandleFunc("/api/stats", s.statsHandler)
	mux.HandleFunc("/api/posts", s.listPostsHandler)
	mux.HandleFunc("/api/posts/", s.cancelPostHandler)
	mux.HandleFunc("/api/jobs", s.listJobsHandler)
	mux.HandleFunc("/api/jobs/", s.jobActionHandler)
	mux.HandleFunc("/api/run", s.runHandler)

	return mux
}
