package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/emitto/internal/common"
	"github.com/ternarybob/emitto/internal/interfaces"
	"github.com/ternarybob/emitto/internal/models"
)

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": common.Version,
	})
}

func (s *Server) versionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"version": common.Version,
		"build":   common.Build,
		"commit":  common.GitCommit,
	})
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := s.publisher.Stats(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to compute schedule stats")
		http.Error(w, "Failed to compute stats", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) listPostsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	opts := &interfaces.PostListOptions{Limit: 50}
	if status := r.URL.Query().Get("status"); status != "" {
		opts.Status = models.PostStatus(status)
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		opts.Limit = limit
	}

	posts, err := s.posts.ListPosts(r.Context(), opts)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list posts")
		http.Error(w, "Failed to list posts", http.StatusInternalServerError)
		return
	}
	if posts == nil {
		posts = []*models.Post{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"posts": posts,
		"count": len(posts),
	})
}

// cancelPostHandler handles DELETE /api/posts/{id}: the post is cancelled
// remotely and its row moves to cancelled
func (s *Server) cancelPostHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	postID := strings.TrimPrefix(r.URL.Path, "/api/posts/")
	if postID == "" || strings.Contains(postID, "/") {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	if err := s.publisher.Cancel(r.Context(), postID); err != nil {
		if errors.Is(err, interfaces.ErrPostNotFound) {
			http.Error(w, "Post not found", http.StatusNotFound)
			return
		}
		if strings.Contains(err.Error(), "only scheduled posts") {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		s.logger.Error().Err(err).Str("post_id", postID).Msg("Failed to cancel post")
		http.Error(w, "Failed to cancel post", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"id":     postID,
		"status": string(models.PostStatusCancelled),
	})
}

// listJobsHandler returns the state of every registered scheduler job
func (s *Server) listJobsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jobs := s.jobs.JobStatuses()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// jobActionHandler handles POST /api/jobs/{name}/enable and /disable
func (s *Server) jobActionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/jobs/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		http.Error(w, "Invalid job path", http.StatusBadRequest)
		return
	}
	name, action := parts[0], parts[1]

	var err error
	switch action {
	case "enable":
		err = s.jobs.EnableJob(name)
	case "disable":
		err = s.jobs.DisableJob(name)
	default:
		http.Error(w, "Unknown job action", http.StatusBadRequest)
		return
	}

	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"job":    name,
		"action": action,
	})
}

// runHandler triggers a pipeline run through the job scheduler, so a manual
// run serializes with cron runs instead of overlapping them
func (s *Server) runHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.logger.Info().Msg("Manual pipeline run triggered via API")

	if err := s.jobs.TriggerJob(s.pipelineJob); err != nil {
		s.logger.Error().Err(err).Str("job_name", s.pipelineJob).Msg("Manual pipeline trigger failed")
		http.Error(w, "Pipeline job not available", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "started",
		"job":    s.pipelineJob,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
