package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/emitto/internal/common"
	"github.com/ternarybob/emitto/internal/interfaces"
	"github.com/ternarybob/emitto/internal/models"
	"github.com/ternarybob/emitto/internal/retry"
	"github.com/ternarybob/emitto/internal/scheduling"
)

// Service schedules posts: it allocates a posting slot, uploads media,
// creates the post through the scheduling API and moves the stored post row
// through its lifecycle.
type Service struct {
	config    *common.PublisherConfig
	client    *Client
	storage   interfaces.PostStorage
	allocator *scheduling.Allocator
	logger    arbor.ILogger
	now       func() time.Time
}

// NewService creates a publisher service. The allocator's schedule lookup is
// wired to the post storage.
func NewService(config *common.PublisherConfig, client *Client, storage interfaces.PostStorage, logger arbor.ILogger) (*Service, error) {
	hours, err := scheduling.ParseHours(config.OptimalHours)
	if err != nil {
		return nil, fmt.Errorf("invalid optimal hours %q: %w", config.OptimalHours, err)
	}

	allocator := scheduling.NewAllocator(hours, config.MinGapMinutes, storage.GetScheduledTimes, logger)

	return &Service{
		config:    config,
		client:    client,
		storage:   storage,
		allocator: allocator,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Allocator exposes the slot allocator for stats reporting
func (s *Service) Allocator() *scheduling.Allocator {
	return s.allocator
}

// Publish allocates a slot for the draft post, schedules it through the API
// and marks the row scheduled. The row must already be persisted; on failure
// the caller owns marking it failed.
func (s *Service) Publish(ctx context.Context, post *models.Post, image []byte, imageMIME string) error {
	scheduledAt, err := s.allocator.FindPostingTime(ctx, s.now())
	if err != nil {
		return fmt.Errorf("failed to allocate posting slot: %w", err)
	}

	var mediaID string
	if len(image) > 0 {
		media, err := retry.DoTransient(ctx, s.logger, retry.APIPreset, "media upload", func(ctx context.Context) (*UploadedMedia, error) {
			return s.client.UploadMedia(ctx, mediaFilename(post.ID, imageMIME), image)
		})
		if err != nil {
			return fmt.Errorf("failed to upload media for post %s: %w", post.ID, err)
		}
		mediaID = media.ID

		if media.URL != "" {
			imageURL := media.URL
			if patchErr := s.storage.PatchPost(ctx, post.ID, &models.PostPatch{ImageURL: &imageURL}); patchErr != nil {
				s.logger.Warn().Err(patchErr).Str("post_id", post.ID).Msg("Failed to record media URL")
			}
		}
	}

	request := &CreatePostRequest{
		Platform:    s.config.Platform,
		Caption:     post.Caption,
		Hashtags:    post.Hashtags,
		MediaID:     mediaID,
		ScheduledAt: scheduledAt,
	}

	resp, err := retry.DoTransient(ctx, s.logger, retry.APIPreset, "post scheduling", func(ctx context.Context) (*CreatePostResponse, error) {
		return s.client.CreatePost(ctx, request)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule post %s: %w", post.ID, err)
	}

	status := models.PostStatusScheduled
	patch := &models.PostPatch{
		Status:      &status,
		ExternalID:  &resp.ID,
		ScheduledAt: &scheduledAt,
	}
	if err := s.storage.PatchPost(ctx, post.ID, patch); err != nil {
		return fmt.Errorf("scheduled post %s but failed to update row: %w", post.ID, err)
	}

	s.logger.Info().
		Str("post_id", post.ID).
		Str("external_id", resp.ID).
		Str("scheduled_at", scheduledAt.Format(time.RFC3339)).
		Msg("Post scheduled")

	return nil
}

// Cancel cancels a scheduled post both remotely and in storage
func (s *Service) Cancel(ctx context.Context, postID string) error {
	post, err := s.storage.GetPost(ctx, postID)
	if err != nil {
		return err
	}

	if post.Status != models.PostStatusScheduled {
		return fmt.Errorf("post %s is %s, only scheduled posts can be cancelled", postID, post.Status)
	}

	if post.ExternalID != "" {
		if err := s.client.DeletePost(ctx, post.ExternalID); err != nil {
			return fmt.Errorf("failed to cancel post %s remotely: %w", postID, err)
		}
	}

	status := models.PostStatusCancelled
	if err := s.storage.PatchPost(ctx, postID, &models.PostPatch{Status: &status}); err != nil {
		return fmt.Errorf("cancelled post %s remotely but failed to update row: %w", postID, err)
	}

	s.logger.Info().Str("post_id", postID).Msg("Post cancelled")
	return nil
}

// Stats computes schedule statistics over the stored scheduled posts
func (s *Service) Stats(ctx context.Context) (*scheduling.Stats, error) {
	times, err := s.storage.GetScheduledTimes(ctx, 100)
	if err != nil {
		return nil, fmt.Errorf("failed to load scheduled times: %w", err)
	}
	stats := scheduling.ComputeStats(times, s.now())
	return &stats, nil
}

func mediaFilename(postID, mimeType string) string {
	ext := ".png"
	switch mimeType {
	case "image/jpeg":
		ext = ".jpg"
	case "image/webp":
		ext = ".webp"
	}
	return postID + ext
}
