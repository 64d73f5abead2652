package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/emitto/internal/interfaces"
	"github.com/ternarybob/emitto/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// PostStorage implements the PostStorage interface for Badger
type PostStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewPostStorage creates a new PostStorage instance
func NewPostStorage(db *BadgerDB, logger arbor.ILogger) interfaces.PostStorage {
	return &PostStorage{
		db:     db,
		logger: logger,
	}
}

func (s *PostStorage) SavePost(ctx context.Context, post *models.Post) error {
	if err := post.Validate(); err != nil {
		return fmt.Errorf("invalid post: %w", err)
	}

	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	post.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(post.ID, post); err != nil {
		return fmt.Errorf("failed to save post: %w", err)
	}
	return nil
}

func (s *PostStorage) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := s.db.Store().Get(id, &post); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return &post, nil
}

// PatchPost applies a typed patch to a stored post. Only the fields the
// patch enumerates can change.
func (s *PostStorage) PatchPost(ctx context.Context, id string, patch *models.PostPatch) error {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return err
	}

	patch.Apply(post)

	if err := post.Validate(); err != nil {
		return fmt.Errorf("patch produced invalid post: %w", err)
	}

	if err := s.db.Store().Upsert(post.ID, post); err != nil {
		return fmt.Errorf("failed to patch post: %w", err)
	}

	s.logger.Debug().
		Str("post_id", id).
		Str("status", string(post.Status)).
		Msg("Post patched")

	return nil
}

func (s *PostStorage) ListPosts(ctx context.Context, opts *interfaces.PostListOptions) ([]*models.Post, error) {
	query := badgerhold.Where("ID").Ne("")

	if opts != nil {
		if opts.Status != "" {
			query = query.And("Status").Eq(opts.Status)
		}
		if opts.Platform != "" {
			query = query.And("Platform").Eq(opts.Platform)
		}
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
	}
	query = query.SortBy("CreatedAt").Reverse()

	var posts []models.Post
	if err := s.db.Store().Find(&posts, query); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	result := make([]*models.Post, len(posts))
	for i := range posts {
		result[i] = &posts[i]
	}
	return result, nil
}

// GetScheduledTimes returns scheduled timestamps of the most recent scheduled
// posts, newest first, capped at limit.
func (s *PostStorage) GetScheduledTimes(ctx context.Context, limit int) ([]time.Time, error) {
	query := badgerhold.Where("Status").Eq(models.PostStatusScheduled).
		SortBy("ScheduledAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var posts []models.Post
	if err := s.db.Store().Find(&posts, query); err != nil {
		return nil, fmt.Errorf("failed to get scheduled times: %w", err)
	}

	times := make([]time.Time, len(posts))
	for i := range posts {
		times[i] = posts[i].ScheduledAt
	}
	return times, nil
}

func (s *PostStorage) GetPostBySourceURL(ctx context.Context, sourceURL string) (*models.Post, error) {
	var posts []models.Post
	if err := s.db.Store().Find(&posts, badgerhold.Where("SourceURL").Eq(sourceURL).Limit(1)); err != nil {
		return nil, fmt.Errorf("failed to get post by source URL: %w", err)
	}
	if len(posts) == 0 {
		return nil, interfaces.ErrPostNotFound
	}
	return &posts[0], nil
}
