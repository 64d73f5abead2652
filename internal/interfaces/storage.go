package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/emitto/internal/models"
)

// ErrKeyNotFound is returned when a key does not exist in the KV store
var ErrKeyNotFound = errors.New("key not found")

// ErrPostNotFound is returned when a post does not exist
var ErrPostNotFound = errors.New("post not found")

// PostListOptions controls post listing
type PostListOptions struct {
	Status   models.PostStatus
	Platform string
	Limit    int
	Offset   int
}

// PostStorage persists pipeline post rows
type PostStorage interface {
	SavePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id string) (*models.Post, error)
	PatchPost(ctx context.Context, id string, patch *models.PostPatch) error
	ListPosts(ctx context.Context, opts *PostListOptions) ([]*models.Post, error)

	// GetScheduledTimes returns the scheduled timestamps of the most recent
	// posts in scheduled state, newest first, capped at limit.
	GetScheduledTimes(ctx context.Context, limit int) ([]time.Time, error)

	GetPostBySourceURL(ctx context.Context, sourceURL string) (*models.Post, error)
}

// KeyValuePair is a stored key/value entry with optional expiry
type KeyValuePair struct {
	Key       string    `badgerhold:"key"`
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"` // Zero means no expiry
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// KeyValueStorage is a small TTL key/value store used as the pipeline's
// processed-URL cache.
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
