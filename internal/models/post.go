package models

import (
	"fmt"
	"time"
)

// PostStatus represents the lifecycle state of a scheduled post
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusPublished PostStatus = "published"
	PostStatusFailed    PostStatus = "failed"
	PostStatusCancelled PostStatus = "cancelled"
)

// ValidPostStatuses lists every allowed post status
var ValidPostStatuses = []PostStatus{
	PostStatusDraft,
	PostStatusScheduled,
	PostStatusPublished,
	PostStatusFailed,
	PostStatusCancelled,
}

// IsTerminal returns true if the status is a terminal state
func (s PostStatus) IsTerminal() bool {
	return s == PostStatusPublished || s == PostStatusFailed || s == PostStatusCancelled
}

// Post represents a social post moving through the pipeline.
// Lifecycle: draft -> scheduled -> published/failed/cancelled.
type Post struct {
	ID          string     `json:"id" badgerhold:"key"`
	SourceURL   string     `json:"source_url"`
	Platform    string     `json:"platform"`
	Title       string     `json:"title"`
	Caption     string     `json:"caption"`
	Hashtags    []string   `json:"hashtags,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	ImageModel  string     `json:"image_model,omitempty"`
	ExternalID  string     `json:"external_id,omitempty"` // ID assigned by the scheduling API
	Status      PostStatus `json:"status"`
	Error       string     `json:"error,omitempty"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Validate validates the post
func (p *Post) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("post ID is required")
	}
	if p.SourceURL == "" {
		return fmt.Errorf("post source URL is required")
	}
	if p.Platform == "" {
		return fmt.Errorf("post platform is required")
	}
	for _, status := range ValidPostStatuses {
		if p.Status == status {
			return nil
		}
	}
	return fmt.Errorf("invalid post status: %s", p.Status)
}

// PostPatch enumerates the only post fields the storage layer allows mutating.
// Nil pointers mean "leave unchanged".
type PostPatch struct {
	Status      *PostStatus
	Error       *string
	ExternalID  *string
	ImageURL    *string
	ImageModel  *string
	ScheduledAt *time.Time
	Caption     *string
	Hashtags    []string
}

// Apply copies the set fields onto the post and bumps UpdatedAt
func (patch *PostPatch) Apply(post *Post) {
	if patch.Status != nil {
		post.Status = *patch.Status
	}
	if patch.Error != nil {
		post.Error = *patch.Error
	}
	if patch.ExternalID != nil {
		post.ExternalID = *patch.ExternalID
	}
	if patch.ImageURL != nil {
		post.ImageURL = *patch.ImageURL
	}
	if patch.ImageModel != nil {
		post.ImageModel = *patch.ImageModel
	}
	if patch.ScheduledAt != nil {
		post.ScheduledAt = *patch.ScheduledAt
	}
	if patch.Caption != nil {
		post.Caption = *patch.Caption
	}
	if patch.Hashtags != nil {
		post.Hashtags = patch.Hashtags
	}
	post.UpdatedAt = time.Now()
}
