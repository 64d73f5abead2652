package models

import "time"

// Article represents content extracted from a page, either by the
// extraction API or by the local fallback scraper.
type Article struct {
	URL         string    `json:"url" validate:"required,url"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description,omitempty"`
	Markdown    string    `json:"markdown" validate:"required"`
	Author      string    `json:"author,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
	Source      string    `json:"source"` // "api" or "fallback"
	FetchedAt   time.Time `json:"fetched_at"`
}

// OptimizedContent is the platform-ready rendition of an article
type OptimizedContent struct {
	Caption  string   `json:"caption"`
	Hashtags []string `json:"hashtags"`
	AltText  string   `json:"alt_text,omitempty"` // Image alt text suggestion from the optimizer
}
