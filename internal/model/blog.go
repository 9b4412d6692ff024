package model

import "time"

// BlogStatus enumerates blog post visibility.
type BlogStatus string

const (
	BlogStatusDraft     BlogStatus = "draft"
	BlogStatusPublished BlogStatus = "published"
)

// Blog represents a marketing/content post shown on the public site.
type Blog struct {
	ID            int        `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Summary       string     `json:"summary"`
	Content       string     `json:"content"`
	CoverImageURL string     `json:"cover_image_url,omitempty"`
	AuthorID      *int       `json:"author_id,omitempty"`
	Status        BlogStatus `json:"status"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// BlogRequest is the payload for creating or updating a post.
type BlogRequest struct {
	Title         string     `json:"title" binding:"required,min=3,max=255"`
	Slug          string     `json:"slug" binding:"required,max=255,slug"`
	Summary       string     `json:"summary" binding:"omitempty,max=500"`
	Content       string     `json:"content" binding:"required"`
	CoverImageURL string     `json:"cover_image_url" binding:"omitempty,url,max=1024"`
	Status        BlogStatus `json:"status" binding:"required,oneof=draft published"`
}
