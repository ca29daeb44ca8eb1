package scraper

import (
	"context"
)

// Kind is the upstream rc_type discriminator.
type Kind int

const (
	KindMoment  Kind = 201
	KindContent Kind = 207
)

// SearchRecord is one search hit. Only one of UUID and ContentID is ever set,
// matching Kind.
type SearchRecord struct {
	Title        string `json:"title"`
	Kind         Kind   `json:"rc_type"`
	UUID         string `json:"uuid"`
	ContentID    string `json:"content_id"`
	CreatedAt    int64  `json:"created_at"`
	EditTime     int64  `json:"edit_time"`
	ViewCount    int64  `json:"view_count"`
	LikeCount    int64  `json:"like_count"`
	CommentCount int64  `json:"comment_count"`
	Company      string `json:"company"`
	JobTitle     string `json:"job_title"`
}

// ID returns the populated identifier, uuid first.
func (r SearchRecord) ID() string {
	if r.UUID != "" {
		return r.UUID
	}
	return r.ContentID
}

type SearchPage struct {
	Current   int            `json:"current"`
	Size      int            `json:"size"`
	Total     int            `json:"total"`
	TotalPage int            `json:"total_page"`
	Records   []SearchRecord `json:"records"`
}

// FeedDetail is the full text of a moment (rc_type 201).
type FeedDetail struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	UUID    string `json:"uuid"`
	URL     string `json:"url"`
}

// DiscussDetail is the full text of a discussion post (rc_type 207).
type DiscussDetail struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	ContentID string `json:"content_id"`
	URL       string `json:"url"`
}

type Searcher interface {
	Search(ctx context.Context, req SearchRequest) (*RawSearchResponse, error)
}

type FeedFetcher interface {
	FetchFeed(ctx context.Context, uuid string) (FeedDetail, error)
}

type DiscussFetcher interface {
	FetchDiscuss(ctx context.Context, contentID string) (DiscussDetail, error)
}

type Normalizer interface {
	Normalize(htmlContent string) (string, error)
}
