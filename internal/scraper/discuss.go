package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/baxromumarov/nowcoder-search/internal/httpx"
)

const (
	DefaultDiscussAPIURL  = "https://gw-c.nowcoder.com/api/sparta/detail/content-data/detail"
	DefaultDiscussPageURL = "https://www.nowcoder.com/discuss"
)

type discussResponse struct {
	Success bool `json:"success"`
	Data    *struct {
		Title    string `json:"title"`
		RichText string `json:"richText"`
		Content  string `json:"content"`
	} `json:"data"`
}

type jsonGetter interface {
	GetJSON(ctx context.Context, url string) ([]byte, error)
}

// DiscussAPIFetcher loads discussion posts (rc_type 207) from the detail API.
type DiscussAPIFetcher struct {
	client     jsonGetter
	normalizer Normalizer
	apiURL     string
	pageURL    string
}

var _ DiscussFetcher = (*DiscussAPIFetcher)(nil)

func NewDiscussAPIFetcher(client *httpx.APIClient, normalizer Normalizer, apiURL, pageURL string) *DiscussAPIFetcher {
	if normalizer == nil {
		normalizer = NewSimpleNormalizer()
	}
	if apiURL == "" {
		apiURL = DefaultDiscussAPIURL
	}
	if pageURL == "" {
		pageURL = DefaultDiscussPageURL
	}
	return &DiscussAPIFetcher{
		client:     client,
		normalizer: normalizer,
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		pageURL:    strings.TrimSuffix(pageURL, "/"),
	}
}

func (f *DiscussAPIFetcher) FetchDiscuss(ctx context.Context, contentID string) (DiscussDetail, error) {
	if contentID == "" {
		return DiscussDetail{}, validationError("discuss detail", "content_id is required")
	}

	body, err := f.client.GetJSON(ctx, f.apiURL+"/"+contentID)
	if err != nil {
		return DiscussDetail{}, networkError("discuss detail", err)
	}

	var resp discussResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return DiscussDetail{}, &Error{
			Kind:    ErrorUpstream,
			Op:      "discuss detail",
			Message: "malformed discuss detail response",
			Err:     fmt.Errorf("decode failed: %w", err),
		}
	}
	if !resp.Success {
		return DiscussDetail{}, notFoundError("discuss detail",
			"content does not exist or the request failed, check that the content_id is correct. "+
				"This tool only handles discussion posts (rc_type=207); for feed items (rc_type=201) "+
				"use get_feed_details with the uuid instead.")
	}

	var title, markup string
	if resp.Data != nil {
		title = resp.Data.Title
		markup = resp.Data.RichText
		if markup == "" {
			markup = resp.Data.Content
		}
	}
	content, err := f.normalizer.Normalize(markup)
	if err != nil {
		return DiscussDetail{}, &Error{Kind: ErrorUpstream, Op: "discuss detail", Message: "normalize content failed", Err: err}
	}

	return DiscussDetail{
		Title:     title,
		Content:   content,
		ContentID: contentID,
		URL:       f.pageURL + "/" + contentID,
	}, nil
}
