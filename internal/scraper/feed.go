package scraper

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/baxromumarov/nowcoder-search/internal/httpx"
)

const (
	DefaultFeedDetailURL = "https://www.nowcoder.com/feed/main/detail"

	// feedMissingMarker is what the site renders for an unknown uuid.
	feedMissingMarker = "内容不存在!"

	feedContentClass = "feed-content-text"
	minFallbackRunes = 100
)

var (
	feedTitlePattern   = regexp.MustCompile(`"title":"([^"]+)"`)
	feedContentPattern = regexp.MustCompile(`"content":"([^"]+)"`)

	jsonEscapeReplacer = strings.NewReplacer(
		`\n`, "\n",
		`\u002F`, "/",
		`\/`, "/",
		`\t`, "\t",
	)
)

type pageFetcher interface {
	FetchBytes(ctx context.Context, rawURL string) ([]byte, error)
}

// FeedPageFetcher scrapes moment (rc_type 201) detail pages.
type FeedPageFetcher struct {
	fetcher    pageFetcher
	normalizer Normalizer
	baseURL    string
}

var _ FeedFetcher = (*FeedPageFetcher)(nil)

func NewFeedPageFetcher(fetcher *httpx.CollyFetcher, normalizer Normalizer, baseURL string) *FeedPageFetcher {
	if normalizer == nil {
		normalizer = NewSimpleNormalizer()
	}
	if baseURL == "" {
		baseURL = DefaultFeedDetailURL
	}
	return &FeedPageFetcher{
		fetcher:    fetcher,
		normalizer: normalizer,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

func (f *FeedPageFetcher) FetchFeed(ctx context.Context, uuid string) (FeedDetail, error) {
	if uuid == "" {
		return FeedDetail{}, validationError("feed detail", "uuid is required")
	}

	pageURL := f.baseURL + "/" + uuid
	body, err := f.fetcher.FetchBytes(ctx, pageURL)
	if err != nil {
		return FeedDetail{}, networkError("feed detail", err)
	}

	page := string(body)
	if strings.Contains(page, feedMissingMarker) {
		return FeedDetail{}, notFoundError("feed detail",
			"content does not exist, check that the uuid is correct. "+
				"This tool only handles feed items (rc_type=201); for discussion posts (rc_type=207) "+
				"use get_discuss_details with the content_id instead.")
	}

	return FeedDetail{
		Title:   extractFeedTitle(page),
		Content: f.extractFeedContent(body, page),
		UUID:    uuid,
		URL:     pageURL,
	}, nil
}

func extractFeedTitle(page string) string {
	if m := feedTitlePattern.FindStringSubmatch(page); m != nil {
		return jsonEscapeReplacer.Replace(m[1])
	}
	return ""
}

// extractFeedContent prefers the rendered content container and falls back to
// the JSON state embedded in the page.
func (f *FeedPageFetcher) extractFeedContent(body []byte, page string) string {
	if inner := containerMarkup(body); inner != "" {
		if text, err := f.normalizer.Normalize(inner); err == nil && text != "" {
			return text
		}
	}
	return fallbackFeedContent(page)
}

// containerMarkup returns the source of the first feed-content-text div's
// children exactly as served, nested divs included. Entities and quoting are
// left for the normalizer.
func containerMarkup(body []byte) string {
	z := html.NewTokenizer(bytes.NewReader(body))
	var inner bytes.Buffer
	depth := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return inner.String()
		}
		// Raw is only valid until TagName rewrites the buffer.
		raw := append([]byte(nil), z.Raw()...)

		if depth == 0 {
			if tt == html.StartTagToken && isFeedContainer(z) {
				depth = 1
			}
			continue
		}

		switch tt {
		case html.StartTagToken:
			if name, _ := z.TagName(); string(name) == "div" {
				depth++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "div" {
				depth--
				if depth == 0 {
					return inner.String()
				}
			}
		}
		inner.Write(raw)
	}
}

func isFeedContainer(z *html.Tokenizer) bool {
	name, hasAttr := z.TagName()
	if string(name) != "div" {
		return false
	}
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		if string(key) == "class" && strings.Contains(string(val), feedContentClass) {
			return true
		}
	}
	return false
}

// fallbackFeedContent takes the first long, untruncated "content" literal.
func fallbackFeedContent(page string) string {
	for _, m := range feedContentPattern.FindAllStringSubmatch(page, -1) {
		candidate := m[1]
		if utf8.RuneCountInString(candidate) > minFallbackRunes && !strings.Contains(candidate, "...") {
			return jsonEscapeReplacer.Replace(candidate)
		}
	}
	return ""
}
