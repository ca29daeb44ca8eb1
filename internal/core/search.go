package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/baxromumarov/nowcoder-search/internal/config"
	"github.com/baxromumarov/nowcoder-search/internal/httpx"
	"github.com/baxromumarov/nowcoder-search/internal/observability"
	"github.com/baxromumarov/nowcoder-search/internal/scraper"
)

// Defaults applied by the single-keyword entry points when a caller omits them.
const (
	DefaultMaxPages = 1
	DefaultTag      = scraper.TagInterview
	DefaultOrder    = scraper.OrderCreate
)

// AggregatedResult is the merged view of one or more search pages.
type AggregatedResult = scraper.SearchPage

// EmptyResult is what a failed keyword maps to in a batch.
func EmptyResult() AggregatedResult {
	return AggregatedResult{Current: 1, Records: []scraper.SearchRecord{}}
}

// SearchOptions controls one aggregated search. MaxPages <= 0 means every page.
type SearchOptions struct {
	Query    string
	MaxPages int
	Tag      scraper.TagID
	Order    scraper.Order
}

type BatchOptions struct {
	MaxPages int
	Tag      scraper.TagID
	Order    scraper.Order
}

// SearchService runs paginated searches and detail lookups. Every upstream
// call is issued sequentially.
type SearchService struct {
	searcher scraper.Searcher
	feeds    scraper.FeedFetcher
	discuss  scraper.DiscussFetcher
}

func NewSearchService(searcher scraper.Searcher, feeds scraper.FeedFetcher, discuss scraper.DiscussFetcher) *SearchService {
	return &SearchService{
		searcher: searcher,
		feeds:    feeds,
		discuss:  discuss,
	}
}

// NewSearchServiceFromConfig wires the live NowCoder clients.
func NewSearchServiceFromConfig(cfg *config.Config) *SearchService {
	opts := cfg.HTTPOptions()
	apiClient := httpx.NewAPIClient(opts)
	normalizer := scraper.NewSimpleNormalizer()

	return NewSearchService(
		scraper.NewSearchClient(apiClient, cfg.SearchURL),
		scraper.NewFeedPageFetcher(httpx.NewCollyFetcher(opts), normalizer, cfg.FeedDetailURL),
		scraper.NewDiscussAPIFetcher(apiClient, normalizer, cfg.DiscussAPIURL, cfg.DiscussPageURL),
	)
}

// Search fetches page 1, then up to the resolved page count, merging records
// by identifier. Failures after page 1 skip that page.
func (s *SearchService) Search(ctx context.Context, opts SearchOptions) (AggregatedResult, error) {
	if err := scraper.ValidateFilters(opts.Tag, opts.Order); err != nil {
		observability.IncError(observability.ClassifyError(err), "search")
		return AggregatedResult{}, err
	}

	start := time.Now()
	first, err := s.fetchPage(ctx, opts, 1)
	if err != nil {
		observability.IncError(observability.ClassifyError(err), "search")
		return AggregatedResult{}, err
	}

	pages := resolvePageCount(opts.MaxPages, first.TotalPage)
	if pages <= 1 {
		log.Debug().Str("query", opts.Query).Int("records", len(first.Records)).Msg("search finished after one page")
		return first, nil
	}

	merged := make([]scraper.SearchRecord, 0, len(first.Records))
	seen := make(map[string]struct{}, len(first.Records))
	merged = append(merged, first.Records...)
	for _, rec := range first.Records {
		if id := rec.ID(); id != "" {
			seen[id] = struct{}{}
		}
	}

	for page := 2; page <= pages; page++ {
		next, err := s.fetchPage(ctx, opts, page)
		if err != nil {
			observability.IncPageSkipped()
			observability.IncError(observability.ClassifyError(err), "search")
			log.Warn().Err(err).Str("query", opts.Query).Int("page", page).Msg("search page skipped")
			continue
		}

		added := 0
		for _, rec := range next.Records {
			id := rec.ID()
			if id != "" {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
			}
			merged = append(merged, rec)
			added++
		}
		observability.AddRecordsMerged(added)
	}

	log.Info().
		Str("query", opts.Query).
		Int("pages", pages).
		Int("records", len(merged)).
		Dur("elapsed", time.Since(start)).
		Msg("search finished")

	return AggregatedResult{
		Current:   1,
		Size:      len(merged),
		Total:     first.Total,
		TotalPage: first.TotalPage,
		Records:   merged,
	}, nil
}

// BatchSearch runs Search for each keyword in order. A keyword that fails maps
// to EmptyResult; only invalid filters fail the whole batch.
func (s *SearchService) BatchSearch(ctx context.Context, keywords []string, opts BatchOptions) (map[string]AggregatedResult, error) {
	if err := scraper.ValidateFilters(opts.Tag, opts.Order); err != nil {
		observability.IncError(observability.ClassifyError(err), "batch_search")
		return nil, err
	}

	results := make(map[string]AggregatedResult, len(keywords))
	for _, keyword := range keywords {
		res, err := s.Search(ctx, SearchOptions{
			Query:    keyword,
			MaxPages: opts.MaxPages,
			Tag:      opts.Tag,
			Order:    opts.Order,
		})
		if err != nil {
			log.Warn().Err(err).Str("keyword", keyword).Msg("batch keyword failed")
			results[keyword] = EmptyResult()
			continue
		}
		results[keyword] = res
	}
	return results, nil
}

func (s *SearchService) FeedDetail(ctx context.Context, uuid string) (scraper.FeedDetail, error) {
	detail, err := s.feeds.FetchFeed(ctx, uuid)
	if uuid != "" {
		observability.ObserveUpstream("feed_detail", upstreamStatus(err))
	}
	if err != nil {
		observability.IncError(observability.ClassifyError(err), "feed_detail")
		log.Warn().Err(err).Str("uuid", uuid).Msg("feed detail failed")
		return scraper.FeedDetail{}, err
	}
	log.Debug().Str("uuid", uuid).Int("content_len", len(detail.Content)).Msg("feed detail fetched")
	return detail, nil
}

func (s *SearchService) DiscussDetail(ctx context.Context, contentID string) (scraper.DiscussDetail, error) {
	detail, err := s.discuss.FetchDiscuss(ctx, contentID)
	if contentID != "" {
		observability.ObserveUpstream("discuss_detail", upstreamStatus(err))
	}
	if err != nil {
		observability.IncError(observability.ClassifyError(err), "discuss_detail")
		log.Warn().Err(err).Str("content_id", contentID).Msg("discuss detail failed")
		return scraper.DiscussDetail{}, err
	}
	log.Debug().Str("content_id", contentID).Int("content_len", len(detail.Content)).Msg("discuss detail fetched")
	return detail, nil
}

func (s *SearchService) fetchPage(ctx context.Context, opts SearchOptions, page int) (AggregatedResult, error) {
	raw, err := s.searcher.Search(ctx, scraper.SearchRequest{
		Query: opts.Query,
		Page:  page,
		Tag:   opts.Tag,
		Order: opts.Order,
	})
	observability.ObserveUpstream("search", upstreamStatus(err))
	if err != nil {
		return AggregatedResult{}, err
	}
	if !raw.Success {
		return AggregatedResult{}, scraper.UpstreamError("search", raw.Msg)
	}
	observability.IncPageFetched()
	return scraper.ParseSearchResponse(raw), nil
}

// ValidateMaxPages rejects page counts below -1. 0 and -1 both mean every page.
func ValidateMaxPages(maxPages int) error {
	if maxPages < -1 {
		return &scraper.Error{
			Kind:    scraper.ErrorValidation,
			Op:      "search",
			Message: fmt.Sprintf("invalid max_pages %d, use a positive number, or 0 or -1 for every page", maxPages),
		}
	}
	return nil
}

// resolvePageCount caps the requested page count by what the server reports.
func resolvePageCount(maxPages, totalPage int) int {
	if maxPages <= 0 || maxPages > totalPage {
		return totalPage
	}
	return maxPages
}

// upstreamStatus recovers the HTTP status behind err, 200 when err is nil or
// the response arrived but was rejected after decoding.
func upstreamStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var fe *httpx.FetchError
	if errors.As(err, &fe) {
		return fe.Status
	}
	return http.StatusOK
}
