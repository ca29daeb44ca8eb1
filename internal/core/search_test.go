package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baxromumarov/nowcoder-search/internal/httpx"
	"github.com/baxromumarov/nowcoder-search/internal/scraper"
)

// fakeSearcher serves canned pages keyed by query and page number.
type fakeSearcher struct {
	pages map[string]map[int]string
	errs  map[string]map[int]error
	calls []scraper.SearchRequest
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{
		pages: map[string]map[int]string{},
		errs:  map[string]map[int]error{},
	}
}

func (f *fakeSearcher) page(query string, page int, body string) *fakeSearcher {
	if f.pages[query] == nil {
		f.pages[query] = map[int]string{}
	}
	f.pages[query][page] = body
	return f
}

func (f *fakeSearcher) fail(query string, page int, err error) *fakeSearcher {
	if f.errs[query] == nil {
		f.errs[query] = map[int]error{}
	}
	f.errs[query][page] = err
	return f
}

func (f *fakeSearcher) Search(_ context.Context, req scraper.SearchRequest) (*scraper.RawSearchResponse, error) {
	if err := scraper.ValidateFilters(req.Tag, req.Order); err != nil {
		return nil, err
	}
	f.calls = append(f.calls, req)
	if err := f.errs[req.Query][req.Page]; err != nil {
		return nil, err
	}
	body, ok := f.pages[req.Query][req.Page]
	if !ok {
		return nil, fmt.Errorf("no page %d for %q", req.Page, req.Query)
	}
	var raw scraper.RawSearchResponse
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, err
	}
	return &raw, nil
}

func momentsPage(totalPage int, uuids ...string) string {
	records := make([]string, 0, len(uuids))
	for _, id := range uuids {
		records = append(records, fmt.Sprintf(`{"rc_type": 201, "data": {"momentData": {"title": "t-%s", "uuid": %q}}}`, id, id))
	}
	return fmt.Sprintf(`{"success": true, "data": {"current": 1, "size": %d, "total": %d, "totalPage": %d, "records": [%s]}}`,
		len(uuids), totalPage*10, totalPage, strings.Join(records, ","))
}

func recordIDs(res AggregatedResult) []string {
	ids := make([]string, 0, len(res.Records))
	for _, r := range res.Records {
		ids = append(ids, r.ID())
	}
	return ids
}

func TestSearchDeduplicatesAcrossPages(t *testing.T) {
	fake := newFakeSearcher().
		page("go", 1, momentsPage(3, "a", "b")).
		page("go", 2, momentsPage(3, "b", "c")).
		page("go", 3, `{"success": true, "data": {"totalPage": 3, "records": [
			{"rc_type": 201, "data": {"momentData": {"uuid": "a"}}},
			{"rc_type": 207, "data": {"contentData": {"title": "d", "id": 42}}},
			{"rc_type": 201, "data": {"momentData": {"title": "no id"}}},
			{"rc_type": 201, "data": {"momentData": {"title": "no id"}}}
		]}}`)
	svc := NewSearchService(fake, nil, nil)

	res, err := svc.Search(context.Background(), SearchOptions{Query: "go", MaxPages: 0})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c", "42", "", ""}, recordIDs(res))
	assert.Equal(t, 1, res.Current)
	assert.Equal(t, 6, res.Size)
	assert.Equal(t, 30, res.Total)
	assert.Equal(t, 3, res.TotalPage)
	assert.Len(t, fake.calls, 3)
}

func TestResolvePageCount(t *testing.T) {
	tests := []struct {
		maxPages, totalPage, want int
	}{
		{0, 5, 5},
		{-1, 5, 5},
		{2, 5, 2},
		{10, 3, 3},
		{1, 0, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d of %d", tt.maxPages, tt.totalPage), func(t *testing.T) {
			assert.Equal(t, tt.want, resolvePageCount(tt.maxPages, tt.totalPage))
		})
	}
}

func TestSearchRequestsResolvedPageCount(t *testing.T) {
	fake := newFakeSearcher()
	for p := 1; p <= 5; p++ {
		fake.page("q", p, momentsPage(5, fmt.Sprintf("id-%d", p)))
	}
	svc := NewSearchService(fake, nil, nil)

	res, err := svc.Search(context.Background(), SearchOptions{Query: "q", MaxPages: 2})
	require.NoError(t, err)
	assert.Len(t, fake.calls, 2)
	assert.Equal(t, 2, res.Size)
	for i, call := range fake.calls {
		assert.Equal(t, i+1, call.Page)
	}
}

func TestSearchSkipsFailedPage(t *testing.T) {
	fake := newFakeSearcher().
		page("q", 1, momentsPage(3, "a")).
		fail("q", 2, &scraper.Error{Kind: scraper.ErrorNetwork, Message: "search request failed", Err: &httpx.FetchError{Status: 503}}).
		page("q", 3, momentsPage(3, "c"))
	svc := NewSearchService(fake, nil, nil)

	res, err := svc.Search(context.Background(), SearchOptions{Query: "q", MaxPages: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, recordIDs(res))
	assert.Len(t, fake.calls, 3)
}

func TestSearchSkipsUnsuccessfulLaterPage(t *testing.T) {
	fake := newFakeSearcher().
		page("q", 1, momentsPage(2, "a")).
		page("q", 2, `{"success": false, "msg": "busy"}`)
	svc := NewSearchService(fake, nil, nil)

	res, err := svc.Search(context.Background(), SearchOptions{Query: "q", MaxPages: 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, recordIDs(res))
	assert.Equal(t, 2, res.TotalPage)
}

func TestSearchSinglePageResult(t *testing.T) {
	fake := newFakeSearcher().page("T", 1, `{"success": true, "data": {"current": 1, "size": 1, "total": 1, "totalPage": 1,
		"records": [{"rc_type": 201, "data": {"momentData": {"title": "T1", "uuid": "u1"}, "frequencyData": {"viewCnt": 5}}}]}}`)
	svc := NewSearchService(fake, nil, nil)

	res, err := svc.Search(context.Background(), SearchOptions{Query: "T", MaxPages: 1})
	require.NoError(t, err)

	out, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"current":1,"size":1,"total":1,"total_page":1,"records":[
		{"title":"T1","rc_type":201,"uuid":"u1","content_id":"","created_at":0,"edit_time":0,
		 "view_count":5,"like_count":0,"comment_count":0,"company":"","job_title":""}]}`, string(out))
}

func TestSearchFirstPageFailures(t *testing.T) {
	fake := newFakeSearcher().
		page("rejected", 1, `{"success": false, "msg": "rate limited"}`).
		page("silent", 1, `{"success": false}`).
		fail("down", 1, &scraper.Error{Kind: scraper.ErrorNetwork, Message: "search request failed", Err: errors.New("dial tcp")})
	svc := NewSearchService(fake, nil, nil)

	_, err := svc.Search(context.Background(), SearchOptions{Query: "rejected"})
	require.Error(t, err)
	assert.Equal(t, scraper.ErrorUpstream, scraper.KindOf(err))
	assert.Equal(t, "api request failed: rate limited", err.Error())

	_, err = svc.Search(context.Background(), SearchOptions{Query: "silent"})
	require.Error(t, err)
	assert.Equal(t, "api request failed: unknown error", err.Error())

	_, err = svc.Search(context.Background(), SearchOptions{Query: "down"})
	require.Error(t, err)
	assert.Equal(t, scraper.ErrorNetwork, scraper.KindOf(err))
}

func TestSearchValidationMakesNoRequests(t *testing.T) {
	fake := newFakeSearcher()
	svc := NewSearchService(fake, nil, nil)

	_, err := svc.Search(context.Background(), SearchOptions{Query: "q", Tag: 999})
	require.Error(t, err)
	assert.Equal(t, scraper.ErrorValidation, scraper.KindOf(err))

	_, err = svc.BatchSearch(context.Background(), []string{"a", "b"}, BatchOptions{Order: "oldest"})
	require.Error(t, err)
	assert.Equal(t, scraper.ErrorValidation, scraper.KindOf(err))

	assert.Empty(t, fake.calls)
}

func TestBatchSearch(t *testing.T) {
	fake := newFakeSearcher().
		page("a", 1, momentsPage(1, "a1", "a2")).
		page("b", 1, `{"success": false, "msg": "nope"}`)
	svc := NewSearchService(fake, nil, nil)

	results, err := svc.BatchSearch(context.Background(), []string{"a", "b"}, BatchOptions{MaxPages: 1, Tag: scraper.TagInterview})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, []string{"a1", "a2"}, recordIDs(results["a"]))
	assert.Equal(t, EmptyResult(), results["b"])

	out, err := json.Marshal(results["b"])
	require.NoError(t, err)
	assert.JSONEq(t, `{"current":1,"size":0,"total":0,"total_page":0,"records":[]}`, string(out))

	require.Len(t, fake.calls, 2)
	assert.Equal(t, "a", fake.calls[0].Query)
	assert.Equal(t, "b", fake.calls[1].Query)
	assert.Equal(t, scraper.TagInterview, fake.calls[0].Tag)
}

type fakeFeeds struct {
	detail scraper.FeedDetail
	err    error
}

func (f fakeFeeds) FetchFeed(context.Context, string) (scraper.FeedDetail, error) {
	return f.detail, f.err
}

type fakeDiscuss struct {
	detail scraper.DiscussDetail
	err    error
}

func (f fakeDiscuss) FetchDiscuss(context.Context, string) (scraper.DiscussDetail, error) {
	return f.detail, f.err
}

func TestDetailDelegation(t *testing.T) {
	feed := scraper.FeedDetail{Title: "t", Content: "c", UUID: "u", URL: "https://example.test/u"}
	svc := NewSearchService(nil, fakeFeeds{detail: feed}, fakeDiscuss{err: &scraper.Error{Kind: scraper.ErrorNotFound, Message: "gone"}})

	got, err := svc.FeedDetail(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, feed, got)

	_, err = svc.DiscussDetail(context.Background(), "1")
	require.Error(t, err)
	assert.Equal(t, scraper.ErrorNotFound, scraper.KindOf(err))
}

func TestUpstreamStatus(t *testing.T) {
	assert.Equal(t, 200, upstreamStatus(nil))
	assert.Equal(t, 502, upstreamStatus(&scraper.Error{Kind: scraper.ErrorNetwork, Err: &httpx.FetchError{Status: 502}}))
	assert.Equal(t, 0, upstreamStatus(&httpx.FetchError{Err: context.DeadlineExceeded}))
}

func TestValidateMaxPages(t *testing.T) {
	for _, n := range []int{-1, 0, 1, 50} {
		assert.NoError(t, ValidateMaxPages(n))
	}
	err := ValidateMaxPages(-2)
	require.Error(t, err)
	assert.Equal(t, scraper.ErrorValidation, scraper.KindOf(err))
}
