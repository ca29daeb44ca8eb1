package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/baxromumarov/nowcoder-search/internal/httpx"
)

const DefaultSearchURL = "https://gw-c.nowcoder.com/api/sparta/pc/search"

// TagID is an upstream category facet. TagNone disables filtering.
type TagID int

const (
	TagNone      TagID = 0
	TagInterview TagID = 818
	TagProgress  TagID = 861
	TagReferral  TagID = 823
	TagCompany   TagID = 856
)

// Tag pairs the name the upstream expects on the wire with a display label.
type Tag struct {
	ID    TagID
	Name  string
	Label string
}

var tags = map[TagID]Tag{
	TagInterview: {ID: TagInterview, Name: "面经", Label: "interview experience"},
	TagProgress:  {ID: TagProgress, Name: "求职进度", Label: "job-search progress"},
	TagReferral:  {ID: TagReferral, Name: "内推", Label: "referral"},
	TagCompany:   {ID: TagCompany, Name: "公司评价", Label: "company review"},
}

// Order selects the ranking: relevance or creation time.
type Order string

const (
	OrderDefault Order = ""
	OrderCreate  Order = "create"
)

// LookupTag returns the tag for id.
func LookupTag(id TagID) (Tag, bool) {
	t, ok := tags[id]
	return t, ok
}

// Tags returns the recognized tags ordered by id.
func Tags() []Tag {
	out := make([]Tag, 0, len(tags))
	for _, t := range tags {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ParseTagID maps a caller-supplied id onto a recognized tag. TagNone is not
// a valid input; callers ask for no filter by leaving the tag out.
func ParseTagID(id int) (TagID, error) {
	if _, ok := tags[TagID(id)]; !ok {
		return TagNone, validationError("search", "invalid tag id %d, valid values: %s", id, describeTags())
	}
	return TagID(id), nil
}

// ValidateFilters checks a tag and order before any request is made.
func ValidateFilters(tag TagID, order Order) error {
	if tag != TagNone {
		if _, ok := tags[tag]; !ok {
			return validationError("search", "invalid tag id %d, valid values: %s", tag, describeTags())
		}
	}
	if order != OrderDefault && order != OrderCreate {
		return validationError("search", "invalid order %q, valid values: '' (relevance), 'create' (newest first)", string(order))
	}
	return nil
}

func describeTags() string {
	parts := make([]string, 0, len(tags))
	for _, t := range Tags() {
		parts = append(parts, fmt.Sprintf("%d (%s)", t.ID, t.Label))
	}
	return strings.Join(parts, ", ")
}

type SearchRequest struct {
	Query string
	Page  int
	Tag   TagID
	Order Order
}

type searchPayload struct {
	Type      string       `json:"type"`
	Query     string       `json:"query"`
	Page      int          `json:"page"`
	Tag       []tagPayload `json:"tag"`
	Order     string       `json:"order"`
	GioParams gioParams    `json:"gioParams"`
}

type tagPayload struct {
	Name  string `json:"name"`
	ID    int    `json:"id"`
	Count *int   `json:"count"`
}

type gioParams struct {
	SearchFrom  string `json:"searchFrom_var"`
	SearchEnter string `json:"searchEnter_var"`
}

func newSearchPayload(req SearchRequest) searchPayload {
	tagList := []tagPayload{}
	if t, ok := tags[req.Tag]; ok {
		tagList = append(tagList, tagPayload{Name: t.Name, ID: int(t.ID)})
	}
	return searchPayload{
		Type:  "all",
		Query: req.Query,
		Page:  req.Page,
		Tag:   tagList,
		Order: string(req.Order),
		GioParams: gioParams{
			SearchFrom:  "顶部导航栏",
			SearchEnter: "主站",
		},
	}
}

// SearchClient issues single-page requests against the search endpoint.
type SearchClient struct {
	client   *httpx.APIClient
	endpoint string
}

var _ Searcher = (*SearchClient)(nil)

func NewSearchClient(client *httpx.APIClient, endpoint string) *SearchClient {
	if endpoint == "" {
		endpoint = DefaultSearchURL
	}
	return &SearchClient{client: client, endpoint: endpoint}
}

// Search fetches one page. Validation failures are returned before any request.
func (c *SearchClient) Search(ctx context.Context, req SearchRequest) (*RawSearchResponse, error) {
	if err := ValidateFilters(req.Tag, req.Order); err != nil {
		return nil, err
	}
	if req.Page < 1 {
		req.Page = 1
	}

	body, err := c.client.PostJSON(ctx, c.endpoint, newSearchPayload(req))
	if err != nil {
		return nil, networkError("search", err)
	}

	var raw RawSearchResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, networkError("search", fmt.Errorf("decode failed: %w", err))
	}
	return &raw, nil
}
