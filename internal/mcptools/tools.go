package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/baxromumarov/nowcoder-search/internal/core"
	"github.com/baxromumarov/nowcoder-search/internal/observability"
	"github.com/baxromumarov/nowcoder-search/internal/scraper"
)

const (
	ToolSearch        = "search"
	ToolBatchSearch   = "batch_search"
	ToolFeedDetails   = "get_feed_details"
	ToolDiscussDetail = "get_discuss_details"
)

// SearchArgs defines the arguments for the search tool.
type SearchArgs struct {
	Query    string      `json:"query" jsonschema:"keyword to search for"`
	MaxPages *int        `json:"max_pages,omitempty" jsonschema:"pages to fetch, default 1; 0 or -1 fetches every page"`
	Tag      NullableTag `json:"tag,omitempty" jsonschema:"category filter: 818 interview experience (default), 861 job-search progress, 823 referral, 856 company review; null for no filter"`
	Order    *string     `json:"order,omitempty" jsonschema:"'create' for newest first (default) or empty for relevance"`
}

// NullableTag records whether a tag argument was sent at all, so an omitted
// tag and an explicit null can mean different things.
type NullableTag struct {
	set   bool
	null  bool
	value int
}

func (n *NullableTag) UnmarshalJSON(b []byte) error {
	n.set = true
	if string(b) == "null" {
		n.null = true
		return nil
	}
	return json.Unmarshal(b, &n.value)
}

// resolve maps absent to def and null to no filter. Any sent id must be one
// of the recognized tags.
func (n NullableTag) resolve(def scraper.TagID) (scraper.TagID, error) {
	switch {
	case !n.set:
		return def, nil
	case n.null:
		return scraper.TagNone, nil
	}
	return scraper.ParseTagID(n.value)
}

func searchInputSchema() *jsonschema.Schema {
	schema, err := jsonschema.For[SearchArgs](&jsonschema.ForOptions{
		TypeSchemas: map[reflect.Type]*jsonschema.Schema{
			reflect.TypeFor[NullableTag](): {Types: []string{"null", "integer"}},
		},
	})
	if err != nil {
		panic(fmt.Sprintf("search input schema: %v", err))
	}
	return schema
}

// BatchSearchArgs defines the arguments for the batch_search tool.
type BatchSearchArgs struct {
	Keywords []string `json:"keywords" jsonschema:"keywords searched one after another"`
	MaxPages *int     `json:"max_pages,omitempty" jsonschema:"pages per keyword, default 1; 0 or -1 fetches every page"`
	Tag      *int     `json:"tag,omitempty" jsonschema:"category filter id (818, 861, 823, 856); omitted or null means no filter"`
	Order    *string  `json:"order,omitempty" jsonschema:"'create' for newest first or empty for relevance (default)"`
}

type FeedDetailArgs struct {
	UUID string `json:"uuid" jsonschema:"uuid of a feed item (rc_type=201)"`
}

type DiscussDetailArgs struct {
	ContentID string `json:"content_id" jsonschema:"content_id of a discussion post (rc_type=207)"`
}

// BatchResult maps each keyword to its aggregated result.
type BatchResult map[string]core.AggregatedResult

type searchTools struct {
	svc Service
}

func (t *searchTools) RegisterTools(server *mcp.Server) {
	readOnly := &mcp.ToolAnnotations{ReadOnlyHint: true}

	mcp.AddTool(server, &mcp.Tool{
		Name: ToolSearch,
		Description: "Search NowCoder posts by keyword. Returns merged records with title, rc_type, " +
			"uuid (rc_type=201) or content_id (rc_type=207), timestamps, counters, company and job title.",
		InputSchema: searchInputSchema(),
		Annotations: readOnly,
	}, t.search)

	mcp.AddTool(server, &mcp.Tool{
		Name: ToolBatchSearch,
		Description: "Search several keywords in sequence. Returns a map from keyword to its result; " +
			"a keyword that fails maps to an empty result.",
		Annotations: readOnly,
	}, t.batchSearch)

	mcp.AddTool(server, &mcp.Tool{
		Name: ToolFeedDetails,
		Description: "Fetch the full text of a feed item (rc_type=201) by uuid. " +
			"For discussion posts (rc_type=207) use get_discuss_details.",
		Annotations: readOnly,
	}, t.feedDetails)

	mcp.AddTool(server, &mcp.Tool{
		Name: ToolDiscussDetail,
		Description: "Fetch the full text of a discussion post (rc_type=207) by content_id. " +
			"For feed items (rc_type=201) use get_feed_details.",
		Annotations: readOnly,
	}, t.discussDetails)
}

func (t *searchTools) search(ctx context.Context, _ *mcp.CallToolRequest, in SearchArgs) (*mcp.CallToolResult, core.AggregatedResult, error) {
	start := time.Now()
	opts, err := searchOptions(in)
	if err == nil {
		var res core.AggregatedResult
		res, err = t.svc.Search(ctx, opts)
		if err == nil {
			record(ToolSearch, start, nil)
			return nil, res, nil
		}
	}
	record(ToolSearch, start, err)
	return nil, core.AggregatedResult{}, toolError("search", err)
}

func (t *searchTools) batchSearch(ctx context.Context, _ *mcp.CallToolRequest, in BatchSearchArgs) (*mcp.CallToolResult, BatchResult, error) {
	start := time.Now()
	opts, err := batchOptions(in)
	if err == nil {
		var res map[string]core.AggregatedResult
		res, err = t.svc.BatchSearch(ctx, in.Keywords, opts)
		if err == nil {
			record(ToolBatchSearch, start, nil)
			return nil, BatchResult(res), nil
		}
	}
	record(ToolBatchSearch, start, err)
	return nil, nil, toolError("batch search", err)
}

func (t *searchTools) feedDetails(ctx context.Context, _ *mcp.CallToolRequest, in FeedDetailArgs) (*mcp.CallToolResult, scraper.FeedDetail, error) {
	start := time.Now()
	detail, err := t.svc.FeedDetail(ctx, in.UUID)
	record(ToolFeedDetails, start, err)
	if err != nil {
		return nil, scraper.FeedDetail{}, toolError("get feed details", err)
	}
	return nil, detail, nil
}

func (t *searchTools) discussDetails(ctx context.Context, _ *mcp.CallToolRequest, in DiscussDetailArgs) (*mcp.CallToolResult, scraper.DiscussDetail, error) {
	start := time.Now()
	detail, err := t.svc.DiscussDetail(ctx, in.ContentID)
	record(ToolDiscussDetail, start, err)
	if err != nil {
		return nil, scraper.DiscussDetail{}, toolError("get discuss details", err)
	}
	return nil, detail, nil
}

func searchOptions(in SearchArgs) (core.SearchOptions, error) {
	maxPages, err := resolveMaxPages(in.MaxPages)
	if err != nil {
		return core.SearchOptions{}, err
	}
	tag, err := in.Tag.resolve(core.DefaultTag)
	if err != nil {
		return core.SearchOptions{}, err
	}
	opts := core.SearchOptions{
		Query:    in.Query,
		MaxPages: maxPages,
		Tag:      tag,
		Order:    core.DefaultOrder,
	}
	if in.Order != nil {
		opts.Order = scraper.Order(*in.Order)
	}
	return opts, nil
}

func batchOptions(in BatchSearchArgs) (core.BatchOptions, error) {
	maxPages, err := resolveMaxPages(in.MaxPages)
	if err != nil {
		return core.BatchOptions{}, err
	}
	opts := core.BatchOptions{MaxPages: maxPages}
	if in.Tag != nil {
		if opts.Tag, err = scraper.ParseTagID(*in.Tag); err != nil {
			return core.BatchOptions{}, err
		}
	}
	if in.Order != nil {
		opts.Order = scraper.Order(*in.Order)
	}
	return opts, nil
}

func resolveMaxPages(v *int) (int, error) {
	if v == nil {
		return core.DefaultMaxPages, nil
	}
	if err := core.ValidateMaxPages(*v); err != nil {
		return 0, err
	}
	return *v, nil
}

// toolError turns err into the single message shown to the caller.
func toolError(action string, err error) error {
	if scraper.IsKind(err, scraper.ErrorNetwork) {
		return fmt.Errorf("network request failed: %v", err)
	}
	return fmt.Errorf("%s failed: %v", action, err)
}

func record(tool string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
		log.Warn().Err(err).Str("tool", tool).Msg("tool call failed")
	}
	observability.ObserveToolCall(tool, status, time.Since(start).Seconds())
}
