package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/baxromumarov/nowcoder-search/internal/core"
	"github.com/baxromumarov/nowcoder-search/internal/scraper"
)

const (
	ServerName = "nowcoder-search"

	instructions = "Searches NowCoder (牛客网) by keyword and fetches full post text. " +
		"Results carry one of two content kinds: feed items (rc_type=201, identified by uuid, " +
		"read them with get_feed_details) and discussion posts (rc_type=207, identified by content_id, " +
		"read them with get_discuss_details)."
)

// Service is the search backend the tools call into.
type Service interface {
	Search(ctx context.Context, opts core.SearchOptions) (core.AggregatedResult, error)
	BatchSearch(ctx context.Context, keywords []string, opts core.BatchOptions) (map[string]core.AggregatedResult, error)
	FeedDetail(ctx context.Context, uuid string) (scraper.FeedDetail, error)
	DiscussDetail(ctx context.Context, contentID string) (scraper.DiscussDetail, error)
}

var _ Service = (*core.SearchService)(nil)

// NewServer builds an MCP server exposing the search tools.
func NewServer(svc Service, version string) *mcp.Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: version,
	}, &mcp.ServerOptions{
		Instructions: instructions,
	})

	tools := &searchTools{svc: svc}
	tools.RegisterTools(server)
	return server
}

// NewHTTPHandler serves server over stateless streamable HTTP.
func NewHTTPHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{Stateless: true})
}

// RunStdio serves server on stdin/stdout until ctx is done or the client disconnects.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
