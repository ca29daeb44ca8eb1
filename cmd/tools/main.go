package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/baxromumarov/nowcoder-search/internal/config"
	"github.com/baxromumarov/nowcoder-search/internal/core"
	"github.com/baxromumarov/nowcoder-search/internal/logger"
	"github.com/baxromumarov/nowcoder-search/internal/scraper"
)

func main() {
	query := flag.String("q", "", "Keyword to search")
	keywords := flag.String("batch", "", "Comma-separated keywords for a batch search")
	feed := flag.String("feed", "", "Feed uuid (rc_type=201) to fetch")
	discuss := flag.String("discuss", "", "Discussion content_id (rc_type=207) to fetch")
	maxPages := flag.Int("pages", core.DefaultMaxPages, "Pages to fetch per keyword, 0 or -1 for all")
	tagFlag := flag.Int("tag", int(core.DefaultTag), "Tag id: 818, 861, 823 or 856")
	noTag := flag.Bool("no-tag", false, "Search without a category filter")
	order := flag.String("order", string(core.DefaultOrder), "Sort order: create or empty for relevance")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Init("info", "console")
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.LogLevel, "console")

	if err := core.ValidateMaxPages(*maxPages); err != nil {
		log.Fatal().Err(err).Msg("invalid flags")
	}
	tag := scraper.TagNone
	if !*noTag {
		if tag, err = scraper.ParseTagID(*tagFlag); err != nil {
			log.Fatal().Err(err).Msg("invalid flags")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	svc := core.NewSearchServiceFromConfig(cfg)

	var out any
	switch {
	case *feed != "":
		out, err = svc.FeedDetail(ctx, *feed)
	case *discuss != "":
		out, err = svc.DiscussDetail(ctx, *discuss)
	case *keywords != "":
		out, err = svc.BatchSearch(ctx, splitKeywords(*keywords), core.BatchOptions{
			MaxPages: *maxPages,
			Tag:      tag,
			Order:    scraper.Order(*order),
		})
	case *query != "":
		out, err = svc.Search(ctx, core.SearchOptions{
			Query:    *query,
			MaxPages: *maxPages,
			Tag:      tag,
			Order:    scraper.Order(*order),
		})
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Str("kind", string(scraper.KindOf(err))).Msg("request failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		log.Fatal().Err(err).Msg("failed to write output")
	}
}

func splitKeywords(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
