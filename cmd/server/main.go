package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/baxromumarov/nowcoder-search/internal/api"
	"github.com/baxromumarov/nowcoder-search/internal/config"
	"github.com/baxromumarov/nowcoder-search/internal/core"
	"github.com/baxromumarov/nowcoder-search/internal/logger"
	"github.com/baxromumarov/nowcoder-search/internal/mcptools"
	"github.com/baxromumarov/nowcoder-search/internal/observability"
)

var version = "dev"

func main() {
	httpMode := flag.Bool("http", false, "Serve streamable HTTP instead of stdio")
	addr := flag.String("addr", "", "HTTP listen address (overrides NOWCODER_HTTP_ADDR)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Init("info", "console")
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}

	if err := observability.RegisterMetrics(nil); err != nil {
		log.Fatal().Err(err).Msg("failed to register metrics")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := core.NewSearchServiceFromConfig(cfg)
	mcpServer := mcptools.NewServer(svc, version)

	if !*httpMode {
		log.Info().Str("transport", "stdio").Msg("starting server")
		if err := mcptools.RunStdio(ctx, mcpServer); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal().Err(err).Msg("stdio server failed")
		}
		return
	}

	srv := api.NewServer(svc, mcptools.NewHTTPHandler(mcpServer))
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	log.Info().Str("transport", "http").Str("addr", cfg.HTTPAddr).Msg("starting server")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}
