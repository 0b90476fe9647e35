// Command server runs the URL analysis and screenshot service: it wires
// together the browser pool, worker pool and HTTP surface and shuts them
// down gracefully on SIGINT/SIGTERM.
package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/BetterCallFirewall/urlscreen/internal/anonymizer"
	"github.com/BetterCallFirewall/urlscreen/internal/browserpool"
	"github.com/BetterCallFirewall/urlscreen/internal/config"
	"github.com/BetterCallFirewall/urlscreen/internal/crawler"
	"github.com/BetterCallFirewall/urlscreen/internal/httpapi"
	"github.com/BetterCallFirewall/urlscreen/internal/logging"
	"github.com/BetterCallFirewall/urlscreen/internal/orchestrator"
	"github.com/BetterCallFirewall/urlscreen/internal/screenshot"
	"github.com/BetterCallFirewall/urlscreen/internal/tlsinfo"
	"github.com/BetterCallFirewall/urlscreen/internal/urlanalyzer"
	"github.com/BetterCallFirewall/urlscreen/internal/whois"
	"github.com/BetterCallFirewall/urlscreen/internal/worker"
	"github.com/BetterCallFirewall/urlscreen/internal/wsfeed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, closeLog, err := logging.NewFileLogger(false, cfg.LogDir)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = closeLog() }()
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("service exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	anon := anonymizer.New(logger)
	analyzer := urlanalyzer.New(logger, anon)

	crawlerCfg := crawler.NewConfig(
		crawler.WithMaxHops(cfg.MaxHops),
		crawler.WithMaxURLLength(cfg.MaxURLLength),
		crawler.WithAllowedSchemes(cfg.AllowedSchemes),
		crawler.WithRequestTimeout(cfg.CrawlerRequestTimeout),
		crawler.WithRateLimitDelay(cfg.RateLimitDelay),
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithConnectTimeout(cfg.RequestConnectTimeout),
		crawler.WithPoolIdleTimeout(cfg.PoolIdleTimeout),
		crawler.WithPoolMaxIdlePerHost(cfg.PoolMaxIdlePerHost),
		crawler.WithFollowHostnameRedirectsOnly(cfg.FollowHostnameRedirectsOnly),
		crawler.WithDetectMetaRefresh(cfg.DetectMetaRefresh),
	)
	crw := crawler.New(logger)

	browserPool, err := browserpool.New(ctx, logger, cfg.WebdriverURL, cfg.ViewportWidth, cfg.ViewportHeight, cfg.Headless, browserpool.MaxSessions)
	if err != nil {
		return err
	}
	defer browserPool.Close()

	taker, err := screenshot.New(logger, cfg.ScreenshotDir, browserPool)
	if err != nil {
		return err
	}

	tlsFetcher := tlsinfo.New(logger)
	whoisFetcher := whois.New(logger)

	processor := orchestrator.New(logger, analyzer, crw, crawlerCfg, taker, tlsFetcher, whoisFetcher)

	pool := worker.New(logger, processor, cfg.WorkerCount, cfg.QueueSize, cfg.JobTimeout)

	hub := wsfeed.NewHub(logger)
	go hub.Run()

	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	server := httpapi.New(logger, addr, pool, browserPool, hub, cfg.RequestTimeout)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Warn("error during HTTP server shutdown", zap.Error(err))
	}
	if err := pool.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error during worker pool shutdown", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}
