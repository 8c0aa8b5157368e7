package bootstrap

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/crawler"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/database"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/events"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/links"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/metrics"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/objectstore"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/pipeline"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/proxy"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/queue"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/worker"
)

// RunWorker assembles and runs one crawl-worker process: claim dispatches
// from the job stream, crawl, store artifacts, publish progress. It blocks
// until the context is canceled or a signal arrives; in-flight crawls are
// finalized before returning.
func RunWorker(ctx context.Context, opts Options) error {
	app, err := load(opts)
	if err != nil {
		return err
	}
	defer app.log.Sync() //nolint:errcheck // stderr sync failure is unactionable
	cfg := app.cfg
	log := app.log

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	dctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	db, err := database.Connect(dctx, cfg.Metadata, log)
	if err != nil {
		return err
	}
	defer db.Close(context.Background()) //nolint:errcheck // best-effort on shutdown
	taskRepo := database.NewTaskRepository(db)
	docRepo := database.NewDocumentRepository(db)

	store, err := objectstore.New(cfg.ObjectStore, log)
	if err != nil {
		return err
	}
	if err := store.EnsureBucket(dctx); err != nil {
		return err
	}
	documents := objectstore.NewDocuments(store, log)

	streams, err := queue.NewStreamsClient(cfg.Redis)
	if err != nil {
		return err
	}
	defer streams.Close() //nolint:errcheck
	if err := streams.Ping(dctx); err != nil {
		return fmt.Errorf("redis unreachable: %w", err)
	}

	gateway := proxy.NewGateway(proxy.NewProvider(proxy.ClientConfig{
		APIKey:      cfg.Proxy.APIKey,
		BaseURL:     cfg.Proxy.BaseURL,
		CountryCode: cfg.Proxy.CountryCode,
		Timeout:     cfg.Proxy.Timeout,
		UserAgent:   cfg.Proxy.UserAgent,
	}, log), proxy.NewHostCache(cfg.Proxy.CacheTTL), log, m)

	enricher, err := pipeline.NewEnricher(buildExtractor(dctx, cfg, documents, m, log), documents, docRepo, log)
	if err != nil {
		return err
	}

	// robots.txt never needs JS rendering; pin the cheapest tier and let
	// the checker's allow-all fallback absorb fetch failures.
	var robots *crawler.RobotsChecker
	if cfg.Crawler.RespectRobots {
		noJS := proxy.ModeNoJS
		robots = crawler.NewRobotsChecker(func(ctx context.Context, robotsURL string) ([]byte, int, error) {
			resp, fetchErr := gateway.Fetch(ctx, robotsURL, proxy.Options{ForceMode: &noJS})
			if fetchErr != nil {
				return nil, 0, fetchErr
			}
			return resp.Body, resp.StatusCode, nil
		}, cfg.Proxy.UserAgent, 0, log)
	}

	engine, err := crawler.NewEngine(crawler.Deps{
		Gateway:   gateway,
		Processor: enricher,
		Links:     links.NewExtractor(log),
		Robots:    robots,
		Progress:  events.NewPublisher(streams, log),
		Log:       log,
		Metrics:   m,
	})
	if err != nil {
		return err
	}

	source, err := queue.NewConsumer(streams, queue.ConsumerConfig{
		ConsumerID:   consumerID("worker"),
		BlockTimeout: cfg.Worker.BlockTimeout,
		ClaimMinIdle: cfg.Worker.ClaimIdle,
	}, log)
	if err != nil {
		return err
	}

	runtime, err := worker.NewRuntime(worker.Deps{
		Source:      source,
		Store:       taskRepo,
		Engine:      engine,
		Log:         log,
		Metrics:     m,
		Concurrency: cfg.Worker.Concurrency,
	})
	if err != nil {
		return err
	}

	log.Info("worker starting",
		"concurrency", cfg.Worker.Concurrency,
		"environment", cfg.App.Environment,
		"version", cfg.App.Version)

	if err := runtime.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	log.Info("worker stopped")
	return nil
}
