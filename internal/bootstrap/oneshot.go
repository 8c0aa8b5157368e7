package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/answer"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/chat"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/config"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/crawler"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/database"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/dedup"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/extract"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/extract/ocr"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/extract/render"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/links"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/llm"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/metrics"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/objectstore"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/pipeline"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/proxy"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/query"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/queue"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/retrieval"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/vector"
)

// CrawlParams configures a one-shot crawl.
type CrawlParams struct {
	URL          string
	UserID       string
	MaxDocuments int
	RenderJS     bool
}

// CrawlReport summarizes a finished one-shot crawl for the CLI.
type CrawlReport struct {
	Task       *domain.CrawlTask
	DocIDs     []string
	FailedURLs []string
	Progress   domain.Progress
}

// RunCrawl runs one crawl inline, without the queue: it creates a task
// record, drives the engine to completion in-process, and finalizes the
// record exactly as a worker would. Meant for development and debugging.
func RunCrawl(ctx context.Context, opts Options, params CrawlParams) (*CrawlReport, error) {
	seedURL := strings.TrimSpace(params.URL)
	if err := domain.ValidateSeedURL(seedURL); err != nil {
		return nil, err
	}

	app, err := load(opts)
	if err != nil {
		return nil, err
	}
	defer app.log.Sync() //nolint:errcheck
	cfg := app.cfg
	log := app.log

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	dctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	db, err := database.Connect(dctx, cfg.Metadata, log)
	if err != nil {
		return nil, err
	}
	defer db.Close(context.Background()) //nolint:errcheck
	taskRepo := database.NewTaskRepository(db)
	docRepo := database.NewDocumentRepository(db)

	store, err := objectstore.New(cfg.ObjectStore, log)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(dctx); err != nil {
		return nil, err
	}
	documents := objectstore.NewDocuments(store, log)

	gateway := proxy.NewGateway(proxy.NewProvider(proxy.ClientConfig{
		APIKey:      cfg.Proxy.APIKey,
		BaseURL:     cfg.Proxy.BaseURL,
		CountryCode: cfg.Proxy.CountryCode,
		Timeout:     cfg.Proxy.Timeout,
		UserAgent:   cfg.Proxy.UserAgent,
	}, log), proxy.NewHostCache(cfg.Proxy.CacheTTL), log, m)

	extractor := buildExtractor(dctx, cfg, documents, m, log)

	enricher, err := pipeline.NewEnricher(extractor, documents, docRepo, log)
	if err != nil {
		return nil, err
	}

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
		Log:       log,
		Metrics:   m,
	})
	if err != nil {
		return nil, err
	}

	crawlCfg := domain.CrawlConfig{
		MaxDocuments: params.MaxDocuments,
		RenderJS:     params.RenderJS,
	}
	crawlCfg.Normalize()

	userID := strings.TrimSpace(params.UserID)
	if userID == "" {
		userID = "local"
	}

	now := time.Now().UTC()
	task := &domain.CrawlTask{
		TaskID:    uuid.NewString(),
		UserID:    userID,
		SeedURL:   seedURL,
		Status:    domain.TaskStatusCreated,
		Config:    crawlCfg,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}
	if err := taskRepo.UpdateStatus(ctx, task.TaskID, domain.TaskStatusRunning, ""); err != nil {
		return nil, err
	}

	log.Info("one-shot crawl starting",
		"task_id", task.TaskID,
		"seed_url", seedURL,
		"max_documents", crawlCfg.MaxDocuments)

	res, runErr := engine.Run(ctx, task)

	// Finalize on a fresh context so Ctrl-C still leaves a truthful record.
	finCtx, cancelFin := context.WithTimeout(context.Background(), connectTimeout)
	defer cancelFin()

	if err := taskRepo.SetResult(finCtx, task.TaskID, res.DocIDs, res.FailedURLs); err != nil {
		log.Warn("failed to record crawl result", "task_id", task.TaskID, "error", err)
	}

	outcome := domain.TaskStatusCompleted
	reason := ""
	switch {
	case runErr != nil:
		outcome = domain.TaskStatusFailed
		reason = runErr.Error()
	case len(res.DocIDs) == 0 && len(res.FailedURLs) > 0:
		outcome = domain.TaskStatusFailed
		reason = fmt.Sprintf("all %d fetched urls failed", len(res.FailedURLs))
	}
	if err := taskRepo.UpdateStatus(finCtx, task.TaskID, outcome, reason); err != nil {
		log.Warn("failed to finalize crawl task", "task_id", task.TaskID, "error", err)
	}
	task.Status = outcome
	task.Error = reason

	if runErr != nil {
		return nil, fmt.Errorf("crawl failed: %w", runErr)
	}
	return &CrawlReport{
		Task:       task,
		DocIDs:     res.DocIDs,
		FailedURLs: res.FailedURLs,
		Progress:   res.Progress,
	}, nil
}

// AskParams configures a one-shot question.
type AskParams struct {
	SessionID string
	Question  string
}

// RunAsk answers one question against an existing session through the
// same plan → retrieve → answer path the API uses, then waits out any
// background indexing it may have kicked off.
func RunAsk(ctx context.Context, opts Options, params AskParams) (*chat.Reply, error) {
	if strings.TrimSpace(params.SessionID) == "" {
		return nil, errors.New("session ID is required")
	}

	app, err := load(opts)
	if err != nil {
		return nil, err
	}
	defer app.log.Sync() //nolint:errcheck
	cfg := app.cfg
	log := app.log

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	m := metrics.New()

	db, err := database.Connect(dctx, cfg.Metadata, log)
	if err != nil {
		return nil, err
	}
	defer db.Close(context.Background()) //nolint:errcheck
	taskRepo := database.NewTaskRepository(db)
	docRepo := database.NewDocumentRepository(db)
	processedRepo := database.NewProcessedRepository(db)
	sessionRepo := database.NewSessionRepository(db)

	store, err := objectstore.New(cfg.ObjectStore, log)
	if err != nil {
		return nil, err
	}
	documents := objectstore.NewDocuments(store, log)

	streams, err := queue.NewStreamsClient(cfg.Redis)
	if err != nil {
		return nil, err
	}
	defer streams.Close() //nolint:errcheck

	provider, err := vector.New(cfg.Vector, log)
	if err != nil {
		return nil, err
	}
	defer provider.Close() //nolint:errcheck
	embedder, err := vector.NewEmbedder(cfg.Embedding, log, m)
	if err != nil {
		return nil, err
	}
	chunker, err := vector.NewChunker(cfg.Embedding.Model, 0, 0)
	if err != nil {
		return nil, err
	}
	indexer, err := vector.NewIndexer(provider, embedder, chunker, dedup.NewIndex(processedRepo), processedRepo, log, m)
	if err != nil {
		return nil, err
	}

	extractor := buildExtractor(dctx, cfg, documents, m, log)
	sessionIndexer, err := pipeline.NewSessionIndexer(indexer, docRepo, documents, extractor, 0, log)
	if err != nil {
		return nil, err
	}

	numericCache := query.NewNumericContextCache(streams.Client(), cfg.Chat.NumericCacheTTL, log)

	llmProvider, err := llm.New(cfg.LLM)
	if err != nil {
		return nil, err
	}
	answerer, err := answer.NewAnswerer(llmProvider, cfg.LLM, log, m)
	if err != nil {
		return nil, err
	}

	chatService, err := chat.NewService(chat.Deps{
		Sessions:  sessionRepo,
		Tasks:     taskRepo,
		Planner:   query.NewPlanner(numericCache, log, m),
		Retriever: retrieval.NewRetriever(indexer, log, m),
		Answerer:  answerer,
		Ingest:    sessionIndexer,
		Records:   indexer,
		Log:       log,
	})
	if err != nil {
		return nil, err
	}

	reply, err := chatService.Ask(ctx, strings.TrimSpace(params.SessionID), params.Question)
	chatService.Wait()
	return reply, err
}

// buildExtractor assembles the tiered extractor. OCR is optional here as
// in the long-running processes: a failed connect degrades to the
// machine-text tiers.
func buildExtractor(ctx context.Context, cfg *config.Config, documents *objectstore.Documents, m *metrics.Metrics, log logger.Interface) *extract.Extractor {
	opts := []extract.Option{
		extract.WithRenderer(render.NewFitz()),
		extract.WithTempStager(documents),
		extract.WithMetrics(m),
	}
	if ocrEngine, err := ocr.Connect(ctx, cfg.OCR, log); err != nil {
		log.Warn("ocr unavailable, continuing without it", "error", err)
	} else {
		opts = append(opts, extract.WithOCR(ocrEngine))
	}
	return extract.New(log, opts...)
}
