package bootstrap

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/answer"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/api"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/chat"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/database"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/dedup"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/events"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/janitor"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/llm"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/metrics"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/objectstore"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/pipeline"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/query"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/queue"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/retrieval"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/server"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/tasks"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/vector"
)

// RunHTTPD assembles and runs the control plane: the public HTTP API,
// task dispatch, the progress consumer feeding SSE subscribers, the chat
// pipeline, and the background janitor. It blocks until the context is
// canceled, a signal arrives, or a fatal component error occurs.
func RunHTTPD(ctx context.Context, opts Options) error {
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

	// Metadata store.
	db, err := database.Connect(dctx, cfg.Metadata, log)
	if err != nil {
		return err
	}
	defer db.Close(context.Background()) //nolint:errcheck // best-effort on shutdown
	if err := db.EnsureIndexes(dctx); err != nil {
		return err
	}
	taskRepo := database.NewTaskRepository(db)
	docRepo := database.NewDocumentRepository(db)
	processedRepo := database.NewProcessedRepository(db)
	sessionRepo := database.NewSessionRepository(db)

	// Object store.
	store, err := objectstore.New(cfg.ObjectStore, log)
	if err != nil {
		return err
	}
	if err := store.EnsureBucket(dctx); err != nil {
		return err
	}
	documents := objectstore.NewDocuments(store, log)

	// Job queue and progress stream.
	streams, err := queue.NewStreamsClient(cfg.Redis)
	if err != nil {
		return err
	}
	defer streams.Close() //nolint:errcheck
	if err := streams.Ping(dctx); err != nil {
		return fmt.Errorf("redis unreachable: %w", err)
	}
	producer := queue.NewProducer(streams, queue.ProducerConfig{}, log, m)

	broker := events.NewBroker(log)
	if err := broker.Start(ctx); err != nil {
		return err
	}
	defer broker.Stop() //nolint:errcheck

	controller, err := tasks.NewController(tasks.Deps{
		Store:     taskRepo,
		Docs:      docRepo,
		Processed: processedRepo,
		Artifacts: documents,
		Queue:     producer,
		Events:    broker,
		Log:       log,
		Metrics:   m,
	})
	if err != nil {
		return err
	}

	progress, err := events.NewConsumer(streams, events.ConsumerConfig{
		ConsumerID: consumerID("httpd"),
	}, controller.ApplyProgress, log)
	if err != nil {
		return err
	}

	// Vector indexing.
	provider, err := vector.New(cfg.Vector, log)
	if err != nil {
		return err
	}
	defer provider.Close() //nolint:errcheck
	embedder, err := vector.NewEmbedder(cfg.Embedding, log, m)
	if err != nil {
		return err
	}
	chunker, err := vector.NewChunker(cfg.Embedding.Model, 0, 0)
	if err != nil {
		return err
	}
	indexer, err := vector.NewIndexer(provider, embedder, chunker, dedup.NewIndex(processedRepo), processedRepo, log, m)
	if err != nil {
		return err
	}

	extractor := buildExtractor(dctx, cfg, documents, m, log)

	sessionIndexer, err := pipeline.NewSessionIndexer(indexer, docRepo, documents, extractor, 0, log)
	if err != nil {
		return err
	}

	// Chat pipeline.
	numericCache := query.NewNumericContextCache(streams.Client(), cfg.Chat.NumericCacheTTL, log)
	planner := query.NewPlanner(numericCache, log, m)
	retriever := retrieval.NewRetriever(indexer, log, m)

	llmProvider, err := llm.New(cfg.LLM)
	if err != nil {
		return err
	}
	answerer, err := answer.NewAnswerer(llmProvider, cfg.LLM, log, m)
	if err != nil {
		return err
	}

	chatService, err := chat.NewService(chat.Deps{
		Sessions:  sessionRepo,
		Tasks:     taskRepo,
		Planner:   planner,
		Retriever: retriever,
		Answerer:  answerer,
		Ingest:    sessionIndexer,
		Records:   indexer,
		Log:       log,
	})
	if err != nil {
		return err
	}

	jan := janitor.New(numericCache, sessionRepo, store, log)
	if err := jan.Start(); err != nil {
		return err
	}
	defer jan.Stop()

	handlers := api.Handlers{
		Tasks:  api.NewTasksHandler(controller, log),
		Chat:   api.NewChatHandler(chatService, log),
		Events: api.NewEventsHandler(controller, broker, 0, log),
	}

	srv := server.New(cfg.Server, log, server.Options{
		ServiceName: "crawlchat-httpd",
		Version:     cfg.App.Version,
		Debug:       cfg.App.Debug,
		Metrics:     m,
		ReadyChecks: map[string]server.HealthChecker{
			"metadata":    pingCheck(db.Ping),
			"queue":       pingCheck(streams.Ping),
			"objectstore": pingCheck(store.Ping),
			"vector":      pingCheck(provider.Ping),
		},
		Routes: handlers.Register,
	})

	log.Info("control plane starting",
		"address", cfg.Server.Address,
		"environment", cfg.App.Environment,
		"version", cfg.App.Version)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return progress.Run(gctx)
	})
	g.Go(func() error {
		errCh := srv.StartAsync()
		select {
		case serveErr := <-errCh:
			return serveErr
		case <-gctx.Done():
			return srv.Shutdown(context.Background())
		}
	})

	err = g.Wait()

	// Let in-flight background indexing finish writing records before
	// the stores go away.
	chatService.Wait()

	if err != nil && ctx.Err() == nil {
		return err
	}
	log.Info("control plane stopped")
	return nil
}
