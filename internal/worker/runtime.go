// Package worker runs the crawl fleet: claim dispatches from the job
// stream, run the crawler engine, persist outcomes, acknowledge. Every
// step is idempotent on task_id so at-least-once delivery is safe.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/crawler"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/database"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/metrics"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/queue"
)

const (
	defaultConcurrency  = 2
	defaultStatusPoll   = 3 * time.Second
	readFailureBackoff  = 2 * time.Second
	finalizationTimeout = 15 * time.Second
)

// TaskStore is the task persistence the runtime needs.
type TaskStore interface {
	GetByID(ctx context.Context, taskID string) (*domain.CrawlTask, error)
	UpdateStatus(ctx context.Context, taskID string, next domain.TaskStatus, taskErr string) error
	SetResult(ctx context.Context, taskID string, docIDs, failedURLs []string) error
}

// Source supplies crawl dispatches. queue.Consumer is the production
// implementation.
type Source interface {
	Initialize(ctx context.Context) error
	Read(ctx context.Context) ([]*queue.ConsumedDispatch, error)
	Acknowledge(ctx context.Context, messageID string) error
	PendingCount(ctx context.Context) (int64, error)
}

// Crawler runs one task to completion.
type Crawler interface {
	Run(ctx context.Context, task *domain.CrawlTask) (crawler.Result, error)
}

// Runtime is one worker process: a claim loop fanning dispatches out to
// a bounded set of concurrent crawls.
type Runtime struct {
	source  Source
	store   TaskStore
	engine  Crawler
	log     logger.Interface
	metrics *metrics.Metrics

	concurrency int
	statusPoll  time.Duration

	sem chan struct{}
	wg  sync.WaitGroup
}

// Deps wires a Runtime. Metrics may be nil.
type Deps struct {
	Source  Source
	Store   TaskStore
	Engine  Crawler
	Log     logger.Interface
	Metrics *metrics.Metrics

	// Concurrency caps simultaneous crawls; zero means 2.
	Concurrency int
	// StatusPoll is how often a running crawl checks for external
	// cancellation; zero means 3s.
	StatusPoll time.Duration
}

// NewRuntime validates dependencies and builds a worker runtime.
func NewRuntime(deps Deps) (*Runtime, error) {
	switch {
	case deps.Source == nil:
		return nil, errors.New("worker: dispatch source is required")
	case deps.Store == nil:
		return nil, errors.New("worker: task store is required")
	case deps.Engine == nil:
		return nil, errors.New("worker: crawler engine is required")
	case deps.Log == nil:
		return nil, errors.New("worker: logger is required")
	}
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	statusPoll := deps.StatusPoll
	if statusPoll <= 0 {
		statusPoll = defaultStatusPoll
	}
	return &Runtime{
		source:      deps.Source,
		store:       deps.Store,
		engine:      deps.Engine,
		log:         deps.Log,
		metrics:     deps.Metrics,
		concurrency: concurrency,
		statusPoll:  statusPoll,
		sem:         make(chan struct{}, concurrency),
	}, nil
}

// Run claims and executes dispatches until ctx is cancelled, then drains
// in-flight crawls before returning. Crawls interrupted by shutdown stay
// unacknowledged, so another worker reclaims them.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.source.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize dispatch source: %w", err)
	}
	r.log.Info("worker started", "concurrency", r.concurrency)

	for ctx.Err() == nil {
		dispatches, err := r.source.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			r.log.Error("failed to read dispatches", "error", err)
			sleep(ctx, readFailureBackoff)
			continue
		}
		r.sampleQueueDepth(ctx)

		for _, d := range dispatches {
			select {
			case r.sem <- struct{}{}:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
			r.wg.Add(1)
			go func(d *queue.ConsumedDispatch) {
				defer r.wg.Done()
				defer func() { <-r.sem }()
				r.handle(ctx, d)
			}(d)
		}
	}

	r.wg.Wait()
	r.log.Info("worker drained")
	return nil
}

// handle runs one dispatch end to end. Acknowledging only after the
// outcome is persisted keeps delivery at-least-once; skipping terminal
// tasks keeps redelivery harmless.
func (r *Runtime) handle(ctx context.Context, d *queue.ConsumedDispatch) {
	taskID := d.Dispatch.TaskID

	task, err := r.store.GetByID(ctx, taskID)
	if errors.Is(err, database.ErrNotFound) {
		// Deleted between dispatch and claim; consume the message.
		r.log.Warn("dispatch for missing task", "task_id", taskID, "message_id", d.MessageID)
		r.ack(ctx, d)
		return
	}
	if err != nil {
		r.log.Error("failed to load task", "task_id", taskID, "error", err)
		return
	}

	if task.Status.Terminal() {
		r.log.Info("skipping terminal task",
			"task_id", taskID,
			"status", string(task.Status),
			"reclaimed", d.Reclaimed)
		r.recordOutcome("skipped")
		r.ack(ctx, d)
		return
	}

	// Start writes running before enqueueing, so created here means that
	// write was lost; repair the record before crawling.
	if task.Status == domain.TaskStatusCreated {
		if err := r.store.UpdateStatus(ctx, taskID, domain.TaskStatusRunning, ""); err != nil {
			r.log.Warn("failed to mark claimed task running", "task_id", taskID, "error", err)
		}
	}

	if r.metrics != nil {
		r.metrics.ActiveWorkers.Inc()
		defer r.metrics.ActiveWorkers.Dec()
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	watcher := newCancelWatcher(r.store, taskID, r.statusPoll, r.log)
	go watcher.run(runCtx, cancelRun)

	res, runErr := r.engine.Run(runCtx, task)
	cancelRun()
	watcher.wait()

	if runErr != nil && ctx.Err() != nil {
		// Shutdown interrupted the crawl. Leave the task running and the
		// message unacknowledged; a reclaim will rerun it.
		r.log.Warn("shutdown interrupted crawl",
			"task_id", taskID,
			"documents", len(res.DocIDs))
		return
	}

	finCtx, cancelFin := context.WithTimeout(context.Background(), finalizationTimeout)
	defer cancelFin()

	if runErr != nil {
		// The watcher cancelled the run: the task was cancelled or
		// deleted while crawling. Record partials if it still exists.
		if !watcher.taskGone() {
			if err := r.store.SetResult(finCtx, taskID, res.DocIDs, res.FailedURLs); err != nil {
				r.log.Warn("failed to record cancelled-task result", "task_id", taskID, "error", err)
			}
		}
		r.log.Info("crawl cancelled",
			"task_id", taskID,
			"documents", len(res.DocIDs))
		r.recordOutcome("cancelled")
		r.ack(finCtx, d)
		return
	}

	if err := r.store.SetResult(finCtx, taskID, res.DocIDs, res.FailedURLs); err != nil {
		r.log.Error("failed to record task result", "task_id", taskID, "error", err)
		return
	}

	outcome := domain.TaskStatusCompleted
	reason := ""
	if len(res.DocIDs) == 0 && len(res.FailedURLs) > 0 {
		outcome = domain.TaskStatusFailed
		reason = fmt.Sprintf("all %d fetched urls failed", len(res.FailedURLs))
	}
	if err := r.store.UpdateStatus(finCtx, taskID, outcome, reason); err != nil {
		// A cancel racing the finish line is fine: the task is terminal
		// either way and the message is consumed.
		if !errors.Is(err, database.ErrInvalidTransition) {
			r.log.Error("failed to finalize task", "task_id", taskID, "error", err)
			return
		}
		r.log.Info("task finalized concurrently", "task_id", taskID)
	}

	r.log.Info("crawl task finished",
		"task_id", taskID,
		"status", string(outcome),
		"documents", len(res.DocIDs),
		"failed_urls", len(res.FailedURLs),
		"pages_crawled", res.Progress.PagesCrawled)
	r.recordOutcome(string(outcome))
	r.ack(finCtx, d)
}

func (r *Runtime) ack(ctx context.Context, d *queue.ConsumedDispatch) {
	if err := r.source.Acknowledge(ctx, d.MessageID); err != nil {
		r.log.Warn("failed to acknowledge dispatch",
			"message_id", d.MessageID,
			"task_id", d.Dispatch.TaskID,
			"error", err)
	}
}

func (r *Runtime) recordOutcome(outcome string) {
	if r.metrics != nil {
		r.metrics.JobsCompleted.WithLabelValues(outcome).Inc()
	}
}

func (r *Runtime) sampleQueueDepth(ctx context.Context) {
	if r.metrics == nil {
		return
	}
	if n, err := r.source.PendingCount(ctx); err == nil {
		r.metrics.QueueDepth.Set(float64(n))
	}
}

// cancelWatcher polls a running task's status and cancels the crawl when
// the task is cancelled or deleted out from under it.
type cancelWatcher struct {
	store  TaskStore
	taskID string
	poll   time.Duration
	log    logger.Interface

	done chan struct{}
	gone bool
}

func newCancelWatcher(store TaskStore, taskID string, poll time.Duration, log logger.Interface) *cancelWatcher {
	return &cancelWatcher{
		store:  store,
		taskID: taskID,
		poll:   poll,
		log:    log,
		done:   make(chan struct{}),
	}
}

func (w *cancelWatcher) run(ctx context.Context, cancel context.CancelFunc) {
	defer close(w.done)
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			task, err := w.store.GetByID(ctx, w.taskID)
			if errors.Is(err, database.ErrNotFound) {
				w.log.Warn("task deleted mid-crawl", "task_id", w.taskID)
				w.gone = true
				cancel()
				return
			}
			if err != nil {
				w.log.Debug("status poll failed", "task_id", w.taskID, "error", err)
				continue
			}
			if task.Status == domain.TaskStatusCancelled {
				w.log.Info("task cancelled externally", "task_id", w.taskID)
				cancel()
				return
			}
		}
	}
}

// wait blocks until the watcher goroutine has exited. Callers read
// taskGone only after wait returns.
func (w *cancelWatcher) wait() { <-w.done }

func (w *cancelWatcher) taskGone() bool { return w.gone }

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
