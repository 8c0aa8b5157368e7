package worker_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/crawler"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/database"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/queue"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/worker"
)

type fakeTaskStore struct {
	mu    sync.Mutex
	tasks map[string]*domain.CrawlTask
}

func newFakeTaskStore(tasks ...*domain.CrawlTask) *fakeTaskStore {
	f := &fakeTaskStore{tasks: make(map[string]*domain.CrawlTask)}
	for _, task := range tasks {
		f.tasks[task.TaskID] = task
	}
	return f
}

func (f *fakeTaskStore) GetByID(_ context.Context, taskID string) (*domain.CrawlTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, database.ErrNotFound)
	}
	cp := *task
	return &cp, nil
}

func (f *fakeTaskStore) UpdateStatus(_ context.Context, taskID string, next domain.TaskStatus, taskErr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, database.ErrNotFound)
	}
	if !task.Status.CanTransition(next) {
		return fmt.Errorf("%s -> %s: %w", task.Status, next, database.ErrInvalidTransition)
	}
	task.Status = next
	if taskErr != "" {
		task.Error = taskErr
	}
	return nil
}

func (f *fakeTaskStore) SetResult(_ context.Context, taskID string, docIDs, failedURLs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, database.ErrNotFound)
	}
	task.Result = docIDs
	task.FailedURLs = failedURLs
	return nil
}

func (f *fakeTaskStore) status(taskID string) domain.TaskStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if task, ok := f.tasks[taskID]; ok {
		return task.Status
	}
	return ""
}

func (f *fakeTaskStore) result(taskID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if task, ok := f.tasks[taskID]; ok {
		return append([]string(nil), task.Result...)
	}
	return nil
}

// fakeSource serves its batches once, then blocks until the read context
// is cancelled, matching the consumer's blocking-read behavior.
type fakeSource struct {
	mu      sync.Mutex
	batches [][]*queue.ConsumedDispatch
	acks    []string
}

func (f *fakeSource) Initialize(context.Context) error { return nil }

func (f *fakeSource) Read(ctx context.Context) ([]*queue.ConsumedDispatch, error) {
	f.mu.Lock()
	if len(f.batches) > 0 {
		batch := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()
		return batch, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeSource) Acknowledge(_ context.Context, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, messageID)
	return nil
}

func (f *fakeSource) PendingCount(context.Context) (int64, error) { return 0, nil }

func (f *fakeSource) ackCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.acks)
}

type fakeEngine struct {
	mu     sync.Mutex
	tasks  []string
	result crawler.Result

	// block makes Run wait for ctx cancellation and return ctx.Err(),
	// standing in for a crawl interrupted mid-flight.
	block   bool
	started sync.Once
	running chan struct{}
	onRun   func()
}

func newFakeEngine(result crawler.Result) *fakeEngine {
	return &fakeEngine{result: result, running: make(chan struct{})}
}

func (f *fakeEngine) Run(ctx context.Context, task *domain.CrawlTask) (crawler.Result, error) {
	f.mu.Lock()
	f.tasks = append(f.tasks, task.TaskID)
	f.mu.Unlock()
	f.started.Do(func() { close(f.running) })
	if f.onRun != nil {
		f.onRun()
	}
	if f.block {
		<-ctx.Done()
		return f.result, ctx.Err()
	}
	return f.result, nil
}

func (f *fakeEngine) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

func dispatchFor(task *domain.CrawlTask) *queue.ConsumedDispatch {
	return &queue.ConsumedDispatch{
		MessageID: "msg-" + task.TaskID,
		Dispatch: &queue.Dispatch{
			TaskID:  task.TaskID,
			UserID:  task.UserID,
			SeedURL: task.SeedURL,
			Config:  task.Config,
		},
	}
}

func newRuntime(t *testing.T, source *fakeSource, store *fakeTaskStore, engine *fakeEngine) *worker.Runtime {
	t.Helper()
	rt, err := worker.NewRuntime(worker.Deps{
		Source:     source,
		Store:      store,
		Engine:     engine,
		Log:        logger.NewNoop(),
		StatusPoll: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	return rt
}

// waitFor polls cond until it holds or the deadline lapses.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func runningTask(taskID string) *domain.CrawlTask {
	return &domain.CrawlTask{
		TaskID:  taskID,
		UserID:  "user-1",
		SeedURL: "https://example.com",
		Status:  domain.TaskStatusRunning,
		Config:  domain.CrawlConfig{MaxDocuments: 2, MaxThreads: 1},
	}
}

func TestRuntimeCompletesTask(t *testing.T) {
	t.Parallel()

	task := runningTask("task-1")
	store := newFakeTaskStore(task)
	engine := newFakeEngine(crawler.Result{
		DocIDs:   []string{"doc-a", "doc-b"},
		Progress: domain.Progress{DocumentsDownloaded: 2, PagesCrawled: 3},
	})
	source := &fakeSource{batches: [][]*queue.ConsumedDispatch{{dispatchFor(task)}}}

	rt := newRuntime(t, source, store, engine)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	waitFor(t, func() bool { return source.ackCount() == 1 })
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := store.status("task-1"); got != domain.TaskStatusCompleted {
		t.Errorf("status = %s, want completed", got)
	}
	if got := store.result("task-1"); len(got) != 2 || got[0] != "doc-a" {
		t.Errorf("result = %v", got)
	}
	if engine.runCount() != 1 {
		t.Errorf("engine ran %d times", engine.runCount())
	}
}

func TestRuntimeSkipsTerminalTask(t *testing.T) {
	t.Parallel()

	task := runningTask("task-1")
	task.Status = domain.TaskStatusCompleted
	store := newFakeTaskStore(task)
	engine := newFakeEngine(crawler.Result{})
	source := &fakeSource{batches: [][]*queue.ConsumedDispatch{{dispatchFor(task)}}}

	rt := newRuntime(t, source, store, engine)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	waitFor(t, func() bool { return source.ackCount() == 1 })
	cancel()
	<-done

	if engine.runCount() != 0 {
		t.Errorf("engine ran %d times for a terminal task", engine.runCount())
	}
	if got := store.status("task-1"); got != domain.TaskStatusCompleted {
		t.Errorf("status = %s", got)
	}
}

func TestRuntimeAcksMissingTask(t *testing.T) {
	t.Parallel()

	store := newFakeTaskStore()
	engine := newFakeEngine(crawler.Result{})
	orphan := &queue.ConsumedDispatch{
		MessageID: "msg-orphan",
		Dispatch:  &queue.Dispatch{TaskID: "task-gone", SeedURL: "https://example.com"},
	}
	source := &fakeSource{batches: [][]*queue.ConsumedDispatch{{orphan}}}

	rt := newRuntime(t, source, store, engine)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	waitFor(t, func() bool { return source.ackCount() == 1 })
	cancel()
	<-done

	if engine.runCount() != 0 {
		t.Errorf("engine ran %d times for a missing task", engine.runCount())
	}
}

func TestRuntimeMarksAllFailedRunAsFailed(t *testing.T) {
	t.Parallel()

	task := runningTask("task-1")
	store := newFakeTaskStore(task)
	engine := newFakeEngine(crawler.Result{
		FailedURLs: []string{"https://example.com/a", "https://example.com/b"},
	})
	source := &fakeSource{batches: [][]*queue.ConsumedDispatch{{dispatchFor(task)}}}

	rt := newRuntime(t, source, store, engine)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	waitFor(t, func() bool { return source.ackCount() == 1 })
	cancel()
	<-done

	if got := store.status("task-1"); got != domain.TaskStatusFailed {
		t.Errorf("status = %s, want failed", got)
	}
	store.mu.Lock()
	taskErr := store.tasks["task-1"].Error
	store.mu.Unlock()
	if taskErr == "" {
		t.Error("failure reason not recorded")
	}
}

func TestRuntimeObservesExternalCancel(t *testing.T) {
	t.Parallel()

	task := runningTask("task-1")
	store := newFakeTaskStore(task)
	engine := newFakeEngine(crawler.Result{DocIDs: []string{"doc-a"}})
	engine.block = true
	// Flip the task to cancelled once the crawl is in flight; the status
	// watcher should wind the run down.
	engine.onRun = func() {
		_ = store.UpdateStatus(context.Background(), "task-1", domain.TaskStatusCancelled, "")
	}
	source := &fakeSource{batches: [][]*queue.ConsumedDispatch{{dispatchFor(task)}}}

	rt := newRuntime(t, source, store, engine)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	waitFor(t, func() bool { return source.ackCount() == 1 })
	cancel()
	<-done

	if got := store.status("task-1"); got != domain.TaskStatusCancelled {
		t.Errorf("status = %s, want cancelled", got)
	}
	if got := store.result("task-1"); len(got) != 1 || got[0] != "doc-a" {
		t.Errorf("partial result = %v", got)
	}
}

func TestRuntimeShutdownLeavesTaskUnacked(t *testing.T) {
	t.Parallel()

	task := runningTask("task-1")
	store := newFakeTaskStore(task)
	engine := newFakeEngine(crawler.Result{})
	engine.block = true
	source := &fakeSource{batches: [][]*queue.ConsumedDispatch{{dispatchFor(task)}}}

	rt := newRuntime(t, source, store, engine)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	<-engine.running
	cancel()
	<-done

	if got := source.ackCount(); got != 0 {
		t.Errorf("acks = %d, interrupted dispatch must stay pending", got)
	}
	if got := store.status("task-1"); got != domain.TaskStatusRunning {
		t.Errorf("status = %s, want running for reclaim", got)
	}
}
