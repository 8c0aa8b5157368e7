// Package crawler implements the bounded BFS engine that turns a crawl task
// into stored document artifacts.
package crawler

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/links"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/metrics"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/proxy"
)

const (
	// maxPageLinksPerPage caps how many sub-page links one page contributes
	// to the frontier. Document links are never capped here; the document
	// quota bounds them.
	maxPageLinksPerPage = 10

	// minRenderedHTMLSize is the body size below which an unrendered HTML
	// response is assumed to be a JS shell worth re-fetching with rendering.
	minRenderedHTMLSize = 1024
)

// Fetcher is the proxy gateway surface the engine uses.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, opts proxy.Options) (*proxy.Response, error)
}

// Processor persists one fetched response as a crawl artifact and returns
// its document record.
type Processor interface {
	Process(ctx context.Context, taskID, userID string, resp *proxy.Response) (*domain.CrawledDocument, error)
}

// ProgressSink receives progress events as the crawl advances. Delivery is
// best-effort; the engine logs and continues on publish failure.
type ProgressSink interface {
	Publish(ctx context.Context, event domain.ProgressEvent) error
}

// Deps wires an Engine. Gateway, Processor, Links, and Log are required;
// Robots, Progress, and Metrics may be nil.
type Deps struct {
	Gateway   Fetcher
	Processor Processor
	Links     *links.Extractor
	Robots    *RobotsChecker
	Progress  ProgressSink
	Log       logger.Interface
	Metrics   *metrics.Metrics
}

// Engine runs crawl tasks. It is stateless across runs and safe for
// concurrent Run calls.
type Engine struct {
	gateway   Fetcher
	processor Processor
	links     *links.Extractor
	robots    *RobotsChecker
	progress  ProgressSink
	log       logger.Interface
	metrics   *metrics.Metrics
}

// NewEngine validates dependencies and builds an engine.
func NewEngine(deps Deps) (*Engine, error) {
	if deps.Gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if deps.Processor == nil {
		return nil, errors.New("processor is required")
	}
	if deps.Links == nil {
		return nil, errors.New("link extractor is required")
	}
	if deps.Log == nil {
		return nil, errors.New("logger is required")
	}
	return &Engine{
		gateway:   deps.Gateway,
		processor: deps.Processor,
		links:     deps.Links,
		robots:    deps.Robots,
		progress:  deps.Progress,
		log:       deps.Log,
		metrics:   deps.Metrics,
	}, nil
}

// Result summarizes one finished crawl.
type Result struct {
	DocIDs     []string
	FailedURLs []string
	Progress   domain.Progress
}

// Run crawls from the task's seed URL until the document quota is met, the
// frontier drains, the total timeout lapses, or ctx is cancelled. Individual
// URL failures are recorded, never fatal. The returned error is non-nil only
// when ctx itself was cancelled.
func (e *Engine) Run(ctx context.Context, task *domain.CrawlTask) (Result, error) {
	cfg := task.Config
	cfg.Normalize()

	if err := domain.ValidateSeedURL(task.SeedURL); err != nil {
		return Result{}, err
	}
	seed, _ := url.Parse(strings.TrimSpace(task.SeedURL))

	runCtx, cancel := context.WithTimeout(ctx, cfg.TotalTimeout())
	defer cancel()

	st := &runState{
		task:     task,
		cfg:      cfg,
		seedHost: strings.ToLower(seed.Host),
		frontier: newFrontier(cfg.MaxThreads * 8),
		visited:  newVisitedSet(),
	}

	if e.metrics != nil {
		e.metrics.ActiveCrawls.Inc()
		defer e.metrics.ActiveCrawls.Dec()
	}

	e.log.Info("crawl started",
		"task_id", task.TaskID,
		"seed_url", task.SeedURL,
		"max_documents", cfg.MaxDocuments,
		"max_depth", cfg.MaxDepth,
		"max_threads", cfg.MaxThreads,
	)

	st.frontier.push(runCtx, item{url: seed.String(), depth: 0})

	var wg sync.WaitGroup
	for i := 0; i < cfg.MaxThreads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.worker(runCtx, st)
		}()
	}
	wg.Wait()

	res := Result{
		DocIDs:     st.docIDList(),
		FailedURLs: st.failedList(),
		Progress:   st.snapshot(),
	}
	e.log.Info("crawl finished",
		"task_id", task.TaskID,
		"documents", len(res.DocIDs),
		"failed", len(res.FailedURLs),
		"pages_crawled", res.Progress.PagesCrawled,
	)

	// The run context expiring is a bounded crawl ending with partial
	// results; only cancellation of the caller's context is an error.
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	return res, nil
}

func (e *Engine) worker(ctx context.Context, st *runState) {
	for {
		it, ok := st.frontier.pop(ctx)
		if !ok {
			return
		}
		e.crawlOne(ctx, st, it)
		st.frontier.finish()
		if e.metrics != nil {
			e.metrics.FrontierDepth.Set(float64(st.frontier.depth()))
		}
	}
}

// crawlOne runs the per-URL state machine: visited, quota, depth, and robots
// gates, then fetch, persist, progress, and link expansion.
func (e *Engine) crawlOne(ctx context.Context, st *runState, it item) {
	if !st.visited.Add(it.url) {
		return
	}
	if it.depth > st.cfg.MaxDepth {
		return
	}
	if !it.isDoc && !st.tryStartPage() {
		e.log.Debug("page budget exhausted", "task_id", st.task.TaskID, "url", it.url)
		return
	}
	if e.robots != nil && hostOf(it.url) == st.seedHost && !e.robots.IsAllowed(ctx, it.url) {
		e.log.Debug("skipping robots-disallowed url", "task_id", st.task.TaskID, "url", it.url)
		st.skipRobots()
		return
	}
	if !st.tryReserve() {
		st.frontier.halt()
		return
	}

	resp, err := e.fetch(ctx, st.cfg, it)
	if err == nil && ctx.Err() != nil {
		// Cancelled between fetch and store: the artifact is dropped and the
		// slot released so a restarted task owns a clean count.
		err = ctx.Err()
	}
	if err != nil {
		st.release()
		st.fail(it.url)
		e.log.Warn("fetch failed", "task_id", st.task.TaskID, "url", it.url, "error", err)
		e.publishProgress(ctx, st, "failed "+it.url)
		return
	}

	doc, err := e.processor.Process(ctx, st.task.TaskID, st.task.UserID, resp)
	if err != nil {
		st.release()
		st.fail(it.url)
		e.log.Warn("failed to store document", "task_id", st.task.TaskID, "url", it.url, "error", err)
		e.publishProgress(ctx, st, "failed "+it.url)
		return
	}

	stored := st.commit(doc.DocID, it.isDoc)
	if e.metrics != nil {
		e.metrics.DocumentsStored.WithLabelValues(string(doc.ContentType)).Inc()
	}
	e.publishProgress(ctx, st, "stored "+it.url)

	if stored >= st.cfg.MaxDocuments {
		e.log.Info("document quota reached", "task_id", st.task.TaskID, "documents", stored)
		st.frontier.halt()
		return
	}

	if !it.isDoc && doc.ContentType == domain.ContentTypeHTML && it.depth < st.cfg.MaxDepth {
		e.enqueueLinks(ctx, st, it, resp.Body)
	}

	if it.isDoc && st.cfg.BatchDelay() > 0 {
		select {
		case <-time.After(st.cfg.BatchDelay()):
		case <-ctx.Done():
		}
	}
}

// fetch retrieves one URL at the right gateway settings. HTML pages that
// come back suspiciously small without rendering are retried once with JS.
func (e *Engine) fetch(ctx context.Context, cfg domain.CrawlConfig, it item) (*proxy.Response, error) {
	if it.isDoc {
		return e.gateway.Fetch(ctx, it.url, proxy.Options{
			Binary:  true,
			Timeout: cfg.RequestTimeout(),
		})
	}

	opts := proxy.Options{
		RenderJS: cfg.RenderJS,
		Timeout:  cfg.RequestTimeout(),
	}
	resp, err := e.gateway.Fetch(ctx, it.url, opts)
	if err != nil {
		return nil, err
	}
	if !cfg.RenderJS && htmlNeedsRender(resp) {
		e.log.Debug("retrying with js rendering", "url", it.url, "size", len(resp.Body))
		opts.RenderJS = true
		if rendered, rerr := e.gateway.Fetch(ctx, it.url, opts); rerr == nil {
			return rendered, nil
		}
		// The unrendered body is still usable when the retry fails.
	}
	return resp, nil
}

// htmlNeedsRender reports whether an HTML response looks like an unrendered
// JS shell: under 1KB or missing a <body> tag.
func htmlNeedsRender(resp *proxy.Response) bool {
	ct := strings.ToLower(resp.ContentType)
	if ct != "" && !strings.Contains(ct, "html") {
		return false
	}
	if len(resp.Body) < minRenderedHTMLSize {
		return true
	}
	return !bytes.Contains(bytes.ToLower(resp.Body), []byte("<body"))
}

// enqueueLinks expands a crawled page: every document link, then at most
// maxPageLinksPerPage page links.
func (e *Engine) enqueueLinks(ctx context.Context, st *runState, parent item, body []byte) {
	found, err := e.links.Extract(string(body), parent.url)
	if err != nil {
		e.log.Warn("link extraction failed", "task_id", st.task.TaskID, "url", parent.url, "error", err)
		return
	}

	for _, docURL := range found.Documents {
		if !st.frontier.push(ctx, item{url: docURL, depth: parent.depth + 1, isDoc: true}) {
			return
		}
	}
	pages := found.Pages
	if len(pages) > maxPageLinksPerPage {
		pages = pages[:maxPageLinksPerPage]
	}
	for _, pageURL := range pages {
		if !st.frontier.push(ctx, item{url: pageURL, depth: parent.depth + 1}) {
			return
		}
	}
}

func (e *Engine) publishProgress(ctx context.Context, st *runState, message string) {
	if e.progress == nil {
		return
	}
	p := st.snapshot()
	event := domain.ProgressEvent{
		TaskID:              st.task.TaskID,
		DocumentsFound:      p.DocumentsFound,
		DocumentsDownloaded: p.DocumentsDownloaded,
		PagesCrawled:        p.PagesCrawled,
		StatusMessage:       message,
		UpdatedAt:           time.Now().UTC(),
	}
	// Progress outlives per-URL cancellation so the last transition of a
	// cancelled crawl is still delivered.
	if err := e.progress.Publish(context.WithoutCancel(ctx), event); err != nil {
		e.log.Warn("failed to publish progress", "task_id", st.task.TaskID, "error", err)
	}
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Host)
}

// runState is the per-task mutable crawl state shared by workers.
type runState struct {
	task     *domain.CrawlTask
	cfg      domain.CrawlConfig
	seedHost string
	frontier *frontier
	visited  *visitedSet

	mu            sync.Mutex
	found         int // slots reserved for fetching, never exceeds MaxDocuments
	stored        int // artifacts persisted
	inflight      int // reserved but not yet committed or released
	pagesStarted  int // page fetches admitted, gates MaxPages
	pagesCrawled  int // pages fetched and stored
	robotsSkipped int
	docIDs        []string
	failed        []string
}

// tryReserve claims a document slot. Reservations cover in-flight fetches so
// concurrent workers can never overshoot the quota.
func (st *runState) tryReserve() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.stored+st.inflight >= st.cfg.MaxDocuments {
		return false
	}
	st.inflight++
	st.found++
	return true
}

// commit converts a reservation into a stored document and returns the new
// stored count.
func (st *runState) commit(docID string, isDoc bool) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.inflight--
	st.stored++
	if !isDoc {
		st.pagesCrawled++
	}
	st.docIDs = append(st.docIDs, docID)
	return st.stored
}

// release returns a reservation after a failed fetch or store.
func (st *runState) release() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.inflight--
}

// tryStartPage admits one page fetch under the MaxPages budget.
func (st *runState) tryStartPage() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.pagesStarted >= st.cfg.MaxPages {
		return false
	}
	st.pagesStarted++
	return true
}

func (st *runState) fail(url string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.failed = append(st.failed, url)
}

func (st *runState) skipRobots() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.robotsSkipped++
}

func (st *runState) snapshot() domain.Progress {
	st.mu.Lock()
	defer st.mu.Unlock()
	return domain.Progress{
		DocumentsFound:      st.found,
		DocumentsDownloaded: st.stored,
		PagesCrawled:        st.pagesCrawled,
	}
}

func (st *runState) docIDList() []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]string(nil), st.docIDs...)
}

func (st *runState) failedList() []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]string(nil), st.failed...)
}
