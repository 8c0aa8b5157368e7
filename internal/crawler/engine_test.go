package crawler_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/crawler"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/links"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/proxy"
)

type fetchCall struct {
	url  string
	opts proxy.Options
}

// fakeGateway serves canned responses and records every fetch.
type fakeGateway struct {
	mu        sync.Mutex
	calls     []fetchCall
	fetchFunc func(url string, opts proxy.Options) (*proxy.Response, error)
}

func (g *fakeGateway) Fetch(_ context.Context, rawURL string, opts proxy.Options) (*proxy.Response, error) {
	g.mu.Lock()
	g.calls = append(g.calls, fetchCall{url: rawURL, opts: opts})
	g.mu.Unlock()
	return g.fetchFunc(rawURL, opts)
}

func (g *fakeGateway) callsFor(url string) []fetchCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []fetchCall
	for _, c := range g.calls {
		if c.url == url {
			out = append(out, c)
		}
	}
	return out
}

func siteGateway(responses map[string]*proxy.Response) *fakeGateway {
	return &fakeGateway{
		fetchFunc: func(url string, _ proxy.Options) (*proxy.Response, error) {
			if resp, ok := responses[url]; ok {
				return resp, nil
			}
			return nil, fmt.Errorf("no response for %s", url)
		},
	}
}

// fakeProcessor records processed URLs and fabricates document records.
type fakeProcessor struct {
	mu        sync.Mutex
	processed []string
	errFor    map[string]error
}

func (p *fakeProcessor) Process(_ context.Context, taskID, userID string, resp *proxy.Response) (*domain.CrawledDocument, error) {
	if err := p.errFor[resp.URL]; err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.processed = append(p.processed, resp.URL)
	p.mu.Unlock()

	ct := domain.ContentTypePDF
	if strings.Contains(resp.ContentType, "html") {
		ct = domain.ContentTypeHTML
	}
	return &domain.CrawledDocument{
		DocID:       domain.DocIDFromURL(resp.URL),
		TaskID:      taskID,
		UserID:      userID,
		URL:         resp.URL,
		ContentType: ct,
	}, nil
}

func (p *fakeProcessor) processedURLs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.processed...)
}

type fakeSink struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
}

func (s *fakeSink) Publish(_ context.Context, event domain.ProgressEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *fakeSink) all() []domain.ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ProgressEvent(nil), s.events...)
}

func newTestEngine(t *testing.T, gw *fakeGateway, proc *fakeProcessor, sink *fakeSink, robots *crawler.RobotsChecker) *crawler.Engine {
	t.Helper()
	engine, err := crawler.NewEngine(crawler.Deps{
		Gateway:   gw,
		Processor: proc,
		Links:     links.NewExtractor(logger.NewNoop()),
		Robots:    robots,
		Progress:  sink,
		Log:       logger.NewNoop(),
	})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return engine
}

func testTask(seed string, cfg domain.CrawlConfig) *domain.CrawlTask {
	return &domain.CrawlTask{
		TaskID:  "task-1",
		UserID:  "user-1",
		SeedURL: seed,
		Status:  domain.TaskStatusRunning,
		Config:  cfg,
	}
}

// htmlPage builds a >1KB HTML body so the engine does not mistake it for an
// unrendered JS shell.
func htmlPage(anchors ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><h1>Fixture</h1>")
	for _, href := range anchors {
		fmt.Fprintf(&b, `<a href=%q>link</a>`, href)
	}
	b.WriteString("<!-- ")
	b.WriteString(strings.Repeat("padding ", 200))
	b.WriteString(" --></body></html>")
	return b.String()
}

func htmlResponse(url string, body string) *proxy.Response {
	return &proxy.Response{URL: url, StatusCode: 200, Body: []byte(body), ContentType: "text/html"}
}

func pdfResponse(url string) *proxy.Response {
	return &proxy.Response{URL: url, StatusCode: 200, Body: []byte("%PDF-1.4 fixture"), ContentType: "application/pdf"}
}

func TestRunSeedOnly(t *testing.T) {
	t.Parallel()

	seed := "https://example.com/"
	gw := siteGateway(map[string]*proxy.Response{
		seed: htmlResponse(seed, htmlPage("/news/a", "/news/b")),
	})
	proc := &fakeProcessor{}
	sink := &fakeSink{}
	engine := newTestEngine(t, gw, proc, sink, nil)

	res, err := engine.Run(context.Background(), testTask(seed, domain.CrawlConfig{
		MaxDocuments: 1,
		MaxDepth:     0,
		MaxThreads:   3,
	}))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(res.DocIDs) != 1 {
		t.Fatalf("DocIDs = %v, want exactly the seed", res.DocIDs)
	}
	if got := proc.processedURLs(); len(got) != 1 || got[0] != seed {
		t.Errorf("processed = %v, want [%s]", got, seed)
	}
	want := domain.Progress{DocumentsFound: 1, DocumentsDownloaded: 1, PagesCrawled: 1}
	if res.Progress != want {
		t.Errorf("Progress = %+v, want %+v", res.Progress, want)
	}
	if len(sink.all()) == 0 {
		t.Error("no progress events were published")
	}
}

func TestRunDepthBound(t *testing.T) {
	t.Parallel()

	seed := "https://example.com/"
	level1 := "https://example.com/news/a"
	level2 := "https://example.com/news/b"
	gw := siteGateway(map[string]*proxy.Response{
		seed:   htmlResponse(seed, htmlPage(level1)),
		level1: htmlResponse(level1, htmlPage(level2)),
		level2: htmlResponse(level2, htmlPage()),
	})
	proc := &fakeProcessor{}
	engine := newTestEngine(t, gw, proc, &fakeSink{}, nil)

	res, err := engine.Run(context.Background(), testTask(seed, domain.CrawlConfig{
		MaxDocuments: 10,
		MaxDepth:     1,
		MaxThreads:   2,
	}))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(res.DocIDs) != 2 {
		t.Errorf("DocIDs length = %d, want 2 (seed and one level)", len(res.DocIDs))
	}
	if calls := gw.callsFor(level2); len(calls) != 0 {
		t.Errorf("depth-2 url was fetched %d times, want 0", len(calls))
	}
}

func TestRunDownloadsDocumentsAsBinary(t *testing.T) {
	t.Parallel()

	seed := "https://example.com/"
	pdf := "https://example.com/annual-report.pdf"
	gw := siteGateway(map[string]*proxy.Response{
		seed: htmlResponse(seed, htmlPage("/annual-report.pdf", "/news/a")),
		pdf:  pdfResponse(pdf),
		"https://example.com/news/a": htmlResponse("https://example.com/news/a", htmlPage()),
	})
	proc := &fakeProcessor{}
	engine := newTestEngine(t, gw, proc, &fakeSink{}, nil)

	res, err := engine.Run(context.Background(), testTask(seed, domain.CrawlConfig{
		MaxDocuments: 10,
		MaxDepth:     2,
		MaxThreads:   2,
	}))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(res.DocIDs) != 3 {
		t.Errorf("DocIDs length = %d, want 3", len(res.DocIDs))
	}
	calls := gw.callsFor(pdf)
	if len(calls) != 1 {
		t.Fatalf("pdf fetched %d times, want 1", len(calls))
	}
	if !calls[0].opts.Binary {
		t.Error("pdf fetch did not use the binary option")
	}
	for _, c := range gw.callsFor(seed) {
		if c.opts.Binary {
			t.Error("page fetch used the binary option")
		}
	}
}

func TestRunRecordsFailedURLs(t *testing.T) {
	t.Parallel()

	seed := "https://example.com/"
	good := "https://example.com/news/good"
	bad := "https://example.com/news/bad"
	gw := siteGateway(map[string]*proxy.Response{
		seed: htmlResponse(seed, htmlPage("/news/good", "/news/bad")),
		good: htmlResponse(good, htmlPage()),
		// bad has no canned response, so the gateway errors
	})
	proc := &fakeProcessor{}
	sink := &fakeSink{}
	engine := newTestEngine(t, gw, proc, sink, nil)

	res, err := engine.Run(context.Background(), testTask(seed, domain.CrawlConfig{
		MaxDocuments: 10,
		MaxDepth:     1,
		MaxThreads:   2,
	}))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(res.FailedURLs) != 1 || res.FailedURLs[0] != bad {
		t.Errorf("FailedURLs = %v, want [%s]", res.FailedURLs, bad)
	}
	if len(res.DocIDs) != 2 {
		t.Errorf("DocIDs length = %d, want 2 despite the failure", len(res.DocIDs))
	}

	var sawFailure bool
	for _, event := range sink.all() {
		if strings.HasPrefix(event.StatusMessage, "failed ") {
			sawFailure = true
		}
	}
	if !sawFailure {
		t.Error("no failure progress event was published")
	}
}

func TestRunQuotaIsMonotonic(t *testing.T) {
	t.Parallel()

	seed := "https://example.com/"
	anchors := make([]string, 0, 6)
	responses := map[string]*proxy.Response{}
	for i := 0; i < 6; i++ {
		u := fmt.Sprintf("https://example.com/doc-%d.pdf", i)
		anchors = append(anchors, fmt.Sprintf("/doc-%d.pdf", i))
		responses[u] = pdfResponse(u)
	}
	responses[seed] = htmlResponse(seed, htmlPage(anchors...))

	proc := &fakeProcessor{}
	engine := newTestEngine(t, siteGateway(responses), proc, &fakeSink{}, nil)

	res, err := engine.Run(context.Background(), testTask(seed, domain.CrawlConfig{
		MaxDocuments: 3,
		MaxDepth:     2,
		MaxThreads:   3,
	}))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(res.DocIDs) != 3 {
		t.Errorf("DocIDs length = %d, want exactly the quota of 3", len(res.DocIDs))
	}
	if res.Progress.DocumentsFound > 3 {
		t.Errorf("DocumentsFound = %d, must not exceed max_documents", res.Progress.DocumentsFound)
	}
	if res.Progress.DocumentsDownloaded != 3 {
		t.Errorf("DocumentsDownloaded = %d, want 3", res.Progress.DocumentsDownloaded)
	}
}

func TestRunRetriesThinHTMLWithRendering(t *testing.T) {
	t.Parallel()

	seed := "https://example.com/"
	full := htmlPage()
	gw := &fakeGateway{}
	gw.fetchFunc = func(url string, opts proxy.Options) (*proxy.Response, error) {
		if url != seed {
			return nil, fmt.Errorf("no response for %s", url)
		}
		if opts.RenderJS {
			return htmlResponse(seed, full), nil
		}
		return htmlResponse(seed, "<html></html>"), nil
	}

	proc := &fakeProcessor{}
	engine := newTestEngine(t, gw, proc, &fakeSink{}, nil)

	res, err := engine.Run(context.Background(), testTask(seed, domain.CrawlConfig{
		MaxDocuments: 1,
		MaxDepth:     0,
		MaxThreads:   1,
	}))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	calls := gw.callsFor(seed)
	if len(calls) != 2 {
		t.Fatalf("seed fetched %d times, want 2 (plain then rendered)", len(calls))
	}
	if calls[0].opts.RenderJS {
		t.Error("first fetch should not render JS")
	}
	if !calls[1].opts.RenderJS {
		t.Error("retry fetch should render JS")
	}
	if len(res.DocIDs) != 1 {
		t.Errorf("DocIDs length = %d, want 1", len(res.DocIDs))
	}
}

func TestRunHonorsRobots(t *testing.T) {
	t.Parallel()

	seed := "https://example.com/"
	blocked := "https://example.com/reports/q1"
	allowed := "https://example.com/news/a"
	gw := siteGateway(map[string]*proxy.Response{
		seed:    htmlResponse(seed, htmlPage("/reports/q1", "/news/a")),
		blocked: htmlResponse(blocked, htmlPage()),
		allowed: htmlResponse(allowed, htmlPage()),
	})

	robots := crawler.NewRobotsChecker(func(_ context.Context, robotsURL string) ([]byte, int, error) {
		if robotsURL != "https://example.com/robots.txt" {
			return nil, 404, nil
		}
		return []byte("User-agent: *\nDisallow: /reports\n"), 200, nil
	}, "", 0, logger.NewNoop())

	proc := &fakeProcessor{}
	engine := newTestEngine(t, gw, proc, &fakeSink{}, robots)

	res, err := engine.Run(context.Background(), testTask(seed, domain.CrawlConfig{
		MaxDocuments: 10,
		MaxDepth:     1,
		MaxThreads:   2,
	}))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if calls := gw.callsFor(blocked); len(calls) != 0 {
		t.Errorf("robots-disallowed url fetched %d times, want 0", len(calls))
	}
	if calls := gw.callsFor(allowed); len(calls) != 1 {
		t.Errorf("allowed url fetched %d times, want 1", len(calls))
	}
	if len(res.DocIDs) != 2 {
		t.Errorf("DocIDs length = %d, want 2", len(res.DocIDs))
	}
}

func TestRunCancelledContext(t *testing.T) {
	t.Parallel()

	seed := "https://example.com/"
	gw := siteGateway(map[string]*proxy.Response{
		seed: htmlResponse(seed, htmlPage()),
	})
	engine := newTestEngine(t, gw, &fakeProcessor{}, &fakeSink{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := engine.Run(ctx, testTask(seed, domain.CrawlConfig{MaxDocuments: 5}))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if len(res.DocIDs) != 0 {
		t.Errorf("DocIDs = %v, want none after pre-cancelled run", res.DocIDs)
	}
}

func TestRunRejectsInvalidSeed(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, siteGateway(nil), &fakeProcessor{}, &fakeSink{}, nil)
	if _, err := engine.Run(context.Background(), testTask("ftp://example.com", domain.CrawlConfig{})); err == nil {
		t.Error("Run() accepted a non-http seed")
	}
}
