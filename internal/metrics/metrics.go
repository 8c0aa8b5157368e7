// Package metrics exports Prometheus metrics for the crawl, extraction,
// indexing, and chat pipelines.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every CrawlChat Prometheus collector.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Crawl metrics
	CrawlTasks       *prometheus.CounterVec
	PagesFetched     *prometheus.CounterVec
	FetchDuration    *prometheus.HistogramVec
	ProxyEscalations *prometheus.CounterVec
	DocumentsStored  *prometheus.CounterVec
	ActiveCrawls     prometheus.Gauge
	FrontierDepth    prometheus.Gauge

	// Extraction metrics
	Extractions        *prometheus.CounterVec
	ExtractionDuration *prometheus.HistogramVec
	OCRPages           prometheus.Counter

	// Indexing metrics
	ChunksIndexed     prometheus.Counter
	DuplicatesSkipped prometheus.Counter
	EmbeddingBatches  prometheus.Counter
	EmbeddingDuration prometheus.Histogram

	// Chat metrics
	Queries        *prometheus.CounterVec
	RetrievalPass  *prometheus.HistogramVec
	LLMTokens      *prometheus.CounterVec
	LLMDuration    prometheus.Histogram
	PassagesServed prometheus.Histogram

	// Queue metrics
	JobsDispatched prometheus.Counter
	JobsCompleted  *prometheus.CounterVec
	QueueDepth     prometheus.Gauge
	ActiveWorkers  prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{registry: registry}
	initHTTPMetrics(m, factory)
	initCrawlMetrics(m, factory)
	initExtractionMetrics(m, factory)
	initIndexingMetrics(m, factory)
	initChatMetrics(m, factory)
	initQueueMetrics(m, factory)
	return m
}

// Handler serves the text exposition format for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func initHTTPMetrics(m *Metrics, f promauto.Factory) {
	m.HTTPRequests = f.NewCounterVec(prometheus.CounterOpts{
		Name: "crawlchat_http_requests_total",
		Help: "Total HTTP requests by method, route, and status",
	}, []string{"method", "route", "status"})

	m.HTTPDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crawlchat_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method", "route"})
}

func initCrawlMetrics(m *Metrics, f promauto.Factory) {
	m.CrawlTasks = f.NewCounterVec(prometheus.CounterOpts{
		Name: "crawlchat_crawl_tasks_total",
		Help: "Crawl tasks by terminal status",
	}, []string{"status"})

	m.PagesFetched = f.NewCounterVec(prometheus.CounterOpts{
		Name: "crawlchat_pages_fetched_total",
		Help: "Fetch attempts by proxy mode and outcome",
	}, []string{"mode", "outcome"})

	m.FetchDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crawlchat_fetch_duration_seconds",
		Help:    "Single-URL fetch latency by proxy mode",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"mode"})

	m.ProxyEscalations = f.NewCounterVec(prometheus.CounterOpts{
		Name: "crawlchat_proxy_escalations_total",
		Help: "Proxy mode escalations by source and target mode",
	}, []string{"from", "to"})

	m.DocumentsStored = f.NewCounterVec(prometheus.CounterOpts{
		Name: "crawlchat_documents_stored_total",
		Help: "Documents persisted to the object store by content type",
	}, []string{"content_type"})

	m.ActiveCrawls = f.NewGauge(prometheus.GaugeOpts{
		Name: "crawlchat_active_crawls",
		Help: "Crawl tasks currently running",
	})

	m.FrontierDepth = f.NewGauge(prometheus.GaugeOpts{
		Name: "crawlchat_frontier_depth",
		Help: "URLs waiting in the crawl frontier",
	})
}

func initExtractionMetrics(m *Metrics, f promauto.Factory) {
	m.Extractions = f.NewCounterVec(prometheus.CounterOpts{
		Name: "crawlchat_extractions_total",
		Help: "Text extraction attempts by tier and outcome",
	}, []string{"tier", "content_type", "outcome"})

	m.ExtractionDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crawlchat_extraction_duration_seconds",
		Help:    "Extraction latency by tier",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 15, 30, 60},
	}, []string{"tier"})

	m.OCRPages = f.NewCounter(prometheus.CounterOpts{
		Name: "crawlchat_ocr_pages_total",
		Help: "Pages sent through managed OCR",
	})
}

func initIndexingMetrics(m *Metrics, f promauto.Factory) {
	m.ChunksIndexed = f.NewCounter(prometheus.CounterOpts{
		Name: "crawlchat_chunks_indexed_total",
		Help: "Text chunks upserted into the vector store",
	})

	m.DuplicatesSkipped = f.NewCounter(prometheus.CounterOpts{
		Name: "crawlchat_duplicates_skipped_total",
		Help: "Documents skipped because their content hash was already indexed",
	})

	m.EmbeddingBatches = f.NewCounter(prometheus.CounterOpts{
		Name: "crawlchat_embedding_batches_total",
		Help: "Embedding API batches issued",
	})

	m.EmbeddingDuration = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "crawlchat_embedding_duration_seconds",
		Help:    "Embedding API batch latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})
}

func initChatMetrics(m *Metrics, f promauto.Factory) {
	m.Queries = f.NewCounterVec(prometheus.CounterOpts{
		Name: "crawlchat_queries_total",
		Help: "Chat queries by detected category",
	}, []string{"category"})

	m.RetrievalPass = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crawlchat_retrieval_passes",
		Help:    "Search passes needed before results were found, by final threshold",
		Buckets: []float64{1, 2, 3, 4, 5},
	}, []string{"threshold"})

	m.LLMTokens = f.NewCounterVec(prometheus.CounterOpts{
		Name: "crawlchat_llm_tokens_total",
		Help: "LLM tokens by direction (prompt or completion)",
	}, []string{"direction"})

	m.LLMDuration = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "crawlchat_llm_duration_seconds",
		Help:    "LLM completion latency",
		Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	m.PassagesServed = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "crawlchat_passages_served",
		Help:    "Passages included in answer context",
		Buckets: []float64{0, 1, 2, 5, 10, 15},
	})
}

func initQueueMetrics(m *Metrics, f promauto.Factory) {
	m.JobsDispatched = f.NewCounter(prometheus.CounterOpts{
		Name: "crawlchat_jobs_dispatched_total",
		Help: "Crawl jobs published to the work queue",
	})

	m.JobsCompleted = f.NewCounterVec(prometheus.CounterOpts{
		Name: "crawlchat_jobs_completed_total",
		Help: "Crawl jobs finished by outcome",
	}, []string{"outcome"})

	m.QueueDepth = f.NewGauge(prometheus.GaugeOpts{
		Name: "crawlchat_queue_depth",
		Help: "Jobs waiting in the work queue",
	})

	m.ActiveWorkers = f.NewGauge(prometheus.GaugeOpts{
		Name: "crawlchat_active_workers",
		Help: "Worker goroutines currently crawling",
	})
}

// RecordFetch records one fetch attempt.
func (m *Metrics) RecordFetch(mode string, outcome string, duration time.Duration) {
	m.PagesFetched.WithLabelValues(mode, outcome).Inc()
	m.FetchDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordEscalation records a proxy mode step-up.
func (m *Metrics) RecordEscalation(from, to string) {
	m.ProxyEscalations.WithLabelValues(from, to).Inc()
}

// RecordExtraction records one extraction attempt.
func (m *Metrics) RecordExtraction(tier, contentType string, err error, duration time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.Extractions.WithLabelValues(tier, contentType, outcome).Inc()
	m.ExtractionDuration.WithLabelValues(tier).Observe(duration.Seconds())
}

// RecordQuery records a categorized chat query.
func (m *Metrics) RecordQuery(category string) {
	m.Queries.WithLabelValues(category).Inc()
}

// RecordLLMUsage records token consumption for one completion.
func (m *Metrics) RecordLLMUsage(promptTokens, completionTokens int64, duration time.Duration) {
	m.LLMTokens.WithLabelValues("prompt").Add(float64(promptTokens))
	m.LLMTokens.WithLabelValues("completion").Add(float64(completionTokens))
	m.LLMDuration.Observe(duration.Seconds())
}
