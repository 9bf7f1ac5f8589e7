package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the analysis pipeline.
type Metrics struct {
	registry *prometheus.Registry

	AnalysesTotal      *prometheus.CounterVec
	ParserStageUsed    *prometheus.CounterVec
	RetrievalSnippets  prometheus.Histogram
	EmbeddingFallbacks prometheus.Counter
	ModelRetries       prometheus.Counter
	RequestDuration    *prometheus.HistogramVec
	DocumentsIngested  prometheus.Counter
	ChunksStored       prometheus.Counter
}

// NewMetrics creates and registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		AnalysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "symptom_analyses_total",
			Help: "Completed symptom analyses by outcome.",
		}, []string{"status", "severity"}),
		ParserStageUsed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "response_parser_stage_total",
			Help: "Which parser stage produced the conditions list.",
		}, []string{"stage"}),
		RetrievalSnippets: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "retrieval_snippets_returned",
			Help:    "Number of context snippets returned per retrieval.",
			Buckets: []float64{0, 1, 2, 3, 5, 8},
		}),
		EmbeddingFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "embedding_fallback_total",
			Help: "Embeddings produced by the deterministic hash fallback.",
		}),
		ModelRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "model_invocation_retries_total",
			Help: "Model invocations retried after an acknowledgment-only reply.",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		DocumentsIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "documents_ingested_total",
			Help: "PDF documents successfully ingested.",
		}),
		ChunksStored: factory.NewCounter(prometheus.CounterOpts{
			Name: "document_chunks_stored_total",
			Help: "Document chunks embedded and stored.",
		}),
	}
}

// Handler returns the HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
