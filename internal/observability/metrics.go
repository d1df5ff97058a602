// Package observability — metrics.go
//
// Prometheus metrics for the Scanner111 engine.
//
// Endpoint: GET /metrics on 127.0.0.1:9091 (configurable).
// Format: Prometheus text exposition format (OpenMetrics compatible).
// Bind: loopback only — no external exposure.
//
// Metric naming convention: scanner111_<subsystem>_<name>_<unit>
//
// All metrics are registered on a dedicated prometheus.Registry (not the
// default global registry) to avoid collisions with other instrumented
// libraries in the same process.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metric descriptors for Scanner111.
type Metrics struct {
	registry *prometheus.Registry

	// ─── Pipeline ─────────────────────────────────────────────────────────────

	// PipelineStageDuration records how long each pipeline stage takes.
	// Labels: stage (load, analyze, compose)
	PipelineStageDuration *prometheus.HistogramVec

	// PipelineItemsProcessedTotal counts requests processed per stage.
	PipelineItemsProcessedTotal *prometheus.CounterVec

	// PipelineRequestsInFlight is the current number of requests mid-pipeline.
	PipelineRequestsInFlight prometheus.Gauge

	// ─── Analyzer ─────────────────────────────────────────────────────────────

	// AnalyzerDuration records per-analyzer execution time.
	// Labels: analyzer
	AnalyzerDuration *prometheus.HistogramVec

	// AnalyzerFailuresTotal counts analyzer failures.
	// Labels: analyzer
	AnalyzerFailuresTotal *prometheus.CounterVec

	// ─── Archive scanner ──────────────────────────────────────────────────────

	// ArchiveFilesScannedTotal counts BA2 files whose header was parsed.
	ArchiveFilesScannedTotal prometheus.Counter

	// ArchiveIssuesTotal counts issues found during archive scans.
	// Labels: kind (format, texture, sound, xse)
	ArchiveIssuesTotal *prometheus.CounterVec

	// ─── Async coordination toolkit ───────────────────────────────────────────

	// CircuitBreakerState reports the current breaker state as a gauge
	// (0=closed, 1=half-open, 2=open). Labels: component
	CircuitBreakerState *prometheus.GaugeVec

	// RateLimiterRejectionsTotal counts rejected acquisitions.
	// Labels: component
	RateLimiterRejectionsTotal *prometheus.CounterVec

	// RetryAttemptsTotal counts retry attempts issued by RetryPolicy.
	// Labels: component
	RetryAttemptsTotal *prometheus.CounterVec

	// ─── Storage ──────────────────────────────────────────────────────────────

	// HistoryWriteLatency records the scan-history bbolt write latency.
	HistoryWriteLatency prometheus.Histogram

	startTime time.Time
}

// NewMetrics creates and registers all Scanner111 Prometheus metrics on
// a dedicated, non-global registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		PipelineStageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scanner111",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage, by stage name.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),

		PipelineItemsProcessedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scanner111",
			Subsystem: "pipeline",
			Name:      "items_processed_total",
			Help:      "Total requests processed per stage.",
		}, []string{"stage"}),

		PipelineRequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scanner111",
			Subsystem: "pipeline",
			Name:      "requests_in_flight",
			Help:      "Current number of requests mid-pipeline.",
		}),

		AnalyzerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scanner111",
			Subsystem: "analyzer",
			Name:      "duration_seconds",
			Help:      "Per-analyzer execution duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"analyzer"}),

		AnalyzerFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scanner111",
			Subsystem: "analyzer",
			Name:      "failures_total",
			Help:      "Total analyzer failures, by analyzer name.",
		}, []string{"analyzer"}),

		ArchiveFilesScannedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scanner111",
			Subsystem: "archive",
			Name:      "files_scanned_total",
			Help:      "Total BA2 archives whose header was parsed.",
		}),

		ArchiveIssuesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scanner111",
			Subsystem: "archive",
			Name:      "issues_total",
			Help:      "Total archive issues found, by kind.",
		}, []string{"kind"}),

		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "scanner111",
			Subsystem: "",
			Name:      "circuit_breaker_state",
			Help:      "Current circuit breaker state (0=closed, 1=half-open, 2=open), by component.",
		}, []string{"component"}),

		RateLimiterRejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scanner111",
			Subsystem: "",
			Name:      "rate_limiter_rejections_total",
			Help:      "Total rate limiter rejections, by component.",
		}, []string{"component"}),

		RetryAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scanner111",
			Subsystem: "",
			Name:      "retry_attempts_total",
			Help:      "Total retry attempts issued, by component.",
		}, []string{"component"}),

		HistoryWriteLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "scanner111",
			Subsystem: "history",
			Name:      "write_latency_seconds",
			Help:      "bbolt write transaction latency for the scan-history ledger.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.PipelineStageDuration,
		m.PipelineItemsProcessedTotal,
		m.PipelineRequestsInFlight,
		m.AnalyzerDuration,
		m.AnalyzerFailuresTotal,
		m.ArchiveFilesScannedTotal,
		m.ArchiveIssuesTotal,
		m.CircuitBreakerState,
		m.RateLimiterRejectionsTotal,
		m.RetryAttemptsTotal,
		m.HistoryWriteLatency,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

// ServeMetrics starts the Prometheus HTTP metrics server on addr, bound
// to loopback. Blocks until ctx is cancelled or the server fails.
func (m *Metrics) ServeMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server on %s: %w", addr, err)
	}
	return nil
}
