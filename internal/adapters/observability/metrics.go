package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"clinic_reviews/internal/domain"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "clinic", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clinic", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "clinic", Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clinic", Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "clinic", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
	PipelineRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "clinic", Name: "pipeline_records_total", Help: "Review records per pipeline stage."},
		[]string{"stage"}, // fetched|normalized|skipped|added|updated|removed
	)
	PipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "clinic", Name: "pipeline_runs_total", Help: "Pipeline runs by outcome."},
		[]string{"outcome"}, // written|dry_run|failed
	)
	SnapshotReviews = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "clinic", Name: "snapshot_reviews", Help: "Reviews in the last computed snapshot."},
	)
	SnapshotRating = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "clinic", Name: "snapshot_rating", Help: "Aggregate rating of the last computed snapshot."},
	)
)

// Serve exposes reg on addr/metrics in the background; empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency, CacheEvents,
		PipelineRecords, PipelineRuns, SnapshotReviews, SnapshotRating)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry for a node-exporter textfile collector.
func WriteTextfile(path string, reg *prometheus.Registry) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

// ObserveRun records the counts of a finished (or failed) pipeline run.
func ObserveRun(s domain.Summary, err error) {
	for stage, n := range map[string]int{
		"fetched":    s.Fetched,
		"normalized": s.Normalized,
		"skipped":    s.Skipped,
		"added":      s.Added,
		"updated":    s.Updated,
		"removed":    s.Removed,
	} {
		PipelineRecords.WithLabelValues(stage).Add(float64(n))
	}
	switch {
	case err != nil:
		PipelineRuns.WithLabelValues("failed").Inc()
		return
	case s.DryRun:
		PipelineRuns.WithLabelValues("dry_run").Inc()
	default:
		PipelineRuns.WithLabelValues("written").Inc()
	}
	SnapshotReviews.Set(float64(s.Total))
	if s.Rating != nil {
		SnapshotRating.Set(*s.Rating)
	} else {
		SnapshotRating.Set(0)
	}
}
