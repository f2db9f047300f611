// Package metrics provides Prometheus metrics for the skimming pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	// Per-file metrics
	FilesProcessed prometheus.Counter
	FilesFailed    prometheus.Counter
	FileLatency    prometheus.Histogram

	// Event counters
	EventsTotal    prometheus.Counter
	EventsBaseline prometheus.Counter

	// Worker pool
	WorkersActive prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered on reg. A nil reg uses
// the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		FilesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Total number of input files successfully processed",
		}),
		FilesFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_failed_total",
			Help:      "Total number of input files that could not be read",
		}),
		FileLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_processing_seconds",
			Help:      "Per-file processing latency in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		EventsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Total number of events read from input files",
		}),
		EventsBaseline: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_baseline_total",
			Help:      "Total number of events surviving baseline selection",
		}),
		WorkersActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers_active",
			Help:      "Number of workers currently processing a file",
		}),
	}
}

// RecordFile records the outcome of processing one file.
func (m *Metrics) RecordFile(ok bool, total, baseline int64, duration time.Duration) {
	if m == nil {
		return
	}
	m.FileLatency.Observe(duration.Seconds())
	if !ok {
		m.FilesFailed.Inc()
		return
	}
	m.FilesProcessed.Inc()
	m.EventsTotal.Add(float64(total))
	m.EventsBaseline.Add(float64(baseline))
}

// WorkerStarted and WorkerDone track the in-flight worker gauge.
func (m *Metrics) WorkerStarted() {
	if m != nil {
		m.WorkersActive.Inc()
	}
}

func (m *Metrics) WorkerDone() {
	if m != nil {
		m.WorkersActive.Dec()
	}
}

// Server runs an HTTP server exposing the /metrics endpoint.
type Server struct {
	server *http.Server
}

// NewServer creates a metrics server on the given address.
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// StartAsync starts the metrics server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		_ = s.server.ListenAndServe()
	}()
}

// Stop stops the metrics server.
func (s *Server) Stop() error {
	return s.server.Close()
}
