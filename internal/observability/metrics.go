package observability

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks operational metrics for a scrape run.
// All recording methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	pagesFetched    prometheus.Counter
	fetchDuration   prometheus.Histogram
	productsScraped *prometheus.CounterVec
	productsFailed  *prometheus.CounterVec
	productsDropped *prometheus.CounterVec
	browserSessions prometheus.Counter
	variantsRead    prometheus.Counter
	batchesStored   *prometheus.CounterVec

	logger *slog.Logger
}

// NewMetrics creates a Metrics instance with its own registry.
func NewMetrics(logger *slog.Logger) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricestalk_pages_fetched_total",
			Help: "Listing pages fetched",
		}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pricestalk_fetch_duration_seconds",
			Help:    "Listing page fetch latency",
			Buckets: prometheus.DefBuckets,
		}),
		productsScraped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricestalk_products_scraped_total",
			Help: "Products extracted successfully",
		}, []string{"category"}),
		productsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricestalk_products_failed_total",
			Help: "Products that failed, by stage",
		}, []string{"category", "stage"}),
		productsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricestalk_products_dropped_total",
			Help: "Products dropped by the pipeline",
		}, []string{"category"}),
		browserSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricestalk_browser_sessions_total",
			Help: "Browser sessions acquired",
		}),
		variantsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricestalk_variant_prices_total",
			Help: "Capacity prices read from detail pages",
		}),
		batchesStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricestalk_batches_stored_total",
			Help: "Category batches written, by backend",
		}, []string{"backend"}),
		logger: logger.With("component", "metrics"),
	}

	m.registry.MustRegister(
		m.pagesFetched,
		m.fetchDuration,
		m.productsScraped,
		m.productsFailed,
		m.productsDropped,
		m.browserSessions,
		m.variantsRead,
		m.batchesStored,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveFetch records one listing page fetch.
func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.pagesFetched.Inc()
	m.fetchDuration.Observe(d.Seconds())
}

// ProductScraped records a successfully extracted product.
func (m *Metrics) ProductScraped(category string) {
	if m == nil {
		return
	}
	m.productsScraped.WithLabelValues(category).Inc()
}

// ProductFailed records a product that failed at stage.
func (m *Metrics) ProductFailed(category, stage string) {
	if m == nil {
		return
	}
	m.productsFailed.WithLabelValues(category, stage).Inc()
}

// ProductDropped records a product dropped by the pipeline.
func (m *Metrics) ProductDropped(category string) {
	if m == nil {
		return
	}
	m.productsDropped.WithLabelValues(category).Inc()
}

// SessionOpened records a browser session acquisition.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.browserSessions.Inc()
}

// VariantRead records one capacity price.
func (m *Metrics) VariantRead() {
	if m == nil {
		return
	}
	m.variantsRead.Inc()
}

// BatchStored records a category written to backend.
func (m *Metrics) BatchStored(backend string) {
	if m == nil {
		return
	}
	m.batchesStored.WithLabelValues(backend).Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server in the background.
func (m *Metrics) StartServer(port int, path string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.logger.Info("metrics server starting", "addr", srv.Addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return srv
}
