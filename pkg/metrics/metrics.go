// Package metrics defines the Prometheus collectors used across the engine
// and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the engine.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	LookupsTotal         *prometheus.CounterVec
	PagesTotal           *prometheus.CounterVec
	PageLatency          *prometheus.HistogramVec
	PageCacheHitsTotal   prometheus.Counter
	PromotionsTotal      *prometheus.CounterVec
	ScoreStoreEntries    prometheus.Gauge
	ScoreEvictionsTotal  prometheus.Counter
	SnapshotSavesTotal   *prometheus.CounterVec
	AssetLoadsTotal      *prometheus.CounterVec
	SuggestionsTotal     *prometheus.CounterVec
	ActiveSessions       prometheus.Gauge
	EventsPublishedTotal *prometheus.CounterVec
}

// New creates all collectors and registers them with reg. Passing nil uses
// the default Prometheus registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		LookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ime_lookups_total",
				Help: "Input resolutions by outcome (terminal, internal, miss).",
			},
			[]string{"outcome"},
		),
		PagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ime_candidate_pages_total",
				Help: "Candidate pages produced by search strategy.",
			},
			[]string{"strategy"},
		),
		PageLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ime_candidate_page_latency_seconds",
				Help:    "Time spent producing a candidate page.",
				Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
			},
			[]string{"strategy"},
		),
		PageCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ime_page_cache_hits_total",
				Help: "Candidate pages replayed from the per-root page cache.",
			},
		),
		PromotionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ime_promotions_total",
				Help: "Path promotions by result (applied, skipped).",
			},
			[]string{"result"},
		),
		ScoreStoreEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ime_score_store_entries",
				Help: "Entries currently held by the personalized score store.",
			},
		),
		ScoreEvictionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ime_score_evictions_total",
				Help: "Score records evicted by capacity pressure.",
			},
		),
		SnapshotSavesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ime_snapshot_saves_total",
				Help: "Score snapshot saves by backend and status.",
			},
			[]string{"backend", "status"},
		),
		AssetLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ime_asset_loads_total",
				Help: "Tree asset loads by asset and status.",
			},
			[]string{"asset", "status"},
		),
		SuggestionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ime_associative_suggestions_total",
				Help: "Associative suggestion queries by outcome (hit, miss, not_ready).",
			},
			[]string{"outcome"},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ime_active_sessions",
				Help: "Input sessions currently open on the bridge.",
			},
		),
		EventsPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ime_selection_events_total",
				Help: "Selection events published by status.",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.LookupsTotal,
		m.PagesTotal,
		m.PageLatency,
		m.PageCacheHitsTotal,
		m.PromotionsTotal,
		m.ScoreStoreEntries,
		m.ScoreEvictionsTotal,
		m.SnapshotSavesTotal,
		m.AssetLoadsTotal,
		m.SuggestionsTotal,
		m.ActiveSessions,
		m.EventsPublishedTotal,
	)

	return m
}

// Handler returns the scrape handler for g, or the default gatherer when g
// is nil.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
