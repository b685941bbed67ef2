package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the counters/gauges the teacher's go.mod required but never
// registered; wired here against real ingest/persistence events. Each
// Metrics owns its own registry rather than the global default one, so
// multiple instances can coexist in one process (notably in tests)
// without a duplicate-collector panic. Built separately from Server so a
// persistence store can be wrapped with WrapStore before the dispatcher
// (and therefore the Server) exists.
type Metrics struct {
	registry *prometheus.Registry

	barsIngested prometheus.Counter
	entries      *prometheus.CounterVec
	exits        *prometheus.CounterVec
	openTrades   *prometheus.GaugeVec
	saveLatency  prometheus.Histogram
}

// NewMetrics builds a fresh, independently registered metrics set.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		barsIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "retracement_bars_ingested_total",
			Help: "Total number of OHLC bars ingested from the webhook.",
		}),
		entries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "retracement_entries_total",
			Help: "Total number of entry fills, by strategy.",
		}, []string{"strategy"}),
		exits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "retracement_exits_total",
			Help: "Total number of exit/flatten events, by strategy.",
		}, []string{"strategy"}),
		openTrades: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "retracement_open_trades",
			Help: "Current number of open trades, by strategy.",
		}, []string{"strategy"}),
		saveLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "retracement_persistence_save_seconds",
			Help:    "Latency of a strategy state save to the persistence store.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
