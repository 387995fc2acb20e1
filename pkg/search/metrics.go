package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	noSearches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "killu_searches_total",
		Help: "The total number of preference searches",
	})
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "killu_search_cache_hits_total",
		Help: "Searches answered from the session cache",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "killu_search_cache_misses_total",
		Help: "Searches that queried the phone collection",
	})
	queryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "killu_search_failures_total",
		Help: "Failed phone collection queries",
	})
	supersededResults = promauto.NewCounter(prometheus.CounterOpts{
		Name: "killu_search_superseded_total",
		Help: "Results discarded because a newer search was started",
	})
	queryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "killu_phone_query_duration_seconds",
		Help:    "Phone collection query duration in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "killu_active_sessions",
		Help: "Sessions holding a search pipeline",
	})
)
