package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "trip_search", Name: "searches_total", Help: "Total trip searches by outcome"},
		[]string{"outcome"},
	)
	SearchLatency = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "trip_search", Name: "search_latency_seconds", Help: "Search latency seconds"})
	TripsMatched  = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "trip_search",
		Name:      "trips_matched",
		Help:      "Trips returned per search",
		Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
	})
	CacheHits   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "trip_search", Name: "cache_hits_total", Help: "Search cache hits"})
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{Namespace: "trip_search", Name: "cache_misses_total", Help: "Search cache misses"})
	EventErrors = promauto.NewCounter(prometheus.CounterOpts{Namespace: "trip_search", Name: "event_publish_errors_total", Help: "Search events that failed to publish"})

	FareHoldsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "trip_search", Name: "fare_holds_total", Help: "Segment fare holds by outcome"},
		[]string{"outcome"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "trip_search", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trip_search",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
