package generator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linguanest_story_requests_total",
		Help: "Story generation requests by provider and outcome",
	}, []string{"provider", "status"})

	metricLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "linguanest_story_generation_ms",
		Help:    "Latency of story generation calls to the hosted model",
		Buckets: prometheus.ExponentialBuckets(100, 1.8, 10),
	})

	metricCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linguanest_story_cache_hits_total",
		Help: "Stories served from the local cache",
	}, []string{"freshness"})
)
