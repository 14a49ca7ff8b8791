package playback

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linguanest_playback_sessions_total",
		Help: "Utterance sessions started",
	})

	metricOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linguanest_playback_session_outcomes_total",
		Help: "How utterance sessions ended",
	}, []string{"outcome"})

	metricBoundaries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linguanest_playback_boundary_events_total",
		Help: "Sentence boundary callbacks delivered",
	})

	// Exported so the controller can count resets it performs.
	MetricDivergenceResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linguanest_playback_divergence_resets_total",
		Help: "Times reconciliation reset playback because the driver stopped on its own",
	})
)
