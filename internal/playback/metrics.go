package playback

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricStarts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playback_starts_total",
		Help: "Total playback attempts started",
	})

	metricStops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playback_stops_total",
		Help: "Total explicit stop requests that found an active playback",
	})

	metricSupersedes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playback_supersedes_total",
		Help: "Total playbacks cancelled by a newer playback",
	})

	metricStateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playback_state_transitions_total",
		Help: "Playback attempt state transitions",
	}, []string{"from", "to"})
)
