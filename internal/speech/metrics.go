package speech

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricSynthLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "speech_synthesis_seconds",
		Help:    "Latency of text-to-speech synthesis requests.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
	metricSpeakOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "speech_speak_outcomes_total",
		Help: "Terminal outcomes of speak pipeline runs.",
	}, []string{"outcome"})
)
