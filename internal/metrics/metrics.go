// Package metrics registers Prometheus instrumentation for the inference
// pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// ModelLoaded is 1 once the classifier finished loading.
	ModelLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chexray",
		Subsystem: "pipeline",
		Name:      "model_loaded",
		Help:      "Whether the classifier checkpoint is loaded and serving.",
	})

	// ChatTotal counts chat turns by outcome.
	ChatTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chexray",
		Subsystem: "pipeline",
		Name:      "chat_turns_total",
		Help:      "Total chat turns processed, labeled by outcome.",
	}, []string{"outcome"})

	// InferenceDurationSeconds is the time of one preprocess+forward pass.
	InferenceDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "chexray",
		Subsystem: "pipeline",
		Name:      "inference_duration_seconds",
		Help:      "Time to normalize an image and run the classifier forward pass.",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	// InterpretationDurationSeconds is the LLM round-trip time by result.
	InterpretationDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chexray",
		Subsystem: "pipeline",
		Name:      "interpretation_duration_seconds",
		Help:      "Round-trip time of the language-model call, labeled by result.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 60},
	}, []string{"result"})
)

// Register registers pipeline metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			ModelLoaded,
			ChatTotal,
			InferenceDurationSeconds,
			InterpretationDurationSeconds,
		)
	})
}
