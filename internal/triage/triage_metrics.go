package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	TriagesTotal        *prometheus.CounterVec
	TriageDuration      *prometheus.HistogramVec
	PredictionsTotal    *prometheus.CounterVec
	ClassifierCalls     *prometheus.CounterVec
	ClassifierDuration  prometheus.Histogram
	ClassifierFallbacks prometheus.Counter
	ArtifactsTotal      *prometheus.CounterVec
	ArtifactDuration    prometheus.Histogram
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TriagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neurotriage_triages_total",
			Help: "Total triage requests by outcome.",
		}, []string{"outcome"}),
		TriageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "neurotriage_triage_duration_seconds",
			Help:    "Duration of triage requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s .. ~256s
		}, []string{"outcome"}),
		PredictionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neurotriage_predictions_total",
			Help: "Total predictions recorded by severity tier.",
		}, []string{"severity"}),
		ClassifierCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neurotriage_classifier_calls_total",
			Help: "Total classifier backend calls by attempt and status.",
		}, []string{"attempt", "status"}),
		ClassifierDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "neurotriage_classifier_call_duration_seconds",
			Help:    "Duration of individual classifier calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. ~64s
		}),
		ClassifierFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "neurotriage_classifier_fallbacks_total",
			Help: "Total triage requests that used the NoTumor fallback result.",
		}),
		ArtifactsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neurotriage_artifacts_total",
			Help: "Total overlay artifact generation attempts by status.",
		}, []string{"status"}),
		ArtifactDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "neurotriage_artifact_duration_seconds",
			Help:    "Duration of overlay artifact generation in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8), // 0.1s .. ~12.8s
		}),
	}

	reg.MustRegister(
		m.TriagesTotal,
		m.TriageDuration,
		m.PredictionsTotal,
		m.ClassifierCalls,
		m.ClassifierDuration,
		m.ClassifierFallbacks,
		m.ArtifactsTotal,
		m.ArtifactDuration,
	)

	return m
}

// Hooks returns an EngineHooks that increments the corresponding metrics.
func (m *Metrics) Hooks() EngineHooks {
	return EngineHooks{
		OnClassifierCall: func(attempt int, duration float64, failed bool) {
			status := "success"
			if failed {
				status = "error"
			}
			m.ClassifierCalls.WithLabelValues(attemptLabel(attempt), status).Inc()
			m.ClassifierDuration.Observe(duration)
		},
		OnFallback: func() {
			m.ClassifierFallbacks.Inc()
		},
		OnArtifact: func(duration float64, failed bool) {
			status := "success"
			if failed {
				status = "error"
			}
			m.ArtifactsTotal.WithLabelValues(status).Inc()
			m.ArtifactDuration.Observe(duration)
		},
	}
}

func attemptLabel(attempt int) string {
	if attempt <= 1 {
		return "first"
	}
	return "retry"
}
