// Package metrics exposes Prometheus instrumentation for the interview
// service: embedding backend latency, retrieval gate outcomes, generation
// calls, and session registry size. All metrics share the "twind" namespace.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "twind"

const (
	statusSuccess = "success"
	statusError   = "error"

	resultRelevant = "relevant"
	resultGeneric  = "generic"
	resultNone     = "none"
)

var (
	// embeddingRequestDuration measures embedding backend calls.
	embeddingRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "request_duration_seconds",
			Help:      "Duration of embedding backend requests in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
		},
		[]string{"status"},
	)

	// retrievalTotal counts retrieval outcomes: "relevant" when the score
	// cleared the threshold, "generic" when it did not, "none" when no
	// retrieval signal was available.
	retrievalTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "total",
			Help:      "Total number of retrieval operations by outcome",
		},
		[]string{"result"},
	)

	// generationRequestsTotal counts generation backend calls.
	generationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "requests_total",
			Help:      "Total number of generation backend requests",
		},
		[]string{"status"},
	)

	// turnDuration measures full interview turns, including retrieval and
	// generation.
	turnDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "interview",
			Name:      "turn_duration_seconds",
			Help:      "Duration of a full interview turn in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// activeSessions tracks the current session registry size.
	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Current number of in-memory interview sessions",
		},
	)

	// sessionsEvictedTotal counts sessions removed by the eviction policy.
	sessionsEvictedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "evicted_total",
			Help:      "Total number of sessions evicted",
		},
		[]string{"reason"},
	)
)

// RecordEmbedding records one embedding backend call.
func RecordEmbedding(seconds float64, ok bool) {
	status := statusSuccess
	if !ok {
		status = statusError
	}
	embeddingRequestDuration.WithLabelValues(status).Observe(seconds)
}

// RecordRetrieval records a retrieval outcome. relevant is meaningful only
// when signal is true.
func RecordRetrieval(signal, relevant bool) {
	switch {
	case !signal:
		retrievalTotal.WithLabelValues(resultNone).Inc()
	case relevant:
		retrievalTotal.WithLabelValues(resultRelevant).Inc()
	default:
		retrievalTotal.WithLabelValues(resultGeneric).Inc()
	}
}

// RecordGeneration records one generation backend call.
func RecordGeneration(ok bool) {
	status := statusSuccess
	if !ok {
		status = statusError
	}
	generationRequestsTotal.WithLabelValues(status).Inc()
}

// RecordTurn records the duration of one completed interview turn.
func RecordTurn(seconds float64) {
	turnDuration.Observe(seconds)
}

// SetActiveSessions updates the session registry gauge.
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

// RecordEviction counts a session eviction ("idle" or "capacity").
func RecordEviction(reason string) {
	sessionsEvictedTotal.WithLabelValues(reason).Inc()
}
