package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GenerationRequestsTotal counts generation attempts by kind and outcome
	// ("success", "unavailable", "failed", "rate_limited").
	GenerationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "midi_generation_requests_total",
			Help: "Total number of MIDI generation requests",
		},
		[]string{"kind", "outcome"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "midi_generation_duration_seconds",
			Help:    "Duration of calls to the MIDI generation service in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind"},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "midi_uploads_total",
			Help: "Total number of chord file uploads by outcome",
		},
		[]string{"outcome"},
	)

	// GenerationBreakerState is 0 closed, 1 half-open, 2 open.
	GenerationBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "midi_generation_breaker_state",
			Help: "Circuit breaker state for the MIDI generation service",
		},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func RecordGeneration(kind, outcome string, duration time.Duration) {
	GenerationRequestsTotal.WithLabelValues(kind, outcome).Inc()
	if duration > 0 {
		GenerationDuration.WithLabelValues(kind).Observe(duration.Seconds())
	}
}

func RecordUpload(outcome string) {
	UploadsTotal.WithLabelValues(outcome).Inc()
}

func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
