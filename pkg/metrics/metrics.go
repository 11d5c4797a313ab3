// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// FlowStepsTotal counts dispatched conversation steps by outcome.
	FlowStepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flow_steps_total",
			Help: "Conversation steps handled, by step tag and outcome",
		},
		[]string{"step", "outcome"},
	)

	// FlowStepDuration tracks how long each step takes, storage included.
	FlowStepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flow_step_duration_seconds",
			Help:    "Conversation step duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"step"},
	)

	// ClassificationsTotal counts incident classifications by case type.
	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incident_classifications_total",
			Help: "Incident classifications by case type",
		},
		[]string{"case_type"},
	)

	// IncidentEventsPublished counts lifecycle events sent to NATS.
	IncidentEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incident_events_published_total",
			Help: "Incident lifecycle events published, by type and status",
		},
		[]string{"type", "status"},
	)

	// ImageAnalysisDuration tracks vision model latency.
	ImageAnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_analysis_duration_seconds",
			Help:    "Image analysis duration in seconds",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "status"},
	)

	// LLMTokensTotal tracks tokens spent on image analysis.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// LiveConnectionsActive tracks open dashboard websocket connections.
	LiveConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_feed_connections_active",
			Help: "Number of active live feed websocket connections",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordStep records metrics for one conversation step.
func RecordStep(step, outcome string, duration float64) {
	FlowStepsTotal.WithLabelValues(step, outcome).Inc()
	FlowStepDuration.WithLabelValues(step).Observe(duration)
}

// RecordClassification counts one classification result.
func RecordClassification(caseType string) {
	ClassificationsTotal.WithLabelValues(caseType).Inc()
}

// RecordEventPublished counts a publish attempt.
func RecordEventPublished(eventType, status string) {
	IncidentEventsPublished.WithLabelValues(eventType, status).Inc()
}

// RecordImageAnalysis records metrics for one vision call.
func RecordImageAnalysis(provider, model, status string, duration float64, tokensIn, tokensOut int) {
	ImageAnalysisDuration.WithLabelValues(provider, status).Observe(duration)
	if model != "" {
		LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
		LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
	}
}

// IncrementLiveConnections increments the active live feed connection count.
func IncrementLiveConnections() {
	LiveConnectionsActive.Inc()
}

// DecrementLiveConnections decrements the active live feed connection count.
func DecrementLiveConnections() {
	LiveConnectionsActive.Dec()
}
