package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the voice relay service
type Metrics struct {
	// Upload pipeline metrics
	UploadsReceived  prometheus.Counter
	UploadsSucceeded prometheus.Counter
	UploadsFailed    *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec

	// Session metrics
	SessionPhase prometheus.Gauge
	PCMBytes     prometheus.Gauge
	Resets       prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// Phase values exposed on the session phase gauge.
const (
	phaseReadyValue      = 0
	phaseProcessingValue = 1
	phaseSendingValue    = 2
)

// NewMetrics creates and registers all metrics on the default registry
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates all metrics on the given registerer. Tests pass a
// private registry so parallel test runs do not collide.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Upload pipeline metrics
		UploadsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "voice_relay_uploads_received_total",
			Help: "Total number of upload pipeline runs started",
		}),
		UploadsSucceeded: factory.NewCounter(prometheus.CounterOpts{
			Name: "voice_relay_uploads_succeeded_total",
			Help: "Total number of upload pipeline runs committed",
		}),
		UploadsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_relay_uploads_failed_total",
			Help: "Total number of upload pipeline failures by stage",
		}, []string{"stage"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voice_relay_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}, []string{"stage"}),

		// Session metrics
		SessionPhase: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voice_relay_session_phase",
			Help: "Current session phase (0=ready, 1=processing, 2=sending_to_esp32)",
		}),
		PCMBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voice_relay_pcm_buffer_bytes",
			Help: "Size of the last committed PCM buffer in bytes",
		}),
		Resets: factory.NewCounter(prometheus.CounterOpts{
			Name: "voice_relay_session_resets_total",
			Help: "Total number of explicit session resets",
		}),

		// HTTP API metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_relay_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voice_relay_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_relay_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordUploadReceived increments the uploads received counter
func (m *Metrics) RecordUploadReceived() {
	m.UploadsReceived.Inc()
}

// RecordUploadSucceeded records a committed pipeline run and the resulting
// buffer size
func (m *Metrics) RecordUploadSucceeded(pcmBytes int) {
	m.UploadsSucceeded.Inc()
	m.PCMBytes.Set(float64(pcmBytes))
}

// RecordUploadFailed records a pipeline failure for the given stage
func (m *Metrics) RecordUploadFailed(stage string) {
	m.UploadsFailed.WithLabelValues(stage).Inc()
}

// ObserveStageDuration records the duration of a pipeline stage
func (m *Metrics) ObserveStageDuration(stage string, durationSeconds float64) {
	m.StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// SetSessionPhase maps the session phase string onto the phase gauge
func (m *Metrics) SetSessionPhase(phase string) {
	switch phase {
	case "processing":
		m.SessionPhase.Set(phaseProcessingValue)
	case "sending_to_esp32":
		m.SessionPhase.Set(phaseSendingValue)
	default:
		m.SessionPhase.Set(phaseReadyValue)
	}
}

// RecordReset increments the session reset counter and clears the buffer
// size gauge
func (m *Metrics) RecordReset() {
	m.Resets.Inc()
	m.PCMBytes.Set(0)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
