package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/typewire-dev/typewire/pkg/protocol"
)

// Drop reasons used for the frames_dropped_total metric.
const (
	DropQueueFull  = "queue_full"
	DropMalformed  = "malformed"
	DropNoID       = "no_id"
	DropHeldID     = "id_held"
	DropUnknownTag = "unknown_tag"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "typewire").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for apply duration.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "typewire",
		// Applying one edit is a slice copy; microsecond buckets.
		Buckets:  []float64{1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 1e-2},
		Registry: prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus collectors for decoding, applying and relaying
// frames. A nil *Metrics is valid and records nothing.
type Metrics struct {
	framesDecoded      *prometheus.CounterVec
	framesMalformed    prometheus.Counter
	framesDropped      *prometheus.CounterVec
	applyErrors        *prometheus.CounterVec
	applyDuration      *prometheus.HistogramVec
	relayConnections   prometheus.Gauge
	relayFrames        *prometheus.CounterVec
	relaySlowConsumers prometheus.Counter
}

// NewMetrics registers the typewire collectors.
//
// Metrics collected:
//   - typewire_frames_decoded_total: Counter of decoded frames by kind
//   - typewire_frames_malformed_total: Counter of frames rejected by the decoder
//   - typewire_frames_dropped_total: Counter of frames dropped by reason
//   - typewire_apply_errors_total: Counter of rejected edits by reason
//   - typewire_apply_duration_seconds: Histogram of edit apply time by kind
//   - typewire_relay_connections: Gauge of open relay connections
//   - typewire_relay_frames_total: Counter of frames broadcast by the relay
//   - typewire_relay_slow_consumers_total: Counter of connections closed for lagging
//
// Registering twice on the same registry panics, as with promauto.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		framesDecoded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "frames_decoded_total",
			Help:        "Total number of frames decoded",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		framesMalformed: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "frames_malformed_total",
			Help:        "Total number of frames too short for their kind",
			ConstLabels: config.ConstLabels,
		}),

		framesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "frames_dropped_total",
			Help:        "Total number of frames dropped before applying",
			ConstLabels: config.ConstLabels,
		}, []string{"reason"}),

		applyErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "apply_errors_total",
			Help:        "Total number of events the session rejected",
			ConstLabels: config.ConstLabels,
		}, []string{"reason"}),

		applyDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "apply_duration_seconds",
			Help:        "Time to apply one event to a session",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"kind"}),

		relayConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "relay_connections",
			Help:        "Number of open relay connections",
			ConstLabels: config.ConstLabels,
		}),

		relayFrames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "relay_frames_total",
			Help:        "Total number of frames broadcast by the relay",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		relaySlowConsumers: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "relay_slow_consumers_total",
			Help:        "Total number of connections closed because their queue was full",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// RecordDecoded counts a successfully decoded frame.
func (m *Metrics) RecordDecoded(tag protocol.Tag) {
	if m == nil {
		return
	}
	m.framesDecoded.WithLabelValues(tag.String()).Inc()
}

// RecordMalformed counts a frame the decoder rejected.
func (m *Metrics) RecordMalformed() {
	if m == nil {
		return
	}
	m.framesMalformed.Inc()
}

// RecordDropped counts a frame dropped for reason.
func (m *Metrics) RecordDropped(reason string) {
	if m == nil {
		return
	}
	m.framesDropped.WithLabelValues(reason).Inc()
}

// RecordApply observes the time spent applying one event.
func (m *Metrics) RecordApply(tag protocol.Tag, d time.Duration) {
	if m == nil {
		return
	}
	m.applyDuration.WithLabelValues(tag.String()).Observe(d.Seconds())
}

// RecordApplyError counts an event the session rejected.
func (m *Metrics) RecordApplyError(reason string) {
	if m == nil {
		return
	}
	m.applyErrors.WithLabelValues(reason).Inc()
}

// ConnOpened records a new relay connection.
func (m *Metrics) ConnOpened() {
	if m == nil {
		return
	}
	m.relayConnections.Inc()
}

// ConnClosed records a closed relay connection.
func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}
	m.relayConnections.Dec()
}

// RecordRelayed counts a frame broadcast by the relay.
func (m *Metrics) RecordRelayed(tag protocol.Tag) {
	if m == nil {
		return
	}
	m.relayFrames.WithLabelValues(tag.String()).Inc()
}

// RecordSlowConsumer counts a connection closed for lagging.
func (m *Metrics) RecordSlowConsumer() {
	if m == nil {
		return
	}
	m.relaySlowConsumers.Inc()
}
