package relay

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/typewire-dev/typewire/pkg/telemetry"
)

// Config holds relay settings.
type Config struct {
	// Path is the WebSocket endpoint path.
	// Default: "/ws".
	Path string

	// Topic is the topic sent to new connections until SetTopic changes it.
	Topic string

	// SendQueue is the per-connection outbound queue length. A connection
	// whose queue is full when a frame is broadcast is closed.
	// Default: 256.
	SendQueue int

	// WriteTimeout bounds each WebSocket write.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// MaxFrameSize is the largest client frame accepted. Larger messages
	// close the connection.
	// Default: 4096.
	MaxFrameSize int

	// AllowedOrigins lists origins allowed to connect. Empty allows only
	// same-origin requests and requests without an Origin header.
	// "*" allows any origin.
	AllowedOrigins []string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Path:         "/ws",
		SendQueue:    256,
		WriteTimeout: 10 * time.Second,
		MaxFrameSize: 4096,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Path == "" {
		c.Path = d.Path
	}
	if c.SendQueue <= 0 {
		c.SendQueue = d.SendQueue
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.MaxFrameSize <= 0 {
		c.MaxFrameSize = d.MaxFrameSize
	}
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = logger
	}
}

// WithMetrics records connection and frame metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(h *Hub) {
		h.metrics = m
	}
}

// WithTracer sets the tracer used for per-frame spans.
// Default: the global provider's "typewire" tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(h *Hub) {
		h.tracer = tracer
	}
}

// WithGatherer sets what GET /metrics serves.
// Default: prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(h *Hub) {
		h.gatherer = g
	}
}

// originChecker builds the upgrader's CheckOrigin from an allow list.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return SameOriginCheck
	}
	origins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		origins[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // non-browser client
		}
		return origins[origin]
	}
}

// SameOriginCheck accepts requests with no Origin header or an Origin
// whose host matches the request host.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || r.Host == "" {
		return false
	}
	return u.Host == r.Host
}
