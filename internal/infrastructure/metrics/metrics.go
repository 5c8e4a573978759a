// Package metrics exposes Prometheus collectors for the SSE connector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the connector metrics.
type Config struct {
	// Namespace is the metrics namespace (default: "sse").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the connector metrics.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "sse",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus collectors for one connector. A nil *Metrics
// is valid and records nothing, so instrumentation points never need to
// guard against an unconfigured connector.
type Metrics struct {
	connectedClients prometheus.Gauge
	eventsSent       prometheus.Counter
	sendFailures     prometheus.Counter
	broadcasts       prometheus.Counter
	keepAlives       prometheus.Counter
	eventsReceived   prometheus.Counter
	reconnects       prometheus.Counter
}

// New creates and registers the connector metrics.
func New(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		connectedClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "connected_clients",
			Help:        "Number of currently connected SSE clients",
			ConstLabels: config.ConstLabels,
		}),
		eventsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "events_sent_total",
			Help:        "Total number of events written to client channels",
			ConstLabels: config.ConstLabels,
		}),
		sendFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "send_failures_total",
			Help:        "Total number of event writes that failed and evicted a client",
			ConstLabels: config.ConstLabels,
		}),
		broadcasts: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "broadcasts_total",
			Help:        "Total number of broadcast operations performed",
			ConstLabels: config.ConstLabels,
		}),
		keepAlives: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "keepalives_total",
			Help:        "Total number of keep-alive comment frames sent",
			ConstLabels: config.ConstLabels,
		}),
		eventsReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "events_received_total",
			Help:        "Total number of events received from remote SSE streams",
			ConstLabels: config.ConstLabels,
		}),
		reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "reconnects_total",
			Help:        "Total number of reconnect attempts to remote SSE streams",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// ClientConnected records a new registered client.
func (m *Metrics) ClientConnected() {
	if m != nil {
		m.connectedClients.Inc()
	}
}

// ClientDisconnected records a removed client.
func (m *Metrics) ClientDisconnected() {
	if m != nil {
		m.connectedClients.Dec()
	}
}

// EventSent records a successful event write.
func (m *Metrics) EventSent() {
	if m != nil {
		m.eventsSent.Inc()
	}
}

// SendFailed records a write failure that evicted a client.
func (m *Metrics) SendFailed() {
	if m != nil {
		m.sendFailures.Inc()
	}
}

// Broadcast records one broadcast operation.
func (m *Metrics) Broadcast() {
	if m != nil {
		m.broadcasts.Inc()
	}
}

// KeepAliveSent records one keep-alive frame.
func (m *Metrics) KeepAliveSent() {
	if m != nil {
		m.keepAlives.Inc()
	}
}

// EventReceived records one event read from a remote stream.
func (m *Metrics) EventReceived() {
	if m != nil {
		m.eventsReceived.Inc()
	}
}

// Reconnect records one reconnect attempt.
func (m *Metrics) Reconnect() {
	if m != nil {
		m.reconnects.Inc()
	}
}
