package sse

import (
	"time"

	"github.com/FreePeak/golang-sse-sdk/internal/domain"
	"github.com/FreePeak/golang-sse-sdk/internal/infrastructure/logging"
	isse "github.com/FreePeak/golang-sse-sdk/internal/infrastructure/sse"
)

// Event is a single server-sent event received from a remote stream.
type Event struct {
	// Name is the event type; "message" when the stream carried none.
	Name string
	// Data is the payload, multi-line values joined with "\n".
	Data string
	// ID is the value of the stream's "id:" field, when present.
	ID string
}

// Listener subscribes to a remote SSE endpoint and delivers parsed events to
// a handler. A stopped listener cannot be restarted; create a new one per
// subscription.
type Listener struct {
	reader *isse.StreamReader
	logger *logging.Logger
}

type listenerConfig struct {
	logger            *logging.Logger
	connector         *Connector
	onEvent           func(Event)
	autoReconnect     bool
	reconnectInterval time.Duration
	connectTimeout    time.Duration
	maxEvents         int
}

// ListenerOption configures a Listener.
type ListenerOption func(*listenerConfig)

// WithListenerLogger sets the listener's logger.
func WithListenerLogger(logger *logging.Logger) ListenerOption {
	return func(c *listenerConfig) {
		c.logger = logger
	}
}

// WithEventHandler sets the callback invoked for every received event.
func WithEventHandler(fn func(Event)) ListenerOption {
	return func(c *listenerConfig) {
		c.onEvent = fn
	}
}

// WithConnector fans received events out to the connector's event listeners
// and shares the connector's metrics.
func WithConnector(connector *Connector) ListenerOption {
	return func(c *listenerConfig) {
		c.connector = connector
	}
}

// WithAutoReconnect enables reconnection after stream failures.
func WithAutoReconnect(enabled bool) ListenerOption {
	return func(c *listenerConfig) {
		c.autoReconnect = enabled
	}
}

// WithReconnectInterval sets the wait between reconnect attempts.
func WithReconnectInterval(d time.Duration) ListenerOption {
	return func(c *listenerConfig) {
		c.reconnectInterval = d
	}
}

// WithConnectTimeout bounds connection establishment; reads stay unbounded.
func WithConnectTimeout(d time.Duration) ListenerOption {
	return func(c *listenerConfig) {
		c.connectTimeout = d
	}
}

// WithMaxEvents stops the listener gracefully after n events; zero means
// unlimited.
func WithMaxEvents(n int) ListenerOption {
	return func(c *listenerConfig) {
		c.maxEvents = n
	}
}

// NewListener creates a listener for the given SSE endpoint URL.
func NewListener(url string, opts ...ListenerOption) *Listener {
	cfg := listenerConfig{
		reconnectInterval: isse.DefaultReconnectInterval,
		connectTimeout:    isse.DefaultConnectTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.Default()
	}

	readerOpts := []isse.ReaderOption{
		isse.WithReaderLogger(cfg.logger),
		isse.WithAutoReconnect(cfg.autoReconnect),
		isse.WithReconnectInterval(cfg.reconnectInterval),
		isse.WithConnectTimeout(cfg.connectTimeout),
		isse.WithMaxEvents(cfg.maxEvents),
	}
	if cfg.connector != nil {
		readerOpts = append(readerOpts,
			isse.WithListenerFanOut(cfg.connector.registry),
			isse.WithReaderMetrics(cfg.connector.metrics),
		)
	}
	if cfg.onEvent != nil {
		fn := cfg.onEvent
		readerOpts = append(readerOpts, isse.WithEventHandler(func(ev domain.Event) {
			fn(Event{Name: ev.Name, Data: ev.Data, ID: ev.ID})
		}))
	}

	return &Listener{
		reader: isse.NewStreamReader(url, readerOpts...),
		logger: cfg.logger,
	}
}

// Start launches the background read loop.
func (l *Listener) Start() error {
	return l.reader.Start()
}

// Stop interrupts the read loop and releases the outbound connection.
func (l *Listener) Stop() {
	l.reader.Stop()
}

// Done returns a channel closed when the read loop has terminated, whether
// by Stop, event limit or a non-recoverable disconnect.
func (l *Listener) Done() <-chan struct{} {
	return l.reader.Done()
}

// ReceivedEvents returns how many events the listener has delivered so far.
func (l *Listener) ReceivedEvents() int64 {
	return l.reader.ReceivedEvents()
}
