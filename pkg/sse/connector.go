// Package sse is the public facade of the SSE connector SDK.
//
// A Connector is the server side: it accepts long-lived streaming
// connections, keeps them alive, and exposes unicast/broadcast delivery and
// disconnect operations to the host application. A Listener is the client
// side: it subscribes to a remote SSE endpoint and surfaces parsed events.
package sse

import (
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/FreePeak/golang-sse-sdk/internal/domain"
	"github.com/FreePeak/golang-sse-sdk/internal/infrastructure/logging"
	"github.com/FreePeak/golang-sse-sdk/internal/infrastructure/metrics"
	isse "github.com/FreePeak/golang-sse-sdk/internal/infrastructure/sse"
)

// Errors surfaced by connector operations.
var (
	ErrClientNotFound  = isse.ErrClientNotFound
	ErrSendFailed      = isse.ErrSendFailed
	ErrChannelClosed   = isse.ErrChannelClosed
	ErrConnectorClosed = isse.ErrRegistryClosed
	ErrInvalidInput    = domain.ErrInvalidInput
)

// Connector is the server-side entry point. It owns the client registry, the
// stream handler and the keep-alive scheduler.
type Connector struct {
	registry  *isse.Registry
	handler   *isse.StreamHandler
	keepAlive *isse.KeepAliveScheduler
	logger    *logging.Logger
	metrics   *metrics.Metrics
	closed    atomic.Bool
}

type connectorConfig struct {
	logger            *logging.Logger
	keepAliveInterval time.Duration
	maxClients        int
	onConnect         func(clientID string)
	metricsRegistry   prometheus.Registerer
	metricsNamespace  string
}

// Option configures a Connector.
type Option func(*connectorConfig)

// WithLogger sets the connector's logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *connectorConfig) {
		c.logger = logger
	}
}

// WithKeepAliveInterval sets how often keep-alive frames are sent.
func WithKeepAliveInterval(d time.Duration) Option {
	return func(c *connectorConfig) {
		c.keepAliveInterval = d
	}
}

// WithMaxClients caps concurrent connections. Zero disables the cap.
func WithMaxClients(n int) Option {
	return func(c *connectorConfig) {
		c.maxClients = n
	}
}

// WithConnectHandler registers a callback fired with the client ID whenever
// a new client connects.
func WithConnectHandler(fn func(clientID string)) Option {
	return func(c *connectorConfig) {
		c.onConnect = fn
	}
}

// WithMetrics registers Prometheus collectors for the connector on the
// given registry. Pass prometheus.DefaultRegisterer for the process-wide
// registry.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *connectorConfig) {
		c.metricsRegistry = reg
	}
}

// WithMetricsNamespace overrides the metrics namespace (default "sse").
func WithMetricsNamespace(namespace string) Option {
	return func(c *connectorConfig) {
		c.metricsNamespace = namespace
	}
}

// NewConnector creates a connector and starts its keep-alive scheduler.
func NewConnector(opts ...Option) *Connector {
	cfg := connectorConfig{
		keepAliveInterval: isse.DefaultKeepAliveInterval,
		maxClients:        isse.DefaultMaxClients,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.Default()
	}

	var m *metrics.Metrics
	if cfg.metricsRegistry != nil {
		mopts := []metrics.Option{metrics.WithRegistry(cfg.metricsRegistry)}
		if cfg.metricsNamespace != "" {
			mopts = append(mopts, metrics.WithNamespace(cfg.metricsNamespace))
		}
		m = metrics.New(mopts...)
	}

	registry := isse.NewRegistry(cfg.logger, isse.WithMetrics(m))

	handlerOpts := []isse.StreamHandlerOption{
		isse.WithMaxClients(cfg.maxClients),
		isse.WithHandlerLogger(cfg.logger),
	}
	if cfg.onConnect != nil {
		handlerOpts = append(handlerOpts, isse.WithConnectHandler(cfg.onConnect))
	}

	c := &Connector{
		registry:  registry,
		handler:   isse.NewStreamHandler(registry, handlerOpts...),
		keepAlive: isse.NewKeepAliveScheduler(registry, cfg.keepAliveInterval, cfg.logger),
		logger:    cfg.logger,
		metrics:   m,
	}
	c.keepAlive.Start()
	return c
}

// Handler returns the http.Handler that accepts streaming connections.
// Mount it on whatever router the host uses.
func (c *Connector) Handler() http.Handler {
	return c.handler
}

// SendEventToClient sends a named event to one specific client. When eventID
// is non-empty the payload is wrapped as {"id":"<eventID>","data":<data>} so
// clients can correlate deliveries. It returns a confirmation message on
// success, ErrClientNotFound for unknown IDs and ErrSendFailed when the
// write failed (the failed client has been evicted).
func (c *Connector) SendEventToClient(clientID, eventName, eventData, eventID string) (string, error) {
	if c.closed.Load() {
		return "", ErrConnectorClosed
	}
	if strings.TrimSpace(clientID) == "" {
		return "", fmt.Errorf("%w: client ID cannot be empty", ErrInvalidInput)
	}
	if strings.TrimSpace(eventName) == "" {
		return "", fmt.Errorf("%w: event name cannot be empty", ErrInvalidInput)
	}

	payload := eventData
	if eventID != "" {
		payload = fmt.Sprintf("{\"id\":%q,\"data\":%s}", eventID, eventData)
	}

	if err := c.registry.Unicast(clientID, eventName, payload); err != nil {
		return "", err
	}
	return fmt.Sprintf("Event '%s' sent successfully to client '%s'", eventName, clientID), nil
}

// Broadcast sends a named event to every connected client and returns the
// number of clients delivery was attempted for. Per-client failures evict
// the failed client and never fail the broadcast.
func (c *Connector) Broadcast(eventName, eventData string) (int, error) {
	if c.closed.Load() {
		return 0, ErrConnectorClosed
	}
	return c.registry.Broadcast(eventName, eventData), nil
}

// BroadcastMessage broadcasts a payload without an event name; clients see
// it as the default "message" event type.
func (c *Connector) BroadcastMessage(message string) (int, error) {
	return c.Broadcast("", message)
}

// DisconnectClient closes and removes one client. Unknown IDs are a logged
// no-op; the confirmation is returned either way.
func (c *Connector) DisconnectClient(clientID string) (string, error) {
	if c.closed.Load() {
		return "", ErrConnectorClosed
	}
	if strings.TrimSpace(clientID) == "" {
		return "", fmt.Errorf("%w: client ID cannot be empty", ErrInvalidInput)
	}
	c.registry.Unregister(clientID)
	return fmt.Sprintf("Client '%s' disconnected successfully", clientID), nil
}

// DisconnectAll closes every connected client and returns how many were
// disconnected.
func (c *Connector) DisconnectAll() (int, error) {
	if c.closed.Load() {
		return 0, ErrConnectorClosed
	}
	return c.registry.DisconnectAll(), nil
}

// ConnectedClientCount returns a point-in-time count of connected clients.
func (c *Connector) ConnectedClientCount() int {
	return c.registry.Count()
}

// AddEventListener subscribes a callback to events received by listeners
// attached to this connector (client mode fan-out).
func (c *Connector) AddEventListener(fn func(name, data string)) {
	c.registry.AddEventListener(domain.EventListenerFunc(fn))
}

// Stop halts the keep-alive scheduler but leaves connected clients open.
// Use Close to also disconnect them.
func (c *Connector) Stop() {
	c.keepAlive.Stop()
	c.logger.Info("connector keep-alive stopped, clients remain connected")
}

// Close shuts the connector down: the keep-alive scheduler is stopped, every
// client channel is closed with a final notification frame, and further
// operations return ErrConnectorClosed.
func (c *Connector) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.keepAlive.Stop()
	c.registry.Close()
	c.logger.Info("connector closed")
	return nil
}
