package sse

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/FreePeak/golang-sse-sdk/internal/infrastructure/logging"
)

// ConnectHandler is notified with the freshly assigned client ID every time
// a streaming connection is accepted and registered.
type ConnectHandler func(clientID string)

// StreamHandler bridges inbound HTTP requests into registered client
// channels. Every accepted streaming connection results in exactly one
// channel in the registry; rejected connections (admission control, missing
// flusher support) never register anything.
type StreamHandler struct {
	registry   *Registry
	logger     *logging.Logger
	maxClients int
	onConnect  ConnectHandler
}

// StreamHandlerOption configures a StreamHandler.
type StreamHandlerOption func(*StreamHandler)

// WithMaxClients caps concurrent connections. Zero or negative disables the
// admission check.
func WithMaxClients(n int) StreamHandlerOption {
	return func(h *StreamHandler) {
		h.maxClients = n
	}
}

// WithConnectHandler registers a callback fired after each client connects.
func WithConnectHandler(fn ConnectHandler) StreamHandlerOption {
	return func(h *StreamHandler) {
		h.onConnect = fn
	}
}

// WithHandlerLogger sets the handler's logger.
func WithHandlerLogger(logger *logging.Logger) StreamHandlerOption {
	return func(h *StreamHandler) {
		h.logger = logger
	}
}

// NewStreamHandler creates a handler that registers accepted connections
// with the given registry.
func NewStreamHandler(registry *Registry, opts ...StreamHandlerOption) *StreamHandler {
	h := &StreamHandler{
		registry:   registry,
		logger:     logging.Default(),
		maxClients: DefaultMaxClients,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP implements the http.Handler interface. It holds the request open
// until the client goes away or the channel is closed server-side.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("streaming unsupported by response writer")
		http.Error(w, ErrStreamingUnsupported.Error(), http.StatusInternalServerError)
		return
	}

	// Admission control: an advisory count read is enough here, slight
	// overshoot under concurrent accepts is tolerated.
	if h.maxClients > 0 && h.registry.Count() >= h.maxClients {
		h.logger.Warn("rejecting client, maximum concurrent clients reached", logging.Fields{"max": h.maxClients})
		http.Error(w, ErrTooManyClients.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Accel-Buffering", "no")

	// The status line and flush must complete before the channel becomes
	// visible to broadcasts: once registered, other goroutines write to w
	// under the channel's mutex, and the ResponseWriter tolerates only one
	// goroutine at a time.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	clientID := uuid.New().String()
	channel := NewChannel(clientID, w, h.logger)

	if err := h.registry.Register(channel); err != nil {
		// Headers are already out; dropping the connection is all that is
		// left to do.
		h.logger.Warn("registration refused after accept", logging.Fields{"error": err.Error()})
		return
	}

	h.logger.Info("sse client connected", logging.Fields{
		"clientId":   clientID,
		"remoteAddr": r.RemoteAddr,
		"userAgent":  r.UserAgent(),
	})

	if h.onConnect != nil {
		h.onConnect(clientID)
	}

	select {
	case <-r.Context().Done():
		// Client dropped the connection.
		h.registry.Unregister(clientID)
	case <-channel.Done():
		// Closed server-side: explicit disconnect, send failure or shutdown.
	}

	h.logger.Info("sse client disconnected", logging.Fields{"clientId": clientID})
}
