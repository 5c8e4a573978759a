package sse

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/FreePeak/golang-sse-sdk/internal/domain"
	"github.com/FreePeak/golang-sse-sdk/internal/infrastructure/logging"
	"github.com/FreePeak/golang-sse-sdk/internal/infrastructure/metrics"
)

// Registry is the concurrency-safe directory of all connected client
// channels plus the listener fan-out used by the client-mode reader.
//
// Broadcast and keep-alive iterate a snapshot of the client map, so a client
// evicted mid-broadcast never corrupts the traversal, and a client that
// registers mid-broadcast may or may not see that broadcast but is present
// for the next one.
type Registry struct {
	logger  *logging.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	clients map[string]*Channel
	closed  bool

	listenerMu sync.RWMutex
	listeners  []domain.EventListener
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithMetrics wires Prometheus collectors into the registry.
func WithMetrics(m *metrics.Metrics) RegistryOption {
	return func(r *Registry) {
		r.metrics = m
	}
}

// NewRegistry creates an empty, initialized registry.
func NewRegistry(logger *logging.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = logging.Default()
	}
	r := &Registry{
		logger:  logger,
		clients: make(map[string]*Channel),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a channel to the registry. A channel registered under an ID
// that is already taken replaces the old entry without error; the displaced
// channel is closed so its sink is not leaked. Callers are expected to use
// generated IDs that make collisions impossible.
func (r *Registry) Register(ch *Channel) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRegistryClosed
	}
	displaced := r.clients[ch.ID()]
	r.clients[ch.ID()] = ch
	total := len(r.clients)
	r.mu.Unlock()

	if displaced != nil {
		r.logger.Warn("client ID collision, replacing existing channel", logging.Fields{"clientId": ch.ID()})
		displaced.Close()
		r.metrics.ClientDisconnected()
	}

	r.metrics.ClientConnected()
	r.logger.Debug("client registered", logging.Fields{"clientId": ch.ID(), "totalClients": total})
	return nil
}

// Unregister removes and closes the channel with the given ID. Unknown IDs
// are a logged no-op.
func (r *Registry) Unregister(clientID string) {
	r.mu.Lock()
	ch, ok := r.clients[clientID]
	if ok {
		delete(r.clients, clientID)
	}
	total := len(r.clients)
	r.mu.Unlock()

	if !ok {
		r.logger.Warn("attempted to unregister unknown client", logging.Fields{"clientId": clientID})
		return
	}

	ch.Close()
	r.metrics.ClientDisconnected()
	r.logger.Debug("client unregistered", logging.Fields{"clientId": clientID, "totalClients": total})
}

// Unicast sends one event to exactly one client. It returns
// ErrClientNotFound for unknown IDs. A send failure evicts the failed client
// and is propagated to the caller as ErrSendFailed.
func (r *Registry) Unicast(clientID, eventName, eventData string) error {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return ErrRegistryClosed
	}
	ch, ok := r.clients[clientID]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrClientNotFound, clientID)
	}

	if err := ch.Send(eventName, eventData); err != nil {
		r.logger.Error("failed to send event to client", logging.Fields{
			"clientId": clientID,
			"event":    eventName,
			"error":    err.Error(),
		})
		r.Unregister(clientID)
		r.metrics.SendFailed()
		return fmt.Errorf("%w: %s: %v", ErrSendFailed, clientID, err)
	}

	r.metrics.EventSent()
	return nil
}

// Broadcast sends one event to every currently registered client and returns
// the number of clients the delivery was attempted for. A failure on one
// client evicts that client and never aborts delivery to the rest.
func (r *Registry) Broadcast(eventName, eventData string) int {
	channels := r.snapshot()
	r.metrics.Broadcast()
	r.logger.Debug("broadcasting event", logging.Fields{"event": eventName, "clients": len(channels)})

	for _, ch := range channels {
		if err := ch.Send(eventName, eventData); err != nil {
			r.logger.Error("broadcast delivery failed, evicting client", logging.Fields{
				"clientId": ch.ID(),
				"error":    err.Error(),
			})
			r.Unregister(ch.ID())
			r.metrics.SendFailed()
			continue
		}
		r.metrics.EventSent()
	}
	return len(channels)
}

// SendKeepAlives writes a keep-alive comment frame to every registered
// client, evicting the ones whose sink has gone away. It returns the number
// of clients the frame was attempted for.
func (r *Registry) SendKeepAlives() int {
	channels := r.snapshot()
	for _, ch := range channels {
		if err := ch.SendKeepAlive(); err != nil {
			r.logger.Debug("keep-alive failed, evicting client", logging.Fields{
				"clientId": ch.ID(),
				"error":    err.Error(),
			})
			r.Unregister(ch.ID())
			r.metrics.SendFailed()
			continue
		}
		r.metrics.KeepAliveSent()
	}
	return len(channels)
}

// DisconnectAll closes every channel present when the call started and
// removes exactly those entries. Clients that register concurrently either
// land in the snapshot and get closed with the rest, or register cleanly
// after the pass completes.
func (r *Registry) DisconnectAll() int {
	r.mu.Lock()
	snapshot := make(map[string]*Channel, len(r.clients))
	for id, ch := range r.clients {
		snapshot[id] = ch
	}
	r.mu.Unlock()

	for _, ch := range snapshot {
		ch.Close()
	}

	r.mu.Lock()
	for id := range snapshot {
		delete(r.clients, id)
	}
	r.mu.Unlock()

	for range snapshot {
		r.metrics.ClientDisconnected()
	}
	r.logger.Info("disconnected all clients", logging.Fields{"count": len(snapshot)})
	return len(snapshot)
}

// Count returns a point-in-time client count. It is advisory: concurrent
// registration and eviction can change it immediately after the read.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Close shuts the registry down: every channel is closed, the client map is
// cleared and further registrations are refused. Listeners are dropped.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.DisconnectAll()

	r.listenerMu.Lock()
	r.listeners = nil
	r.listenerMu.Unlock()

	r.logger.Info("registry closed")
}

// AddEventListener subscribes a listener to the inbound event fan-out.
func (r *Registry) AddEventListener(l domain.EventListener) {
	r.listenerMu.Lock()
	defer r.listenerMu.Unlock()
	next := make([]domain.EventListener, len(r.listeners), len(r.listeners)+1)
	copy(next, r.listeners)
	r.listeners = append(next, l)
}

// RemoveEventListener removes a previously added listener. Listeners are
// matched by equality, so a listener that needs removal should be a
// comparable type such as a pointer; function adapters cannot be removed.
func (r *Registry) RemoveEventListener(l domain.EventListener) {
	r.listenerMu.Lock()
	defer r.listenerMu.Unlock()
	next := make([]domain.EventListener, 0, len(r.listeners))
	for _, existing := range r.listeners {
		if listenersEqual(existing, l) {
			continue
		}
		next = append(next, existing)
	}
	r.listeners = next
}

// listenersEqual compares two listeners without panicking on nil or
// non-comparable implementations (e.g. func adapters).
func listenersEqual(a, b domain.EventListener) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !reflect.TypeOf(a).Comparable() || !reflect.TypeOf(b).Comparable() {
		return false
	}
	return a == b
}

// NotifyEventListeners fans an inbound event out to every listener. A
// listener that panics is logged and skipped; the remaining listeners are
// still notified.
func (r *Registry) NotifyEventListeners(eventName, eventData string) {
	for _, l := range r.listenerSnapshot() {
		r.notifyOne(l, eventName, eventData)
	}
}

func (r *Registry) notifyOne(l domain.EventListener, eventName, eventData string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("event listener panicked", logging.Fields{"panic": fmt.Sprint(rec)})
		}
	}()
	l.OnEvent(eventName, eventData)
}

// notifyConnected invokes the optional OnConnect hook on each listener.
func (r *Registry) notifyConnected() {
	for _, l := range r.listenerSnapshot() {
		if cl, ok := l.(domain.ConnectListener); ok {
			cl.OnConnect()
		}
	}
}

// notifyDisconnected invokes the optional OnDisconnect hook on each listener.
func (r *Registry) notifyDisconnected() {
	for _, l := range r.listenerSnapshot() {
		if dl, ok := l.(domain.DisconnectListener); ok {
			dl.OnDisconnect()
		}
	}
}

// notifyError invokes the optional OnError hook on each listener.
func (r *Registry) notifyError(err error) {
	for _, l := range r.listenerSnapshot() {
		if el, ok := l.(domain.ErrorListener); ok {
			el.OnError(err)
		}
	}
}

// snapshot copies the current channel set so iteration tolerates concurrent
// registration and eviction.
func (r *Registry) snapshot() []*Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	channels := make([]*Channel, 0, len(r.clients))
	for _, ch := range r.clients {
		channels = append(channels, ch)
	}
	return channels
}

// listenerSnapshot returns the current listener slice. The slice is replaced
// wholesale on every mutation, so iterating it without the lock is safe.
func (r *Registry) listenerSnapshot() []domain.EventListener {
	r.listenerMu.RLock()
	defer r.listenerMu.RUnlock()
	return r.listeners
}
