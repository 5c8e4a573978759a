package sse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/FreePeak/golang-sse-sdk/internal/domain"
	"github.com/FreePeak/golang-sse-sdk/internal/infrastructure/logging"
	"github.com/FreePeak/golang-sse-sdk/internal/infrastructure/metrics"
)

// errEventLimit signals a graceful stop once the configured number of events
// has been received. It never escapes the reader.
var errEventLimit = errors.New("configured event limit reached")

// EventHandler receives every event the reader parses off the remote stream.
type EventHandler func(event domain.Event)

// StreamReader subscribes to a remote SSE endpoint, parses the stream and
// fans events out to an optional registry's listeners and a local handler.
//
// The reader owns one background goroutine that connects, reads until the
// stream ends or fails, then either reconnects after a backoff or stops,
// depending on the auto-reconnect policy. Stop interrupts both a blocked
// read and a backoff sleep. A stopped reader cannot be restarted; create a
// new one per subscription.
type StreamReader struct {
	url      string
	registry *Registry
	logger   *logging.Logger
	metrics  *metrics.Metrics
	onEvent  EventHandler

	connectTimeout    time.Duration
	reconnectInterval time.Duration
	autoReconnect     bool
	maxEvents         int

	httpClient *http.Client
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	started    atomic.Bool
	received   atomic.Int64
}

// ReaderOption configures a StreamReader.
type ReaderOption func(*StreamReader)

// WithEventHandler sets the callback invoked for every received event.
func WithEventHandler(fn EventHandler) ReaderOption {
	return func(r *StreamReader) {
		r.onEvent = fn
	}
}

// WithListenerFanOut forwards every received event to the registry's
// event listeners.
func WithListenerFanOut(registry *Registry) ReaderOption {
	return func(r *StreamReader) {
		r.registry = registry
	}
}

// WithAutoReconnect enables reconnection after stream failures.
func WithAutoReconnect(enabled bool) ReaderOption {
	return func(r *StreamReader) {
		r.autoReconnect = enabled
	}
}

// WithReconnectInterval sets the wait between reconnect attempts.
func WithReconnectInterval(d time.Duration) ReaderOption {
	return func(r *StreamReader) {
		if d > 0 {
			r.reconnectInterval = d
		}
	}
}

// WithConnectTimeout bounds connection establishment. Reads stay unbounded.
func WithConnectTimeout(d time.Duration) ReaderOption {
	return func(r *StreamReader) {
		if d > 0 {
			r.connectTimeout = d
		}
	}
}

// WithMaxEvents stops the reader gracefully after n events. Zero means
// unlimited.
func WithMaxEvents(n int) ReaderOption {
	return func(r *StreamReader) {
		r.maxEvents = n
	}
}

// WithReaderLogger sets the reader's logger.
func WithReaderLogger(logger *logging.Logger) ReaderOption {
	return func(r *StreamReader) {
		r.logger = logger
	}
}

// WithReaderMetrics wires Prometheus collectors into the reader.
func WithReaderMetrics(m *metrics.Metrics) ReaderOption {
	return func(r *StreamReader) {
		r.metrics = m
	}
}

// NewStreamReader creates a reader for the given SSE endpoint URL.
func NewStreamReader(url string, opts ...ReaderOption) *StreamReader {
	r := &StreamReader{
		url:               url,
		logger:            logging.Default(),
		connectTimeout:    DefaultConnectTimeout,
		reconnectInterval: DefaultReconnectInterval,
		done:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(logging.Fields{"url": url})

	// Bounded connect, unbounded read: the transport times out dialing and
	// header exchange, but no overall client timeout is set so the body can
	// stream forever.
	r.httpClient = &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: r.connectTimeout,
			}).DialContext,
			TLSHandshakeTimeout:   r.connectTimeout,
			ResponseHeaderTimeout: r.connectTimeout,
		},
	}
	return r
}

// Start launches the background read loop. It returns ErrAlreadyStarted if
// the reader was started before.
func (r *StreamReader) Start() error {
	if !r.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	go r.run()
	r.logger.Info("stream reader started")
	return nil
}

// Stop cancels the read loop, interrupting a blocked read or backoff sleep,
// and waits a bounded grace period for the loop to exit. The outbound
// connection is released by the request context's cancellation even when the
// loop fails to acknowledge in time.
func (r *StreamReader) Stop() {
	if !r.started.Load() {
		return
	}
	r.cancel()

	select {
	case <-r.done:
	case <-time.After(stopGracePeriod):
		r.logger.Warn("stream reader did not stop within grace period")
	}
}

// Done returns a channel closed when the read loop has terminated.
func (r *StreamReader) Done() <-chan struct{} {
	return r.done
}

// ReceivedEvents returns how many events the reader has dispatched so far.
func (r *StreamReader) ReceivedEvents() int64 {
	return r.received.Load()
}

func (r *StreamReader) run() {
	defer close(r.done)
	defer func() {
		if r.registry != nil {
			r.registry.notifyDisconnected()
		}
		r.logger.Info("stream reader stopped", logging.Fields{"eventsReceived": r.received.Load()})
	}()

	for {
		err := r.stream(r.ctx)

		switch {
		case errors.Is(err, errEventLimit):
			r.logger.Info("event limit reached, stopping", logging.Fields{"limit": r.maxEvents})
			return
		case r.ctx.Err() != nil:
			return
		}

		r.logger.Error("event stream disconnected", logging.Fields{"error": err.Error()})
		if r.registry != nil {
			r.registry.notifyError(err)
		}

		if !r.autoReconnect {
			r.logger.Info("auto-reconnect disabled, stopping")
			return
		}

		r.logger.Debug("reconnecting", logging.Fields{"interval": r.reconnectInterval.String()})
		r.metrics.Reconnect()
		select {
		case <-time.After(r.reconnectInterval):
		case <-r.ctx.Done():
			return
		}
	}
}

// stream performs one connect-and-read pass. It returns errEventLimit on a
// graceful event-count stop and an ErrStreamDisconnected-wrapped error for
// every other way the stream can end.
func (r *StreamReader) stream(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStreamDisconnected, err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStreamDisconnected, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			r.logger.Debug("error closing response body", logging.Fields{"error": cerr.Error()})
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", ErrStreamDisconnected, resp.StatusCode)
	}

	r.logger.Info("connected to event stream")
	if r.registry != nil {
		r.registry.notifyConnected()
	}

	parser := NewParser(resp.Body, WithCommentHandler(func(text string) {
		r.logger.Debug("received comment frame", logging.Fields{"text": text})
	}))

	for {
		event, err := parser.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: stream ended", ErrStreamDisconnected)
			}
			return fmt.Errorf("%w: %v", ErrStreamDisconnected, err)
		}

		r.dispatch(event)

		if r.maxEvents > 0 && r.received.Load() >= int64(r.maxEvents) {
			return errEventLimit
		}
	}
}

func (r *StreamReader) dispatch(event domain.Event) {
	r.received.Add(1)
	r.metrics.EventReceived()
	r.logger.Debug("event received", logging.Fields{"event": event.Name})

	if r.registry != nil {
		r.registry.NotifyEventListeners(event.Name, event.Data)
	}
	if r.onEvent != nil {
		r.onEvent(event)
	}
}
