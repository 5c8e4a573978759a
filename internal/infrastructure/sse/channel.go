package sse

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/FreePeak/golang-sse-sdk/internal/infrastructure/logging"
)

// Channel owns one connected client's output stream. All writes to the sink
// go through the channel, one whole frame at a time, so concurrent sends and
// keep-alives never interleave within a frame.
//
// A channel is alive from creation until its first write failure or an
// explicit Close, whichever comes first; it never comes back. The sink is
// released exactly once.
type Channel struct {
	id      string
	sink    io.Writer
	flusher http.Flusher // nil when the sink cannot flush
	closer  io.Closer    // nil when the sink is not closable
	logger  *logging.Logger

	mu      sync.Mutex // serializes frame writes and teardown
	alive   atomic.Bool
	done    chan struct{}
	release sync.Once
}

// NewChannel creates a channel around the given sink. If the sink implements
// http.Flusher every frame is flushed as soon as it is written; if it
// implements io.Closer it is closed when the channel dies.
func NewChannel(id string, sink io.Writer, logger *logging.Logger) *Channel {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Channel{
		id:     id,
		sink:   sink,
		logger: logger.With(logging.Fields{"clientId": id}),
		done:   make(chan struct{}),
	}
	if f, ok := sink.(http.Flusher); ok {
		c.flusher = f
	}
	if cl, ok := sink.(io.Closer); ok {
		c.closer = cl
	}
	c.alive.Store(true)
	return c
}

// ID returns the channel's client ID.
func (c *Channel) ID() string {
	return c.id
}

// Alive reports whether the channel can still accept writes.
func (c *Channel) Alive() bool {
	return c.alive.Load()
}

// Done returns a channel that is closed when this client channel dies,
// whether by explicit close or write failure.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Send encodes and writes one event to the sink, flushing immediately.
// It returns ErrChannelClosed if the channel is no longer alive; a write
// failure kills the channel and is reported the same way so the registry
// can evict the client.
func (c *Channel) Send(name, data string) error {
	return c.sendFrame(Encode(name, data))
}

// SendComment writes a comment frame (": <text>") to the sink.
func (c *Channel) SendComment(text string) error {
	return c.sendFrame(EncodeComment(text))
}

// SendKeepAlive writes the keep-alive comment frame.
func (c *Channel) SendKeepAlive() error {
	return c.SendComment("keep-alive")
}

func (c *Channel) sendFrame(frame []byte) error {
	if !c.alive.Load() {
		return ErrChannelClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Re-check under the lock: a concurrent close or write failure may have
	// killed the channel while we were waiting.
	if !c.alive.Load() {
		return ErrChannelClosed
	}

	if err := c.write(frame); err != nil {
		c.alive.Store(false)
		c.releaseSink()
		c.logger.Debug("write to client failed, channel marked dead", logging.Fields{"error": err.Error()})
		return fmt.Errorf("%w: %v", ErrChannelClosed, err)
	}
	return nil
}

// Close marks the channel dead, best-effort writes the close notification
// frame, and releases the sink. It is idempotent; calling it on a channel
// that already died is a no-op.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.alive.CompareAndSwap(true, false) {
		return
	}

	// The close frame is a courtesy; failure to deliver it must never keep
	// the sink from being released.
	if err := c.write(encodeCloseFrame()); err != nil {
		c.logger.Debug("could not send close notification", logging.Fields{"error": err.Error()})
	}
	c.releaseSink()
	c.logger.Debug("client channel closed")
}

// write pushes a whole frame to the sink and flushes. Callers hold c.mu.
func (c *Channel) write(frame []byte) error {
	if _, err := c.sink.Write(frame); err != nil {
		return err
	}
	if c.flusher != nil {
		c.flusher.Flush()
	}
	return nil
}

// releaseSink closes the done signal and the underlying sink exactly once.
func (c *Channel) releaseSink() {
	c.release.Do(func() {
		close(c.done)
		if c.closer == nil {
			return
		}
		if err := c.closer.Close(); err != nil {
			c.logger.Error("error releasing client sink", logging.Fields{"error": err.Error()})
		}
	})
}
