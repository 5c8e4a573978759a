package sse

import "time"

// Defaults shared by the server- and client-side components. They match the
// connector's configuration surface: hosts override them through functional
// options.
const (
	// DefaultKeepAliveInterval is how often keep-alive comment frames are
	// sent to idle clients.
	DefaultKeepAliveInterval = 30 * time.Second

	// DefaultMaxClients caps concurrent server-side connections.
	DefaultMaxClients = 100

	// DefaultConnectTimeout bounds connection establishment to a remote
	// stream. Reads are intentionally unbounded; an SSE stream is expected
	// to stay open indefinitely.
	DefaultConnectTimeout = 30 * time.Second

	// DefaultReconnectInterval is the wait between reconnect attempts when
	// auto-reconnect is enabled.
	DefaultReconnectInterval = 5 * time.Second

	// stopGracePeriod bounds how long Stop waits for a reader's loop to
	// acknowledge cancellation before giving up on it.
	stopGracePeriod = 5 * time.Second
)
