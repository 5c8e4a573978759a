package domain

// EventListener receives events read from a remote SSE stream.
// Implementations must be safe for concurrent use; a listener that fails
// never stops delivery to the listeners after it.
type EventListener interface {
	OnEvent(name, data string)
}

// EventListenerFunc adapts a plain function to the EventListener interface.
type EventListenerFunc func(name, data string)

// OnEvent calls f(name, data).
func (f EventListenerFunc) OnEvent(name, data string) {
	f(name, data)
}

// ConnectListener is optionally implemented by listeners that want to know
// when the remote stream has been (re-)established.
type ConnectListener interface {
	OnConnect()
}

// DisconnectListener is optionally implemented by listeners that want to
// know when the remote stream has gone away for good.
type DisconnectListener interface {
	OnDisconnect()
}

// ErrorListener is optionally implemented by listeners that want to observe
// stream failures. Errors delivered here are informational; the reader's
// reconnect policy decides what happens next.
type ErrorListener interface {
	OnError(err error)
}
