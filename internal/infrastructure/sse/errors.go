package sse

import "errors"

// Common errors in the sse package
var (
	// ErrStreamingUnsupported is returned when the ResponseWriter doesn't support the http.Flusher interface
	ErrStreamingUnsupported = errors.New("response writer does not implement http.Flusher")

	// ErrClientNotFound is returned when a unicast or disconnect targets an unknown client ID
	ErrClientNotFound = errors.New("client not found")

	// ErrChannelClosed is returned when attempting to write to a channel that is no longer alive
	ErrChannelClosed = errors.New("client channel is closed")

	// ErrSendFailed is returned when an I/O failure occurred while sending to a specific client;
	// the failed client has already been unregistered by the time the caller sees it
	ErrSendFailed = errors.New("failed to send event to client")

	// ErrRegistryClosed is returned when an operation is attempted on a registry that has been shut down
	ErrRegistryClosed = errors.New("registry is closed")

	// ErrTooManyClients is reported when an inbound connection is rejected by admission control
	ErrTooManyClients = errors.New("maximum concurrent clients reached")

	// ErrStreamDisconnected indicates that the remote SSE stream ended or errored;
	// the reader's reconnect policy decides whether this is fatal
	ErrStreamDisconnected = errors.New("remote event stream disconnected")

	// ErrAlreadyStarted is returned when Start is called on a reader that is already running or was stopped
	ErrAlreadyStarted = errors.New("stream reader already started")
)
