package sse

import "strings"

// Wire-format fields of the close notification frame. The frame is written
// best-effort immediately before a channel's sink is released so that
// well-behaved clients can distinguish a deliberate close from a dropped
// connection.
const (
	CloseEventName = "connectionClosed"
	CloseEventData = "Connection closed by server"
)

// Encode serializes a single event into the text/event-stream wire format:
//
//	event: <name>\n        (omitted when name is empty)
//	data: <line>\n         (one per line of the payload)
//	\n
//
// An empty name yields a bare data frame, which SSE clients deliver as the
// default "message" event type. Payloads containing '\r' are not escaped;
// callers must avoid them.
func Encode(name, data string) []byte {
	var b strings.Builder
	b.Grow(len(name) + len(data) + 16)
	if name != "" {
		b.WriteString("event: ")
		b.WriteString(name)
		b.WriteByte('\n')
	}
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

// EncodeComment serializes a comment frame (": <text>\n\n"). Comment lines
// are never delivered as events by SSE clients; they exist to keep idle
// connections from being torn down by intermediaries.
func EncodeComment(text string) []byte {
	var b strings.Builder
	b.Grow(len(text) + 4)
	b.WriteString(": ")
	b.WriteString(text)
	b.WriteString("\n\n")
	return []byte(b.String())
}

// encodeCloseFrame returns the fixed close notification frame.
func encodeCloseFrame() []byte {
	return Encode(CloseEventName, CloseEventData)
}
