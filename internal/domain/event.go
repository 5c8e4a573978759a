package domain

// DefaultEventName is the event type the SSE protocol assigns to frames
// that carry no explicit "event:" field.
const DefaultEventName = "message"

// Event is a single server-sent event as it appears on the wire.
type Event struct {
	// Name is the event type. Empty means the default "message" type.
	Name string

	// Data is the payload. Multi-line payloads are a single logical value;
	// the codec re-splits them into one "data:" line per line.
	Data string

	// ID is the value of the "id:" field, when the stream carried one.
	ID string
}

// IsNamed reports whether the event carries an explicit event type.
func (e Event) IsNamed() bool {
	return e.Name != "" && e.Name != DefaultEventName
}
