package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name     string
		event    string
		data     string
		expected string
	}{
		{
			name:     "NamedEvent",
			event:    "notification",
			data:     "hi",
			expected: "event: notification\ndata: hi\n\n",
		},
		{
			name:     "UnnamedEvent",
			event:    "",
			data:     "bye",
			expected: "data: bye\n\n",
		},
		{
			name:     "MultiLinePayload",
			event:    "update",
			data:     "line1\nline2",
			expected: "event: update\ndata: line1\ndata: line2\n\n",
		},
		{
			name:     "EmptyPayload",
			event:    "ping",
			data:     "",
			expected: "event: ping\ndata: \n\n",
		},
		{
			name:     "UnnamedMultiLine",
			event:    "",
			data:     "a\nb\nc",
			expected: "data: a\ndata: b\ndata: c\n\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, string(Encode(tc.event, tc.data)))
		})
	}
}

func TestEncodeComment(t *testing.T) {
	assert.Equal(t, ": keep-alive\n\n", string(EncodeComment("keep-alive")))
	assert.Equal(t, ": \n\n", string(EncodeComment("")))
}

func TestEncodeCloseFrame(t *testing.T) {
	expected := "event: connectionClosed\ndata: Connection closed by server\n\n"
	assert.Equal(t, expected, string(encodeCloseFrame()))
}
