package stream

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kbukum/chatstream/chat"
)

// Event names written on the wire.
const (
	EventMessage = "message"
	EventPing    = "ping"
	EventError   = "error"
)

// Error codes carried by error events.
const (
	ErrorCodeStoreUnavailable = "store_unavailable"
)

var (
	// PingFrame is the keep-alive event.
	PingFrame = []byte("event: ping\ndata: keep-alive\n\n")
	// ConnectedFrame acknowledges a push connection. It has no event name,
	// so clients receive it through their default message handler.
	ConnectedFrame = []byte("data: {\"type\":\"connected\"}\n\n")
)

// EncodeMessages renders a batch as one message event. A nil or empty batch
// encodes as an empty JSON array.
func EncodeMessages(msgs []chat.Message) ([]byte, error) {
	if msgs == nil {
		msgs = []chat.Message{}
	}
	payload, err := json.Marshal(msgs)
	if err != nil {
		return nil, fmt.Errorf("stream: encode messages: %w", err)
	}
	return encodeFrame(EventMessage, payload), nil
}

// EncodeError renders an error event with the given code.
func EncodeError(code string) []byte {
	payload, _ := json.Marshal(map[string]string{"code": code})
	return encodeFrame(EventError, payload)
}

// encodeFrame writes one event. Payloads are single-line JSON, so a single
// data line is enough.
func encodeFrame(event string, payload []byte) []byte {
	var b bytes.Buffer
	b.Grow(len(event) + len(payload) + 16)
	b.WriteString("event: ")
	b.WriteString(event)
	b.WriteString("\ndata: ")
	b.Write(payload)
	b.WriteString("\n\n")
	return b.Bytes()
}
