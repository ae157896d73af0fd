package sseclient

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/kbukum/chatstream/chat"
)

const maxLineSize = 1 << 20

// Event is one server-sent event.
type Event struct {
	// Event is the event name, empty for data-only events.
	Event string
	// Data joins multiple data lines with newlines.
	Data string
	ID   string
}

// Messages decodes the payload of a message event.
func (e *Event) Messages() ([]chat.Message, error) {
	if e.Event != "message" {
		return nil, fmt.Errorf("sseclient: %q event carries no messages", e.Event)
	}
	var msgs []chat.Message
	if err := json.Unmarshal([]byte(e.Data), &msgs); err != nil {
		return nil, fmt.Errorf("sseclient: decode messages: %w", err)
	}
	return msgs, nil
}

// Reader reads events from a stream body.
type Reader struct {
	scanner *bufio.Scanner
	body    io.ReadCloser
}

// NewReader wraps body. The reader owns body and closes it on Close.
func NewReader(body io.ReadCloser) *Reader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{scanner: scanner, body: body}
}

// Next returns the next event, or io.EOF when the stream ends.
func (r *Reader) Next() (*Event, error) {
	var ev Event
	var hasData bool

	for r.scanner.Scan() {
		line := r.scanner.Text()
		if line == "" {
			if hasData {
				return &ev, nil
			}
			ev = Event{}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := splitField(line)
		switch field {
		case "data":
			if hasData {
				ev.Data += "\n" + value
			} else {
				ev.Data = value
				hasData = true
			}
		case "event":
			ev.Event = value
		case "id":
			ev.ID = value
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if hasData {
		return &ev, nil
	}
	return nil, io.EOF
}

// Close closes the underlying body.
func (r *Reader) Close() error {
	return r.body.Close()
}

func splitField(line string) (field, value string) {
	field, value, found := strings.Cut(line, ":")
	if !found {
		return line, ""
	}
	return field, strings.TrimPrefix(value, " ")
}
