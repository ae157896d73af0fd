package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kbukum/chatstream/chat"
)

// ErrBusClosed is returned by Publish after Close.
var ErrBusClosed = errors.New("relay: bus closed")

// Handler receives every batch consumed from a bus.
type Handler func(ctx context.Context, msgs []chat.Message)

// Bus moves message batches from publishers to consumers.
type Bus interface {
	// Name identifies the driver in logs and errors.
	Name() string
	Publish(ctx context.Context, msgs []chat.Message) error
	// Consume blocks, calling h for every batch, until ctx is done or the
	// bus is closed.
	Consume(ctx context.Context, h Handler) error
	Close() error
}

// Pinger is implemented by buses backed by a remote broker.
type Pinger interface {
	Ping(ctx context.Context) error
}

func encodeBatch(msgs []chat.Message) ([]byte, error) {
	data, err := json.Marshal(msgs)
	if err != nil {
		return nil, fmt.Errorf("relay: encode batch: %w", err)
	}
	return data, nil
}

func decodeBatch(data []byte) ([]chat.Message, error) {
	var msgs []chat.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("relay: decode batch: %w", err)
	}
	return msgs, nil
}
