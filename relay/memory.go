package relay

import (
	"context"
	"sync"

	"github.com/kbukum/chatstream/chat"
)

// MemoryBus is an in-process bus backed by a bounded channel. Publish
// blocks while the buffer is full.
type MemoryBus struct {
	ch        chan []chat.Message
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryBus creates a bus buffering up to size batches.
func NewMemoryBus(size int) *MemoryBus {
	if size <= 0 {
		size = 1
	}
	return &MemoryBus{
		ch:   make(chan []chat.Message, size),
		done: make(chan struct{}),
	}
}

func (b *MemoryBus) Name() string { return DriverMemory }

func (b *MemoryBus) Publish(ctx context.Context, msgs []chat.Message) error {
	select {
	case <-b.done:
		return ErrBusClosed
	default:
	}
	select {
	case b.ch <- msgs:
		return nil
	case <-b.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *MemoryBus) Consume(ctx context.Context, h Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.done:
			return nil
		case msgs := <-b.ch:
			h(ctx, msgs)
		}
	}
}

func (b *MemoryBus) Close() error {
	b.closeOnce.Do(func() { close(b.done) })
	return nil
}

// NopBus drops everything. Delivery then relies on the polling stream.
type NopBus struct {
	done      chan struct{}
	closeOnce sync.Once
}

// NewNopBus creates a bus that discards published batches.
func NewNopBus() *NopBus { return &NopBus{done: make(chan struct{})} }

func (b *NopBus) Name() string { return DriverNone }

func (b *NopBus) Publish(context.Context, []chat.Message) error { return nil }

func (b *NopBus) Consume(ctx context.Context, _ Handler) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return nil
	}
}

func (b *NopBus) Close() error {
	b.closeOnce.Do(func() { close(b.done) })
	return nil
}
