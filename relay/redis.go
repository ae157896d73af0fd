package relay

import (
	"context"
	"sync"

	"github.com/kbukum/chatstream/chat"
	"github.com/kbukum/chatstream/logger"
	"github.com/kbukum/chatstream/redis"
)

// DefaultRedisChannel is the PUBLISH/SUBSCRIBE channel used by RedisBus.
const DefaultRedisChannel = "chatstream:messages"

// RedisBus fans batches out through Redis PUBLISH/SUBSCRIBE. Delivery is
// at-most-once: instances that are not subscribed miss the batch.
type RedisBus struct {
	client    *redis.Client
	channel   string
	log       *logger.Logger
	done      chan struct{}
	closeOnce sync.Once
}

// NewRedisBus creates a bus on channel. It takes ownership of client.
func NewRedisBus(client *redis.Client, channel string, log *logger.Logger) *RedisBus {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RedisBus{client: client, channel: channel, log: log, done: make(chan struct{})}
}

func (b *RedisBus) Name() string { return DriverRedis }

func (b *RedisBus) Publish(ctx context.Context, msgs []chat.Message) error {
	select {
	case <-b.done:
		return ErrBusClosed
	default:
	}
	data, err := encodeBatch(msgs)
	if err != nil {
		return err
	}
	_, err = b.client.Publish(ctx, b.channel, data)
	return err
}

func (b *RedisBus) Consume(ctx context.Context, h Handler) error {
	sub, err := b.client.Subscribe(ctx, b.channel)
	if err != nil {
		return err
	}
	defer sub.Close()

	b.log.Info("Subscribed to redis channel", map[string]interface{}{"channel": b.channel})
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.done:
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			msgs, err := decodeBatch([]byte(m.Payload))
			if err != nil {
				b.log.Warn("Dropping undecodable batch", map[string]interface{}{"error": err.Error()})
				continue
			}
			h(ctx, msgs)
		}
	}
}

func (b *RedisBus) Ping(ctx context.Context) error { return b.client.Ping(ctx) }

func (b *RedisBus) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.done)
		err = b.client.Close()
	})
	return err
}
