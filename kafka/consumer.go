package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/chatstream/logger"
	"github.com/kbukum/chatstream/resilience"
)

// MessageHandler processes one record. Returned errors are logged; the
// record is not redelivered.
type MessageHandler func(ctx context.Context, msg kafkago.Message) error

// readBackoff paces reconnects after read errors. The consumer never gives
// up, so only the backoff curve is used.
var readBackoff = resilience.RetryConfig{
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     30 * time.Second,
	BackoffFactor:  2,
	Jitter:         0.2,
}

// Consumer tails one topic. Without a configured group id each process gets
// a private group that starts at the newest offset, so every process sees
// every record published after it joined.
type Consumer struct {
	reader  *kafkago.Reader
	groupID string
	log     *logger.Logger
}

func NewConsumer(cfg Config, log *logger.Logger) (*Consumer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka consumer config: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}

	dialer, err := newDialer(&cfg)
	if err != nil {
		return nil, err
	}

	group := cfg.GroupID
	if group == "" {
		group = "chatstream-" + uuid.NewString()
	}
	clog := log.WithComponent("kafka.consumer").WithFields(map[string]interface{}{
		"topic":    cfg.Topic,
		"group_id": group,
	})

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             cfg.Topic,
		GroupID:           group,
		Dialer:            dialer,
		StartOffset:       kafkago.LastOffset,
		MinBytes:          1,
		MaxBytes:          10e6,
		MaxWait:           250 * time.Millisecond,
		SessionTimeout:    cfg.SessionTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			clog.Error("reader: " + fmt.Sprintf(msg, args...))
		}),
	})

	clog.Info("Kafka consumer initialized", map[string]interface{}{"brokers": cfg.Brokers})
	return &Consumer{reader: reader, groupID: group, log: clog}, nil
}

// GroupID returns the consumer group in use.
func (c *Consumer) GroupID() string { return c.groupID }

// Consume delivers records to handler until ctx is done. Read errors are
// retried with backoff indefinitely; only the first few of a run are
// logged.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	c.log.Info("Starting consume loop")

	failures := 0
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failures++
			if failures <= 3 {
				c.log.Error("Kafka read error", map[string]interface{}{"error": err.Error(), "failures": failures})
			}
			if err := sleep(ctx, readBackoff.Backoff(failures)); err != nil {
				return err
			}
			continue
		}
		if failures > 0 {
			c.log.Info("Kafka reads recovered", map[string]interface{}{"after_failures": failures})
			failures = 0
		}

		if err := handler(ctx, msg); err != nil {
			c.log.Error("Message processing failed", map[string]interface{}{
				"error":     err.Error(),
				"partition": msg.Partition,
				"offset":    msg.Offset,
			})
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Close leaves the group and stops the reader.
func (c *Consumer) Close() error {
	c.log.Info("Kafka consumer closing")
	return c.reader.Close()
}
