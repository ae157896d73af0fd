package relay

import (
	"context"
	"sync"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/chatstream/chat"
	"github.com/kbukum/chatstream/kafka"
)

// KafkaBus fans batches out through a Kafka topic. Every process reads the
// topic under its own consumer group unless one is configured.
type KafkaBus struct {
	producer  *kafka.Producer
	consumer  *kafka.Consumer
	closeOnce sync.Once
}

// NewKafkaBus joins producer and consumer into a bus. It takes ownership
// of both.
func NewKafkaBus(producer *kafka.Producer, consumer *kafka.Consumer) *KafkaBus {
	return &KafkaBus{producer: producer, consumer: consumer}
}

func (b *KafkaBus) Name() string { return DriverKafka }

func (b *KafkaBus) Publish(ctx context.Context, msgs []chat.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	data, err := encodeBatch(msgs)
	if err != nil {
		return err
	}
	// Keyed by the first message so a batch stays on one partition.
	return b.producer.Write(ctx, msgs[0].ID, data)
}

func (b *KafkaBus) Consume(ctx context.Context, h Handler) error {
	return b.consumer.Consume(ctx, func(ctx context.Context, m kafkago.Message) error {
		msgs, err := decodeBatch(m.Value)
		if err != nil {
			return err
		}
		h(ctx, msgs)
		return nil
	})
}

func (b *KafkaBus) Close() error {
	var err error
	b.closeOnce.Do(func() {
		pErr := b.producer.Close()
		cErr := b.consumer.Close()
		if pErr != nil {
			err = pErr
		} else {
			err = cErr
		}
	})
	return err
}

// Retryable reports whether a failed write should be repeated.
func (b *KafkaBus) Retryable(err error) bool { return kafka.IsRetryableError(err) }
