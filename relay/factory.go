package relay

import (
	"fmt"

	"github.com/kbukum/chatstream/kafka"
	"github.com/kbukum/chatstream/logger"
	"github.com/kbukum/chatstream/redis"
)

// NewBus builds the bus selected by cfg.Driver.
func NewBus(cfg Config, log *logger.Logger) (Bus, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	switch cfg.Driver {
	case DriverMemory:
		return NewMemoryBus(cfg.Buffer), nil
	case DriverNone:
		return NewNopBus(), nil
	case DriverRedis:
		client, err := redis.New(cfg.Redis, log.WithComponent("redis"))
		if err != nil {
			return nil, err
		}
		return NewRedisBus(client, cfg.Channel, log), nil
	case DriverKafka:
		producer, err := kafka.NewProducer(cfg.Kafka, log)
		if err != nil {
			return nil, err
		}
		consumer, err := kafka.NewConsumer(cfg.Kafka, log)
		if err != nil {
			_ = producer.Close()
			return nil, err
		}
		return NewKafkaBus(producer, consumer), nil
	default:
		return nil, fmt.Errorf("unknown relay driver %q", cfg.Driver)
	}
}
