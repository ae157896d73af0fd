package relay

import (
	"fmt"

	"github.com/kbukum/chatstream/kafka"
	"github.com/kbukum/chatstream/redis"
	"github.com/kbukum/chatstream/resilience"
)

// Bus drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverKafka  = "kafka"
	DriverNone   = "none"
)

// Config selects and configures the bus.
type Config struct {
	Driver string `mapstructure:"driver"`
	// Buffer is the number of batches the memory driver holds.
	Buffer int `mapstructure:"buffer"`
	// Channel is the redis PUBLISH/SUBSCRIBE channel.
	Channel string `mapstructure:"channel"`

	Redis redis.Config           `mapstructure:"redis"`
	Kafka kafka.Config           `mapstructure:"kafka"`
	Retry resilience.RetryConfig `mapstructure:"retry"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Driver == "" {
		c.Driver = DriverMemory
	}
	if c.Buffer <= 0 {
		c.Buffer = 256
	}
	if c.Channel == "" {
		c.Channel = DefaultRedisChannel
	}
	switch c.Driver {
	case DriverRedis:
		c.Redis.ApplyDefaults()
	case DriverKafka:
		c.Kafka.ApplyDefaults()
	}
	if c.Retry.MaxAttempts <= 0 {
		hooks := c.Retry
		c.Retry = resilience.DefaultRetryConfig()
		c.Retry.RetryIf, c.Retry.OnRetry = hooks.RetryIf, hooks.OnRetry
	}
}

// Validate checks the selected driver's settings.
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverMemory, DriverNone:
		return nil
	case DriverRedis:
		return c.Redis.Validate()
	case DriverKafka:
		return c.Kafka.Validate()
	default:
		return fmt.Errorf("relay.driver must be one of memory, redis, kafka, none; got %q", c.Driver)
	}
}
