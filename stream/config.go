package stream

import (
	"fmt"
	"time"
)

const (
	DefaultKeepAlive        = 30 * time.Second
	DefaultPollInterval     = time.Second
	DefaultPageSize         = 10
	DefaultMaxPingFailures  = 3
	DefaultMaxQueryFailures = 5
	DefaultSinkBuffer       = 64
)

// Config holds the streaming settings.
type Config struct {
	KeepAlive        time.Duration `mapstructure:"keep_alive"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	PageSize         int           `mapstructure:"page_size"`
	MaxPingFailures  int           `mapstructure:"max_ping_failures"`
	MaxQueryFailures int           `mapstructure:"max_query_failures"`
	SinkBuffer       int           `mapstructure:"sink_buffer"`
	// Connected controls the acknowledgement event on push connections.
	Connected *bool `mapstructure:"connected"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.KeepAlive == 0 {
		c.KeepAlive = DefaultKeepAlive
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	if c.MaxPingFailures == 0 {
		c.MaxPingFailures = DefaultMaxPingFailures
	}
	if c.MaxQueryFailures == 0 {
		c.MaxQueryFailures = DefaultMaxQueryFailures
	}
	if c.SinkBuffer == 0 {
		c.SinkBuffer = DefaultSinkBuffer
	}
	if c.Connected == nil {
		on := true
		c.Connected = &on
	}
}

// Validate checks that every setting is positive.
func (c *Config) Validate() error {
	if c.KeepAlive <= 0 {
		return fmt.Errorf("stream.keep_alive must be positive (got: %s)", c.KeepAlive)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("stream.poll_interval must be positive (got: %s)", c.PollInterval)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("stream.page_size must be positive (got: %d)", c.PageSize)
	}
	if c.MaxPingFailures <= 0 {
		return fmt.Errorf("stream.max_ping_failures must be positive (got: %d)", c.MaxPingFailures)
	}
	if c.MaxQueryFailures <= 0 {
		return fmt.Errorf("stream.max_query_failures must be positive (got: %d)", c.MaxQueryFailures)
	}
	if c.SinkBuffer <= 0 {
		return fmt.Errorf("stream.sink_buffer must be positive (got: %d)", c.SinkBuffer)
	}
	return nil
}

// SendConnected reports whether push connections get the acknowledgement.
func (c *Config) SendConnected() bool {
	return c.Connected == nil || *c.Connected
}
