package app

import (
	"fmt"

	"github.com/kbukum/chatstream/config"
	"github.com/kbukum/chatstream/observability"
	"github.com/kbukum/chatstream/relay"
	"github.com/kbukum/chatstream/server"
	"github.com/kbukum/chatstream/store"
	"github.com/kbukum/chatstream/stream"
	"github.com/kbukum/chatstream/version"
)

// ServiceName is the name used for config file lookup and the env prefix.
const ServiceName = "chatstream"

// Config is the complete service configuration. The embedded
// ServiceConfig keys sit at the top level of config.yml.
type Config struct {
	config.ServiceConfig `mapstructure:",squash"`

	Server        server.Config        `mapstructure:"server"`
	Stream        stream.Config        `mapstructure:"stream"`
	Database      store.Config         `mapstructure:"database"`
	Relay         relay.Config         `mapstructure:"relay"`
	Observability observability.Config `mapstructure:"observability"`
}

// Load reads config.yml (or path when set), .env files and CHATSTREAM_*
// environment variables into cfg.
func Load(path string, cfg *Config) error {
	var opts []config.LoaderOption
	if path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	return config.LoadConfig(ServiceName, cfg, opts...)
}

// ApplyDefaults fills unset fields in every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Version == "" {
		c.Version = version.Get().Version
	}
	c.Server.ApplyDefaults()
	c.Stream.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Relay.ApplyDefaults()
	c.Observability.ApplyDefaults()

	c.Observability.ServiceName = c.Name
	c.Observability.ServiceVersion = c.Version
	c.Observability.Environment = c.Environment
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	sections := []struct {
		name     string
		validate func() error
	}{
		{"server", c.Server.Validate},
		{"stream", c.Stream.Validate},
		{"database", c.Database.Validate},
		{"relay", c.Relay.Validate},
		{"observability", c.Observability.Validate},
	}
	for _, s := range sections {
		if err := s.validate(); err != nil {
			return fmt.Errorf("config.%s: %w", s.name, err)
		}
	}
	return nil
}
