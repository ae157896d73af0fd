package config

import (
	"fmt"
	"slices"

	"github.com/kbukum/chatstream/logger"
)

var environments = []string{"development", "staging", "production"}

// ServiceConfig is the identity block shared by every process that loads
// config.yml. Embed it with `mapstructure:",squash"` so name, environment
// and logging stay top-level keys.
type ServiceConfig struct {
	Name        string        `mapstructure:"name"`
	Environment string        `mapstructure:"environment"`
	Version     string        `mapstructure:"version"`
	Debug       bool          `mapstructure:"debug"`
	Logging     logger.Config `mapstructure:"logging"`
}

// ApplyDefaults names the service chatstream and runs it in development,
// where debug is forced on.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "chatstream"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	c.Debug = c.Debug || c.Environment == "development"
	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()
}

func (c *ServiceConfig) Validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("config.name is required")
	case !slices.Contains(environments, c.Environment):
		return fmt.Errorf("config.environment must be one of %v (got: %s)", environments, c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}
