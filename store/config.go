package store

import (
	"fmt"
	"time"
)

// Config holds database connection settings.
type Config struct {
	// Driver selects the GORM dialect. Only "sqlite" is built in; other
	// dialects can be injected with WithDialector.
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`

	// MaxRetries is the number of connection attempts before giving up.
	MaxRetries int `mapstructure:"max_retries"`
	// AutoMigrate migrates the schema on start. Defaults to true.
	AutoMigrate *bool `mapstructure:"auto_migrate"`
	// Migrations is "versioned" (default) or "auto".
	Migrations string `mapstructure:"migrations"`

	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`
	// LogLevel is one of silent, error, warn, info.
	LogLevel string `mapstructure:"log_level"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Driver == "" {
		c.Driver = "sqlite"
	}
	if c.DSN == "" {
		c.DSN = "file:chatstream.db?_busy_timeout=5000&_journal_mode=WAL"
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 4
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 2
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = time.Hour
	}
	if c.AutoMigrate == nil {
		on := true
		c.AutoMigrate = &on
	}
	if c.Migrations == "" {
		c.Migrations = MigrationsVersioned
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.SlowQueryThreshold <= 0 {
		c.SlowQueryThreshold = 200 * time.Millisecond
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}

// Migrate reports whether auto-migration is enabled.
func (c *Config) Migrate() bool { return c.AutoMigrate == nil || *c.AutoMigrate }

// Validate checks the connection settings.
func (c *Config) Validate() error {
	if c.Driver != "sqlite" {
		return fmt.Errorf("database.driver %q is not supported", c.Driver)
	}
	if c.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Migrations != MigrationsVersioned && c.Migrations != MigrationsAuto {
		return fmt.Errorf("database.migrations must be %s or %s (got: %s)", MigrationsVersioned, MigrationsAuto, c.Migrations)
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) must be <= max_open_conns (%d)", c.MaxIdleConns, c.MaxOpenConns)
	}
	return nil
}
