package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/kbukum/chatstream/component"
	"github.com/kbukum/chatstream/logger"
)

// Component manages the Store lifecycle.
type Component struct {
	cfg       Config
	log       *logger.Logger
	dialector gorm.Dialector
	store     *Store
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a store component. The connection is opened on Start.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	if log == nil {
		log = logger.Nop()
	}
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("store")}
}

// WithDialector overrides the dialect derived from Config.Driver.
func (c *Component) WithDialector(d gorm.Dialector) *Component {
	c.dialector = d
	return c
}

// Store returns the open store, or nil before Start.
func (c *Component) Store() *Store { return c.store }

// Name returns the component name.
func (c *Component) Name() string { return "store" }

// Start connects and runs auto-migration when enabled.
func (c *Component) Start(ctx context.Context) error {
	d := c.dialector
	if d == nil {
		var err error
		if d, err = Dialector(c.cfg); err != nil {
			return fmt.Errorf("store start: %w", err)
		}
	}

	s, err := Open(ctx, d, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("store start: %w", err)
	}
	if c.cfg.Migrate() {
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return fmt.Errorf("store auto-migrate: %w", err)
		}
	}
	c.store = s
	return nil
}

// Stop closes the connection pool.
func (c *Component) Stop(_ context.Context) error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

// Health pings the database.
func (c *Component) Health(ctx context.Context) component.Health {
	if c.store == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "store not initialized"}
	}
	if err := c.store.PingContext(ctx); err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: fmt.Sprintf("ping failed: %v", err)}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Describe returns a startup summary.
func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("driver=%s pool=%d/%d", c.cfg.Driver, c.cfg.MaxOpenConns, c.cfg.MaxIdleConns)
	if c.cfg.Migrate() {
		details += " migrations=" + c.cfg.Migrations
	}
	return component.Description{Name: "Store", Type: "database", Details: details}
}
