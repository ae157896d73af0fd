package stream

import (
	"context"
	"fmt"

	"github.com/kbukum/chatstream/component"
)

// Component ties the gateway and hub to the service lifecycle. Stop closes
// every live connection, then the hub.
type Component struct {
	gateway *Gateway
	cfg     Config
}

var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

// NewComponent wraps gateway.
func NewComponent(gateway *Gateway, cfg Config) *Component {
	return &Component{gateway: gateway, cfg: cfg}
}

func (c *Component) Name() string { return "stream" }

func (c *Component) Start(_ context.Context) error { return nil }

func (c *Component) Stop(_ context.Context) error {
	c.gateway.CloseAll()
	c.gateway.Hub().Close()
	return nil
}

func (c *Component) Health(_ context.Context) component.Health {
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d connections, %d subscribers", c.gateway.Len(), c.gateway.Hub().Len()),
	}
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name: "Stream",
		Type: "sse",
		Details: fmt.Sprintf("keepalive=%s poll=%s page=%d",
			c.cfg.KeepAlive, c.cfg.PollInterval, c.cfg.PageSize),
	}
}
