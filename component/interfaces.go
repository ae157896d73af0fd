package component

import "context"

// HealthStatus is what a component reports to /health.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health is one component's entry in the /health response. Degraded
// components still serve traffic; any unhealthy one turns the response
// into a 503.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a long-running part of the service. Name must be unique
// within a Registry. Start may block until the component is usable (the
// store is connected, the listener is bound) but must not block for the
// component's lifetime. Stop must be safe to call after a failed Start.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is what the startup summary and the registry log show for a
// component.
type Description struct {
	Name    string
	Type    string
	Details string
}

// Describable components report their configuration at startup.
type Describable interface {
	Describe() Description
}
