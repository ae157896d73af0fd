package stream

import (
	"github.com/kbukum/chatstream/logger"
	"github.com/kbukum/chatstream/observability"
	"github.com/kbukum/chatstream/resilience"
)

// Option configures hubs, pollers and gateways.
type Option func(*options)

type options struct {
	log     *logger.Logger
	metrics *observability.StreamMetrics
	breaker *resilience.CircuitBreaker
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics sets the stream instruments. The default records nothing.
func WithMetrics(m *observability.StreamMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithBreaker sets the circuit breaker a Poller runs store queries through.
// The breaker is shared, so pass the same one to every poller that talks to
// the same store.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(o *options) { o.breaker = cb }
}

func buildOptions(component string, opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Nop()
	}
	o.log = o.log.WithComponent(component)
	if o.metrics == nil {
		o.metrics = observability.NopStreamMetrics()
	}
	return o
}
