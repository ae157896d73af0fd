// Package observability wires OpenTelemetry tracing and metrics for
// chatstream.
//
// When enabled, InitTracer and InitMeter install OTLP/HTTP exporters as the
// global providers. When disabled the otel globals stay at their no-op
// defaults, so instruments created through Meter and spans started through
// StartSpan cost nothing.
//
// StreamMetrics holds the instruments the streaming layer records:
// active connections, broadcast deliveries, poll cycles and keep-alive
// failures.
package observability
