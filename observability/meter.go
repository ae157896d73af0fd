package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/chatstream/logger"
)

// InitMeter installs an OTLP/HTTP meter provider as the global provider.
// The caller shuts it down on exit.
func InitMeter(ctx context.Context, cfg *Config) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.MetricInterval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.MetricInterval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("Meter initialized", logger.Fields(
		"endpoint", cfg.Endpoint,
		"interval", cfg.MetricInterval.String(),
	))
	return mp, nil
}

// Meter returns the chatstream meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Delivery results recorded on stream.broadcast.deliveries.
const (
	DeliveryOK      = "ok"
	DeliveryDropped = "dropped"
	DeliveryFailed  = "failed"
)

// Poll statuses recorded on stream.poll.total.
const (
	PollOK      = "ok"
	PollEmpty   = "empty"
	PollError   = "error"
	PollSkipped = "skipped"
)

// StreamMetrics holds the instruments of the streaming layer.
type StreamMetrics struct {
	connections       metric.Int64UpDownCounter
	deliveries        metric.Int64Counter
	polls             metric.Int64Counter
	pollDuration      metric.Float64Histogram
	keepAliveFailures metric.Int64Counter
}

// NewStreamMetrics creates the stream instruments on meter.
func NewStreamMetrics(meter metric.Meter) (*StreamMetrics, error) {
	connections, err := meter.Int64UpDownCounter("stream.connections.active",
		metric.WithDescription("Number of open streaming connections"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.connections.active: %w", err)
	}
	deliveries, err := meter.Int64Counter("stream.broadcast.deliveries",
		metric.WithDescription("Broadcast frames per sink by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.broadcast.deliveries: %w", err)
	}
	polls, err := meter.Int64Counter("stream.poll.total",
		metric.WithDescription("Poll cycles by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.poll.total: %w", err)
	}
	pollDuration, err := meter.Float64Histogram("stream.poll.duration",
		metric.WithDescription("Duration of poll queries"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.poll.duration: %w", err)
	}
	keepAliveFailures, err := meter.Int64Counter("stream.keepalive.failures",
		metric.WithDescription("Keep-alive pings that could not be queued"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.keepalive.failures: %w", err)
	}

	return &StreamMetrics{
		connections:       connections,
		deliveries:        deliveries,
		polls:             polls,
		pollDuration:      pollDuration,
		keepAliveFailures: keepAliveFailures,
	}, nil
}

// NopStreamMetrics returns instruments backed by the no-op meter.
func NopStreamMetrics() *StreamMetrics {
	m, _ := NewStreamMetrics(noop.NewMeterProvider().Meter(instrumentationName))
	return m
}

// ConnectionOpened records a new connection for a delivery strategy.
func (m *StreamMetrics) ConnectionOpened(ctx context.Context, strategy string) {
	m.connections.Add(ctx, 1, metric.WithAttributes(attribute.String("strategy", strategy)))
}

// ConnectionClosed records a closed connection for a delivery strategy.
func (m *StreamMetrics) ConnectionClosed(ctx context.Context, strategy string) {
	m.connections.Add(ctx, -1, metric.WithAttributes(attribute.String("strategy", strategy)))
}

// Delivery records n sink deliveries with the given result.
func (m *StreamMetrics) Delivery(ctx context.Context, result string, n int) {
	if n <= 0 {
		return
	}
	m.deliveries.Add(ctx, int64(n), metric.WithAttributes(attribute.String("result", result)))
}

// Poll records a poll cycle and, for cycles that queried, its duration.
func (m *StreamMetrics) Poll(ctx context.Context, status string, seconds float64) {
	m.polls.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	if status != PollSkipped {
		m.pollDuration.Record(ctx, seconds)
	}
}

// KeepAliveFailure records a ping that could not be queued.
func (m *StreamMetrics) KeepAliveFailure(ctx context.Context) {
	m.keepAliveFailures.Add(ctx, 1)
}
