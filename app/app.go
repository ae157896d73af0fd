package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/chatstream/api"
	"github.com/kbukum/chatstream/component"
	"github.com/kbukum/chatstream/logger"
	"github.com/kbukum/chatstream/observability"
	"github.com/kbukum/chatstream/relay"
	"github.com/kbukum/chatstream/resilience"
	"github.com/kbukum/chatstream/server"
	"github.com/kbukum/chatstream/server/middleware"
	"github.com/kbukum/chatstream/store"
	"github.com/kbukum/chatstream/stream"
)

// App is the assembled service.
type App struct {
	Name       string
	Version    string
	Cfg        *Config
	Components *component.Registry
	Logger     *logger.Logger

	Store   *store.Component
	Relay   *relay.Relay
	Gateway *stream.Gateway
	Server  *server.Server

	summary         io.Writer
	gracefulTimeout time.Duration

	onStart []Hook
	onReady []Hook
	onStop  []Hook
}

// New applies defaults, validates cfg and builds every component. Nothing
// connects or listens until Start.
func New(cfg *Config, opts ...Option) (*App, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	o := resolveOptions(opts)
	a := &App{
		Name:            cfg.Name,
		Version:         cfg.Version,
		Cfg:             cfg,
		summary:         os.Stdout,
		gracefulTimeout: 15 * time.Second,
	}
	if o.gracefulTimeout != nil {
		a.gracefulTimeout = *o.gracefulTimeout
	}
	if o.summary != nil {
		a.summary = o.summary
	}
	if o.logger != nil {
		a.Logger = o.logger
	} else {
		logger.Init(&cfg.Logging)
		a.Logger = logger.GetGlobalLogger()
	}
	a.Components = component.NewRegistry(a.Logger)

	if err := a.build(o); err != nil {
		return nil, err
	}
	return a, nil
}

// build wires the components and registers them in start order.
func (a *App) build(o *appOptions) error {
	cfg := a.Cfg
	log := a.Logger

	metrics, err := observability.NewStreamMetrics(observability.Meter())
	if err != nil {
		return fmt.Errorf("stream metrics: %w", err)
	}

	a.Store = store.NewComponent(cfg.Database, log)
	if o.dialector != nil {
		a.Store.WithDialector(o.dialector)
	}
	messages := storeRef{c: a.Store}

	hub := stream.NewHub(stream.WithLogger(log), stream.WithMetrics(metrics))

	bus, err := relay.NewBus(cfg.Relay, log)
	if err != nil {
		return fmt.Errorf("relay bus: %w", err)
	}
	a.Relay = relay.New(bus, hub, log)
	publisher := relay.NewPublisher(bus, cfg.Relay.Retry, log)

	breakerCfg := resilience.DefaultCircuitBreakerConfig("message-store")
	breakerCfg.OnStateChange = func(name string, from, to resilience.State) {
		log.Warn("Circuit breaker state changed", map[string]interface{}{
			"breaker": name,
			"from":    from.String(),
			"to":      to.String(),
		})
	}
	poller := stream.NewPoller(messages, cfg.Stream.PageSize,
		stream.WithLogger(log),
		stream.WithMetrics(metrics),
		stream.WithBreaker(resilience.NewCircuitBreaker(breakerCfg)),
	)
	a.Gateway = stream.NewGateway(hub, poller, cfg.Stream, stream.WithLogger(log), stream.WithMetrics(metrics))

	cfg.Server.CORS.SkipPaths = api.StreamPaths
	a.Server = server.New(cfg.Server, log)
	a.Server.ApplyMiddleware("/health", "/alive")
	a.Server.RegisterOnShutdown(a.Gateway.CloseAll)
	a.Server.RegisterDefaultEndpoints(a.Name, a.Components.HealthAll)
	api.RegisterStreams(a.Server, a.Gateway)
	api.NewMessageHandler(messages, publisher, log).
		Register(a.Server.GinEngine(), middleware.RateLimit(cfg.Server.RateLimit))

	components := []component.Component{
		observability.NewComponent(&cfg.Observability),
		a.Store,
		a.Relay,
		stream.NewComponent(a.Gateway, cfg.Stream),
		server.NewComponent(a.Server),
	}
	for _, c := range components {
		if err := a.Components.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ReadyCheck verifies that all registered components are healthy.
func (a *App) ReadyCheck(ctx context.Context) error {
	var unhealthy []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status != component.StatusHealthy {
			detail := h.Name + "=" + string(h.Status)
			if h.Message != "" {
				detail += "(" + h.Message + ")"
			}
			unhealthy = append(unhealthy, detail)
		}
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy components: %v", unhealthy)
	}
	return nil
}

// Run starts the service, blocks until a shutdown signal or ctx is done,
// then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		_ = a.Shutdown(context.Background())
		return err
	}

	a.Logger.Info("Application ready, waiting for shutdown signal")
	a.WaitForSignal(ctx)

	return a.Shutdown(context.Background())
}

// Start starts every component and runs the start and ready hooks. On
// error the caller should still call Shutdown to stop what did start.
func (a *App) Start(ctx context.Context) error {
	start := time.Now()

	a.Logger.Info("Starting application", map[string]interface{}{
		"name":    a.Name,
		"version": a.Version,
	})

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	if err := runHooks(ctx, "start", a.onStart); err != nil {
		return err
	}

	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("Ready check reported issues", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err := runHooks(ctx, "ready", a.onReady); err != nil {
		return err
	}

	a.printSummary(ctx, time.Since(start))
	return nil
}

// WaitForSignal blocks until SIGINT/SIGTERM or ctx is done.
func (a *App) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("Received shutdown signal, graceful shutdown starting", map[string]interface{}{
			"signal": sig.String(),
		})
		return sig
	case <-ctx.Done():
		a.Logger.Info("Context canceled, shutting down")
		return nil
	}
}

// Shutdown runs the stop hooks, then stops components in reverse order
// within the graceful timeout.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("Shutting down application", map[string]interface{}{
		"timeout": a.gracefulTimeout.String(),
	})

	ctx, cancel := context.WithTimeout(ctx, a.gracefulTimeout)
	defer cancel()

	hookErr := drainHooks(ctx, "stop", a.onStop)
	if hookErr != nil {
		a.Logger.Error("Stop hooks failed", map[string]interface{}{"error": hookErr.Error()})
	}
	stopErr := a.Components.StopAll(ctx)
	if stopErr != nil {
		a.Logger.Error("Shutdown completed with errors", map[string]interface{}{"error": stopErr.Error()})
	}

	a.Logger.Info("Application shutdown complete")
	return errors.Join(hookErr, stopErr)
}

// Addr returns the address the HTTP server is bound to.
func (a *App) Addr() string {
	return a.Server.Addr()
}
