package relay

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/chatstream/chat"
	"github.com/kbukum/chatstream/component"
	"github.com/kbukum/chatstream/logger"
	"github.com/kbukum/chatstream/stream"
)

const (
	minRestartBackoff = time.Second
	maxRestartBackoff = 30 * time.Second
)

// Relay drains a bus into the hub.
type Relay struct {
	bus Bus
	hub *stream.Hub
	log *logger.Logger

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	batches atomic.Int64
}

var (
	_ component.Component   = (*Relay)(nil)
	_ component.Describable = (*Relay)(nil)
)

// New creates a relay from bus to hub.
func New(bus Bus, hub *stream.Hub, log *logger.Logger) *Relay {
	if log == nil {
		log = logger.Nop()
	}
	return &Relay{bus: bus, hub: hub, log: log.WithComponent("relay")}
}

// Bus returns the bus the relay consumes.
func (r *Relay) Bus() Bus { return r.bus }

// Batches returns the number of batches broadcast so far.
func (r *Relay) Batches() int64 { return r.batches.Load() }

func (r *Relay) Name() string { return "relay" }

// Start launches the consume loop. The loop outlives ctx and runs until Stop.
func (r *Relay) Start(_ context.Context) error {
	if r.cancel != nil {
		return fmt.Errorf("relay already started")
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(ctx)
	}()
	r.log.Info("Relay started", map[string]interface{}{"bus": r.bus.Name()})
	return nil
}

func (r *Relay) run(ctx context.Context) {
	backoff := minRestartBackoff
	for {
		err := r.bus.Consume(ctx, r.handle)
		if ctx.Err() != nil || err == nil {
			return
		}
		r.log.Warn("Bus consume failed, restarting", map[string]interface{}{
			"bus":     r.bus.Name(),
			"error":   err.Error(),
			"backoff": backoff.String(),
		})

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		backoff = min(backoff*2, maxRestartBackoff)
	}
}

func (r *Relay) handle(ctx context.Context, msgs []chat.Message) {
	res := r.hub.Broadcast(ctx, msgs)
	r.batches.Add(1)
	r.log.Debug("Relayed batch", map[string]interface{}{
		"count":     len(msgs),
		"delivered": res.Delivered,
		"dropped":   res.Dropped,
		"failed":    res.Failed,
	})
}

// Stop ends the consume loop and closes the bus.
func (r *Relay) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}
	err := r.bus.Close()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("relay stop: %w", ctx.Err())
	}
	return err
}

func (r *Relay) Health(ctx context.Context) component.Health {
	if p, ok := r.bus.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return component.Health{Name: r.Name(), Status: component.StatusDegraded, Message: err.Error()}
		}
	}
	return component.Health{
		Name:    r.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d batches relayed", r.Batches()),
	}
}

func (r *Relay) Describe() component.Description {
	return component.Description{Name: "Relay", Type: "bus", Details: "driver=" + r.bus.Name()}
}
