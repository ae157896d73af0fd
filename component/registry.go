package component

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/chatstream/logger"
)

// stopTimeout bounds each component's Stop independently of the caller's
// deadline so one slow component cannot starve the rest.
const stopTimeout = 10 * time.Second

type slot struct {
	c       Component
	running bool
}

// Registry owns the lifecycle of the service's components. They start in
// registration order and stop in reverse, so a component may rely on
// anything registered before it.
type Registry struct {
	mu     sync.RWMutex
	slots  []*slot
	byName map[string]*slot
	log    *logger.Logger
}

func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{
		byName: make(map[string]*slot),
		log:    log.WithComponent("registry"),
	}
}

// Register appends c. Names must be unique.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("component %q already registered", name)
	}
	s := &slot{c: c}
	r.slots = append(r.slots, s)
	r.byName[name] = s
	r.log.Debug("Component registered", map[string]interface{}{"component": name})
	return nil
}

// StartAll starts every component in order and stops at the first failure.
// Components started before the failure keep running until StopAll.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.slots {
		name := s.c.Name()
		if err := s.c.Start(ctx); err != nil {
			r.log.Error("Component start failed", map[string]interface{}{"component": name, "error": err.Error()})
			return fmt.Errorf("start %s: %w", name, err)
		}
		s.running = true

		fields := map[string]interface{}{"component": name}
		if d, ok := s.c.(Describable); ok {
			desc := d.Describe()
			fields["type"] = desc.Type
			fields["details"] = desc.Details
		}
		r.log.Info("Component started", fields)
	}
	return nil
}

// StopAll stops running components in reverse order. Every component gets
// its Stop call even when an earlier one fails; the failures are joined.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.slots) - 1; i >= 0; i-- {
		s := r.slots[i]
		if !s.running {
			continue
		}
		s.running = false

		name := s.c.Name()
		stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
		err := s.c.Stop(stopCtx)
		cancel()
		if err != nil {
			r.log.Error("Component stop failed", map[string]interface{}{"component": name, "error": err.Error()})
			errs = append(errs, fmt.Errorf("stop %s: %w", name, err))
			continue
		}
		r.log.Info("Component stopped", map[string]interface{}{"component": name})
	}
	return errors.Join(errs...)
}

// HealthAll reports every registered component, started or not, in
// registration order.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Health, len(r.slots))
	for i, s := range r.slots {
		out[i] = s.c.Health(ctx)
	}
	return out
}

// Get returns the component registered as name, or nil.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.byName[name]; ok {
		return s.c
	}
	return nil
}
