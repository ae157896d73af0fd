package app

import (
	"context"
	"errors"
	"fmt"
)

// Hook runs at a fixed point of the App lifecycle.
type Hook func(ctx context.Context) error

// OnStart hooks run once every component is up, before the ready check.
// A failing start hook aborts Start.
func (a *App) OnStart(hooks ...Hook) { a.onStart = append(a.onStart, hooks...) }

// OnReady hooks run after the ready check, when the server is accepting
// connections.
func (a *App) OnReady(hooks ...Hook) { a.onReady = append(a.onReady, hooks...) }

// OnStop hooks run at the start of Shutdown while streams and the store
// are still available. All of them run even if some fail.
func (a *App) OnStop(hooks ...Hook) { a.onStop = append(a.onStop, hooks...) }

// runHooks stops at the first failure.
func runHooks(ctx context.Context, stage string, hooks []Hook) error {
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			return fmt.Errorf("%s hook #%d: %w", stage, i+1, err)
		}
	}
	return nil
}

// drainHooks runs every hook and joins the failures.
func drainHooks(ctx context.Context, stage string, hooks []Hook) error {
	var errs []error
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s hook #%d: %w", stage, i+1, err))
		}
	}
	return errors.Join(errs...)
}
