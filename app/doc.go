// Package app assembles the chatstream service and runs its lifecycle.
//
// New builds every component from a Config and registers them in start
// order: observability, store, relay, stream, server. Run starts them,
// blocks until SIGINT/SIGTERM or context cancellation, then stops them in
// reverse order within the graceful timeout.
//
//	var cfg app.Config
//	if err := app.Load("config.yml", &cfg); err != nil {
//	    return err
//	}
//	a, err := app.New(&cfg)
//	if err != nil {
//	    return err
//	}
//	return a.Run(ctx)
package app
