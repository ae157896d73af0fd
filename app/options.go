package app

import (
	"io"
	"time"

	"gorm.io/gorm"

	"github.com/kbukum/chatstream/logger"
)

// Option configures the App during creation.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	gracefulTimeout *time.Duration
	dialector       gorm.Dialector
	summary         io.Writer
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger for the application.
// If not set, the logger is initialized from the config's Logging field.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) {
		o.logger = l
	}
}

// WithGracefulTimeout sets the maximum duration for graceful shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		o.gracefulTimeout = &d
	}
}

// WithDialector makes the store use d instead of the configured driver.
func WithDialector(d gorm.Dialector) Option {
	return func(o *appOptions) {
		o.dialector = d
	}
}

// WithSummary sets where the startup summary is printed. Pass io.Discard
// to suppress it. The default is stdout.
func WithSummary(w io.Writer) Option {
	return func(o *appOptions) {
		o.summary = w
	}
}
