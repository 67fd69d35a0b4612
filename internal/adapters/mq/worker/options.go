package worker

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/solvedboard/pkg/logger"
)

// Option applies a configuration option to the Worker.
type Option func(*Worker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithRunTimeout bounds each refresh; the runner sees a cancelled context
// once it elapses.
func WithRunTimeout(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.runTimeout = d
		}
	}
}

// WithClock injects the clock used for wait-time measurement.
func WithClock(c clockwork.Clock) Option {
	return func(w *Worker) {
		if c != nil {
			w.clock = c
		}
	}
}
