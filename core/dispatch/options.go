package dispatch

import (
	"log/slog"

	"github.com/espbridge/espbridge/core/provider"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithStrictness sets the unsupported-feature policy passed to encoders.
func WithStrictness(s provider.Strictness) Option {
	return func(d *Dispatcher) {
		d.strictness = s
	}
}

// WithLogger sets the structured logger for send lifecycle events.
func WithLogger(log *slog.Logger) Option {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

// WithConcurrency allows up to n split calls in flight at once. Results
// are still reassembled in original recipient order. Values below 2 keep
// the default sequential behavior.
func WithConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n > 1 {
			d.concurrency = n
		}
	}
}
