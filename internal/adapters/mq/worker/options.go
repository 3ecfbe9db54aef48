package worker

import (
	"time"

	"github.com/okian/soarbridge/pkg/logger"
)

// Option applies a configuration option to the Poller.
type Option func(*Poller)

// WithName sets the poller name for identification and logging.
func WithName(name string) Option {
	return func(p *Poller) {
		if name != "" {
			p.name = name
		}
	}
}

// WithInterval sets the time between polls.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithLogger sets a custom logger for the poller.
func WithLogger(l logger.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}
