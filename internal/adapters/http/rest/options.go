package rest

import (
	"time"

	"github.com/okian/soarbridge/pkg/logger"
)

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds every request, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithInsecure disables TLS certificate verification.
func WithInsecure(insecure bool) Option {
	return func(c *Client) {
		c.insecure = insecure
	}
}

// WithProxy honours HTTP(S)_PROXY from the environment. Without it the
// client connects directly.
func WithProxy(proxy bool) Option {
	return func(c *Client) {
		c.proxy = proxy
	}
}

// WithHeader sets a header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// WithBreaker wraps calls in a circuit breaker. maxFailures == 0 disables it.
func WithBreaker(timeout time.Duration, maxFailures uint32) Option {
	return func(c *Client) {
		if maxFailures > 0 {
			c.breaker = NewCircuitBreaker(c.name, timeout, maxFailures)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}
