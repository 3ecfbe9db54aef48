package rest

import (
	"fmt"
	"time"

	"github.com/okian/soarbridge/pkg/metrics"
	"github.com/sony/gobreaker"
)

const breakerHalfOpenRequests = 5

// CircuitBreaker guards calls to one vendor.
type CircuitBreaker interface {
	Execute(fn func() error) error
}

type circuitBreakerWrapper struct {
	breaker *gobreaker.CircuitBreaker
}

// NewCircuitBreaker opens after maxFailures consecutive failures and lets a trial
// request through after timeout. State changes are exported as a gauge.
func NewCircuitBreaker(name string, timeout time.Duration, maxFailures uint32) CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: breakerHalfOpenRequests,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, _, to gobreaker.State) {
			metrics.UpdateBreakerState(name, int(to))
		},
	}
	metrics.UpdateBreakerState(name, int(gobreaker.StateClosed))
	return &circuitBreakerWrapper{
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (g *circuitBreakerWrapper) Execute(fn func() error) error {
	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if err != nil {
		return fmt.Errorf("breaker (%s): %w", g.breaker.Name(), err)
	}
	return nil
}

// passthrough is used when no breaker is configured.
type passthrough struct{}

func (passthrough) Execute(fn func() error) error { return fn() }
