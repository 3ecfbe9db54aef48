// Package queue holds fetched incidents until the host drains them.
package queue

import (
	"context"
	"sync"

	"github.com/okian/soarbridge/internal/domain/model"
	"github.com/okian/soarbridge/pkg/metrics"
)

const defaultQueueCapacity = 10_000

// Queue provides non-blocking enqueue and batch drain semantics.
type Queue interface {
	// Enqueue adds an incident. It fails with ErrFull or ErrClosed instead
	// of blocking.
	Enqueue(ctx context.Context, inc model.Incident) error

	// Drain removes and returns up to max queued incidents, oldest first.
	// max <= 0 drains everything currently queued.
	Drain(ctx context.Context, max int) []model.Incident

	// Len returns the current number of queued incidents.
	Len(ctx context.Context) int

	// Close stops accepting incidents. Queued incidents can still be drained.
	Close() error

	// IsClosed reports whether Close was called.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	incidents chan model.Incident
	capacity  int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.incidents = make(chan model.Incident, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds an incident to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, inc model.Incident) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		return ErrClosed
	}

	select {
	case q.incidents <- inc:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.incidents))
		return nil
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		return ctx.Err()
	default:
		metrics.RecordQueueEnqueueError()
		return ErrFull
	}
}

// Drain removes up to max incidents without waiting for more.
func (q *InMemoryQueue) Drain(ctx context.Context, max int) []model.Incident {
	if max <= 0 || max > q.capacity {
		max = q.capacity
	}
	out := make([]model.Incident, 0, min(max, len(q.incidents)))
	for len(out) < max {
		select {
		case inc, ok := <-q.incidents:
			if !ok {
				return q.drained(out)
			}
			out = append(out, inc)
		case <-ctx.Done():
			return q.drained(out)
		default:
			return q.drained(out)
		}
	}
	return q.drained(out)
}

func (q *InMemoryQueue) drained(out []model.Incident) []model.Incident {
	if len(out) > 0 {
		metrics.RecordQueueDequeue(len(out))
	}
	metrics.UpdateQueueSize(len(q.incidents))
	return out
}

// Len returns the current number of queued incidents.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.incidents)
	metrics.UpdateQueueSize(size)
	return size
}

// Cap returns the configured capacity.
func (q *InMemoryQueue) Cap() int { return q.capacity }

// Close stops the queue. Closing twice is a no-op.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.incidents)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
