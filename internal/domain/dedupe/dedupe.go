// Package dedupe tracks alert ids that were already turned into incidents.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

const defaultMaxSize = 5_000

// Deduper records seen alert ids to ensure at-most-once import.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a later run may import it again.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// InMemory is a bounded FIFO set: once full, the oldest id is forgotten
// first. maxSize <= 0 disables eviction.
type InMemory struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front = oldest
	maxSize int
}

var _ Deduper = (*InMemory)(nil)

// NewInMemoryDeduper creates an in-memory deduper.
func NewInMemoryDeduper(opts ...Option) *InMemory {
	d := &InMemory{
		maxSize: defaultMaxSize,
		seen:    make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SeenAndRecord implements Deduper. Empty ids are never recorded.
func (d *InMemory) SeenAndRecord(_ context.Context, id string) bool {
	if id == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	d.record(id)
	return false
}

func (d *InMemory) record(id string) {
	if d.maxSize > 0 {
		for d.order.Len() >= d.maxSize {
			oldest := d.order.Front()
			d.order.Remove(oldest)
			delete(d.seen, oldest.Value.(string))
		}
	}
	d.seen[id] = d.order.PushBack(id)
}

// Unrecord implements Deduper.
func (d *InMemory) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[id]; ok {
		d.order.Remove(el)
		delete(d.seen, id)
	}
}

// Size implements Deduper.
func (d *InMemory) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}

// Snapshot returns the recorded ids from oldest to newest, suitable for
// persisting in a checkpoint and restoring with WithSeed.
func (d *InMemory) Snapshot() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]string, 0, d.order.Len())
	for el := d.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(string))
	}
	return out
}
