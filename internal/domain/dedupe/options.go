package dedupe

// Option configures an InMemory deduper.
type Option func(*InMemory)

// WithMaxSize sets the maximum number of ids kept.
// If maxSize <= 0 the set is unbounded.
func WithMaxSize(maxSize int) Option {
	return func(d *InMemory) {
		d.maxSize = maxSize
	}
}

// WithSeed records ids in order, oldest first. Apply it after WithMaxSize
// so eviction honours the configured bound.
func WithSeed(ids []string) Option {
	return func(d *InMemory) {
		for _, id := range ids {
			if id == "" {
				continue
			}
			if _, ok := d.seen[id]; ok {
				continue
			}
			d.record(id)
		}
	}
}
