// Package worker runs the background incident poller.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/soarbridge/internal/domain/model"
	"github.com/okian/soarbridge/pkg/logger"
)

const defaultInterval = 24 * time.Hour

// Fetcher produces new incidents; it owns windowing and dedupe.
type Fetcher interface {
	FetchIncidents(ctx context.Context) ([]model.Incident, error)
}

// Stats counts poll outcomes since the poller was created.
type Stats struct {
	Runs        int64 `json:"runs"`
	Failures    int64 `json:"failures"`
	Enqueued    int64 `json:"enqueued"`
	Dropped     int64 `json:"dropped"`
	LastRunUnix int64 `json:"lastRunUnix,omitempty"`
}

// Releaser is implemented by fetchers that can forget incidents the sink
// refused, so a later fetch returns them again.
type Releaser interface {
	ReleaseIncidents(ctx context.Context, incidents []model.Incident) error
}

// Sink receives fetched incidents.
type Sink interface {
	Enqueue(ctx context.Context, inc model.Incident) error
	IsClosed() bool
}

// ErrSinkClosed is returned by RunOnce once the sink stopped accepting
// incidents; nothing is fetched.
var ErrSinkClosed = errors.New("incident sink closed")

// Poller calls a Fetcher immediately and then on every tick, pushing the
// incidents into a Sink. Failures are logged and retried on the next tick.
type Poller struct {
	fetcher  Fetcher
	sink     Sink
	name     string
	interval time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	running   atomic.Bool
	shutdown  chan struct{}
	done      chan struct{}

	runs     atomic.Int64
	failures atomic.Int64
	enqueued atomic.Int64
	dropped  atomic.Int64
	lastRun  atomic.Int64

	logger logger.Logger
}

// NewPoller creates a poller with configuration options.
func NewPoller(fetcher Fetcher, sink Sink, opts ...Option) *Poller {
	p := &Poller{
		fetcher:  fetcher,
		sink:     sink,
		name:     "poller",
		interval: defaultInterval,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named(p.name)
	return p
}

// Start runs the poll loop in a goroutine. Calling it again is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.running.Store(true)
		go p.Run(ctx)
	})
}

// Run polls until ctx is canceled or Shutdown is called.
func (p *Poller) Run(ctx context.Context) {
	p.running.Store(true)
	defer close(p.done)

	p.logger.Info(ctx, "poller started", logger.Duration("interval", p.interval))
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	n, err := p.RunOnce(ctx)
	if err != nil {
		p.logger.Error(ctx, "poll failed", logger.Error(err))
		return
	}
	p.logger.Info(ctx, "poll complete", logger.Int("incidents", n))
}

// RunOnce performs one fetch and returns how many incidents were enqueued.
// Every incident is offered to the sink; enqueue failures are joined.
// Refused incidents are handed back when the fetcher is a Releaser.
func (p *Poller) RunOnce(ctx context.Context) (int, error) {
	if p.sink.IsClosed() {
		return 0, ErrSinkClosed
	}
	p.runs.Add(1)
	incidents, err := p.fetcher.FetchIncidents(ctx)
	if err != nil {
		p.failures.Add(1)
		return 0, fmt.Errorf("fetch incidents: %w", err)
	}
	p.lastRun.Store(time.Now().Unix())

	var (
		errs    []error
		dropped []model.Incident
	)
	for _, inc := range incidents {
		if err := p.sink.Enqueue(ctx, inc); err != nil {
			p.logger.Warn(ctx, "incident not queued", logger.String("name", inc.Name), logger.Error(err))
			errs = append(errs, err)
			dropped = append(dropped, inc)
		}
	}
	if r, ok := p.fetcher.(Releaser); ok && len(dropped) > 0 {
		if err := r.ReleaseIncidents(ctx, dropped); err != nil {
			errs = append(errs, fmt.Errorf("release incidents: %w", err))
		}
	}
	enqueued := len(incidents) - len(dropped)
	p.enqueued.Add(int64(enqueued))
	p.dropped.Add(int64(len(dropped)))
	return enqueued, errors.Join(errs...)
}

// Stats returns the poll counters.
func (p *Poller) Stats() Stats {
	return Stats{
		Runs:        p.runs.Load(),
		Failures:    p.failures.Load(),
		Enqueued:    p.enqueued.Load(),
		Dropped:     p.dropped.Load(),
		LastRunUnix: p.lastRun.Load(),
	}
}

// Shutdown stops the loop and waits for an in-flight poll to finish.
func (p *Poller) Shutdown(ctx context.Context) error {
	p.stopOnce.Do(func() { close(p.shutdown) })
	if !p.running.Load() {
		return nil
	}

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
