// Package service dispatches host commands to the registered integrations
// and runs the background incident poller.
package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	eventqueue "github.com/okian/soarbridge/internal/adapters/mq/queue"
	"github.com/okian/soarbridge/internal/adapters/mq/worker"
	"github.com/okian/soarbridge/internal/domain/model"
	"github.com/okian/soarbridge/internal/domain/types"
	"github.com/okian/soarbridge/pkg/logger"
	"github.com/okian/soarbridge/pkg/metrics"
)

const (
	defaultQueueSize       = 10_000
	defaultPollInterval    = 24 * time.Hour
	pollerShutdownTimeout  = 30 * time.Second
	defaultMaxIncidentsOut = 1_000
)

// Command executes one host command.
type Command func(ctx context.Context, args types.Args) (*model.Result, error)

// Integration is a named set of commands.
type Integration interface {
	Name() string
	Commands() map[string]Command
}

// Invocation identifies one command execution.
type Invocation struct {
	ID          string
	Integration string
	Command     string
	Args        types.Args
}

// NewInvocation creates an invocation with a fresh id.
func NewInvocation(integration, command string, args types.Args) Invocation {
	return Invocation{ID: uuid.NewString(), Integration: integration, Command: command, Args: args}
}

// Service implements the API dependencies for the adapters.
type Service struct {
	mu sync.RWMutex

	integrations map[string]map[string]Command

	// Incident polling
	fetcher      worker.Fetcher
	pollInterval time.Duration
	queueSize    int
	queue        *eventqueue.InMemoryQueue
	poller       *worker.Poller

	// State
	started   bool
	startedAt time.Time
	cancel    context.CancelFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithIntegration registers an integration. Later registrations with the
// same name replace earlier ones.
func WithIntegration(i Integration) Option {
	return func(s *Service) {
		if i != nil {
			s.integrations[i.Name()] = i.Commands()
		}
	}
}

// WithPoller enables background incident polling.
func WithPoller(f worker.Fetcher, interval time.Duration) Option {
	return func(s *Service) {
		s.fetcher = f
		if interval > 0 {
			s.pollInterval = interval
		}
	}
}

// WithQueueSize sets the maximum number of undrained incidents.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		integrations: map[string]map[string]Command{},
		pollInterval: defaultPollInterval,
		queueSize:    defaultQueueSize,
		logger:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates the incident queue and starts the poller when configured.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	if s.fetcher != nil {
		pollCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.cancel = cancel
		s.poller = worker.NewPoller(s.fetcher, s.queue,
			worker.WithInterval(s.pollInterval),
			worker.WithLogger(s.logger),
			worker.WithName("incident-poller"))
		s.poller.Start(pollCtx)
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "service started",
		logger.Int("integrations", len(s.integrations)),
		logger.Int("queueSize", s.queueSize),
		logger.Bool("polling", s.poller != nil))
	return nil
}

// Stop stops the poller and closes the queue. Queued incidents are lost.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping service...")

	if s.poller != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, pollerShutdownTimeout)
		if err := s.poller.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(ctx, "poller shutdown", logger.Error(err))
		}
		cancel()
		s.poller = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.queue != nil {
		_ = s.queue.Close()
	}

	s.started = false
	s.logger.Info(ctx, "service stopped")
}

// Execute runs one command. An empty invocation id is filled in.
func (s *Service) Execute(ctx context.Context, inv Invocation) (res *model.Result, err error) {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.Args == nil {
		inv.Args = types.Args{}
	}

	s.mu.RLock()
	commands, ok := s.integrations[inv.Integration]
	s.mu.RUnlock()
	if !ok {
		metrics.RecordCommand(inv.Integration, inv.Command, "unknown", 0)
		return nil, fmt.Errorf("%w: %s", ErrUnknownIntegration, inv.Integration)
	}
	cmd, ok := commands[inv.Command]
	if !ok {
		metrics.RecordCommand(inv.Integration, inv.Command, "unknown", 0)
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownCommand, inv.Integration, inv.Command)
	}

	log := s.logger.Named(inv.Integration)
	fields := []logger.Field{
		logger.String("invocation", inv.ID),
		logger.String("command", inv.Command),
	}
	log.Info(ctx, "executing command", fields...)

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error(ctx, "command panicked", append(fields, logger.Any("panic", r), logger.String("stack", string(debug.Stack())))...)
			res, err = nil, fmt.Errorf("%w: %v", ErrCommandPanic, r)
		}

		elapsed := time.Since(start)
		outcome := "ok"
		if err != nil {
			outcome = "error"
			log.Warn(ctx, "command failed", append(fields, logger.Duration("elapsed", elapsed), logger.Error(err))...)
		} else {
			log.Info(ctx, "command complete", append(fields, logger.Duration("elapsed", elapsed))...)
		}
		metrics.RecordCommand(inv.Integration, inv.Command, outcome, float64(elapsed.Milliseconds()))
	}()

	return cmd(ctx, inv.Args)
}

// Incidents drains up to max polled incidents, oldest first.
func (s *Service) Incidents(ctx context.Context, max int) []model.Incident {
	s.mu.RLock()
	q := s.queue
	s.mu.RUnlock()
	if q == nil {
		return []model.Incident{}
	}
	if max <= 0 || max > defaultMaxIncidentsOut {
		max = defaultMaxIncidentsOut
	}
	return q.Drain(ctx, max)
}

// Integrations returns the sorted command names per integration.
func (s *Service) Integrations() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]string, len(s.integrations))
	for name, commands := range s.integrations {
		names := make([]string, 0, len(commands))
		for c := range commands {
			names = append(names, c)
		}
		sort.Strings(names)
		out[name] = names
	}
	return out
}

// Stats is a point-in-time view of the service.
type Stats struct {
	Started       bool          `json:"started"`
	Integrations  int           `json:"integrations"`
	Commands      int           `json:"commands"`
	QueueSize     int           `json:"queueSize"`
	QueueLength   int           `json:"queueLength"`
	QueueClosed   bool          `json:"queueClosed"`
	Polling       bool          `json:"polling"`
	Poller        *worker.Stats `json:"poller,omitempty"`
	UptimeSeconds int64         `json:"uptimeSeconds"`
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Started:      s.started,
		Integrations: len(s.integrations),
		QueueSize:    s.queueSize,
		Polling:      s.poller != nil,
	}
	for _, commands := range s.integrations {
		stats.Commands += len(commands)
	}
	if s.queue != nil {
		stats.QueueClosed = s.queue.IsClosed()
	}
	if s.poller != nil {
		ps := s.poller.Stats()
		stats.Poller = &ps
	}
	if s.started {
		stats.QueueLength = s.queue.Len(context.Background())
		stats.UptimeSeconds = int64(time.Since(s.startedAt).Seconds())
		metrics.UpdateQueueSize(stats.QueueLength)
	}
	return stats
}
