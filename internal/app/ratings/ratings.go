// Package ratings implements the SecurityScorecard commands and the
// alert-to-incident fetch.
package ratings

import (
	"context"
	"sync"
	"time"

	"github.com/okian/soarbridge/internal/adapters/repository"
	"github.com/okian/soarbridge/internal/adapters/scorecard"
	service "github.com/okian/soarbridge/internal/app"
	"github.com/okian/soarbridge/pkg/logger"
)

// Integration is the name commands are registered under.
const Integration = "securityscorecard"

const (
	defaultMaxIncidents  = 100
	defaultFetchDaysAgo  = 7
	defaultDedupeSize    = 5_000
	defaultCheckpointKey = "securityscorecard"
)

// RatingsAPI is the subset of the SecurityScorecard client the commands use.
type RatingsAPI interface {
	Portfolios(ctx context.Context) (scorecard.Page, error)
	PortfolioCompanies(ctx context.Context, portfolioID string, f scorecard.CompanyFilter) (scorecard.Page, error)
	CompanyScore(ctx context.Context, domain string) (map[string]any, error)
	CompanyFactors(ctx context.Context, domain string, severities []string) (scorecard.Page, error)
	HistoryScore(ctx context.Context, domain string, h scorecard.HistoryQuery) (scorecard.Page, error)
	HistoryFactorScore(ctx context.Context, domain string, h scorecard.HistoryQuery) (scorecard.Page, error)
	CreateGradeAlert(ctx context.Context, email string, a scorecard.GradeAlert) (string, error)
	CreateThresholdAlert(ctx context.Context, email string, a scorecard.ThresholdAlert) (string, error)
	DeleteAlert(ctx context.Context, email, alertType, alertID string) error
	RecentAlerts(ctx context.Context, email, portfolioID string) ([]scorecard.Alert, error)
	FetchAlerts(ctx context.Context, username string, pageSize int) ([]scorecard.Alert, error)
	Services(ctx context.Context, domain string) (scorecard.Page, error)
}

// Commands binds the SecurityScorecard commands to one API key.
type Commands struct {
	client RatingsAPI
	store  repository.Store
	log    logger.Logger
	now    func() time.Time

	username      string
	maxIncidents  int
	fetchDaysAgo  int
	lookback      time.Duration
	dedupeSize    int
	checkpointKey string

	// fetchMu serializes fetches so the poller and a manual
	// fetch-incidents never interleave checkpoint updates.
	fetchMu sync.Mutex
}

// Option configures Commands.
type Option func(*Commands)

// WithUsername sets the account whose alerts are fetched.
func WithUsername(username string) Option {
	return func(c *Commands) {
		c.username = username
	}
}

// WithStore sets the checkpoint store. Defaults to an in-memory store.
func WithStore(s repository.Store) Option {
	return func(c *Commands) {
		if s != nil {
			c.store = s
		}
	}
}

// WithMaxIncidents caps the incidents created per fetch.
func WithMaxIncidents(n int) Option {
	return func(c *Commands) {
		if n > 0 {
			c.maxIncidents = n
		}
	}
}

// WithFetchDaysAgo sets how far back the first fetch looks.
func WithFetchDaysAgo(days int) Option {
	return func(c *Commands) {
		if days > 0 {
			c.fetchDaysAgo = days
		}
	}
}

// WithLookback widens every window below the last run.
func WithLookback(d time.Duration) Option {
	return func(c *Commands) {
		if d >= 0 {
			c.lookback = d
		}
	}
}

// WithDedupeSize bounds the imported ids remembered across runs.
func WithDedupeSize(n int) Option {
	return func(c *Commands) {
		c.dedupeSize = n
	}
}

// WithCheckpointKey names the checkpoint, for running several accounts
// against one store.
func WithCheckpointKey(key string) Option {
	return func(c *Commands) {
		if key != "" {
			c.checkpointKey = key
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Commands) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Commands) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates the command set.
func New(client RatingsAPI, opts ...Option) *Commands {
	c := &Commands{
		client:        client,
		store:         repository.NewMemoryStore(),
		log:           logger.Discard(),
		now:           time.Now,
		maxIncidents:  defaultMaxIncidents,
		fetchDaysAgo:  defaultFetchDaysAgo,
		dedupeSize:    defaultDedupeSize,
		checkpointKey: defaultCheckpointKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements service.Integration.
func (c *Commands) Name() string { return Integration }

// Commands implements service.Integration.
func (c *Commands) Commands() map[string]service.Command {
	return map[string]service.Command{
		"test-module":                                        c.TestModule,
		"fetch-incidents":                                    c.FetchIncidentsCommand,
		"securityscorecard-portfolios-get":                   c.PortfoliosGet,
		"securityscorecard-portfolio-get-companies":          c.PortfolioGetCompanies,
		"securityscorecard-company-score-get":                c.CompanyScoreGet,
		"securityscorecard-company-factor-score-get":         c.CompanyFactorScoreGet,
		"securityscorecard-company-history-score-get":        c.CompanyHistoryScoreGet,
		"securityscorecard-company-history-factor-score-get": c.CompanyHistoryFactorScoreGet,
		"securityscorecard-alert-grade-change-create":        c.AlertGradeChangeCreate,
		"securityscorecard-alert-score-threshold-create":     c.AlertScoreThresholdCreate,
		"securityscorecard-alert-delete":                     c.AlertDelete,
		"securityscorecard-alert-get-last-week":              c.AlertGetLastWeek,
		"securityscorecard-company-services-get":             c.CompanyServicesGet,
	}
}
