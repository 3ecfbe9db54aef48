package ratings

import (
	"context"
	"sync"

	"github.com/okian/soarbridge/internal/adapters/scorecard"
	"github.com/okian/soarbridge/internal/domain/model"
)

// fakeRatings returns canned data and remembers the last arguments seen.
type fakeRatings struct {
	mu  sync.Mutex
	err error

	page      scorecard.Page
	score     map[string]any
	alerts    []scorecard.Alert
	alertID   string
	fetches   int
	lastPage  int
	filter    scorecard.CompanyFilter
	history   scorecard.HistoryQuery
	deleted   []string
	severity  []string
	threshold scorecard.ThresholdAlert
}

func (f *fakeRatings) Portfolios(context.Context) (scorecard.Page, error) {
	return f.page, f.err
}

func (f *fakeRatings) PortfolioCompanies(_ context.Context, _ string, filter scorecard.CompanyFilter) (scorecard.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter = filter
	return f.page, f.err
}

func (f *fakeRatings) CompanyScore(context.Context, string) (map[string]any, error) {
	return f.score, f.err
}

func (f *fakeRatings) CompanyFactors(_ context.Context, _ string, severities []string) (scorecard.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.severity = severities
	return f.page, f.err
}

func (f *fakeRatings) HistoryScore(_ context.Context, _ string, h scorecard.HistoryQuery) (scorecard.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = h
	return f.page, f.err
}

func (f *fakeRatings) HistoryFactorScore(_ context.Context, _ string, h scorecard.HistoryQuery) (scorecard.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = h
	return f.page, f.err
}

func (f *fakeRatings) CreateGradeAlert(context.Context, string, scorecard.GradeAlert) (string, error) {
	return f.alertID, f.err
}

func (f *fakeRatings) CreateThresholdAlert(_ context.Context, _ string, a scorecard.ThresholdAlert) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threshold = a
	return f.alertID, f.err
}

func (f *fakeRatings) DeleteAlert(_ context.Context, _, alertType, alertID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, alertType+"/"+alertID)
	return f.err
}

func (f *fakeRatings) RecentAlerts(context.Context, string, string) ([]scorecard.Alert, error) {
	return f.alerts, f.err
}

func (f *fakeRatings) FetchAlerts(_ context.Context, _ string, pageSize int) ([]scorecard.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	f.lastPage = pageSize
	return f.alerts, f.err
}

func (f *fakeRatings) Services(context.Context, string) (scorecard.Page, error) {
	return f.page, f.err
}

func (f *fakeRatings) setAlerts(alerts ...scorecard.Alert) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = alerts
}

// failingStore loads nothing and refuses to save.
type failingStore struct{ err error }

func (s failingStore) Load(context.Context, string) (model.Checkpoint, error) {
	return model.Checkpoint{}, s.err
}

func (s failingStore) Save(context.Context, string, model.Checkpoint) error { return s.err }
