// Package scorecard is a client for the SecurityScorecard ratings API.
package scorecard

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/okian/soarbridge/internal/adapters/http/rest"
	"github.com/okian/soarbridge/pkg/logger"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://api.securityscorecard.io/"

const defaultPageSize = 100

// Client calls the ratings API with token authentication. Every non-2xx
// response is returned as a *rest.StatusError.
type Client struct {
	rest *rest.Client
	log  logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New authenticates the transport with the API key.
func New(transport *rest.Client, apiKey string, opts ...Option) *Client {
	transport.SetHeader("Authorization", "Token "+apiKey)
	c := &Client{rest: transport, log: logger.Discard()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Portfolios lists the portfolios the key can see.
func (c *Client) Portfolios(ctx context.Context) (Page, error) {
	var p Page
	err := c.get(ctx, "portfolios", nil, &p)
	return p, err
}

// PortfolioCompanies lists the companies of a portfolio.
func (c *Client) PortfolioCompanies(ctx context.Context, portfolioID string, f CompanyFilter) (Page, error) {
	q := url.Values{}
	setNonEmpty(q, "grade", f.Grade)
	setNonEmpty(q, "industry", f.Industry)
	setNonEmpty(q, "vulnerability", f.Vulnerability)
	setNonEmpty(q, "issue_type", f.IssueType)
	if f.HadBreachWithinLastDays > 0 {
		q.Set("had_breach_within_last_days", strconv.Itoa(f.HadBreachWithinLastDays))
	}

	var p Page
	err := c.get(ctx, "portfolios/"+url.PathEscape(portfolioID)+"/companies", q, &p)
	return p, err
}

// CompanyScore returns the overall scorecard of a domain.
func (c *Client) CompanyScore(ctx context.Context, domain string) (map[string]any, error) {
	var m map[string]any
	err := c.get(ctx, "companies/"+url.PathEscape(domain), nil, &m)
	return m, err
}

// CompanyFactors returns factor scores, optionally limited to severities.
func (c *Client) CompanyFactors(ctx context.Context, domain string, severities []string) (Page, error) {
	q := url.Values{}
	for _, s := range severities {
		q.Add("severity_in", s)
	}
	var p Page
	err := c.get(ctx, "companies/"+url.PathEscape(domain)+"/factors", q, &p)
	return p, err
}

// HistoryScore returns historical overall scores.
func (c *Client) HistoryScore(ctx context.Context, domain string, h HistoryQuery) (Page, error) {
	var p Page
	err := c.get(ctx, "companies/"+url.PathEscape(domain)+"/history/score", h.values(), &p)
	return p, err
}

// HistoryFactorScore returns historical factor scores.
func (c *Client) HistoryFactorScore(ctx context.Context, domain string, h HistoryQuery) (Page, error) {
	var p Page
	err := c.get(ctx, "companies/"+url.PathEscape(domain)+"/history/factors/score", h.values(), &p)
	return p, err
}

// CreateGradeAlert subscribes email to grade changes and returns the alert id.
func (c *Client) CreateGradeAlert(ctx context.Context, email string, a GradeAlert) (string, error) {
	return c.createAlert(ctx, email, "grade", a)
}

// CreateThresholdAlert subscribes email to threshold crossings and returns
// the alert id.
func (c *Client) CreateThresholdAlert(ctx context.Context, email string, a ThresholdAlert) (string, error) {
	return c.createAlert(ctx, email, "score", a)
}

func (c *Client) createAlert(ctx context.Context, email, kind string, body any) (string, error) {
	resp, err := c.rest.Post(ctx, userPath(email, "alerts", kind), nil, body)
	if err := check(resp, err); err != nil {
		return "", err
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := resp.JSON(&created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// DeleteAlert removes an alert subscription. alertType is score or grade.
func (c *Client) DeleteAlert(ctx context.Context, email, alertType, alertID string) error {
	resp, err := c.rest.Delete(ctx, userPath(email, "alerts", alertType, alertID))
	return check(resp, err)
}

// RecentAlerts returns the alerts triggered for email during the last week,
// optionally limited to one portfolio.
func (c *Client) RecentAlerts(ctx context.Context, email, portfolioID string) ([]Alert, error) {
	q := url.Values{}
	setNonEmpty(q, "portfolio", portfolioID)
	return c.notifications(ctx, email, q)
}

// FetchAlerts returns up to pageSize recent alerts for username, newest first.
func (c *Client) FetchAlerts(ctx context.Context, username string, pageSize int) ([]Alert, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	q := url.Values{
		"page_size": {strconv.Itoa(pageSize)},
		"username":  {username},
		"sort":      {"date"},
		"order":     {"desc"},
	}
	return c.notifications(ctx, username, q)
}

func (c *Client) notifications(ctx context.Context, email string, q url.Values) ([]Alert, error) {
	var page struct {
		Entries []json.RawMessage `json:"entries"`
	}
	if err := c.get(ctx, userPath(email, "notifications", "recent"), q, &page); err != nil {
		return nil, err
	}

	// A malformed entry is skipped so it cannot block the rest of the feed.
	alerts := make([]Alert, 0, len(page.Entries))
	for i, raw := range page.Entries {
		var a Alert
		if err := json.Unmarshal(raw, &a); err != nil {
			c.log.Warn(ctx, "skipping malformed alert", logger.Int("entry", i), logger.Error(err))
			continue
		}
		a.Raw = raw
		alerts = append(alerts, a)
	}
	return alerts, nil
}

// Services returns the service providers detected for a domain.
func (c *Client) Services(ctx context.Context, domain string) (Page, error) {
	var p Page
	err := c.get(ctx, "companies/"+url.PathEscape(domain)+"/services", nil, &p)
	return p, err
}

func (c *Client) get(ctx context.Context, path string, q url.Values, v any) error {
	resp, err := c.rest.Get(ctx, path, q)
	if err := check(resp, err); err != nil {
		return err
	}
	return resp.JSON(v)
}

func check(resp *rest.Response, err error) error {
	if err != nil {
		return err
	}
	return resp.Err()
}

func (h HistoryQuery) values() url.Values {
	q := url.Values{}
	setNonEmpty(q, "from", h.From)
	setNonEmpty(q, "to", h.To)
	setNonEmpty(q, "timing", h.Timing)
	return q
}

func userPath(email string, parts ...string) string {
	p := "users/by-username/" + url.PathEscape(email)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func setNonEmpty(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
