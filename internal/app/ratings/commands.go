package ratings

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/okian/soarbridge/internal/adapters/http/rest"
	"github.com/okian/soarbridge/internal/adapters/scorecard"
	"github.com/okian/soarbridge/internal/domain/grade"
	"github.com/okian/soarbridge/internal/domain/model"
	"github.com/okian/soarbridge/internal/domain/types"
	"github.com/okian/soarbridge/pkg/logger"
	"github.com/okian/soarbridge/pkg/markdown"
)

const dateLayout = "2006-01-02"

// TestModule verifies the API key by listing portfolios.
func (c *Commands) TestModule(ctx context.Context, _ types.Args) (*model.Result, error) {
	_, err := c.client.Portfolios(ctx)
	var se *rest.StatusError
	if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden) {
		return nil, fmt.Errorf("%w: make sure API Key is correctly set: %w", ErrAuthorization, err)
	}
	if err != nil {
		return nil, err
	}
	return model.Text("ok"), nil
}

// PortfoliosGet lists the portfolios the key can access.
func (c *Commands) PortfoliosGet(ctx context.Context, _ types.Args) (*model.Result, error) {
	page, err := c.client.Portfolios(ctx)
	if err != nil {
		return nil, err
	}
	res := &model.Result{
		ReadableOutput: markdown.Table("Your SecurityScorecard Portfolios", page.Entries,
			markdown.WithHeaders("id", "name", "privacy")),
		OutputsPrefix:   "SecurityScorecard.Portfolio",
		OutputsKeyField: "id",
		Outputs:         page.Entries,
		RawResponse:     page,
	}
	if len(page.Entries) == 0 {
		res.Warn("No Portfolios were found in your account. Please create a new one and try again.")
	}
	return res, nil
}

type companiesArgs struct {
	PortfolioID string `arg:"portfolio_id"`
	Grade       string `arg:"grade"`
	Industry    string `arg:"industry"`
	Vuln        string `arg:"vulnerability"`
	IssueType   string `arg:"issue_type"`
	HadBreach   int    `arg:"had_breach_within_last_days"`
}

// PortfolioGetCompanies lists the companies of a portfolio.
func (c *Commands) PortfolioGetCompanies(ctx context.Context, args types.Args) (*model.Result, error) {
	if err := args.Require("portfolio_id"); err != nil {
		return nil, err
	}
	var in companiesArgs
	if err := args.Decode(&in); err != nil {
		return nil, err
	}
	if in.HadBreach < 0 {
		return nil, fmt.Errorf("%w: had_breach_within_last_days must not be negative", types.ErrInvalidArgument)
	}

	var warnings []string
	filter := scorecard.CompanyFilter{
		Industry:                strings.ToUpper(strings.TrimSpace(in.Industry)),
		Vulnerability:           in.Vuln,
		IssueType:               in.IssueType,
		HadBreachWithinLastDays: in.HadBreach,
	}
	if in.Grade != "" {
		g, ok := grade.Normalize(in.Grade)
		if ok {
			filter.Grade = g
		} else {
			warnings = append(warnings, fmt.Sprintf("Grade %s is invalid. Ignoring grade argument", strings.ToLower(in.Grade)))
		}
	}

	page, err := c.client.PortfolioCompanies(ctx, in.PortfolioID, filter)
	if err != nil {
		return nil, err
	}
	if page.Total <= 0 {
		warnings = append(warnings, fmt.Sprintf("No companies found in Portfolio %s. Please add a company to it and retry.", in.PortfolioID))
	}

	readable := fmt.Sprintf("**%d** companies found in Portfolio %s\n", page.Total, in.PortfolioID) +
		markdown.Table("Companies in Portfolio "+in.PortfolioID, page.Entries,
			markdown.WithHeaders("domain", "name", "score", "last30days_score_change", "industry", "size"))
	return &model.Result{
		ReadableOutput:  readable,
		OutputsPrefix:   "SecurityScorecard.Company",
		OutputsKeyField: "domain",
		Outputs:         page.Entries,
		RawResponse:     page,
		Warnings:        warnings,
	}, nil
}

// CompanyScoreGet returns a domain's overall scorecard.
func (c *Commands) CompanyScoreGet(ctx context.Context, args types.Args) (*model.Result, error) {
	if err := args.Require("domain"); err != nil {
		return nil, err
	}
	domain := args.String("domain")
	score, err := c.client.CompanyScore(ctx, domain)
	if err != nil {
		return nil, err
	}
	return &model.Result{
		ReadableOutput: markdown.Table(fmt.Sprintf("Domain %s Scorecard", domain), withGradeImage(score)),
		OutputsPrefix:  "SecurityScorecard.Company.Score",
		Outputs:        score,
		RawResponse:    score,
	}, nil
}

// CompanyFactorScoreGet returns a domain's factor scores.
func (c *Commands) CompanyFactorScoreGet(ctx context.Context, args types.Args) (*model.Result, error) {
	if err := args.Require("domain"); err != nil {
		return nil, err
	}
	var in struct {
		Domain     string   `arg:"domain"`
		Severities []string `arg:"severity_in"`
	}
	if err := args.Decode(&in); err != nil {
		return nil, err
	}

	page, err := c.client.CompanyFactors(ctx, in.Domain, in.Severities)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]any, len(page.Entries))
	for i, e := range page.Entries {
		rows[i] = withGradeImage(e)
	}
	return &model.Result{
		ReadableOutput: markdown.Table(fmt.Sprintf("Domain %s Scorecard", in.Domain), rows),
		OutputsPrefix:  "SecurityScorecard.Company.Factor",
		Outputs:        page.Entries,
		RawResponse:    page,
	}, nil
}

type historyArgs struct {
	Domain string `arg:"domain"`
	From   string `arg:"from"`
	To     string `arg:"to"`
	Timing string `arg:"timing"`
}

func (c *Commands) historyQuery(args types.Args, timings []string, defaultTiming string) (historyArgs, error) {
	if err := args.Require("domain"); err != nil {
		return historyArgs{}, err
	}
	var in historyArgs
	if err := args.Decode(&in); err != nil {
		return historyArgs{}, err
	}
	for _, d := range []struct{ name, value string }{{"from", in.From}, {"to", in.To}} {
		if d.value == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, d.value); err != nil {
			return historyArgs{}, fmt.Errorf("%w: %s must be a YYYY-MM-DD date, got %q", types.ErrInvalidArgument, d.name, d.value)
		}
	}
	in.Timing = strings.ToLower(strings.TrimSpace(in.Timing))
	if in.Timing == "" {
		in.Timing = defaultTiming
	}
	if in.Timing != "" && !slices.Contains(timings, in.Timing) {
		return historyArgs{}, fmt.Errorf("%w: timing must be one of %s", types.ErrInvalidArgument, strings.Join(timings, ", "))
	}
	return in, nil
}

// CompanyHistoryScoreGet returns historical overall scores.
func (c *Commands) CompanyHistoryScoreGet(ctx context.Context, args types.Args) (*model.Result, error) {
	in, err := c.historyQuery(args, []string{"daily", "weekly"}, "daily")
	if err != nil {
		return nil, err
	}
	page, err := c.client.HistoryScore(ctx, in.Domain, scorecard.HistoryQuery{From: in.From, To: in.To, Timing: in.Timing})
	if err != nil {
		return nil, err
	}
	return &model.Result{
		ReadableOutput: markdown.Table(fmt.Sprintf("Historical Scores for Domain [`%s`](https://%s)", in.Domain, in.Domain),
			page.Entries, markdown.WithHeaders("date", "score")),
		OutputsPrefix: "SecurityScorecard.Company.History",
		Outputs:       page.Entries,
		RawResponse:   page,
	}, nil
}

// CompanyHistoryFactorScoreGet returns historical factor scores, one table
// row per factor per date.
func (c *Commands) CompanyHistoryFactorScoreGet(ctx context.Context, args types.Args) (*model.Result, error) {
	in, err := c.historyQuery(args, []string{"daily", "weekly", "monthly"}, "")
	if err != nil {
		return nil, err
	}
	page, err := c.client.HistoryFactorScore(ctx, in.Domain, scorecard.HistoryQuery{From: in.From, To: in.To, Timing: in.Timing})
	if err != nil {
		return nil, err
	}

	var rows []map[string]any
	for _, entry := range page.Entries {
		factors, _ := entry["factors"].([]any)
		for _, f := range factors {
			factor, ok := f.(map[string]any)
			if !ok {
				continue
			}
			rows = append(rows, map[string]any{
				"date":  entry["date"],
				"name":  factor["name"],
				"score": factor["score"],
			})
		}
	}
	return &model.Result{
		ReadableOutput: markdown.Table(fmt.Sprintf("Historical Factor Scores for Domain [`%s`](https://%s)", in.Domain, in.Domain),
			rows, markdown.WithHeaders("date", "name", "score")),
		OutputsPrefix: "SecurityScorecard.Company.FactorHistory",
		Outputs:       page.Entries,
		RawResponse:   page,
	}, nil
}

type alertArgs struct {
	Email           string   `arg:"email"`
	ChangeDirection string   `arg:"change_direction"`
	Threshold       int      `arg:"threshold"`
	ScoreTypes      []string `arg:"score_types"`
	Target          []string `arg:"target"`
}

func decodeAlert(args types.Args, directions []string, required ...string) (alertArgs, error) {
	if err := args.Require(append([]string{"email", "score_types", "target"}, required...)...); err != nil {
		return alertArgs{}, err
	}
	var in alertArgs
	if err := args.Decode(&in); err != nil {
		return alertArgs{}, err
	}
	if in.ChangeDirection != "" && !slices.Contains(directions, in.ChangeDirection) {
		return alertArgs{}, fmt.Errorf("%w: change_direction must be one of %s", types.ErrInvalidArgument, strings.Join(directions, ", "))
	}
	return in, nil
}

// AlertGradeChangeCreate subscribes a user to grade changes.
func (c *Commands) AlertGradeChangeCreate(ctx context.Context, args types.Args) (*model.Result, error) {
	in, err := decodeAlert(args, []string{"rises", "drops"})
	if err != nil {
		return nil, err
	}
	id, err := c.client.CreateGradeAlert(ctx, in.Email, scorecard.GradeAlert{
		ChangeDirection: in.ChangeDirection,
		ScoreTypes:      in.ScoreTypes,
		Target:          in.Target,
	})
	if err != nil {
		return nil, err
	}
	c.log.Info(ctx, "grade change alert created", logger.String("id", id))
	return &model.Result{
		ReadableOutput: fmt.Sprintf("Alert **%s** created", id),
		OutputsPrefix:  "SecurityScorecard.GradeChangeAlert.id",
		Outputs:        id,
		RawResponse:    map[string]any{"id": id},
	}, nil
}

// AlertScoreThresholdCreate subscribes a user to score threshold crossings.
func (c *Commands) AlertScoreThresholdCreate(ctx context.Context, args types.Args) (*model.Result, error) {
	in, err := decodeAlert(args, []string{"rises_above", "drops_below"}, "threshold")
	if err != nil {
		return nil, err
	}
	id, err := c.client.CreateThresholdAlert(ctx, in.Email, scorecard.ThresholdAlert{
		ChangeDirection: in.ChangeDirection,
		Threshold:       in.Threshold,
		ScoreTypes:      in.ScoreTypes,
		Target:          in.Target,
	})
	if err != nil {
		return nil, err
	}
	c.log.Info(ctx, "score threshold alert created", logger.String("id", id))
	return &model.Result{
		ReadableOutput: fmt.Sprintf("Alert **%s** created", id),
		OutputsPrefix:  "SecurityScorecard.ScoreThresholdAlert.id",
		Outputs:        id,
		RawResponse:    map[string]any{"id": id},
	}, nil
}

// AlertDelete removes an alert subscription.
func (c *Commands) AlertDelete(ctx context.Context, args types.Args) (*model.Result, error) {
	if err := args.Require("email", "alert_id", "alert_type"); err != nil {
		return nil, err
	}
	email, id := args.String("email"), args.String("alert_id")
	alertType := strings.ToLower(args.String("alert_type"))
	if alertType != "score" && alertType != "grade" {
		return nil, fmt.Errorf("%w: alert_type must be score or grade", types.ErrInvalidArgument)
	}

	if err := c.client.DeleteAlert(ctx, email, alertType, id); err != nil {
		return nil, err
	}
	return model.Text(fmt.Sprintf("%s alert **%s** deleted", strings.ToUpper(alertType[:1])+alertType[1:], id)), nil
}

// AlertGetLastWeek lists the alerts triggered for a user in the last week,
// one row per change.
func (c *Commands) AlertGetLastWeek(ctx context.Context, args types.Args) (*model.Result, error) {
	if err := args.Require("email"); err != nil {
		return nil, err
	}
	email := args.String("email")
	alerts, err := c.client.RecentAlerts(ctx, email, args.String("portfolio_id"))
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]any, 0, len(alerts))
	for _, a := range alerts {
		for _, ch := range a.ChangeData {
			rows = append(rows, map[string]any{
				"id":           a.ID,
				"change_type":  a.ChangeType,
				"domain":       a.Domain,
				"company":      a.CompanyName,
				"created":      a.CreatedAt,
				"direction":    ch.Direction,
				"score":        ch.Score,
				"factor":       ch.Factor,
				"grade_letter": ch.GradeLetter,
				"score_impact": ch.ScoreImpact,
			})
		}
	}
	return &model.Result{
		ReadableOutput: markdown.Table("Latest Alerts for user "+email, rows,
			markdown.WithHeaders("id", "change_type", "domain", "company", "created",
				"direction", "score", "factor", "grade_letter", "score_impact")),
		OutputsPrefix:   "SecurityScorecard.Alert",
		OutputsKeyField: "id",
		Outputs:         rows,
		RawResponse:     alerts,
	}, nil
}

// CompanyServicesGet lists a domain's service providers, one row per
// category.
func (c *Commands) CompanyServicesGet(ctx context.Context, args types.Args) (*model.Result, error) {
	if err := args.Require("domain"); err != nil {
		return nil, err
	}
	domain := args.String("domain")
	page, err := c.client.Services(ctx, domain)
	if err != nil {
		return nil, err
	}

	var rows []map[string]any
	for _, entry := range page.Entries {
		categories, _ := entry["categories"].([]any)
		for _, cat := range categories {
			rows = append(rows, map[string]any{
				"vendor_domain": entry["vendor_domain"],
				"category":      cat,
			})
		}
	}
	return &model.Result{
		ReadableOutput: markdown.Table(fmt.Sprintf("Services for domain [%s](https://%s)", domain, domain),
			rows, markdown.WithHeaders("vendor_domain", "category")),
		OutputsPrefix: "SecurityScorecard.Company.Service",
		Outputs:       page.Entries,
		RawResponse:   page,
	}, nil
}

// withGradeImage copies m, rendering grade_url as an inline image.
func withGradeImage(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	if u, ok := m["grade_url"].(string); ok {
		out["grade_url"] = markdown.Image(u)
	}
	return out
}
