package ratings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/soarbridge/internal/adapters/repository"
	"github.com/okian/soarbridge/internal/adapters/scorecard"
	"github.com/okian/soarbridge/internal/domain/dedupe"
	"github.com/okian/soarbridge/internal/domain/model"
	"github.com/okian/soarbridge/internal/domain/types"
	"github.com/okian/soarbridge/pkg/logger"
	"github.com/okian/soarbridge/pkg/metrics"
)

// createdLayout is the alert timestamp format, fractional seconds optional.
const createdLayout = "2006-01-02T15:04:05.999999Z"

// FetchIncidentsCommand runs one fetch and returns the incidents for the host.
func (c *Commands) FetchIncidentsCommand(ctx context.Context, _ types.Args) (*model.Result, error) {
	incidents, err := c.FetchIncidents(ctx)
	if err != nil {
		return nil, err
	}
	return &model.Result{
		ReadableOutput: fmt.Sprintf("%d incidents fetched", len(incidents)),
		Incidents:      incidents,
	}, nil
}

// FetchIncidents turns new alerts into incidents. An alert is new when it
// was created after the window start and its id was not imported before.
// The window starts at the last run minus the lookback, or fetchDaysAgo
// days back on the first run. The checkpoint advances on every successful
// fetch, including empty ones.
func (c *Commands) FetchIncidents(ctx context.Context) (incidents []model.Incident, err error) {
	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.RecordFetchRun(outcome)
	}()

	if c.username == "" {
		return nil, fmt.Errorf("%w: username is required to fetch alerts", types.ErrInvalidArgument)
	}

	now := c.now().UTC()
	cp, err := c.store.Load(ctx, c.checkpointKey)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	since := c.windowStart(cp, now)

	alerts, err := c.client.FetchAlerts(ctx, c.username, c.maxIncidents)
	if err != nil {
		return nil, err
	}
	metrics.RecordAlertsFetched(len(alerts))
	c.log.Debug(ctx, "alerts fetched",
		logger.Int("alerts", len(alerts)),
		logger.String("since", since.Format(time.RFC3339)))

	seen := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(c.dedupeSize), dedupe.WithSeed(cp.SeenIDs))
	incidents = c.selectIncidents(ctx, alerts, since, seen)

	next := model.Checkpoint{LastRun: now.Unix(), SeenIDs: seen.Snapshot()}
	if err := c.store.Save(ctx, c.checkpointKey, next); err != nil {
		return nil, fmt.Errorf("save checkpoint: %w", err)
	}

	metrics.RecordIncidentsImported(len(incidents))
	metrics.UpdateLastFetch(now)
	c.log.Info(ctx, "fetch complete",
		logger.Int("alerts", len(alerts)),
		logger.Int("incidents", len(incidents)))
	return incidents, nil
}

// ReleaseIncidents forgets incidents the host never received so the next
// fetch imports them again. Their ids leave the seen list and the last run
// moves back far enough for each to be inside the next window.
func (c *Commands) ReleaseIncidents(ctx context.Context, incidents []model.Incident) error {
	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()

	cp, err := c.store.Load(ctx, c.checkpointKey)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}

	seen := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(c.dedupeSize), dedupe.WithSeed(cp.SeenIDs))
	released := 0
	for _, inc := range incidents {
		if inc.SourceID == "" {
			continue
		}
		seen.Unrecord(ctx, inc.SourceID)
		released++
		if occurred, err := time.Parse(model.OccurredLayout, inc.Occurred); err == nil {
			if limit := occurred.Add(c.lookback - time.Second).Unix(); limit < cp.LastRun {
				cp.LastRun = limit
			}
		}
	}
	if released == 0 {
		return nil
	}

	cp.SeenIDs = seen.Snapshot()
	if err := c.store.Save(ctx, c.checkpointKey, cp); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	c.log.Warn(ctx, "incidents released for the next fetch", logger.Int("incidents", released))
	return nil
}

func (c *Commands) windowStart(cp model.Checkpoint, now time.Time) time.Time {
	if last := cp.LastRunTime(); !last.IsZero() {
		return last.Add(-c.lookback)
	}
	return now.AddDate(0, 0, -c.fetchDaysAgo)
}

func (c *Commands) selectIncidents(ctx context.Context, alerts []scorecard.Alert, since time.Time, seen dedupe.Deduper) []model.Incident {
	out := make([]model.Incident, 0, min(len(alerts), c.maxIncidents))
	for _, a := range alerts {
		created, err := parseCreated(a.CreatedAt)
		if err != nil {
			c.log.Warn(ctx, "skipping alert with unparseable created_at",
				logger.String("id", a.ID), logger.String("created_at", a.CreatedAt))
			continue
		}
		if !created.After(since) {
			metrics.RecordAlertOutsideWindow()
			continue
		}
		if seen.SeenAndRecord(ctx, a.ID) {
			metrics.RecordIncidentDuplicate()
			continue
		}
		if len(out) >= c.maxIncidents {
			seen.Unrecord(ctx, a.ID)
			break
		}
		out = append(out, toIncident(a, created))
	}
	return out
}

func toIncident(a scorecard.Alert, created time.Time) model.Incident {
	return model.Incident{
		Name:     fmt.Sprintf("SecurityScorecard '%s' Incident", a.ChangeType),
		Occurred: created.UTC().Format(model.OccurredLayout),
		RawJSON:  string(a.Raw),
		SourceID: a.ID,
	}
}

func parseCreated(s string) (time.Time, error) {
	t, err := time.Parse(createdLayout, s)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
