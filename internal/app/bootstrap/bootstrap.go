// Package bootstrap assembles the command service from configuration.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/okian/soarbridge/internal/adapters/clarizen"
	"github.com/okian/soarbridge/internal/adapters/http/rest"
	"github.com/okian/soarbridge/internal/adapters/repository"
	"github.com/okian/soarbridge/internal/adapters/scorecard"
	service "github.com/okian/soarbridge/internal/app"
	"github.com/okian/soarbridge/internal/app/iam"
	"github.com/okian/soarbridge/internal/app/ratings"
	"github.com/okian/soarbridge/internal/config"
	"github.com/okian/soarbridge/pkg/logger"
)

// Build creates a service with every enabled integration registered. The
// service is not started.
func Build(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Service, error) {
	if log == nil {
		log = logger.Discard()
	}
	opts := []service.Option{
		service.WithLogger(log),
		service.WithQueueSize(cfg.IncidentQueueSize),
	}

	if cfg.Clarizen.Enabled {
		opts = append(opts, service.WithIntegration(buildIAM(cfg, log.Named(iam.Integration))))
	}

	if cfg.Scorecard.Enabled {
		r, err := buildRatings(ctx, cfg, log.Named(ratings.Integration))
		if err != nil {
			return nil, err
		}
		opts = append(opts, service.WithIntegration(r))
		if cfg.Scorecard.PollEnabled {
			opts = append(opts, service.WithPoller(r, cfg.Scorecard.FetchInterval))
		}
	}

	log.Info(ctx, "integrations configured",
		logger.Bool("clarizen", cfg.Clarizen.Enabled),
		logger.Bool("securityscorecard", cfg.Scorecard.Enabled),
		logger.Bool("polling", cfg.Scorecard.Enabled && cfg.Scorecard.PollEnabled))
	return service.New(opts...), nil
}

func transport(name, baseURL string, insecure, proxy bool, cfg config.HTTPConfig, log logger.Logger) *rest.Client {
	return rest.New(name, baseURL,
		rest.WithTimeout(cfg.Timeout),
		rest.WithInsecure(insecure),
		rest.WithProxy(proxy),
		rest.WithBreaker(cfg.BreakerTimeout, cfg.BreakerMaxFailures),
		rest.WithLogger(log),
	)
}

func buildIAM(cfg *config.Config, log logger.Logger) *iam.Commands {
	c := cfg.Clarizen
	client := clarizen.New(
		transport(iam.Integration, c.URL, c.Insecure, c.Proxy, cfg.HTTP, log),
		c.Username, c.Password,
		clarizen.WithLogger(log),
	)
	return iam.New(client,
		iam.WithInstanceName(cfg.InstanceName),
		iam.WithCustomMapping(c.CustomMappingCreateUser, c.CustomMappingUpdateUser),
		iam.WithLogger(log),
	)
}

func buildRatings(ctx context.Context, cfg *config.Config, log logger.Logger) (*ratings.Commands, error) {
	s := cfg.Scorecard
	store, err := repository.Open(ctx, cfg.Checkpoint)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint store: %w", err)
	}
	client := scorecard.New(transport(ratings.Integration, s.BaseURL, s.Insecure, s.Proxy, cfg.HTTP, log), s.APIKey,
		scorecard.WithLogger(log))
	return ratings.New(client,
		ratings.WithUsername(s.Username),
		ratings.WithStore(store),
		ratings.WithMaxIncidents(s.MaxIncidents),
		ratings.WithFetchDaysAgo(s.FetchDaysAgo),
		ratings.WithLookback(s.FetchLookback),
		ratings.WithDedupeSize(s.DedupeSize),
		ratings.WithCheckpointKey(ratings.Integration),
		ratings.WithLogger(log),
	), nil
}
