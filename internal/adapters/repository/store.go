// Package repository persists fetch checkpoints between runs.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/okian/soarbridge/internal/domain/model"
	"github.com/okian/soarbridge/pkg/metrics"
)

// Store provides read/write access to named checkpoints.
type Store interface {
	// Load returns the checkpoint saved under key.
	// Returns ErrNotFound if nothing was saved yet.
	Load(ctx context.Context, key string) (model.Checkpoint, error)

	// Save replaces the checkpoint under key.
	Save(ctx context.Context, key string, cp model.Checkpoint) error
}

// observe records the outcome of one store operation.
func observe(backend, op string, start time.Time, err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		outcome = "miss"
	case err != nil:
		outcome = "error"
	}
	metrics.RecordCheckpointOperation(backend, op, outcome, float64(time.Since(start).Milliseconds()))
}
