package storage

import (
	"context"

	"spikenet/internal/model"
)

// Store defines transaction-like persistence operations for creature weights,
// generation history and run records.
type Store interface {
	Init(ctx context.Context) error
	SaveWeights(ctx context.Context, snapshot model.WeightSnapshot) error
	GetWeights(ctx context.Context, creatureID string) (model.WeightSnapshot, bool, error)
	SaveGeneration(ctx context.Context, summary model.GenerationSummary) error
	ListGenerations(ctx context.Context, runID string) ([]model.GenerationSummary, bool, error)
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
}
