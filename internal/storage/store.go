package storage

import (
	"context"

	"hpfold/internal/model"
)

// Store persists run records and the per-run artifacts of folding runs.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	// ListRuns returns every run, newest first.
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveScoreHistory(ctx context.Context, runID string, history []int) error
	GetScoreHistory(ctx context.Context, runID string) ([]int, bool, error)
	SaveRoundDiagnostics(ctx context.Context, runID string, diagnostics []model.RoundDiagnostics) error
	GetRoundDiagnostics(ctx context.Context, runID string) ([]model.RoundDiagnostics, bool, error)
	SaveTopFolds(ctx context.Context, runID string, top []model.FoldRecord) error
	GetTopFolds(ctx context.Context, runID string) ([]model.FoldRecord, bool, error)
}

// Resetter is implemented by stores that can drop all persisted data.
type Resetter interface {
	Reset(ctx context.Context) error
}
