package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpfold/internal/model"
)

func sampleRun(id string, created time.Time) model.RunRecord {
	return model.RunRecord{
		VersionedRecord: CurrentVersion(),
		ID:              id,
		CreatedAt:       created,
		Optimizer:       "beam",
		Sequence:        "HPHPPHHPHPPHPHHPPHPH",
		Benchmark:       "S1-20",
		Dimension:       2,
		Rounds:          3,
		Seed:            1,
		BestScore:       7,
		BestValue:       42,
		BestTurns:       "LLRSRRLLRSLLRRSLLR",
		Evaluations:     1200,
	}
}

func sampleFolds() []model.FoldRecord {
	return []model.FoldRecord{
		{
			VersionedRecord: CurrentVersion(),
			Rank:            1,
			Turns:           "LL",
			Score:           1,
			Value:           5,
			SpreadSquared:   2,
			Positions:       []model.Position{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: -1, Z: 0}, {X: 0, Y: -1, Z: 0}},
		},
		{
			VersionedRecord: CurrentVersion(),
			Rank:            2,
			Turns:           "SS",
			Score:           0,
			Value:           -10,
			SpreadSquared:   9,
			Positions:       []model.Position{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 2, Y: 0, Z: 0}, {X: 3, Y: 0, Z: 0}},
		},
	}
}

// exerciseStore runs the behaviour every backend shares.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Init(ctx))
	require.NoError(t, store.Init(ctx))

	_, ok, err := store.GetRun(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	older := sampleRun("run-a", base)
	newer := sampleRun("run-b", base.Add(time.Minute))
	require.NoError(t, store.SaveRun(ctx, older))
	require.NoError(t, store.SaveRun(ctx, newer))

	got, ok, err := store.GetRun(ctx, "run-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, older.BestTurns, got.BestTurns)
	assert.True(t, older.CreatedAt.Equal(got.CreatedAt))

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-b", runs[0].ID)
	assert.Equal(t, "run-a", runs[1].ID)

	newer.BestScore = 9
	require.NoError(t, store.SaveRun(ctx, newer))
	got, _, err = store.GetRun(ctx, "run-b")
	require.NoError(t, err)
	assert.Equal(t, 9, got.BestScore)

	require.NoError(t, store.SaveScoreHistory(ctx, "run-a", []int{3, 5, 7}))
	history, ok, err := store.GetScoreHistory(ctx, "run-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int{3, 5, 7}, history)

	_, ok, err = store.GetScoreHistory(ctx, "run-b")
	require.NoError(t, err)
	assert.False(t, ok)

	diagnostics := []model.RoundDiagnostics{
		{Round: 1, BestScore: 3, PopulationSize: 100, Candidates: 240, Evaluations: 400},
		{Round: 2, BestScore: 5, PopulationSize: 100, FellBack: true},
	}
	require.NoError(t, store.SaveRoundDiagnostics(ctx, "run-a", diagnostics))
	gotDiagnostics, ok, err := store.GetRoundDiagnostics(ctx, "run-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, diagnostics, gotDiagnostics)

	folds := sampleFolds()
	require.NoError(t, store.SaveTopFolds(ctx, "run-a", folds))
	gotFolds, ok, err := store.GetTopFolds(ctx, "run-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, folds, gotFolds)

	resetter, ok := store.(Resetter)
	require.True(t, ok)
	require.NoError(t, resetter.Reset(ctx))
	runs, err = store.ListRuns(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)
	_, ok, err = store.GetTopFolds(ctx, "run-a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	err := store.SaveRun(context.Background(), sampleRun("x", time.Now()))
	assert.ErrorIs(t, err, errNotInitialized)
}

func TestMemoryStoreCopiesArtifacts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Init(ctx))

	history := []int{1, 2}
	require.NoError(t, store.SaveScoreHistory(ctx, "r", history))
	history[0] = 99
	got, _, err := store.GetScoreHistory(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got)

	folds := sampleFolds()
	require.NoError(t, store.SaveTopFolds(ctx, "r", folds))
	folds[0].Positions[0].X = 42
	gotFolds, _, err := store.GetTopFolds(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, 0, gotFolds[0].Positions[0].X)
}

func TestBadgerStoreInMemory(t *testing.T) {
	store := NewBadgerStore(BadgerConfig{InMemory: true})
	t.Cleanup(func() { _ = store.Close() })
	exerciseStore(t, store)
}

func TestBadgerStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := NewBadgerStore(BadgerConfig{Path: dir})
	require.NoError(t, first.Init(ctx))
	require.NoError(t, first.SaveRun(ctx, sampleRun("kept", time.Now().UTC())))
	require.NoError(t, first.Close())

	second := NewBadgerStore(BadgerConfig{Path: dir})
	require.NoError(t, second.Init(ctx))
	t.Cleanup(func() { _ = second.Close() })

	run, ok, err := second.GetRun(ctx, "kept")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "beam", run.Optimizer)
}

func TestBadgerStoreRequiresInitAndPath(t *testing.T) {
	ctx := context.Background()
	_, _, err := NewBadgerStore(BadgerConfig{InMemory: true}).GetRun(ctx, "x")
	assert.ErrorIs(t, err, errNotInitialized)

	assert.Error(t, NewBadgerStore(BadgerConfig{}).Init(ctx))
}

func TestBadgerStoreRejectsStaleRecords(t *testing.T) {
	ctx := context.Background()
	store := NewBadgerStore(BadgerConfig{InMemory: true})
	require.NoError(t, store.Init(ctx))
	t.Cleanup(func() { _ = store.Close() })

	stale := sampleRun("stale", time.Now())
	stale.CodecVersion = CurrentCodecVersion + 1
	require.NoError(t, store.SaveRun(ctx, stale))

	_, _, err := store.GetRun(ctx, "stale")
	assert.ErrorIs(t, err, ErrVersionMismatch)
}
