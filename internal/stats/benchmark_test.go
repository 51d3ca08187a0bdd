package stats

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpfold/internal/model"
)

func TestSummarizeBenchmark(t *testing.T) {
	runs := []model.RunRecord{
		{ID: "1", Benchmark: "S2-24", Dimension: 2, Optimizer: "beam", BestScore: 9},
		{ID: "2", Benchmark: "S1-20", Dimension: 2, Optimizer: "beam", BestScore: 7},
		{ID: "3", Benchmark: "S1-20", Dimension: 2, Optimizer: "aco", BestScore: 5},
		{ID: "4", Benchmark: "S1-20", Dimension: 3, Optimizer: "anneal", BestScore: 11},
		{ID: "5", Sequence: "HPPH", Dimension: 2, BestScore: 1},
		{ID: "6", Benchmark: "S1-20", Dimension: 2, BestScore: 9, Error: "canceled"},
	}

	summaries, err := SummarizeBenchmark(runs)
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	s1 := summaries[0]
	assert.Equal(t, "S1-20", s1.Benchmark)
	assert.Equal(t, 2, s1.Dimension)
	assert.Equal(t, 20, s1.Length)
	assert.Equal(t, 2, s1.Runs)
	assert.Equal(t, 7, s1.BestScore)
	assert.InDelta(t, 6.0, s1.MeanScore, 1e-9)
	assert.InDelta(t, 1.0, s1.StdScore, 1e-9)
	assert.Equal(t, 2, s1.Gap)
	assert.False(t, s1.Reached)
	assert.Equal(t, []string{"aco", "beam"}, s1.Optimizers)

	s1in3d := summaries[1]
	assert.Equal(t, 3, s1in3d.Dimension)
	assert.Equal(t, -2, s1in3d.Gap)
	assert.True(t, s1in3d.Reached)

	assert.Equal(t, "S2-24", summaries[2].Benchmark)
	assert.True(t, summaries[2].Reached)
}

func TestSummarizeBenchmarkUnknownName(t *testing.T) {
	_, err := SummarizeBenchmark([]model.RunRecord{{Benchmark: "S99"}})
	assert.Error(t, err)
}

func TestWriteBenchmarkSummary(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteBenchmarkSummary(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, benchmarkFile), path)
	assert.FileExists(t, path)
}
