package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpfold/internal/search"
)

func TestObserveRound(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.ObserveRound("beam", search.Stats{Evaluations: 10, Invalid: 3, BestScore: 4, Population: 6}, 20*time.Millisecond)
	r.ObserveRound("beam", search.Stats{Evaluations: 5, Invalid: 5, FellBack: true, BestScore: 5, Population: 6}, time.Millisecond)

	assert.Equal(t, 7.0, testutil.ToFloat64(r.Evaluations.WithLabelValues("beam", "valid")))
	assert.Equal(t, 8.0, testutil.ToFloat64(r.Evaluations.WithLabelValues("beam", "invalid")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Rounds.WithLabelValues("beam")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Fallbacks.WithLabelValues("beam")))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.BestScore.WithLabelValues("beam")))
	assert.Equal(t, 6.0, testutil.ToFloat64(r.PopulationSize.WithLabelValues("beam")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.RoundDuration))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveRound("aco", search.Stats{Evaluations: 1}, time.Second)
	})
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)
	r.ObserveRound("anneal", search.Stats{Evaluations: 3, BestScore: 2, Population: 1}, time.Millisecond)

	path := filepath.Join(t.TempDir(), "hpfold.prom")
	require.NoError(t, WriteTextfile(path, reg))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `hpfold_best_score{optimizer="anneal"} 2`))
	assert.Contains(t, text, "hpfold_walk_evaluations_total")
}
