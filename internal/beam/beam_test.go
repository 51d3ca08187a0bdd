package beam

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpfold/internal/lattice"
	"hpfold/internal/search"
)

// constSource always picks the same alphabet index and never accepts by chance.
type constSource struct{ idx int }

func (c constSource) Intn(n int) int  { return c.idx % n }
func (constSource) Int63() int64     { return 0 }
func (constSource) Float64() float64 { return 0.999999 }

func benchmarkSequence(t *testing.T, name string) lattice.Sequence {
	t.Helper()
	b, ok := lattice.BenchmarkByName(name)
	require.True(t, ok)
	seq, err := b.Sequence()
	require.NoError(t, err)
	return seq
}

func TestNewValidatesConfig(t *testing.T) {
	seq := lattice.MustParseSequence("HPHH")
	src := search.NewSource(1)

	_, err := New(seq, src, Config{Width: 0, Dim: lattice.Dim2})
	assert.Error(t, err)
	_, err = New(seq, src, Config{Width: 4, Dim: lattice.Dimension(4)})
	assert.Error(t, err)
	_, err = New(seq, src, Config{Width: 4, Dim: lattice.Dim2, StepSize: -1})
	assert.Error(t, err)
	_, err = New(seq, src, Config{Width: 4, Dim: lattice.Dim3, StepSize: MaxStepSize + 1})
	assert.Error(t, err)
	_, err = New(seq, nil, Config{Width: 4, Dim: lattice.Dim2})
	assert.Error(t, err)

	s, err := New(seq, src, Config{Width: 4, Dim: lattice.Dim3})
	require.NoError(t, err)
	assert.Equal(t, DefaultStepSize, s.cfg.StepSize)
	assert.Equal(t, DefaultStride, s.cfg.Stride)
	assert.Equal(t, "beam", s.Name())
}

func TestStepBeforeSeed(t *testing.T) {
	s, err := New(lattice.MustParseSequence("HPHPH"), search.NewSource(1), Config{Width: 2, Dim: lattice.Dim2})
	require.NoError(t, err)
	_, err = s.Step(context.Background())
	assert.ErrorIs(t, err, ErrNotSeeded)
}

func TestSeedUnsatisfiable(t *testing.T) {
	// all-Left turn lists spiral into themselves after three turns
	s, err := New(lattice.MustParseSequence("HPHPHPHP"), constSource{idx: 1}, Config{Width: 2, Dim: lattice.Dim2, SeedAttempts: 50})
	require.NoError(t, err)

	err = s.Seed(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, search.ErrUnsatisfiableSeed))

	_, err = s.Run(context.Background(), 3)
	assert.ErrorIs(t, err, search.ErrUnsatisfiableSeed)
}

func TestSearchRoundInvariants(t *testing.T) {
	for _, dim := range []lattice.Dimension{lattice.Dim2, lattice.Dim3} {
		t.Run(dim.String(), func(t *testing.T) {
			seq := benchmarkSequence(t, "S1-20")
			s, err := New(seq, search.NewSource(7), Config{Width: 8, Dim: dim, Workers: 3})
			require.NoError(t, err)
			require.NoError(t, s.Seed(context.Background()))

			prev := s.BestScore()
			for round := 0; round < 4; round++ {
				stats, err := s.Step(context.Background())
				require.NoError(t, err)
				assert.GreaterOrEqual(t, s.BestScore(), prev, "round %d", round)
				prev = s.BestScore()

				assert.Equal(t, prev, stats.BestScore)
				assert.Positive(t, stats.Evaluations)
				assert.False(t, stats.FellBack)

				beam := s.Beam()
				require.NotEmpty(t, beam)
				assert.LessOrEqual(t, len(beam), 8)
				keys := map[lattice.FitnessKey]struct{}{}
				for _, w := range s.Population() {
					assert.True(t, w.Valid)
					assert.Equal(t, seq, w.Sequence)
					assert.Equal(t, dim, w.Dim)
					keys[w.Key()] = struct{}{}
					again := lattice.Evaluate(seq, w.Turns, dim)
					assert.Equal(t, w.Positions, again.Positions)
					assert.Equal(t, w.Score, again.Score)
				}
				assert.Len(t, keys, len(beam), "beam members have distinct fitness keys")
			}
			best := s.Best()
			assert.True(t, best.Valid)
			assert.Equal(t, best.Score, lattice.Evaluate(seq, best.Turns, dim).Score)
		})
	}
}

func TestExpandPositionNeverExceedsWidth(t *testing.T) {
	seq := benchmarkSequence(t, "S2-24")
	s, err := New(seq, search.NewSource(3), Config{Width: 3, Dim: lattice.Dim3})
	require.NoError(t, err)
	require.NoError(t, s.Seed(context.Background()))
	for c := 0; c < len(seq)-2; c++ {
		stats, err := s.ExpandPosition(context.Background(), c)
		require.NoError(t, err)
		assert.LessOrEqual(t, stats.Population, 3)
		assert.LessOrEqual(t, len(s.Beam()), 3)
	}

	_, err = s.ExpandPosition(context.Background(), len(seq)-2)
	assert.Error(t, err)
}

func TestRunIsDeterministicAcrossWorkerCounts(t *testing.T) {
	seq := benchmarkSequence(t, "S1-20")
	run := func(workers int) lattice.ScoredWalk {
		s, err := New(seq, search.NewSource(42), Config{Width: 6, Dim: lattice.Dim2, Workers: workers})
		require.NoError(t, err)
		best, err := s.Run(context.Background(), 2)
		require.NoError(t, err)
		return best
	}
	one := run(1)
	many := run(8)
	assert.Equal(t, one.Turns, many.Turns)
	assert.Equal(t, one.Score, many.Score)
}

func TestRunFindsContactsOnShortChain(t *testing.T) {
	// HPPH folds into a unit square with one contact
	s, err := New(lattice.MustParseSequence("HPPH"), search.NewSource(5), Config{Width: 4, Dim: lattice.Dim2})
	require.NoError(t, err)
	best, err := s.Run(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, best.Score)
}

func TestRunWithoutWindowsIsNotEmpty(t *testing.T) {
	s, err := New(lattice.MustParseSequence("HH"), search.NewSource(1), Config{Width: 2, Dim: lattice.Dim3})
	require.NoError(t, err)
	best, err := s.Run(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, best.Valid)
	assert.Len(t, s.Beam(), 1)
}

func TestEmptySelectionKeepsPriorBeam(t *testing.T) {
	s, err := New(lattice.MustParseSequence("HPHPPH"), search.NewSource(1), Config{Width: 2, Dim: lattice.Dim2})
	require.NoError(t, err)
	require.NoError(t, s.Seed(context.Background()))
	prior := s.Beam()

	var stats search.Stats
	s.replace(nil, &stats)
	assert.True(t, stats.FellBack)
	assert.Equal(t, prior, s.Beam())
}

func TestRunHonoursCancellation(t *testing.T) {
	seq := benchmarkSequence(t, "S4-36")
	s, err := New(seq, search.NewSource(9), Config{Width: 4, Dim: lattice.Dim2})
	require.NoError(t, err)
	require.NoError(t, s.Seed(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Step(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSelection(t *testing.T) {
	assert.Equal(t, 1.0, acceptance(0, 5))
	assert.Greater(t, acceptance(1, 5), acceptance(2, 5))
	assert.InDelta(t, 0.0003, acceptance(5, 5), 0.0001)

	ranked := make([]lattice.ScoredWalk, 12)
	for i := range ranked {
		ranked[i] = lattice.ScoredWalk{Value: 100 - i}
	}
	picked := selectStochastic(ranked, 4, search.NewSource(1))
	require.NotEmpty(t, picked)
	assert.LessOrEqual(t, len(picked), 4)
	assert.Equal(t, 100, picked[0].Value)

	assert.Len(t, selectTop(ranked, 4), 4)
	assert.Len(t, selectTop(ranked[:2], 4), 2)
	assert.Empty(t, selectStochastic(nil, 4, search.NewSource(1)))
}

func TestSelectStochasticFollowsRankDecay(t *testing.T) {
	const width, trials = 10, 20000
	ranked := make([]lattice.ScoredWalk, width)
	for k := range ranked {
		ranked[k] = lattice.ScoredWalk{Value: -k}
	}

	kept := make([]int, width)
	src := search.NewSource(17)
	for i := 0; i < trials; i++ {
		for _, c := range selectStochastic(ranked, width, src) {
			kept[-c.Value]++
		}
	}
	for k, n := range kept {
		assert.InDelta(t, acceptance(k, width), float64(n)/trials, 0.02, "rank %d", k)
	}
	assert.Equal(t, trials, kept[0])
}

func TestLocalReconstructKeepsTopWidth(t *testing.T) {
	const width = 5
	seq := benchmarkSequence(t, "S1-20")
	s, err := New(seq, search.NewSource(3), Config{Width: width, Dim: lattice.Dim2, Workers: 4})
	require.NoError(t, err)
	require.NoError(t, s.Seed(context.Background()))
	_, err = s.Sweep(context.Background())
	require.NoError(t, err)

	windows := windowCount(len(seq), s.cfg.StepSize)
	p := newPool(0)
	for i := 0; i < len(s.beam); i += s.cfg.Stride {
		for c := 1; c <= windows; c++ {
			for _, cand := range reconstructWindow(s.beam[i].Walk, c, s.cfg.StepSize).candidates {
				p.add(cand)
			}
		}
	}
	want := p.ranked()
	require.NotEmpty(t, want)
	if len(want) > width {
		want = want[:width]
	}

	_, err = s.LocalReconstruct(context.Background())
	require.NoError(t, err)
	got := s.Population()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Key(), got[i].Key(), "rank %d", i)
		assert.Equal(t, want[i].Turns, got[i].Turns, "rank %d", i)
	}
	for i := 1; i < len(got); i++ {
		assert.False(t, lattice.Better(got[i], got[i-1]))
	}
}
