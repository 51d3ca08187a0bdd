package anneal

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpfold/internal/lattice"
	"hpfold/internal/search"
)

func TestSchedules(t *testing.T) {
	c := ConstantSchedule{T: 4}
	assert.Equal(t, 4.0, c.Temperature(0, 100))
	assert.Equal(t, 4.0, c.Temperature(99, 100))

	e := ExponentialSchedule{Start: 10, End: 0.1}
	assert.InDelta(t, 10, e.Temperature(0, 101), 1e-9)
	assert.InDelta(t, 1, e.Temperature(50, 101), 1e-9)
	assert.InDelta(t, 0.1, e.Temperature(100, 101), 1e-9)
	assert.InDelta(t, 0.1, e.Temperature(500, 101), 1e-9)
	assert.Equal(t, 0.1, e.Temperature(0, 1))
}

func TestAccept(t *testing.T) {
	src := search.NewSource(1)
	assert.True(t, accept(5, 6, 0, src))
	assert.False(t, accept(5, 5, 0, src))
	assert.False(t, accept(5, 4, 0, src))

	accepted := 0
	for i := 0; i < 20000; i++ {
		if accept(10, 0, 10, src) {
			accepted++
		}
	}
	ratio := float64(accepted) / 20000
	assert.InDelta(t, math.Exp(-1), ratio, 0.02)
}

func TestAnnealerBestNeverDecreases(t *testing.T) {
	b, ok := lattice.BenchmarkByName("S1-20")
	require.True(t, ok)
	seq, err := b.Sequence()
	require.NoError(t, err)

	for _, dim := range []lattice.Dimension{lattice.Dim2, lattice.Dim3} {
		a, err := New(seq, search.NewSource(11), Config{Dim: dim, StepsPerRound: 200})
		require.NoError(t, err)
		require.NoError(t, a.Seed(context.Background()))
		prev := a.Best().Score
		for round := 0; round < 5; round++ {
			stats, err := a.Step(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 200, stats.Evaluations)
			assert.GreaterOrEqual(t, a.Best().Score, prev)
			prev = a.Best().Score

			cur := a.Current()
			assert.True(t, cur.Valid)
			assert.Equal(t, cur.Score, lattice.Evaluate(seq, cur.Turns, dim).Score)
			for _, turn := range cur.Turns {
				assert.True(t, dim.Allows(turn))
			}
		}
		assert.Len(t, a.Population(), 1)
	}
}

func TestAnnealerCooling(t *testing.T) {
	seq := lattice.MustParseSequence("HPHPPHHPHH")
	a, err := New(seq, search.NewSource(2), Config{
		Dim:           lattice.Dim2,
		StepsPerRound: 10,
		Rounds:        3,
		Schedule:      ExponentialSchedule{Start: 8, End: 0.5},
	})
	require.NoError(t, err)
	require.NoError(t, a.Seed(context.Background()))
	assert.InDelta(t, 8, a.Temperature(), 1e-9)
	for i := 0; i < 3; i++ {
		_, err := a.Step(context.Background())
		require.NoError(t, err)
	}
	assert.InDelta(t, 0.5, a.Temperature(), 1e-9)
}

func TestAnnealerRejectsBadConfig(t *testing.T) {
	seq := lattice.MustParseSequence("HPHH")
	_, err := New(seq, search.NewSource(1), Config{Dim: lattice.Dimension(5)})
	assert.Error(t, err)
	_, err = New(seq, search.NewSource(1), Config{Dim: lattice.Dim2, Mutations: -1})
	assert.Error(t, err)
	_, err = New(seq, nil, Config{Dim: lattice.Dim2})
	assert.Error(t, err)

	a, err := New(seq, search.NewSource(1), Config{Dim: lattice.Dim2})
	require.NoError(t, err)
	_, err = a.Step(context.Background())
	assert.Error(t, err)
}

func TestAnnealerAcceptanceReference(t *testing.T) {
	b, ok := lattice.BenchmarkByName("S1-20")
	require.True(t, ok)
	seq, err := b.Sequence()
	require.NoError(t, err)
	straight := lattice.Assess(lattice.Evaluate(seq, make([]lattice.Turn, len(seq)-2), lattice.Dim2))
	require.True(t, straight.Valid)

	for _, compareBest := range []bool{false, true} {
		a, err := New(seq, search.NewSource(4), Config{
			Dim:         lattice.Dim2,
			Schedule:    ConstantSchedule{T: 0},
			CompareBest: compareBest,
		})
		require.NoError(t, err)
		require.NoError(t, a.Seed(context.Background()))
		for i := 0; i < 2000; i++ {
			a.move()
		}
		require.Greater(t, a.Best().Value, straight.Value)

		// park the chain on a poor walk below the best one
		a.current = straight
		moved := 0
		for i := 0; i < 3000; i++ {
			before := a.Current()
			ref := before.Value
			if compareBest {
				ref = a.Best().Value
			}
			a.move()
			after := a.Current()
			if lattice.FormatTurns(after.Turns) == lattice.FormatTurns(before.Turns) {
				continue
			}
			moved++
			assert.Greater(t, after.Value, ref, "compare best %v", compareBest)
		}
		if !compareBest {
			assert.Positive(t, moved)
		}
	}
}
