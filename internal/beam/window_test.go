package beam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpfold/internal/lattice"
)

func sumSteps(steps []lattice.Vec) lattice.Vec {
	var total lattice.Vec
	for _, s := range steps {
		total = total.Add(s)
	}
	return total
}

func countPermutations(set []lattice.Vec) (int, map[string]struct{}) {
	seen := map[string]struct{}{}
	n := 0
	forEachPermutation(set, func(perm []lattice.Vec) {
		n++
		key := ""
		for _, v := range perm {
			key += v.String()
		}
		seen[key] = struct{}{}
	})
	return n, seen
}

func TestStepMultisetsZeroSlack(t *testing.T) {
	d := lattice.Vec{X: 3, Y: 2}
	sets := stepMultisets(d, 5, lattice.Dim2)
	require.Len(t, sets, 1)
	assert.Equal(t, d, sumSteps(sets[0]))

	n, distinct := countPermutations(sets[0])
	assert.Equal(t, 10, n)
	assert.Len(t, distinct, 10)
}

func TestStepMultisetsWithSlack(t *testing.T) {
	d := lattice.PlusX
	planar := stepMultisets(d, 3, lattice.Dim2)
	require.Len(t, planar, 2)
	cubic := stepMultisets(d, 3, lattice.Dim3)
	require.Len(t, cubic, 3)
	for _, set := range cubic {
		assert.Len(t, set, 3)
		assert.Equal(t, d, sumSteps(set))
	}

	// {+x,+x,-x} has 3 orderings, {+x,+y,-y} has 6
	total := 0
	for _, set := range planar {
		n, _ := countPermutations(set)
		total += n
	}
	assert.Equal(t, 9, total)

	assert.Nil(t, stepMultisets(lattice.Vec{X: 2}, 5, lattice.Dim2), "odd slack")
	assert.Nil(t, stepMultisets(lattice.Vec{X: 6}, 5, lattice.Dim2), "out of reach")
}

func TestNextPermutation(t *testing.T) {
	a := []lattice.Vec{lattice.MinusX, lattice.PlusX, lattice.PlusY}
	var orders [][]lattice.Vec
	forEachPermutation(a, func(p []lattice.Vec) {
		orders = append(orders, append([]lattice.Vec(nil), p...))
	})
	require.Len(t, orders, 6)
	// lexicographic on (x, y, z): -x < +y < +x
	assert.Equal(t, []lattice.Vec{lattice.MinusX, lattice.PlusY, lattice.PlusX}, orders[0])
	assert.Equal(t, []lattice.Vec{lattice.PlusX, lattice.PlusY, lattice.MinusX}, orders[5])
}

func TestWindowCount(t *testing.T) {
	assert.Equal(t, 0, windowCount(6, 5))
	assert.Equal(t, 1, windowCount(7, 5))
	assert.Equal(t, 14, windowCount(20, 5))
}

// staircase places residues 2..6 on a +x/+y staircase, then runs straight.
func staircase(t *testing.T) lattice.Walk {
	t.Helper()
	turns, err := lattice.ParseTurns("SRLRLSSS")
	require.NoError(t, err)
	w := lattice.Evaluate(lattice.MustParseSequence("HPHPHPHPHP"), turns, lattice.Dim2)
	require.True(t, w.Valid)
	require.Equal(t, lattice.Vec{X: 3, Y: 2}, w.Positions[6].Sub(w.Positions[1]))
	return w
}

func TestReconstructWindowZeroSlackPreservesEndpoints(t *testing.T) {
	w := staircase(t)
	res := reconstructWindow(w, 1, 5)

	assert.Equal(t, 10, res.evaluations)
	assert.Zero(t, res.invalid)
	require.Len(t, res.candidates, 10)

	shapes := map[string]struct{}{}
	for _, c := range res.candidates {
		require.True(t, c.Valid)
		assert.Equal(t, w.Positions[:2], c.Positions[:2])
		assert.Equal(t, w.Positions[6:], c.Positions[6:], "residues after the window keep their cells")
		shapes[lattice.FormatTurns(c.Turns)] = struct{}{}
	}
	assert.Len(t, shapes, 10)
	assert.Contains(t, shapes, lattice.FormatTurns(w.Turns))
}

func TestReconstructWindowWithSlackKeepsEndpoints(t *testing.T) {
	seq := lattice.MustParseSequence("HPPHPPHPHH")
	turns, err := lattice.ParseTurns("LLRRSRLS")
	require.NoError(t, err)
	w := lattice.Evaluate(seq, turns, lattice.Dim2)
	require.True(t, w.Valid)

	for c := 1; c <= windowCount(len(seq), 5); c++ {
		res := reconstructWindow(w, c, 5)
		require.NotEmpty(t, res.candidates, "window %d", c)
		for _, cand := range res.candidates {
			assert.Equal(t, w.Positions[c], cand.Positions[c])
			assert.Equal(t, w.Positions[c+5:], cand.Positions[c+5:])
		}
	}
}
