package beam

import (
	"slices"

	"hpfold/internal/lattice"
)

// axisSteps decomposes a displacement into unit steps along each axis.
func axisSteps(d lattice.Vec) []lattice.Vec {
	steps := make([]lattice.Vec, 0, d.Manhattan())
	emit := func(n int, pos, neg lattice.Vec) {
		unit := pos
		if n < 0 {
			unit, n = neg, -n
		}
		for i := 0; i < n; i++ {
			steps = append(steps, unit)
		}
	}
	emit(d.X, lattice.PlusX, lattice.MinusX)
	emit(d.Y, lattice.PlusY, lattice.MinusY)
	emit(d.Z, lattice.PlusZ, lattice.MinusZ)
	return steps
}

// stepMultisets returns every sorted multiset of n unit steps summing to d:
// the axis decomposition of d padded with canceling pairs. Each combination of
// pairs appears once.
func stepMultisets(d lattice.Vec, n int, dim lattice.Dimension) [][]lattice.Vec {
	slack := n - d.Manhattan()
	if slack < 0 || slack%2 != 0 {
		return nil
	}
	base := axisSteps(d)
	axes := dim.Axes()

	var out [][]lattice.Vec
	var choose func(from, pairs int, acc []lattice.Vec)
	choose = func(from, pairs int, acc []lattice.Vec) {
		if pairs == 0 {
			set := make([]lattice.Vec, 0, n)
			set = append(set, base...)
			set = append(set, acc...)
			slices.SortFunc(set, compareVec)
			out = append(out, set)
			return
		}
		for a := from; a < len(axes); a++ {
			choose(a, pairs-1, append(acc, axes[a], axes[a].Neg()))
		}
	}
	choose(0, slack/2, nil)
	return out
}

func compareVec(a, b lattice.Vec) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	default:
		return 0
	}
}

// nextPermutation advances a to its lexicographic successor and reports false
// once a is the last permutation.
func nextPermutation(a []lattice.Vec) bool {
	i := len(a) - 2
	for i >= 0 && !a[i].Less(a[i+1]) {
		i--
	}
	if i < 0 {
		return false
	}
	j := len(a) - 1
	for !a[i].Less(a[j]) {
		j--
	}
	a[i], a[j] = a[j], a[i]
	slices.Reverse(a[i+1:])
	return true
}

// forEachPermutation calls fn for every distinct ordering of set, starting
// from the sorted order. set is reordered in place.
func forEachPermutation(set []lattice.Vec, fn func([]lattice.Vec)) {
	slices.SortFunc(set, compareVec)
	for {
		fn(set)
		if !nextPermutation(set) {
			return
		}
	}
}

// windowCount is the number of reconstruction windows of size steps on an
// n-residue chain. Residue 1 is fixed, so windows start at residue 1.
func windowCount(n, steps int) int {
	return max(0, n-steps-1)
}

type windowResult struct {
	candidates  []lattice.ScoredWalk
	evaluations int
	invalid     int
}

// reconstructWindow re-routes the residues strictly between positions[c] and
// positions[c+steps] through every unit-step ordering that joins the same two
// endpoints. The turn that leaves the window is re-derived so every residue
// after the window keeps its absolute position. Orderings with a step no turn
// can express from the preceding heading are skipped.
func reconstructWindow(w lattice.Walk, c, steps int) windowResult {
	var res windowResult
	pos := w.Positions
	last := c + steps
	entry := w.Heading(c)
	hasTail := last+1 < len(pos)
	var tail lattice.Vec
	if hasTail {
		tail = pos[last+1].Sub(pos[last])
	}

	for _, set := range stepMultisets(pos[last].Sub(pos[c]), steps, w.Dim) {
		forEachPermutation(set, func(perm []lattice.Vec) {
			turns, ok := windowTurns(w, c, perm, entry, tail, hasTail)
			if !ok {
				return
			}
			res.evaluations++
			cand := lattice.Evaluate(w.Sequence, turns, w.Dim)
			if !cand.Valid {
				res.invalid++
				return
			}
			res.candidates = append(res.candidates, lattice.Assess(cand))
		})
	}
	return res
}

// windowTurns rewrites the turns placing residues c+1 .. c+len(perm), and the
// turn after them when the chain continues.
func windowTurns(w lattice.Walk, c int, perm []lattice.Vec, entry, tail lattice.Vec, hasTail bool) ([]lattice.Turn, bool) {
	turns := slices.Clone(w.Turns)
	heading := entry
	for k, step := range perm {
		t, ok := lattice.TurnBetween(heading, step, w.Dim)
		if !ok {
			return nil, false
		}
		turns[c-1+k] = t
		heading = step
	}
	if hasTail {
		t, ok := lattice.TurnBetween(heading, tail, w.Dim)
		if !ok {
			return nil, false
		}
		turns[c-1+len(perm)] = t
	}
	return turns, true
}
