package lattice

// Walk is a chain conformation: the turn list plus everything derived from it.
// Positions and Score are only meaningful when Valid is set.
type Walk struct {
	Sequence  Sequence
	Dim       Dimension
	Turns     []Turn
	Positions []Vec
	Score     int
	Valid     bool
}

// Evaluate places the chain on the lattice and counts H-H contacts in one
// forward pass. The returned walk keeps the turns slice; callers must not
// mutate it afterwards.
//
// Self-intersection, a turn list whose length is not len(seq)-2 and turns
// outside the dimension's alphabet all yield an invalid walk.
func Evaluate(seq Sequence, turns []Turn, dim Dimension) Walk {
	w := Walk{Sequence: seq, Dim: dim, Turns: turns}
	if len(seq) < MinSequenceLength || len(turns) != len(seq)-2 {
		return w
	}

	occupied := make(map[Vec]Residue, len(seq))
	positions := make([]Vec, len(seq))
	positions[0], positions[1] = Origin, SeedCell
	occupied[Origin] = seq[0]
	occupied[SeedCell] = seq[1]

	neighbors := dim.Neighbors()
	heading := SeedCell.Sub(Origin)
	last := SeedCell
	score := 0
	for i, t := range turns {
		if !dim.Allows(t) {
			return w
		}
		heading = t.Apply(heading)
		next := last.Add(heading)
		if _, taken := occupied[next]; taken {
			return w
		}
		residue := seq[i+2]
		if residue == Hydrophobic {
			back := heading.Neg()
			for _, n := range neighbors {
				if n == back {
					continue
				}
				if occupied[next.Add(n)] == Hydrophobic {
					score++
				}
			}
		}
		occupied[next] = residue
		positions[i+2] = next
		last = next
	}

	w.Positions = positions
	w.Score = score
	w.Valid = true
	return w
}

// WithTurn returns a re-evaluated copy of w with turn idx replaced.
func (w Walk) WithTurn(idx int, t Turn) Walk {
	turns := make([]Turn, len(w.Turns))
	copy(turns, w.Turns)
	turns[idx] = t
	return Evaluate(w.Sequence, turns, w.Dim)
}

// Clone deep-copies the turn and position slices.
func (w Walk) Clone() Walk {
	out := w
	out.Turns = append([]Turn(nil), w.Turns...)
	out.Positions = append([]Vec(nil), w.Positions...)
	return out
}

// Heading returns the displacement that arrived at residue i (i >= 1).
func (w Walk) Heading(i int) Vec {
	return w.Positions[i].Sub(w.Positions[i-1])
}

// SpreadSquared is the largest squared pairwise distance between residues.
// It is the integer form of the compactness measure and costs O(N²).
func SpreadSquared(positions []Vec) int {
	best := 0
	for i := 0; i < len(positions); i++ {
		for j := i + 1; j < len(positions); j++ {
			if d := positions[i].Sub(positions[j]).NormSquared(); d > best {
				best = d
			}
		}
	}
	return best
}
